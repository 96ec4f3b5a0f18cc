// Package scheduling exposes the HTTP surface of the appointment pipeline.
package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/wolfman30/appointment-scheduler/internal/audit"
	"github.com/wolfman30/appointment-scheduler/internal/observability/metrics"
	"github.com/wolfman30/appointment-scheduler/internal/ocr"
	"github.com/wolfman30/appointment-scheduler/internal/pipeline"
	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

// Runner executes the scheduling pipeline for one request.
type Runner interface {
	Run(ctx context.Context, rawText, timezone string, ocrConfidence float64) pipeline.Response
}

// TimezoneResolver maps a caller IP to an IANA timezone.
type TimezoneResolver interface {
	Timezone(ctx context.Context, ip string) string
}

// ImageReader extracts text from an uploaded image.
type ImageReader interface {
	ExtractImage(ctx context.Context, image []byte, filename string) (ocr.Text, error)
}

// Handler serves the /schedule endpoints.
type Handler struct {
	pipeline     Runner
	timezones    TimezoneResolver
	images       ImageReader
	auditStore   *audit.Store
	metrics      *metrics.PipelineMetrics
	logger       *logging.Logger
	defaultZone  string
	maxImageSize int64
}

// Option configures a Handler.
type Option func(*Handler)

// WithImageReader enables POST /schedule/image.
func WithImageReader(images ImageReader, maxSize int64) Option {
	return func(h *Handler) {
		h.images = images
		if maxSize > 0 {
			h.maxImageSize = maxSize
		}
	}
}

// WithAuditStore enables request logging to the database.
func WithAuditStore(store *audit.Store) Option {
	return func(h *Handler) {
		h.auditStore = store
	}
}

// WithMetrics attaches prometheus instrumentation.
func WithMetrics(m *metrics.PipelineMetrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// NewHandler creates the scheduling handler. timezones may be nil, in which
// case every request falls back to defaultZone unless the body names a zone.
func NewHandler(p Runner, timezones TimezoneResolver, defaultZone string, logger *logging.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	h := &Handler{
		pipeline:     p,
		timezones:    timezones,
		logger:       logger.Component("scheduling"),
		defaultZone:  defaultZone,
		maxImageSize: 10 << 20,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ScheduleTextRequest is the body of POST /schedule/text.
type ScheduleTextRequest struct {
	Text     string `json:"text"`
	Timezone string `json:"timezone,omitempty"`
}

// ScheduleText handles POST /schedule/text.
func (h *Handler) ScheduleText(w http.ResponseWriter, r *http.Request) {
	var req ScheduleTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	timezone := h.resolveTimezone(r, req.Timezone)
	resp := h.pipeline.Run(r.Context(), req.Text, timezone, 1.0)

	h.finish(r.Context(), w, "text", req.Text, timezone, resp)
}

// ScheduleImage handles POST /schedule/image. The uploaded file goes through
// the OCR sidecar before entering the pipeline.
func (h *Handler) ScheduleImage(w http.ResponseWriter, r *http.Request) {
	if h.images == nil {
		http.Error(w, "image scheduling is not configured", http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxImageSize)
	if err := r.ParseMultipartForm(h.maxImageSize); err != nil {
		http.Error(w, "invalid multipart form or file too large", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	contentType := header.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		http.Error(w, "file must be an image", http.StatusBadRequest)
		return
	}

	image, err := io.ReadAll(io.LimitReader(file, h.maxImageSize))
	if err != nil {
		http.Error(w, "failed to read file", http.StatusBadRequest)
		return
	}

	text, err := h.images.ExtractImage(r.Context(), image, header.Filename)
	if err != nil {
		if errors.Is(err, ocr.ErrNoText) {
			http.Error(w, "no text could be extracted from the image", http.StatusBadRequest)
			return
		}
		h.logger.Error("ocr extraction failed", "error", err)
		http.Error(w, "text extraction failed", http.StatusBadGateway)
		return
	}

	timezone := h.resolveTimezone(r, r.FormValue("timezone"))
	resp := h.pipeline.Run(r.Context(), text.RawText, timezone, text.Confidence)

	h.finish(r.Context(), w, "image", text.RawText, timezone, resp)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	components := map[string]string{
		"pipeline": "ok",
	}
	if h.images != nil {
		components["ocr"] = "configured"
	}
	if h.auditStore != nil {
		components["audit"] = "configured"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "healthy",
		"components": components,
	})
}

// resolveTimezone prefers the explicit zone from the request body, then the
// caller's IP, then the configured default.
func (h *Handler) resolveTimezone(r *http.Request, explicit string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	if h.timezones != nil {
		ip := clientIP(r)
		if zone := h.timezones.Timezone(r.Context(), ip); zone != "" {
			return zone
		}
	}
	return h.defaultZone
}

func (h *Handler) finish(ctx context.Context, w http.ResponseWriter, source, rawText, timezone string, resp pipeline.Response) {
	h.metrics.ObserveRequest(source, resp.Final.Status)
	h.record(ctx, source, rawText, timezone, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) record(ctx context.Context, source, rawText, timezone string, resp pipeline.Response) {
	if h.auditStore == nil {
		return
	}
	entry := audit.Entry{
		Source:            source,
		RawText:           rawText,
		Timezone:          timezone,
		Status:            resp.Final.Status,
		Message:           resp.Final.Message,
		OverallConfidence: resp.OverallConfidence,
	}
	if appt := resp.Final.Appointment; appt != nil {
		entry.Department = appt.Department
		entry.Date = appt.Date
		entry.Time = appt.Time
	}
	if resp.AIValidation != nil {
		entry.AIStatus = resp.AIValidation.Status
	}
	if _, err := h.auditStore.Record(ctx, entry); err != nil {
		h.logger.Warn("audit record failed", "error", err)
	}
}

// clientIP strips the port from RemoteAddr. chi's RealIP middleware already
// rewrites RemoteAddr from X-Forwarded-For / X-Real-Ip when present.
func clientIP(r *http.Request) string {
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx > 0 && !strings.Contains(addr[idx:], "]") {
		addr = addr[:idx]
	}
	return strings.Trim(addr, "[]")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
