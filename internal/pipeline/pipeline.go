// Package pipeline sequences extraction, normalization, the guardrail, and
// final-output assembly for one scheduling request.
package pipeline

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/appointment-scheduler/internal/extract"
	"github.com/wolfman30/appointment-scheduler/internal/guardrail"
	"github.com/wolfman30/appointment-scheduler/internal/normalize"
	"github.com/wolfman30/appointment-scheduler/internal/observability/metrics"
	"github.com/wolfman30/appointment-scheduler/internal/validate"
	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

var tracer = otel.Tracer("scheduler/pipeline")

// Final statuses for a pipeline run.
const (
	StatusOK                 = "ok"
	StatusNeedsClarification = "needs_clarification"
	StatusError              = "error"
)

// OCRStep echoes the text input stage of the pipeline.
type OCRStep struct {
	RawText    string  `json:"raw_text"`
	Confidence float64 `json:"confidence"`
}

// Appointment is the finalized record, only assembled when the guardrail
// passes.
type Appointment struct {
	Department string `json:"department"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Timezone   string `json:"tz"`
}

// Final is the outcome of a run.
type Final struct {
	Appointment *Appointment `json:"appointment,omitempty"`
	Status      string       `json:"status"`
	Message     string       `json:"message,omitempty"`
}

// Response carries every pipeline stage for one request.
type Response struct {
	Step1OCR           OCRStep           `json:"step1_ocr"`
	Step2Extraction    extract.Result    `json:"step2_extraction"`
	Step3Normalization normalize.Result  `json:"step3_normalization"`
	AIValidation       *validate.Result  `json:"ai_validation,omitempty"`
	Guardrail          guardrail.Verdict `json:"guardrail"`
	OverallConfidence  float64           `json:"overall_confidence,omitempty"`
	Final              Final             `json:"final"`
}

// Pipeline wires the stages together. It owns no algorithmic logic; each
// stage is pure or near-pure and independently testable.
type Pipeline struct {
	extractor  *extract.Extractor
	normalizer *normalize.Normalizer
	validator  validate.Validator
	metrics    *metrics.PipelineMetrics
	logger     *logging.Logger
	clock      func() time.Time
	aiTimeout  time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithValidator attaches the optional AI validation side channel.
func WithValidator(v validate.Validator, timeout time.Duration) Option {
	return func(p *Pipeline) {
		p.validator = v
		if timeout > 0 {
			p.aiTimeout = timeout
		}
	}
}

// WithMetrics attaches prometheus instrumentation.
func WithMetrics(m *metrics.PipelineMetrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithClock overrides the time source shared by normalization and the
// guardrail.
func WithClock(clock func() time.Time) Option {
	return func(p *Pipeline) {
		p.clock = clock
	}
}

// New creates a Pipeline.
func New(extractor *extract.Extractor, normalizer *normalize.Normalizer, logger *logging.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.Default()
	}
	p := &Pipeline{
		extractor:  extractor,
		normalizer: normalizer,
		logger:     logger.Component("pipeline"),
		clock:      time.Now,
		aiTimeout:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes one request. "now" is read once and shared between date
// inference and the guardrail's future-check so the two cannot disagree
// across a clock boundary.
func (p *Pipeline) Run(ctx context.Context, rawText, timezone string, ocrConfidence float64) Response {
	ctx, span := tracer.Start(ctx, "pipeline.run")
	defer span.End()

	resp := Response{
		Step1OCR: OCRStep{RawText: rawText, Confidence: ocrConfidence},
	}

	if strings.TrimSpace(rawText) == "" {
		resp.Final = Final{Status: StatusError, Message: "No text to process"}
		markStatus(span, StatusError)
		return resp
	}

	loc := normalize.Location(timezone)
	now := p.clock().In(loc)

	start := time.Now()
	resp.Step2Extraction = p.extractor.Extract(rawText)
	p.metrics.ObserveStageLatency("extract", time.Since(start).Seconds())

	start = time.Now()
	resp.Step3Normalization = p.normalizer.NormalizeAt(resp.Step2Extraction.Entities, timezone, now)
	p.metrics.ObserveStageLatency("normalize", time.Since(start).Seconds())

	resp.Guardrail = guardrail.Check(resp.Step3Normalization.Normalized, resp.Step2Extraction.Entities, timezone, now)
	p.metrics.ObserveGuardrail(string(resp.Guardrail.Status))

	// Advisory side channel: a validator failure never changes the verdict.
	if p.validator != nil {
		validation := p.validate(ctx, rawText, resp.Step2Extraction.Entities)
		resp.AIValidation = &validation
		resp.OverallConfidence = validate.BlendConfidence(ocrConfidence, resp.Step2Extraction.Confidence, validation)
		p.metrics.ObserveBlendedConfidence(resp.OverallConfidence)
	}

	if resp.Guardrail.Status == guardrail.StatusNeedsClarification {
		resp.Final = Final{
			Status:  StatusNeedsClarification,
			Message: resp.Guardrail.Message,
		}
	} else {
		department := resp.Step2Extraction.Entities.Department
		if department == "" {
			department = "General"
		}
		resp.Final = Final{
			Appointment: &Appointment{
				Department: department,
				Date:       resp.Step3Normalization.Normalized.Date,
				Time:       resp.Step3Normalization.Normalized.Time,
				Timezone:   timezone,
			},
			Status:  StatusOK,
			Message: "Appointment scheduled successfully",
		}
	}

	markStatus(span, resp.Final.Status)
	span.SetAttributes(attribute.Float64("pipeline.entities_confidence", resp.Step2Extraction.Confidence))

	p.logger.Info("pipeline completed",
		"status", resp.Final.Status,
		"tz", timezone,
		"entities_confidence", resp.Step2Extraction.Confidence,
	)

	return resp
}

func markStatus(span trace.Span, status string) {
	span.SetAttributes(attribute.String("pipeline.status", status))
}

func (p *Pipeline) validate(ctx context.Context, rawText string, entities extract.Entities) validate.Result {
	ctx, cancel := context.WithTimeout(ctx, p.aiTimeout)
	defer cancel()

	result, err := p.validator.ValidateEntities(ctx, rawText, entities)
	if err != nil {
		p.logger.Warn("ai validation failed, substituting fallback", "error", err)
		return validate.Fallback(err)
	}
	return result
}
