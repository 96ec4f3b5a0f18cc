// Package ocr provides a client for the image-to-text sidecar service and a
// passthrough for direct text input.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

// ErrNoText is returned when the sidecar decoded the image but found no
// usable text. Callers surface it as a client-facing error.
var ErrNoText = errors.New("ocr: no text could be extracted from the image")

// Text is the extraction output: raw text plus the sidecar's confidence.
type Text struct {
	RawText    string  `json:"raw_text"`
	Confidence float64 `json:"confidence"`
}

type sidecarResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error,omitempty"`
}

// Client is an HTTP client for the OCR sidecar service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates an OCR sidecar client with a bounded request timeout.
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ExtractImage sends image bytes to the sidecar and returns the extracted
// text with its confidence. A decode failure or an empty extraction yields
// ErrNoText.
func (c *Client) ExtractImage(ctx context.Context, image []byte, filename string) (Text, error) {
	if len(image) == 0 {
		return Text{}, ErrNoText
	}
	if filename == "" {
		filename = "upload"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return Text{}, fmt.Errorf("ocr: build request: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return Text{}, fmt.Errorf("ocr: build request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Text{}, fmt.Errorf("ocr: build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", &body)
	if err != nil {
		return Text{}, fmt.Errorf("ocr: build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Text{}, fmt.Errorf("ocr: sidecar request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Text{}, fmt.Errorf("ocr: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Text{}, fmt.Errorf("ocr: sidecar returned status %d", resp.StatusCode)
	}

	var decoded sidecarResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return Text{}, fmt.Errorf("ocr: decode response: %w", err)
	}
	if decoded.Error != "" {
		return Text{}, fmt.Errorf("ocr: sidecar error: %s", decoded.Error)
	}

	raw := strings.TrimSpace(decoded.Text)
	if raw == "" {
		return Text{}, ErrNoText
	}

	c.logger.Info("ocr extracted text", "chars", len(raw), "confidence", decoded.Confidence)

	return Text{RawText: raw, Confidence: clamp01(decoded.Confidence)}, nil
}

// ProcessText wraps direct text input in the same shape as an OCR result,
// with full confidence.
func ProcessText(text string) Text {
	text = strings.TrimSpace(text)
	if text == "" {
		return Text{RawText: "", Confidence: 0}
	}
	return Text{RawText: text, Confidence: 1.0}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
