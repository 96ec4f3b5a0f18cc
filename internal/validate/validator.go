// Package validate enriches extraction results with an AI second opinion.
// The validator is advisory: the pipeline's guardrail never depends on it
// succeeding, and every backend failure degrades to a fallback record.
package validate

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wolfman30/appointment-scheduler/internal/extract"
)

// Validation statuses reported by the AI backend.
const (
	StatusValid     = "valid"
	StatusInvalid   = "invalid"
	StatusAmbiguous = "ambiguous"
	StatusError     = "error"
)

// Result is the structured validation outcome.
type Result struct {
	Status      string   `json:"status"`
	Confidence  float64  `json:"confidence"`
	Notes       string   `json:"notes,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Fallback    bool     `json:"fallback,omitempty"`
}

// Validator asks an AI backend whether the extracted entities match the
// original text.
type Validator interface {
	ValidateEntities(ctx context.Context, rawText string, entities extract.Entities) (Result, error)
}

// Fallback builds the record substituted when the backend is unreachable or
// returns garbage. The pipeline continues with it unchanged.
func Fallback(err error) Result {
	notes := "AI validation unavailable"
	if err != nil {
		notes = fmt.Sprintf("AI validation unavailable: %v", err)
	}
	return Result{
		Status:     StatusError,
		Confidence: 0.5,
		Notes:      notes,
		Fallback:   true,
	}
}

// BuildPrompt renders the structured validation prompt sent to the backend.
func BuildPrompt(rawText string, entities extract.Entities) string {
	orNotFound := func(s string) string {
		if s == "" {
			return "NOT FOUND"
		}
		return s
	}

	return fmt.Sprintf(`You are an AI assistant validating appointment scheduling data.

Original text: %q

Extracted entities:
- Date phrase: %s
- Time phrase: %s
- Department: %s

Task: Validate if the extracted entities are correct and unambiguous.

Respond in this exact format:
STATUS: [valid/invalid/ambiguous]
CONFIDENCE: [0.0-1.0]
NOTES: [Brief explanation]
SUGGESTIONS: [Any corrections needed]

Consider:
1. Are all three entities present?
2. Is the date/time clear and unambiguous?
3. Is the department a valid medical department?
4. Does the extraction make sense given the original text?
5. Are there any ambiguities that need clarification?
`,
		rawText,
		orNotFound(entities.DatePhrase),
		orNotFound(entities.TimePhrase),
		orNotFound(entities.Department),
	)
}

// ParseResponse reads the STATUS/CONFIDENCE/NOTES/SUGGESTIONS lines out of a
// backend reply. Missing or malformed lines keep their defaults.
func ParseResponse(text string) Result {
	result := Result{
		Status:     StatusValid,
		Confidence: 0.8,
		Notes:      "AI validation completed",
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "STATUS:"):
			result.Status = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "STATUS:")))
		case strings.HasPrefix(line, "CONFIDENCE:"):
			raw := strings.TrimSpace(strings.TrimPrefix(line, "CONFIDENCE:"))
			if conf, err := strconv.ParseFloat(raw, 64); err == nil {
				result.Confidence = math.Round(conf*100) / 100
			}
		case strings.HasPrefix(line, "NOTES:"):
			result.Notes = strings.TrimSpace(strings.TrimPrefix(line, "NOTES:"))
		case strings.HasPrefix(line, "SUGGESTIONS:"):
			suggestion := strings.TrimSpace(strings.TrimPrefix(line, "SUGGESTIONS:"))
			if suggestion != "" && !strings.EqualFold(suggestion, "none") {
				result.Suggestions = []string{suggestion}
			}
		}
	}

	return result
}

// BlendConfidence combines the pipeline stage confidences into one advisory
// score: OCR 0.2, entity extraction 0.4, AI validation 0.4. The AI share is
// down-weighted when the backend judged the extraction invalid or ambiguous.
func BlendConfidence(ocrConfidence, entitiesConfidence float64, validation Result) float64 {
	aiConfidence := validation.Confidence
	switch strings.ToLower(validation.Status) {
	case StatusInvalid:
		aiConfidence *= 0.3
	case StatusAmbiguous:
		aiConfidence *= 0.6
	}

	overall := ocrConfidence*0.2 + entitiesConfidence*0.4 + aiConfidence*0.4
	return math.Round(overall*100) / 100
}
