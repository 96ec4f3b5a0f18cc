package validate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/wolfman30/appointment-scheduler/internal/extract"
)

// GeminiValidator validates extractions with Google's Gemini API.
type GeminiValidator struct {
	client  *genai.Client
	modelID string
}

// NewGeminiValidator creates a Gemini-backed validator.
func NewGeminiValidator(ctx context.Context, apiKey, modelID string) (*GeminiValidator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("validate: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("validate: failed to create gemini client: %w", err)
	}

	return &GeminiValidator{
		client:  client,
		modelID: modelID,
	}, nil
}

// ValidateEntities sends the validation prompt and parses the structured
// reply.
func (v *GeminiValidator) ValidateEntities(ctx context.Context, rawText string, entities extract.Entities) (Result, error) {
	model := v.client.GenerativeModel(v.modelID)

	resp, err := model.GenerateContent(ctx, genai.Text(BuildPrompt(rawText, entities)))
	if err != nil {
		return Result{}, fmt.Errorf("validate: gemini request failed: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return Result{}, errors.New("validate: gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return Result{}, errors.New("validate: gemini returned empty content")
	}

	var reply strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			reply.WriteString(string(text))
		}
	}

	return ParseResponse(reply.String()), nil
}

// Close releases the underlying API client.
func (v *GeminiValidator) Close() error {
	return v.client.Close()
}
