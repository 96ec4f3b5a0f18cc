package validate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/wolfman30/appointment-scheduler/internal/extract"
)

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockValidator validates extractions through the Bedrock Converse API.
type BedrockValidator struct {
	api     bedrockConverseAPI
	modelID string
}

// NewBedrockValidator creates a Bedrock-backed validator.
func NewBedrockValidator(api bedrockConverseAPI, modelID string) (*BedrockValidator, error) {
	if api == nil {
		return nil, errors.New("validate: bedrock converse client is required")
	}
	if strings.TrimSpace(modelID) == "" {
		return nil, errors.New("validate: bedrock model id is required")
	}
	return &BedrockValidator{api: api, modelID: modelID}, nil
}

// ValidateEntities sends the validation prompt and parses the structured
// reply.
func (v *BedrockValidator) ValidateEntities(ctx context.Context, rawText string, entities extract.Entities) (Result, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(v.modelID),
		Messages: []brtypes.Message{
			{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: BuildPrompt(rawText, entities)},
				},
			},
		},
	}

	output, err := v.api.Converse(ctx, input)
	if err != nil {
		return Result{}, fmt.Errorf("validate: bedrock request failed: %w", err)
	}

	message, ok := output.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok || len(message.Value.Content) == 0 {
		return Result{}, errors.New("validate: bedrock returned empty output")
	}

	var reply strings.Builder
	for _, block := range message.Value.Content {
		if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
			reply.WriteString(text.Value)
		}
	}

	return ParseResponse(reply.String()), nil
}
