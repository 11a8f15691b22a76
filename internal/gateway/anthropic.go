package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicGateway implements Completer and Transcriber using the Anthropic
// native API. Speech and image synthesis are not offered by this provider.
type AnthropicGateway struct {
	client anthropic.Client
	model  string
}

func NewAnthropicGateway(apiKey, model string) *AnthropicGateway {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &AnthropicGateway{
		client: anthropic.NewClient(anthropicoption.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (g *AnthropicGateway) Name() string         { return "anthropic" }
func (g *AnthropicGateway) DefaultModel() string { return g.model }

func (g *AnthropicGateway) Complete(ctx context.Context, req *CompletionRequest) (*Completion, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	var blocks []anthropic.ContentBlockParamUnion
	for _, img := range req.Images {
		blocks = append(blocks, anthropic.NewImageBlockBase64(img.MediaType, img.Base64()))
	}
	if req.Body != "" {
		blocks = append(blocks, anthropic.NewTextBlock(req.Body))
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	}
	if req.Instruction != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.Instruction}}
	}

	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic completion: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return &Completion{
		Text: sb.String(),
		Usage: Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}, nil
}

// Transcribe runs OCR through a vision completion with a fixed instruction.
func (g *AnthropicGateway) Transcribe(ctx context.Context, img Image) (string, error) {
	resp, err := g.Complete(ctx, &CompletionRequest{
		Instruction: ocrInstruction,
		Body:        "Extract the text from the attached image.",
		Images:      []Image{img},
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
