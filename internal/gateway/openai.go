package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const ocrInstruction = "Extract all text visible in this image. " +
	"Return only the extracted text, preserving line breaks and mathematical notation. " +
	"If the image contains no text, return an empty response."

// OpenAIGateway implements Completer, Transcriber, SpeechSynthesizer and
// ImageSynthesizer for OpenAI and OpenAI-compatible APIs (DeepSeek, Kimi,
// Qwen, etc.). Speech and image synthesis are only available on endpoints
// that actually serve those routes.
type OpenAIGateway struct {
	client  openai.Client
	model   string
	name    string
	baseURL string
}

func NewOpenAIGateway(apiKey, baseURL, model string) *OpenAIGateway {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = "gpt-4o-mini"
	}

	name := "openai"
	if baseURL != "" {
		switch {
		case strings.Contains(baseURL, "deepseek"):
			name = "deepseek"
		case strings.Contains(baseURL, "minimax"):
			name = "minimax"
		case strings.Contains(baseURL, "moonshot"):
			name = "kimi"
		case strings.Contains(baseURL, "dashscope"):
			name = "qwen"
		}
	}

	return &OpenAIGateway{
		client:  openai.NewClient(opts...),
		model:   model,
		name:    name,
		baseURL: baseURL,
	}
}

func (g *OpenAIGateway) Name() string         { return g.name }
func (g *OpenAIGateway) DefaultModel() string { return g.model }

func (g *OpenAIGateway) Complete(ctx context.Context, req *CompletionRequest) (*Completion, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: g.buildMessages(req),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s completion: %w", g.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s completion: empty response", g.name)
	}

	return &Completion{
		Text: resp.Choices[0].Message.Content,
		Usage: Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}

// buildMessages renders the two request channels: the instruction goes out as
// a system message, the body (plus any attachments) as a single user message.
func (g *OpenAIGateway) buildMessages(req *CompletionRequest) []openai.ChatCompletionMessageParamUnion {
	var msgs []openai.ChatCompletionMessageParamUnion

	if req.Instruction != "" {
		msgs = append(msgs, openai.SystemMessage(req.Instruction))
	}

	if len(req.Images) == 0 {
		return append(msgs, openai.UserMessage(req.Body))
	}

	parts := []openai.ChatCompletionContentPartUnionParam{}
	if req.Body != "" {
		parts = append(parts, openai.TextContentPart(req.Body))
	}
	for _, img := range req.Images {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: img.DataURL(),
		}))
	}
	return append(msgs, openai.UserMessage(parts))
}

// Transcribe runs OCR through a vision completion with a fixed instruction.
func (g *OpenAIGateway) Transcribe(ctx context.Context, img Image) (string, error) {
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

func (g *OpenAIGateway) SynthesizeSpeech(ctx context.Context, text, voice string) ([]byte, error) {
	if voice == "" {
		voice = "alloy"
	}

	resp, err := g.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model: openai.SpeechModelTTS1,
		Voice: openai.AudioSpeechNewParamsVoice(voice),
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech audio: %w", err)
	}
	return data, nil
}

func (g *OpenAIGateway) SynthesizeImage(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := g.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModelDallE3,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
		N:              openai.Int(1),
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize image: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("synthesize image: empty response")
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode generated image: %w", err)
	}
	return data, nil
}
