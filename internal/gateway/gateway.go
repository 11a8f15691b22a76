// Package gateway 定义远程 AI 能力的窄接口。
// 每个能力一个接口（补全、OCR、语音合成、图像生成、搜索），
// 这样任何一个实现都可以单独替换或在测试里用 fake 代替。
// 所有实现都把远程调用当作黑盒：文本进、文本（或二进制）出。
package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

// ── 补全 ─────────────────────────────────────────────────────────────────────

// CompletionRequest 是发往补全边界的统一请求。
// Instruction 和 Body 是两个独立通道（system vs user），永远不会合并。
type CompletionRequest struct {
	Model       string
	Instruction string  // system-level role instruction
	Body        string  // user-level prompt body
	Images      []Image // optional inline attachments
	MaxTokens   int
}

// Completion 是补全边界的响应
type Completion struct {
	Text  string
	Usage Usage
}

// Usage 记录本次调用的 token 消耗
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Completer 发起一次文本补全。实现者负责把统一请求转换为各家 API 的格式。
type Completer interface {
	Complete(ctx context.Context, req *CompletionRequest) (*Completion, error)

	// Name 返回实现标识符，如 "anthropic", "openai", "deepseek"
	Name() string

	// DefaultModel 返回默认模型
	DefaultModel() string
}

// ── 其余能力 ─────────────────────────────────────────────────────────────────

// Transcriber extracts the text visible in an image (OCR).
type Transcriber interface {
	Transcribe(ctx context.Context, img Image) (string, error)
}

// SpeechSynthesizer turns text into playable audio bytes.
type SpeechSynthesizer interface {
	SynthesizeSpeech(ctx context.Context, text, voice string) ([]byte, error)
}

// ImageSynthesizer generates an image from a text prompt.
type ImageSynthesizer interface {
	SynthesizeImage(ctx context.Context, prompt string) ([]byte, error)
}

// Result is one web search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Searcher performs a live web search.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// ── 附件 ─────────────────────────────────────────────────────────────────────

// Image is an inline-encoded attachment.
type Image struct {
	MediaType string // e.g. "image/png"
	Data      []byte
}

// DataURL renders the image as a data: URL for APIs and for session storage.
func (i Image) DataURL() string {
	return "data:" + i.MediaType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Base64 returns the raw base64 payload without the data: prefix.
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// ParseDataURL decodes a data: URL produced by Image.DataURL.
func ParseDataURL(s string) (Image, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return Image{}, fmt.Errorf("not a data URL")
	}
	mediaType, payload, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return Image{}, fmt.Errorf("missing base64 payload")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("decode image payload: %w", err)
	}
	return Image{MediaType: mediaType, Data: data}, nil
}
