// Package extract turns local study material (PDF, plain text, images) into
// text or attachments for the tutoring pipeline.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/tutorctl/tutorctl/internal/gateway"
)

const (
	// MaxPDFPages bounds how many pages are read from a document.
	MaxPDFPages = 50

	// MaxFileBytes bounds any attachment read into memory.
	MaxFileBytes = 8 << 20 // 8 MB

	// FailureText is the fixed string substituted when extraction fails.
	// The pipeline treats it like any other reference text, so a broken
	// document degrades to a visible marker instead of an error.
	FailureText = "[Could not extract text from this document]"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
)

// FromFile extracts reference text from a local file. PDF, .txt and .md are
// supported. Oversized or unsupported files return an error the caller turns
// into a localized warning; extraction failures inside a supported file
// return FailureText instead.
func FromFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > MaxFileBytes {
		return "", ErrTooLarge
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return fromPDF(path), nil
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return FailureText, nil
		}
		return strings.TrimSpace(string(data)), nil
	default:
		return "", ErrUnsupportedType
	}
}

// fromPDF reads up to MaxPDFPages pages of plain text. Any parse failure
// yields FailureText.
func fromPDF(path string) (out string) {
	// The pdf library panics on some malformed files.
	defer func() {
		if recover() != nil {
			out = FailureText
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return FailureText
	}
	defer f.Close()

	pages := r.NumPage()
	if pages > MaxPDFPages {
		pages = MaxPDFPages
	}

	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	result := strings.TrimSpace(sb.String())
	if result == "" {
		return FailureText
	}
	return result
}

// imageMediaTypes maps supported attachment extensions to media types.
var imageMediaTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// LoadImage reads a local image into an inline attachment.
func LoadImage(path string) (gateway.Image, error) {
	mediaType, ok := imageMediaTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return gateway.Image{}, ErrUnsupportedType
	}

	info, err := os.Stat(path)
	if err != nil {
		return gateway.Image{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > MaxFileBytes {
		return gateway.Image{}, ErrTooLarge
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return gateway.Image{}, fmt.Errorf("read %s: %w", path, err)
	}
	return gateway.Image{MediaType: mediaType, Data: data}, nil
}
