// Package assemble builds the outbound request for a tutoring turn: role
// instruction, optional reference material, a bounded window of prior turns,
// and the new utterance. The instruction and the prompt body stay separate
// channels (system vs user) all the way to the gateway.
package assemble

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tutorctl/tutorctl/internal/gateway"
	"github.com/tutorctl/tutorctl/internal/session"
)

// ErrEmptyInput is returned when there is neither an utterance nor an image:
// no request may be built from nothing.
var ErrEmptyInput = errors.New("empty input: utterance or image required")

// Policy holds the context-assembly knobs. The original product hardcoded
// these; here they come from config.
type Policy struct {
	// ReferenceBudget is the maximum number of characters of reference
	// material injected into the instruction channel.
	ReferenceBudget int

	// HistoryWindow is how many recent prior turns accompany a request.
	HistoryWindow int

	// SearchWithReference allows live web search even when reference
	// material is present. Off by default: the reference is treated as the
	// self-contained knowledge source.
	SearchWithReference bool
}

// DefaultPolicy mirrors the config defaults.
func DefaultPolicy() Policy {
	return Policy{ReferenceBudget: 12000, HistoryWindow: 6, SearchWithReference: false}
}

// Input is everything a new turn brings to the assembler.
type Input struct {
	Utterance   string
	Image       string // inline data URL, optional
	Reference   string // long-form grounding material, optional
	Instruction string // explicit override; empty selects the language default
	History     []session.Message
	Language    string // "en" or "ar"
	Search      bool   // live web augmentation requested
}

// Request is the assembled payload for the completion boundary.
type Request struct {
	Instruction string
	Body        string
	Images      []gateway.Image
	Search      bool
}

// Assemble builds the request. It never produces a valid-looking empty
// request: inputs with no utterance and no image are rejected.
func (p Policy) Assemble(in Input) (*Request, error) {
	if strings.TrimSpace(in.Utterance) == "" && in.Image == "" {
		return nil, ErrEmptyInput
	}

	instruction := in.Instruction
	if instruction == "" {
		instruction = DefaultInstruction(in.Language)
	}

	if in.Reference != "" {
		instruction += "\n\n" + referenceBlock(truncateRunes(in.Reference, p.ReferenceBudget))
	}

	var body strings.Builder
	if block := p.historyBlock(in.History); block != "" {
		body.WriteString(block)
		body.WriteString("\n\n")
	}
	body.WriteString(in.Utterance)

	req := &Request{
		Instruction: instruction,
		Body:        body.String(),
		// Reference material suppresses live search unless policy says
		// otherwise: mixing both invites contradictory sourcing.
		Search: in.Search && (in.Reference == "" || p.SearchWithReference),
	}

	if in.Image != "" {
		img, err := gateway.ParseDataURL(in.Image)
		if err != nil {
			return nil, fmt.Errorf("attached image: %w", err)
		}
		req.Images = []gateway.Image{img}
	}

	return req, nil
}

// historyBlock renders the most recent HistoryWindow turns as "speaker: text"
// lines in chronological order.
func (p Policy) historyBlock(history []session.Message) string {
	if len(history) == 0 {
		return ""
	}
	window := history
	if len(window) > p.HistoryWindow {
		window = window[len(window)-p.HistoryWindow:]
	}

	var sb strings.Builder
	sb.WriteString("Previous conversation:\n")
	for _, msg := range window {
		text := msg.Content
		if text == "" && msg.Image != "" {
			text = "[image]"
		}
		fmt.Fprintf(&sb, "%s: %s\n", msg.Role, text)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// referenceBlock wraps the (already truncated) reference material together
// with the anti-denial directive: without it, models regularly claim they
// cannot open attached documents.
func referenceBlock(ref string) string {
	return "The student has attached the following reference material. " +
		"It is fully available to you below. Never claim you cannot see, open, " +
		"or access it; base your answers on it.\n" +
		"--- BEGIN REFERENCE ---\n" +
		ref + "\n" +
		"--- END REFERENCE ---"
}

// truncateRunes cuts s to at most budget characters.
func truncateRunes(s string, budget int) string {
	if budget <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= budget {
		return s
	}
	return string(runes[:budget])
}
