package session

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message. It never changes after creation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a conversation. Content may be empty only when an
// image attachment is present.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Image     string    `json:"image,omitempty"` // inline data URL
	Timestamp time.Time `json:"timestamp"`
}

// Session is a named, ordered conversation thread.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultTitle returns the placeholder title for a fresh session in the given
// language.
func DefaultTitle(lang string) string {
	if lang == "ar" {
		return "محادثة جديدة"
	}
	return "New Chat"
}

// New creates a session with a fresh time-based unique ID and an empty
// message list. A session with zero messages is valid only until first send.
func New(title string) *Session {
	now := time.Now()
	return &Session{
		ID:        newID(now),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// newID combines a millisecond timestamp with random entropy so IDs sort by
// creation time and stay unique within the same millisecond.
func newID(now time.Time) string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%d-%x", now.UnixMilli(), b)
}

// NewUserMessage builds a user turn. image is an inline data URL or empty.
func NewUserMessage(content, image string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		Image:     image,
		Timestamp: time.Now(),
	}
}

// NewAssistantMessage builds an assistant turn.
func NewAssistantMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// Append adds a message to the end of the session. Pure append: no
// reordering, no deduplication.
func (s *Session) Append(msg Message) error {
	if msg.Content == "" && msg.Image == "" {
		return fmt.Errorf("message needs content or an image attachment")
	}
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = time.Now()
	return nil
}

const titleMaxLen = 40

// DeriveTitle produces a session title from the first user utterance: a
// bounded prefix of the text, cut at a word boundary where possible. The
// bound counts runes so multibyte text is never split mid-character.
func DeriveTitle(content string) string {
	content = strings.TrimSpace(strings.ReplaceAll(content, "\n", " "))
	runes := []rune(content)
	if len(runes) == 0 {
		return ""
	}
	if len(runes) <= titleMaxLen {
		return content
	}
	cut := runes[:titleMaxLen]
	for i := len(cut) - 1; i > titleMaxLen/2; i-- {
		if cut[i] == ' ' {
			cut = cut[:i]
			break
		}
	}
	return string(cut) + "…"
}
