package session

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestNewSessionHasUniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		s := New("t")
		if seen[s.ID] {
			t.Fatalf("duplicate session id %q", s.ID)
		}
		seen[s.ID] = true
	}
}

func TestAppendPreservesOrder(t *testing.T) {
	s := New("t")
	for _, text := range []string{"one", "two", "three"} {
		if err := s.Append(NewUserMessage(text, "")); err != nil {
			t.Fatalf("Append(%q): %v", text, err)
		}
	}

	if len(s.Messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(s.Messages))
	}
	for i, want := range []string{"one", "two", "three"} {
		if s.Messages[i].Content != want {
			t.Errorf("Messages[%d].Content = %q, want %q", i, s.Messages[i].Content, want)
		}
	}
}

func TestAppendRejectsEmptyMessage(t *testing.T) {
	s := New("t")
	if err := s.Append(Message{ID: "x", Role: RoleUser, Timestamp: time.Now()}); err == nil {
		t.Error("Append should reject a message with no content and no image")
	}
	// Empty content is fine when an image is attached.
	if err := s.Append(NewUserMessage("", "data:image/png;base64,aGk=")); err != nil {
		t.Errorf("Append with image only: %v", err)
	}
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Explain gravity", "Explain gravity"},
		{"  padded  ", "padded"},
		{"", ""},
		{"line\nbreaks become spaces", "line breaks become spaces"},
	}
	for _, tt := range tests {
		if got := DeriveTitle(tt.in); got != tt.want {
			t.Errorf("DeriveTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := strings.Repeat("word ", 30)
	got := DeriveTitle(long)
	if n := len([]rune(got)); n > titleMaxLen+1 {
		t.Errorf("DeriveTitle of long input is %d runes, want at most %d", n, titleMaxLen+1)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated title should end with ellipsis, got %q", got)
	}
}

func TestDeriveTitleMultibyte(t *testing.T) {
	in := "a" + strings.Repeat("ع", 60)
	got := DeriveTitle(in)

	if !utf8.ValidString(got) {
		t.Fatalf("DeriveTitle(%q) = %q, not valid UTF-8", in, got)
	}
	if n := len([]rune(got)); n > titleMaxLen+1 {
		t.Errorf("title is %d runes, want at most %d", n, titleMaxLen+1)
	}
	if !strings.HasPrefix(got, "a"+strings.Repeat("ع", 10)) {
		t.Errorf("title should keep whole characters, got %q", got)
	}
}

func TestDefaultTitlePerLanguage(t *testing.T) {
	if got := DefaultTitle("en"); got != "New Chat" {
		t.Errorf("DefaultTitle(en) = %q", got)
	}
	if got := DefaultTitle("ar"); got == "New Chat" || got == "" {
		t.Errorf("DefaultTitle(ar) = %q, want Arabic title", got)
	}
}
