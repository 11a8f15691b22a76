package session

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestSnapshot(t *testing.T) *SnapshotStore {
	t.Helper()
	return NewSnapshotStore(filepath.Join(t.TempDir(), "sessions.json"))
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := newTestSnapshot(t)

	a := New("Algebra")
	if err := a.Append(NewUserMessage("what is x", "")); err != nil {
		t.Fatal(err)
	}
	if err := a.Append(NewAssistantMessage("x is the unknown")); err != nil {
		t.Fatal(err)
	}
	b := New("History")

	if err := store.Save([]*Session{a, b}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("got %d sessions, want 2", len(loaded))
	}
	if loaded[0].ID != a.ID || loaded[1].ID != b.ID {
		t.Errorf("order not preserved: got %s, %s", loaded[0].ID, loaded[1].ID)
	}
	if loaded[0].Title != "Algebra" {
		t.Errorf("Title = %q, want %q", loaded[0].Title, "Algebra")
	}
	if len(loaded[0].Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(loaded[0].Messages))
	}
	if loaded[0].Messages[0].Content != "what is x" {
		t.Errorf("Content = %q, want %q", loaded[0].Messages[0].Content, "what is x")
	}
	if loaded[0].Messages[1].Role != RoleAssistant {
		t.Errorf("Role = %q, want %q", loaded[0].Messages[1].Role, RoleAssistant)
	}
}

func TestSnapshotLoadMissingFile(t *testing.T) {
	store := newTestSnapshot(t)
	sessions, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("got %d sessions, want 0", len(sessions))
	}
}

func TestSnapshotLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewSnapshotStore(path)
	sessions, err := store.Load()
	if err != nil {
		t.Fatalf("corrupt snapshot should fail soft, got error: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("corrupt snapshot should load as empty, got %d sessions", len(sessions))
	}
}

func TestSnapshotLoadUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	if err := os.WriteFile(path, []byte(`{"version":99,"sessions":[{"id":"x"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewSnapshotStore(path)
	sessions, _ := store.Load()
	if len(sessions) != 0 {
		t.Errorf("unknown snapshot version should load as empty, got %d sessions", len(sessions))
	}
}

func TestSnapshotSaveCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "sessions.json")
	store := NewSnapshotStore(path)
	if err := store.Save([]*Session{New("t")}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("snapshot file not written: %v", err)
	}
}
