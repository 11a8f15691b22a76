package session

import (
	"path/filepath"
	"testing"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteRoundTrip(t *testing.T) {
	store := newTestSQLite(t)

	a := New("Physics")
	if err := a.Append(NewUserMessage("hello", "")); err != nil {
		t.Fatal(err)
	}
	b := New("Chemistry")

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
	if len(loaded[0].Messages) != 1 || loaded[0].Messages[0].Content != "hello" {
		t.Errorf("messages not preserved: %+v", loaded[0].Messages)
	}
}

func TestSQLiteSaveReplacesCollection(t *testing.T) {
	store := newTestSQLite(t)

	a := New("a")
	b := New("b")
	if err := store.Save([]*Session{a, b}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Saving a smaller collection must drop the removed session.
	if err := store.Save([]*Session{b}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("got %d sessions, want 1", len(loaded))
	}
	if loaded[0].ID != b.ID {
		t.Errorf("remaining session = %s, want %s", loaded[0].ID, b.ID)
	}
}

func TestSQLiteLoadEmptyDatabase(t *testing.T) {
	store := newTestSQLite(t)
	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("got %d sessions, want 0", len(loaded))
	}
}
