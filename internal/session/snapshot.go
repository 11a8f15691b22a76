package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// snapshotVersion guards the on-disk schema. Unknown versions are treated the
// same as a corrupt snapshot: start empty rather than guess.
const snapshotVersion = 1

// snapshot is the serialized form of the session collection.
type snapshot struct {
	Version  int        `json:"version"`
	Sessions []*Session `json:"sessions"`
}

// SnapshotStore persists the collection as a single JSON file.
type SnapshotStore struct {
	path string
}

// NewSnapshotStore creates a store writing to path.
func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

// Load reads the snapshot. A missing file or one that fails to parse yields
// an empty collection.
func (s *SnapshotStore) Load() ([]*Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, nil
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, nil
	}
	if snap.Version != snapshotVersion {
		return nil, nil
	}
	return snap.Sessions, nil
}

// Save serializes the full collection and replaces the snapshot atomically
// (temp file + rename), so a crash mid-write cannot corrupt the previous
// snapshot.
func (s *SnapshotStore) Save(sessions []*Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	data, err := json.MarshalIndent(snapshot{Version: snapshotVersion, Sessions: sessions}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) Close() error { return nil }
