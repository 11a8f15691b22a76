package session

import (
	"os"
	"path/filepath"
)

// Store persists the whole session collection as one snapshot.
// The collection is read and written wholesale: there is a single logical
// writer, so every mutation is a read-modify-write of the full list.
type Store interface {
	// Load returns the persisted collection in order. An absent or corrupt
	// snapshot yields an empty collection, not an error: startup must never
	// fail because of bad local state.
	Load() ([]*Session, error)

	// Save replaces the persisted snapshot with the given collection.
	Save(sessions []*Session) error

	Close() error
}

// dataDir returns the base directory for local state.
func dataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "tutorctl"), nil
}

// DefaultSnapshotPath returns the default JSON snapshot location.
func DefaultSnapshotPath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sessions.json"), nil
}

// DefaultDBPath returns the default SQLite database location.
func DefaultDBPath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sessions.db"), nil
}
