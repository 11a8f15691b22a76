package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id         TEXT PRIMARY KEY,
    position   INTEGER NOT NULL,
    title      TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    messages   TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_sessions_position ON sessions(position);
`

// SQLiteStore implements Store backed by a SQLite database. It keeps the same
// wholesale snapshot contract as SnapshotStore: Save replaces the whole
// collection inside one transaction.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load returns all sessions in collection order. Rows whose message payload
// fails to parse are skipped rather than failing the whole load.
func (s *SQLiteStore) Load() ([]*Session, error) {
	rows, err := s.db.Query(`
		SELECT id, title, created_at, updated_at, messages
		FROM sessions ORDER BY position ASC`)
	if err != nil {
		return nil, nil
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var sess Session
		var createdAt, updatedAt, msgJSON string
		if err := rows.Scan(&sess.ID, &sess.Title, &createdAt, &updatedAt, &msgJSON); err != nil {
			continue
		}
		sess.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		sess.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		if err := json.Unmarshal([]byte(msgJSON), &sess.Messages); err != nil {
			continue
		}
		sessions = append(sessions, &sess)
	}
	return sessions, nil
}

// Save replaces the stored collection with the given one.
func (s *SQLiteStore) Save(sessions []*Session) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM sessions"); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}

	for i, sess := range sessions {
		msgJSON, err := json.Marshal(sess.Messages)
		if err != nil {
			return fmt.Errorf("marshal messages: %w", err)
		}
		if string(msgJSON) == "null" {
			msgJSON = []byte("[]")
		}
		_, err = tx.Exec(`
			INSERT INTO sessions (id, position, title, created_at, updated_at, messages)
			VALUES (?, ?, ?, ?, ?, ?)`,
			sess.ID,
			i,
			sess.Title,
			sess.CreatedAt.Format(time.RFC3339Nano),
			sess.UpdatedAt.Format(time.RFC3339Nano),
			string(msgJSON),
		)
		if err != nil {
			return fmt.Errorf("save session %s: %w", sess.ID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
