package session

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Manager owns the ordered session collection and the active selection.
// All mutation flows through it from a single logical thread of control, and
// every mutation is followed by a best-effort write-through Save: persistence
// failures are logged, never surfaced, so a full disk degrades to an
// in-memory session list instead of a broken UI.
type Manager struct {
	store    Store
	sessions []*Session
	activeID string
	log      zerolog.Logger
}

// NewManager loads the persisted collection and selects the most recently
// updated session, if any.
func NewManager(store Store, log zerolog.Logger) *Manager {
	sessions, err := store.Load()
	if err != nil {
		// Stores fail soft by contract; a real error still must not stop startup.
		log.Warn().Err(err).Msg("session load failed, starting empty")
		sessions = nil
	}

	m := &Manager{store: store, sessions: sessions, log: log}
	if latest := m.mostRecent(""); latest != nil {
		m.activeID = latest.ID
	}
	return m
}

// Sessions returns the collection in order. Callers must not mutate it.
func (m *Manager) Sessions() []*Session { return m.sessions }

// Active returns the currently selected session, or nil when none exists.
func (m *Manager) Active() *Session {
	return m.byID(m.activeID)
}

// ActiveID returns the selected session id, or "" when none exists.
func (m *Manager) ActiveID() string { return m.activeID }

// Create allocates a new session, makes it active, and persists.
func (m *Manager) Create(title string) *Session {
	s := New(title)
	m.sessions = append(m.sessions, s)
	m.activeID = s.ID
	m.persist()
	return s
}

// SetActive selects the session with the given id.
func (m *Manager) SetActive(id string) error {
	if m.byID(id) == nil {
		return fmt.Errorf("session %s not found", id)
	}
	m.activeID = id
	return nil
}

// Delete removes the session with matching id. Deleting an unknown id is a
// no-op. If the active session is deleted, selection moves to the most
// recently updated remaining session, or to none.
func (m *Manager) Delete(id string) {
	idx := -1
	for i, s := range m.sessions {
		if s.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	m.sessions = append(m.sessions[:idx], m.sessions[idx+1:]...)

	if m.activeID == id {
		m.activeID = ""
		if latest := m.mostRecent(""); latest != nil {
			m.activeID = latest.ID
		}
	}
	m.persist()
}

// Append adds a message to the active session and persists. When the session
// still carries its default (or empty) title and a user turn arrives, the
// title is derived from that first utterance.
func (m *Manager) Append(msg Message) error {
	active := m.Active()
	if active == nil {
		return fmt.Errorf("no active session")
	}
	if err := active.Append(msg); err != nil {
		return err
	}

	if msg.Role == RoleUser && isDefaultTitle(active.Title) {
		if t := DeriveTitle(msg.Content); t != "" {
			active.Title = t
		}
	}

	m.persist()
	return nil
}

// ClearActive removes all messages from the active session, keeping the
// session itself and its title.
func (m *Manager) ClearActive() error {
	active := m.Active()
	if active == nil {
		return fmt.Errorf("no active session")
	}
	active.Messages = nil
	m.persist()
	return nil
}

// Rename sets the active session title.
func (m *Manager) Rename(title string) error {
	active := m.Active()
	if active == nil {
		return fmt.Errorf("no active session")
	}
	active.Title = title
	m.persist()
	return nil
}

// Find resolves a session by id prefix. Ambiguous or unknown prefixes return
// an error listing how many sessions matched.
func (m *Manager) Find(idPrefix string) (*Session, error) {
	var matches []*Session
	for _, s := range m.sessions {
		if strings.HasPrefix(s.ID, idPrefix) {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no session matching prefix %q", idPrefix)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("prefix %q matches %d sessions, provide a longer prefix", idPrefix, len(matches))
	}
}

// Save forces a snapshot write, returning the error (used at shutdown).
func (m *Manager) Save() error {
	return m.store.Save(m.sessions)
}

func (m *Manager) persist() {
	if err := m.store.Save(m.sessions); err != nil {
		m.log.Warn().Err(err).Msg("session save failed")
	}
}

func (m *Manager) byID(id string) *Session {
	if id == "" {
		return nil
	}
	for _, s := range m.sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// mostRecent returns the session with the latest UpdatedAt, skipping exceptID.
func (m *Manager) mostRecent(exceptID string) *Session {
	var latest *Session
	for _, s := range m.sessions {
		if s.ID == exceptID {
			continue
		}
		if latest == nil || s.UpdatedAt.After(latest.UpdatedAt) {
			latest = s
		}
	}
	return latest
}

func isDefaultTitle(title string) bool {
	return title == "" || title == DefaultTitle("en") || title == DefaultTitle("ar")
}
