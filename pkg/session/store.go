package session

import (
	"sync"
	"time"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single conversation turn. Immutable once appended.
type Turn struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Store is the history store abstraction the engine depends on.
type Store interface {
	// Turns returns the ordered history for a session. An unknown session
	// id yields an empty history, not an error.
	Turns(sessionID string) ([]Turn, error)

	// Append adds turns to a session, creating it on first reference.
	Append(sessionID string, turns ...Turn) error
}

// MemoryStore is a process-wide in-memory history store keyed by session id.
//
// The mutex serializes map access, not whole requests. Two concurrent
// requests against the same session id each load history, run, and append;
// their turns interleave and the last writer wins.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]Turn),
	}
}

// Turns returns a copy of the session history.
func (s *MemoryStore) Turns(sessionID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[sessionID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

// Append adds turns to the session, creating it if needed.
func (s *MemoryStore) Append(sessionID string, turns ...Turn) error {
	now := time.Now()
	for i := range turns {
		if turns[i].Timestamp.IsZero() {
			turns[i].Timestamp = now
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], turns...)
	return nil
}

// Len returns the number of turns stored for a session.
func (s *MemoryStore) Len(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions[sessionID])
}
