// Package session keeps the per-user wizard state of multi-step commands.
package session

import (
	"sync"
	"time"

	"github.com/edgard/tgassist/internal/database"
)

// State is a wizard state.
type State int

const (
	// Idle means no wizard is in progress.
	Idle State = iota
	// AwaitingNewPrompt means the next private text replaces a system prompt.
	AwaitingNewPrompt
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingNewPrompt:
		return "awaiting_new_prompt"
	}
	return "unknown"
}

// Session is the wizard state of one user.
type Session struct {
	State      State
	PromptType database.AnalysisType
	ExpiresAt  time.Time
}

// Store is an in-memory table of sessions keyed by user id. Entries expire after the
// configured TTL; expiry is checked on read and by Sweep.
type Store struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[int64]Session
}

// NewStore creates a session table with the given TTL.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[int64]Session),
	}
}

// AwaitPrompt arms the prompt wizard for userID.
func (s *Store) AwaitPrompt(userID int64, promptType database.AnalysisType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = Session{
		State:      AwaitingNewPrompt,
		PromptType: promptType,
		ExpiresAt:  s.now().Add(s.ttl),
	}
}

// Get returns the live session of userID. Expired or missing entries read as Idle.
func (s *Store) Get(userID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return Session{State: Idle}
	}
	if !s.now().Before(sess.ExpiresAt) {
		delete(s.sessions, userID)
		return Session{State: Idle}
	}
	return sess
}

// Take returns the live session of userID and resets it to Idle.
func (s *Store) Take(userID int64) Session {
	sess := s.Get(userID)
	s.Clear(userID)
	return sess
}

// Clear resets userID to Idle.
func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Sweep drops expired sessions and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions, expired ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
