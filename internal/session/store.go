package session

import (
	"sync"

	"github.com/cubik-ai/cubik-bot/internal/models"
)

// Session bundles all mutable per-user state: rate and quota windows, the
// volatile rolling buffer, the document slot, the AI-enabled flag and the
// referral list. Every field is guarded by mu; callers of the lock-free
// helpers below must hold it.
type Session struct {
	mu sync.Mutex

	userID    int64
	aiEnabled bool
	rate      window
	quota     window
	buffer    []models.Message
	document  string
	referrals []int64
}

// Lock acquires the session's mutex.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session's mutex.
func (s *Session) Unlock() { s.mu.Unlock() }

// pushMessage appends a role-tagged message to the rolling buffer,
// evicting the oldest entry on overflow. Roles are stored explicitly so a
// skipped bot reply can never desynchronize prompt reconstruction.
func (s *Session) pushMessage(role, content string, cap int) {
	s.buffer = append(s.buffer, models.Message{Role: role, Content: content})
	if len(s.buffer) > cap {
		s.buffer = append(s.buffer[:0], s.buffer[len(s.buffer)-cap:]...)
	}
}

// promptTurns returns a copy of the rolling buffer for prompt assembly.
func (s *Session) promptTurns() []models.Message {
	out := make([]models.Message, len(s.buffer))
	copy(out, s.buffer)
	return out
}

func (s *Session) clearBuffer() {
	s.buffer = nil
}

// addReferral records a referred user, ignoring self-referrals and
// duplicates. Reports whether the entry was added.
func (s *Session) addReferral(invitee int64) bool {
	if invitee == s.userID {
		return false
	}
	for _, id := range s.referrals {
		if id == invitee {
			return false
		}
	}
	s.referrals = append(s.referrals, invitee)
	return true
}

// Store owns every user's session. Entries are created on first access
// with AI enabled.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Get returns the session for a user, creating it if needed. The returned
// session is not locked.
func (st *Store) Get(userID int64) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[userID]
	if !ok {
		s = &Session{userID: userID, aiEnabled: true}
		st.sessions[userID] = s
	}
	return s
}

// Len returns the number of sessions held in memory.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// With runs fn with the user's session locked.
func (st *Store) With(userID int64, fn func(*Session)) {
	s := st.Get(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}
