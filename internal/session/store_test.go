package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/cubik-ai/cubik-bot/internal/models"
)

func TestRollingBufferCap(t *testing.T) {
	s := NewStore().Get(1)
	s.Lock()
	defer s.Unlock()

	for i := 0; i < 60; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		s.pushMessage(role, fmt.Sprintf("msg-%d", i), 50)
	}

	turns := s.promptTurns()
	if len(turns) != 50 {
		t.Fatalf("buffer holds %d messages, want 50", len(turns))
	}
	// Oldest ten evicted: buffer starts at msg-10.
	if turns[0].Content != "msg-10" {
		t.Errorf("oldest surviving message = %q, want msg-10", turns[0].Content)
	}
	if turns[49].Content != "msg-59" {
		t.Errorf("newest message = %q, want msg-59", turns[49].Content)
	}
}

func TestRolesExplicitNotPositional(t *testing.T) {
	s := NewStore().Get(1)
	s.Lock()
	defer s.Unlock()

	// A skipped bot reply must not shift later roles.
	s.pushMessage(models.RoleUser, "first", 50)
	s.pushMessage(models.RoleUser, "second", 50)
	s.pushMessage(models.RoleAssistant, "reply", 50)

	turns := s.promptTurns()
	want := []string{models.RoleUser, models.RoleUser, models.RoleAssistant}
	for i, role := range want {
		if turns[i].Role != role {
			t.Errorf("turn %d role = %q, want %q", i, turns[i].Role, role)
		}
	}
}

func TestSessionDefaults(t *testing.T) {
	store := NewStore()
	s := store.Get(42)

	s.Lock()
	enabled := s.aiEnabled
	s.Unlock()
	if !enabled {
		t.Error("AI must default to enabled")
	}

	if store.Get(42) != s {
		t.Error("Get must return the same session for the same user")
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}
}

func TestReferralsDedupeAndSelf(t *testing.T) {
	s := NewStore().Get(10)
	s.Lock()
	defer s.Unlock()

	if !s.addReferral(11) {
		t.Error("first referral should be recorded")
	}
	if s.addReferral(11) {
		t.Error("duplicate referral should be ignored")
	}
	if s.addReferral(10) {
		t.Error("self-referral should be ignored")
	}
	if len(s.referrals) != 1 {
		t.Errorf("referral count = %d, want 1", len(s.referrals))
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := NewStore()
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				store.With(7, func(s *Session) {
					s.pushMessage(models.RoleUser, "x", 50)
				})
			}
		}()
	}
	wg.Wait()

	store.With(7, func(s *Session) {
		if len(s.buffer) != 50 {
			t.Errorf("buffer holds %d messages after concurrent pushes, want 50", len(s.buffer))
		}
	})
}
