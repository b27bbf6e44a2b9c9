package session

import (
	"testing"
	"time"
)

func TestRateLimiterCap(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(5, time.Minute, clock)
	store := NewStore()
	s := store.Get(1)

	s.Lock()
	defer s.Unlock()

	for i := 0; i < 5; i++ {
		if !limiter.Allow(s) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if limiter.Allow(s) {
		t.Error("request 6 should be limited")
	}
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(5, time.Minute, clock)
	s := NewStore().Get(1)

	s.Lock()
	defer s.Unlock()

	// Two requests, then three more 30s later: window full.
	limiter.Allow(s)
	limiter.Allow(s)
	clock.advance(30 * time.Second)
	for i := 0; i < 3; i++ {
		if !limiter.Allow(s) {
			t.Fatalf("request at 30s #%d should be allowed", i+1)
		}
	}
	if limiter.Allow(s) {
		t.Error("window full, request should be limited")
	}

	// 31s later the first two requests fall outside the window.
	clock.advance(31 * time.Second)
	if !limiter.Allow(s) {
		t.Error("expired entries should free a slot")
	}
	if !limiter.Allow(s) {
		t.Error("two entries expired, second slot should be free")
	}
	if limiter.Allow(s) {
		t.Error("only two slots freed")
	}
}

func TestRateLimiterRejectedCallsNotRecorded(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(2, time.Minute, clock)
	s := NewStore().Get(1)

	s.Lock()
	defer s.Unlock()

	limiter.Allow(s)
	limiter.Allow(s)
	for i := 0; i < 10; i++ {
		limiter.Allow(s)
	}
	if got := s.rate.count(); got != 2 {
		t.Errorf("rejected calls must not be recorded, window has %d entries", got)
	}
}

func TestRateLimiterUsersIndependent(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(1, time.Minute, clock)
	store := NewStore()

	a := store.Get(1)
	a.Lock()
	allowedA := limiter.Allow(a)
	blockedA := limiter.Allow(a)
	a.Unlock()

	b := store.Get(2)
	b.Lock()
	allowedB := limiter.Allow(b)
	b.Unlock()

	if !allowedA || blockedA {
		t.Error("user 1 should get exactly one slot")
	}
	if !allowedB {
		t.Error("user 2 must not be affected by user 1's window")
	}
}
