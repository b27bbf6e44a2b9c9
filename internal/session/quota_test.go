package session

import (
	"testing"
	"time"
)

const week = 7 * 24 * time.Hour

func TestQuotaAllowDoesNotRecord(t *testing.T) {
	clock := newFakeClock()
	quota := NewQuotaTracker(75, week, clock)
	s := NewStore().Get(1)

	s.Lock()
	defer s.Unlock()

	for i := 0; i < 100; i++ {
		if !quota.Allow(s) {
			t.Fatal("Allow must not consume quota by itself")
		}
	}
	if got := quota.Remaining(s); got != 75 {
		t.Errorf("Remaining = %d, want 75", got)
	}
}

func TestQuotaRecordAndRemaining(t *testing.T) {
	clock := newFakeClock()
	quota := NewQuotaTracker(75, week, clock)
	s := NewStore().Get(1)

	s.Lock()
	defer s.Unlock()

	prev := quota.Remaining(s)
	for i := 0; i < 75; i++ {
		if !quota.Allow(s) {
			t.Fatalf("request %d should pass, quota not yet exhausted", i+1)
		}
		quota.Record(s)

		// Absent time passing, remaining never increases.
		got := quota.Remaining(s)
		if got > prev {
			t.Fatalf("Remaining went up from %d to %d without time passing", prev, got)
		}
		prev = got
	}

	if quota.Allow(s) {
		t.Error("request 76 should be rejected")
	}
	if got := quota.Remaining(s); got != 0 {
		t.Errorf("Remaining = %d, want 0", got)
	}
}

func TestQuotaRemainingFlooredAtZero(t *testing.T) {
	clock := newFakeClock()
	quota := NewQuotaTracker(2, week, clock)
	s := NewStore().Get(1)

	s.Lock()
	defer s.Unlock()

	// Force an over-cap window: Record is not gated by Allow.
	quota.Record(s)
	quota.Record(s)
	quota.Record(s)
	if got := quota.Remaining(s); got != 0 {
		t.Errorf("Remaining = %d, want 0", got)
	}
}

func TestQuotaWindowExpiry(t *testing.T) {
	clock := newFakeClock()
	quota := NewQuotaTracker(3, week, clock)
	s := NewStore().Get(1)

	s.Lock()
	defer s.Unlock()

	quota.Record(s)
	clock.advance(3 * 24 * time.Hour)
	quota.Record(s)
	quota.Record(s)
	if quota.Allow(s) {
		t.Fatal("cap reached, request should be rejected")
	}

	// Five more days: only the first entry has expired.
	clock.advance(5 * 24 * time.Hour)
	if !quota.Allow(s) {
		t.Error("expired entry should free a slot")
	}
	if got := quota.Remaining(s); got != 1 {
		t.Errorf("Remaining = %d, want 1", got)
	}
}
