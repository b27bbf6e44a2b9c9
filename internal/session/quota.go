package session

import "time"

// QuotaTracker enforces a sliding weekly request cap. Allow is a pure
// check: recording is a separate step performed by the orchestrator only
// after a request is confirmed dispatched, so a message later rejected by
// the per-minute limiter never consumes weekly quota.
type QuotaTracker struct {
	cap    int
	window time.Duration
	clock  Clock
}

// NewQuotaTracker creates a tracker admitting cap requests per width.
func NewQuotaTracker(cap int, width time.Duration, clock Clock) *QuotaTracker {
	return &QuotaTracker{cap: cap, window: width, clock: clock}
}

// Allow reports whether the user is under the weekly cap. The caller must
// hold the session lock.
func (q *QuotaTracker) Allow(s *Session) bool {
	s.quota.prune(q.clock.Now().Add(-q.window))
	return s.quota.count() < q.cap
}

// Record consumes one quota slot. The caller must hold the session lock.
func (q *QuotaTracker) Record(s *Session) {
	s.quota.record(q.clock.Now())
}

// Remaining returns the unused weekly slots, floored at zero. The caller
// must hold the session lock.
func (q *QuotaTracker) Remaining(s *Session) int {
	s.quota.prune(q.clock.Now().Add(-q.window))
	left := q.cap - s.quota.count()
	if left < 0 {
		return 0
	}
	return left
}

// Cap returns the configured weekly cap.
func (q *QuotaTracker) Cap() int {
	return q.cap
}
