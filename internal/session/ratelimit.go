package session

import "time"

// RateLimiter enforces a sliding request cap: at most cap requests are
// accepted inside any rolling interval of the window width. Rejected
// requests are not recorded and do not extend the wait.
type RateLimiter struct {
	cap    int
	window time.Duration
	clock  Clock
}

// NewRateLimiter creates a limiter admitting cap requests per width.
func NewRateLimiter(cap int, width time.Duration, clock Clock) *RateLimiter {
	return &RateLimiter{cap: cap, window: width, clock: clock}
}

// Allow reports whether the user may dispatch another request, recording
// the instant on success. The caller must hold the session lock.
func (r *RateLimiter) Allow(s *Session) bool {
	now := r.clock.Now()
	s.rate.prune(now.Add(-r.window))
	if s.rate.count() >= r.cap {
		return false
	}
	s.rate.record(now)
	return true
}
