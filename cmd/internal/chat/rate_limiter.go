package chat

import "time"

// RateLimiter admits at most limit events in any window. It keeps the last limit
// admission times in a ring, so Allow is O(1). It is owned by one read loop and is
// not safe for concurrent use.
type RateLimiter struct {
	window time.Duration
	ring   []time.Time
	next   int
	filled bool
}

// NewRateLimiter constructs a RateLimiter. It returns nil (no limiting) when limit <= 0.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		return nil
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	return &RateLimiter{window: window, ring: make([]time.Time, limit)}
}

// Allow reports whether an event at now is admitted, recording it if so.
// A nil limiter admits everything.
func (r *RateLimiter) Allow(now time.Time) bool {
	if r == nil {
		return true
	}
	// ring[next] is the oldest of the last len(ring) admissions once the ring is full.
	if r.filled && now.Sub(r.ring[r.next]) < r.window {
		return false
	}
	r.ring[r.next] = now
	r.next++
	if r.next == len(r.ring) {
		r.next, r.filled = 0, true
	}
	return true
}
