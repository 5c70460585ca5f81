package workout

import "time"

// RateLimiter gates repeated actions per key. Each call states its own
// minimum interval, so one key can serve prompts with different cadences.
type RateLimiter struct {
	last map[string]time.Time
}

// NewRateLimiter returns a limiter with no history; the first call for any
// key is always allowed.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{last: make(map[string]time.Time)}
}

// Allow reports whether more than interval has elapsed since the last
// allowed call for key, and records now if so.
func (r *RateLimiter) Allow(key string, interval time.Duration, now time.Time) bool {
	if last, ok := r.last[key]; ok && now.Sub(last) <= interval {
		return false
	}
	r.last[key] = now
	return true
}

// Reset forgets the history for key.
func (r *RateLimiter) Reset(key string) {
	delete(r.last, key)
}
