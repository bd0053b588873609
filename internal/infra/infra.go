// Package infra provides shared infrastructure components used across
// the application: rate limiting, retry backoff, and the HTTP helper.
package infra

import (
	"context"
	"sync"
	"time"
)

// --- Rate limiter ---

// RateLimiter is a token bucket sized as "n requests per window". Each
// source client holds one, tuned to that source's practical budget. The
// bucket starts full, so short bursts pass untouched; after that tokens
// drip in at window/n.
type RateLimiter struct {
	mu     sync.Mutex
	tokens int
	burst  int
	drip   time.Duration
	last   time.Time
}

// NewRateLimiter allows n requests per window. Both arguments must be
// positive.
func NewRateLimiter(n int, window time.Duration) *RateLimiter {
	if n <= 0 || window <= 0 {
		panic("ratelimiter: n and window must be positive")
	}
	drip := window / time.Duration(n)
	if drip <= 0 {
		drip = time.Nanosecond
	}
	return &RateLimiter{
		tokens: n,
		burst:  n,
		drip:   drip,
		last:   time.Now(),
	}
}

// Wait blocks until a token is available or the context is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		rl.refill(time.Now())
		if rl.tokens > 0 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
			// Check again after a short sleep.
		}
	}
}

// refill grants the tokens accrued since the last grant. Must be called
// with mu held.
func (rl *RateLimiter) refill(now time.Time) {
	elapsed := now.Sub(rl.last)
	if elapsed < rl.drip {
		return
	}
	grant := int(elapsed / rl.drip)
	rl.tokens += grant
	rl.last = rl.last.Add(time.Duration(grant) * rl.drip)
	if rl.tokens >= rl.burst {
		rl.tokens = rl.burst
		// A full bucket accrues nothing; forget the idle time so the
		// next drain cannot borrow from it.
		rl.last = now
	}
}

// --- Retry backoff ---

// Backoff returns the delay before retry attempt number attempt (0-based:
// attempt 0 is the delay after the first failure). The delay doubles each
// attempt starting from base and is capped at max, so the sequence is
// non-decreasing. Pure function of its arguments.
func Backoff(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
