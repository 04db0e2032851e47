package trading

import (
	"sync"
	"time"
)

// RateLimiter tracks a per-symbol trade cooldown. This is a plain
// cooldown, not a token bucket: idle hours earn no burst allowance.
// Failed executions record a trade too, so a flaky venue cannot be
// hammered with rapid retries.
type RateLimiter struct {
	mu       sync.Mutex
	last     map[string]time.Time
	interval time.Duration
}

// NewRateLimiter creates a limiter with the given cooldown interval
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{
		last:     make(map[string]time.Time),
		interval: interval,
	}
}

// Reserve atomically checks the cooldown for a symbol and, when clear,
// records t as its last trade. Check and record share one critical
// section so two concurrent callers can never both pass for the same
// symbol.
func (r *RateLimiter) Reserve(symbol string, t time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	last, ok := r.last[symbol]
	if ok && t.Sub(last) < r.interval {
		return false
	}
	r.last[symbol] = t
	return true
}

// CanTrade reports whether the cooldown for a symbol has elapsed
func (r *RateLimiter) CanTrade(symbol string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	last, ok := r.last[symbol]
	if !ok {
		return true
	}
	return time.Since(last) >= r.interval
}

// RecordTrade updates the last-trade time for a symbol
func (r *RateLimiter) RecordTrade(symbol string, t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last[symbol] = t
}

// LastTrade returns the last recorded trade time for a symbol
func (r *RateLimiter) LastTrade(symbol string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.last[symbol]
	return t, ok
}

// Interval returns the configured cooldown interval
func (r *RateLimiter) Interval() time.Duration {
	return r.interval
}
