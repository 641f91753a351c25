package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is an in-process RateLimiter with the same sliding-window
// semantics as the Redis implementation. It backs tests and single-node
// deployments without Redis.
type MemoryLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	grants []time.Time

	// now is swappable for tests
	now func() time.Time
}

// NewMemoryLimiter creates an in-memory sliding-window limiter
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Acquire attempts to take a slot in the current window
func (l *MemoryLimiter) Acquire(_ context.Context) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.grants[:0]
	for _, t := range l.grants {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.grants = kept

	if len(l.grants) < l.limit {
		l.grants = append(l.grants, now)
		return true, 0, nil
	}

	oldest := l.grants[0]
	for _, t := range l.grants {
		if t.Before(oldest) {
			oldest = t
		}
	}
	delay := oldest.Add(l.window).Sub(now)
	if delay < 0 {
		delay = 0
	}
	return false, delay, nil
}
