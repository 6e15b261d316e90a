package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter keeps the sliding windows in process. It serves alone when Redis is not
// configured and as the fallback of AdaptiveLimiter otherwise.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter returns an empty in-memory limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow charges one invocation of scope against rule.
func (m *MemoryLimiter) Allow(_ context.Context, scope Scope, rule Rule) (Decision, error) {
	now := m.now()
	if rule.Limit <= 0 {
		return Decision{RetryAfter: rule.Window}, nil
	}

	key := scope.Key()

	m.mu.Lock()
	defer m.mu.Unlock()

	hits := keepRecent(m.windows[key], now.Add(-rule.Window))
	if len(hits) >= rule.Limit {
		m.windows[key] = hits
		return refuse(rule, hits[0], now), nil
	}

	hits = append(hits, now)
	m.windows[key] = hits
	return Decision{Allowed: true, Remaining: rule.Limit - len(hits)}, nil
}

// Cleanup forgets scopes whose last invocation is older than maxAge and returns how many.
func (m *MemoryLimiter) Cleanup(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}

	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, hits := range m.windows {
		if len(hits) == 0 || hits[len(hits)-1].Before(cutoff) {
			delete(m.windows, key)
			removed++
		}
	}
	return removed
}

func keepRecent(hits []time.Time, windowStart time.Time) []time.Time {
	first := 0
	for first < len(hits) && !hits[first].After(windowStart) {
		first++
	}
	if first == 0 {
		return hits
	}

	n := copy(hits, hits[first:])
	return hits[:n]
}
