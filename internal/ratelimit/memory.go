package ratelimit

import (
	"context"
	"sync"

	"github.com/nospoilers/core/internal/clock"
)

type bucket struct {
	count             int
	windowStartedAtMs int64
	blockedUntilMs    int64
}

// MemoryLimiter is a mutex+map sliding-window limiter — the default
// implementation, matching spec.md §5's single-process concurrency
// model directly (no network round trip needed to enforce a limit).
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	clock   clock.Clock
}

// NewMemoryLimiter creates a MemoryLimiter using the given clock.
func NewMemoryLimiter(c clock.Clock) *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		clock:   c,
	}
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(_ context.Context, key string, maxRequests int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	nowMs := l.clock.Now().UnixMilli()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{windowStartedAtMs: nowMs}
		l.buckets[key] = b
	}

	if b.blockedUntilMs > nowMs {
		return ErrRateLimited
	}

	if nowMs-b.windowStartedAtMs > Window.Milliseconds() {
		b.count = 0
		b.windowStartedAtMs = nowMs
		b.blockedUntilMs = 0
	}

	b.count++
	if b.count > maxRequests {
		b.blockedUntilMs = nowMs + BlockDuration.Milliseconds()
		return ErrRateLimited
	}

	return nil
}

// MemorySuspicionTracker is a mutex+map SuspicionTracker that never
// decays scores, per spec.md §9's open question (resolved: no decay).
type MemorySuspicionTracker struct {
	mu     sync.Mutex
	scores map[string]int
	clock  clock.Clock
}

// NewMemorySuspicionTracker creates a MemorySuspicionTracker.
func NewMemorySuspicionTracker(c clock.Clock) *MemorySuspicionTracker {
	return &MemorySuspicionTracker{
		scores: make(map[string]int),
		clock:  c,
	}
}

// Record implements SuspicionTracker.
func (t *MemorySuspicionTracker) Record(_ context.Context, key, _ string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scores[key]++
	return t.scores[key], nil
}

// Score implements SuspicionTracker.
func (t *MemorySuspicionTracker) Score(_ context.Context, key string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scores[key], nil
}
