package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nospoilers/core/internal/clock"
)

func TestMemoryLimiter_BlocksAfterMaxRequests(t *testing.T) {
	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	l := NewMemoryLimiter(c)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.Allow(ctx, "phone:+15551234567", 3); err != nil {
			t.Fatalf("request %d: unexpected error %v", i+1, err)
		}
	}

	if err := l.Allow(ctx, "phone:+15551234567", 3); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("4th request: got %v, want ErrRateLimited", err)
	}
}

func TestMemoryLimiter_UnblocksAfterBlockDuration(t *testing.T) {
	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	l := NewMemoryLimiter(c)
	ctx := context.Background()
	key := "phone:+15557654321"

	for i := 0; i < 4; i++ {
		_ = l.Allow(ctx, key, 3)
	}
	if err := l.Allow(ctx, key, 3); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected blocked, got %v", err)
	}

	c.Advance(BlockDuration + time.Second)

	if err := l.Allow(ctx, key, 3); err != nil {
		t.Fatalf("expected key usable again after block expiry, got %v", err)
	}
}

func TestMemoryLimiter_WindowResetsIndependentlyOfBlock(t *testing.T) {
	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	l := NewMemoryLimiter(c)
	ctx := context.Background()
	key := "login:user-1"

	for i := 0; i < 10; i++ {
		if err := l.Allow(ctx, key, 10); err != nil {
			t.Fatalf("request %d within limit: unexpected error %v", i+1, err)
		}
	}

	c.Advance(Window + time.Second)

	if err := l.Allow(ctx, key, 10); err != nil {
		t.Fatalf("expected fresh window to allow request, got %v", err)
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	l := NewMemoryLimiter(c)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = l.Allow(ctx, "key-a", 1)
	}
	if err := l.Allow(ctx, "key-b", 1); err != nil {
		t.Fatalf("unrelated key should be unaffected, got %v", err)
	}
}

func TestMemorySuspicionTracker_RecordAccumulatesAndNeverDecays(t *testing.T) {
	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	tr := NewMemorySuspicionTracker(c)
	ctx := context.Background()

	for i := 1; i <= SuspicionThreshold; i++ {
		score, err := tr.Record(ctx, "phone:+15551234567", "otp_mismatch")
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		if score != i {
			t.Fatalf("Record #%d: got score %d, want %d", i, score, i)
		}
	}

	c.Advance(24 * time.Hour)

	score, err := tr.Score(ctx, "phone:+15551234567")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score != SuspicionThreshold {
		t.Fatalf("expected score to persist unchanged across time, got %d", score)
	}
}

func TestMemorySuspicionTracker_ScoreForUnknownKeyIsZero(t *testing.T) {
	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	tr := NewMemorySuspicionTracker(c)

	score, err := tr.Score(context.Background(), "never-seen")
	if err != nil || score != 0 {
		t.Fatalf("got score=%d err=%v, want 0, nil", score, err)
	}
}
