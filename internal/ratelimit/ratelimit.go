// Package ratelimit implements the sliding fixed-window limiter and
// suspicion tracker described in spec.md §4.3: a 60s window, a 5 minute
// block on the request that exceeds the configured maximum, and a score
// that never decays.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrRateLimited is returned once a key is over its limit or still
// inside a block window.
var ErrRateLimited = errors.New("ratelimit: rate limited")

const (
	// Window is the sliding window duration every bucket resets on.
	Window = 60 * time.Second
	// BlockDuration is how long a key is blocked once it exceeds its limit.
	BlockDuration = 5 * time.Minute
)

// Per-key request limits named in spec.md §4.3.
const (
	LimitOTPSend   = 3
	LimitOTPVerify = 8
	LimitLogin     = 10
)

// Limiter is a keyed sliding-window rate limiter.
type Limiter interface {
	// Allow records one request for key and returns ErrRateLimited if
	// key is blocked or this request pushes it over maxRequests.
	Allow(ctx context.Context, key string, maxRequests int) error
}

// SuspicionTracker accumulates a never-decaying suspicion score per key,
// incremented on every denial or credential mismatch.
type SuspicionTracker interface {
	// Record increments key's score by one and returns the new score.
	Record(ctx context.Context, key, reason string) (score int, err error)
	// Score returns the current score for key without mutating it.
	Score(ctx context.Context, key string) (int, error)
}

// SuspicionThreshold is the score at which callers should emit a
// suspicious=true audit tag (spec.md §4.3).
const SuspicionThreshold = 3
