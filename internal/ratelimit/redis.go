package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter implements Limiter with Redis INCR+EXPIRE, grounded
// directly on the teacher's internal/auth/ratelimit.go. It is wired in
// by cmd/nospoilers when a production Redis backend is configured; the
// default is MemoryLimiter, which every test in this repo uses.
type RedisLimiter struct {
	redis *redis.Client
}

// NewRedisLimiter creates a Redis-backed Limiter.
func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{redis: client}
}

// Allow implements Limiter using a fixed window keyed by the caller's key.
func (l *RedisLimiter) Allow(ctx context.Context, key string, maxRequests int) error {
	blockKey := "ratelimit:block:" + key
	blocked, err := l.redis.Exists(ctx, blockKey).Result()
	if err != nil {
		return fmt.Errorf("ratelimit: checking block: %w", err)
	}
	if blocked > 0 {
		return ErrRateLimited
	}

	countKey := "ratelimit:count:" + key
	pipe := l.redis.Pipeline()
	incr := pipe.Incr(ctx, countKey)
	pipe.Expire(ctx, countKey, Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ratelimit: recording request: %w", err)
	}

	if incr.Val() > int64(maxRequests) {
		if err := l.redis.Set(ctx, blockKey, 1, BlockDuration).Err(); err != nil {
			return fmt.Errorf("ratelimit: setting block: %w", err)
		}
		return ErrRateLimited
	}

	return nil
}

// RedisSuspicionTracker is a Redis-backed SuspicionTracker using INCR
// with no expiry, matching the "never decayed" rule in spec.md §4.3.
type RedisSuspicionTracker struct {
	redis *redis.Client
}

// NewRedisSuspicionTracker creates a Redis-backed SuspicionTracker.
func NewRedisSuspicionTracker(client *redis.Client) *RedisSuspicionTracker {
	return &RedisSuspicionTracker{redis: client}
}

// Record implements SuspicionTracker.
func (t *RedisSuspicionTracker) Record(ctx context.Context, key, _ string) (int, error) {
	n, err := t.redis.Incr(ctx, "suspicion:"+key).Result()
	if err != nil {
		return 0, fmt.Errorf("ratelimit: recording suspicion: %w", err)
	}
	return int(n), nil
}

// Score implements SuspicionTracker.
func (t *RedisSuspicionTracker) Score(ctx context.Context, key string) (int, error) {
	n, err := t.redis.Get(ctx, "suspicion:"+key).Int()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("ratelimit: reading suspicion: %w", err)
	}
	return n, nil
}
