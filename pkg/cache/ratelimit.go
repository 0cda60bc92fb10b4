package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter counts requests per key in fixed Redis windows.
type RateLimiter struct {
	client *redis.Client
	prefix string
}

// NewRateLimiter builds a limiter. A nil client allows every request.
func NewRateLimiter(client *redis.Client, prefix string) *RateLimiter {
	if prefix == "" {
		prefix = "rate_limit"
	}
	return &RateLimiter{client: client, prefix: prefix}
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Allow increments the counter of key and reports whether it is still within limit.
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if l == nil || l.client == nil || limit <= 0 {
		return Decision{Allowed: true, Remaining: limit}, nil
	}
	if window <= 0 {
		window = time.Minute
	}

	fullKey := fmt.Sprintf("%s:%s", l.prefix, key)
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, fullKey)
		pipe.ExpireNX(ctx, fullKey, window)
		ttl = pipe.PTTL(ctx, fullKey)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("redis rate limit %s: %w", fullKey, err)
	}

	count := int(incr.Val())
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	decision := Decision{Allowed: count <= limit, Remaining: remaining}
	if !decision.Allowed {
		decision.RetryAfter = ttl.Val()
		if decision.RetryAfter <= 0 {
			decision.RetryAfter = window
		}
	}
	return decision, nil
}
