package redis

import (
	"context"
	"time"
)

// RateLimiter is a fixed-window counter per key.
type RateLimiter struct {
	client Client
	limit  int
	window time.Duration
}

// NewRateLimiter allows limit hits per window. limit <= 0 allows everything.
func NewRateLimiter(client Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window}
}

func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if r.limit <= 0 {
		return true, nil
	}
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, r.window); err != nil {
			return false, err
		}
	}

	return count <= int64(r.limit), nil
}

func DestinationKey(destination string) string {
	return "rate_limit:send:" + destination
}
