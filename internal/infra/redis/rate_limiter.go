package redis

import (
	"context"
	"fmt"
	"time"

	"webgpt-server/internal/domain/ports/adapter"
)

type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		err = r.client.Expire(ctx, key, window)
		if err != nil {
			return false, err
		}
	}

	if count > int64(limit) {
		return false, nil
	}

	return true, nil
}

// LoginKey buckets login attempts by username.
func LoginKey(username string) string {
	return fmt.Sprintf("rate_limit:login:%s", username)
}

var _ adapter.LoginThrottle = (*LoginThrottle)(nil)

// LoginThrottle binds the generic limiter to the login bucket with a fixed
// budget from config.
type LoginThrottle struct {
	limiter *RateLimiter
	limit   int
	window  time.Duration
}

func NewLoginThrottle(client RedisClient, limit int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{limiter: NewRateLimiter(client), limit: limit, window: window}
}

func (t *LoginThrottle) AllowLogin(ctx context.Context, username string) (bool, error) {
	return t.limiter.Allow(ctx, LoginKey(username), t.limit, t.window)
}
