package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter counts login attempts per email in fixed Redis windows.
type LoginLimiter struct {
	rdb    redis.Cmdable
	limit  int
	window time.Duration
}

// NewLoginLimiter allows limit attempts per email per window.
func NewLoginLimiter(rdb redis.Cmdable, limit int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{rdb: rdb, limit: limit, window: window}
}

// Allow records an attempt for email and reports whether it is within the limit.
func (l *LoginLimiter) Allow(ctx context.Context, email string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	key := limiterKey(email)

	n, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("login limiter: %w", err)
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("login limiter expire: %w", err)
		}
	}
	return n <= int64(l.limit), nil
}

// Reset clears the attempt counter for email, after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email string) error {
	return l.rdb.Del(ctx, limiterKey(email)).Err()
}

func limiterKey(email string) string {
	return "login:" + strings.ToLower(strings.TrimSpace(email))
}
