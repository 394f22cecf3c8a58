package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the Redis connection backing the login limiter.
// Zero timeouts use the defaults below.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	// Timeout bounds dialing and each command.
	Timeout time.Duration
}

const defaultRedisTimeout = 500 * time.Millisecond

func (o RedisOptions) client() *redis.Options {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = defaultRedisTimeout
	}
	return &redis.Options{
		Addr:         o.Addr,
		Password:     o.Password,
		DB:           o.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		MaxRetries:   1,
	}
}

// NewRedisClient connects to Redis and verifies the connection, selected
// database and credentials with a PING.
func NewRedisClient(ctx context.Context, o RedisOptions) (*redis.Client, error) {
	rdb := redis.NewClient(o.client())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis %s db %d: %w", o.Addr, o.DB, err)
	}
	return rdb, nil
}
