// Package redis holds the Redis-backed creation claims used to narrow the
// duplicate-course race.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultDialTimeout = 5 * time.Second
	// Claims sit on the create path, so a slow Redis must fail fast and let
	// the store's unique index decide.
	defaultReadTimeout = time.Second
)

// Config captures the settings for the claim store connection.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Timeout bounds the dial and the startup ping.
	Timeout time.Duration
	// ReadTimeout bounds every command, including SET NX claims.
	ReadTimeout time.Duration
}

// Connect initialises a Redis client and validates connectivity with a ping.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	dial := cfg.Timeout
	if dial <= 0 {
		dial = defaultDialTimeout
	}
	read := cfg.ReadTimeout
	if read <= 0 {
		read = defaultReadTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dial,
		ReadTimeout:  read,
		WriteTimeout: read,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dial)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	return client, nil
}
