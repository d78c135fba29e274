package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClaimStore hands out short-lived exclusive claims with SET NX. Claims
// expire on their own, so a crashed holder never blocks a key for longer
// than its TTL.
type ClaimStore struct {
	client *redis.Client
}

// NewClaimStore creates a ClaimStore wrapping the given Redis client.
func NewClaimStore(client *redis.Client) *ClaimStore {
	return &ClaimStore{client: client}
}

// Claim reports whether key was free and is now held by the caller.
func (s *ClaimStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return ok, nil
}

// Release drops key. Releasing a key that already expired is not an error.
func (s *ClaimStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}
