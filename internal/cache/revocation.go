package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revocationPrefix = "session:revoked:"

// RevocationCache fans out session revocations so request middleware can
// reject tokens of revoked sessions before the access token expires,
// without a database round trip.
type RevocationCache struct {
	client *redis.Client
}

// NewRevocationCache creates a RevocationCache backed by the given client
func NewRevocationCache(client *redis.Client) *RevocationCache {
	return &RevocationCache{client: client}
}

// RevokeSession marks a session as revoked until its natural expiry
func (c *RevocationCache) RevokeSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if err := c.client.Set(ctx, revocationPrefix+sessionID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session revocation: %w", err)
	}
	return nil
}

// IsRevoked reports whether the session id has been revoked. A cache
// error reports as an error, never as "not revoked".
func (c *RevocationCache) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	_, err := c.client.Get(ctx, revocationPrefix+sessionID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check session revocation: %w", err)
	}
	return true, nil
}
