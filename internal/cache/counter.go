package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const counterPrefix = "attempts:"

// Counter maintains decaying per-key counters in Redis, used for
// origin-address rate limiting. Increments are read-modify tolerant:
// slight undercounting under extreme concurrency is acceptable because
// the thresholds carry headroom.
type Counter struct {
	client *redis.Client
}

// NewCounter creates a Counter backed by the given client
func NewCounter(client *redis.Client) *Counter {
	return &Counter{client: client}
}

// Incr increments the counter for key, setting the decay window on
// first increment
func (c *Counter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, counterPrefix+key)
	pipe.Expire(ctx, counterPrefix+key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment counter %s: %w", key, err)
	}
	return incr.Val(), nil
}

// Get returns the current count for key, zero when the key has decayed
func (c *Counter) Get(ctx context.Context, key string) (int64, error) {
	n, err := c.client.Get(ctx, counterPrefix+key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read counter %s: %w", key, err)
	}
	return n, nil
}
