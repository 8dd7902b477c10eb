package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultCacheTTL bounds how stale a cached fleet analysis may get.
const DefaultCacheTTL = 5 * time.Minute

// ResultCache memoises expensive fleet analytics in Redis. An empty
// redis URL disables caching; every method is safe to call on a
// disabled cache, so callers never need to branch.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResultCache connects to redisURL. An empty URL returns a disabled
// cache rather than an error so deployments without Redis keep working.
func NewResultCache(redisURL string, ttl time.Duration) (*ResultCache, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if redisURL == "" {
		return &ResultCache{ttl: ttl}, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return &ResultCache{client: redis.NewClient(opts), ttl: ttl}, nil
}

// Enabled reports whether a Redis backend is configured.
func (c *ResultCache) Enabled() bool {
	return c.client != nil
}

// GetJSON loads the value at key into dest and reports whether the key
// was present. A disabled cache always misses.
func (c *ResultCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if c.client == nil {
		return false, nil
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("failed to decode cache key %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stores value at key for the cache TTL.
func (c *ResultCache) SetJSON(ctx context.Context, key string, value interface{}) error {
	if c.client == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache key %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

// Invalidate drops the named keys.
func (c *ResultCache) Invalidate(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache keys: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (c *ResultCache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
