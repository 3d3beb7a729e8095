// Package cache provides a Redis-backed look-aside cache for read-heavy
// endpoints. Values are stored as JSON under namespaced keys; a miss is
// reported as ErrMiss so callers can fall through to the primary store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// scanBatchSize is the COUNT hint passed to SCAN during prefix invalidation.
const scanBatchSize = 100

// Cache wraps a Redis client with JSON serialization.
type Cache struct {
	client *redis.Client
}

// New creates a cache backed by the given Redis client.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Get loads the value stored under key into dest. Returns ErrMiss when the
// key does not exist.
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return fmt.Errorf("redis get %q: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal cached %q: %w", key, err)
	}

	return nil
}

// Set stores value under key with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal for cache %q: %w", key, err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}

	return nil
}

// Delete removes the given keys. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

// DeleteByPrefix removes every key starting with prefix using SCAN, so
// invalidation never blocks Redis the way KEYS would.
func (c *Cache) DeleteByPrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, prefix+"*", scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("redis scan %q: %w", prefix, err)
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
