package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a Redis-backed ephemeral cache. Freshness is enforced
// server-side: entries are stored with a TTL and expire on their own, so
// Get ignores the per-call TTL hint.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps an existing client. A zero ttl stores entries without
// expiry.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached bytes for key if the entry has not expired.
func (c *RedisCache) Get(ctx context.Context, key string, _ *int64) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.redisKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return data, true, nil
}

// Put stores the entry with the cache's TTL.
func (c *RedisCache) Put(ctx context.Context, key string, data []byte) error {
	if err := c.client.Set(ctx, c.redisKey(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) redisKey(key string) string {
	return "dataio:" + key
}
