package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// RedisCache implements Cache on a Redis server. Keys are namespaced with a
// prefix so Clear only touches this service's entries.
type RedisCache struct {
	client    *redis.Client
	prefix    string
	ttl       time.Duration
	hitCount  atomic.Int64
	missCount atomic.Int64
}

// NewRedisCache connects to Redis and verifies it is reachable
func NewRedisCache(ctx context.Context, opts RedisOptions) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "article-feed:"
	}
	return &RedisCache{client: client, prefix: prefix, ttl: opts.TTL}, nil
}

func (c *RedisCache) key(k string) string { return c.prefix + k }

// Get retrieves a value from Redis
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.missCount.Add(1)
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	c.hitCount.Add(1)
	return data, nil
}

// Set stores a value with the configured TTL
func (c *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, c.key(key), value, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes a key
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Clear removes every key under the prefix
func (c *RedisCache) Clear(ctx context.Context) error {
	keys, err := c.keys(ctx)
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("redis clear: %w", err)
		}
	}
	c.hitCount.Store(0)
	c.missCount.Store(0)
	return nil
}

// GetStats returns hit/miss counters and the number of prefixed keys
func (c *RedisCache) GetStats(ctx context.Context) (*Stats, error) {
	keys, err := c.keys(ctx)
	if err != nil {
		return nil, err
	}

	hits, misses := c.hitCount.Load(), c.missCount.Load()
	stats := &Stats{
		Backend:      "redis",
		TotalEntries: len(keys),
		HitCount:     hits,
		MissCount:    misses,
	}
	if hits+misses > 0 {
		stats.HitRate = float64(hits) / float64(hits+misses)
	}
	return stats, nil
}

// Close closes the client
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return keys, nil
}
