// Package cache keeps extracted article bodies in Redis between runs.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"MomentumScanner/internal/config"
	"MomentumScanner/internal/ports"
)

const defaultKeyPrefix = "momentum:body:"

// RedisBodyCache stores bodies under a hash of the article link.
type RedisBodyCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

var _ ports.BodyCache = (*RedisBodyCache)(nil)

// NewRedisBodyCache connects to cfg.RedisAddr.
func NewRedisBodyCache(cfg config.CacheConfig) *RedisBodyCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisBodyCacheWithClient(client, cfg.TTL, cfg.KeyPrefix)
}

// NewRedisBodyCacheWithClient wraps an existing client.
func NewRedisBodyCacheWithClient(client *redis.Client, ttl time.Duration, prefix string) *RedisBodyCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisBodyCache{client: client, ttl: ttl, prefix: prefix}
}

// Ping checks connectivity.
func (c *RedisBodyCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get returns the cached body for link; ok is false on a miss.
func (c *RedisBodyCache) Get(ctx context.Context, link string) (string, bool, error) {
	body, err := c.client.Get(ctx, c.key(link)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return body, true, nil
}

// Set stores body for link with the configured TTL.
func (c *RedisBodyCache) Set(ctx context.Context, link, body string) error {
	if err := c.client.Set(ctx, c.key(link), body, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *RedisBodyCache) Close() error {
	return c.client.Close()
}

func (c *RedisBodyCache) key(link string) string {
	sum := sha256.Sum256([]byte(link))
	return c.prefix + hex.EncodeToString(sum[:])
}
