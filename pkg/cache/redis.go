package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xhad/filingmap/internal/types"
)

// Verify interface compliance
var _ types.PageCache = (*RedisCache)(nil)

const pagePrefix = "filingmap:page:"

// RedisCache keeps fetched page bodies in Redis, expiring after ttl.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Dial connects to addr and checks the server answers.
func Dial(ctx context.Context, addr string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewRedisCache(client, ttl), nil
}

func (c *RedisCache) Get(ctx context.Context, url string) ([]byte, bool, error) {
	body, err := c.client.Get(ctx, key(url)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get page: %w", err)
	}
	return body, true, nil
}

func (c *RedisCache) Set(ctx context.Context, url string, body []byte) error {
	if err := c.client.Set(ctx, key(url), body, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set page: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return pagePrefix + hex.EncodeToString(sum[:])
}
