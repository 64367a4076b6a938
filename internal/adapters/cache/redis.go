// Package cache provides the short-TTL subdomain availability cache.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "subdomain:taken:"

// RedisAvailabilityCache remembers recently-observed taken subdomains so
// availability checks from name pickers don't hammer the store. It is only
// a hint: Reserve goes straight to the store, and entries carry a short TTL
// because any reservation can lapse.
type RedisAvailabilityCache struct {
	client *redis.Client
}

func NewRedisAvailabilityCache(addr string, password string, db int) *RedisAvailabilityCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisAvailabilityCache{client: rdb}
}

// NewRedisAvailabilityCacheFromClient wraps an existing client, used in tests.
func NewRedisAvailabilityCacheFromClient(client *redis.Client) *RedisAvailabilityCache {
	return &RedisAvailabilityCache{client: client}
}

// IsTaken returns (taken, found). A cache miss or any redis error reads as
// not found, pushing the caller to the store.
func (c *RedisAvailabilityCache) IsTaken(ctx context.Context, subdomain string) (bool, bool) {
	val, err := c.client.Get(ctx, keyPrefix+subdomain).Result()
	if err != nil {
		return false, false
	}
	return val == "1", true
}

func (c *RedisAvailabilityCache) MarkTaken(ctx context.Context, subdomain string, ttl time.Duration) {
	c.client.Set(ctx, keyPrefix+subdomain, "1", ttl)
}

// Forget drops the cached verdict, used when a reservation is released or
// reaped so the name reads as free again without waiting out the TTL.
func (c *RedisAvailabilityCache) Forget(ctx context.Context, subdomain string) {
	c.client.Del(ctx, keyPrefix+subdomain)
}

func (c *RedisAvailabilityCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
