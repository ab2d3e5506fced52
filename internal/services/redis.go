package services

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache wraps the redis client for the few primitives this service
// needs: single-use nonces and per-order advisory locks.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

// TakeOnce atomically consumes a key, returning true when it existed.
func (c *RedisCache) TakeOnce(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Del(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, key).Result()
	return n > 0, err
}

// SetNX sets a value only if key doesn't exist (used for locks)
func (c *RedisCache) SetNX(ctx context.Context, key, value string, expiration time.Duration) (bool, error) {
	return c.client.SetNX(ctx, key, value, expiration).Result()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Locker grants short-lived per-key advisory locks.
type Locker interface {
	// TryLock attempts the lock; when acquired it returns an unlock func and
	// true. A held lock means another trigger is reconciling the same order.
	TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error)
}

// RedisLocker implements Locker with SetNX.
type RedisLocker struct {
	cache *RedisCache
}

func NewRedisLocker(cache *RedisCache) *RedisLocker {
	return &RedisLocker{cache: cache}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	ok, err := l.cache.SetNX(ctx, key, "1", ttl)
	if err != nil || !ok {
		return nil, false, err
	}
	unlock := func() {
		_ = l.cache.Delete(context.Background(), key)
	}
	return unlock, true, nil
}
