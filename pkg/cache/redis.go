package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores entries in redis, for deployments where several
// consumers share one metadata cache.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend creates a redis-backed cache backend.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &RedisBackend{client: client}
}

// Name implements Backend.
func (b *RedisBackend) Name() string {
	return "redis"
}

// Get implements Backend.
func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.client.Get(ctx, b.key(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return data, nil
}

// Set implements Backend. Redis expires the key natively; the manager's
// in-entry expiry is a second check against clock drift.
func (b *RedisBackend) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return b.client.Set(ctx, b.key(key), data, ttl).Err()
}

// Delete implements Backend.
func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, b.key(key)).Err()
}

func (b *RedisBackend) key(key string) string {
	return "bcdata:" + key
}
