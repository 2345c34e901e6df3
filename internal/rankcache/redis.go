package rankcache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend is the primary cache tier, shared across service instances.
// Every operation is bounded by opTimeout so a slow Redis cannot stall
// request handling.
type RedisBackend struct {
	client    *redis.Client
	opTimeout time.Duration
}

// NewRedisBackend wraps an existing Redis client as a cache tier.
func NewRedisBackend(client *redis.Client, opTimeout time.Duration) *RedisBackend {
	if opTimeout <= 0 {
		opTimeout = 200 * time.Millisecond
	}
	return &RedisBackend{client: client, opTimeout: opTimeout}
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	value, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (r *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisBackend) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	// Invalidation walks the keyspace, so it gets a looser bound than
	// single-key operations, but still cannot stall indefinitely.
	ctx, cancel := context.WithTimeout(ctx, 25*r.opTimeout)
	defer cancel()

	removed := 0
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			deleted, err := r.client.Del(ctx, keys...).Result()
			removed += int(deleted)
			if err != nil {
				return removed, err
			}
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

func (r *RedisBackend) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	return r.client.Ping(ctx).Err()
}
