package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quiz-forge/internal/domain"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements domain.Cache on a go-redis client.
type RedisCache struct {
	client redis.UniversalClient
}

var _ domain.Cache = (*RedisCache)(nil)

// NewRedisCache expects a connected client.
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return "", wrap("get", key, err)
	}
	return val, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	return wrap("set", key, r.client.Set(ctx, key, value, expiration).Err())
}

// Delete is a no-op for missing keys.
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return wrap("del", key, r.client.Del(ctx, key).Err())
}

// HGetAll reports ErrCacheMiss for an empty hash, which is how Redis answers for missing keys.
func (r *RedisCache) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	val, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, wrap("hgetall", key, err)
	}
	if len(val) == 0 {
		return nil, domain.ErrCacheMiss
	}
	return val, nil
}

func (r *RedisCache) HSet(ctx context.Context, key string, field string, value string) error {
	return wrap("hset", key, r.client.HSet(ctx, key, field, value).Err())
}

func (r *RedisCache) HDel(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return wrap("hdel", key, r.client.HDel(ctx, key, fields...).Err())
}

func (r *RedisCache) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return wrap("expire", key, r.client.Expire(ctx, key, expiration).Err())
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return wrap("ping", "", r.client.Ping(ctx).Err())
}

// wrap maps redis.Nil to domain.ErrCacheMiss and tags other errors with the command.
func wrap(cmd, key string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return domain.ErrCacheMiss
	case key == "":
		return fmt.Errorf("redis %s: %w", cmd, err)
	default:
		return fmt.Errorf("redis %s %s: %w", cmd, key, err)
	}
}
