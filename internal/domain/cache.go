package domain

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key or hash does not exist.
var ErrCacheMiss = errors.New("cache: key not found")

// Cache is the shared key/value store behind the source registry. Values hold
// documents; one hash holds the index of live entries.
type Cache interface {
	// Get returns ErrCacheMiss for unknown keys.
	Get(ctx context.Context, key string) (string, error)
	// Set with a zero expiration keeps the value until deleted.
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
	Delete(ctx context.Context, key string) error

	// HGetAll returns ErrCacheMiss when the hash is empty or missing.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, field string, value string) error
	HDel(ctx context.Context, key string, fields ...string) error
	Expire(ctx context.Context, key string, expiration time.Duration) error

	Ping(ctx context.Context) error
}
