package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when a key is not present or has expired.
var ErrMiss = errors.New("cache miss")

// Cache is a byte-oriented cache with per-entry TTL. The server runs with the
// in-memory implementation by default and switches to Redis when REDIS_URL is
// configured.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
