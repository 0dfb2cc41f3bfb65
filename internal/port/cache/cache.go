// Package cache defines the read-cache port used for stats snapshots.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-value cache with per-entry TTL. Get reports whether the
// key was present; a miss is not an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
