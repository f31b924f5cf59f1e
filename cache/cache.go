// Package cache provides the digest deduplication store. Every subscriber
// has at most one entry holding the hash of the last digest delivered to
// them, so an unchanged feed snapshot produces no outbound message.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss indicates the key was not found in the cache.
var ErrMiss = errors.New("cache: miss")

// Cache stores last-sent digest hashes keyed by subscriber ID. The memory
// backend suits single-instance deployments; the Redis backend lets the
// dedup state survive restarts.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
