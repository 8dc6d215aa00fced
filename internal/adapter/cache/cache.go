// Package cache stores raw upstream responses for a bounded time so repeated
// timetable requests within a provider's TTL reuse the previous payload.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented TTL cache. Lookups never fail: a backend error is
// reported as a miss so a degraded cache only costs an upstream request.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Close() error
}
