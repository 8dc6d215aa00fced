package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process cache for single-instance deployments.
type Memory struct {
	c *gocache.Cache
}

var _ Cache = (*Memory)(nil)

// NewMemory creates a memory cache that purges expired entries every cleanup interval.
func NewMemory(cleanup time.Duration) *Memory {
	return &Memory{c: gocache.New(gocache.NoExpiration, cleanup)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	m.c.Set(key, value, ttl)
}

// Close is a no-op; entries are dropped with the process.
func (m *Memory) Close() error {
	return nil
}
