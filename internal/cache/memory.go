package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is a process-local expiring cache
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a new memory cache
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	if defaultTTL <= 0 {
		defaultTTL = gocache.NoExpiration
	}
	return &MemoryCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if val, found := c.cache.Get(key); found {
		b, ok := val.([]byte)
		return b, ok
	}
	return nil, false
}

// Set stores a copy of value; a zero ttl uses the cache default
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	c.cache.Set(key, cp, ttl)
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.cache.Delete(key)
	return nil
}

func (c *MemoryCache) Clear(ctx context.Context) error {
	c.cache.Flush()
	return nil
}

