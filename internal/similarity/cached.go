package similarity

import (
	"context"
	"time"

	"github.com/ppiankov/corroborate/internal/cache"
)

// Cached memoizes another provider's scores. Errors are not cached.
type Cached struct {
	inner Provider
	cache cache.Cache
	ttl   time.Duration
}

// NewCached wraps p; a nil cache returns p unchanged
func NewCached(p Provider, c cache.Cache, ttl time.Duration) Provider {
	if c == nil {
		return p
	}
	return &Cached{inner: p, cache: c, ttl: ttl}
}

// identifier is implemented by providers whose scores depend on more than
// their name, such as the model or endpoint
type identifier interface {
	CacheID() string
}

func (c *Cached) Name() string {
	return c.inner.Name()
}

// CacheID reports the wrapped provider's identity
func (c *Cached) CacheID() string {
	if id, ok := c.inner.(identifier); ok {
		return id.CacheID()
	}
	return c.inner.Name()
}

func (c *Cached) Similarity(ctx context.Context, a, b string) (float64, error) {
	key := cache.Key("similarity", c.CacheID(), a, b)
	if v, ok := cache.GetFloat(ctx, c.cache, key); ok {
		return v, nil
	}

	v, err := c.inner.Similarity(ctx, a, b)
	if err != nil {
		return 0, err
	}
	// a failed write only costs a recomputation
	_ = cache.SetFloat(ctx, c.cache, key, v, c.ttl)
	return v, nil
}
