// Package cache memoizes similarity scores across validator invocations
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/ppiankov/corroborate/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Key hashes its parts into a namespaced cache key.
// Parts are length-prefixed so ("ab","c") and ("a","bc") differ.
func Key(parts ...string) string {
	h := sha256.New()
	var n [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write([]byte(p))
	}
	return "corroborate:v1:" + hex.EncodeToString(h.Sum(nil))
}

// GetFloat reads a float64 stored by SetFloat
func GetFloat(ctx context.Context, c Cache, key string) (float64, bool) {
	b, ok := c.Get(ctx, key)
	if !ok || len(b) != 8 {
		return 0, false
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), true
}

// SetFloat stores v in its IEEE 754 binary form
func SetFloat(ctx context.Context, c Cache, key string, v float64, ttl time.Duration) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	return c.Set(ctx, key, b[:], ttl)
}

// New builds the configured backend. A disabled cache returns nil.
func New(cfg model.CacheConfig) (Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	switch cfg.Backend {
	case "", "memory":
		return NewMemoryCache(cfg.TTL, 10*time.Minute), nil
	case "disk":
		return NewDiskCache(cfg.Dir, cfg.TTL), nil
	case "layered":
		return NewLayeredCache(NewMemoryCache(cfg.TTL, 10*time.Minute), NewDiskCache(cfg.Dir, cfg.TTL)), nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("%w: cache.redis_addr is required for the redis backend", model.ErrConfiguration)
		}
		return NewRedisCache(cfg.RedisAddr, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("%w: unknown cache backend %q", model.ErrConfiguration, cfg.Backend)
	}
}
