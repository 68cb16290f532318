package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/corroborate/internal/model"
	"github.com/redis/go-redis/v9"
)

func TestKey(t *testing.T) {
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("expected length-prefixed keys to differ")
	}
	if Key("x") != Key("x") {
		t.Error("expected deterministic keys")
	}
	if k := Key("x"); len(k) != len("corroborate:v1:")+64 {
		t.Errorf("unexpected key %q", k)
	}
}

func testCache(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()
	key := Key("test", time.Now().String())

	if _, ok := c.Get(ctx, key); ok {
		t.Fatal("expected miss on empty cache")
	}
	if err := SetFloat(ctx, c, key, 0.625, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, ok := GetFloat(ctx, c, key); !ok || v != 0.625 {
		t.Errorf("expected 0.625, got %v (ok=%v)", v, ok)
	}
	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := c.Get(ctx, key); ok {
		t.Error("expected miss after delete")
	}
	if err := c.Delete(ctx, key); err != nil {
		t.Errorf("expected deleting a missing key to succeed, got %v", err)
	}

	_ = c.Set(ctx, key, []byte("v"), time.Minute)
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := c.Get(ctx, key); ok {
		t.Error("expected miss after clear")
	}
}

func TestMemoryCache(t *testing.T) {
	testCache(t, NewMemoryCache(time.Minute, time.Minute))
}

func TestDiskCache(t *testing.T) {
	testCache(t, NewDiskCache(filepath.Join(t.TempDir(), "cache"), time.Minute))
}

func TestLayeredCache(t *testing.T) {
	testCache(t, NewLayeredCache(NewMemoryCache(time.Minute, time.Minute), NewDiskCache(t.TempDir(), time.Minute)))
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)
	_ = c.Set(ctx, "k", []byte("v"), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("expected entry to expire")
	}
}

func TestDiskCache_ExpiredAndCorrupt(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Minute)

	_ = c.Set(ctx, "old", []byte("v"), time.Nanosecond)
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get(ctx, "old"); ok {
		t.Error("expected expired entry to miss")
	}

	if err := os.WriteFile(filepath.Join(dir, "bad.cache"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(ctx, "bad"); ok {
		t.Error("expected corrupt entry to miss")
	}
	if _, err := os.Stat(filepath.Join(dir, "bad.cache")); !os.IsNotExist(err) {
		t.Error("expected corrupt entry to be removed")
	}
}

func TestLayeredCache_PromotesHits(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryCache(time.Minute, time.Minute)
	disk := NewDiskCache(t.TempDir(), time.Minute)
	layered := NewLayeredCache(mem, disk)

	_ = disk.Set(ctx, "k", []byte("v"), time.Minute)
	if v, ok := layered.Get(ctx, "k"); !ok || string(v) != "v" {
		t.Fatalf("expected hit from disk, got %q %v", v, ok)
	}
	if _, ok := mem.Get(ctx, "k"); !ok {
		t.Error("expected disk hit to be promoted to memory")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		cfg     model.CacheConfig
		wantNil bool
		wantErr bool
	}{
		{model.CacheConfig{Enabled: false}, true, false},
		{model.CacheConfig{Enabled: true, Backend: "memory", TTL: time.Minute}, false, false},
		{model.CacheConfig{Enabled: true, Backend: "layered", Dir: t.TempDir()}, false, false},
		{model.CacheConfig{Enabled: true, Backend: "redis"}, true, true},
		{model.CacheConfig{Enabled: true, Backend: "tape"}, true, true},
	}
	for _, tt := range tests {
		c, err := New(tt.cfg)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: unexpected error %v", tt.cfg.Backend, err)
		}
		if err != nil && !errors.Is(err, model.ErrConfiguration) {
			t.Errorf("%s: expected configuration error, got %v", tt.cfg.Backend, err)
		}
		if (c == nil) != tt.wantNil {
			t.Errorf("%s: unexpected cache %v", tt.cfg.Backend, c)
		}
	}
}

// TestRedisCache requires a Redis instance on localhost:6379 and skips otherwise
func TestRedisCache(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available, skipping integration test")
	}

	c := NewRedisCacheFromClient(client, time.Minute)
	defer func() { _ = c.Close() }()
	testCache(t, c)
}
