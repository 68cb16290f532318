package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "http://example.com/foo"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "http://other.example.org"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "not a url"); err == nil {
		t.Error("expected error for URL without host")
	}
}

func TestLimiter_PerHost(t *testing.T) {
	limiter := NewLimiter(1, 1)
	ctx := context.Background()
	url := "http://example.com"

	if err := limiter.Wait(ctx, url); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(short, url); err == nil {
		t.Error("expected wait to fail (exhausted tokens)")
	}
	if err := limiter.Wait(short, "http://other.com"); err != nil {
		t.Errorf("expected other host to pass, got %v", err)
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 100; i++ {
		if err := limiter.Wait(ctx, "http://example.com"); err != nil {
			t.Fatalf("expected unlimited limiter to pass request %d: %v", i, err)
		}
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	limiter := NewLimiter(100, 10)
	limiter.SetHostRate("slow.com", 0.001, 1)

	if err := limiter.WaitHost(context.Background(), "slow.com"); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.WaitHost(ctx, "slow.com"); err == nil {
		t.Error("expected second wait on slow host to fail before deadline")
	}

	limiter.SetHostRate("local", 0, 1)
	for i := 0; i < 20; i++ {
		if err := limiter.WaitHost(context.Background(), "local"); err != nil {
			t.Fatalf("expected a non-positive override to be unlimited: %v", err)
		}
	}
}
