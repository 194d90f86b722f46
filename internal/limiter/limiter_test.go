package limiter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/evyataryagoni/geoflipper/internal/logger"
)

// TestMemoryLimiter_BasicRateLimit tests basic rate limiting functionality
func TestMemoryLimiter_BasicRateLimit(t *testing.T) {
	// Create a limiter with 5 requests per second
	limiter := NewMemoryLimiter(5)
	defer limiter.Close()

	ctx := context.Background()
	client := "session-1"

	// First 5 requests should be allowed
	for i := 0; i < 5; i++ {
		if !limiter.Allow(ctx, client) {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	// 6th request should be blocked
	if limiter.Allow(ctx, client) {
		t.Error("Request 6 should be rate limited")
	}

	// Wait for refill (1.1 seconds to be safe)
	time.Sleep(1100 * time.Millisecond)

	// Should be allowed again after refill
	if !limiter.Allow(ctx, client) {
		t.Error("Request should be allowed after refill")
	}
}

// TestMemoryLimiter_PerClientIsolation tests that different clients have separate limits
func TestMemoryLimiter_PerClientIsolation(t *testing.T) {
	limiter := NewMemoryLimiter(3)
	defer limiter.Close()

	ctx := context.Background()
	client1 := "session-1"
	client2 := "session-2"

	// Use up limit for client 1
	for i := 0; i < 3; i++ {
		if !limiter.Allow(ctx, client1) {
			t.Errorf("Request %d for client 1 should be allowed", i+1)
		}
	}

	// Client 1 should be blocked
	if limiter.Allow(ctx, client1) {
		t.Error("client 1 should be rate limited")
	}

	// Client 2 should still be allowed (separate bucket)
	for i := 0; i < 3; i++ {
		if !limiter.Allow(ctx, client2) {
			t.Errorf("Request %d for client 2 should be allowed", i+1)
		}
	}

	if limiter.Allow(ctx, client2) {
		t.Error("client 2 should be rate limited")
	}
}

// TestMemoryLimiter_Concurrency tests thread safety
func TestMemoryLimiter_Concurrency(t *testing.T) {
	limiter := NewMemoryLimiter(100)
	defer limiter.Close()

	ctx := context.Background()
	allowedCount := 0
	var mu sync.Mutex
	var wg sync.WaitGroup

	// Spawn 200 goroutines (double the limit)
	// Only ~100 should be allowed
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow(ctx, "session-1") {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	// Should allow around 100 requests (with some tolerance for timing)
	if allowedCount < 95 || allowedCount > 105 {
		t.Errorf("Expected ~100 allowed requests, got %d", allowedCount)
	}
}

// TestMemoryLimiter_TokenRefill tests that tokens refill over time
func TestMemoryLimiter_TokenRefill(t *testing.T) {
	limiter := NewMemoryLimiter(10)
	defer limiter.Close()

	ctx := context.Background()
	client := "session-1"

	// Use up all tokens
	for i := 0; i < 10; i++ {
		limiter.Allow(ctx, client)
	}

	if limiter.Allow(ctx, client) {
		t.Error("Should be rate limited after using all tokens")
	}

	// Wait for partial refill (0.5 seconds = 5 tokens)
	time.Sleep(500 * time.Millisecond)

	allowedCount := 0
	for i := 0; i < 10; i++ {
		if limiter.Allow(ctx, client) {
			allowedCount++
		}
	}

	// Should be around 5 (with some tolerance)
	if allowedCount < 4 || allowedCount > 6 {
		t.Errorf("Expected ~5 allowed requests after 0.5s refill, got %d", allowedCount)
	}
}

// TestMemoryLimiter_FractionalRate tests rates below one request per second
func TestMemoryLimiter_FractionalRate(t *testing.T) {
	limiter := NewMemoryLimiter(0.2)
	defer limiter.Close()

	ctx := context.Background()

	if !limiter.Allow(ctx, "session-1") {
		t.Error("first request should be allowed even with a fractional rate")
	}
	if limiter.Allow(ctx, "session-1") {
		t.Error("second request within 5 seconds should be rate limited")
	}
}

// TestMemoryLimiter_Cleanup tests that idle buckets are removed
func TestMemoryLimiter_Cleanup(t *testing.T) {
	limiter := NewMemoryLimiter(10)
	defer limiter.Close()

	ctx := context.Background()
	now := time.Now()
	limiter.now = func() time.Time { return now }

	limiter.Allow(ctx, "idle")

	// Move past the idle TTL and touch another client to trigger cleanup
	now = now.Add(idleTTL + time.Second)
	limiter.Allow(ctx, "active")

	if _, ok := limiter.buckets.Load("idle"); ok {
		t.Error("expected idle bucket to be cleaned up")
	}
	if _, ok := limiter.buckets.Load("active"); !ok {
		t.Error("expected active bucket to be kept")
	}
}

// TestMemoryLimiter_Close tests that Close doesn't error
func TestMemoryLimiter_Close(t *testing.T) {
	limiter := NewMemoryLimiter(10)

	if err := limiter.Close(); err != nil {
		t.Errorf("Close should not error, got %v", err)
	}
}

// TestLimiterInterface_MemoryLimiter tests that MemoryLimiter implements Limiter interface
func TestLimiterInterface_MemoryLimiter(t *testing.T) {
	var _ Limiter = (*MemoryLimiter)(nil)
}

// TestLimiterInterface_RedisLimiter tests that RedisLimiter implements Limiter interface
func TestLimiterInterface_RedisLimiter(t *testing.T) {
	var _ Limiter = (*RedisLimiter)(nil)
}

func newTestRedisLimiter(t *testing.T, rps float64) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	limiter, err := NewRedisLimiter(mr.Addr(), "", 0, rps, logger.NewNop())
	if err != nil {
		t.Fatalf("failed to create Redis limiter: %v", err)
	}
	t.Cleanup(func() { limiter.Close() })

	// Pin the clock so the whole test stays in one window
	now := time.Unix(1_700_000_000, 0)
	limiter.now = func() time.Time { return now }

	return limiter, mr
}

// TestRedisLimiter_BasicRateLimit tests the fixed window counter
func TestRedisLimiter_BasicRateLimit(t *testing.T) {
	limiter, mr := newTestRedisLimiter(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !limiter.Allow(ctx, "session-1") {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}
	if limiter.Allow(ctx, "session-1") {
		t.Error("Request 4 should be rate limited")
	}

	// Another client has its own counter
	if !limiter.Allow(ctx, "session-2") {
		t.Error("a different client should be allowed")
	}

	key := "ratelimit:session-1:1700000000"
	if !mr.Exists(key) {
		t.Fatalf("expected key %s to exist", key)
	}
	if ttl := mr.TTL(key); ttl != 2*time.Second {
		t.Errorf("expected TTL 2s, got %v", ttl)
	}
}

// TestRedisLimiter_FractionalRate tests that 0.2 req/s uses a 5 second window
func TestRedisLimiter_FractionalRate(t *testing.T) {
	limiter, _ := newTestRedisLimiter(t, 0.2)
	ctx := context.Background()

	if limiter.windowSize != 5*time.Second {
		t.Errorf("expected 5s window, got %v", limiter.windowSize)
	}
	if !limiter.Allow(ctx, "session-1") {
		t.Error("first request should be allowed")
	}
	if limiter.Allow(ctx, "session-1") {
		t.Error("second request in the window should be rate limited")
	}
}

// TestRedisLimiter_FailOpen tests that Redis errors do not block traffic
func TestRedisLimiter_FailOpen(t *testing.T) {
	limiter, mr := newTestRedisLimiter(t, 1)
	ctx := context.Background()

	limiter.Allow(ctx, "session-1")
	mr.Close()

	if !limiter.Allow(ctx, "session-1") {
		t.Error("expected request to be allowed when Redis is down")
	}
}

// TestNewRedisLimiter_InvalidRate tests rate validation
func TestNewRedisLimiter_InvalidRate(t *testing.T) {
	if _, err := NewRedisLimiter("localhost:6379", "", 0, 0, nil); err == nil {
		t.Error("expected error for zero rate")
	}
}

// TestNewLimiter_Memory tests factory function for memory limiter
func TestNewLimiter_Memory(t *testing.T) {
	tests := []struct {
		name string
		cfg  LimiterConfig
	}{
		{
			name: "explicit memory type",
			cfg: LimiterConfig{
				Type:              "memory",
				RequestsPerSecond: 10,
			},
		},
		{
			name: "uppercase memory type",
			cfg: LimiterConfig{
				Type:              "MEMORY",
				RequestsPerSecond: 10,
			},
		},
		{
			name: "empty type defaults to memory",
			cfg: LimiterConfig{
				Type:              "",
				RequestsPerSecond: 10,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter, err := NewLimiter(tt.cfg)
			if err != nil {
				t.Errorf("NewLimiter() error = %v", err)
				return
			}
			defer limiter.Close()

			if !limiter.Allow(context.Background(), "session-1") {
				t.Error("First request should be allowed")
			}
		})
	}
}

// TestNewLimiter_Redis tests factory function for redis limiter
func TestNewLimiter_Redis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	limiter, err := NewLimiter(LimiterConfig{Type: "redis", RequestsPerSecond: 5, RedisAddr: mr.Addr()})
	if err != nil {
		t.Fatalf("NewLimiter() error = %v", err)
	}
	defer limiter.Close()

	if _, ok := limiter.(*RedisLimiter); !ok {
		t.Errorf("expected *RedisLimiter, got %T", limiter)
	}
}

// TestNewLimiter_InvalidType tests factory function with invalid type
func TestNewLimiter_InvalidType(t *testing.T) {
	cfg := LimiterConfig{
		Type:              "invalid",
		RequestsPerSecond: 10,
	}

	_, err := NewLimiter(cfg)
	if err == nil {
		t.Error("Expected error for invalid limiter type")
	}
}

// BenchmarkMemoryLimiter_Allow benchmarks the Allow method
func BenchmarkMemoryLimiter_Allow(b *testing.B) {
	limiter := NewMemoryLimiter(1000000) // High limit so we don't hit it
	defer limiter.Close()

	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		limiter.Allow(ctx, "session-1")
	}
}

// BenchmarkMemoryLimiter_AllowParallel benchmarks parallel access
func BenchmarkMemoryLimiter_AllowParallel(b *testing.B) {
	limiter := NewMemoryLimiter(1000000)
	defer limiter.Close()

	ctx := context.Background()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			limiter.Allow(ctx, "session-1")
		}
	})
}
