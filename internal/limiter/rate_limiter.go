package limiter

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is the interface that all rate limiters must implement
// This allows us to easily swap between in-memory and Redis implementations
type Limiter interface {
	// Allow checks if a request from the given client key should be allowed
	// Returns true if allowed, false if rate limited
	Allow(ctx context.Context, key string) bool

	// Close cleans up any resources (Redis connections, goroutines, etc.)
	Close() error
}

// idleTTL is how long an unused client bucket is kept before cleanup
const idleTTL = 5 * time.Minute

// clientBucket is a token bucket for a single client plus the last time it was used
type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanoseconds
}

// MemoryLimiter manages token buckets for multiple clients (per session or IP)
// Thread-safe using sync.Map
// This is an in-memory implementation suitable for single-server deployments
//
// Each bucket is a golang.org/x/time/rate limiter:
//   - tokens are added at requestsPerSecond
//   - the bucket holds at most one second worth of tokens (minimum 1)
//   - each request consumes 1 token, an empty bucket means 429 Too Many Requests
type MemoryLimiter struct {
	buckets sync.Map // map[string]*clientBucket
	limit   rate.Limit
	burst   int

	cleanupMu   sync.Mutex
	lastCleanup time.Time
	now         func() time.Time
}

// NewMemoryLimiter creates a new in-memory rate limiter
//
// Parameters:
//   - requestsPerSecond: allowed requests per second per client (can be fractional, e.g., 0.2)
func NewMemoryLimiter(requestsPerSecond float64) *MemoryLimiter {
	// Burst size equals rate (can burst up to 1 second worth), at least one request
	burst := int(math.Ceil(requestsPerSecond))
	if burst < 1 {
		burst = 1
	}

	return &MemoryLimiter{
		limit:       rate.Limit(requestsPerSecond),
		burst:       burst,
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

// Allow checks if a request from the given client should be allowed
// This is called by the middleware for each request
func (rl *MemoryLimiter) Allow(_ context.Context, key string) bool {
	bucket := rl.getBucket(key)
	bucket.lastSeen.Store(rl.now().UnixNano())

	allowed := bucket.limiter.Allow()

	// Periodically clean up old buckets (prevent memory leak)
	rl.maybeCleanup()

	return allowed
}

// getBucket gets or creates a token bucket for a client
// Thread-safe using sync.Map's LoadOrStore
func (rl *MemoryLimiter) getBucket(key string) *clientBucket {
	if value, ok := rl.buckets.Load(key); ok {
		return value.(*clientBucket)
	}

	bucket := &clientBucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}

	// LoadOrStore handles race conditions
	actual, _ := rl.buckets.LoadOrStore(key, bucket)
	return actual.(*clientBucket)
}

// maybeCleanup removes buckets that haven't been used for idleTTL.
// Runs at most once per idleTTL.
func (rl *MemoryLimiter) maybeCleanup() {
	rl.cleanupMu.Lock()
	defer rl.cleanupMu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastCleanup) < idleTTL {
		return
	}

	threshold := now.Add(-idleTTL).UnixNano()
	rl.buckets.Range(func(key, value any) bool {
		if value.(*clientBucket).lastSeen.Load() < threshold {
			rl.buckets.Delete(key)
		}
		return true // continue iteration
	})

	rl.lastCleanup = now
}

// Close satisfies the Limiter interface; the in-memory limiter holds no resources
func (rl *MemoryLimiter) Close() error {
	return nil
}
