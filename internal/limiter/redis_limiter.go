package limiter

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evyataryagoni/geoflipper/internal/logger"
)

// windowScript increments the counter for the current window and sets its expiry on first use.
// It executes atomically on the Redis server, no race conditions possible
//
// KEYS[1] = window key, ARGV[1] = TTL in seconds
var windowScript = redis.NewScript(`
	local current = redis.call('INCR', KEYS[1])
	if current == 1 then
		redis.call('EXPIRE', KEYS[1], tonumber(ARGV[1]))
	end
	return current
`)

// RedisLimiter implements distributed rate limiting using Redis
// This is suitable for multi-server deployments where rate limits need to be
// shared across all instances
//
// Algorithm: fixed window counter
//   - Key format: "ratelimit:{client}:{window}"
//   - Keys expire after two windows, so Redis cleans up on its own
type RedisLimiter struct {
	client     *redis.Client
	limit      int64         // requests allowed per window
	windowSize time.Duration // e.g. 1 second, or 5 seconds for 0.2 req/s
	log        *logger.Logger
	now        func() time.Time
}

// NewRedisLimiter creates a new Redis-based rate limiter
//
// Parameters:
//   - addr: Redis server address (e.g., "localhost:6379")
//   - password: Redis password (empty string if no password)
//   - db: Redis database number (0-15, default is 0)
//   - requestsPerSecond: allowed requests per second per client (can be fractional, e.g., 0.2)
//   - log: used to report Redis failures (nil = global logger)
func NewRedisLimiter(addr, password string, db int, requestsPerSecond float64, log *logger.Logger) (*RedisLimiter, error) {
	if requestsPerSecond <= 0 {
		return nil, fmt.Errorf("requests per second must be positive, got %v", requestsPerSecond)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test the connection
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis for rate limiting: %w", err)
	}

	// For fractional rates (e.g., 0.2 = 1 req per 5 sec), use a longer window
	windowSize := time.Second
	if requestsPerSecond < 1.0 {
		windowSize = time.Duration(float64(time.Second) / requestsPerSecond)
	}

	return &RedisLimiter{
		client:     client,
		limit:      int64(math.Ceil(requestsPerSecond * windowSize.Seconds())),
		windowSize: windowSize,
		log:        logger.OrDefault(log).WithComponent("redis-limiter"),
		now:        time.Now,
	}, nil
}

// Allow checks if a request from the given client should be allowed.
// Redis failures fail open so an outage never blocks legitimate traffic.
func (rl *RedisLimiter) Allow(ctx context.Context, key string) bool {
	windowSeconds := int64(rl.windowSize.Seconds())
	window := rl.now().Unix() / windowSeconds // Rounds down to current window
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, window)

	count, err := windowScript.Run(ctx, rl.client, []string{redisKey}, windowSeconds*2).Int64()
	if err != nil {
		rl.log.Warn().Err(err).Str("key", key).Msg("Rate limiter unavailable, allowing request")
		return true
	}

	return count <= rl.limit
}

// Close closes the Redis connection and cleans up resources
func (rl *RedisLimiter) Close() error {
	if rl.client != nil {
		return rl.client.Close()
	}
	return nil
}
