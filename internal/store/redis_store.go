package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store using Redis
// Credentials can be shared by several server instances and expire on their own
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a new Redis store
//
// Parameters:
//   - addr: Redis server address (e.g., "localhost:6379")
//   - password: Redis password (empty string if no password)
//   - db: Redis database number (0-15, default is 0)
//   - ttl: how long a stored credential lives (0 = no expiry)
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test the connection
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
	}, nil
}

// credentialKey builds the Redis key for a session
// Key Format: credential:<session_id>
func credentialKey(sessionID string) string {
	return fmt.Sprintf("credential:%s", sessionID)
}

// GetEmail implements Store
func (s *RedisStore) GetEmail(ctx context.Context, sessionID string) (string, error) {
	val, err := s.client.Get(ctx, credentialKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("Redis query failed: %w", err)
	}
	return val, nil
}

// SaveEmail implements Store
func (s *RedisStore) SaveEmail(ctx context.Context, sessionID, email string) error {
	if err := s.client.Set(ctx, credentialKey(sessionID), email, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store in Redis: %w", err)
	}
	return nil
}

// ClearEmail implements Store
func (s *RedisStore) ClearEmail(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, credentialKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete from Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection
// Should be called when the application shuts down
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
