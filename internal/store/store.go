package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a session has no stored credential.
var ErrNotFound = errors.New("credential not found")

// Store holds the single credential value (the member's email) per session.
// Allows multiple implementations (memory, file, MySQL, Redis) and easy testing with mocks
type Store interface {
	// GetEmail returns the email stored for the session, or ErrNotFound
	GetEmail(ctx context.Context, sessionID string) (string, error)

	// SaveEmail stores the email for the session, replacing any previous value
	SaveEmail(ctx context.Context, sessionID, email string) error

	// ClearEmail removes the session's credential. Clearing a missing credential is not an error
	ClearEmail(ctx context.Context, sessionID string) error

	// Close cleans up resources (database connections, file handles, etc.)
	Close() error
}

// Config selects and configures a Store implementation.
type Config struct {
	Type string // "memory", "file", "mysql" or "redis"
	Path string // file store path

	MySQLDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration // redis key expiry, 0 = never
}

// New creates a Store based on the configuration (factory pattern)
func New(cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "memory", "":
		return NewMemoryStore(), nil

	case "file":
		s, err := NewFileStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to create file store: %w", err)
		}
		return s, nil

	case "mysql":
		s, err := NewMySQLStore(cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create MySQL store: %w", err)
		}
		return s, nil

	case "redis":
		s, err := NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.TTL)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis store: %w", err)
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown credential store type: %s (supported: 'memory', 'file', 'mysql', 'redis')", cfg.Type)
	}
}
