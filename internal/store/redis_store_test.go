package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	// Start mock Redis server
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	store, err := NewRedisStore(mr.Addr(), "", 0, ttl)
	if err != nil {
		t.Fatalf("failed to connect to Redis: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store, mr
}

// TestRedisStore_ConnectionFailure tests connection errors
func TestRedisStore_ConnectionFailure(t *testing.T) {
	_, err := NewRedisStore("invalid:9999", "", 0, 0)

	if err == nil {
		t.Error("expected connection error, got nil")
	}
}

// TestRedisStore_SaveAndGet tests the round trip and the key format
func TestRedisStore_SaveAndGet(t *testing.T) {
	store, mr := newTestRedisStore(t, 0)
	ctx := context.Background()

	if err := store.SaveEmail(ctx, "session-1", "member@example.com"); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	email, err := store.GetEmail(ctx, "session-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if email != "member@example.com" {
		t.Errorf("expected 'member@example.com', got '%s'", email)
	}

	// Verify data layout directly in Redis
	raw, err := mr.Get("credential:session-1")
	if err != nil {
		t.Fatalf("key not written: %v", err)
	}
	if raw != "member@example.com" {
		t.Errorf("expected raw value 'member@example.com', got '%s'", raw)
	}
}

// TestRedisStore_GetEmail_NotFound tests missing sessions
func TestRedisStore_GetEmail_NotFound(t *testing.T) {
	store, _ := newTestRedisStore(t, 0)

	_, err := store.GetEmail(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestRedisStore_TTL tests that credentials expire
func TestRedisStore_TTL(t *testing.T) {
	store, mr := newTestRedisStore(t, time.Hour)
	ctx := context.Background()

	if err := store.SaveEmail(ctx, "session-1", "member@example.com"); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	if ttl := mr.TTL("credential:session-1"); ttl != time.Hour {
		t.Errorf("expected TTL 1h, got %v", ttl)
	}

	mr.FastForward(2 * time.Hour)

	if _, err := store.GetEmail(ctx, "session-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after expiry, got %v", err)
	}
}

// TestRedisStore_ClearEmail tests deletion
func TestRedisStore_ClearEmail(t *testing.T) {
	store, mr := newTestRedisStore(t, 0)
	ctx := context.Background()

	_ = store.SaveEmail(ctx, "session-1", "member@example.com")

	if err := store.ClearEmail(ctx, "session-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mr.Exists("credential:session-1") {
		t.Error("expected key to be deleted")
	}

	// Clearing again is not an error
	if err := store.ClearEmail(ctx, "session-1"); err != nil {
		t.Errorf("unexpected error clearing missing key: %v", err)
	}
}

// TestRedisStore_ServerDown tests errors after the server goes away
func TestRedisStore_ServerDown(t *testing.T) {
	store, mr := newTestRedisStore(t, 0)
	mr.Close()

	_, err := store.GetEmail(context.Background(), "session-1")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("connection failure must not be reported as ErrNotFound")
	}
}
