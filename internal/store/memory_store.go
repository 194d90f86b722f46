package store

import (
	"context"
	"sync"
)

// MemoryStore keeps credentials in process memory.
// Suitable for single-server deployments; everything is lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	emails map[string]string // session ID -> email
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{emails: make(map[string]string)}
}

// GetEmail implements Store
func (s *MemoryStore) GetEmail(_ context.Context, sessionID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email, ok := s.emails[sessionID]
	if !ok {
		return "", ErrNotFound
	}
	return email, nil
}

// SaveEmail implements Store
func (s *MemoryStore) SaveEmail(_ context.Context, sessionID, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.emails[sessionID] = email
	return nil
}

// ClearEmail implements Store
func (s *MemoryStore) ClearEmail(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.emails, sessionID)
	return nil
}

// Close implements Store. Nothing to release.
func (s *MemoryStore) Close() error {
	return nil
}
