package store

import (
	"context"
	"sync"
)

// MockStore is a test double for the Store interface
// It allows tests to control behavior and verify interactions
type MockStore struct {
	mu sync.Mutex

	// Data holds the mock data (session ID -> email)
	Data map[string]string

	// Track method calls for verification in tests
	GetCalls    []string
	SaveCalls   []string
	ClearCalls  []string
	CloseCalled bool

	// Control behavior for error scenarios
	GetError   error
	SaveError  error
	ClearError error
	CloseError error
}

// NewMockStore creates an empty mock store
func NewMockStore() *MockStore {
	return &MockStore{Data: map[string]string{}}
}

// GetEmail implements the Store interface
func (m *MockStore) GetEmail(_ context.Context, sessionID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls = append(m.GetCalls, sessionID)
	if m.GetError != nil {
		return "", m.GetError
	}

	email, ok := m.Data[sessionID]
	if !ok {
		return "", ErrNotFound
	}
	return email, nil
}

// SaveEmail implements the Store interface
func (m *MockStore) SaveEmail(_ context.Context, sessionID, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveCalls = append(m.SaveCalls, sessionID)
	if m.SaveError != nil {
		return m.SaveError
	}
	m.Data[sessionID] = email
	return nil
}

// ClearEmail implements the Store interface
func (m *MockStore) ClearEmail(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ClearCalls = append(m.ClearCalls, sessionID)
	if m.ClearError != nil {
		return m.ClearError
	}
	delete(m.Data, sessionID)
	return nil
}

// Close implements the Store interface
// Tracks that close was called and returns configured error if any
func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CloseCalled = true
	return m.CloseError
}
