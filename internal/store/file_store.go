package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

var fileHeader = []string{"session_id", "email"}

// FileStore implements Store on top of a CSV file.
// All data is held in memory and the whole file is rewritten on every change.
type FileStore struct {
	path string

	mu   sync.Mutex
	data map[string]string // session ID -> email
}

// NewFileStore opens (or creates) the CSV file at filePath
//
// CSV Format: session_id,email
// Example: 6f1c...,member@example.com
func NewFileStore(filePath string) (*FileStore, error) {
	if filePath == "" {
		return nil, errors.New("file store path is empty")
	}

	store := &FileStore{
		path: filePath,
		data: make(map[string]string),
	}

	file, err := os.Open(filePath)
	if errors.Is(err, os.ErrNotExist) {
		// First run: start empty, the file is created on first write
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open credential file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // malformed rows are skipped below instead of failing the read

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	for i, record := range records {
		// Skip header row
		if i == 0 && len(record) == 2 && record[0] == fileHeader[0] {
			continue
		}
		if len(record) != 2 || record[0] == "" || record[1] == "" {
			continue
		}
		store.data[record[0]] = record[1]
	}

	return store, nil
}

// GetEmail implements Store
func (s *FileStore) GetEmail(_ context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email, ok := s.data[sessionID]
	if !ok {
		return "", ErrNotFound
	}
	return email, nil
}

// SaveEmail implements Store
func (s *FileStore) SaveEmail(_ context.Context, sessionID, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed := s.data[sessionID]
	s.data[sessionID] = email

	if err := s.flush(); err != nil {
		// Keep memory consistent with what is on disk
		if existed {
			s.data[sessionID] = previous
		} else {
			delete(s.data, sessionID)
		}
		return err
	}
	return nil
}

// ClearEmail implements Store
func (s *FileStore) ClearEmail(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed := s.data[sessionID]
	if !existed {
		return nil
	}
	delete(s.data, sessionID)

	if err := s.flush(); err != nil {
		s.data[sessionID] = previous
		return err
	}
	return nil
}

// Close implements Store. Every change is already on disk.
func (s *FileStore) Close() error {
	return nil
}

// flush writes the data to a temporary file and renames it over the old one.
// Must be called with mutex locked
func (s *FileStore) flush() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temporary credential file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	// Sorted for stable output
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	writer := csv.NewWriter(tmp)
	if err := writer.Write(fileHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	for _, id := range ids {
		if err := writer.Write([]string{id, s.data[id]}); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write credential file: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close credential file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace credential file: %w", err)
	}
	return nil
}
