package store

import (
	"context"
	"errors"
	"time"

	"github.com/evyataryagoni/geoflipper/internal/metrics"
)

// InstrumentedStore wraps a Store and records operation counts and latency.
type InstrumentedStore struct {
	next    Store
	backend string
	metrics *metrics.Metrics
}

// Instrument wraps s. backend is the label value used in the store metrics.
// A nil m returns s unchanged.
func Instrument(s Store, backend string, m *metrics.Metrics) Store {
	if m == nil {
		return s
	}
	return &InstrumentedStore{next: s, backend: backend, metrics: m}
}

func (s *InstrumentedStore) observe(operation string, start time.Time, err error) {
	status := "success"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}

	s.metrics.StoreOperationsTotal.WithLabelValues(s.backend, operation, status).Inc()
	s.metrics.StoreOperationDuration.WithLabelValues(s.backend, operation).Observe(time.Since(start).Seconds())
}

// GetEmail implements Store
func (s *InstrumentedStore) GetEmail(ctx context.Context, sessionID string) (string, error) {
	start := time.Now()
	email, err := s.next.GetEmail(ctx, sessionID)
	s.observe("get", start, err)
	return email, err
}

// SaveEmail implements Store
func (s *InstrumentedStore) SaveEmail(ctx context.Context, sessionID, email string) error {
	start := time.Now()
	err := s.next.SaveEmail(ctx, sessionID, email)
	s.observe("save", start, err)
	return err
}

// ClearEmail implements Store
func (s *InstrumentedStore) ClearEmail(ctx context.Context, sessionID string) error {
	start := time.Now()
	err := s.next.ClearEmail(ctx, sessionID)
	s.observe("clear", start, err)
	return err
}

// Close implements Store
func (s *InstrumentedStore) Close() error {
	return s.next.Close()
}
