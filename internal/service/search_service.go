package service

import (
	"context"

	"github.com/evyataryagoni/geoflipper/internal/logger"
	"github.com/evyataryagoni/geoflipper/internal/market"
	"github.com/evyataryagoni/geoflipper/internal/metrics"
	"github.com/evyataryagoni/geoflipper/internal/models"
	"github.com/evyataryagoni/geoflipper/internal/search"
)

// SearchService runs searches on behalf of browser sessions.
// Each session gets its own orchestrator from the registry; the service turns
// orchestrator snapshots into API responses and attaches the market tier.
type SearchService struct {
	registry *search.Registry
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

// NewSearchService creates a new search service
func NewSearchService(registry *search.Registry, m *metrics.Metrics, log *logger.Logger) *SearchService {
	return &SearchService{
		registry: registry,
		metrics:  m,
		logger:   logger.OrDefault(log).WithComponent("SearchService"),
	}
}

// Search runs a search for the session.
// Errors are *validation.Error (bad input, state untouched) or
// search.ErrSuperseded (a newer search won); both still return the current state.
func (s *SearchService) Search(ctx context.Context, sessionID, query string) (models.SearchResponse, error) {
	snap, err := s.registry.Get(sessionID).Search(ctx, query)
	return s.render(snap), err
}

// Retry repeats the session's last search. Returns search.ErrNotRetryable
// unless the session is in a retryable error state.
func (s *SearchService) Retry(ctx context.Context, sessionID string) (models.SearchResponse, error) {
	snap, err := s.registry.Get(sessionID).Retry(ctx)
	return s.render(snap), err
}

// State returns the session's current search state
func (s *SearchService) State(sessionID string) models.SearchResponse {
	if o, ok := s.registry.Peek(sessionID); ok {
		return s.render(o.Snapshot())
	}
	return models.SearchResponse{State: string(search.StateIdle)}
}

// Reset returns the session to idle. In-flight searches will not publish
func (s *SearchService) Reset(sessionID string) models.SearchResponse {
	o, ok := s.registry.Peek(sessionID)
	if !ok {
		return models.SearchResponse{State: string(search.StateIdle)}
	}
	return s.render(o.Reset())
}

// Classify returns the market tier for a population figure
func (s *SearchService) Classify(population int64) models.MarketStatus {
	status := market.Classify(population)
	if s.metrics != nil {
		s.metrics.MarketTiersTotal.WithLabelValues(status.Tier).Inc()
	}
	return status
}

// render converts a snapshot to the response body.
// The market tier is derived here and never stored.
func (s *SearchService) render(snap search.Snapshot) models.SearchResponse {
	resp := models.SearchResponse{
		Token:    snap.Token,
		State:    string(snap.State),
		Location: snap.Location,
		Error:    snap.Error,
	}
	if snap.State == search.StateSuccess && snap.Location != nil && snap.Location.Population != nil {
		status := s.Classify(snap.Location.Population.Value)
		resp.Market = &status
	}
	return resp
}

// Forget drops the session's search state entirely (used on logout)
func (s *SearchService) Forget(sessionID string) {
	s.registry.Remove(sessionID)
}
