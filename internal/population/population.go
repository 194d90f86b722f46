// Package population finds a population figure for a point on the map.
//
// A Resolver runs a chain of strategies in order until one yields a figure.
// Provider failures of any kind degrade to "no population data" and are
// only logged; callers never see them.
package population

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/evyataryagoni/geoflipper/internal/coordinates"
	"github.com/evyataryagoni/geoflipper/internal/logger"
	"github.com/evyataryagoni/geoflipper/internal/metrics"
	"github.com/evyataryagoni/geoflipper/internal/models"
)

// DefaultTimeout bounds every individual provider call.
const DefaultTimeout = 5 * time.Second

// ErrInvalidCoordinates is returned when Resolve is called with a point
// outside the valid latitude/longitude ranges.
var ErrInvalidCoordinates = errors.New("population: invalid coordinates")

// Place is what the chain knows about the queried point. Earlier strategies
// fill in Name and Country so later ones can search by name.
type Place struct {
	Lat         float64
	Lng         float64
	Name        string
	Country     string
	CountryCode string
}

// Strategy is one way of finding a population figure.
// Lookup returns (nil, nil) when the strategy has nothing to offer.
type Strategy interface {
	Name() string
	Lookup(ctx context.Context, place *Place) (*models.PopulationRecord, error)
}

// Lookup finds population data for a coordinate pair.
type Lookup interface {
	Resolve(ctx context.Context, lat, lng float64) (*models.PopulationRecord, error)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Resolver) {
		r.log = l
	}
}

// WithMetrics records per-strategy outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// Resolver runs strategies in order and returns the first figure found.
type Resolver struct {
	strategies []Strategy
	timeout    time.Duration
	log        *logger.Logger
	metrics    *metrics.Metrics
}

// NewResolver creates a Resolver over the given strategies.
func NewResolver(strategies []Strategy, opts ...Option) *Resolver {
	r := &Resolver{
		strategies: strategies,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = logger.OrDefault(r.log).WithComponent("population")
	return r
}

// Resolve returns population data for lat/lng, or (nil, nil) when no
// strategy found any. Only invalid coordinates produce an error.
func (r *Resolver) Resolve(ctx context.Context, lat, lng float64) (*models.PopulationRecord, error) {
	if !coordinates.Valid(lat, lng) {
		return nil, ErrInvalidCoordinates
	}

	place := &Place{Lat: lat, Lng: lng}
	for _, s := range r.strategies {
		rec := r.run(ctx, s, place)
		if rec != nil {
			return rec, nil
		}
	}

	r.log.Debug().
		Float64("lat", lat).
		Float64("lng", lng).
		Str("place", place.Name).
		Msg("No population data found")
	return nil, nil
}

func (r *Resolver) run(ctx context.Context, s Strategy, place *Place) *models.PopulationRecord {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rec, err := s.Lookup(callCtx, place)
	switch {
	case err != nil:
		r.log.Warn().Err(err).Str("strategy", s.Name()).Msg("Population lookup failed")
		r.record(s.Name(), "error")
		return nil
	case rec == nil:
		r.record(s.Name(), "empty")
		return nil
	}

	r.record(s.Name(), "found")
	return rec
}

func (r *Resolver) record(strategy, result string) {
	if r.metrics != nil {
		r.metrics.PopulationLookupsTotal.WithLabelValues(strategy, result).Inc()
	}
}

// ParseCount parses a population figure as published by providers:
// digit groups may be separated by commas, spaces or underscores.
// It reports false for anything that is not a non-negative integer.
func ParseCount(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	s = strings.NewReplacer(",", "", " ", "", "\u00a0", "", "_", "", "'", "").Replace(s)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
