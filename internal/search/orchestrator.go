// Package search runs the per-session search state machine:
// parse coordinates or resolve the address, look up population, publish.
package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/evyataryagoni/geoflipper/internal/coordinates"
	"github.com/evyataryagoni/geoflipper/internal/geocoder"
	"github.com/evyataryagoni/geoflipper/internal/logger"
	"github.com/evyataryagoni/geoflipper/internal/metrics"
	"github.com/evyataryagoni/geoflipper/internal/models"
	"github.com/evyataryagoni/geoflipper/internal/validation"
)

// State is where the orchestrator is in a search.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateError   State = "error"
)

// SourceCoordinates tags Locations parsed straight from a "lat,lng" input.
const SourceCoordinates = "coordinates"

var (
	// ErrNotRetryable is returned by Retry when the current state is not a retryable error.
	ErrNotRetryable = errors.New("search: nothing to retry")
	// ErrSuperseded is returned when a newer search or a reset started while
	// this one was in flight. Its result was discarded.
	ErrSuperseded = errors.New("search: superseded by a newer search")
)

// AddressResolver resolves free text to a Location.
type AddressResolver interface {
	Resolve(ctx context.Context, address string) (*models.Location, error)
}

// PopulationResolver finds population data for a point. (nil, nil) means no data.
type PopulationResolver interface {
	Resolve(ctx context.Context, lat, lng float64) (*models.PopulationRecord, error)
}

// Snapshot is a consistent view of the orchestrator.
type Snapshot struct {
	Token    uint64
	State    State
	Location *models.Location
	Error    *models.ErrorInfo
}

// Orchestrator owns one session's search state. It is safe for concurrent
// use; overlapping searches are resolved by request token, so only the most
// recently started search may publish.
type Orchestrator struct {
	addresses  AddressResolver
	population PopulationResolver
	validator  *validation.Validator
	log        *logger.Logger
	metrics    *metrics.Metrics

	mu        sync.Mutex
	token     uint64
	state     State
	location  *models.Location
	errInfo   *models.ErrorInfo
	lastInput string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPopulation enables population lookups after an address resolves.
func WithPopulation(p PopulationResolver) Option {
	return func(o *Orchestrator) {
		o.population = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) {
		o.log = l
	}
}

// WithMetrics records search outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// New creates an idle Orchestrator.
func New(addresses AddressResolver, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		addresses: addresses,
		validator: validation.New(),
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = logger.OrDefault(o.log).WithComponent("search")
	return o
}

// Search runs a full search for input and publishes the result.
//
// Invalid input returns a *validation.Error and leaves the state untouched.
// A search overtaken by a newer one returns ErrSuperseded with the current
// snapshot. Otherwise the returned snapshot is Success or Error; address
// failures are reported in the snapshot, not as an error.
func (o *Orchestrator) Search(ctx context.Context, input string) (Snapshot, error) {
	address, err := o.validator.Address(input)
	if err != nil {
		o.count("invalid")
		return o.Snapshot(), err
	}

	token := o.begin(address)
	start := time.Now()

	loc, info := o.run(ctx, address)

	snap, ok := o.publish(token, loc, info)
	if !ok {
		o.log.Debug().Uint64("token", token).Msg("Discarding superseded search result")
		if o.metrics != nil {
			o.metrics.SearchesStale.Inc()
		}
		return snap, ErrSuperseded
	}

	o.count(string(snap.State))
	o.log.Info().
		Uint64("token", token).
		Str("state", string(snap.State)).
		Dur("duration", time.Since(start)).
		Msg("Search completed")
	return snap, nil
}

// Retry repeats the last search if the current state is a retryable error.
func (o *Orchestrator) Retry(ctx context.Context) (Snapshot, error) {
	o.mu.Lock()
	retryable := o.state == StateError && o.errInfo != nil && o.errInfo.Retryable
	input := o.lastInput
	o.mu.Unlock()

	if !retryable {
		return o.Snapshot(), ErrNotRetryable
	}
	return o.Search(ctx, input)
}

// Reset returns to Idle. Searches still in flight will not publish.
func (o *Orchestrator) Reset() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.token++
	o.state = StateIdle
	o.location = nil
	o.errInfo = nil
	return o.snapshotLocked()
}

// Snapshot returns the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	return Snapshot{
		Token:    o.token,
		State:    o.state,
		Location: o.location,
		Error:    o.errInfo,
	}
}

// begin moves to Loading under a fresh token.
func (o *Orchestrator) begin(address string) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.token++
	o.state = StateLoading
	o.location = nil
	o.errInfo = nil
	o.lastInput = address
	return o.token
}

// publish stores the outcome if token is still current.
func (o *Orchestrator) publish(token uint64, loc *models.Location, info *models.ErrorInfo) (Snapshot, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if token != o.token {
		return o.snapshotLocked(), false
	}

	if info != nil {
		o.state = StateError
		o.errInfo = info
	} else {
		o.state = StateSuccess
		o.location = loc
	}
	return o.snapshotLocked(), true
}

// run is the sequential chain. It never touches orchestrator state.
func (o *Orchestrator) run(ctx context.Context, address string) (*models.Location, *models.ErrorInfo) {
	if c, ok := coordinates.Parse(address); ok {
		return &models.Location{
			Latitude:         c.Lat,
			Longitude:        c.Lng,
			RawInput:         address,
			FormattedAddress: coordinates.Format(c, -1),
			Source:           SourceCoordinates,
		}, nil
	}

	loc, err := o.addresses.Resolve(ctx, address)
	if err != nil {
		return nil, errorInfo(err)
	}

	if o.population != nil {
		pop, err := o.population.Resolve(ctx, loc.Latitude, loc.Longitude)
		if err != nil {
			o.log.Debug().Err(err).Msg("Population lookup skipped")
		}
		if pop != nil {
			// loc is not published yet, so filling it in here is safe.
			withPop := *loc
			withPop.Population = pop
			loc = &withPop
		}
	}
	return loc, nil
}

// errorInfo converts an address resolution failure into its UI form.
func errorInfo(err error) *models.ErrorInfo {
	var gerr *geocoder.Error
	if errors.As(err, &gerr) {
		return &models.ErrorInfo{
			Kind:      string(gerr.Kind),
			Message:   gerr.Message,
			Code:      gerr.StatusCode,
			Retryable: gerr.Retryable(),
		}
	}
	return &models.ErrorInfo{
		Kind:      string(geocoder.KindUnknown),
		Message:   "An unexpected error occurred. Please try again.",
		Retryable: true,
	}
}

func (o *Orchestrator) count(outcome string) {
	if o.metrics != nil {
		o.metrics.SearchesTotal.WithLabelValues(outcome).Inc()
	}
}
