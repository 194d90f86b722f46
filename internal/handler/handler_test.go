package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/google/uuid"

	"github.com/evyataryagoni/geoflipper/internal/geocoder"
	"github.com/evyataryagoni/geoflipper/internal/logger"
	"github.com/evyataryagoni/geoflipper/internal/middleware"
	"github.com/evyataryagoni/geoflipper/internal/models"
	"github.com/evyataryagoni/geoflipper/internal/search"
	"github.com/evyataryagoni/geoflipper/internal/service"
)

// newRequest builds a request already carrying a session id
func newRequest(method, target, body, sessionID string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return req.WithContext(middleware.WithSessionID(req.Context(), sessionID))
}

// fakeVerifier returns a fixed membership result
type fakeVerifier struct {
	err   error
	calls int
}

func (f *fakeVerifier) Verify(context.Context, string) error {
	f.calls++
	return f.err
}

// fakeAddresses resolves addresses from a map, or returns err
type fakeAddresses struct {
	locations map[string]*models.Location
	err       error
	calls     int
}

func (f *fakeAddresses) Resolve(_ context.Context, address string) (*models.Location, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	loc, ok := f.locations[address]
	if !ok {
		return nil, &geocoder.Error{Kind: geocoder.KindNoResults, Message: "No results"}
	}
	out := *loc
	out.RawInput = address
	return &out, nil
}

// fixedPopulation returns the same record for every point
type fixedPopulation struct {
	record *models.PopulationRecord
}

func (f *fixedPopulation) Resolve(context.Context, float64, float64) (*models.PopulationRecord, error) {
	return f.record, nil
}

func newTestSearchService(addresses search.AddressResolver, pop *models.PopulationRecord) *service.SearchService {
	registry := search.NewRegistry(func() *search.Orchestrator {
		return search.New(addresses,
			search.WithPopulation(&fixedPopulation{record: pop}),
			search.WithLogger(logger.NewNop()),
		)
	}, 0, nil)
	return service.NewSearchService(registry, nil, logger.NewNop())
}
