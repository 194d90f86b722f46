package handler

import (
	"errors"
	"net/http"

	"github.com/evyataryagoni/geoflipper/internal/logger"
	"github.com/evyataryagoni/geoflipper/internal/middleware"
	"github.com/evyataryagoni/geoflipper/internal/models"
	"github.com/evyataryagoni/geoflipper/internal/population"
	"github.com/evyataryagoni/geoflipper/internal/search"
	"github.com/evyataryagoni/geoflipper/internal/service"
	"github.com/evyataryagoni/geoflipper/internal/validation"
)

// SearchHandler handles HTTP requests for location searches
// This is the handler layer - it deals with HTTP concerns only
//
// A completed search always answers 200 with the session's snapshot, even
// when the address could not be resolved; the error state is in the body.
type SearchHandler struct {
	service *service.SearchService
	logger  *logger.Logger
}

// NewSearchHandler creates a new search handler with the given service
func NewSearchHandler(svc *service.SearchService, log *logger.Logger) *SearchHandler {
	return &SearchHandler{
		service: svc,
		logger:  logger.OrDefault(log).WithComponent("SearchHandler"),
	}
}

// Search handles GET /v1/search?q=<address or "lat, lng">
//
// Responses:
//   - 200 snapshot {token, state, location?, market?, error?}
//   - 400 input rejected before any lookup
//   - 409 a newer search for the same session finished first
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Search(r.Context(), middleware.SessionID(r.Context()), r.URL.Query().Get("q"))
	h.respondSearch(w, resp, err)
}

// Retry handles POST /v1/search/retry
// 409 when the session is not in a retryable error state
func (h *SearchHandler) Retry(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Retry(r.Context(), middleware.SessionID(r.Context()))
	h.respondSearch(w, resp, err)
}

// State handles GET /v1/search/state
func (h *SearchHandler) State(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.service.State(middleware.SessionID(r.Context())))
}

// Reset handles DELETE /v1/search
func (h *SearchHandler) Reset(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.service.Reset(middleware.SessionID(r.Context())))
}

// Market handles GET /v1/market?population=<count>
// Thousands separators are accepted ("12,345").
func (h *SearchHandler) Market(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("population")
	if raw == "" {
		respondError(w, http.StatusBadRequest, "Missing 'population' query parameter")
		return
	}

	count, ok := population.ParseCount(raw)
	if !ok {
		respondError(w, http.StatusBadRequest, "Population must be a non-negative whole number")
		return
	}

	respondJSON(w, http.StatusOK, h.service.Classify(count))
}

func (h *SearchHandler) respondSearch(w http.ResponseWriter, resp models.SearchResponse, err error) {
	var verr *validation.Error
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, resp)
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, search.ErrSuperseded):
		respondError(w, http.StatusConflict, "Search was superseded by a newer search")
	case errors.Is(err, search.ErrNotRetryable):
		respondError(w, http.StatusConflict, "There is no failed search to retry")
	default:
		h.logger.Error().Err(err).Msg("Search failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
