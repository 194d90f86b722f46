package handler

import (
	"errors"
	"net/http"

	"github.com/evyataryagoni/geoflipper/internal/crm"
	"github.com/evyataryagoni/geoflipper/internal/models"
	"github.com/evyataryagoni/geoflipper/internal/service"
)

// OpportunityHandler handles CRM opportunity search
type OpportunityHandler struct {
	service *service.OpportunityService
}

// NewOpportunityHandler creates a new opportunity handler
func NewOpportunityHandler(svc *service.OpportunityService) *OpportunityHandler {
	return &OpportunityHandler{service: svc}
}

// Search handles GET /v1/opportunities?query=<text>
//
// Responses:
//   - 200 {"opportunities": [...]}
//   - 502 the CRM failed
//   - 503 no CRM API key configured
func (h *OpportunityHandler) Search(w http.ResponseWriter, r *http.Request) {
	opportunities, err := h.service.Search(r.Context(), r.URL.Query().Get("query"))
	switch {
	case errors.Is(err, crm.ErrNotConfigured):
		respondError(w, http.StatusServiceUnavailable, "Opportunity search is not configured")
		return
	case err != nil:
		respondError(w, http.StatusBadGateway, "Failed to search opportunities")
		return
	}

	if opportunities == nil {
		opportunities = []models.Opportunity{}
	}
	respondJSON(w, http.StatusOK, models.OpportunitiesResponse{Opportunities: opportunities})
}
