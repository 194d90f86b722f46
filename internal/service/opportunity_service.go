package service

import (
	"context"

	"github.com/evyataryagoni/geoflipper/internal/crm"
	"github.com/evyataryagoni/geoflipper/internal/logger"
	"github.com/evyataryagoni/geoflipper/internal/models"
)

// OpportunityService searches CRM opportunities for logged-in members
type OpportunityService struct {
	crm    crm.Searcher
	logger *logger.Logger
}

// NewOpportunityService creates a new opportunity service
func NewOpportunityService(searcher crm.Searcher, log *logger.Logger) *OpportunityService {
	return &OpportunityService{
		crm:    searcher,
		logger: logger.OrDefault(log).WithComponent("OpportunityService"),
	}
}

// Search returns opportunities matching query.
// crm.ErrNotConfigured is passed through so the caller can tell it apart from upstream failures.
func (s *OpportunityService) Search(ctx context.Context, query string) ([]models.Opportunity, error) {
	opportunities, err := s.crm.SearchOpportunities(ctx, query)
	if err != nil {
		s.logger.Error().Err(err).Str("query", query).Msg("Opportunity search failed")
		return nil, err
	}

	s.logger.Debug().Str("query", query).Int("count", len(opportunities)).Msg("Opportunity search completed")
	return opportunities, nil
}
