package service

import (
	"context"

	"pipeline_backend/internal/pipeline/domain"
	"pipeline_backend/internal/pipeline/repository"
	"pipeline_backend/internal/pipeline/transport"

	"github.com/google/uuid"
)

// Stats computes the company's pipeline summary at read time.
func (s *Service) Stats(ctx context.Context, companyID uuid.UUID) (transport.StatsResponse, error) {
	stages, err := s.repo.List(ctx, companyID, repository.ListFilter{})
	if err != nil {
		return transport.StatsResponse{}, err
	}
	stages, err = s.withMetrics(ctx, companyID, stages)
	if err != nil {
		return transport.StatsResponse{}, err
	}

	st := domain.ComputeStats(stages)
	return transport.StatsResponse{
		TotalStages:    st.TotalStages,
		ActiveStages:   st.ActiveStages,
		TotalDeals:     st.TotalDeals,
		TotalValue:     st.TotalValue,
		AvgProbability: st.AvgProbability,
	}, nil
}
