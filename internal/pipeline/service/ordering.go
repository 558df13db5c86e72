package service

import (
	"context"

	"pipeline_backend/internal/events"
	"pipeline_backend/internal/pipeline/domain"
	"pipeline_backend/internal/pipeline/repository"
	"pipeline_backend/internal/pipeline/transport"

	"github.com/google/uuid"
)

// Reorder applies a full permutation of the company's stages atomically.
// Anything but an exact permutation fails with Inconsistent and writes nothing.
func (s *Service) Reorder(ctx context.Context, companyID uuid.UUID, actor domain.Actor, req transport.ReorderRequest) (transport.StageListResponse, error) {
	requested := make([]domain.Placement, len(req.Stages))
	for i, item := range req.Stages {
		requested[i] = domain.Placement{StageID: item.ID, Order: item.Order}
	}

	var reordered []domain.Stage
	err := s.repo.InCompanyTx(ctx, companyID, func(ctx context.Context, tx repository.StageTx) error {
		current, err := tx.Stages(ctx)
		if err != nil {
			return err
		}
		plan, err := domain.PlanReorder(current, requested)
		if err != nil {
			return err
		}
		if err := tx.ApplyOrder(ctx, domain.Changed(current, plan)); err != nil {
			return err
		}
		reordered = domain.ApplyPlacements(current, plan)
		return nil
	})
	if err != nil {
		return transport.StageListResponse{}, err
	}

	reordered, err = s.withMetrics(ctx, companyID, reordered)
	if err != nil {
		return transport.StageListResponse{}, err
	}

	ids := make([]uuid.UUID, len(reordered))
	for i, st := range reordered {
		ids[i] = st.ID
	}
	s.log.Info("pipeline stages reordered", "companyId", companyID, "count", len(ids))
	s.bus.Publish(ctx, events.PipelineStagesReordered{
		BaseEvent: events.NewBaseEventAt(s.now()),
		CompanyID: companyID,
		StageIDs:  ids,
		ActorID:   actor.ID,
	})

	return toListResponse(reordered), nil
}
