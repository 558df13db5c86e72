package service

import (
	"context"

	"pipeline_backend/internal/events"
	"pipeline_backend/internal/pipeline/domain"
	"pipeline_backend/internal/pipeline/repository"
	"pipeline_backend/internal/pipeline/transport"

	"github.com/google/uuid"
)

// List returns the company's stages in order, with deal aggregates attached.
func (s *Service) List(ctx context.Context, companyID uuid.UUID, filter repository.ListFilter) (transport.StageListResponse, error) {
	stages, err := s.repo.List(ctx, companyID, filter)
	if err != nil {
		return transport.StageListResponse{}, err
	}
	stages, err = s.withMetrics(ctx, companyID, stages)
	if err != nil {
		return transport.StageListResponse{}, err
	}
	return toListResponse(stages), nil
}

// Get returns a single stage.
func (s *Service) Get(ctx context.Context, companyID, id uuid.UUID) (transport.StageResponse, error) {
	st, err := s.repo.GetByID(ctx, companyID, id)
	if err != nil {
		return transport.StageResponse{}, err
	}
	withMetrics, err := s.withMetrics(ctx, companyID, []domain.Stage{st})
	if err != nil {
		return transport.StageResponse{}, err
	}
	return toResponse(withMetrics[0]), nil
}

// Create appends a stage to the company's pipeline, or inserts it at the
// requested position.
func (s *Service) Create(ctx context.Context, companyID uuid.UUID, actor domain.Actor, req transport.CreateStageRequest) (transport.StageResponse, error) {
	draft := toDraft(req)
	stage, err := domain.NewStage(companyID, draft, actor, s.now())
	if err != nil {
		return transport.StageResponse{}, err
	}

	err = s.repo.InCompanyTx(ctx, companyID, func(ctx context.Context, tx repository.StageTx) error {
		current, err := tx.Stages(ctx)
		if err != nil {
			return err
		}
		if err := checkNameFree(current, stage.Name, uuid.Nil); err != nil {
			return err
		}
		if err := domain.CheckAllowedReferences(stage.AllowedStages, current, stage.Name); err != nil {
			return err
		}

		stage.Order = nextOrder(current)
		if err := tx.Insert(ctx, stage); err != nil {
			return err
		}

		if draft.Position == nil {
			return nil
		}
		all := append(current, stage)
		plan, err := domain.MoveTo(all, stage.ID, *draft.Position)
		if err != nil {
			return err
		}
		if err := tx.ApplyOrder(ctx, domain.Changed(all, plan)); err != nil {
			return err
		}
		stage.Order = orderIn(plan, stage.ID)
		return nil
	})
	if err != nil {
		return transport.StageResponse{}, err
	}

	s.log.Info("pipeline stage created", "companyId", companyID, "stageId", stage.ID, "name", stage.Name, "order", stage.Order)
	s.bus.Publish(ctx, events.PipelineStageCreated{
		BaseEvent: events.NewBaseEventAt(s.now()),
		CompanyID: companyID,
		StageID:   stage.ID,
		Name:      stage.Name,
		Order:     stage.Order,
		ActorID:   actor.ID,
	})

	return toResponse(stage), nil
}

// Update patches a stage. Default stages reject order and category changes.
func (s *Service) Update(ctx context.Context, companyID uuid.UUID, actor domain.Actor, id uuid.UUID, req transport.UpdateStageRequest) (transport.StageResponse, error) {
	patch := toPatch(req)

	var updated domain.Stage
	err := s.repo.InCompanyTx(ctx, companyID, func(ctx context.Context, tx repository.StageTx) error {
		current, err := tx.Stages(ctx)
		if err != nil {
			return err
		}
		existing, ok := findStage(current, id)
		if !ok {
			return domain.ErrNotFound()
		}
		if err := domain.CanMutate(existing, patch); err != nil {
			return err
		}

		next, err := domain.ApplyPatch(existing, patch, actor, s.now())
		if err != nil {
			return err
		}
		if patch.Name != nil {
			if err := checkNameFree(current, next.Name, id); err != nil {
				return err
			}
		}
		if patch.AllowedStages != nil {
			if err := domain.CheckAllowedReferences(next.AllowedStages, current, next.Name); err != nil {
				return err
			}
		}
		if err := tx.Save(ctx, next); err != nil {
			return err
		}

		if patch.TouchesPosition() {
			plan, err := domain.MoveTo(current, id, *patch.Order)
			if err != nil {
				return err
			}
			if err := tx.ApplyOrder(ctx, domain.Changed(current, plan)); err != nil {
				return err
			}
			next.Order = orderIn(plan, id)
		}
		updated = next
		return nil
	})
	if err != nil {
		return transport.StageResponse{}, err
	}

	s.log.Info("pipeline stage updated", "companyId", companyID, "stageId", id)
	s.bus.Publish(ctx, events.PipelineStageUpdated{
		BaseEvent: events.NewBaseEventAt(s.now()),
		CompanyID: companyID,
		StageID:   id,
		Name:      updated.Name,
		ActorID:   actor.ID,
	})

	return toResponse(updated), nil
}

// Delete removes a non-default stage and closes the gap it leaves.
func (s *Service) Delete(ctx context.Context, companyID uuid.UUID, actor domain.Actor, id uuid.UUID) error {
	var deleted domain.Stage
	err := s.repo.InCompanyTx(ctx, companyID, func(ctx context.Context, tx repository.StageTx) error {
		current, err := tx.Stages(ctx)
		if err != nil {
			return err
		}
		existing, ok := findStage(current, id)
		if !ok {
			return domain.ErrNotFound()
		}
		if err := domain.CanDelete(existing); err != nil {
			return err
		}
		if err := tx.Delete(ctx, id); err != nil {
			return err
		}

		remaining := make([]domain.Stage, 0, len(current)-1)
		for _, st := range current {
			if st.ID != id {
				remaining = append(remaining, st)
			}
		}
		deleted = existing
		return tx.ApplyOrder(ctx, domain.Changed(remaining, domain.Compact(remaining)))
	})
	if err != nil {
		return err
	}

	s.log.Info("pipeline stage deleted", "companyId", companyID, "stageId", id, "name", deleted.Name)
	s.bus.Publish(ctx, events.PipelineStageDeleted{
		BaseEvent: events.NewBaseEventAt(s.now()),
		CompanyID: companyID,
		StageID:   id,
		Name:      deleted.Name,
		ActorID:   actor.ID,
	})
	return nil
}

// SeedDefaults creates the default pipeline for a company with no stages.
// It is a no-op when the company already has stages.
func (s *Service) SeedDefaults(ctx context.Context, companyID uuid.UUID, actor domain.Actor) (transport.SeedResponse, error) {
	drafts, err := domain.DefaultDrafts()
	if err != nil {
		return transport.SeedResponse{}, err
	}

	var (
		result []domain.Stage
		seeded bool
	)
	err = s.repo.InCompanyTx(ctx, companyID, func(ctx context.Context, tx repository.StageTx) error {
		current, err := tx.Stages(ctx)
		if err != nil {
			return err
		}
		if len(current) > 0 {
			result = current
			return nil
		}

		now := s.now()
		result = make([]domain.Stage, 0, len(drafts))
		for i, d := range drafts {
			st, err := domain.NewStage(companyID, d, actor, now)
			if err != nil {
				return err
			}
			st.Order = i
			if err := tx.Insert(ctx, st); err != nil {
				return err
			}
			result = append(result, st)
		}
		seeded = true
		return nil
	})
	if err != nil {
		return transport.SeedResponse{}, err
	}

	if seeded {
		s.log.Info("default pipeline stages seeded", "companyId", companyID, "count", len(result))
		for _, st := range result {
			s.bus.Publish(ctx, events.PipelineStageCreated{
				BaseEvent: events.NewBaseEventAt(s.now()),
				CompanyID: companyID,
				StageID:   st.ID,
				Name:      st.Name,
				Order:     st.Order,
				ActorID:   actor.ID,
			})
		}
	}

	return transport.SeedResponse{Seeded: seeded, Items: toListResponse(result).Items}, nil
}

func (s *Service) withMetrics(ctx context.Context, companyID uuid.UUID, stages []domain.Stage) ([]domain.Stage, error) {
	metrics, err := s.deals.StageMetrics(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return domain.AttachMetrics(stages, metrics), nil
}

func checkNameFree(stages []domain.Stage, name string, self uuid.UUID) error {
	key := domain.NameKey(name)
	for _, st := range stages {
		if st.ID != self && domain.NameKey(st.Name) == key {
			return domain.ErrNameTaken(name)
		}
	}
	return nil
}

func findStage(stages []domain.Stage, id uuid.UUID) (domain.Stage, bool) {
	for _, st := range stages {
		if st.ID == id {
			return st, true
		}
	}
	return domain.Stage{}, false
}

func nextOrder(stages []domain.Stage) int {
	next := 0
	for _, st := range stages {
		if st.Order >= next {
			next = st.Order + 1
		}
	}
	return next
}

func orderIn(plan []domain.Placement, id uuid.UUID) int {
	for _, p := range plan {
		if p.StageID == id {
			return p.Order
		}
	}
	return -1
}
