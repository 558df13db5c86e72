package service

import (
	"context"

	"pipeline_backend/internal/events"
	"pipeline_backend/internal/pipeline/domain"
	"pipeline_backend/internal/pipeline/transport"
	"pipeline_backend/platform/apperr"

	"github.com/google/uuid"
)

type plannedTransition struct {
	source   *domain.Stage
	target   domain.Stage
	snapshot domain.DealSnapshot
}

// TransitionDeal validates and records a deal moving into a stage, then
// announces it so enter/exit notifications can be dispatched.
func (s *Service) TransitionDeal(ctx context.Context, companyID uuid.UUID, actor domain.Actor, req transport.TransitionRequest) (transport.TransitionResponse, error) {
	plan, err := s.planTransition(ctx, companyID, req)
	if err != nil {
		return transport.TransitionResponse{}, err
	}
	if err := domain.CanEnter(plan.source, plan.target, plan.snapshot); err != nil {
		return transport.TransitionResponse{}, err
	}

	enteredAt := s.now()
	if err := s.deals.UpsertPlacement(ctx, domain.DealPlacement{
		CompanyID:      companyID,
		DealID:         req.DealID,
		StageID:        plan.target.ID,
		DealValue:      plan.snapshot.Value(),
		EnteredStageAt: enteredAt,
	}); err != nil {
		return transport.TransitionResponse{}, err
	}

	changed := events.DealStageChanged{
		BaseEvent: events.NewBaseEventAt(s.now()),
		CompanyID: companyID,
		DealID:    req.DealID,
		To:        toStageNotification(plan.target),
		ActorID:   actor.ID,
	}
	resp := transport.TransitionResponse{
		DealID:         req.DealID,
		ToStageID:      plan.target.ID,
		EnteredStageAt: enteredAt,
	}
	if plan.source != nil {
		from := toStageNotification(*plan.source)
		changed.From = &from
		resp.FromStageID = &plan.source.ID
	}

	s.log.Info("deal stage changed", "companyId", companyID, "dealId", req.DealID, "toStageId", plan.target.ID)
	s.bus.Publish(ctx, changed)

	return resp, nil
}

// CheckTransition reports whether TransitionDeal would accept req, without
// recording anything. Rule violations are returned in the response.
func (s *Service) CheckTransition(ctx context.Context, companyID uuid.UUID, req transport.TransitionRequest) (transport.TransitionCheckResponse, error) {
	plan, err := s.planTransition(ctx, companyID, req)
	if err != nil {
		return transport.TransitionCheckResponse{}, err
	}

	err = domain.CanEnter(plan.source, plan.target, plan.snapshot)
	if err == nil {
		return transport.TransitionCheckResponse{Allowed: true}, nil
	}

	e, ok := apperr.As(err)
	if !ok {
		return transport.TransitionCheckResponse{}, err
	}
	resp := transport.TransitionCheckResponse{Allowed: false, Code: e.Code, Reason: e.Message}
	if details, ok := e.Details.(map[string][]string); ok {
		resp.MissingFields = details["missingFields"]
	}
	return resp, nil
}

func (s *Service) planTransition(ctx context.Context, companyID uuid.UUID, req transport.TransitionRequest) (plannedTransition, error) {
	fields, err := transport.ToDomainFields(req.Fields)
	if err != nil {
		return plannedTransition{}, err
	}

	target, err := s.repo.GetByID(ctx, companyID, req.ToStageID)
	if err != nil {
		return plannedTransition{}, err
	}

	placement, err := s.deals.GetPlacement(ctx, companyID, req.DealID)
	if err != nil {
		return plannedTransition{}, err
	}

	sourceID := req.FromStageID
	if placement != nil {
		sourceID = &placement.StageID
	}

	var source *domain.Stage
	if sourceID != nil {
		st, err := s.repo.GetByID(ctx, companyID, *sourceID)
		switch {
		case err == nil:
			source = &st
		case apperr.Is(err, apperr.KindNotFound):
			// The deal sits in a stage that has since been deleted; it carries no constraints.
			s.log.Warn("deal placed in unknown stage", "companyId", companyID, "dealId", req.DealID, "stageId", *sourceID)
		default:
			return plannedTransition{}, err
		}
	}

	return plannedTransition{
		source: source,
		target: target,
		snapshot: domain.DealSnapshot{
			ID:             req.DealID,
			CurrentStageID: sourceID,
			Fields:         fields,
		},
	}, nil
}
