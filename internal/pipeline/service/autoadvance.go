package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pipeline_backend/internal/pipeline/domain"
	"pipeline_backend/internal/pipeline/ports"
	"pipeline_backend/internal/pipeline/repository"
	"pipeline_backend/internal/pipeline/transport"
	"pipeline_backend/platform/logger"
)

const defaultSweepConcurrency = 8

// AutoAdvancePolicy detects deals whose dwell time in an auto-advance stage
// has elapsed. It reads only and never moves deals.
type AutoAdvancePolicy struct {
	stages      repository.StageReader
	deals       ports.DealPlacementReader
	log         *logger.Logger
	concurrency int
}

// NewAutoAdvancePolicy creates a policy reading stage configuration and placements.
func NewAutoAdvancePolicy(stages repository.StageReader, deals ports.DealPlacementReader, log *logger.Logger) *AutoAdvancePolicy {
	return &AutoAdvancePolicy{stages: stages, deals: deals, log: log, concurrency: defaultSweepConcurrency}
}

// Sweep returns every advance candidate at now, sorted by eligibility time.
// Stages whose deal lookup fails are skipped and reported in the joined
// error; the candidates that were found are still returned.
func (p *AutoAdvancePolicy) Sweep(ctx context.Context, now time.Time) ([]domain.AdvanceEvent, error) {
	stages, err := p.stages.ListAutoAdvance(ctx)
	if err != nil {
		return nil, fmt.Errorf("list auto advance stages: %w", err)
	}
	return p.sweepStages(ctx, stages, now)
}

// SweepPreview lists the candidates of one company without touching any
// other company's stages. Any failed lookup fails the preview.
func (p *AutoAdvancePolicy) SweepPreview(ctx context.Context, companyID uuid.UUID, now time.Time) (transport.SweepResponse, error) {
	stages, err := p.stages.List(ctx, companyID, repository.ListFilter{})
	if err != nil {
		return transport.SweepResponse{}, fmt.Errorf("list company stages: %w", err)
	}
	auto := stages[:0:0]
	for _, st := range stages {
		if st.AutoAdvance {
			auto = append(auto, st)
		}
	}

	found, err := p.sweepStages(ctx, auto, now)
	if err != nil {
		return transport.SweepResponse{}, err
	}
	resp := transport.SweepResponse{Events: make([]transport.AdvanceEventResponse, 0, len(found))}
	for _, e := range found {
		resp.Events = append(resp.Events, toAdvanceResponse(e))
	}
	resp.Total = len(resp.Events)
	return resp, nil
}

func (p *AutoAdvancePolicy) sweepStages(ctx context.Context, stages []domain.Stage, now time.Time) ([]domain.AdvanceEvent, error) {
	var (
		mu     sync.Mutex
		found  []domain.AdvanceEvent
		failed []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, stage := range stages {
		cutoff, ok := domain.EligibilityCutoff(stage, now)
		if !ok {
			continue
		}
		g.Go(func() error {
			placements, err := p.deals.ListEnteredBefore(gctx, stage.CompanyID, stage.ID, cutoff)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.log.Error("auto advance lookup failed", "companyId", stage.CompanyID, "stageId", stage.ID, "error", err)
				failed = append(failed, fmt.Errorf("stage %s: %w", stage.ID, err))
				return nil
			}
			found = append(found, domain.AdvanceEventsFor(stage, placements, now)...)
			return nil
		})
	}
	_ = g.Wait()

	domain.SortAdvanceEvents(found)
	return found, errors.Join(failed...)
}
