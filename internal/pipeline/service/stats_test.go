package service

import (
	"context"
	"testing"

	"pipeline_backend/internal/pipeline/domain"
	"pipeline_backend/internal/pipeline/transport"

	"github.com/google/uuid"
)

func TestStatsEmptyCompany(t *testing.T) {
	f := newFixture()
	got, err := f.svc.Stats(context.Background(), f.company)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if got != (transport.StatsResponse{}) {
		t.Fatalf("expected zero stats, got %+v", got)
	}
}

func TestStatsAggregatesStagesAndDeals(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inactive := false
	for _, st := range []transport.CreateStageRequest{
		{Name: "Lead", Probability: 10},
		{Name: "Proposal", Probability: 50},
		{Name: "Commit", Probability: 90, IsActive: &inactive},
	} {
		if _, err := f.svc.Create(ctx, f.company, f.actor, st); err != nil {
			t.Fatalf("create %s: %v", st.Name, err)
		}
	}
	f.deals.placements[uuid.New()] = domain.DealPlacement{CompanyID: f.company, StageID: stageID(t, f, "Lead"), DealValue: 100}
	f.deals.placements[uuid.New()] = domain.DealPlacement{CompanyID: f.company, StageID: stageID(t, f, "Commit"), DealValue: 250}

	got, err := f.svc.Stats(ctx, f.company)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := transport.StatsResponse{TotalStages: 3, ActiveStages: 2, TotalDeals: 2, TotalValue: 350, AvgProbability: 50}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}
