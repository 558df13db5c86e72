package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestComputeStatsEmpty(t *testing.T) {
	got := ComputeStats(nil)
	if got != (Stats{}) {
		t.Fatalf("expected zero stats, got %+v", got)
	}
}

func TestComputeStatsAveragesAllStages(t *testing.T) {
	stages := pipeline("A", "B", "C")
	stages[0].Probability = 10
	stages[1].Probability = 50
	stages[2].Probability = 90
	stages[2].IsActive = false

	stages = AttachMetrics(stages, []StageMetrics{
		{StageID: stages[0].ID, DealCount: 3, TotalValue: 1500},
		{StageID: stages[2].ID, DealCount: 1, TotalValue: 250.5},
		{StageID: uuid.New(), DealCount: 9, TotalValue: 9000},
	})

	got := ComputeStats(stages)
	want := Stats{TotalStages: 3, ActiveStages: 2, TotalDeals: 4, TotalValue: 1750.5, AvgProbability: 50}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if stages[1].DealCount != 0 {
		t.Fatalf("stage without metrics should report 0 deals, got %d", stages[1].DealCount)
	}
}
