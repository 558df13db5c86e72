package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestAutoAdvanceEligibilityBoundary(t *testing.T) {
	stage := stageNamed("Proposal Sent")
	stage.AutoAdvance = true
	stage.AutoAdvanceDays = intPtr(3)

	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	placements := []DealPlacement{{DealID: uuid.New(), StageID: stage.ID, EnteredStageAt: t0}}
	window := 3 * 24 * time.Hour

	if got := AdvanceEventsFor(stage, placements, t0.Add(window-time.Second)); len(got) != 0 {
		t.Fatalf("expected no events before window elapses, got %d", len(got))
	}

	got := AdvanceEventsFor(stage, placements, t0.Add(window+time.Second))
	if len(got) != 1 {
		t.Fatalf("expected exactly one event, got %d", len(got))
	}
	if got[0].DealID != placements[0].DealID || got[0].FromStageID != stage.ID || !got[0].EligibleAt.Equal(t0.Add(window)) {
		t.Fatalf("unexpected event: %+v", got[0])
	}

	again := AdvanceEventsFor(stage, placements, t0.Add(window+time.Second))
	if len(again) != 1 || again[0].DedupKey() != got[0].DedupKey() {
		t.Fatal("sweeping unchanged data should re-emit the same candidate")
	}
}

func TestAutoAdvanceDisabledStage(t *testing.T) {
	stage := stageNamed("Negotiation")
	placements := []DealPlacement{{DealID: uuid.New(), StageID: stage.ID, EnteredStageAt: time.Unix(0, 0)}}
	if got := AdvanceEventsFor(stage, placements, time.Now()); len(got) != 0 {
		t.Fatalf("expected no events for stage without auto advance, got %d", len(got))
	}
}

func TestSortAdvanceEvents(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	events := []AdvanceEvent{
		{DealID: uuid.New(), EligibleAt: base.Add(time.Hour)},
		{DealID: uuid.New(), EligibleAt: base},
	}
	SortAdvanceEvents(events)
	if !events[0].EligibleAt.Equal(base) {
		t.Fatalf("expected earliest first, got %+v", events)
	}
}
