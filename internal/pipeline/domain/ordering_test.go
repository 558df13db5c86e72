package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func pipeline(names ...string) []Stage {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]Stage, len(names))
	for i, name := range names {
		st := stageNamed(name)
		st.Order = i
		st.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		out[i] = st
	}
	return out
}

func orderOf(stages []Stage, name string) int {
	for _, st := range stages {
		if st.Name == name {
			return st.Order
		}
	}
	return -1
}

func TestPlanReorderRejectsNonPermutations(t *testing.T) {
	current := pipeline("A", "B", "C")

	tests := []struct {
		name      string
		requested []Placement
	}{
		{"missing one", []Placement{{current[0].ID, 0}, {current[1].ID, 1}}},
		{"duplicate id", []Placement{{current[0].ID, 0}, {current[0].ID, 1}, {current[2].ID, 2}}},
		{"foreign id", []Placement{{current[0].ID, 0}, {current[1].ID, 1}, {uuid.New(), 2}}},
		{"duplicate order", []Placement{{current[0].ID, 0}, {current[1].ID, 0}, {current[2].ID, 1}}},
		{"negative order", []Placement{{current[0].ID, -1}, {current[1].ID, 0}, {current[2].ID, 1}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := PlanReorder(current, tc.requested)
			requireCode(t, err, CodeInconsistent)
		})
	}
}

func TestPlanReorderDensifies(t *testing.T) {
	current := pipeline("A", "B", "C")
	plan, err := PlanReorder(current, []Placement{
		{current[0].ID, 10},
		{current[1].ID, 3},
		{current[2].ID, 7},
	})
	if err != nil {
		t.Fatalf("plan reorder: %v", err)
	}
	got := ApplyPlacements(current, plan)
	if !IsDense(got) {
		t.Fatalf("expected dense orders, got %+v", got)
	}
	if orderOf(got, "B") != 0 || orderOf(got, "C") != 1 || orderOf(got, "A") != 2 {
		t.Fatalf("unexpected order: B=%d C=%d A=%d", orderOf(got, "B"), orderOf(got, "C"), orderOf(got, "A"))
	}
}

func TestDemoScenario(t *testing.T) {
	current := pipeline("Qualification", "Negotiation", "Closed Won", "Closed Lost")
	current[2].Category, current[2].IsDefault = CategoryWon, true
	current[3].Category, current[3].IsDefault = CategoryLost, true

	demo := stageNamed("Demo")
	demo.Order = len(current)
	demo.CreatedAt = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	current = append(current, demo)
	if demo.Order != 4 {
		t.Fatalf("expected Demo appended at 4, got %d", demo.Order)
	}

	plan, err := MoveTo(current, demo.ID, 1)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	got := ApplyPlacements(current, plan)

	want := map[string]int{"Qualification": 0, "Demo": 1, "Negotiation": 2, "Closed Won": 3, "Closed Lost": 4}
	for name, order := range want {
		if orderOf(got, name) != order {
			t.Fatalf("%s: expected order %d, got %d", name, order, orderOf(got, name))
		}
	}

	changed := Changed(current, plan)
	if len(changed) != 4 {
		t.Fatalf("expected 4 changed placements, got %d", len(changed))
	}
}

func TestMoveToClampsAndRejectsUnknown(t *testing.T) {
	current := pipeline("A", "B", "C")

	plan, err := MoveTo(current, current[0].ID, 99)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	got := ApplyPlacements(current, plan)
	if orderOf(got, "A") != 2 || !IsDense(got) {
		t.Fatalf("expected A clamped to last position, got %+v", got)
	}

	_, err = MoveTo(current, uuid.New(), 0)
	requireCode(t, err, CodeNotFound)
}

func TestCompactClosesGaps(t *testing.T) {
	current := pipeline("A", "B", "C", "D")
	remaining := []Stage{current[0], current[2], current[3]}

	got := ApplyPlacements(remaining, Compact(remaining))
	if !IsDense(got) {
		t.Fatalf("expected dense orders, got %+v", got)
	}
	if orderOf(got, "C") != 1 || orderOf(got, "D") != 2 {
		t.Fatalf("expected relative order preserved, got %+v", got)
	}
}
