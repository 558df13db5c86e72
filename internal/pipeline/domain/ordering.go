package domain

import (
	"sort"

	"github.com/google/uuid"
)

// Placement assigns a stage to an order value.
type Placement struct {
	StageID uuid.UUID
	Order   int
}

// PlanReorder validates that requested is a permutation of current and returns
// the dense 0..N-1 placement it implies. Requested orders must be distinct and
// non-negative; they are ranked, so gaps in the request are closed.
func PlanReorder(current []Stage, requested []Placement) ([]Placement, error) {
	if len(requested) != len(current) {
		return nil, ErrInconsistent("reorder must list every stage exactly once")
	}

	known := make(map[uuid.UUID]struct{}, len(current))
	for _, st := range current {
		known[st.ID] = struct{}{}
	}

	seenIDs := make(map[uuid.UUID]struct{}, len(requested))
	seenOrders := make(map[int]struct{}, len(requested))
	for _, p := range requested {
		if _, ok := known[p.StageID]; !ok {
			return nil, ErrInconsistent("reorder references a stage that does not belong to the company")
		}
		if _, dup := seenIDs[p.StageID]; dup {
			return nil, ErrInconsistent("reorder lists a stage more than once")
		}
		if p.Order < 0 {
			return nil, ErrInconsistent("reorder positions must be non-negative")
		}
		if _, dup := seenOrders[p.Order]; dup {
			return nil, ErrInconsistent("reorder assigns the same position twice")
		}
		seenIDs[p.StageID] = struct{}{}
		seenOrders[p.Order] = struct{}{}
	}

	plan := append([]Placement(nil), requested...)
	sort.Slice(plan, func(i, j int) bool { return plan[i].Order < plan[j].Order })
	for i := range plan {
		plan[i].Order = i
	}
	return plan, nil
}

// MoveTo returns the dense placement after moving stageID to position,
// shifting the stages in between. position is clamped to the valid range.
func MoveTo(current []Stage, stageID uuid.UUID, position int) ([]Placement, error) {
	ordered := SortByOrder(current)
	from := -1
	for i, st := range ordered {
		if st.ID == stageID {
			from = i
			break
		}
	}
	if from < 0 {
		return nil, ErrNotFound()
	}

	if position < 0 {
		position = 0
	}
	if position > len(ordered)-1 {
		position = len(ordered) - 1
	}

	ids := make([]uuid.UUID, 0, len(ordered))
	for i, st := range ordered {
		if i != from {
			ids = append(ids, st.ID)
		}
	}
	ids = append(ids[:position], append([]uuid.UUID{stageID}, ids[position:]...)...)

	plan := make([]Placement, len(ids))
	for i, id := range ids {
		plan[i] = Placement{StageID: id, Order: i}
	}
	return plan, nil
}

// Compact returns the dense placement of current, preserving relative order.
func Compact(current []Stage) []Placement {
	ordered := SortByOrder(current)
	plan := make([]Placement, len(ordered))
	for i, st := range ordered {
		plan[i] = Placement{StageID: st.ID, Order: i}
	}
	return plan
}

// Changed returns only the placements whose order differs from current.
func Changed(current []Stage, plan []Placement) []Placement {
	orders := make(map[uuid.UUID]int, len(current))
	for _, st := range current {
		orders[st.ID] = st.Order
	}
	var out []Placement
	for _, p := range plan {
		if orders[p.StageID] != p.Order {
			out = append(out, p)
		}
	}
	return out
}

// ApplyPlacements sets the order of each stage according to plan.
func ApplyPlacements(stages []Stage, plan []Placement) []Stage {
	orders := make(map[uuid.UUID]int, len(plan))
	for _, p := range plan {
		orders[p.StageID] = p.Order
	}
	out := make([]Stage, len(stages))
	for i, st := range stages {
		if o, ok := orders[st.ID]; ok {
			st.Order = o
		}
		out[i] = st
	}
	return SortByOrder(out)
}

// IsDense reports whether stage orders are exactly 0..N-1.
func IsDense(stages []Stage) bool {
	seen := make([]bool, len(stages))
	for _, st := range stages {
		if st.Order < 0 || st.Order >= len(stages) || seen[st.Order] {
			return false
		}
		seen[st.Order] = true
	}
	return true
}

// SortByOrder returns a copy of stages sorted by order, ties broken by creation time.
func SortByOrder(stages []Stage) []Stage {
	out := append([]Stage(nil), stages...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
