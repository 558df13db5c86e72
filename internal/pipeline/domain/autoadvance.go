package domain

import (
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DealPlacement records which stage a deal occupies and since when.
type DealPlacement struct {
	CompanyID      uuid.UUID
	DealID         uuid.UUID
	StageID        uuid.UUID
	DealValue      float64
	EnteredStageAt time.Time
}

// AdvanceEvent reports a deal whose dwell time in an auto-advance stage has
// elapsed. Choosing the destination is left to the deal service.
type AdvanceEvent struct {
	DealID         uuid.UUID `json:"dealId"`
	CompanyID      uuid.UUID `json:"companyId"`
	FromStageID    uuid.UUID `json:"fromStageId"`
	FromStageName  string    `json:"fromStageName"`
	EnteredStageAt time.Time `json:"enteredStageAt"`
	EligibleAt     time.Time `json:"eligibleAt"`
}

// DedupKey identifies one stay of a deal in a stage. It changes once the deal moves.
func (e AdvanceEvent) DedupKey() string {
	return e.DealID.String() + ":" + e.FromStageID.String() + ":" + strconv.FormatInt(e.EnteredStageAt.Unix(), 10)
}

// EligibilityCutoff returns the latest entry time that qualifies at now.
func EligibilityCutoff(stage Stage, now time.Time) (time.Time, bool) {
	window, ok := stage.AutoAdvanceWindow()
	if !ok {
		return time.Time{}, false
	}
	return now.Add(-window), true
}

// IsEligible reports whether a deal placed in stage at enteredAt qualifies at now.
func IsEligible(stage Stage, enteredAt, now time.Time) bool {
	cutoff, ok := EligibilityCutoff(stage, now)
	if !ok {
		return false
	}
	return !enteredAt.After(cutoff)
}

// AdvanceEventsFor builds events for the placements of stage eligible at now.
func AdvanceEventsFor(stage Stage, placements []DealPlacement, now time.Time) []AdvanceEvent {
	window, ok := stage.AutoAdvanceWindow()
	if !ok {
		return nil
	}
	var out []AdvanceEvent
	for _, p := range placements {
		if p.StageID != stage.ID || !IsEligible(stage, p.EnteredStageAt, now) {
			continue
		}
		out = append(out, AdvanceEvent{
			DealID:         p.DealID,
			CompanyID:      stage.CompanyID,
			FromStageID:    stage.ID,
			FromStageName:  stage.Name,
			EnteredStageAt: p.EnteredStageAt,
			EligibleAt:     p.EnteredStageAt.Add(window),
		})
	}
	return out
}

// SortAdvanceEvents orders events by eligibility time, then deal id.
func SortAdvanceEvents(events []AdvanceEvent) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].EligibleAt.Equal(events[j].EligibleAt) {
			return events[i].EligibleAt.Before(events[j].EligibleAt)
		}
		return events[i].DealID.String() < events[j].DealID.String()
	})
}
