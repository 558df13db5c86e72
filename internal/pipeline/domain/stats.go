package domain

import "github.com/google/uuid"

// Stats summarizes a company's pipeline.
type Stats struct {
	TotalStages    int     `json:"totalStages"`
	ActiveStages   int     `json:"activeStages"`
	TotalDeals     int64   `json:"totalDeals"`
	TotalValue     float64 `json:"totalValue"`
	AvgProbability float64 `json:"avgProbability"`
}

// StageMetrics is the deal service's per-stage aggregate.
type StageMetrics struct {
	StageID    uuid.UUID
	DealCount  int64
	TotalValue float64
}

// AttachMetrics copies deal aggregates onto matching stages. Stages without
// metrics report zero.
func AttachMetrics(stages []Stage, metrics []StageMetrics) []Stage {
	byStage := make(map[uuid.UUID]StageMetrics, len(metrics))
	for _, m := range metrics {
		byStage[m.StageID] = m
	}
	out := make([]Stage, len(stages))
	for i, st := range stages {
		m := byStage[st.ID]
		st.DealCount = m.DealCount
		st.TotalValue = m.TotalValue
		out[i] = st
	}
	return out
}

// ComputeStats aggregates stages. avgProbability is the unweighted mean over
// all stages, 0 when there are none.
func ComputeStats(stages []Stage) Stats {
	var s Stats
	probabilitySum := 0
	for _, st := range stages {
		s.TotalStages++
		if st.IsActive {
			s.ActiveStages++
		}
		s.TotalDeals += st.DealCount
		s.TotalValue += st.TotalValue
		probabilitySum += st.Probability
	}
	if s.TotalStages > 0 {
		s.AvgProbability = float64(probabilitySum) / float64(s.TotalStages)
	}
	return s
}
