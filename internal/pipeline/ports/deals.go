// Package ports defines the contracts the pipeline context needs from the
// deal service. The deal service owns deals; the pipeline only reads
// placements and aggregates and records where a transition put a deal.
package ports

import (
	"context"
	"time"

	"pipeline_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

// DealPlacementReader exposes where deals currently sit.
type DealPlacementReader interface {
	// GetPlacement returns nil when the deal has never been placed.
	GetPlacement(ctx context.Context, companyID, dealID uuid.UUID) (*domain.DealPlacement, error)
	// ListEnteredBefore returns deals in stageID that entered at or before cutoff.
	ListEnteredBefore(ctx context.Context, companyID, stageID uuid.UUID, cutoff time.Time) ([]domain.DealPlacement, error)
}

// DealPlacementWriter records the outcome of a transition.
type DealPlacementWriter interface {
	UpsertPlacement(ctx context.Context, placement domain.DealPlacement) error
}

// DealMetricsReader supplies per-stage deal counts and values.
type DealMetricsReader interface {
	StageMetrics(ctx context.Context, companyID uuid.UUID) ([]domain.StageMetrics, error)
}

// DealStore combines the placement contracts.
type DealStore interface {
	DealPlacementReader
	DealPlacementWriter
	DealMetricsReader
}
