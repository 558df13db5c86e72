package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pipeline_backend/internal/pipeline/domain"
	"pipeline_backend/internal/pipeline/ports"
)

// PlacementRepo is the pipeline's read model of deal placements.
type PlacementRepo struct {
	pool *pgxpool.Pool
}

// NewPlacements creates a new deal placement repository.
func NewPlacements(pool *pgxpool.Pool) *PlacementRepo {
	return &PlacementRepo{pool: pool}
}

var _ ports.DealStore = (*PlacementRepo)(nil)

// GetPlacement returns the deal's current placement or nil.
func (r *PlacementRepo) GetPlacement(ctx context.Context, companyID, dealID uuid.UUID) (*domain.DealPlacement, error) {
	query := `
		SELECT company_id, deal_id, stage_id, deal_value::float8, entered_stage_at
		FROM pipeline_deal_placements
		WHERE company_id = $1 AND deal_id = $2`

	var p domain.DealPlacement
	err := r.pool.QueryRow(ctx, query, companyID, dealID).Scan(
		&p.CompanyID, &p.DealID, &p.StageID, &p.DealValue, &p.EnteredStageAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get deal placement: %w", err)
	}
	return &p, nil
}

// ListEnteredBefore returns deals that entered stageID at or before cutoff.
func (r *PlacementRepo) ListEnteredBefore(ctx context.Context, companyID, stageID uuid.UUID, cutoff time.Time) ([]domain.DealPlacement, error) {
	query := `
		SELECT company_id, deal_id, stage_id, deal_value::float8, entered_stage_at
		FROM pipeline_deal_placements
		WHERE company_id = $1 AND stage_id = $2 AND entered_stage_at <= $3
		ORDER BY entered_stage_at ASC, deal_id ASC`

	rows, err := r.pool.Query(ctx, query, companyID, stageID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list eligible placements: %w", err)
	}
	defer rows.Close()

	var out []domain.DealPlacement
	for rows.Next() {
		var p domain.DealPlacement
		if err := rows.Scan(&p.CompanyID, &p.DealID, &p.StageID, &p.DealValue, &p.EnteredStageAt); err != nil {
			return nil, fmt.Errorf("scan placement: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpsertPlacement records the deal's new stage and resets its dwell clock.
func (r *PlacementRepo) UpsertPlacement(ctx context.Context, p domain.DealPlacement) error {
	query := `
		INSERT INTO pipeline_deal_placements (company_id, deal_id, stage_id, deal_value, entered_stage_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (company_id, deal_id) DO UPDATE SET
			stage_id = EXCLUDED.stage_id,
			deal_value = EXCLUDED.deal_value,
			entered_stage_at = EXCLUDED.entered_stage_at,
			updated_at = now()`

	if _, err := r.pool.Exec(ctx, query, p.CompanyID, p.DealID, p.StageID, p.DealValue, p.EnteredStageAt); err != nil {
		return fmt.Errorf("upsert deal placement: %w", err)
	}
	return nil
}

// StageMetrics aggregates deal count and value per stage.
func (r *PlacementRepo) StageMetrics(ctx context.Context, companyID uuid.UUID) ([]domain.StageMetrics, error) {
	query := `
		SELECT stage_id, COUNT(*), COALESCE(SUM(deal_value), 0)::float8
		FROM pipeline_deal_placements
		WHERE company_id = $1
		GROUP BY stage_id`

	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("stage metrics: %w", err)
	}
	defer rows.Close()

	var out []domain.StageMetrics
	for rows.Next() {
		var m domain.StageMetrics
		if err := rows.Scan(&m.StageID, &m.DealCount, &m.TotalValue); err != nil {
			return nil, fmt.Errorf("scan stage metrics: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
