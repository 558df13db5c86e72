package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"pipeline_backend/internal/pipeline/domain"
)

const (
	uniqueViolation = "23505"
	nameIndex       = "idx_pipeline_stages_company_name"
)

const stageColumns = `
	id, company_id, name, description, stage_order, category, probability, color,
	is_active, is_default, auto_advance, auto_advance_days, notify_on_enter, notify_on_exit,
	notify_users, required_fields, allowed_stages,
	created_by, created_by_name, updated_by, updated_by_name, created_at, updated_at`

// Repo implements Repository with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new pipeline stage repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// GetByID retrieves a stage of the company.
func (r *Repo) GetByID(ctx context.Context, companyID, id uuid.UUID) (domain.Stage, error) {
	query := `SELECT ` + stageColumns + ` FROM pipeline_stages WHERE id = $1 AND company_id = $2`

	st, err := scanStage(r.pool.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Stage{}, domain.ErrNotFound()
		}
		return domain.Stage{}, fmt.Errorf("get pipeline stage by id: %w", err)
	}
	return st, nil
}

// List returns the company's stages ordered by position.
func (r *Repo) List(ctx context.Context, companyID uuid.UUID, filter ListFilter) ([]domain.Stage, error) {
	var category *string
	if filter.Category != nil {
		c := string(*filter.Category)
		category = &c
	}

	query := `SELECT ` + stageColumns + `
		FROM pipeline_stages
		WHERE company_id = $1
			AND ($2::text IS NULL OR category = $2)
			AND ($3::boolean IS NULL OR is_active = $3)
		ORDER BY stage_order ASC, created_at ASC`

	return listStages(ctx, r.pool, "list pipeline stages", query, companyID, category, filter.IsActive)
}

// ListAutoAdvance returns all stages with auto advance enabled.
func (r *Repo) ListAutoAdvance(ctx context.Context) ([]domain.Stage, error) {
	query := `SELECT ` + stageColumns + `
		FROM pipeline_stages
		WHERE auto_advance AND auto_advance_days IS NOT NULL
		ORDER BY company_id, stage_order`

	return listStages(ctx, r.pool, "list auto advance stages", query)
}

// InCompanyTx runs fn in a transaction holding the company's advisory lock.
func (r *Repo) InCompanyTx(ctx context.Context, companyID uuid.UUID, fn func(ctx context.Context, tx StageTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "pipeline_stages:"+companyID.String()); err != nil {
		return fmt.Errorf("lock company stages: %w", err)
	}

	if err := fn(ctx, &pgStageTx{tx: tx, companyID: companyID}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapWriteError(fmt.Errorf("commit stage changes: %w", err), "")
	}
	return nil
}

type pgStageTx struct {
	tx        pgx.Tx
	companyID uuid.UUID
}

func (t *pgStageTx) Stages(ctx context.Context) ([]domain.Stage, error) {
	query := `SELECT ` + stageColumns + `
		FROM pipeline_stages
		WHERE company_id = $1
		ORDER BY stage_order ASC, created_at ASC`
	return listStages(ctx, t.tx, "list company stages", query, t.companyID)
}

func (t *pgStageTx) Insert(ctx context.Context, stage domain.Stage) error {
	query := `
		INSERT INTO pipeline_stages (` + stageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`

	_, err := t.tx.Exec(ctx, query,
		stage.ID, t.companyID, stage.Name, stage.Description, stage.Order, string(stage.Category), stage.Probability, stage.Color,
		stage.IsActive, stage.IsDefault, stage.AutoAdvance, stage.AutoAdvanceDays, stage.NotifyOnEnter, stage.NotifyOnExit,
		uuidStrings(stage.NotifyUsers), nonNil(stage.RequiredFields), nonNil(stage.AllowedStages),
		stage.CreatedBy, stage.CreatedByName, stage.UpdatedBy, stage.UpdatedByName, stage.CreatedAt, stage.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(fmt.Errorf("insert pipeline stage: %w", err), stage.Name)
	}
	return nil
}

func (t *pgStageTx) Save(ctx context.Context, stage domain.Stage) error {
	return saveStage(ctx, t.tx, stage)
}

func (t *pgStageTx) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM pipeline_stages WHERE id = $1 AND company_id = $2`, id, t.companyID)
	if err != nil {
		return fmt.Errorf("delete pipeline stage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound()
	}
	return nil
}

// ApplyOrder writes the plan in one statement; the order constraint is checked at commit.
func (t *pgStageTx) ApplyOrder(ctx context.Context, plan []domain.Placement) error {
	if len(plan) == 0 {
		return nil
	}
	ids := make([]string, len(plan))
	orders := make([]int32, len(plan))
	for i, p := range plan {
		ids[i] = p.StageID.String()
		orders[i] = int32(p.Order)
	}

	query := `
		UPDATE pipeline_stages AS s
		SET stage_order = v.stage_order, updated_at = now()
		FROM unnest($2::uuid[], $3::int[]) AS v(id, stage_order)
		WHERE s.company_id = $1 AND s.id = v.id`

	tag, err := t.tx.Exec(ctx, query, t.companyID, ids, orders)
	if err != nil {
		return fmt.Errorf("apply stage order: %w", err)
	}
	if tag.RowsAffected() != int64(len(plan)) {
		return domain.ErrInconsistent("stage set changed while reordering")
	}
	return nil
}

func saveStage(ctx context.Context, q querier, stage domain.Stage) error {
	query := `
		UPDATE pipeline_stages SET
			name = $3, description = $4, category = $5, probability = $6, color = $7,
			is_active = $8, auto_advance = $9, auto_advance_days = $10,
			notify_on_enter = $11, notify_on_exit = $12, notify_users = $13,
			required_fields = $14, allowed_stages = $15,
			updated_by = $16, updated_by_name = $17, updated_at = $18
		WHERE id = $1 AND company_id = $2`

	tag, err := q.Exec(ctx, query,
		stage.ID, stage.CompanyID, stage.Name, stage.Description, string(stage.Category), stage.Probability, stage.Color,
		stage.IsActive, stage.AutoAdvance, stage.AutoAdvanceDays,
		stage.NotifyOnEnter, stage.NotifyOnExit, uuidStrings(stage.NotifyUsers),
		nonNil(stage.RequiredFields), nonNil(stage.AllowedStages),
		stage.UpdatedBy, stage.UpdatedByName, stage.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(fmt.Errorf("update pipeline stage: %w", err), stage.Name)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound()
	}
	return nil
}

func listStages(ctx context.Context, q querier, op, query string, args ...any) ([]domain.Stage, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	stages := make([]domain.Stage, 0)
	for rows.Next() {
		st, err := scanStage(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		stages = append(stages, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return stages, nil
}

func scanStage(row pgx.Row) (domain.Stage, error) {
	var (
		st                domain.Stage
		category          string
		notifyUsers       []string
		createdAt, updAt  time.Time
		requiredFields    []string
		allowedStageNames []string
	)

	err := row.Scan(
		&st.ID, &st.CompanyID, &st.Name, &st.Description, &st.Order, &category, &st.Probability, &st.Color,
		&st.IsActive, &st.IsDefault, &st.AutoAdvance, &st.AutoAdvanceDays, &st.NotifyOnEnter, &st.NotifyOnExit,
		&notifyUsers, &requiredFields, &allowedStageNames,
		&st.CreatedBy, &st.CreatedByName, &st.UpdatedBy, &st.UpdatedByName, &createdAt, &updAt,
	)
	if err != nil {
		return domain.Stage{}, err
	}

	st.Category = domain.Category(category)
	st.RequiredFields = requiredFields
	st.AllowedStages = allowedStageNames
	st.CreatedAt = createdAt
	st.UpdatedAt = updAt
	for _, raw := range notifyUsers {
		if id, err := uuid.Parse(raw); err == nil {
			st.NotifyUsers = append(st.NotifyUsers, id)
		}
	}
	return st, nil
}

func mapWriteError(err error, name string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if pgErr.ConstraintName == nameIndex {
			return domain.ErrNameTaken(name)
		}
		return domain.ErrInconsistent("stage order collided with a concurrent change")
	}
	return err
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
