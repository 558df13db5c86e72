package repository

import (
	"context"

	"pipeline_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

// ListFilter narrows a stage listing; nil fields match everything.
type ListFilter struct {
	Category *domain.Category
	IsActive *bool
}

// Matches reports whether st passes the filter.
func (f ListFilter) Matches(st domain.Stage) bool {
	if f.Category != nil && st.Category != *f.Category {
		return false
	}
	if f.IsActive != nil && st.IsActive != *f.IsActive {
		return false
	}
	return true
}

// StageReader provides read operations for stages.
type StageReader interface {
	GetByID(ctx context.Context, companyID, id uuid.UUID) (domain.Stage, error)
	List(ctx context.Context, companyID uuid.UUID, filter ListFilter) ([]domain.Stage, error)
	// ListAutoAdvance returns every stage with auto advance enabled, across companies.
	ListAutoAdvance(ctx context.Context) ([]domain.Stage, error)
}

// StageTx is a company-scoped unit of work. All stages of the company are
// locked for its duration, and nothing is persisted unless the callback
// returns nil.
type StageTx interface {
	// Stages returns every stage of the company, ordered.
	Stages(ctx context.Context) ([]domain.Stage, error)
	Insert(ctx context.Context, stage domain.Stage) error
	Save(ctx context.Context, stage domain.Stage) error
	Delete(ctx context.Context, id uuid.UUID) error
	ApplyOrder(ctx context.Context, plan []domain.Placement) error
}

// StageWriter provides serialized write access per company.
type StageWriter interface {
	InCompanyTx(ctx context.Context, companyID uuid.UUID, fn func(ctx context.Context, tx StageTx) error) error
}

// Repository combines reads and writes.
type Repository interface {
	StageReader
	StageWriter
}
