package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateStageRequest contains data for creating a new pipeline stage.
type CreateStageRequest struct {
	Name            string      `json:"name" validate:"required,min=1,max=100"`
	Description     *string     `json:"description,omitempty" validate:"omitempty,max=500"`
	Category        string      `json:"category,omitempty" validate:"omitempty,oneof=open won lost"`
	Probability     int         `json:"probability" validate:"min=0,max=100"`
	Color           string      `json:"color,omitempty" validate:"omitempty,max=20"`
	IsActive        *bool       `json:"isActive,omitempty"`
	AutoAdvance     bool        `json:"autoAdvance"`
	AutoAdvanceDays *int        `json:"autoAdvanceDays,omitempty" validate:"omitempty,min=1,max=365"`
	NotifyOnEnter   bool        `json:"notifyOnEnter"`
	NotifyOnExit    bool        `json:"notifyOnExit"`
	NotifyUsers     []uuid.UUID `json:"notifyUsers,omitempty" validate:"omitempty,max=100"`
	RequiredFields  []string    `json:"requiredFields,omitempty" validate:"omitempty,max=50,dive,fieldtoken,max=100"`
	AllowedStages   []string    `json:"allowedStages,omitempty" validate:"omitempty,max=100,dive,min=1,max=100"`
	Position        *int        `json:"position,omitempty" validate:"omitempty,min=0"`
}

// UpdateStageRequest contains data for updating an existing stage. Absent fields are unchanged.
type UpdateStageRequest struct {
	Name            *string      `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Description     *string      `json:"description,omitempty" validate:"omitempty,max=500"`
	Order           *int         `json:"order,omitempty" validate:"omitempty,min=0"`
	Category        *string      `json:"category,omitempty" validate:"omitempty,oneof=open won lost"`
	Probability     *int         `json:"probability,omitempty" validate:"omitempty,min=0,max=100"`
	Color           *string      `json:"color,omitempty" validate:"omitempty,min=1,max=20"`
	IsActive        *bool        `json:"isActive,omitempty"`
	AutoAdvance     *bool        `json:"autoAdvance,omitempty"`
	AutoAdvanceDays *int         `json:"autoAdvanceDays,omitempty" validate:"omitempty,min=1,max=365"`
	NotifyOnEnter   *bool        `json:"notifyOnEnter,omitempty"`
	NotifyOnExit    *bool        `json:"notifyOnExit,omitempty"`
	NotifyUsers     *[]uuid.UUID `json:"notifyUsers,omitempty" validate:"omitempty,max=100"`
	RequiredFields  *[]string    `json:"requiredFields,omitempty" validate:"omitempty,max=50,dive,fieldtoken,max=100"`
	AllowedStages   *[]string    `json:"allowedStages,omitempty" validate:"omitempty,max=100,dive,min=1,max=100"`
}

// ListStagesRequest holds query filters for listing stages.
type ListStagesRequest struct {
	CompanyID string `form:"companyId" validate:"omitempty,uuid"`
	Category  string `form:"category" validate:"omitempty,oneof=open won lost"`
	IsActive  *bool  `form:"isActive"`
}

// ReorderRequest contains the complete new order of a company's stages.
type ReorderRequest struct {
	Stages []ReorderItem `json:"stages" validate:"required,min=1,dive"`
}

// ReorderItem represents a single stage in a reorder request.
type ReorderItem struct {
	ID    uuid.UUID `json:"id" validate:"required"`
	Order int       `json:"order"`
}

// FieldInput is one tagged deal field. Value is interpreted according to Type.
type FieldInput struct {
	Type    string   `json:"type" validate:"required,oneof=text number date boolean select"`
	Value   any      `json:"value"`
	Options []string `json:"options,omitempty" validate:"omitempty,max=100"`
}

// TransitionRequest moves a deal into a stage.
type TransitionRequest struct {
	DealID uuid.UUID `json:"dealId" validate:"required"`
	// FromStageID is consulted only when the pipeline has no placement for the deal.
	FromStageID *uuid.UUID            `json:"fromStageId,omitempty"`
	ToStageID   uuid.UUID             `json:"toStageId" validate:"required"`
	Fields      map[string]FieldInput `json:"fields,omitempty" validate:"omitempty,dive"`
}

// TransitionResponse reports a recorded transition.
type TransitionResponse struct {
	DealID         uuid.UUID  `json:"dealId"`
	FromStageID    *uuid.UUID `json:"fromStageId,omitempty"`
	ToStageID      uuid.UUID  `json:"toStageId"`
	EnteredStageAt time.Time  `json:"enteredStageAt"`
}

// TransitionCheckResponse reports whether a transition would be accepted.
type TransitionCheckResponse struct {
	Allowed       bool     `json:"allowed"`
	Code          string   `json:"code,omitempty"`
	Reason        string   `json:"reason,omitempty"`
	MissingFields []string `json:"missingFields,omitempty"`
}

// StageResponse represents a stage in API responses.
type StageResponse struct {
	ID              uuid.UUID   `json:"id"`
	CompanyID       uuid.UUID   `json:"companyId"`
	Name            string      `json:"name"`
	Description     *string     `json:"description,omitempty"`
	Order           int         `json:"order"`
	Category        string      `json:"category"`
	Probability     int         `json:"probability"`
	Color           string      `json:"color"`
	IsActive        bool        `json:"isActive"`
	IsDefault       bool        `json:"isDefault"`
	AutoAdvance     bool        `json:"autoAdvance"`
	AutoAdvanceDays *int        `json:"autoAdvanceDays,omitempty"`
	NotifyOnEnter   bool        `json:"notifyOnEnter"`
	NotifyOnExit    bool        `json:"notifyOnExit"`
	NotifyUsers     []uuid.UUID `json:"notifyUsers"`
	RequiredFields  []string    `json:"requiredFields"`
	AllowedStages   []string    `json:"allowedStages"`
	DealCount       int64       `json:"dealCount"`
	TotalValue      float64     `json:"totalValue"`
	CreatedBy       uuid.UUID   `json:"createdBy"`
	CreatedByName   string      `json:"createdByName"`
	UpdatedBy       uuid.UUID   `json:"updatedBy"`
	UpdatedByName   string      `json:"updatedByName"`
	CreatedAt       string      `json:"createdAt"`
	UpdatedAt       string      `json:"updatedAt"`
}

// StageListResponse wraps a list of stages.
type StageListResponse struct {
	Items []StageResponse `json:"items"`
	Total int             `json:"total"`
}

// StatsResponse is the company pipeline summary.
type StatsResponse struct {
	TotalStages    int     `json:"totalStages"`
	ActiveStages   int     `json:"activeStages"`
	TotalDeals     int64   `json:"totalDeals"`
	TotalValue     float64 `json:"totalValue"`
	AvgProbability float64 `json:"avgProbability"`
}

// SeedResponse reports the outcome of default stage seeding.
type SeedResponse struct {
	Seeded bool            `json:"seeded"`
	Items  []StageResponse `json:"items"`
}

// AdvanceEventResponse is one auto-advance candidate.
type AdvanceEventResponse struct {
	DealID         uuid.UUID `json:"dealId"`
	CompanyID      uuid.UUID `json:"companyId"`
	FromStageID    uuid.UUID `json:"fromStageId"`
	FromStageName  string    `json:"fromStageName"`
	EnteredStageAt time.Time `json:"enteredStageAt"`
	EligibleAt     time.Time `json:"eligibleAt"`
}

// SweepResponse lists the current auto-advance candidates.
type SweepResponse struct {
	Events []AdvanceEventResponse `json:"events"`
	Total  int                    `json:"total"`
}
