package events

import (
	"time"

	"pipeline_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewBaseEventAt = events.NewBaseEventAt
)

// =============================================================================
// Pipeline Stage Events
// =============================================================================

// PipelineStageCreated is published after a stage is persisted.
type PipelineStageCreated struct {
	BaseEvent
	CompanyID uuid.UUID `json:"companyId"`
	StageID   uuid.UUID `json:"stageId"`
	Name      string    `json:"name"`
	Order     int       `json:"order"`
	ActorID   uuid.UUID `json:"actorId"`
}

func (e PipelineStageCreated) EventName() string { return "pipeline.stage.created" }

// PipelineStageUpdated is published after a stage's fields change.
type PipelineStageUpdated struct {
	BaseEvent
	CompanyID uuid.UUID `json:"companyId"`
	StageID   uuid.UUID `json:"stageId"`
	Name      string    `json:"name"`
	ActorID   uuid.UUID `json:"actorId"`
}

func (e PipelineStageUpdated) EventName() string { return "pipeline.stage.updated" }

// PipelineStageDeleted is published after a stage is removed and orders compacted.
type PipelineStageDeleted struct {
	BaseEvent
	CompanyID uuid.UUID `json:"companyId"`
	StageID   uuid.UUID `json:"stageId"`
	Name      string    `json:"name"`
	ActorID   uuid.UUID `json:"actorId"`
}

func (e PipelineStageDeleted) EventName() string { return "pipeline.stage.deleted" }

// PipelineStagesReordered is published after a bulk reorder commits.
type PipelineStagesReordered struct {
	BaseEvent
	CompanyID uuid.UUID   `json:"companyId"`
	StageIDs  []uuid.UUID `json:"stageIds"` // in new order
	ActorID   uuid.UUID   `json:"actorId"`
}

func (e PipelineStagesReordered) EventName() string { return "pipeline.stages.reordered" }

// =============================================================================
// Deal Movement Events
// =============================================================================

// StageNotification is the notification-relevant snapshot of a stage.
type StageNotification struct {
	StageID       uuid.UUID   `json:"stageId"`
	Name          string      `json:"name"`
	NotifyOnEnter bool        `json:"notifyOnEnter"`
	NotifyOnExit  bool        `json:"notifyOnExit"`
	NotifyUsers   []uuid.UUID `json:"notifyUsers"`
}

// DealStageChanged is published after a deal transition is recorded.
type DealStageChanged struct {
	BaseEvent
	CompanyID uuid.UUID `json:"companyId"`
	DealID    uuid.UUID `json:"dealId"`
	// From is nil on first placement.
	From    *StageNotification `json:"from,omitempty"`
	To      StageNotification  `json:"to"`
	ActorID uuid.UUID          `json:"actorId"`
}

func (e DealStageChanged) EventName() string { return "pipeline.deal.stage_changed" }

// DealAutoAdvanceDue is published when a deal's dwell time in an
// auto-advance stage has elapsed. The deal service picks the destination.
type DealAutoAdvanceDue struct {
	BaseEvent
	CompanyID      uuid.UUID `json:"companyId"`
	DealID         uuid.UUID `json:"dealId"`
	FromStageID    uuid.UUID `json:"fromStageId"`
	FromStageName  string    `json:"fromStageName"`
	EnteredStageAt time.Time `json:"enteredStageAt"`
	EligibleAt     time.Time `json:"eligibleAt"`
}

func (e DealAutoAdvanceDue) EventName() string { return "pipeline.deal.auto_advance_due" }

// =============================================================================
// Notification Events
// =============================================================================

// NotificationOutboxDue is published by the scheduler worker when an outbox
// record is ready for delivery.
type NotificationOutboxDue struct {
	BaseEvent
	OutboxID  uuid.UUID `json:"outboxId"`
	CompanyID uuid.UUID `json:"companyId"`
}

func (e NotificationOutboxDue) EventName() string { return "notification.outbox.due" }
