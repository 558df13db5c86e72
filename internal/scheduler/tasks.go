package scheduler

import (
	"encoding/json"
	"time"

	"pipeline_backend/internal/pipeline/domain"

	"github.com/hibiken/asynq"
)

const TaskNotificationOutboxDue = "notification.outbox.due"

const TaskAutoAdvanceDue = "pipeline.auto_advance.due"

type NotificationOutboxDuePayload struct {
	OutboxID  string `json:"outboxId"`
	CompanyID string `json:"companyId"`
}

type AutoAdvanceDuePayload struct {
	CompanyID      string    `json:"companyId"`
	DealID         string    `json:"dealId"`
	FromStageID    string    `json:"fromStageId"`
	FromStageName  string    `json:"fromStageName"`
	EnteredStageAt time.Time `json:"enteredStageAt"`
	EligibleAt     time.Time `json:"eligibleAt"`
}

func NewNotificationOutboxDueTask(payload NotificationOutboxDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationOutboxDue, data), nil
}

func ParseNotificationOutboxDuePayload(task *asynq.Task) (NotificationOutboxDuePayload, error) {
	var payload NotificationOutboxDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotificationOutboxDuePayload{}, err
	}
	return payload, nil
}

func advancePayload(e domain.AdvanceEvent) AutoAdvanceDuePayload {
	return AutoAdvanceDuePayload{
		CompanyID:      e.CompanyID.String(),
		DealID:         e.DealID.String(),
		FromStageID:    e.FromStageID.String(),
		FromStageName:  e.FromStageName,
		EnteredStageAt: e.EnteredStageAt.UTC(),
		EligibleAt:     e.EligibleAt.UTC(),
	}
}

// NewAutoAdvanceDueTask builds the task for e. Its TaskID is the event's
// dedup key, so one stay of a deal in a stage is enqueued at most once.
func NewAutoAdvanceDueTask(e domain.AdvanceEvent) (*asynq.Task, error) {
	data, err := json.Marshal(advancePayload(e))
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAutoAdvanceDue, data, asynq.TaskID(e.DedupKey())), nil
}

func ParseAutoAdvanceDuePayload(task *asynq.Task) (AutoAdvanceDuePayload, error) {
	var payload AutoAdvanceDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AutoAdvanceDuePayload{}, err
	}
	return payload, nil
}
