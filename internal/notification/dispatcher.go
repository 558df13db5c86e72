package notification

import (
	"context"

	"pipeline_backend/internal/events"
	"pipeline_backend/internal/notification/outbox"
	"pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	eventEntered = "entered"
	eventExited  = "exited"
)

// Dispatcher turns stage enter/exit transitions into outbox records. It
// never returns an error to the caller: failures are logged.
type Dispatcher struct {
	outbox outbox.Writer
	log    *logger.Logger
}

func NewDispatcher(w outbox.Writer, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Discard()
	}
	return &Dispatcher{outbox: w, log: log}
}

// OnEnter records an "entered" notification when the stage asks for one.
func (d *Dispatcher) OnEnter(ctx context.Context, companyID, dealID uuid.UUID, stage events.StageNotification) {
	if !stage.NotifyOnEnter {
		return
	}
	d.dispatch(ctx, companyID, dealID, stage, eventEntered, outbox.TemplateStageEntered)
}

// OnExit records an "exited" notification when the stage asks for one.
func (d *Dispatcher) OnExit(ctx context.Context, companyID, dealID uuid.UUID, stage events.StageNotification) {
	if !stage.NotifyOnExit {
		return
	}
	d.dispatch(ctx, companyID, dealID, stage, eventExited, outbox.TemplateStageExited)
}

func (d *Dispatcher) dispatch(ctx context.Context, companyID, dealID uuid.UUID, stage events.StageNotification, event, template string) {
	recipients := uniqueRecipients(stage.NotifyUsers)
	if len(recipients) == 0 {
		return
	}
	if d.outbox == nil {
		d.log.Debug("notification outbox not configured; dropping stage notification",
			"stageId", stage.StageID, "dealId", dealID, "event", event)
		return
	}

	recorded := 0
	for _, recipient := range recipients {
		id, err := d.outbox.Insert(ctx, outbox.InsertParams{
			CompanyID: companyID,
			Kind:      outbox.KindPipelineStage,
			Template:  template,
			Payload: outbox.StageNotificationPayload{
				Event:       event,
				StageID:     stage.StageID,
				StageName:   stage.Name,
				DealID:      dealID,
				RecipientID: recipient,
			},
		})
		if err != nil {
			d.log.Error("failed to record stage notification",
				"error", err, "companyId", companyID, "stageId", stage.StageID, "dealId", dealID,
				"event", event, "recipientId", recipient)
			continue
		}
		recorded++
		d.log.Debug("stage notification recorded", "outboxId", id, "recipientId", recipient)
	}
	d.log.Info("stage notifications recorded",
		"stageId", stage.StageID, "dealId", dealID, "event", event, "recorded", recorded, "recipients", len(recipients))
}

func uniqueRecipients(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
