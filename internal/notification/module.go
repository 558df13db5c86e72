// Package notification turns deal stage transitions into in-app notifications
// for each stage's configured recipients. Dispatch goes through a
// transactional outbox so it is decoupled from the stage mutation that
// triggered it.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pipeline_backend/internal/events"
	apphttp "pipeline_backend/internal/http"
	notifhandler "pipeline_backend/internal/notification/handler"
	"pipeline_backend/internal/notification/inapp"
	"pipeline_backend/internal/notification/outbox"
	"pipeline_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	maxOutboxRetryAttempts = 5
	outboxRetryBaseDelay   = 30 * time.Second
	outboxRetryMaxDelay    = 30 * time.Minute
)

// outboxStore is everything the module needs from the outbox table.
type outboxStore interface {
	outbox.Writer
	outbox.Store
}

// Module is the notification bounded context module implementing http.Module.
type Module struct {
	outbox     outboxStore
	dispatcher *Dispatcher
	inapp      *inapp.Service
	handler    *notifhandler.HTTPHandler
	log        *logger.Logger
	now        func() time.Time
}

// New creates the notification module backed by Postgres.
func New(pool *pgxpool.Pool, log *logger.Logger) *Module {
	return newModule(outbox.New(pool), inapp.NewRepository(pool), log)
}

func newModule(box outboxStore, inbox inapp.Store, log *logger.Logger) *Module {
	if log == nil {
		log = logger.Discard()
	}
	svc := inapp.NewService(inbox, log)
	return &Module{
		outbox:     box,
		dispatcher: NewDispatcher(box, log),
		inapp:      svc,
		handler:    notifhandler.NewHTTPHandler(svc),
		log:        log,
		now:        time.Now,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// Dispatcher returns the stage notification dispatcher.
func (m *Module) Dispatcher() *Dispatcher {
	return m.dispatcher
}

// RegisterRoutes mounts the in-app inbox on the protected group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/notifications"))
}

// RegisterHandlers subscribes the module to the events it reacts to.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.DealStageChanged{}.EventName(), m)
	bus.Subscribe(events.NotificationOutboxDue{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.DealStageChanged:
		return m.handleDealStageChanged(ctx, e)
	case events.NotificationOutboxDue:
		return m.handleNotificationOutboxDue(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleDealStageChanged(ctx context.Context, e events.DealStageChanged) error {
	if e.From != nil {
		m.dispatcher.OnExit(ctx, e.CompanyID, e.DealID, *e.From)
	}
	m.dispatcher.OnEnter(ctx, e.CompanyID, e.DealID, e.To)
	return nil
}

func (m *Module) handleNotificationOutboxDue(ctx context.Context, e events.NotificationOutboxDue) error {
	m.log.Info("processing outbox due event", "outboxId", e.OutboxID, "companyId", e.CompanyID)
	rec, process, err := m.prepareOutboxRecord(ctx, e.OutboxID)
	if err != nil || !process {
		if err != nil {
			m.log.Error("failed to prepare outbox record", "outboxId", e.OutboxID, "error", err)
		}
		return err
	}

	if rec.Kind != outbox.KindPipelineStage {
		m.markOutboxUnsupported(ctx, rec)
		return nil
	}

	var processErr error
	switch rec.Template {
	case outbox.TemplateStageEntered, outbox.TemplateStageExited:
		processErr = m.deliverStageNotification(ctx, rec)
	default:
		m.markOutboxUnsupported(ctx, rec)
		return nil
	}

	if processErr != nil {
		return m.handleOutboxDeliveryError(ctx, rec, processErr)
	}
	if err := m.outbox.MarkSucceeded(ctx, rec.ID); err != nil {
		return fmt.Errorf("mark outbox succeeded: %w", err)
	}
	m.log.Info("outbox record processed successfully", "outboxId", rec.ID.String(), "kind", rec.Kind, "template", rec.Template)

	return nil
}

func (m *Module) prepareOutboxRecord(ctx context.Context, outboxID uuid.UUID) (outbox.Record, bool, error) {
	rec, err := m.outbox.GetByID(ctx, outboxID)
	if err != nil {
		return outbox.Record{}, false, err
	}
	if rec.Status == outbox.StatusSucceeded || rec.Status == outbox.StatusFailed {
		m.log.Debug("outbox record already settled; skipping", "outboxId", rec.ID.String(), "status", rec.Status)
		return rec, false, nil
	}
	if err := m.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return outbox.Record{}, false, err
	}
	m.log.Debug("outbox record marked processing", "outboxId", rec.ID.String(), "kind", rec.Kind, "template", rec.Template)
	return rec, true, nil
}

func (m *Module) deliverStageNotification(ctx context.Context, rec outbox.Record) error {
	var payload outbox.StageNotificationPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		return fmt.Errorf("decode stage notification payload: %w", err)
	}

	title, content := renderStageNotification(payload)
	dealID, sourceID := payload.DealID, rec.ID
	if _, err := m.inapp.Send(ctx, inapp.SendParams{
		CompanyID:    rec.CompanyID,
		UserID:       payload.RecipientID,
		Title:        title,
		Content:      content,
		ResourceID:   &dealID,
		ResourceType: "deal",
		Category:     "info",
		SourceID:     &sourceID,
	}); err != nil {
		return fmt.Errorf("notify %s: %w", payload.RecipientID, err)
	}
	return nil
}

func renderStageNotification(p outbox.StageNotificationPayload) (title, content string) {
	if p.Event == eventExited {
		return fmt.Sprintf("Deal left %s", p.StageName),
			fmt.Sprintf("Deal %s moved out of the %q stage.", p.DealID, p.StageName)
	}
	return fmt.Sprintf("Deal entered %s", p.StageName),
		fmt.Sprintf("Deal %s moved into the %q stage.", p.DealID, p.StageName)
}

// handleOutboxDeliveryError reschedules the record with backoff. The outbox
// owns retries, so the task itself succeeds unless rescheduling fails.
func (m *Module) handleOutboxDeliveryError(ctx context.Context, rec outbox.Record, deliveryErr error) error {
	attempt := rec.Attempts + 1
	if attempt >= maxOutboxRetryAttempts {
		_ = m.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Warn("notification outbox exhausted retries",
			"outboxId", rec.ID.String(),
			"template", rec.Template,
			"attempt", attempt,
			"maxAttempts", maxOutboxRetryAttempts,
			"error", deliveryErr,
		)
		return nil
	}

	retryAt := m.now().UTC().Add(outbox.RetryDelay(attempt, outboxRetryBaseDelay, outboxRetryMaxDelay))
	if err := m.outbox.ScheduleRetry(ctx, rec.ID, retryAt, deliveryErr.Error()); err != nil {
		_ = m.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Error("notification outbox retry scheduling failed; marked failed",
			"outboxId", rec.ID.String(),
			"attempt", attempt,
			"error", err,
		)
		return err
	}

	m.log.Warn("notification outbox scheduled retry",
		"outboxId", rec.ID.String(),
		"template", rec.Template,
		"attempt", attempt,
		"retryAt", retryAt,
		"error", deliveryErr,
	)
	return nil
}

func (m *Module) markOutboxUnsupported(ctx context.Context, rec outbox.Record) {
	msg := fmt.Sprintf("unsupported outbox record %s/%s", rec.Kind, rec.Template)
	_ = m.outbox.MarkFailed(ctx, rec.ID, msg)
	m.log.Warn("notification outbox record unsupported", "outboxId", rec.ID.String(), "kind", rec.Kind, "template", rec.Template)
}

// Compile-time checks.
var (
	_ apphttp.Module          = (*Module)(nil)
	_ apphttp.EventSubscriber = (*Module)(nil)
	_ events.Handler          = (*Module)(nil)
)
