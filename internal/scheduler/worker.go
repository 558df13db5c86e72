package scheduler

import (
	"context"
	"errors"
	"fmt"

	"pipeline_backend/internal/events"
	"pipeline_backend/platform/config"
	"pipeline_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Worker consumes scheduler tasks and republishes them on the event bus.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	bus    events.Bus
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
		ErrorHandler: taskErrorLogger(log),
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		bus:    bus,
		log:    log,
	}

	mux.HandleFunc(TaskNotificationOutboxDue, w.handleNotificationOutboxDue)
	mux.HandleFunc(TaskAutoAdvanceDue, w.handleAutoAdvanceDue)

	return w, nil
}

// taskErrorLogger logs failed deliveries. Skipped tasks are logged at error
// level since asynq archives them without retrying.
func taskErrorLogger(log *logger.Logger) asynq.ErrorHandler {
	return asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		if errors.Is(err, asynq.SkipRetry) || retried >= maxRetry {
			log.Error("scheduler task dropped", "task", task.Type(), "retried", retried, "error", err)
			return
		}
		log.Warn("scheduler task failed; will retry", "task", task.Type(), "retried", retried, "maxRetry", maxRetry, "error", err)
	})
}

func (w *Worker) handleNotificationOutboxDue(ctx context.Context, task *asynq.Task) error {
	if w.bus == nil {
		return nil
	}

	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return fmt.Errorf("%w: outbox id: %v", asynq.SkipRetry, err)
	}

	companyID, err := uuid.Parse(payload.CompanyID)
	if err != nil {
		return fmt.Errorf("%w: company id: %v", asynq.SkipRetry, err)
	}

	return w.bus.PublishSync(ctx, events.NotificationOutboxDue{
		BaseEvent: events.NewBaseEvent(),
		OutboxID:  outboxID,
		CompanyID: companyID,
	})
}

func (w *Worker) handleAutoAdvanceDue(ctx context.Context, task *asynq.Task) error {
	if w.bus == nil {
		return nil
	}

	payload, err := ParseAutoAdvanceDuePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	event, err := payload.event()
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	return w.bus.PublishSync(ctx, event)
}

func (p AutoAdvanceDuePayload) event() (events.DealAutoAdvanceDue, error) {
	companyID, err := uuid.Parse(p.CompanyID)
	if err != nil {
		return events.DealAutoAdvanceDue{}, fmt.Errorf("company id: %w", err)
	}
	dealID, err := uuid.Parse(p.DealID)
	if err != nil {
		return events.DealAutoAdvanceDue{}, fmt.Errorf("deal id: %w", err)
	}
	stageID, err := uuid.Parse(p.FromStageID)
	if err != nil {
		return events.DealAutoAdvanceDue{}, fmt.Errorf("stage id: %w", err)
	}
	return events.DealAutoAdvanceDue{
		BaseEvent:      events.NewBaseEvent(),
		CompanyID:      companyID,
		DealID:         dealID,
		FromStageID:    stageID,
		FromStageName:  p.FromStageName,
		EnteredStageAt: p.EnteredStageAt,
		EligibleAt:     p.EligibleAt,
	}, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
