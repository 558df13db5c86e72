package scheduler

import (
	"context"
	"time"

	"pipeline_backend/internal/notification/outbox"
	"pipeline_backend/platform/logger"
)

const (
	defaultOutboxPollInterval = 2 * time.Second
	outboxClaimBatch          = 50
)

// OutboxEnqueuer hands claimed outbox records to the task queue.
type OutboxEnqueuer interface {
	EnqueueOutboxDue(ctx context.Context, payload NotificationOutboxDuePayload, runAt time.Time) error
}

// NotificationOutboxDispatcher polls the outbox and enqueues due records.
type NotificationOutboxDispatcher struct {
	queue    OutboxEnqueuer
	repo     outbox.Store
	log      *logger.Logger
	interval time.Duration
}

func NewNotificationOutboxDispatcher(queue OutboxEnqueuer, repo outbox.Store, interval time.Duration, log *logger.Logger) *NotificationOutboxDispatcher {
	if interval <= 0 {
		interval = defaultOutboxPollInterval
	}
	return &NotificationOutboxDispatcher{
		queue:    queue,
		repo:     repo,
		log:      log,
		interval: interval,
	}
}

func (d *NotificationOutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.queue == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		d.poll(ctx)
	}
}

// poll claims one batch and returns how many records were enqueued.
func (d *NotificationOutboxDispatcher) poll(ctx context.Context) int {
	records, err := d.repo.ClaimPending(ctx, outboxClaimBatch)
	if err != nil {
		d.log.Warn("outbox claim failed", "error", err)
		return 0
	}

	enqueued := 0
	for _, rec := range records {
		err := d.queue.EnqueueOutboxDue(ctx, NotificationOutboxDuePayload{
			OutboxID:  rec.ID.String(),
			CompanyID: rec.CompanyID.String(),
		}, rec.RunAt)
		if err != nil {
			msg := err.Error()
			_ = d.repo.MarkPending(ctx, rec.ID, &msg)
			d.log.Warn("outbox enqueue failed; returned to pending", "outboxId", rec.ID.String(), "error", err)
			continue
		}
		enqueued++
	}
	return enqueued
}
