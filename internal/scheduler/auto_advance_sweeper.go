package scheduler

import (
	"context"
	"time"

	"pipeline_backend/internal/pipeline/domain"
	"pipeline_backend/platform/lock"
	"pipeline_backend/platform/logger"
)

const (
	defaultSweepInterval = 5 * time.Minute
	defaultSweepLockTTL  = 2 * time.Minute
	sweepLockKey         = "auto-advance-sweep"
)

// Sweeper detects deals whose auto-advance window has elapsed.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) ([]domain.AdvanceEvent, error)
}

// AutoAdvanceSweeper runs the auto-advance policy on a ticker. Across
// replicas the lock lets only one instance sweep per tick.
type AutoAdvanceSweeper struct {
	policy   Sweeper
	locker   lock.Locker
	queue    AdvanceEnqueuer
	log      *logger.Logger
	interval time.Duration
	lockTTL  time.Duration
	now      func() time.Time
}

func NewAutoAdvanceSweeper(policy Sweeper, locker lock.Locker, queue AdvanceEnqueuer, interval, lockTTL time.Duration, log *logger.Logger) *AutoAdvanceSweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if lockTTL <= 0 {
		lockTTL = defaultSweepLockTTL
	}
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &AutoAdvanceSweeper{
		policy:   policy,
		locker:   locker,
		queue:    queue,
		log:      log,
		interval: interval,
		lockTTL:  lockTTL,
		now:      time.Now,
	}
}

func (s *AutoAdvanceSweeper) Run(ctx context.Context) {
	if s == nil || s.policy == nil || s.queue == nil {
		return
	}

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// SweepResult summarises one tick.
type SweepResult struct {
	Skipped    bool
	Candidates int
	Enqueued   int
	Duplicates int
}

func (s *AutoAdvanceSweeper) tick(ctx context.Context) SweepResult {
	release, ok, err := s.locker.TryLock(ctx, sweepLockKey, s.lockTTL)
	if err != nil {
		s.log.Warn("auto-advance sweep lock failed", "error", err)
		return SweepResult{Skipped: true}
	}
	if !ok {
		s.log.Debug("auto-advance sweep held by another instance")
		return SweepResult{Skipped: true}
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("auto-advance sweep lock release failed", "error", err)
		}
	}()

	found, err := s.policy.Sweep(ctx, s.now().UTC())
	if err != nil {
		// Partial results are still enqueued; failed stages are retried next tick.
		s.log.Warn("auto-advance sweep incomplete", "error", err, "candidates", len(found))
	}

	result := SweepResult{Candidates: len(found)}
	for _, event := range found {
		enqueued, err := s.queue.EnqueueAutoAdvance(ctx, event)
		if err != nil {
			s.log.Error("auto-advance enqueue failed",
				"error", err, "dealId", event.DealID, "stageId", event.FromStageID)
			continue
		}
		if enqueued {
			result.Enqueued++
		} else {
			result.Duplicates++
		}
	}

	if result.Candidates > 0 {
		s.log.Info("auto-advance sweep completed",
			"candidates", result.Candidates, "enqueued", result.Enqueued, "duplicates", result.Duplicates)
	}
	return result
}
