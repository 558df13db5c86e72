package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pipeline_backend/internal/adapters"
	"pipeline_backend/internal/events"
	"pipeline_backend/internal/notification"
	"pipeline_backend/internal/notification/outbox"
	"pipeline_backend/internal/pipeline/repository"
	"pipeline_backend/internal/pipeline/service"
	"pipeline_backend/internal/scheduler"
	"pipeline_backend/platform/config"
	"pipeline_backend/platform/db"
	"pipeline_backend/platform/lock"
	"pipeline_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const (
	lockPrefix      = "pipeline:lock:"
	lockPingTimeout = 3 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	// Worker-side consumers of scheduler tasks.
	notificationModule := notification.New(pool, log)
	notificationModule.RegisterHandlers(eventBus)
	adapters.NewDealAdvanceForwarder(cfg, log).RegisterHandlers(eventBus)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	locker, closeLocker := initLocker(ctx, cfg, log)
	defer closeLocker()

	policy := service.NewAutoAdvancePolicy(repository.New(pool), repository.NewPlacements(pool), log)
	sweeper := scheduler.NewAutoAdvanceSweeper(policy, locker, client,
		cfg.GetAutoAdvanceSweepInterval(), cfg.GetAutoAdvanceLockTTL(), log)

	outboxDispatcher := scheduler.NewNotificationOutboxDispatcher(client, outbox.New(pool), cfg.GetOutboxPollInterval(), log)

	worker, err := scheduler.NewWorker(cfg, eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { outboxDispatcher.Run(gctx); return nil })
	g.Go(func() error { sweeper.Run(gctx); return nil })
	g.Go(func() error { worker.Run(gctx); return nil })

	_ = g.Wait()
	log.Info("scheduler stopped")
}

// initLocker prefers a Redis lock so replicas share one sweeper; without
// Redis the lock only guards this process.
func initLocker(ctx context.Context, cfg config.SchedulerConfig, log *logger.Logger) (lock.Locker, func()) {
	pingCtx, cancel := context.WithTimeout(ctx, lockPingTimeout)
	defer cancel()
	redisLocker, closeFn, err := lock.NewRedisFromURL(pingCtx, cfg.GetRedisURL(), lockPrefix, cfg.GetRedisTLSInsecure())
	if err != nil {
		log.Warn("redis lock unavailable; falling back to in-process lock", "error", err)
		return lock.NewLocal(), func() {}
	}
	return redisLocker, func() { _ = closeFn() }
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
