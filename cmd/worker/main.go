package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"realty_crm_backend/internal/email"
	"realty_crm_backend/internal/events"
	"realty_crm_backend/internal/imports"
	"realty_crm_backend/internal/matching"
	"realty_crm_backend/internal/matching/service"
	"realty_crm_backend/internal/notification"
	"realty_crm_backend/internal/reports"
	"realty_crm_backend/internal/scheduler"
	"realty_crm_backend/internal/whatsapp"
	"realty_crm_backend/platform/config"
	"realty_crm_backend/platform/db"
	"realty_crm_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, closeLog := logger.FromConfig(cfg.Env, cfg)
	defer func() { _ = closeLog() }()
	log.Info("starting matching worker", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

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
	defer eventBus.Wait()

	// Notification module subscribes to matching events (not HTTP-facing)
	var wa notification.WhatsAppSender
	if client := whatsapp.NewClient(cfg, log); client != nil {
		wa = client
	} else {
		log.Warn("WHATSAPP_URL not configured; lead notifications disabled")
	}
	notification.New(wa, email.NewSender(cfg), log).RegisterHandlers(eventBus)

	var archive service.ReportArchive
	if cfg.IsMinIOEnabled() {
		a, err := reports.NewMinIOArchive(cfg)
		if err != nil {
			log.Error("failed to initialize report archive", "error", err)
			panic("failed to initialize report archive: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure match-reports bucket", 5, 2*time.Second, func() error {
			return a.EnsureBucket(ctx)
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err)
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		archive = a
	}

	matchingSvc, matchingRepo, err := matching.NewService(pool, eventBus, archive, cfg, log)
	if err != nil {
		log.Error("failed to initialize matching service", "error", err)
		panic("failed to initialize matching service: " + err.Error())
	}

	enqueuer, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task client", "error", err)
		panic("failed to initialize task client: " + err.Error())
	}
	defer func() { _ = enqueuer.Close() }()

	rdb, err := scheduler.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		panic("failed to initialize redis client: " + err.Error())
	}
	defer func() { _ = rdb.Close() }()

	worker, err := scheduler.NewWorker(cfg, matchingSvc, matchingRepo, enqueuer, scheduler.NewRunLock(rdb, cfg.GetMatchingRunLockTTL()), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(gctx) })
	g.Go(func() error { return periodic.Run(gctx) })

	if cfg.IsAMQPEnabled() {
		consumer, err := imports.NewConsumer(cfg, enqueuer, log)
		if err != nil {
			log.Error("failed to initialize property import consumer", "error", err)
			panic("failed to initialize property import consumer: " + err.Error())
		}
		g.Go(func() error { return runConsumer(gctx, consumer, log) })
	} else {
		log.Warn("AMQP_URL not configured; property import events will not be consumed")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("worker stopped")
}

// runConsumer reconnects after broker failures until ctx is cancelled.
func runConsumer(ctx context.Context, consumer *imports.Consumer, log *logger.Logger) error {
	for attempt := 1; ; attempt++ {
		err := consumer.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		delay := time.Duration(min(attempt*attempt, 30)) * time.Second
		log.Warn("property import consumer disconnected", "error", err, "attempt", attempt, "retryIn", delay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
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
