package scheduler

import (
	"context"
	"errors"
	"fmt"

	"realty_crm_backend/internal/matching/transport"
	"realty_crm_backend/platform/apperr"
	"realty_crm_backend/platform/config"
	"realty_crm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// MatchingRunner is the matching service as seen by the worker.
type MatchingRunner interface {
	RunClient(ctx context.Context, clientID string) (transport.RunResponse, error)
	HandleNewProperty(ctx context.Context, clientID string, propertyID uuid.UUID) (transport.LeadsForPropertyResponse, error)
}

// ClientLister lists the clients the daily sweep covers.
type ClientLister interface {
	ListAutoMatchingClients(ctx context.Context) ([]string, error)
}

// Locker serialises runs per client.
type Locker interface {
	Acquire(ctx context.Context, clientID string) (func(context.Context) error, error)
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	matching MatchingRunner
	clients  ClientLister
	enqueuer MatchingEnqueuer
	lock     Locker
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, matching MatchingRunner, clients ClientLister, enqueuer MatchingEnqueuer, lock Locker, log *logger.Logger) (*Worker, error) {
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
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error("matching task failed", "task", task.Type(), "error", err)
		}),
	})

	w := &Worker{
		server:   server,
		mux:      asynq.NewServeMux(),
		matching: matching,
		clients:  clients,
		enqueuer: enqueuer,
		lock:     lock,
		log:      log,
	}

	w.mux.HandleFunc(TaskMatchingDailySweep, w.handleDailySweep)
	w.mux.HandleFunc(TaskMatchingRunClient, w.handleRunClient)
	w.mux.HandleFunc(TaskMatchingNewProperty, w.handleNewProperty)

	return w, nil
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.server == nil {
		return nil
	}

	if err := w.server.Start(w.mux); err != nil {
		w.log.Error("scheduler worker failed to start", "error", err)
		return err
	}
	<-ctx.Done()
	w.server.Shutdown()
	return nil
}

// handleDailySweep fans out one run_client task per client.
func (w *Worker) handleDailySweep(ctx context.Context, _ *asynq.Task) error {
	ids, err := w.clients.ListAutoMatchingClients(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, id := range ids {
		if err := w.enqueuer.EnqueueRunClient(ctx, id); err != nil {
			w.log.Error("failed to enqueue matching run", "clientId", id, "error", err)
			errs = append(errs, err)
		}
	}
	w.log.Info("daily matching sweep queued", "clients", len(ids), "failed", len(errs))
	return errors.Join(errs...)
}

func (w *Worker) handleRunClient(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseRunClientPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	log := w.log.WithClient(payload.ClientID)

	release, err := w.lock.Acquire(ctx, payload.ClientID)
	if errors.Is(err, ErrLockHeld) {
		log.Info("matching run skipped, another run holds the lock")
		return nil
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("failed to release run lock", "error", err)
		}
	}()

	resp, err := w.matching.RunClient(ctx, payload.ClientID)
	if err != nil {
		return err
	}
	log.Info("matching task finished", "status", resp.Status, "matches", resp.MatchesFound)
	return nil
}

func (w *Worker) handleNewProperty(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseNewPropertyPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	propertyID, err := uuid.Parse(payload.PropertyID)
	if err != nil {
		return fmt.Errorf("%w: invalid propertyId: %v", asynq.SkipRetry, err)
	}

	_, err = w.matching.HandleNewProperty(ctx, payload.ClientID, propertyID)
	if apperr.Is(err, apperr.KindNotFound) {
		w.log.Warn("new property task for unknown property", "clientId", payload.ClientID, "propertyId", propertyID)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return err
}
