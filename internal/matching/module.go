// Package matching provides the property/lead matching bounded context.
// This file defines the module that wires the engine, storage and routes.
package matching

import (
	"fmt"

	"realty_crm_backend/internal/events"
	apphttp "realty_crm_backend/internal/http"
	"realty_crm_backend/internal/matching/engine"
	"realty_crm_backend/internal/matching/handler"
	"realty_crm_backend/internal/matching/repository"
	"realty_crm_backend/internal/matching/scoring"
	"realty_crm_backend/internal/matching/service"
	"realty_crm_backend/platform/config"
	"realty_crm_backend/platform/httpkit"
	"realty_crm_backend/platform/logger"
	"realty_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the matching bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	service    *service.Service
	repo       *repository.Repository
	runLimiter *httpkit.IPRateLimiter
}

// NewModule builds the matching module. archive may be nil; runs queues the
// batch endpoint's work.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, archive service.ReportArchive, runs handler.RunEnqueuer, val *validator.Validator, cfg config.MatchingConfig, log *logger.Logger) (*Module, error) {
	svc, repo, err := NewService(pool, eventBus, archive, cfg, log)
	if err != nil {
		return nil, err
	}

	return &Module{
		handler:    handler.New(svc, runs, val),
		service:    svc,
		repo:       repo,
		runLimiter: httpkit.NewMatchingRunLimiter(log),
	}, nil
}

// NewService assembles the matching service without the HTTP layer. The
// worker and the CLI use it directly.
func NewService(pool *pgxpool.Pool, eventBus events.Bus, archive service.ReportArchive, cfg config.MatchingConfig, log *logger.Logger) (*service.Service, *repository.Repository, error) {
	weights, err := scoring.LoadWeights(cfg.GetMatchingWeightsFile())
	if err != nil {
		return nil, nil, err
	}
	scorer, err := scoring.New(weights)
	if err != nil {
		return nil, nil, fmt.Errorf("build scorer: %w", err)
	}

	repo := repository.New(pool)
	opts := []service.Option{service.WithEligibleStages(cfg.GetMatchingEligibleStages())}
	if archive != nil {
		opts = append(opts, service.WithReportArchive(archive))
	}
	return service.New(repo, engine.New(scorer), eventBus, log, opts...), repo, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "matching"
}

// Service returns the matching service for the scheduler and other callers.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes the matching repository.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts matching routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/matching")
	m.handler.RegisterRoutes(group, httpkit.RequireRole(httpkit.RoleAdmin), m.runLimiter.RateLimit())
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
