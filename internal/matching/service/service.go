// Package service wires the matching engine to storage, events and the
// report archive. Each operation loads plain data, hands it to the engine
// and writes the results back.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"realty_crm_backend/internal/events"
	"realty_crm_backend/internal/geo"
	"realty_crm_backend/internal/matching/candidates"
	"realty_crm_backend/internal/matching/domain"
	"realty_crm_backend/internal/matching/engine"
	"realty_crm_backend/internal/matching/repository"
	"realty_crm_backend/internal/matching/transport"
	"realty_crm_backend/platform/apperr"
	"realty_crm_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	msgClientNotFound   = "client not found"
	msgPropertyNotFound = "property not found"
	msgLeadNotFound     = "lead not found"
	msgReportNotFound   = "no report archived for client"

	// topMatchesInEvent bounds the summary attached to MatchingCompleted.
	topMatchesInEvent = 10
	defaultNearbyMax  = 50
)

type Service struct {
	store   Store
	engine  *engine.Engine
	bus     events.Bus
	archive ReportArchive
	stages  []string
	log     *logger.Logger
	now     func() time.Time

	runs singleflight.Group
}

// Option customises a Service.
type Option func(*Service)

// WithReportArchive stores every completed batch report.
func WithReportArchive(a ReportArchive) Option {
	return func(s *Service) { s.archive = a }
}

// WithEligibleStages overrides the CRM stages considered by batch runs.
// An empty list keeps the default.
func WithEligibleStages(stages []string) Option {
	return func(s *Service) {
		if len(stages) > 0 {
			s.stages = stages
		}
	}
}

func New(store Store, eng *engine.Engine, bus events.Bus, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		engine: eng,
		bus:    bus,
		stages: domain.DefaultEligibleStages,
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunClient runs batch matching for one client. Concurrent calls for the
// same client share a single run.
func (s *Service) RunClient(ctx context.Context, clientID string) (transport.RunResponse, error) {
	// Callers waiting on the same run share it; one of them going away
	// must not cancel it for the others.
	detached := context.WithoutCancel(ctx)
	v, err, _ := s.runs.Do(clientID, func() (interface{}, error) {
		return s.runClient(detached, clientID)
	})
	if err != nil {
		return transport.RunResponse{}, err
	}
	return v.(transport.RunResponse), nil
}

func (s *Service) runClient(ctx context.Context, clientID string) (transport.RunResponse, error) {
	log := s.log.WithContext(ctx).WithClient(clientID)
	startedAt := s.now()

	cfg, err := s.store.GetClientConfig(ctx, clientID)
	if err != nil {
		return transport.RunResponse{}, apperr.Internal("load client configuration", err)
	}

	var (
		leads      []domain.Lead
		properties []domain.Property
	)
	if cfg != nil && cfg.AutoMatchingEnabled {
		leads, err = s.store.ListEligibleLeads(ctx, clientID, s.stages)
		if err != nil {
			return transport.RunResponse{}, apperr.Internal("load leads", err)
		}
		properties, err = s.store.ListActiveProperties(ctx, clientID, repository.PropertyQuery{})
		if err != nil {
			return transport.RunResponse{}, apperr.Internal("load properties", err)
		}
	}

	report := s.engine.RunFullMatching(clientID, cfg, leads, properties)
	for _, sk := range report.Skipped {
		log.EntitySkipped(sk.Kind, sk.ID.String(), sk.Reason)
	}

	resp := toRunResponse(report, leads, startedAt)
	if report.Status != engine.StatusCompleted {
		log.Info("matching run not executed", "status", report.Status)
		return resp, nil
	}

	resp.MatchesSaved = s.saveBatch(ctx, log, clientID, report)

	if s.archive != nil {
		if body, err := json.Marshal(resp); err != nil {
			log.Error("failed to encode matching report", "error", err)
		} else if key, err := s.archive.Archive(ctx, clientID, startedAt, body); err != nil {
			log.Error("failed to archive matching report", "error", err)
		} else {
			resp.ReportKey = key
		}
	}

	s.bus.Publish(ctx, events.MatchingCompleted{
		BaseEvent:         events.NewBaseEvent(),
		ClientID:          clientID,
		ClientName:        cfg.Name,
		NotificationEmail: cfg.NotificationEmail,
		LeadsProcessed:    report.LeadsProcessed,
		MatchesFound:      report.MatchesFound,
		ReportKey:         resp.ReportKey,
		TopMatches:        topMatches(report, leads, topMatchesInEvent),
	})

	log.Info("matching run finished",
		"leadsProcessed", report.LeadsProcessed,
		"leadsSkipped", report.LeadsSkipped,
		"matches", report.MatchesFound,
		"saved", resp.MatchesSaved,
		"durationMs", s.now().Sub(startedAt).Milliseconds(),
	)
	return resp, nil
}

// saveBatch upserts every match of the report. Failures are logged and the
// remaining matches are still written.
func (s *Service) saveBatch(ctx context.Context, log *logger.Logger, clientID string, report engine.BatchReport) int {
	saved := 0
	for leadID, matches := range report.Results {
		for _, m := range matches {
			distance := m.DistanceKm
			rec := domain.MatchRecord{
				LeadID:          leadID,
				PropertyID:      m.Property.ID,
				ClientID:        clientID,
				Operation:       m.Property.Operation,
				Score:           m.Score,
				DistanceKm:      &distance,
				Breakdown:       m.Breakdown,
				Reasons:         m.Reasons,
				AttentionPoints: m.AttentionPoints,
				Trigger:         domain.TriggerBatch,
			}
			if err := s.store.UpsertMatch(ctx, rec); err != nil {
				log.DatabaseError("upsert match", err)
				continue
			}
			saved++
		}
	}
	return saved
}

// LeadsForProperty lists the leads that would be matched to a property
// without storing anything.
func (s *Service) LeadsForProperty(ctx context.Context, clientID string, propertyID uuid.UUID) (transport.LeadsForPropertyResponse, error) {
	_, p, matches, skipped, err := s.reverse(ctx, clientID, propertyID)
	if err != nil {
		return transport.LeadsForPropertyResponse{}, err
	}
	return toLeadsForPropertyResponse(p, matches, skipped), nil
}

// HandleNewProperty runs the reverse lookup for a freshly registered
// property, stores the matches and announces them.
func (s *Service) HandleNewProperty(ctx context.Context, clientID string, propertyID uuid.UUID) (transport.LeadsForPropertyResponse, error) {
	cfg, p, matches, skipped, err := s.reverse(ctx, clientID, propertyID)
	if err != nil {
		return transport.LeadsForPropertyResponse{}, err
	}
	log := s.log.WithContext(ctx).WithClient(clientID)

	saved := make([]events.MatchedLead, 0, len(matches))
	for _, m := range matches {
		distance := m.DistanceKm
		rec := domain.MatchRecord{
			LeadID:          m.Lead.ID,
			PropertyID:      p.ID,
			ClientID:        clientID,
			Operation:       p.Operation,
			Score:           m.Score,
			DistanceKm:      &distance,
			Breakdown:       m.Breakdown,
			Reasons:         m.Reasons,
			AttentionPoints: m.AttentionPoints,
			Trigger:         domain.TriggerNewProperty,
		}
		if err := s.store.UpsertMatch(ctx, rec); err != nil {
			log.DatabaseError("upsert match", err)
			continue
		}
		saved = append(saved, events.MatchedLead{
			LeadID:     m.Lead.ID,
			Name:       m.Lead.Name,
			Phone:      m.Lead.Phone,
			Score:      m.Score,
			DistanceKm: m.DistanceKm,
		})
	}

	if len(saved) > 0 {
		s.bus.Publish(ctx, events.NewPropertyMatched{
			BaseEvent:       events.NewBaseEvent(),
			ClientID:        clientID,
			WhatsAppEnabled: cfg != nil && cfg.WhatsAppEnabled,
			PropertyID:      p.ID,
			PropertyCode:    p.Code,
			PropertyTitle:   p.Title,
			Neighborhood:    p.Neighborhood,
			Operation:       string(p.Operation),
			Leads:           saved,
		})
	}

	log.Info("new property matched", "propertyId", p.ID, "leads", len(matches), "saved", len(saved))
	return toLeadsForPropertyResponse(p, matches, skipped), nil
}

func (s *Service) reverse(ctx context.Context, clientID string, propertyID uuid.UUID) (*domain.ClientConfig, domain.Property, []domain.LeadMatch, []domain.Skipped, error) {
	p, err := s.store.GetProperty(ctx, clientID, propertyID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.Property{}, nil, nil, apperr.NotFound(msgPropertyNotFound)
	}
	if err != nil {
		return nil, domain.Property{}, nil, nil, apperr.Internal("load property", err)
	}

	cfg, err := s.store.GetClientConfig(ctx, clientID)
	if err != nil {
		return nil, domain.Property{}, nil, nil, apperr.Internal("load client configuration", err)
	}

	if p.Location == nil || !p.Location.Valid() {
		s.log.WithContext(ctx).EntitySkipped(domain.SkipKindProperty, p.ID.String(), domain.SkipMissingCoordinates)
		return cfg, p, nil, nil, nil
	}

	leads, err := s.store.ListLeadsInterestedIn(ctx, clientID, p.Operation)
	if err != nil {
		return nil, domain.Property{}, nil, nil, apperr.Internal("load leads", err)
	}

	matches, skipped := s.engine.FindLeadsForNewProperty(cfg, p, leads)
	for _, sk := range skipped {
		s.log.WithContext(ctx).EntitySkipped(sk.Kind, sk.ID.String(), sk.Reason)
	}
	return cfg, p, matches, skipped, nil
}

// SearchNearby lists a client's properties around a point, nearest first.
func (s *Service) SearchNearby(ctx context.Context, clientID string, req transport.NearbyRequest) (transport.NearbyResponse, error) {
	center := geo.Point{Lat: *req.Latitude, Lng: *req.Longitude}
	if !center.Valid() {
		return transport.NearbyResponse{}, apperr.Validation("invalid coordinates")
	}

	var op *domain.OperationType
	if strings.TrimSpace(req.Operation) != "" {
		parsed, err := domain.ParseOperationType(req.Operation)
		if err != nil {
			return transport.NearbyResponse{}, apperr.Validation(err.Error())
		}
		op = &parsed
	}

	radius := req.RadiusKm
	if radius <= 0 {
		cfg, err := s.store.GetClientConfig(ctx, clientID)
		if err != nil {
			return transport.NearbyResponse{}, apperr.Internal("load client configuration", err)
		}
		if cfg != nil && cfg.DefaultRadiusKm > 0 {
			radius = cfg.DefaultRadiusKm
		}
	}

	q := candidates.Query{
		ClientID:  clientID,
		Center:    center,
		RadiusKm:  radius,
		Operation: op,
		Filters:   nearbyFilters(req),
	}

	pq := repository.PropertyQuery{Operation: op, Filters: q.Filters}
	if box, ok := geo.Coverage(center, q.Radius()); ok {
		pq.Box = &box
	}
	properties, err := s.store.ListActiveProperties(ctx, clientID, pq)
	if err != nil {
		return transport.NearbyResponse{}, apperr.Internal("load properties", err)
	}

	res := candidates.Find(properties, q)
	for _, sk := range res.Skipped {
		s.log.WithContext(ctx).EntitySkipped(sk.Kind, sk.ID.String(), sk.Reason)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultNearbyMax
	}
	return toNearbyResponse(center, q.Radius(), res.Candidates, limit), nil
}

// Stats returns the matching statistics of a client.
func (s *Service) Stats(ctx context.Context, clientID string) (transport.StatsResponse, error) {
	cfg, err := s.store.GetClientConfig(ctx, clientID)
	if err != nil {
		return transport.StatsResponse{}, apperr.Internal("load client configuration", err)
	}
	if cfg == nil {
		return transport.StatsResponse{}, apperr.NotFound(msgClientNotFound)
	}

	stats, err := s.store.ClientStats(ctx, clientID, s.stages)
	if err != nil {
		return transport.StatsResponse{}, apperr.Internal("load statistics", err)
	}
	return toStatsResponse(clientID, *cfg, stats, s.engine), nil
}

// ListLeadMatches returns the stored matches of a lead. When scope is not
// empty the lead must belong to that client; other leads are reported as
// not found.
func (s *Service) ListLeadMatches(ctx context.Context, leadID uuid.UUID, scope string) (transport.LeadMatchesResponse, error) {
	owner, err := s.store.LeadClientID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.LeadMatchesResponse{}, apperr.NotFound(msgLeadNotFound)
	}
	if err != nil {
		return transport.LeadMatchesResponse{}, apperr.Internal("load lead", err)
	}
	if scope != "" && owner != scope {
		return transport.LeadMatchesResponse{}, apperr.NotFound(msgLeadNotFound)
	}

	stored, err := s.store.ListLeadMatches(ctx, leadID)
	if err != nil {
		return transport.LeadMatchesResponse{}, apperr.Internal("load matches", err)
	}
	return toLeadMatchesResponse(leadID, stored), nil
}

// LatestReport returns a short-lived download link for the client's newest
// batch report.
func (s *Service) LatestReport(ctx context.Context, clientID string) (transport.ReportLinkResponse, error) {
	loc, ok := s.archive.(ReportLocator)
	if !ok {
		return transport.ReportLinkResponse{}, apperr.Unavailable("report archive is not configured")
	}

	key, err := loc.LatestKey(ctx, clientID)
	if err != nil {
		return transport.ReportLinkResponse{}, apperr.Internal("find latest report", err)
	}
	if key == "" {
		return transport.ReportLinkResponse{}, apperr.NotFound(msgReportNotFound)
	}

	url, expiresAt, err := loc.DownloadURL(ctx, key)
	if err != nil {
		return transport.ReportLinkResponse{}, apperr.Internal("sign report url", err)
	}
	return transport.ReportLinkResponse{ClientID: clientID, Key: key, URL: url, ExpiresAt: expiresAt}, nil
}
