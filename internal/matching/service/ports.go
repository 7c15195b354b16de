package service

import (
	"context"
	"time"

	"realty_crm_backend/internal/matching/domain"
	"realty_crm_backend/internal/matching/repository"

	"github.com/google/uuid"
)

// PropertyReader loads a client's listings.
type PropertyReader interface {
	ListActiveProperties(ctx context.Context, clientID string, q repository.PropertyQuery) ([]domain.Property, error)
	GetProperty(ctx context.Context, clientID string, id uuid.UUID) (domain.Property, error)
}

// LeadReader loads a client's leads.
type LeadReader interface {
	ListEligibleLeads(ctx context.Context, clientID string, stages []string) ([]domain.Lead, error)
	ListLeadsInterestedIn(ctx context.Context, clientID string, op domain.OperationType) ([]domain.Lead, error)
	LeadClientID(ctx context.Context, leadID uuid.UUID) (string, error)
}

// ClientConfigReader returns nil, nil for unknown clients.
type ClientConfigReader interface {
	GetClientConfig(ctx context.Context, clientID string) (*domain.ClientConfig, error)
}

// MatchStore persists and reads back match records.
type MatchStore interface {
	UpsertMatch(ctx context.Context, m domain.MatchRecord) error
	ListLeadMatches(ctx context.Context, leadID uuid.UUID) ([]repository.StoredMatch, error)
}

// StatsReader aggregates the counters behind the statistics endpoint.
type StatsReader interface {
	ClientStats(ctx context.Context, clientID string, stages []string) (repository.Stats, error)
}

// Store is everything the service reads and writes.
// *repository.Repository satisfies it.
type Store interface {
	PropertyReader
	LeadReader
	ClientConfigReader
	MatchStore
	StatsReader
}

// ReportArchive keeps a copy of each batch report and returns its key.
type ReportArchive interface {
	Archive(ctx context.Context, clientID string, startedAt time.Time, body []byte) (string, error)
}

var _ Store = (*repository.Repository)(nil)

// ReportLocator finds archived reports. An archive that also implements it
// backs the latest-report lookup.
type ReportLocator interface {
	LatestKey(ctx context.Context, clientID string) (string, error)
	DownloadURL(ctx context.Context, key string) (string, time.Time, error)
}
