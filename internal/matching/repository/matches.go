package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"realty_crm_backend/internal/matching/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// StoredMatch is a persisted match joined with its property summary.
type StoredMatch struct {
	domain.MatchRecord
	PropertyCode   string
	PropertyTitle  string
	FirstMatchedAt time.Time
	UpdatedAt      time.Time
}

// UpsertMatch inserts or overwrites the match for (lead, property).
func (r *Repository) UpsertMatch(ctx context.Context, m domain.MatchRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO matches (
			lead_id, property_id, client_id, operation_type, score, distance_km,
			proximity_score, price_score, mandatory_score, extras_score,
			reasons, attention_points, trigger
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (lead_id, property_id) DO UPDATE SET
			operation_type   = EXCLUDED.operation_type,
			score            = EXCLUDED.score,
			distance_km      = EXCLUDED.distance_km,
			proximity_score  = EXCLUDED.proximity_score,
			price_score      = EXCLUDED.price_score,
			mandatory_score  = EXCLUDED.mandatory_score,
			extras_score     = EXCLUDED.extras_score,
			reasons          = EXCLUDED.reasons,
			attention_points = EXCLUDED.attention_points,
			trigger          = EXCLUDED.trigger,
			updated_at       = now()`,
		m.LeadID, m.PropertyID, m.ClientID, string(m.Operation), m.Score, m.DistanceKm,
		m.Breakdown.Proximity, m.Breakdown.Price, m.Breakdown.Mandatory, m.Breakdown.Extras,
		nonNil(m.Reasons), nonNil(m.AttentionPoints), string(m.Trigger),
	)
	if err != nil {
		return fmt.Errorf("upsert match %s/%s: %w", m.LeadID, m.PropertyID, err)
	}
	return nil
}

// ListLeadMatches returns the stored matches of a lead, best first.
func (r *Repository) ListLeadMatches(ctx context.Context, leadID uuid.UUID) ([]StoredMatch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.lead_id, m.property_id, m.client_id, m.operation_type, m.score, m.distance_km,
		       m.proximity_score, m.price_score, m.mandatory_score, m.extras_score,
		       m.reasons, m.attention_points, m.trigger, m.first_matched_at, m.updated_at,
		       p.code, p.title
		FROM matches m
		JOIN properties p ON p.id = m.property_id
		WHERE m.lead_id = $1
		ORDER BY m.score DESC, m.distance_km ASC NULLS LAST`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list lead matches: %w", err)
	}
	defer rows.Close()

	items := make([]StoredMatch, 0)
	for rows.Next() {
		var (
			m           StoredMatch
			op, trigger string
		)
		if err := rows.Scan(
			&m.LeadID, &m.PropertyID, &m.ClientID, &op, &m.Score, &m.DistanceKm,
			&m.Breakdown.Proximity, &m.Breakdown.Price, &m.Breakdown.Mandatory, &m.Breakdown.Extras,
			&m.Reasons, &m.AttentionPoints, &trigger, &m.FirstMatchedAt, &m.UpdatedAt,
			&m.PropertyCode, &m.PropertyTitle,
		); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		m.Operation = domain.OperationType(op)
		m.Trigger = domain.Trigger(trigger)
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// LeadClientID returns the client that owns a lead.
func (r *Repository) LeadClientID(ctx context.Context, leadID uuid.UUID) (string, error) {
	var clientID string
	err := r.pool.QueryRow(ctx, `SELECT client_id FROM leads WHERE id = $1`, leadID).Scan(&clientID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get lead client: %w", err)
	}
	return clientID, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
