package repository

import (
	"context"
	"fmt"

	"realty_crm_backend/internal/matching/domain"
)

// PropertyStats counts the active properties of one operation type.
type PropertyStats struct {
	Total      int
	Geolocated int
}

// LeadStats counts active leads by interest.
type LeadStats struct {
	SaleOnly   int
	RentalOnly int
	Both       int
	Undefined  int
	Geolocated int
	Eligible   int
}

// Stats is the raw material of the matching statistics endpoint.
type Stats struct {
	Properties map[domain.OperationType]PropertyStats
	Leads      LeadStats
	Matches    int
}

// ClientStats aggregates property, lead and match counts for a client.
func (r *Repository) ClientStats(ctx context.Context, clientID string, stages []string) (Stats, error) {
	stats := Stats{Properties: make(map[domain.OperationType]PropertyStats)}

	rows, err := r.pool.Query(ctx, `
		SELECT operation_type,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE latitude IS NOT NULL AND longitude IS NOT NULL)
		FROM properties
		WHERE client_id = $1 AND active
		GROUP BY operation_type`, clientID)
	if err != nil {
		return Stats{}, fmt.Errorf("count properties: %w", err)
	}
	for rows.Next() {
		var (
			op string
			ps PropertyStats
		)
		if err := rows.Scan(&op, &ps.Total, &ps.Geolocated); err != nil {
			rows.Close()
			return Stats{}, fmt.Errorf("scan property stats: %w", err)
		}
		stats.Properties[domain.OperationType(op)] = ps
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	err = r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE wants_sale AND NOT wants_rental),
			COUNT(*) FILTER (WHERE wants_rental AND NOT wants_sale),
			COUNT(*) FILTER (WHERE wants_sale AND wants_rental),
			COUNT(*) FILTER (WHERE NOT wants_sale AND NOT wants_rental),
			COUNT(*) FILTER (WHERE latitude IS NOT NULL AND longitude IS NOT NULL),
			COUNT(*) FILTER (WHERE crm_stage = ANY($2))
		FROM leads
		WHERE client_id = $1 AND active`, clientID, stages).Scan(
		&stats.Leads.SaleOnly, &stats.Leads.RentalOnly, &stats.Leads.Both,
		&stats.Leads.Undefined, &stats.Leads.Geolocated, &stats.Leads.Eligible,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("count leads: %w", err)
	}

	err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM matches WHERE client_id = $1`, clientID).Scan(&stats.Matches)
	if err != nil {
		return Stats{}, fmt.Errorf("count matches: %w", err)
	}
	return stats, nil
}
