package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// GeocodeTarget is a lead or property whose coordinates are still missing.
type GeocodeTarget struct {
	ID      uuid.UUID
	Address string
	City    string
}

// ListUngeocodedLeads returns active leads with a search address but no center.
func (r *Repository) ListUngeocodedLeads(ctx context.Context, limit int) ([]GeocodeTarget, error) {
	return r.listTargets(ctx, `
		SELECT id, search_address, ''
		FROM leads
		WHERE active AND (latitude IS NULL OR longitude IS NULL) AND search_address <> ''
		ORDER BY updated_at DESC
		LIMIT $1`, limit)
}

// ListUngeocodedProperties returns active properties with an address but no coordinates.
func (r *Repository) ListUngeocodedProperties(ctx context.Context, limit int) ([]GeocodeTarget, error) {
	return r.listTargets(ctx, `
		SELECT id, address, city
		FROM properties
		WHERE active AND (latitude IS NULL OR longitude IS NULL) AND address <> ''
		ORDER BY updated_at DESC
		LIMIT $1`, limit)
}

// SetLeadCenter stores a geocoded search center.
func (r *Repository) SetLeadCenter(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	_, err := r.pool.Exec(ctx, `UPDATE leads SET latitude = $2, longitude = $3, updated_at = now() WHERE id = $1`, id, lat, lng)
	if err != nil {
		return fmt.Errorf("set lead center: %w", err)
	}
	return nil
}

// SetPropertyLocation stores geocoded property coordinates.
func (r *Repository) SetPropertyLocation(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	_, err := r.pool.Exec(ctx, `UPDATE properties SET latitude = $2, longitude = $3, updated_at = now() WHERE id = $1`, id, lat, lng)
	if err != nil {
		return fmt.Errorf("set property location: %w", err)
	}
	return nil
}

func (r *Repository) listTargets(ctx context.Context, query string, limit int) ([]GeocodeTarget, error) {
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list geocode targets: %w", err)
	}
	defer rows.Close()

	items := make([]GeocodeTarget, 0)
	for rows.Next() {
		var t GeocodeTarget
		if err := rows.Scan(&t.ID, &t.Address, &t.City); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}
