package repository

import (
	"context"
	"fmt"

	"realty_crm_backend/internal/matching/domain"

	"github.com/jackc/pgx/v5"
)

const leadColumns = `
	l.id, l.client_id, l.name, l.phone, l.email,
	l.wants_sale, l.wants_rental, l.latitude, l.longitude, l.radius_km,
	l.property_type, l.bedrooms_min, l.bedrooms_max, l.parking_min,
	l.area_min, l.area_max, l.sale_budget_min, l.sale_budget_max,
	l.rental_budget_max, l.pets_required, l.furnished_preference, l.crm_stage`

// ListEligibleLeads returns the client's active leads whose CRM stage is in
// stages. Leads without coordinates are included so the caller can report them.
func (r *Repository) ListEligibleLeads(ctx context.Context, clientID string, stages []string) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+leadColumns+` FROM leads l
		WHERE l.client_id = $1 AND l.active AND l.crm_stage = ANY($2)
		ORDER BY l.created_at`, clientID, stages)
	if err != nil {
		return nil, fmt.Errorf("list eligible leads: %w", err)
	}
	return collectLeads(rows)
}

// ListLeadsInterestedIn returns the client's active, geolocated leads
// interested in op, whatever their stage.
func (r *Repository) ListLeadsInterestedIn(ctx context.Context, clientID string, op domain.OperationType) ([]domain.Lead, error) {
	interest := "l.wants_sale"
	if op == domain.OperationRental {
		interest = "l.wants_rental"
	}
	rows, err := r.pool.Query(ctx, `SELECT `+leadColumns+` FROM leads l
		WHERE l.client_id = $1 AND l.active AND `+interest+`
		  AND l.latitude IS NOT NULL AND l.longitude IS NOT NULL`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list interested leads: %w", err)
	}
	return collectLeads(rows)
}

func collectLeads(rows pgx.Rows) ([]domain.Lead, error) {
	defer rows.Close()

	items := make([]domain.Lead, 0)
	for rows.Next() {
		var (
			l                  domain.Lead
			lat, lng           *float64
			propertyType, pref string
		)
		err := rows.Scan(
			&l.ID, &l.ClientID, &l.Name, &l.Phone, &l.Email,
			&l.WantsSale, &l.WantsRental, &lat, &lng, &l.RadiusKm,
			&propertyType, &l.BedroomsMin, &l.BedroomsMax, &l.ParkingMin,
			&l.AreaMin, &l.AreaMax, &l.SaleBudgetMin, &l.SaleBudgetMax,
			&l.RentalBudgetMax, &l.PetsRequired, &pref, &l.Stage,
		)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		l.Center = point(lat, lng)
		l.PropertyType = domain.ParsePropertyType(propertyType)
		l.FurnishedPreference = domain.FurnishedPreference(pref)
		items = append(items, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
