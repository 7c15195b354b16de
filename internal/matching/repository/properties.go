package repository

import (
	"context"
	"errors"
	"fmt"

	"realty_crm_backend/internal/matching/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const propertyColumns = `
	p.id, p.client_id, p.code, p.title, p.neighborhood, p.city,
	p.operation_type, p.property_type, p.latitude, p.longitude,
	p.bedrooms, p.bathrooms, p.parking_spaces, p.total_area,
	p.sale_price, p.rent, p.condo_fee, p.property_tax,
	p.furnished, p.accepts_pets, p.active`

// ListActiveProperties returns the client's active, geolocated properties
// that survive the SQL prefilter.
func (r *Repository) ListActiveProperties(ctx context.Context, clientID string, q PropertyQuery) ([]domain.Property, error) {
	where, args := propertyWhere(clientID, q)
	rows, err := r.pool.Query(ctx, `SELECT `+propertyColumns+` FROM properties p `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Property, 0)
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// GetProperty loads one property of a client.
func (r *Repository) GetProperty(ctx context.Context, clientID string, id uuid.UUID) (domain.Property, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties p
		WHERE p.id = $1 AND p.client_id = $2`, id, clientID)
	p, err := scanProperty(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Property{}, ErrNotFound
	}
	if err != nil {
		return domain.Property{}, fmt.Errorf("get property: %w", err)
	}
	return p, nil
}

func scanProperty(row pgx.Row) (domain.Property, error) {
	var (
		p                         domain.Property
		op, propertyType, furnish string
		lat, lng                  *float64
		rent, condoFee, tax       *float64
	)
	err := row.Scan(
		&p.ID, &p.ClientID, &p.Code, &p.Title, &p.Neighborhood, &p.City,
		&op, &propertyType, &lat, &lng,
		&p.Bedrooms, &p.Bathrooms, &p.Parking, &p.TotalArea,
		&p.SalePrice, &rent, &condoFee, &tax,
		&furnish, &p.AcceptsPets, &p.Active,
	)
	if err != nil {
		return domain.Property{}, err
	}

	p.Operation = domain.OperationType(op)
	p.Type = domain.ParsePropertyType(propertyType)
	p.Location = point(lat, lng)
	p.Furnished = domain.Furnished(furnish)
	if p.Operation == domain.OperationRental {
		p.MonthlyTotal = domain.MonthlyTotal(rent, condoFee, tax)
		p.SalePrice = nil
	}
	return p, nil
}
