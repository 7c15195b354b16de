package repository

import (
	"context"
	"errors"
	"fmt"

	"realty_crm_backend/internal/matching/domain"

	"github.com/jackc/pgx/v5"
)

// GetClientConfig returns nil, nil when the client is unknown.
func (r *Repository) GetClientConfig(ctx context.Context, clientID string) (*domain.ClientConfig, error) {
	var (
		cfg   domain.ClientConfig
		email *string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT client_id, name, sale_enabled, rental_enabled, default_radius_km,
		       auto_matching_enabled, whatsapp_enabled, notification_email
		FROM clients WHERE client_id = $1`, clientID).Scan(
		&cfg.ClientID, &cfg.Name, &cfg.SaleEnabled, &cfg.RentalEnabled, &cfg.DefaultRadiusKm,
		&cfg.AutoMatchingEnabled, &cfg.WhatsAppEnabled, &email,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get client config: %w", err)
	}
	if email != nil {
		cfg.NotificationEmail = *email
	}
	return &cfg, nil
}

// ListAutoMatchingClients returns the IDs of clients with automatic
// matching switched on.
func (r *Repository) ListAutoMatchingClients(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT client_id FROM clients WHERE auto_matching_enabled ORDER BY client_id`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect clients: %w", err)
	}
	return ids, nil
}
