// Package domain holds the plain data the matching engine works on.
// Nothing here talks to storage or the network.
package domain

import (
	"fmt"
	"strings"

	"realty_crm_backend/internal/geo"

	"github.com/google/uuid"
)

// OperationType is the business operation a property is offered for.
type OperationType string

const (
	OperationSale   OperationType = "sale"
	OperationRental OperationType = "rental"
)

// Operations lists every operation type in a stable order.
var Operations = []OperationType{OperationSale, OperationRental}

// ParseOperationType accepts the canonical names and their Portuguese forms.
func ParseOperationType(raw string) (OperationType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sale", "venda":
		return OperationSale, nil
	case "rental", "rent", "locacao", "locação", "aluguel":
		return OperationRental, nil
	}
	return "", fmt.Errorf("unknown operation type %q", raw)
}

// Furnished describes how furnished a property is.
type Furnished string

const (
	FurnishedYes     Furnished = "yes"
	FurnishedPartial Furnished = "partial"
	FurnishedNo      Furnished = "no"
)

// FurnishedPreference is what a rental lead asked for.
type FurnishedPreference string

const (
	PreferFurnished   FurnishedPreference = "yes"
	PreferUnfurnished FurnishedPreference = "no"
	PreferIndifferent FurnishedPreference = "indifferent"
)

// Property is a listing of one client. Coordinates may be absent, in
// which case the property never takes part in geographic matching.
type Property struct {
	ID           uuid.UUID
	ClientID     string
	Code         string
	Title        string
	Neighborhood string
	City         string
	Operation    OperationType
	Type         PropertyType
	Location     *geo.Point
	Bedrooms     int
	Bathrooms    int
	Parking      int
	TotalArea    *float64
	SalePrice    *float64 // sale only
	MonthlyTotal *float64 // rental only, see MonthlyTotal
	Furnished    Furnished
	AcceptsPets  bool
	Active       bool
}

// MonthlyTotal is the monthly cost of a rental: rent plus condo fee plus
// property tax. Missing parts count as zero; nil when all are missing.
func MonthlyTotal(rent, condoFee, propertyTax *float64) *float64 {
	if rent == nil && condoFee == nil && propertyTax == nil {
		return nil
	}
	var total float64
	for _, part := range []*float64{rent, condoFee, propertyTax} {
		if part != nil {
			total += *part
		}
	}
	return &total
}

// Lead is a prospective buyer or tenant with search preferences.
type Lead struct {
	ID                  uuid.UUID
	ClientID            string
	Name                string
	Phone               string
	Email               string
	WantsSale           bool
	WantsRental         bool
	Center              *geo.Point
	RadiusKm            *float64
	PropertyType        PropertyType
	BedroomsMin         int
	BedroomsMax         *int
	ParkingMin          int
	AreaMin             float64
	AreaMax             *float64
	SaleBudgetMin       *float64
	SaleBudgetMax       *float64
	RentalBudgetMax     *float64
	PetsRequired        bool
	FurnishedPreference FurnishedPreference
	Stage               string
}

// Interested reports whether the lead wants properties offered for op.
func (l Lead) Interested(op OperationType) bool {
	switch op {
	case OperationSale:
		return l.WantsSale
	case OperationRental:
		return l.WantsRental
	}
	return false
}

// ClientConfig is the per-agency matching configuration.
type ClientConfig struct {
	ClientID            string
	Name                string
	SaleEnabled         bool
	RentalEnabled       bool
	DefaultRadiusKm     float64
	AutoMatchingEnabled bool
	WhatsAppEnabled     bool
	NotificationEmail   string
}

// Enabled reports whether the client works with op.
func (c ClientConfig) Enabled(op OperationType) bool {
	switch op {
	case OperationSale:
		return c.SaleEnabled
	case OperationRental:
		return c.RentalEnabled
	}
	return false
}

// Skipped records an entity left out of a run and why.
type Skipped struct {
	Kind   string    `json:"kind"`
	ID     uuid.UUID `json:"id"`
	Reason string    `json:"reason"`
}

const (
	SkipKindLead     = "lead"
	SkipKindProperty = "property"

	SkipMissingCoordinates = "missing_coordinates"
	SkipInvalidCoordinates = "invalid_coordinates"
)
