package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

// NearbyRequest is bound from the query string of the nearby search.
type NearbyRequest struct {
	Latitude     *float64 `form:"lat" validate:"required,gte=-90,lte=90"`
	Longitude    *float64 `form:"lng" validate:"required,gte=-180,lte=180"`
	RadiusKm     float64  `form:"radiusKm" validate:"omitempty,gt=0,lte=100"`
	Operation    string   `form:"operation" validate:"operation"`
	PropertyType string   `form:"propertyType" validate:"omitempty,max=50"`
	BedroomsMin  int      `form:"bedroomsMin" validate:"omitempty,gte=0,lte=20"`
	BedroomsMax  *int     `form:"bedroomsMax" validate:"omitempty,gte=0,lte=20"`
	ParkingMin   int      `form:"parkingMin" validate:"omitempty,gte=0,lte=20"`
	PriceMin     float64  `form:"priceMin" validate:"omitempty,gte=0"`
	PriceMax     float64  `form:"priceMax" validate:"omitempty,gte=0"`
	RentMax      float64  `form:"rentMax" validate:"omitempty,gte=0"`
	Furnished    string   `form:"furnished" validate:"furnished"`
	PetsRequired bool     `form:"petsRequired"`
	Limit        int      `form:"limit" validate:"omitempty,gte=1,lte=200"`
}

// Response DTOs

type Breakdown struct {
	Proximity float64 `json:"proximity"`
	Price     float64 `json:"price"`
	Mandatory float64 `json:"mandatory"`
	Extras    float64 `json:"extras"`
}

type PropertyMatch struct {
	PropertyID      uuid.UUID `json:"propertyId"`
	Code            string    `json:"code"`
	Title           string    `json:"title"`
	Neighborhood    string    `json:"neighborhood"`
	Operation       string    `json:"operation"`
	Score           float64   `json:"score"`
	DistanceKm      float64   `json:"distanceKm"`
	Breakdown       Breakdown `json:"breakdown"`
	Reasons         []string  `json:"reasons"`
	AttentionPoints []string  `json:"attentionPoints"`
}

type LeadResult struct {
	LeadID  uuid.UUID       `json:"leadId"`
	Name    string          `json:"name"`
	Matches []PropertyMatch `json:"matches"`
}

type OperationStats struct {
	Leads   int `json:"leads"`
	Matches int `json:"matches"`
}

type Skipped struct {
	Kind   string    `json:"kind"`
	ID     uuid.UUID `json:"id"`
	Reason string    `json:"reason"`
}

const RunStatusQueued = "queued"

// RunQueuedResponse acknowledges a batch run handed to the worker.
type RunQueuedResponse struct {
	ClientID string `json:"clientId"`
	Status   string `json:"status"`
}

// RunResponse is the outcome of a batch run for one client.
type RunResponse struct {
	ClientID       string                    `json:"clientId"`
	Status         string                    `json:"status"`
	Message        string                    `json:"message,omitempty"`
	StartedAt      time.Time                 `json:"startedAt"`
	LeadsProcessed int                       `json:"leadsProcessed"`
	LeadsSkipped   int                       `json:"leadsSkipped"`
	MatchesFound   int                       `json:"matchesFound"`
	MatchesSaved   int                       `json:"matchesSaved"`
	ByOperation    map[string]OperationStats `json:"byOperation"`
	Results        []LeadResult              `json:"results"`
	Skipped        []Skipped                 `json:"skipped"`
	ReportKey      string                    `json:"reportKey,omitempty"`
}

type LeadMatch struct {
	LeadID          uuid.UUID `json:"leadId"`
	Name            string    `json:"name"`
	Score           float64   `json:"score"`
	DistanceKm      float64   `json:"distanceKm"`
	Reason          string    `json:"reason"`
	Breakdown       Breakdown `json:"breakdown"`
	Reasons         []string  `json:"reasons"`
	AttentionPoints []string  `json:"attentionPoints"`
}

// LeadsForPropertyResponse lists the leads interested in one property.
type LeadsForPropertyResponse struct {
	PropertyID uuid.UUID   `json:"propertyId"`
	Code       string      `json:"code"`
	Operation  string      `json:"operation"`
	Geolocated bool        `json:"geolocated"`
	Leads      []LeadMatch `json:"leads"`
	Skipped    []Skipped   `json:"skipped"`
}

type NearbyProperty struct {
	PropertyID   uuid.UUID `json:"propertyId"`
	Code         string    `json:"code"`
	Title        string    `json:"title"`
	Neighborhood string    `json:"neighborhood"`
	Operation    string    `json:"operation"`
	PropertyType string    `json:"propertyType,omitempty"`
	DistanceKm   float64   `json:"distanceKm"`
	Bedrooms     int       `json:"bedrooms"`
	Parking      int       `json:"parking"`
	SalePrice    *float64  `json:"salePrice,omitempty"`
	MonthlyTotal *float64  `json:"monthlyTotal,omitempty"`
}

type NearbyResponse struct {
	Latitude   float64          `json:"latitude"`
	Longitude  float64          `json:"longitude"`
	RadiusKm   float64          `json:"radiusKm"`
	Total      int              `json:"total"`
	Properties []NearbyProperty `json:"properties"`
}

type PropertyStats struct {
	Total         int     `json:"total"`
	Geolocated    int     `json:"geolocated"`
	GeolocatedPct float64 `json:"geolocatedPct"`
}

type LeadStats struct {
	SaleOnly   int `json:"saleOnly"`
	RentalOnly int `json:"rentalOnly"`
	Both       int `json:"both"`
	Undefined  int `json:"undefined"`
	Geolocated int `json:"geolocated"`
	Eligible   int `json:"eligible"`
}

type Weights struct {
	Proximity    float64 `json:"proximity"`
	Price        float64 `json:"price"`
	Mandatory    float64 `json:"mandatory"`
	Extras       float64 `json:"extras"`
	Inapplicable string  `json:"inapplicable"`
}

type Policy struct {
	DefaultRadiusKm     float64 `json:"defaultRadiusKm"`
	BatchThreshold      float64 `json:"batchThreshold"`
	ReverseThreshold    float64 `json:"reverseThreshold"`
	MaxPerLead          int     `json:"maxPerLead"`
	AutoMatchingEnabled bool    `json:"autoMatchingEnabled"`
	Weights             Weights `json:"weights"`
}

type StatsResponse struct {
	ClientID   string                   `json:"clientId"`
	Properties map[string]PropertyStats `json:"properties"`
	Leads      LeadStats                `json:"leads"`
	Matches    int                      `json:"matches"`
	Policy     Policy                   `json:"policy"`
}

type StoredMatch struct {
	PropertyID      uuid.UUID `json:"propertyId"`
	Code            string    `json:"code"`
	Title           string    `json:"title"`
	Operation       string    `json:"operation"`
	Score           float64   `json:"score"`
	DistanceKm      *float64  `json:"distanceKm"`
	Breakdown       Breakdown `json:"breakdown"`
	Reasons         []string  `json:"reasons"`
	AttentionPoints []string  `json:"attentionPoints"`
	Trigger         string    `json:"trigger"`
	FirstMatchedAt  time.Time `json:"firstMatchedAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type LeadMatchesResponse struct {
	LeadID  uuid.UUID     `json:"leadId"`
	Matches []StoredMatch `json:"matches"`
}

// ReportLinkResponse points at the newest archived batch report.
type ReportLinkResponse struct {
	ClientID  string    `json:"clientId"`
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
