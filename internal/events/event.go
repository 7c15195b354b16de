// Package events declares the matching domain events. The bus itself
// lives in platform/events.
package events

import (
	"realty_crm_backend/platform/events"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Matching Domain Events
// =============================================================================

// MatchSummary is one stored match, flattened for notification consumers.
type MatchSummary struct {
	LeadID       uuid.UUID `json:"leadId"`
	LeadName     string    `json:"leadName"`
	PropertyID   uuid.UUID `json:"propertyId"`
	PropertyCode string    `json:"propertyCode"`
	Neighborhood string    `json:"neighborhood"`
	Score        float64   `json:"score"`
	DistanceKm   float64   `json:"distanceKm"`
}

// MatchingCompleted is published after a batch run for a client finished.
type MatchingCompleted struct {
	BaseEvent
	ClientID          string         `json:"clientId"`
	ClientName        string         `json:"clientName"`
	NotificationEmail string         `json:"notificationEmail"`
	LeadsProcessed    int            `json:"leadsProcessed"`
	MatchesFound      int            `json:"matchesFound"`
	ReportKey         string         `json:"reportKey,omitempty"`
	TopMatches        []MatchSummary `json:"topMatches"`
}

func (e MatchingCompleted) EventName() string { return "matching.batch.completed" }

// MatchedLead is a lead found for a new property.
type MatchedLead struct {
	LeadID     uuid.UUID `json:"leadId"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Score      float64   `json:"score"`
	DistanceKm float64   `json:"distanceKm"`
}

// NewPropertyMatched is published when a newly registered property has
// interested leads.
type NewPropertyMatched struct {
	BaseEvent
	ClientID        string        `json:"clientId"`
	WhatsAppEnabled bool          `json:"whatsAppEnabled"`
	PropertyID      uuid.UUID     `json:"propertyId"`
	PropertyCode    string        `json:"propertyCode"`
	PropertyTitle   string        `json:"propertyTitle"`
	Neighborhood    string        `json:"neighborhood"`
	Operation       string        `json:"operation"`
	Leads           []MatchedLead `json:"leads"`
}

func (e NewPropertyMatched) EventName() string { return "matching.property.leads_found" }
