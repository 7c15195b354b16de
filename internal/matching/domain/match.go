package domain

import "github.com/google/uuid"

// Breakdown holds the four sub-scores on a 0-100 scale. The Applied flags
// say whether the mandatory and extras dimensions had any check at all.
type Breakdown struct {
	Proximity        float64 `json:"proximity"`
	Price            float64 `json:"price"`
	Mandatory        float64 `json:"mandatory"`
	Extras           float64 `json:"extras"`
	MandatoryApplied bool    `json:"mandatoryApplied"`
	ExtrasApplied    bool    `json:"extrasApplied"`
}

// Assessment is the scorer's verdict for one lead/property pair.
type Assessment struct {
	// Score is clamped to [0, 100] and rounded to one decimal.
	Score float64
	// Raw is the unrounded score; thresholds compare against it.
	Raw             float64
	Breakdown       Breakdown
	Reasons         []string
	AttentionPoints []string
}

// Candidate is a property that passed the geographic and hard filters.
type Candidate struct {
	Property   Property
	DistanceKm float64 // rounded to 2 decimals
}

// PropertyMatch is a scored candidate for a lead.
type PropertyMatch struct {
	Property   Property
	DistanceKm float64
	Assessment
}

// LeadMatch is a lead found for a newly registered property.
type LeadMatch struct {
	Lead       Lead
	DistanceKm float64
	Reason     string
	Assessment
}

// ReasonNewProperty tags matches produced by the new-property trigger.
const ReasonNewProperty = "new_property_registered"

// Trigger records which flow produced a stored match.
type Trigger string

const (
	TriggerBatch       Trigger = "batch"
	TriggerNewProperty Trigger = "new_property"
)

// MatchRecord is the persisted form of a match, unique per (lead, property).
type MatchRecord struct {
	LeadID          uuid.UUID
	PropertyID      uuid.UUID
	ClientID        string
	Operation       OperationType
	Score           float64
	DistanceKm      *float64
	Breakdown       Breakdown
	Reasons         []string
	AttentionPoints []string
	Trigger         Trigger
}
