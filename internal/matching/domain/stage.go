package domain

// CRM pipeline stages in which a lead is worth matching automatically.
const (
	StageVisitScheduled = "visit_scheduled"
	StageVisitCompleted = "visit_completed"
	StageProposalSent   = "proposal_sent"
	StageInService      = "in_service"
	StageNegotiating    = "negotiating"
)

// DefaultEligibleStages is used when no allowlist is configured.
var DefaultEligibleStages = []string{
	StageVisitScheduled,
	StageVisitCompleted,
	StageProposalSent,
	StageInService,
	StageNegotiating,
}
