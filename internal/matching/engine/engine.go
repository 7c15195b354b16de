// Package engine runs the two matching flows over plain data: the batch
// run that finds properties for every eligible lead of a client, and the
// reverse lookup that finds leads for one new property. It performs no I/O;
// entities it cannot use are reported back in the result.
package engine

import (
	"cmp"
	"slices"

	"realty_crm_backend/internal/geo"
	"realty_crm_backend/internal/matching/candidates"
	"realty_crm_backend/internal/matching/domain"
	"realty_crm_backend/internal/matching/scoring"

	"github.com/google/uuid"
)

// Defaults for the thresholds and the per-lead cap.
const (
	DefaultBatchThreshold   = 50.0
	DefaultReverseThreshold = 60.0
	DefaultMaxPerLead       = 10
)

// Status is the outcome of a batch run.
type Status string

const (
	StatusCompleted      Status = "completed"
	StatusDisabled       Status = "disabled"
	StatusClientNotFound Status = "client_not_found"
)

// OperationStats counts the leads evaluated for an operation type and the
// matches that reached the batch threshold, before the per-lead cap.
type OperationStats struct {
	Leads   int `json:"leads"`
	Matches int `json:"matches"`
}

// BatchReport is the result of RunFullMatching.
type BatchReport struct {
	ClientID string
	Status   Status
	Message  string
	// Results only holds leads with at least one match.
	Results        map[uuid.UUID][]domain.PropertyMatch
	LeadsProcessed int
	LeadsSkipped   int
	MatchesFound   int
	ByOperation    map[domain.OperationType]OperationStats
	Skipped        []domain.Skipped
}

// Engine ties the scorer to the matching policy.
type Engine struct {
	scorer           *scoring.Scorer
	batchThreshold   float64
	reverseThreshold float64
	maxPerLead       int
}

// Option customises an Engine.
type Option func(*Engine)

// WithBatchThreshold sets the minimum score kept by batch runs.
func WithBatchThreshold(v float64) Option { return func(e *Engine) { e.batchThreshold = v } }

// WithReverseThreshold sets the minimum score kept by the reverse lookup.
func WithReverseThreshold(v float64) Option { return func(e *Engine) { e.reverseThreshold = v } }

// WithMaxPerLead caps the matches kept per lead in batch runs.
func WithMaxPerLead(n int) Option { return func(e *Engine) { e.maxPerLead = n } }

// New builds an Engine around scorer.
func New(scorer *scoring.Scorer, opts ...Option) *Engine {
	e := &Engine{
		scorer:           scorer,
		batchThreshold:   DefaultBatchThreshold,
		reverseThreshold: DefaultReverseThreshold,
		maxPerLead:       DefaultMaxPerLead,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BatchThreshold returns the minimum score kept by batch runs.
func (e *Engine) BatchThreshold() float64 { return e.batchThreshold }

// ReverseThreshold returns the minimum score kept by the reverse lookup.
func (e *Engine) ReverseThreshold() float64 { return e.reverseThreshold }

// MaxPerLead returns the per-lead cap of batch runs.
func (e *Engine) MaxPerLead() int { return e.maxPerLead }

// Weights returns the scorer's weights.
func (e *Engine) Weights() scoring.Weights { return e.scorer.Weights() }

// RunFullMatching matches every lead against the client's properties.
// A nil cfg yields StatusClientNotFound and a disabled client yields
// StatusDisabled; neither is an error.
func (e *Engine) RunFullMatching(clientID string, cfg *domain.ClientConfig, leads []domain.Lead, properties []domain.Property) BatchReport {
	report := BatchReport{
		ClientID:    clientID,
		Results:     make(map[uuid.UUID][]domain.PropertyMatch),
		ByOperation: make(map[domain.OperationType]OperationStats),
	}
	if cfg == nil {
		report.Status = StatusClientNotFound
		report.Message = "client configuration not found"
		return report
	}
	if !cfg.AutoMatchingEnabled {
		report.Status = StatusDisabled
		report.Message = "automatic matching is disabled for this client"
		return report
	}
	report.Status = StatusCompleted

	skippedProps := make(map[uuid.UUID]bool)

	for _, lead := range leads {
		report.LeadsProcessed++

		if reason, ok := unusableCenter(lead); ok {
			report.LeadsSkipped++
			report.Skipped = append(report.Skipped, domain.Skipped{Kind: domain.SkipKindLead, ID: lead.ID, Reason: reason})
			continue
		}

		var matches []domain.PropertyMatch
		for _, op := range domain.Operations {
			if !lead.Interested(op) || !cfg.Enabled(op) {
				continue
			}
			stats := report.ByOperation[op]
			stats.Leads++

			found := candidates.Find(properties, candidates.Query{
				ClientID:  clientID,
				Center:    *lead.Center,
				RadiusKm:  searchRadius(lead, cfg),
				Operation: &op,
				Filters:   domain.LeadFilters(lead, op),
			})
			for _, s := range found.Skipped {
				if !skippedProps[s.ID] {
					skippedProps[s.ID] = true
					report.Skipped = append(report.Skipped, s)
				}
			}

			for _, c := range found.Candidates {
				distance := c.DistanceKm
				a := e.scorer.Score(lead, c.Property, &distance)
				if a.Raw < e.batchThreshold {
					continue
				}
				matches = append(matches, domain.PropertyMatch{Property: c.Property, DistanceKm: distance, Assessment: a})
				stats.Matches++
			}
			report.ByOperation[op] = stats
		}

		sortPropertyMatches(matches)
		if len(matches) > e.maxPerLead {
			matches = matches[:e.maxPerLead]
		}

		if len(matches) > 0 {
			report.Results[lead.ID] = matches
			report.MatchesFound += len(matches)
		}
	}

	return report
}

// FindLeadsForNewProperty returns the leads whose search circle contains p
// and whose score reaches the reverse threshold, best first. A property
// without usable coordinates yields no leads. cfg may be nil; its default
// radius is then not available and the 3 km fallback applies.
func (e *Engine) FindLeadsForNewProperty(cfg *domain.ClientConfig, p domain.Property, leads []domain.Lead) ([]domain.LeadMatch, []domain.Skipped) {
	if p.Location == nil || !p.Location.Valid() {
		return nil, nil
	}

	var (
		out     []domain.LeadMatch
		skipped []domain.Skipped
	)
	for _, lead := range leads {
		if !lead.Interested(p.Operation) {
			continue
		}
		if reason, ok := unusableCenter(lead); ok {
			skipped = append(skipped, domain.Skipped{Kind: domain.SkipKindLead, ID: lead.ID, Reason: reason})
			continue
		}

		d := geo.Distance(*lead.Center, *p.Location)
		if d > searchRadius(lead, cfg) {
			continue
		}
		distance := geo.Round(d, 2)
		a := e.scorer.Score(lead, p, &distance)
		if a.Raw < e.reverseThreshold {
			continue
		}
		out = append(out, domain.LeadMatch{
			Lead:       lead,
			DistanceKm: distance,
			Reason:     domain.ReasonNewProperty,
			Assessment: a,
		})
	}

	slices.SortStableFunc(out, func(a, b domain.LeadMatch) int {
		if c := cmp.Compare(b.Raw, a.Raw); c != 0 {
			return c
		}
		if c := cmp.Compare(a.DistanceKm, b.DistanceKm); c != 0 {
			return c
		}
		return cmp.Compare(a.Lead.ID.String(), b.Lead.ID.String())
	})
	return out, skipped
}

// searchRadius picks the lead radius, then the client default, then 3 km.
func searchRadius(lead domain.Lead, cfg *domain.ClientConfig) float64 {
	if lead.RadiusKm != nil && *lead.RadiusKm > 0 {
		return *lead.RadiusKm
	}
	if cfg != nil && cfg.DefaultRadiusKm > 0 {
		return cfg.DefaultRadiusKm
	}
	return candidates.DefaultRadiusKm
}

func unusableCenter(lead domain.Lead) (string, bool) {
	if lead.Center == nil {
		return domain.SkipMissingCoordinates, true
	}
	if !lead.Center.Valid() {
		return domain.SkipInvalidCoordinates, true
	}
	return "", false
}

// sortPropertyMatches orders by score, then distance, then property ID.
func sortPropertyMatches(ms []domain.PropertyMatch) {
	slices.SortStableFunc(ms, func(a, b domain.PropertyMatch) int {
		if c := cmp.Compare(b.Raw, a.Raw); c != 0 {
			return c
		}
		if c := cmp.Compare(a.DistanceKm, b.DistanceKm); c != 0 {
			return c
		}
		return cmp.Compare(a.Property.ID.String(), b.Property.ID.String())
	})
}
