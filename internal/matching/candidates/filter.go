// Package candidates selects the properties inside a search circle that
// pass a lead's hard constraints.
package candidates

import (
	"cmp"
	"slices"

	"realty_crm_backend/internal/geo"
	"realty_crm_backend/internal/matching/domain"
)

// DefaultRadiusKm applies when a query carries no positive radius.
const DefaultRadiusKm = 3.0

// Query describes one candidate search.
type Query struct {
	// ClientID restricts results to one agency when set.
	ClientID  string
	Center    geo.Point
	RadiusKm  float64
	Operation *domain.OperationType
	Filters   domain.Filters
}

// Result holds the candidates ordered by distance and the properties that
// had to be skipped because of malformed coordinates.
type Result struct {
	Candidates []domain.Candidate
	Skipped    []domain.Skipped
}

// Radius returns the effective search radius.
func (q Query) Radius() float64 {
	if q.RadiusKm > 0 {
		return q.RadiusKm
	}
	return DefaultRadiusKm
}

// Find returns the active properties within the query radius (inclusive)
// that satisfy the operation type and filters. The radius check uses the
// exact distance; the annotated distance is rounded to two decimals.
// Properties without coordinates are ignored silently while non-finite or
// out-of-range coordinates are reported.
func Find(properties []domain.Property, q Query) Result {
	radius := q.Radius()
	var res Result

	for _, p := range properties {
		if !p.Active || p.Location == nil {
			continue
		}
		if q.ClientID != "" && p.ClientID != q.ClientID {
			continue
		}
		if q.Operation != nil && p.Operation != *q.Operation {
			continue
		}
		if !p.Location.Valid() {
			res.Skipped = append(res.Skipped, domain.Skipped{
				Kind:   domain.SkipKindProperty,
				ID:     p.ID,
				Reason: domain.SkipInvalidCoordinates,
			})
			continue
		}
		if !q.Filters.Allow(p, q.Operation) {
			continue
		}

		d := geo.Distance(q.Center, *p.Location)
		if d > radius {
			continue
		}
		res.Candidates = append(res.Candidates, domain.Candidate{Property: p, DistanceKm: geo.Round(d, 2)})
	}

	slices.SortStableFunc(res.Candidates, func(a, b domain.Candidate) int {
		if c := cmp.Compare(a.DistanceKm, b.DistanceKm); c != 0 {
			return c
		}
		return cmp.Compare(a.Property.ID.String(), b.Property.ID.String())
	})
	return res
}
