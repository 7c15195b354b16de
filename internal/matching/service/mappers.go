package service

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"realty_crm_backend/internal/events"
	"realty_crm_backend/internal/geo"
	"realty_crm_backend/internal/matching/candidates"
	"realty_crm_backend/internal/matching/domain"
	"realty_crm_backend/internal/matching/engine"
	"realty_crm_backend/internal/matching/repository"
	"realty_crm_backend/internal/matching/transport"

	"github.com/google/uuid"
)

func toBreakdown(b domain.Breakdown) transport.Breakdown {
	return transport.Breakdown{
		Proximity: b.Proximity,
		Price:     b.Price,
		Mandatory: b.Mandatory,
		Extras:    b.Extras,
	}
}

func toSkipped(items []domain.Skipped) []transport.Skipped {
	out := make([]transport.Skipped, 0, len(items))
	for _, s := range items {
		out = append(out, transport.Skipped{Kind: s.Kind, ID: s.ID, Reason: s.Reason})
	}
	return out
}

func strs(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// toRunResponse lists results in the order the leads were loaded.
func toRunResponse(r engine.BatchReport, leads []domain.Lead, startedAt time.Time) transport.RunResponse {
	resp := transport.RunResponse{
		ClientID:       r.ClientID,
		Status:         string(r.Status),
		Message:        r.Message,
		StartedAt:      startedAt,
		LeadsProcessed: r.LeadsProcessed,
		LeadsSkipped:   r.LeadsSkipped,
		MatchesFound:   r.MatchesFound,
		ByOperation:    make(map[string]transport.OperationStats, len(r.ByOperation)),
		Results:        make([]transport.LeadResult, 0, len(r.Results)),
		Skipped:        toSkipped(r.Skipped),
	}
	for op, st := range r.ByOperation {
		resp.ByOperation[string(op)] = transport.OperationStats{Leads: st.Leads, Matches: st.Matches}
	}

	for _, lead := range leads {
		matches, ok := r.Results[lead.ID]
		if !ok {
			continue
		}
		result := transport.LeadResult{
			LeadID:  lead.ID,
			Name:    lead.Name,
			Matches: make([]transport.PropertyMatch, 0, len(matches)),
		}
		for _, m := range matches {
			result.Matches = append(result.Matches, transport.PropertyMatch{
				PropertyID:      m.Property.ID,
				Code:            m.Property.Code,
				Title:           m.Property.Title,
				Neighborhood:    m.Property.Neighborhood,
				Operation:       string(m.Property.Operation),
				Score:           m.Score,
				DistanceKm:      m.DistanceKm,
				Breakdown:       toBreakdown(m.Breakdown),
				Reasons:         strs(m.Reasons),
				AttentionPoints: strs(m.AttentionPoints),
			})
		}
		resp.Results = append(resp.Results, result)
	}
	return resp
}

// topMatches flattens the report and keeps the n best matches overall.
func topMatches(r engine.BatchReport, leads []domain.Lead, n int) []events.MatchSummary {
	names := make(map[uuid.UUID]string, len(leads))
	for _, l := range leads {
		names[l.ID] = l.Name
	}

	var all []events.MatchSummary
	for leadID, matches := range r.Results {
		for _, m := range matches {
			all = append(all, events.MatchSummary{
				LeadID:       leadID,
				LeadName:     names[leadID],
				PropertyID:   m.Property.ID,
				PropertyCode: m.Property.Code,
				Neighborhood: m.Property.Neighborhood,
				Score:        m.Score,
				DistanceKm:   m.DistanceKm,
			})
		}
	}
	slices.SortFunc(all, func(a, b events.MatchSummary) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.DistanceKm, b.DistanceKm); c != 0 {
			return c
		}
		if c := cmp.Compare(a.LeadID.String(), b.LeadID.String()); c != 0 {
			return c
		}
		return cmp.Compare(a.PropertyID.String(), b.PropertyID.String())
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

func toLeadsForPropertyResponse(p domain.Property, matches []domain.LeadMatch, skipped []domain.Skipped) transport.LeadsForPropertyResponse {
	resp := transport.LeadsForPropertyResponse{
		PropertyID: p.ID,
		Code:       p.Code,
		Operation:  string(p.Operation),
		Geolocated: p.Location != nil && p.Location.Valid(),
		Leads:      make([]transport.LeadMatch, 0, len(matches)),
		Skipped:    toSkipped(skipped),
	}
	for _, m := range matches {
		resp.Leads = append(resp.Leads, transport.LeadMatch{
			LeadID:          m.Lead.ID,
			Name:            m.Lead.Name,
			Score:           m.Score,
			DistanceKm:      m.DistanceKm,
			Reason:          m.Reason,
			Breakdown:       toBreakdown(m.Breakdown),
			Reasons:         strs(m.Reasons),
			AttentionPoints: strs(m.AttentionPoints),
		})
	}
	return resp
}

// nearbyFilters maps query parameters onto hard filters. Zero values mean
// "no constraint".
func nearbyFilters(req transport.NearbyRequest) domain.Filters {
	var fs domain.Filters
	if t := domain.ParsePropertyType(req.PropertyType); t != "" {
		fs = append(fs, domain.PropertyTypeIs{Type: t})
	}
	if req.BedroomsMin > 0 {
		fs = append(fs, domain.BedroomsAtLeast{Min: req.BedroomsMin})
	}
	if req.BedroomsMax != nil {
		fs = append(fs, domain.BedroomsAtMost{Max: *req.BedroomsMax})
	}
	if req.ParkingMin > 0 {
		fs = append(fs, domain.ParkingAtLeast{Min: req.ParkingMin})
	}
	if req.PriceMin > 0 {
		fs = append(fs, domain.SalePriceAtLeast{Min: req.PriceMin})
	}
	if req.PriceMax > 0 {
		fs = append(fs, domain.SalePriceAtMost{Max: req.PriceMax})
	}
	if req.RentMax > 0 {
		fs = append(fs, domain.MonthlyTotalAtMost{Max: req.RentMax})
	}
	if f := strings.ToLower(strings.TrimSpace(req.Furnished)); f != "" {
		fs = append(fs, domain.FurnishedIs{Status: domain.Furnished(f)})
	}
	if req.PetsRequired {
		fs = append(fs, domain.PetsAllowed{})
	}
	return fs
}

func toNearbyResponse(center geo.Point, radiusKm float64, found []domain.Candidate, limit int) transport.NearbyResponse {
	resp := transport.NearbyResponse{
		Latitude:   center.Lat,
		Longitude:  center.Lng,
		RadiusKm:   radiusKm,
		Total:      len(found),
		Properties: make([]transport.NearbyProperty, 0, min(len(found), limit)),
	}
	for i, c := range found {
		if i == limit {
			break
		}
		p := c.Property
		resp.Properties = append(resp.Properties, transport.NearbyProperty{
			PropertyID:   p.ID,
			Code:         p.Code,
			Title:        p.Title,
			Neighborhood: p.Neighborhood,
			Operation:    string(p.Operation),
			PropertyType: string(p.Type),
			DistanceKm:   c.DistanceKm,
			Bedrooms:     p.Bedrooms,
			Parking:      p.Parking,
			SalePrice:    p.SalePrice,
			MonthlyTotal: p.MonthlyTotal,
		})
	}
	return resp
}

func toStatsResponse(clientID string, cfg domain.ClientConfig, st repository.Stats, eng *engine.Engine) transport.StatsResponse {
	resp := transport.StatsResponse{
		ClientID:   clientID,
		Properties: make(map[string]transport.PropertyStats, len(domain.Operations)),
		Leads: transport.LeadStats{
			SaleOnly:   st.Leads.SaleOnly,
			RentalOnly: st.Leads.RentalOnly,
			Both:       st.Leads.Both,
			Undefined:  st.Leads.Undefined,
			Geolocated: st.Leads.Geolocated,
			Eligible:   st.Leads.Eligible,
		},
		Matches: st.Matches,
	}
	for _, op := range domain.Operations {
		ps := st.Properties[op]
		pct := 0.0
		if ps.Total > 0 {
			pct = geo.Round(float64(ps.Geolocated)*100/float64(ps.Total), 1)
		}
		resp.Properties[string(op)] = transport.PropertyStats{Total: ps.Total, Geolocated: ps.Geolocated, GeolocatedPct: pct}
	}

	radius := cfg.DefaultRadiusKm
	if radius <= 0 {
		radius = candidates.DefaultRadiusKm
	}
	w := eng.Weights()
	resp.Policy = transport.Policy{
		DefaultRadiusKm:     radius,
		BatchThreshold:      eng.BatchThreshold(),
		ReverseThreshold:    eng.ReverseThreshold(),
		MaxPerLead:          eng.MaxPerLead(),
		AutoMatchingEnabled: cfg.AutoMatchingEnabled,
		Weights: transport.Weights{
			Proximity:    w.Proximity,
			Price:        w.Price,
			Mandatory:    w.Mandatory,
			Extras:       w.Extras,
			Inapplicable: string(w.Inapplicable),
		},
	}
	return resp
}

func toLeadMatchesResponse(leadID uuid.UUID, stored []repository.StoredMatch) transport.LeadMatchesResponse {
	resp := transport.LeadMatchesResponse{
		LeadID:  leadID,
		Matches: make([]transport.StoredMatch, 0, len(stored)),
	}
	for _, m := range stored {
		resp.Matches = append(resp.Matches, transport.StoredMatch{
			PropertyID:      m.PropertyID,
			Code:            m.PropertyCode,
			Title:           m.PropertyTitle,
			Operation:       string(m.Operation),
			Score:           m.Score,
			DistanceKm:      m.DistanceKm,
			Breakdown:       toBreakdown(m.Breakdown),
			Reasons:         strs(m.Reasons),
			AttentionPoints: strs(m.AttentionPoints),
			Trigger:         string(m.Trigger),
			FirstMatchedAt:  m.FirstMatchedAt,
			UpdatedAt:       m.UpdatedAt,
		})
	}
	return resp
}
