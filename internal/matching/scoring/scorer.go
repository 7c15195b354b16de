// Package scoring computes the weighted lead/property compatibility score.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"realty_crm_backend/internal/geo"
	"realty_crm_backend/internal/matching/domain"
)

const (
	// ProximityReferenceKm is the distance at which proximity reaches 0.
	// It does not follow the search radius.
	ProximityReferenceKm = 3.0

	// reasonCutoff is the sub-score above which a dimension earns a reason.
	reasonCutoff = 80.0
	// neutralScore is used when the inputs of a dimension are unusable.
	neutralScore = 50.0
)

// Reason texts attached to assessments.
const (
	ReasonLocation  = "Great location"
	ReasonPrice     = "Price within the ideal budget"
	ReasonMandatory = "Meets the essential requirements"
	ReasonFallback  = "Match found by the system"
)

// Scorer rates how well a property fits a lead. It is safe for concurrent use.
type Scorer struct {
	w Weights
}

// New returns a Scorer bound to a validated copy of w.
func New(w Weights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{w: w}, nil
}

// Default returns a Scorer with DefaultWeights.
func Default() *Scorer {
	return &Scorer{w: DefaultWeights()}
}

// Weights returns the weights the scorer was built with.
func (s *Scorer) Weights() Weights {
	return s.w
}

// Score rates property p for lead. distanceKm is nil when the distance is
// unknown; proximity then scores 0 but keeps its weight.
func (s *Scorer) Score(lead domain.Lead, p domain.Property, distanceKm *float64) domain.Assessment {
	mandatory, mandatoryApplied := mandatoryScore(lead, p)
	extras, extrasApplied := extrasScore(lead, p)
	b := domain.Breakdown{
		Proximity:        proximityScore(distanceKm),
		Price:            priceScore(lead, p),
		Mandatory:        mandatory,
		Extras:           extras,
		MandatoryApplied: mandatoryApplied,
		ExtrasApplied:    extrasApplied,
	}

	raw := s.combine(b)
	return domain.Assessment{
		Score:           geo.Round(raw, 1),
		Raw:             raw,
		Breakdown:       b,
		Reasons:         reasons(lead, p, b, distanceKm),
		AttentionPoints: attentionPoints(lead, p),
	}
}

func (s *Scorer) combine(b domain.Breakdown) float64 {
	num := b.Proximity*s.w.Proximity + b.Price*s.w.Price
	den := s.w.Proximity + s.w.Price

	if b.MandatoryApplied {
		num += b.Mandatory * s.w.Mandatory
		den += s.w.Mandatory
	} else if s.w.Inapplicable == PolicyPenalize {
		den += s.w.Mandatory
	}
	if b.ExtrasApplied {
		num += b.Extras * s.w.Extras
		den += s.w.Extras
	} else if s.w.Inapplicable == PolicyPenalize {
		den += s.w.Extras
	}

	if den == 0 {
		return 0
	}
	return clamp(num/den, 0, 100)
}

func proximityScore(distanceKm *float64) float64 {
	if distanceKm == nil {
		return 0
	}
	return math.Max(0, 100-*distanceKm/ProximityReferenceKm*100)
}

func priceScore(lead domain.Lead, p domain.Property) float64 {
	switch p.Operation {
	case domain.OperationSale:
		if p.SalePrice == nil {
			return neutralScore
		}
		price := *p.SalePrice
		lo, hi := 0.0, math.Inf(1)
		if lead.SaleBudgetMin != nil && *lead.SaleBudgetMin > 0 {
			lo = *lead.SaleBudgetMin
		}
		if lead.SaleBudgetMax != nil && *lead.SaleBudgetMax > 0 {
			hi = *lead.SaleBudgetMax
		}
		switch {
		case price >= lo && price <= hi:
			return 100
		case price < lo:
			return 70
		default:
			return 30
		}

	case domain.OperationRental:
		if p.MonthlyTotal == nil {
			return neutralScore
		}
		if lead.RentalBudgetMax == nil {
			return 100
		}
		budget := *lead.RentalBudgetMax
		if budget <= 0 {
			return neutralScore
		}
		total := *p.MonthlyTotal
		if total <= budget {
			return 100
		}
		excess := (total - budget) / budget
		return math.Max(0, 100-excess*100)
	}
	return neutralScore
}

func mandatoryScore(lead domain.Lead, p domain.Property) (float64, bool) {
	var checks []float64

	if lead.PropertyType != "" {
		checks = append(checks, hit(lead.PropertyType == p.Type))
	}

	if lead.BedroomsMin > 0 || lead.BedroomsMax != nil {
		upper := math.MaxInt
		if lead.BedroomsMax != nil {
			upper = *lead.BedroomsMax
		}
		switch {
		case p.Bedrooms >= lead.BedroomsMin && p.Bedrooms <= upper:
			checks = append(checks, 100)
		case p.Bedrooms >= lead.BedroomsMin:
			checks = append(checks, 80)
		default:
			checks = append(checks, 0)
		}
	}

	if lead.ParkingMin > 0 {
		checks = append(checks, hit(p.Parking >= lead.ParkingMin))
	}

	if p.Operation == domain.OperationRental && lead.PetsRequired {
		checks = append(checks, hit(p.AcceptsPets))
	}

	return mean(checks)
}

func extrasScore(lead domain.Lead, p domain.Property) (float64, bool) {
	var checks []float64

	if p.Operation == domain.OperationRental &&
		lead.FurnishedPreference != "" && lead.FurnishedPreference != domain.PreferIndifferent {
		switch {
		case string(lead.FurnishedPreference) == string(p.Furnished):
			checks = append(checks, 100)
		case lead.FurnishedPreference == domain.PreferUnfurnished:
			// furnished or partially furnished: the lead can live with it
			checks = append(checks, 70)
		default:
			checks = append(checks, 0)
		}
	}

	if lead.AreaMin > 0 || lead.AreaMax != nil {
		ok := false
		if p.TotalArea != nil {
			area := *p.TotalArea
			ok = area >= lead.AreaMin && (lead.AreaMax == nil || area <= *lead.AreaMax)
		}
		checks = append(checks, hit(ok))
	}

	return mean(checks)
}

func reasons(lead domain.Lead, p domain.Property, b domain.Breakdown, distanceKm *float64) []string {
	var out []string
	if b.Proximity > reasonCutoff && distanceKm != nil {
		out = append(out, fmt.Sprintf("%s (%.2f km)", ReasonLocation, *distanceKm))
	}
	if b.Price > reasonCutoff {
		out = append(out, ReasonPrice)
	}
	if b.MandatoryApplied && b.Mandatory > reasonCutoff {
		out = append(out, ReasonMandatory)
	}
	if lead.PropertyType != "" && strings.EqualFold(string(lead.PropertyType), string(p.Type)) {
		out = append(out, "Desired property type: "+string(p.Type))
	}
	if len(out) == 0 {
		out = append(out, ReasonFallback)
	}
	return out
}

func attentionPoints(lead domain.Lead, p domain.Property) []string {
	if p.Operation != domain.OperationSale || p.SalePrice == nil {
		return nil
	}
	if lead.SaleBudgetMax == nil || *lead.SaleBudgetMax <= 0 {
		return nil
	}
	budget := *lead.SaleBudgetMax
	if *p.SalePrice <= budget {
		return nil
	}
	over := (*p.SalePrice - budget) / budget * 100
	return []string{fmt.Sprintf("Price %.1f%% above the maximum budget", over)}
}

func hit(ok bool) float64 {
	if ok {
		return 100
	}
	return 0
}

func mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
