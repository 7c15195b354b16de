package scoring

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"realty_crm_backend/internal/geo"
	"realty_crm_backend/internal/matching/domain"
)

func ptr[T any](v T) *T { return &v }

func saleLead() domain.Lead {
	return domain.Lead{
		WantsSale:     true,
		Center:        &geo.Point{Lat: -23.5505, Lng: -46.6333},
		RadiusKm:      ptr(3.0),
		PropertyType:  domain.TypeApartment,
		BedroomsMin:   2,
		SaleBudgetMin: ptr(300000.0),
		SaleBudgetMax: ptr(500000.0),
	}
}

func saleProperty(price float64) domain.Property {
	return domain.Property{
		Operation: domain.OperationSale,
		Type:      domain.TypeApartment,
		Location:  &geo.Point{Lat: -23.5520, Lng: -46.6330},
		Bedrooms:  3,
		SalePrice: &price,
		Active:    true,
	}
}

func distanceBetween(l domain.Lead, p domain.Property) *float64 {
	d := geo.Round(geo.Distance(*l.Center, *p.Location), 2)
	return &d
}

func TestScoreNearbyApartmentWithinBudget(t *testing.T) {
	lead := saleLead()
	prop := saleProperty(450000)

	got := Default().Score(lead, prop, distanceBetween(lead, prop))

	if math.Abs(got.Breakdown.Proximity-94.4) > 0.2 {
		t.Fatalf("expected proximity near 94.4, got %.3f", got.Breakdown.Proximity)
	}
	if got.Breakdown.Price != 100 || got.Breakdown.Mandatory != 100 {
		t.Fatalf("expected price and mandatory 100, got %+v", got.Breakdown)
	}
	if got.Breakdown.ExtrasApplied {
		t.Fatalf("expected no extras checks for this lead")
	}
	if got.Score < 90 {
		t.Fatalf("expected overall score >= 90, got %.1f", got.Score)
	}
	if got.Score != 97.9 {
		t.Fatalf("expected 97.9, got %.1f", got.Score)
	}
	if len(got.AttentionPoints) != 0 {
		t.Fatalf("expected no attention points, got %v", got.AttentionPoints)
	}
	if len(got.Reasons) != 4 || got.Reasons[3] != "Desired property type: apartment" {
		t.Fatalf("unexpected reasons %v", got.Reasons)
	}
}

func TestScoreOverBudgetUsesWeightedArithmetic(t *testing.T) {
	lead := saleLead()
	prop := saleProperty(600000)

	got := Default().Score(lead, prop, distanceBetween(lead, prop))

	if got.Breakdown.Price != 30 {
		t.Fatalf("expected price sub-score 30, got %.1f", got.Breakdown.Price)
	}
	want := geo.Round((got.Breakdown.Proximity*30+30*25+100*25)/80, 1)
	if got.Score != want {
		t.Fatalf("expected %.1f, got %.1f", want, got.Score)
	}
	if got.Score != 76.0 {
		t.Fatalf("expected 76.0, got %.1f", got.Score)
	}
	if len(got.AttentionPoints) != 1 || got.AttentionPoints[0] != "Price 20.0% above the maximum budget" {
		t.Fatalf("unexpected attention points %v", got.AttentionPoints)
	}
}

func TestSalePriceBands(t *testing.T) {
	lead := saleLead()
	cases := []struct {
		price float64
		want  float64
	}{
		{500000, 100},
		{300000, 100},
		{250000, 70},
		{500001, 30},
	}
	for _, tc := range cases {
		if got := priceScore(lead, saleProperty(tc.price)); got != tc.want {
			t.Errorf("price %.0f: expected %.0f, got %.0f", tc.price, tc.want, got)
		}
	}
	if got := priceScore(lead, domain.Property{Operation: domain.OperationSale}); got != neutralScore {
		t.Fatalf("expected neutral score without a price, got %.1f", got)
	}
}

func TestRentalPricePenaltyIsMonotonic(t *testing.T) {
	lead := domain.Lead{WantsRental: true, RentalBudgetMax: ptr(2000.0)}
	totals := []float64{1500, 2000, 2500, 3000, 4000, 6000}
	want := []float64{100, 100, 75, 50, 0, 0}

	prev := math.Inf(1)
	for i, total := range totals {
		p := domain.Property{Operation: domain.OperationRental, MonthlyTotal: ptr(total)}
		got := priceScore(lead, p)
		if math.Abs(got-want[i]) > 1e-9 {
			t.Fatalf("total %.0f: expected %.0f, got %.2f", total, want[i], got)
		}
		if got > prev {
			t.Fatalf("price score increased from %.2f to %.2f at total %.0f", prev, got, total)
		}
		prev = got
	}
}

func TestRentalBudgetEdgeCases(t *testing.T) {
	p := domain.Property{Operation: domain.OperationRental, MonthlyTotal: ptr(2500.0)}

	if got := priceScore(domain.Lead{RentalBudgetMax: ptr(0.0)}, p); got != neutralScore {
		t.Fatalf("expected zero budget to degrade to neutral, got %.1f", got)
	}
	if got := priceScore(domain.Lead{}, p); got != 100 {
		t.Fatalf("expected missing budget to score 100, got %.1f", got)
	}
}

func TestBedroomsAboveMaxScores80(t *testing.T) {
	lead := domain.Lead{BedroomsMin: 2, BedroomsMax: ptr(3)}
	score, applied := mandatoryScore(lead, domain.Property{Bedrooms: 4})
	if !applied || score != 80 {
		t.Fatalf("expected 80, got %.1f (applied=%v)", score, applied)
	}
	score, _ = mandatoryScore(lead, domain.Property{Bedrooms: 1})
	if score != 0 {
		t.Fatalf("expected 0 below minimum, got %.1f", score)
	}
}

func TestPetsOnlyCheckedForRentals(t *testing.T) {
	lead := domain.Lead{PetsRequired: true}
	if _, applied := mandatoryScore(lead, domain.Property{Operation: domain.OperationSale}); applied {
		t.Fatalf("expected pets to be ignored for a sale")
	}
	score, applied := mandatoryScore(lead, domain.Property{Operation: domain.OperationRental, AcceptsPets: true})
	if !applied || score != 100 {
		t.Fatalf("expected 100 for a pet-friendly rental, got %.1f", score)
	}
}

func TestFurnishedPreference(t *testing.T) {
	cases := []struct {
		pref      domain.FurnishedPreference
		furnished domain.Furnished
		want      float64
		applied   bool
	}{
		{domain.PreferFurnished, domain.FurnishedYes, 100, true},
		{domain.PreferUnfurnished, domain.FurnishedNo, 100, true},
		{domain.PreferUnfurnished, domain.FurnishedPartial, 70, true},
		{domain.PreferUnfurnished, domain.FurnishedYes, 70, true},
		{domain.PreferFurnished, domain.FurnishedPartial, 0, true},
		{domain.PreferIndifferent, domain.FurnishedYes, 0, false},
	}
	for _, tc := range cases {
		lead := domain.Lead{FurnishedPreference: tc.pref}
		p := domain.Property{Operation: domain.OperationRental, Furnished: tc.furnished}
		got, applied := extrasScore(lead, p)
		if got != tc.want || applied != tc.applied {
			t.Errorf("%s/%s: expected %.0f (applied=%v), got %.0f (applied=%v)",
				tc.pref, tc.furnished, tc.want, tc.applied, got, applied)
		}
	}
}

func TestAreaRangeRequiresKnownArea(t *testing.T) {
	lead := domain.Lead{AreaMin: 50, AreaMax: ptr(90.0)}

	if got, _ := extrasScore(lead, domain.Property{TotalArea: ptr(70.0)}); got != 100 {
		t.Fatalf("expected 100 inside the range, got %.0f", got)
	}
	if got, applied := extrasScore(lead, domain.Property{}); got != 0 || !applied {
		t.Fatalf("expected unknown area to fail the check, got %.0f", got)
	}
}

func TestInapplicablePolicy(t *testing.T) {
	lead := domain.Lead{WantsSale: true}
	prop := domain.Property{Operation: domain.OperationSale, SalePrice: ptr(100000.0)}
	zero := 0.0

	renorm := Default().Score(lead, prop, &zero)
	if renorm.Score != 100 {
		t.Fatalf("expected 100 when inapplicable weights are dropped, got %.1f", renorm.Score)
	}

	w := DefaultWeights()
	w.Inapplicable = PolicyPenalize
	s, err := New(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Score(lead, prop, &zero); got.Score != 55 {
		t.Fatalf("expected 55 when inapplicable weights count as zero, got %.1f", got.Score)
	}
}

func TestMissingDistanceKeepsProximityWeight(t *testing.T) {
	lead := domain.Lead{WantsSale: true}
	prop := domain.Property{Operation: domain.OperationSale}

	got := Default().Score(lead, prop, nil)
	// (0*30 + 50*25) / 55
	if got.Score != 22.7 {
		t.Fatalf("expected 22.7, got %.1f", got.Score)
	}
	if got.Breakdown.Proximity != 0 {
		t.Fatalf("expected zero proximity, got %.1f", got.Breakdown.Proximity)
	}
}

func TestFallbackReason(t *testing.T) {
	lead := saleLead()
	prop := saleProperty(900000)
	prop.Type = domain.TypeHouse
	prop.Bedrooms = 1
	far := 10.0

	got := Default().Score(lead, prop, &far)
	if len(got.Reasons) != 1 || got.Reasons[0] != ReasonFallback {
		t.Fatalf("expected only the fallback reason, got %v", got.Reasons)
	}
}

func TestScoreAlwaysWithinRange(t *testing.T) {
	scorer := Default()
	lead := saleLead()
	lead.AreaMin = 40
	for _, price := range []float64{0, 1, 299999, 500000, 5e7} {
		for _, d := range []float64{0, 0.5, 2.99, 3, 50, 1e6} {
			prop := saleProperty(price)
			dist := d
			got := scorer.Score(lead, prop, &dist)
			if got.Score < 0 || got.Score > 100 || got.Raw < 0 || got.Raw > 100 {
				t.Fatalf("score out of range for price %.0f distance %.2f: %+v", price, d, got)
			}
			if again := scorer.Score(lead, prop, &dist); again.Score != got.Score {
				t.Fatalf("expected deterministic score, got %.1f then %.1f", got.Score, again.Score)
			}
		}
	}
}

func TestNewRejectsInvalidWeights(t *testing.T) {
	w := DefaultWeights()
	w.Price = -1
	if _, err := New(w); err == nil {
		t.Fatalf("expected negative weight to be rejected")
	}
	if _, err := New(Weights{Inapplicable: PolicyRenormalize}); err == nil {
		t.Fatalf("expected all-zero weights to be rejected")
	}
}

func TestLoadWeights(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.yaml")
	if err := os.WriteFile(path, []byte("proximity: 40\ninapplicable: penalize\n"), 0o600); err != nil {
		t.Fatalf("write weights: %v", err)
	}

	w, err := LoadWeights(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Proximity != 40 || w.Price != 25 || w.Inapplicable != PolicyPenalize {
		t.Fatalf("unexpected weights %+v", w)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("inapplicable: ignore\n"), 0o600); err != nil {
		t.Fatalf("write weights: %v", err)
	}
	if _, err := LoadWeights(bad); err == nil || !strings.Contains(err.Error(), "inapplicable") {
		t.Fatalf("expected policy error, got %v", err)
	}

	if w, err := LoadWeights(""); err != nil || w != DefaultWeights() {
		t.Fatalf("expected defaults for empty path, got %+v (%v)", w, err)
	}
}
