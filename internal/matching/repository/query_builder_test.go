package repository

import (
	"strings"
	"testing"

	"realty_crm_backend/internal/geo"
	"realty_crm_backend/internal/matching/domain"
)

func TestPropertyWhereNumbersPlaceholdersInOrder(t *testing.T) {
	rental := domain.OperationRental
	where, args := propertyWhere("acme", PropertyQuery{
		Operation: &rental,
		Box:       &geo.Box{MinLat: -24, MaxLat: -23, MinLng: -47, MaxLng: -46},
		Filters: domain.Filters{
			domain.PropertyTypeIs{Type: domain.TypeApartment},
			domain.BedroomsAtLeast{Min: 2},
			domain.SalePriceAtMost{Max: 500000},
			domain.MonthlyTotalAtMost{Max: 3000},
			domain.PetsAllowed{},
		},
	})

	wantFragments := []string{
		"p.client_id = $1",
		"p.operation_type = $2",
		"p.latitude >= $3",
		"p.longitude <= $6",
		"p.bedrooms >= $7",
		"<= $8",
		"p.accepts_pets",
	}
	for _, frag := range wantFragments {
		if !strings.Contains(where, frag) {
			t.Fatalf("expected %q in %s", frag, where)
		}
	}
	if strings.Contains(where, "sale_price") {
		t.Fatalf("sale filters must not apply to rentals: %s", where)
	}
	if strings.Contains(where, "property_type") {
		t.Fatalf("property type is matched in Go: %s", where)
	}
	if len(args) != 8 || args[0] != "acme" || args[1] != "rental" || args[7] != 3000.0 {
		t.Fatalf("unexpected args %#v", args)
	}
}

func TestPropertyWhereWithoutOperationSkipsScopedFilters(t *testing.T) {
	where, args := propertyWhere("acme", PropertyQuery{
		Filters: domain.Filters{domain.SalePriceAtLeast{Min: 1}, domain.FurnishedIs{Status: domain.FurnishedYes}},
	})
	if strings.Contains(where, "sale_price") || strings.Contains(where, "furnished") {
		t.Fatalf("expected scoped filters to be skipped: %s", where)
	}
	if !strings.HasPrefix(where, "WHERE p.active AND") || len(args) != 1 {
		t.Fatalf("unexpected clause %s (%d args)", where, len(args))
	}
}
