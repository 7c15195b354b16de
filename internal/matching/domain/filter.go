package domain

// Scope tells which operation types a filter applies to.
type Scope int

const (
	ScopeAny Scope = iota
	ScopeSale
	ScopeRental
)

// Filter is a hard constraint on a property. The set of filters is closed:
// only the types in this file implement it.
type Filter interface {
	Allows(p Property) bool
	Scope() Scope
	isFilter()
}

// PropertyTypeIs keeps properties of exactly one category.
type PropertyTypeIs struct{ Type PropertyType }

// BedroomsAtLeast keeps properties with at least Min bedrooms.
type BedroomsAtLeast struct{ Min int }

// BedroomsAtMost keeps properties with at most Max bedrooms.
type BedroomsAtMost struct{ Max int }

// ParkingAtLeast keeps properties with at least Min parking spaces.
type ParkingAtLeast struct{ Min int }

// SalePriceAtLeast keeps sale listings priced at or above Min.
type SalePriceAtLeast struct{ Min float64 }

// SalePriceAtMost keeps sale listings priced at or below Max.
type SalePriceAtMost struct{ Max float64 }

// MonthlyTotalAtMost keeps rentals whose monthly total is at most Max.
type MonthlyTotalAtMost struct{ Max float64 }

// FurnishedIs keeps rentals with exactly this furnishing status.
type FurnishedIs struct{ Status Furnished }

// PetsAllowed keeps rentals that accept pets.
type PetsAllowed struct{}

func (f PropertyTypeIs) Allows(p Property) bool   { return p.Type == f.Type }
func (f BedroomsAtLeast) Allows(p Property) bool  { return p.Bedrooms >= f.Min }
func (f BedroomsAtMost) Allows(p Property) bool   { return p.Bedrooms <= f.Max }
func (f ParkingAtLeast) Allows(p Property) bool   { return p.Parking >= f.Min }
func (f SalePriceAtLeast) Allows(p Property) bool { return p.SalePrice != nil && *p.SalePrice >= f.Min }
func (f SalePriceAtMost) Allows(p Property) bool  { return p.SalePrice != nil && *p.SalePrice <= f.Max }
func (f MonthlyTotalAtMost) Allows(p Property) bool {
	return p.MonthlyTotal != nil && *p.MonthlyTotal <= f.Max
}
func (f FurnishedIs) Allows(p Property) bool { return p.Furnished == f.Status }
func (PetsAllowed) Allows(p Property) bool   { return p.AcceptsPets }

func (PropertyTypeIs) Scope() Scope     { return ScopeAny }
func (BedroomsAtLeast) Scope() Scope    { return ScopeAny }
func (BedroomsAtMost) Scope() Scope     { return ScopeAny }
func (ParkingAtLeast) Scope() Scope     { return ScopeAny }
func (SalePriceAtLeast) Scope() Scope   { return ScopeSale }
func (SalePriceAtMost) Scope() Scope    { return ScopeSale }
func (MonthlyTotalAtMost) Scope() Scope { return ScopeRental }
func (FurnishedIs) Scope() Scope        { return ScopeRental }
func (PetsAllowed) Scope() Scope        { return ScopeRental }

func (PropertyTypeIs) isFilter()     {}
func (BedroomsAtLeast) isFilter()    {}
func (BedroomsAtMost) isFilter()     {}
func (ParkingAtLeast) isFilter()     {}
func (SalePriceAtLeast) isFilter()   {}
func (SalePriceAtMost) isFilter()    {}
func (MonthlyTotalAtMost) isFilter() {}
func (FurnishedIs) isFilter()        {}
func (PetsAllowed) isFilter()        {}

// Filters is a conjunction of hard constraints.
type Filters []Filter

// Allow applies every filter in scope for op. Sale-only filters are
// ignored unless op is sale, rental-only ones unless op is rental, and
// both are ignored when op is nil.
func (fs Filters) Allow(p Property, op *OperationType) bool {
	for _, f := range fs {
		if !inScope(f.Scope(), op) {
			continue
		}
		if !f.Allows(p) {
			return false
		}
	}
	return true
}

func inScope(s Scope, op *OperationType) bool {
	switch s {
	case ScopeSale:
		return op != nil && *op == OperationSale
	case ScopeRental:
		return op != nil && *op == OperationRental
	}
	return true
}

// LeadFilters derives the hard constraints used by batch matching for one
// lead and operation type. A rental lead that is not indifferent to
// furnishing only sees rentals with exactly the status it asked for.
func LeadFilters(l Lead, op OperationType) Filters {
	var fs Filters
	if l.PropertyType != "" {
		fs = append(fs, PropertyTypeIs{Type: l.PropertyType})
	}
	if l.BedroomsMin > 0 {
		fs = append(fs, BedroomsAtLeast{Min: l.BedroomsMin})
	}
	if l.BedroomsMax != nil {
		fs = append(fs, BedroomsAtMost{Max: *l.BedroomsMax})
	}
	if l.ParkingMin > 0 {
		fs = append(fs, ParkingAtLeast{Min: l.ParkingMin})
	}
	switch op {
	case OperationSale:
		if l.SaleBudgetMin != nil && *l.SaleBudgetMin > 0 {
			fs = append(fs, SalePriceAtLeast{Min: *l.SaleBudgetMin})
		}
		if l.SaleBudgetMax != nil && *l.SaleBudgetMax > 0 {
			fs = append(fs, SalePriceAtMost{Max: *l.SaleBudgetMax})
		}
	case OperationRental:
		if l.RentalBudgetMax != nil && *l.RentalBudgetMax > 0 {
			fs = append(fs, MonthlyTotalAtMost{Max: *l.RentalBudgetMax})
		}
		if l.FurnishedPreference == PreferFurnished || l.FurnishedPreference == PreferUnfurnished {
			fs = append(fs, FurnishedIs{Status: Furnished(l.FurnishedPreference)})
		}
		if l.PetsRequired {
			fs = append(fs, PetsAllowed{})
		}
	}
	return fs
}
