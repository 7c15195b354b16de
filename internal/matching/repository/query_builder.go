package repository

import (
	"fmt"
	"strings"

	"realty_crm_backend/internal/geo"
	"realty_crm_backend/internal/matching/domain"
)

// PropertyQuery narrows the properties loaded for a matching run. The SQL
// side only prefilters; the candidate filter re-checks everything.
type PropertyQuery struct {
	Operation *domain.OperationType
	// Box is the coarse geographic prefilter, usually from geo.Coverage.
	Box     *geo.Box
	Filters domain.Filters
}

type queryBuilder struct {
	conditions []string
	args       []interface{}
	argID      int
}

func newQueryBuilder(base ...string) *queryBuilder {
	return &queryBuilder{
		conditions: append([]string(nil), base...),
		argID:      1,
	}
}

func (qb *queryBuilder) addCondition(format string, field string, arg interface{}) {
	qb.conditions = append(qb.conditions, fmt.Sprintf(format, field, qb.argID))
	qb.args = append(qb.args, arg)
	qb.argID++
}

func (qb *queryBuilder) addRange(field string, lo, hi float64) {
	qb.addCondition("%s >= $%d", field, lo)
	qb.addCondition("%s <= $%d", field, hi)
}

func (qb *queryBuilder) build() (string, []interface{}) {
	if len(qb.conditions) == 0 {
		return "", qb.args
	}
	return "WHERE " + strings.Join(qb.conditions, " AND "), qb.args
}

const monthlyTotalExpr = "(COALESCE(p.rent, 0) + COALESCE(p.condo_fee, 0) + COALESCE(p.property_tax, 0))"

// propertyWhere turns a client scope and a PropertyQuery into a WHERE
// clause. Property type is matched in Go because the column keeps the
// importer's raw label.
func propertyWhere(clientID string, q PropertyQuery) (string, []interface{}) {
	qb := newQueryBuilder("p.active", "p.latitude IS NOT NULL", "p.longitude IS NOT NULL")
	qb.addCondition("%s = $%d", "p.client_id", clientID)

	if q.Operation != nil {
		qb.addCondition("%s = $%d", "p.operation_type", string(*q.Operation))
	}
	if q.Box != nil {
		qb.addRange("p.latitude", q.Box.MinLat, q.Box.MaxLat)
		qb.addRange("p.longitude", q.Box.MinLng, q.Box.MaxLng)
	}

	sale := q.Operation != nil && *q.Operation == domain.OperationSale
	rental := q.Operation != nil && *q.Operation == domain.OperationRental

	for _, f := range q.Filters {
		switch f := f.(type) {
		case domain.BedroomsAtLeast:
			qb.addCondition("%s >= $%d", "p.bedrooms", f.Min)
		case domain.BedroomsAtMost:
			qb.addCondition("%s <= $%d", "p.bedrooms", f.Max)
		case domain.ParkingAtLeast:
			qb.addCondition("%s >= $%d", "p.parking_spaces", f.Min)
		case domain.SalePriceAtLeast:
			if sale {
				qb.addCondition("%s >= $%d", "p.sale_price", f.Min)
			}
		case domain.SalePriceAtMost:
			if sale {
				qb.addCondition("%s <= $%d", "p.sale_price", f.Max)
			}
		case domain.MonthlyTotalAtMost:
			if rental {
				qb.conditions = append(qb.conditions,
					"NOT (p.rent IS NULL AND p.condo_fee IS NULL AND p.property_tax IS NULL)")
				qb.addCondition("%s <= $%d", monthlyTotalExpr, f.Max)
			}
		case domain.FurnishedIs:
			if rental {
				qb.addCondition("%s = $%d", "p.furnished", string(f.Status))
			}
		case domain.PetsAllowed:
			if rental {
				qb.conditions = append(qb.conditions, "p.accepts_pets")
			}
		}
	}

	return qb.build()
}
