package maps

import (
	"context"
	"errors"

	"realty_crm_backend/internal/geo"
	"realty_crm_backend/internal/matching/repository"
	"realty_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// Geocoder resolves addresses to points.
type Geocoder interface {
	Geocode(ctx context.Context, address, city string) (geo.Point, error)
}

// BackfillSource lists rows missing coordinates and stores the results.
type BackfillSource struct {
	Kind string
	List func(ctx context.Context, limit int) ([]repository.GeocodeTarget, error)
	Save func(ctx context.Context, id uuid.UUID, lat, lng float64) error
}

// BackfillResult counts what one backfill pass did.
type BackfillResult struct {
	Geocoded int
	Failed   int
}

// LeadSource and PropertySource adapt the matching repository.
func LeadSource(repo *repository.Repository) BackfillSource {
	return BackfillSource{Kind: "lead", List: repo.ListUngeocodedLeads, Save: repo.SetLeadCenter}
}

func PropertySource(repo *repository.Repository) BackfillSource {
	return BackfillSource{Kind: "property", List: repo.ListUngeocodedProperties, Save: repo.SetPropertyLocation}
}

// Backfill geocodes rows batch by batch until the source is drained or a
// batch yields nothing new. Rows that failed once are not retried in the
// same pass.
func Backfill(ctx context.Context, g Geocoder, src BackfillSource, batchSize int, log *logger.Logger) (BackfillResult, error) {
	var res BackfillResult
	attempted := make(map[uuid.UUID]struct{})

	for {
		targets, err := src.List(ctx, batchSize+len(attempted))
		if err != nil {
			return res, err
		}

		progress := false
		for _, t := range targets {
			if _, seen := attempted[t.ID]; seen {
				continue
			}
			attempted[t.ID] = struct{}{}
			progress = true

			p, err := g.Geocode(ctx, t.Address, t.City)
			if err != nil {
				if ctx.Err() != nil {
					return res, ctx.Err()
				}
				if errors.Is(err, ErrNoResult) {
					log.Info("no geocode result", "kind", src.Kind, "id", t.ID, "address", t.Address)
				} else {
					log.Error("geocode failed", "kind", src.Kind, "id", t.ID, "error", err)
				}
				res.Failed++
				continue
			}

			if err := src.Save(ctx, t.ID, p.Lat, p.Lng); err != nil {
				log.DatabaseError("save coordinates", err)
				res.Failed++
				continue
			}
			log.Info("geocoded", "kind", src.Kind, "id", t.ID, "lat", p.Lat, "lng", p.Lng)
			res.Geocoded++
		}

		if !progress {
			return res, nil
		}
	}
}
