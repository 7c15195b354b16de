package geo

import (
	"math"

	"github.com/mmcloughlin/geohash"
)

// Box is an axis-aligned lat/lng bounding box.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// Contains reports whether p lies inside the box, edges included.
func (b Box) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// approximate cell heights in km for geohash precisions 1..7
var cellHeightKm = [...]float64{5000, 625, 156, 19.5, 4.89, 0.61, 0.153}

// Coverage returns a box guaranteed to contain every point within radiusKm
// of center. It is built from the geohash cell of the center and its eight
// neighbours at the finest precision whose cells are at least radiusKm tall
// and wide, so the result stays stable for nearby centers and can be cached
// per cell. ok is false when no finite box can be produced (poles or a
// radius wider than a precision-1 cell); callers then skip the prefilter.
func Coverage(center Point, radiusKm float64) (Box, bool) {
	if !center.Valid() || radiusKm <= 0 {
		return Box{}, false
	}

	precision := uint(0)
	for i := len(cellHeightKm) - 1; i >= 0; i-- {
		if cellHeightKm[i] >= radiusKm && cellWidthKm(uint(i+1), center.Lat) >= radiusKm {
			precision = uint(i + 1)
			break
		}
	}
	if precision == 0 {
		return Box{}, false
	}

	hash := geohash.EncodeWithPrecision(center.Lat, center.Lng, precision)
	box := toBox(geohash.BoundingBox(hash))
	for _, n := range geohash.Neighbors(hash) {
		nb := toBox(geohash.BoundingBox(n))
		// Neighbours across the antimeridian wrap around; the union would
		// then span the whole globe, so give up on the prefilter.
		if math.Abs(nb.MinLng-box.MinLng) > 180 {
			return Box{}, false
		}
		box = union(box, nb)
	}
	return box, true
}

// cellWidthKm estimates the east-west extent of a geohash cell, measured at
// the edge of the 3x3 block furthest from the equator.
func cellWidthKm(precision uint, lat float64) float64 {
	latBits := 5 * precision / 2
	lngBits := 5*precision - latBits
	cellLat := 180 / math.Pow(2, float64(latBits))
	cellLng := 360 / math.Pow(2, float64(lngBits))
	edge := math.Min(math.Abs(lat)+2*cellLat, 90)
	return cellLng * (math.Pi / 180) * EarthRadiusKm * math.Cos(toRadians(edge))
}

func toBox(b geohash.Box) Box {
	return Box{MinLat: b.MinLat, MaxLat: b.MaxLat, MinLng: b.MinLng, MaxLng: b.MaxLng}
}

func union(a, b Box) Box {
	return Box{
		MinLat: math.Min(a.MinLat, b.MinLat),
		MaxLat: math.Max(a.MaxLat, b.MaxLat),
		MinLng: math.Min(a.MinLng, b.MinLng),
		MaxLng: math.Max(a.MaxLng, b.MaxLng),
	}
}
