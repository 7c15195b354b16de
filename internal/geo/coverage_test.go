package geo

import (
	"math"
	"testing"
)

func TestCoverageContainsEveryPointWithinRadius(t *testing.T) {
	centers := []Point{
		{Lat: -23.5505, Lng: -46.6333},
		{Lat: 0.0001, Lng: 0.0001},
		{Lat: 59.91, Lng: 10.75},
	}
	radii := []float64{0.5, 3, 10, 50}

	for _, c := range centers {
		for _, r := range radii {
			box, ok := Coverage(c, r)
			if !ok {
				t.Fatalf("expected coverage for %+v r=%v", c, r)
			}
			// walk the circle at the radius in 10 degree steps
			for bearing := 0.0; bearing < 360; bearing += 10 {
				p := destination(c, r, bearing)
				if !box.Contains(p) {
					t.Fatalf("point %+v at %.1f km from %+v escapes box %+v", p, r, c, box)
				}
			}
		}
	}
}

func TestCoverageRejectsDegenerateInput(t *testing.T) {
	if _, ok := Coverage(Point{Lat: -23.5, Lng: -46.6}, 0); ok {
		t.Fatalf("expected zero radius to be rejected")
	}
	if _, ok := Coverage(Point{Lat: math.NaN(), Lng: 0}, 3); ok {
		t.Fatalf("expected invalid center to be rejected")
	}
	if _, ok := Coverage(Point{Lat: 10, Lng: 10}, 20000); ok {
		t.Fatalf("expected huge radius to be rejected")
	}
}

// destination moves distKm from p along bearing (degrees).
func destination(p Point, distKm, bearing float64) Point {
	delta := distKm / EarthRadiusKm
	theta := toRadians(bearing)
	lat1 := toRadians(p.Lat)
	lng1 := toRadians(p.Lng)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(delta) + math.Cos(lat1)*math.Sin(delta)*math.Cos(theta))
	lng2 := lng1 + math.Atan2(math.Sin(theta)*math.Sin(delta)*math.Cos(lat1), math.Cos(delta)-math.Sin(lat1)*math.Sin(lat2))
	return Point{Lat: lat2 * 180 / math.Pi, Lng: lng2 * 180 / math.Pi}
}
