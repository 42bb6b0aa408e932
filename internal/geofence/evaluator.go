package geofence

import (
	"math"

	"github.com/richxcame/attendance-tracker/internal/geo"
)

// CheckWorkArea finds the work area containing point.
//
// Active areas are tried in the given order. Full containment is tested
// first for each area, then its buffer zone, and the first hit wins. When
// nothing matches the verdict carries the globally nearest active area.
func CheckWorkArea(point geo.GeoPoint, areas []WorkArea) Verdict {
	for i := range areas {
		area := &areas[i]
		if !area.IsActive {
			continue
		}

		if geo.PointInPolygon(point, area.Boundary) {
			return Verdict{InArea: true, Area: refOf(area), Distance: 0}
		}

		if area.BufferMeters > 0 {
			d := geo.DistanceToPolygonBorder(point, area.Boundary)
			if d <= area.BufferMeters {
				return Verdict{InArea: true, InBufferZone: true, Area: refOf(area), Distance: Meters(d)}
			}
		}
	}

	nearest, distance := findNearestArea(point, areas)
	v := Verdict{InArea: false, Distance: Meters(distance)}
	if nearest != nil {
		v.NearestArea = refOf(nearest)
	}
	return v
}

func findNearestArea(point geo.GeoPoint, areas []WorkArea) (*WorkArea, float64) {
	var nearest *WorkArea
	minDistance := math.Inf(1)

	for i := range areas {
		area := &areas[i]
		if !area.IsActive {
			continue
		}
		d := geo.DistanceToPolygonBorder(point, area.Boundary)
		if d < minDistance {
			minDistance = d
			nearest = area
		}
	}

	return nearest, minDistance
}
