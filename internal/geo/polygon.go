package geo

import (
	"fmt"
	"math"
)

// PointInPolygon reports whether p lies inside the polygon using ray casting.
// The polygon is treated as closed; fewer than 3 vertices is never a match.
func PointInPolygon(p GeoPoint, polygon []GeoPoint) bool {
	n := len(polygon)
	if n < 3 {
		return false
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi, vj := polygon[i], polygon[j]
		if (vi.Latitude > p.Latitude) != (vj.Latitude > p.Latitude) {
			crossLng := (vj.Longitude-vi.Longitude)*(p.Latitude-vi.Latitude)/(vj.Latitude-vi.Latitude) + vi.Longitude
			if p.Longitude < crossLng {
				inside = !inside
			}
		}
	}

	return inside
}

// DistanceToPolygonBorder returns the minimum distance in meters from p to
// any edge of the closed polygon, or +Inf for fewer than 2 vertices.
func DistanceToPolygonBorder(p GeoPoint, polygon []GeoPoint) float64 {
	n := len(polygon)
	if n < 2 {
		return math.Inf(1)
	}

	minDistance := math.Inf(1)
	for i := 0; i < n; i++ {
		d := distanceToSegment(p, polygon[i], polygon[(i+1)%n])
		if d < minDistance {
			minDistance = d
		}
	}

	return minDistance
}

// Centroid returns the arithmetic mean of the polygon's distinct vertices.
func Centroid(polygon []GeoPoint) GeoPoint {
	vertices := openRing(polygon)
	if len(vertices) == 0 {
		return GeoPoint{}
	}

	var lat, lng float64
	for _, v := range vertices {
		lat += v.Latitude
		lng += v.Longitude
	}

	return GeoPoint{
		Latitude:  lat / float64(len(vertices)),
		Longitude: lng / float64(len(vertices)),
	}
}

// PolygonArea returns the approximate area of the polygon in square meters.
func PolygonArea(polygon []GeoPoint) float64 {
	vertices := openRing(polygon)
	n := len(vertices)
	if n < 3 {
		return 0
	}

	var total float64
	for i := 0; i < n; i++ {
		p1 := vertices[i]
		p2 := vertices[(i+1)%n]
		total += toRad(p2.Longitude-p1.Longitude) *
			(2 + math.Sin(toRad(p1.Latitude)) + math.Sin(toRad(p2.Latitude)))
	}

	return math.Abs(total * EarthRadiusMeters * EarthRadiusMeters / 2)
}

// ValidatePolygon checks vertex count and every coordinate.
func ValidatePolygon(polygon []GeoPoint) error {
	if len(openRing(polygon)) < 3 {
		return ErrInvalidPolygon
	}
	for i, v := range polygon {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("vertex %d: %w", i, err)
		}
	}
	return nil
}

// PolygonsOverlap reports whether either polygon has a vertex inside the other.
func PolygonsOverlap(a, b []GeoPoint) bool {
	for _, p := range a {
		if PointInPolygon(p, b) {
			return true
		}
	}
	for _, p := range b {
		if PointInPolygon(p, a) {
			return true
		}
	}
	return false
}

// BufferPolygon pushes every vertex bufferMeters further from the centroid.
// It is an approximation for display; geofence checks measure border
// distance directly instead.
func BufferPolygon(polygon []GeoPoint, bufferMeters float64) []GeoPoint {
	vertices := openRing(polygon)
	if len(vertices) < 3 || bufferMeters <= 0 {
		out := make([]GeoPoint, len(polygon))
		copy(out, polygon)
		return out
	}

	center := Centroid(vertices)
	out := make([]GeoPoint, len(vertices))
	for i, v := range vertices {
		if v == center {
			out[i] = v
			continue
		}
		out[i] = Destination(v, Bearing(center, v), bufferMeters)
	}

	return out
}

// openRing drops a repeated closing vertex, if present.
func openRing(polygon []GeoPoint) []GeoPoint {
	n := len(polygon)
	if n > 1 && polygon[0] == polygon[n-1] {
		return polygon[:n-1]
	}
	return polygon
}
