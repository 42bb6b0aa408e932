package geo

import (
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean earth radius used by every calculation here.
const EarthRadiusMeters = 6371000.0

// Distance returns the great-circle (haversine) distance between a and b in meters
func Distance(a, b GeoPoint) float64 {
	if a == b {
		return 0
	}

	dLat := toRad(b.Latitude - a.Latitude)
	dLon := toRad(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Latitude))*math.Cos(toRad(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// Bearing returns the initial compass bearing from a to b in degrees [0, 360)
func Bearing(a, b GeoPoint) float64 {
	lat1 := toRad(a.Latitude)
	lat2 := toRad(b.Latitude)
	dLon := toRad(b.Longitude - a.Longitude)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	deg := math.Mod(toDeg(math.Atan2(y, x))+360, 360)
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// Destination returns the point reached by travelling distanceMeters from p
// along the given initial bearing.
func Destination(p GeoPoint, bearingDeg, distanceMeters float64) GeoPoint {
	delta := distanceMeters / EarthRadiusMeters
	theta := toRad(bearingDeg)
	lat1 := toRad(p.Latitude)
	lon1 := toRad(p.Longitude)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(delta) + math.Cos(lat1)*math.Sin(delta)*math.Cos(theta))
	lon2 := lon1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(lat1),
		math.Cos(delta)-math.Sin(lat1)*math.Sin(lat2),
	)

	return GeoPoint{
		Latitude:  toDeg(lat2),
		Longitude: math.Mod(toDeg(lon2)+540, 360) - 180,
	}
}

// DistanceBetween is Distance for unvalidated input
func DistanceBetween(a, b GeoPoint) (float64, error) {
	if err := validatePair(a, b); err != nil {
		return 0, err
	}
	return Distance(a, b), nil
}

// BearingBetween is Bearing for unvalidated input
func BearingBetween(a, b GeoPoint) (float64, error) {
	if err := validatePair(a, b); err != nil {
		return 0, err
	}
	return Bearing(a, b), nil
}

func validatePair(a, b GeoPoint) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("from %w", err)
	}
	if err := b.Validate(); err != nil {
		return fmt.Errorf("to %w", err)
	}
	return nil
}

// WithinRange reports whether a and b are at most maxMeters apart
func WithinRange(a, b GeoPoint, maxMeters float64) bool {
	return Distance(a, b) <= maxMeters
}

// distanceToSegment returns the shortest distance in meters from p to the
// great-circle segment ab, clamped to the segment's endpoints.
func distanceToSegment(p, a, b GeoPoint) float64 {
	if a == b {
		return Distance(p, a)
	}

	d13 := Distance(a, p) / EarthRadiusMeters
	if d13 == 0 {
		return 0
	}
	d12 := Distance(a, b) / EarthRadiusMeters
	theta13 := toRad(Bearing(a, p))
	theta12 := toRad(Bearing(a, b))
	diff := theta13 - theta12

	// projection falls before a
	if math.Cos(diff) < 0 {
		return Distance(p, a)
	}

	dxt := math.Asin(math.Sin(d13) * math.Sin(diff))
	cosRatio := math.Cos(d13) / math.Cos(dxt)
	if cosRatio > 1 {
		cosRatio = 1
	} else if cosRatio < -1 {
		cosRatio = -1
	}
	dat := math.Acos(cosRatio)

	// projection falls past b
	if dat > d12 {
		return Distance(p, b)
	}

	return math.Abs(dxt) * EarthRadiusMeters
}
