// Package geo holds the spherical geometry used by geofencing and the
// location fraud heuristics. Everything here is pure and safe for concurrent use.
//
// Distance, Bearing and the polygon helpers expect points that already passed
// Validate; callers validate at the boundary where coordinates enter. Use
// DistanceBetween and BearingBetween for points that may be malformed.
package geo

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
	ErrInvalidPolygon   = errors.New("polygon must contain at least 3 points")
)

// GeoPoint represents a WGS84 coordinate
type GeoPoint struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

// NewPoint builds a validated point
func NewPoint(lat, lng float64) (GeoPoint, error) {
	p := GeoPoint{Latitude: lat, Longitude: lng}
	if err := p.Validate(); err != nil {
		return GeoPoint{}, err
	}
	return p, nil
}

// Validate rejects out-of-range and non-finite coordinates.
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Latitude) || math.IsInf(p.Latitude, 0) || p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("%w: got %v", ErrInvalidLatitude, p.Latitude)
	}
	if math.IsNaN(p.Longitude) || math.IsInf(p.Longitude, 0) || p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("%w: got %v", ErrInvalidLongitude, p.Longitude)
	}
	return nil
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", p.Latitude, p.Longitude)
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func toDeg(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
