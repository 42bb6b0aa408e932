package geo

import (
	"fmt"
	"strconv"

	"github.com/uber/h3-go/v4"
)

// DefaultCellResolution is roughly a city block (~0.1 km²), fine enough for
// attendance heatmaps without identifying a desk.
const DefaultCellResolution = 9

// CellOf returns the H3 cell index containing p at the given resolution.
func CellOf(p GeoPoint, resolution int) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Latitude, p.Longitude), resolution)
	if err != nil {
		return "", fmt.Errorf("h3 cell for %s: %w", p, err)
	}

	return cell.String(), nil
}

// CellCenter returns the center of the H3 cell with the given index.
func CellCenter(index string) (GeoPoint, error) {
	raw, err := strconv.ParseUint(index, 16, 64)
	if err != nil {
		return GeoPoint{}, fmt.Errorf("invalid h3 cell %q: %w", index, err)
	}

	cell := h3.Cell(raw)
	if !cell.IsValid() {
		return GeoPoint{}, fmt.Errorf("invalid h3 cell %q", index)
	}

	ll, err := cell.LatLng()
	if err != nil {
		return GeoPoint{}, fmt.Errorf("h3 cell center %q: %w", index, err)
	}

	return GeoPoint{Latitude: ll.Lat, Longitude: ll.Lng}, nil
}
