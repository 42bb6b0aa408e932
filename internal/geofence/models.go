package geofence

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/attendance-tracker/internal/geo"
)

// WorkArea is an approved polygonal work location
type WorkArea struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	Name         string         `json:"name" db:"name"`
	Department   string         `json:"department" db:"department"`
	Boundary     []geo.GeoPoint `json:"boundary" db:"boundary"`
	BufferMeters float64        `json:"buffer_meters" db:"buffer_meters"`
	IsActive     bool           `json:"is_active" db:"is_active"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// Meters is a distance that encodes +Inf as JSON null.
type Meters float64

func (m Meters) MarshalJSON() ([]byte, error) {
	f := float64(m)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// AreaRef identifies a work area inside a verdict
type AreaRef struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Department string    `json:"department"`
}

// Verdict is the outcome of checking a point against the work areas
type Verdict struct {
	InArea       bool     `json:"in_area"`
	InBufferZone bool     `json:"in_buffer_zone,omitempty"`
	Area         *AreaRef `json:"area,omitempty"`
	Distance     Meters   `json:"distance_meters"`
	NearestArea  *AreaRef `json:"nearest_area,omitempty"`
}

func refOf(a *WorkArea) *AreaRef {
	return &AreaRef{ID: a.ID, Name: a.Name, Department: a.Department}
}

// CreateWorkAreaRequest is the request body for creating a work area
type CreateWorkAreaRequest struct {
	Name         string         `json:"name" validate:"required,max=120"`
	Department   string         `json:"department" validate:"required,department"`
	Boundary     []geo.GeoPoint `json:"boundary" validate:"required,min=3,dive"`
	BufferMeters float64        `json:"buffer_meters" validate:"gte=0,lte=5000"`
	IsActive     *bool          `json:"is_active,omitempty"`
}

// UpdateWorkAreaRequest is the request body for updating a work area
type UpdateWorkAreaRequest struct {
	Name         *string        `json:"name,omitempty" validate:"omitempty,max=120"`
	Department   *string        `json:"department,omitempty" validate:"omitempty,department"`
	Boundary     []geo.GeoPoint `json:"boundary,omitempty" validate:"omitempty,min=3,dive"`
	BufferMeters *float64       `json:"buffer_meters,omitempty" validate:"omitempty,gte=0,lte=5000"`
	IsActive     *bool          `json:"is_active,omitempty"`
}

// WorkAreaResponse adds derived geometry to a work area
type WorkAreaResponse struct {
	*WorkArea
	AreaSquareMeters float64        `json:"area_square_meters"`
	Center           geo.GeoPoint   `json:"center"`
	CenterCell       string         `json:"center_cell,omitempty"`
	BufferedBoundary []geo.GeoPoint `json:"buffered_boundary,omitempty"`
	Overlaps         []AreaRef      `json:"overlaps,omitempty"`
}
