package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

type areaRequest struct {
	Name       string   `json:"name" validate:"required,max=10"`
	Department string   `json:"department" validate:"required,department"`
	Boundary   []point  `json:"boundary" validate:"required,min=3,dive"`
	Networks   []string `json:"networks" validate:"omitempty,dive,ssid"`
}

func validArea() areaRequest {
	return areaRequest{
		Name:       "HQ",
		Department: "field-ops",
		Boundary:   []point{{32, 34}, {32.1, 34}, {32.1, 34.1}},
		Networks:   []string{"office-5g"},
	}
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *areaRequest)
		field  string
	}{
		{"valid", func(r *areaRequest) {}, ""},
		{"missing name", func(r *areaRequest) { r.Name = "" }, "name"},
		{"bad department", func(r *areaRequest) { r.Department = "Field Ops" }, "department"},
		{"too few vertices", func(r *areaRequest) { r.Boundary = r.Boundary[:2] }, "boundary"},
		{"bad latitude", func(r *areaRequest) { r.Boundary[1].Latitude = 91 }, "boundary[1].latitude"},
		{"long ssid", func(r *areaRequest) { r.Networks = []string{"0123456789012345678901234567890123"} }, "networks[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validArea()
			tt.mutate(&req)

			err := ValidateStruct(&req)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			_, ok := verr.GetFieldError(tt.field)
			assert.True(t, ok, "missing %s in %v", tt.field, verr.Errors)
		})
	}
}

func TestValidationErrorHelpers(t *testing.T) {
	v := &ValidationError{}
	assert.False(t, v.HasErrors())

	v.AddError("b", "second")
	v.AddError("a", "first")
	assert.True(t, v.HasErrors())
	assert.Equal(t, "a: first; b: second", v.Error())
}
