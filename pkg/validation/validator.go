// Package validation wraps go-playground/validator with the service's custom
// tags and turns its errors into field maps for 400 responses.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Validator returns the shared validator instance
func Validator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report JSON field names instead of Go field names
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		_ = validate.RegisterValidation("ssid", validateSSID)
		_ = validate.RegisterValidation("department", validateDepartment)
	})
	return validate
}

// ValidateStruct validates s and returns a *ValidationError for field failures
func ValidateStruct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return NewValidationError(verrs)
	}
	return err
}

// SSIDs are 1 to 32 octets.
func validateSSID(fl validator.FieldLevel) bool {
	n := len(fl.Field().String())
	return n >= 1 && n <= 32
}

// Department codes are short lowercase slugs such as "ops" or "field-sales".
func validateDepartment(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" || len(s) > 64 {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' && r != '_' {
			return false
		}
	}
	return true
}
