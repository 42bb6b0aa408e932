package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/attendance-tracker/pkg/common"
	"github.com/richxcame/attendance-tracker/pkg/validation"
)

// ValidateJSON binds the JSON body into req and validates it
func ValidateJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return err
	}
	return validation.ValidateStruct(req)
}

// BindJSON binds and validates req, writing a 400 response on failure.
// It returns false when the handler should stop.
func BindJSON(c *gin.Context, req interface{}) bool {
	err := ValidateJSON(c, req)
	if err == nil {
		return true
	}

	var valErr *validation.ValidationError
	if errors.As(err, &valErr) {
		common.ErrorResponseWithDetails(c, http.StatusBadRequest, "Validation failed", valErr.Errors)
	} else {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request format")
	}
	return false
}
