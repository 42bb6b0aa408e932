package geofence

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/attendance-tracker/internal/geo"
	"github.com/richxcame/attendance-tracker/pkg/common"
	"github.com/richxcame/attendance-tracker/pkg/logger"
	"github.com/richxcame/attendance-tracker/pkg/middleware"
	"github.com/richxcame/attendance-tracker/pkg/pagination"
	"go.uber.org/zap"
)

// AdminHandler handles manager-facing work area endpoints
type AdminHandler struct {
	service *Service
}

// NewAdminHandler creates a new work area admin handler
func NewAdminHandler(service *Service) *AdminHandler {
	return &AdminHandler{service: service}
}

// RegisterRoutes registers work area routes
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	areas := rg.Group("/work-areas")
	{
		areas.GET("", h.ListWorkAreas)
		areas.POST("", h.CreateWorkArea)
		areas.GET("/check", h.CheckLocation)
		areas.GET("/:id", h.GetWorkArea)
		areas.PUT("/:id", h.UpdateWorkArea)
		areas.DELETE("/:id", h.DeleteWorkArea)
	}
}

// ListWorkAreas lists work areas with pagination and an optional department filter
func (h *AdminHandler) ListWorkAreas(c *gin.Context) {
	params := pagination.ParseParams(c)
	department := c.Query("department")

	areas, total, err := h.service.ListWorkAreas(c.Request.Context(), department, params.Limit, params.Offset)
	if err != nil {
		logger.Error("Failed to fetch work areas", zap.Error(err))
		common.ErrorResponse(c, http.StatusInternalServerError, "Failed to fetch work areas")
		return
	}

	common.SuccessResponseWithMeta(c, areas, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// CreateWorkArea creates a new work area
func (h *AdminHandler) CreateWorkArea(c *gin.Context) {
	var req CreateWorkAreaRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	area, err := h.service.CreateWorkArea(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	common.SuccessResponseWithStatus(c, http.StatusCreated, area, "Work area created successfully")
}

// GetWorkArea returns one work area with derived geometry
func (h *AdminHandler) GetWorkArea(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid work area ID")
		return
	}

	area, err := h.service.GetWorkArea(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	common.SuccessResponse(c, area)
}

// UpdateWorkArea applies a partial update
func (h *AdminHandler) UpdateWorkArea(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid work area ID")
		return
	}

	var req UpdateWorkAreaRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	area, err := h.service.UpdateWorkArea(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	common.SuccessResponse(c, area)
}

// DeleteWorkArea deactivates a work area
func (h *AdminHandler) DeleteWorkArea(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid work area ID")
		return
	}

	if err := h.service.DeleteWorkArea(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	common.SuccessResponseWithStatus(c, http.StatusOK, nil, "Work area deactivated")
}

// CheckLocation evaluates ?lat=&lng= against the current snapshot
func (h *AdminHandler) CheckLocation(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "lat and lng are required")
		return
	}

	verdict, err := h.service.Check(geo.GeoPoint{Latitude: lat, Longitude: lng})
	if err != nil {
		respondError(c, err)
		return
	}

	common.SuccessResponse(c, verdict)
}

func respondError(c *gin.Context, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.AppErrorResponse(c, appErr)
		return
	}
	logger.Error("Unexpected work area error", zap.Error(err))
	common.ErrorResponse(c, http.StatusInternalServerError, "Internal server error")
}
