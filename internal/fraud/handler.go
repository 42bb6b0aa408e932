package fraud

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/attendance-tracker/pkg/common"
	"github.com/richxcame/attendance-tracker/pkg/logger"
	"github.com/richxcame/attendance-tracker/pkg/middleware"
	"github.com/richxcame/attendance-tracker/pkg/pagination"
	"go.uber.org/zap"
)

// AlertService is the part of Service the handler needs
type AlertService interface {
	ListAlerts(ctx context.Context, filter AlertFilter, limit, offset int) ([]*FraudAlert, int64, error)
	GetAlert(ctx context.Context, id uuid.UUID) (*FraudAlert, error)
	InvestigateAlert(ctx context.Context, id, investigatorID uuid.UUID, notes string) error
	ResolveAlert(ctx context.Context, id, investigatorID uuid.UUID, confirmed bool, notes, actionTaken string) error
}

// Handler serves the manager-facing fraud alert endpoints
type Handler struct {
	service AlertService
}

// NewHandler creates a new fraud handler
func NewHandler(service AlertService) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers fraud alert routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	alerts := rg.Group("/fraud/alerts")
	{
		alerts.GET("", h.ListAlerts)
		alerts.GET("/:id", h.GetAlert)
		alerts.POST("/:id/investigate", h.InvestigateAlert)
		alerts.POST("/:id/resolve", h.ResolveAlert)
	}
}

// ListAlerts lists alerts, optionally filtered by employee_id and status
func (h *Handler) ListAlerts(c *gin.Context) {
	params := pagination.ParseParams(c)

	filter := AlertFilter{Status: FraudAlertStatus(c.Query("status"))}
	if raw := c.Query("employee_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "invalid employee ID")
			return
		}
		filter.EmployeeID = &id
	}

	alerts, total, err := h.service.ListAlerts(c.Request.Context(), filter, params.Limit, params.Offset)
	if err != nil {
		respondError(c, err, "failed to list fraud alerts")
		return
	}

	common.SuccessResponseWithMeta(c, alerts, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// GetAlert returns one alert
func (h *Handler) GetAlert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid alert ID")
		return
	}

	alert, err := h.service.GetAlert(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "failed to get fraud alert")
		return
	}

	common.SuccessResponse(c, alert)
}

// InvestigateAlert takes an alert under review
func (h *Handler) InvestigateAlert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid alert ID")
		return
	}

	investigatorID, ok := middleware.UserID(c)
	if !ok {
		common.ErrorResponse(c, http.StatusUnauthorized, "invalid user ID")
		return
	}

	var req InvestigateAlertRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	if err := h.service.InvestigateAlert(c.Request.Context(), id, investigatorID, req.Notes); err != nil {
		respondError(c, err, "failed to update fraud alert")
		return
	}

	common.SuccessResponse(c, gin.H{"message": "alert marked as investigating"})
}

// ResolveAlert closes an alert
func (h *Handler) ResolveAlert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid alert ID")
		return
	}

	investigatorID, ok := middleware.UserID(c)
	if !ok {
		common.ErrorResponse(c, http.StatusUnauthorized, "invalid user ID")
		return
	}

	var req ResolveAlertRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	if err := h.service.ResolveAlert(c.Request.Context(), id, investigatorID, req.Confirmed, req.Notes, req.ActionTaken); err != nil {
		respondError(c, err, "failed to resolve fraud alert")
		return
	}

	common.SuccessResponse(c, gin.H{"message": "alert resolved successfully"})
}

func respondError(c *gin.Context, err error, fallback string) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.AppErrorResponse(c, appErr)
		return
	}
	logger.Error(fallback, zap.Error(err))
	common.ErrorResponse(c, http.StatusInternalServerError, fallback)
}
