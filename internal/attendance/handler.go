package attendance

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/attendance-tracker/pkg/common"
	"github.com/richxcame/attendance-tracker/pkg/logger"
	"github.com/richxcame/attendance-tracker/pkg/middleware"
	"github.com/richxcame/attendance-tracker/pkg/pagination"
	"go.uber.org/zap"
)

// ServiceInterface is the part of Service the handler needs
type ServiceInterface interface {
	SubmitCheckIn(ctx context.Context, req *SubmitRequest) (*SubmitResult, error)
	SubmitCheckOut(ctx context.Context, req *SubmitRequest) (*SubmitResult, error)
	RecordPing(ctx context.Context, req *SubmitRequest) (*PingResult, error)
	Status(ctx context.Context, employeeID uuid.UUID) (*Status, error)
	ListRecords(ctx context.Context, filter RecordFilter, limit, offset int) ([]*AttendanceRecord, int64, error)
}

// Handler handles attendance HTTP requests
type Handler struct {
	service ServiceInterface
}

// NewHandler creates a new attendance handler
func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers attendance routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	att := rg.Group("/attendance")
	{
		att.POST("/check-in", h.CheckIn)
		att.POST("/check-out", h.CheckOut)
		att.POST("/location", h.UpdateLocation)
		att.GET("/status/:employee_id", h.GetStatus)
		att.GET("/records", h.ListRecords)
	}
}

// CheckIn submits a check-in
func (h *Handler) CheckIn(c *gin.Context) {
	req, ok := h.bindSubmit(c)
	if !ok {
		return
	}

	result, err := h.service.SubmitCheckIn(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "failed to record check-in")
		return
	}

	common.SuccessResponseWithStatus(c, http.StatusCreated, result, "Check-in recorded successfully")
}

// CheckOut submits a check-out
func (h *Handler) CheckOut(c *gin.Context) {
	req, ok := h.bindSubmit(c)
	if !ok {
		return
	}

	result, err := h.service.SubmitCheckOut(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "failed to record check-out")
		return
	}

	common.SuccessResponseWithStatus(c, http.StatusCreated, result, "Check-out recorded successfully")
}

// UpdateLocation records an ambient location ping
func (h *Handler) UpdateLocation(c *gin.Context) {
	req, ok := h.bindSubmit(c)
	if !ok {
		return
	}

	result, err := h.service.RecordPing(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "failed to record location")
		return
	}

	common.SuccessResponse(c, result)
}

// GetStatus returns whether an employee is currently checked in
func (h *Handler) GetStatus(c *gin.Context) {
	employeeID, err := uuid.Parse(c.Param("employee_id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid employee ID")
		return
	}
	if !middleware.CanActFor(c, employeeID) {
		common.ErrorResponse(c, http.StatusForbidden, "access denied")
		return
	}

	status, err := h.service.Status(c.Request.Context(), employeeID)
	if err != nil {
		respondError(c, err, "failed to get attendance status")
		return
	}

	common.SuccessResponse(c, status)
}

// ListRecords lists attendance records. Employees only see their own;
// managers may filter by employee_id.
func (h *Handler) ListRecords(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	params := pagination.ParseParams(c)
	filter := RecordFilter{Kind: EventKind(c.Query("kind"))}
	if filter.Kind != "" && filter.Kind != KindCheckIn && filter.Kind != KindCheckOut {
		common.ErrorResponse(c, http.StatusBadRequest, "kind must be check_in or check_out")
		return
	}

	employeeID := userID
	if raw := c.Query("employee_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "invalid employee ID")
			return
		}
		employeeID = id
	}
	if !middleware.CanActFor(c, employeeID) {
		common.ErrorResponse(c, http.StatusForbidden, "access denied")
		return
	}
	filter.EmployeeID = &employeeID

	for key, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, key+" must be an RFC3339 timestamp")
			return
		}
		*dst = &t
	}

	records, total, err := h.service.ListRecords(c.Request.Context(), filter, params.Limit, params.Offset)
	if err != nil {
		respondError(c, err, "failed to list attendance records")
		return
	}

	common.SuccessResponseWithMeta(c, records, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// bindSubmit decodes the body and resolves the acting employee
func (h *Handler) bindSubmit(c *gin.Context) (*SubmitRequest, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}

	var req SubmitRequest
	if !middleware.BindJSON(c, &req) {
		return nil, false
	}

	if req.EmployeeID == uuid.Nil {
		req.EmployeeID = userID
	}
	if !middleware.CanActFor(c, req.EmployeeID) {
		common.ErrorResponse(c, http.StatusForbidden, "cannot submit attendance for another employee")
		return nil, false
	}

	return &req, true
}

func respondError(c *gin.Context, err error, fallback string) {
	var rejection *RejectionError
	if errors.As(err, &rejection) {
		common.ErrorResponseWithDetails(c, http.StatusBadRequest, rejection.Message(), rejection.Details())
		return
	}

	var appErr *common.AppError
	if errors.As(err, &appErr) {
		if appErr.Code >= http.StatusInternalServerError {
			logger.Error(fallback, zap.Error(err))
		}
		common.AppErrorResponse(c, appErr)
		return
	}

	logger.Error(fallback, zap.Error(err))
	common.ErrorResponse(c, http.StatusInternalServerError, fallback)
}
