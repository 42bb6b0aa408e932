package notifications

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"github.com/richxcame/attendance-tracker/pkg/common"
	"github.com/richxcame/attendance-tracker/pkg/logger"
	"github.com/richxcame/attendance-tracker/pkg/middleware"
	"github.com/richxcame/attendance-tracker/pkg/pagination"
	ws "github.com/richxcame/attendance-tracker/pkg/websocket"
	"go.uber.org/zap"
)

// ServiceInterface is the part of Service the handler needs
type ServiceInterface interface {
	ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int64, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	RegisterDeviceToken(ctx context.Context, userID uuid.UUID, req *RegisterDeviceTokenRequest) error
}

// Handler handles notification HTTP and websocket requests
type Handler struct {
	service  ServiceInterface
	hub      *ws.Hub
	upgrader *gws.Upgrader
}

// NewHandler creates a notification handler. hub may be nil, which
// disables the live endpoint.
func NewHandler(service ServiceInterface, hub *ws.Hub, allowedOrigins []string) *Handler {
	return &Handler{
		service:  service,
		hub:      hub,
		upgrader: ws.NewUpgrader(allowedOrigins),
	}
}

// RegisterRoutes registers notification routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	n := rg.Group("/notifications")
	{
		n.GET("", h.List)
		n.GET("/unread-count", h.UnreadCount)
		n.POST("/:id/read", h.MarkAsRead)
		n.POST("/device-tokens", h.RegisterDeviceToken)
	}
}

// RegisterLiveRoutes registers the websocket endpoint. It must sit outside
// any request timeout middleware since the connection outlives the request.
func (h *Handler) RegisterLiveRoutes(rg *gin.RouterGroup) {
	rg.GET("/ws", h.Live)
}

// List returns the caller's notifications
func (h *Handler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	params := pagination.ParseParams(c)
	unreadOnly := c.Query("unread_only") == "true"

	items, total, err := h.service.ListNotifications(c.Request.Context(), userID, unreadOnly, params.Limit, params.Offset)
	if err != nil {
		respondError(c, err, "failed to list notifications")
		return
	}
	if items == nil {
		items = []*Notification{}
	}

	common.SuccessResponseWithMeta(c, items, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// UnreadCount returns how many notifications the caller has not read
func (h *Handler) UnreadCount(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to count notifications")
		return
	}

	common.SuccessResponse(c, gin.H{"count": count})
}

// MarkAsRead marks one of the caller's notifications read
func (h *Handler) MarkAsRead(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid notification ID")
		return
	}

	if err := h.service.MarkAsRead(c.Request.Context(), id, userID); err != nil {
		respondError(c, err, "failed to mark notification read")
		return
	}

	common.SuccessResponseWithStatus(c, http.StatusOK, nil, "Notification marked as read")
}

// RegisterDeviceToken stores a push token for the caller
func (h *Handler) RegisterDeviceToken(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req RegisterDeviceTokenRequest
	if !middleware.BindJSON(c, &req) {
		return
	}

	if err := h.service.RegisterDeviceToken(c.Request.Context(), userID, &req); err != nil {
		respondError(c, err, "failed to register device token")
		return
	}

	common.SuccessResponseWithStatus(c, http.StatusCreated, nil, "Device token registered")
}

// Live upgrades to a websocket. Managers join their department room and
// receive its attendance events; everyone receives their own notifications.
func (h *Handler) Live(c *gin.Context) {
	if h.hub == nil {
		common.ErrorResponse(c, http.StatusServiceUnavailable, "live updates are disabled")
		return
	}

	userID, ok := middleware.UserID(c)
	if !ok {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	role, _ := middleware.UserRole(c)

	room := ""
	if role == middleware.RoleManager || role == middleware.RoleAdmin {
		room = middleware.UserDepartment(c)
	}

	log := logger.WithContext(c.Request.Context())
	if _, err := h.hub.Accept(h.upgrader, c.Writer, c.Request, userID.String(), string(role), room, log); err != nil {
		// the upgrader has already written the error response
		log.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
}

func respondError(c *gin.Context, err error, fallback string) {
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
