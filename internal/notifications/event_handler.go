package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/richxcame/attendance-tracker/internal/attendance"
	"github.com/richxcame/attendance-tracker/internal/fraud"
	"github.com/richxcame/attendance-tracker/pkg/eventbus"
	"github.com/richxcame/attendance-tracker/pkg/logger"
	"go.uber.org/zap"
)

// Subscriber is the part of the event bus the handler needs
type Subscriber interface {
	Subscribe(ctx context.Context, subject, queue string, handler eventbus.Handler) error
}

// EventHandler turns fraud alerts and attendance events into notifications
type EventHandler struct {
	service *Service
}

// NewEventHandler creates an event handler backed by the notification service.
func NewEventHandler(service *Service) *EventHandler {
	return &EventHandler{service: service}
}

// RegisterSubscriptions subscribes to fraud alerts and attendance events.
func (h *EventHandler) RegisterSubscriptions(ctx context.Context, bus Subscriber) error {
	if err := bus.Subscribe(ctx, fraud.SubjectAlert, "notifications-fraud", h.handleFraudAlert); err != nil {
		return fmt.Errorf("subscribe to fraud alerts: %w", err)
	}
	if err := bus.Subscribe(ctx, "attendance.>", "notifications-attendance", h.handleAttendance); err != nil {
		return fmt.Errorf("subscribe to attendance events: %w", err)
	}
	logger.Info("notifications: subscribed to fraud and attendance events")
	return nil
}

func (h *EventHandler) handleFraudAlert(ctx context.Context, event *eventbus.Event) error {
	var alert fraud.AlertEvent
	if err := event.Decode(&alert); err != nil {
		return err
	}

	_, err := h.service.NotifyFraudAlert(ctx, alert)
	return err
}

func (h *EventHandler) handleAttendance(ctx context.Context, event *eventbus.Event) error {
	var ev attendance.Event
	if err := event.Decode(&ev); err != nil {
		return err
	}

	switch event.Type {
	case attendance.SubjectCheckIn, attendance.SubjectCheckOut:
		h.service.Broadcast(ev.Department, event.Type, attendanceData(ev))
		return nil
	case attendance.SubjectRejected:
		return h.onRejected(ctx, ev)
	default:
		logger.Debug("notifications: ignoring attendance event", zap.String("type", event.Type))
		return nil
	}
}

func (h *EventHandler) onRejected(ctx context.Context, ev attendance.Event) error {
	employee, err := h.service.repo.GetRecipient(ctx, ev.EmployeeID)
	if err != nil {
		return err
	}

	action := strings.ReplaceAll(string(ev.Kind), "_", "-")
	msg := Message{
		Type:     TypeAttendance,
		Priority: PriorityForSeverity(ev.Severity),
		Title:    fmt.Sprintf("Your %s was not recorded", action),
		Body:     rejectionBody(ev),
		Data:     attendanceData(ev),
	}

	if _, err := h.service.Notify(ctx, employee, msg); err != nil {
		return err
	}

	h.service.Broadcast(employee.Department, attendance.SubjectRejected, attendanceData(ev))
	return nil
}

func rejectionBody(ev attendance.Event) string {
	switch ev.Outcome {
	case attendance.OutcomeRejectedFraud:
		return "Suspicious activity was detected. Please contact your manager."
	case attendance.OutcomeRejectedOutOfArea:
		return "Your location is outside every approved work area."
	default:
		return "Your device reported an invalid location. Please try again."
	}
}

func attendanceData(ev attendance.Event) map[string]interface{} {
	data := map[string]interface{}{
		"employee_id": ev.EmployeeID.String(),
		"kind":        string(ev.Kind),
		"outcome":     string(ev.Outcome),
		"reason":      ev.Reason,
		"risk_level":  ev.RiskLevel,
		"latitude":    ev.Location.Latitude,
		"longitude":   ev.Location.Longitude,
		"occurred_at": ev.OccurredAt,
	}
	if ev.Severity != "" {
		data["severity"] = string(ev.Severity)
	}
	if ev.AreaName != "" {
		data["work_area_name"] = ev.AreaName
	}
	if ev.RecordID != nil {
		data["record_id"] = ev.RecordID.String()
	}
	return data
}
