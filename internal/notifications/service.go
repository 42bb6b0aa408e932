package notifications

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/attendance-tracker/internal/fraud"
	"github.com/richxcame/attendance-tracker/pkg/common"
	"github.com/richxcame/attendance-tracker/pkg/logger"
	"github.com/richxcame/attendance-tracker/pkg/resilience"
	ws "github.com/richxcame/attendance-tracker/pkg/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("attendance/notifications")

const (
	deliveryTimeout = 30 * time.Second
	unreadCountTTL  = 5 * time.Minute
)

var (
	ErrChannelUnavailable   = errors.New("delivery channel not configured")
	ErrNoDeviceTokens       = errors.New("no device tokens registered")
	ErrNotificationNotFound = errors.New("notification not found")
)

// Service stores notifications and delivers them over push, SMS and the
// live websocket channel
type Service struct {
	repo        RepositoryInterface
	push        PushSender
	sms         SMSSender
	live        LiveSender
	counts      CountCache
	pushBreaker *resilience.CircuitBreaker
	smsBreaker  *resilience.CircuitBreaker
	retry       resilience.RetryConfig
	now         func() time.Time
	wg          sync.WaitGroup
}

// NewService creates a notification service. A nil push or SMS sender
// fails that channel; a nil live sender leaves in-app to the stored record.
func NewService(repo RepositoryInterface, push PushSender, sms SMSSender, live LiveSender) *Service {
	return &Service{
		repo:        repo,
		push:        push,
		sms:         sms,
		live:        live,
		pushBreaker: resilience.NewCircuitBreaker(resilience.ProviderSettings("fcm"), resilience.SkipDelivery(string(ChannelPush))),
		smsBreaker:  resilience.NewCircuitBreaker(resilience.ProviderSettings("twilio"), resilience.SkipDelivery(string(ChannelSMS))),
		retry:       resilience.DeliveryRetryConfig(),
		now:         time.Now,
	}
}

// WithCountCache caches unread counts in cache
func (s *Service) WithCountCache(cache CountCache) *Service {
	s.counts = cache
	return s
}

// Notify stores a notification for recipient and delivers it in the
// background over the channels its priority calls for
func (s *Service) Notify(ctx context.Context, recipient *Recipient, msg Message) (*Notification, error) {
	if msg.Priority == "" {
		msg.Priority = PriorityNormal
	}

	notification := &Notification{
		ID:              uuid.New(),
		UserID:          recipient.ID,
		Type:            msg.Type,
		Priority:        msg.Priority,
		Title:           msg.Title,
		Body:            msg.Body,
		Data:            msg.Data,
		DeliveryMethods: DeliveryMethods(msg.Priority, recipient),
		Status:          StatusPending,
		CreatedAt:       s.now(),
	}

	if err := s.repo.CreateNotification(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}
	s.forgetUnread(ctx, recipient.ID)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryTimeout)
		defer cancel()
		s.processNotification(dctx, recipient, notification)
	}()

	return notification, nil
}

// NotifyManagers sends msg to every active manager, optionally limited to
// one department, and returns how many were notified
func (s *Service) NotifyManagers(ctx context.Context, department string, msg Message) (int, error) {
	managers, err := s.repo.ListActiveManagers(ctx, department)
	if err != nil {
		return 0, fmt.Errorf("failed to list managers: %w", err)
	}

	sent := 0
	for _, m := range managers {
		if _, err := s.Notify(ctx, m, msg); err != nil {
			logger.Error("Failed to notify manager",
				zap.String("manager_id", m.ID.String()),
				zap.String("type", msg.Type),
				zap.Error(err))
			continue
		}
		sent++
	}

	logger.Info("Notified managers",
		zap.String("type", msg.Type),
		zap.String("priority", string(msg.Priority)),
		zap.Int("count", sent))
	return sent, nil
}

// NotifyFraudAlert fans a recorded fraud alert out to all active managers
func (s *Service) NotifyFraudAlert(ctx context.Context, alert fraud.AlertEvent) (int, error) {
	employee := alert.EmployeeID.String()
	if r, err := s.repo.GetRecipient(ctx, alert.EmployeeID); err == nil && r != nil && r.FullName != "" {
		employee = r.FullName
	}

	msg := Message{
		Type:     TypeFraudAlert,
		Priority: PriorityForSeverity(alert.Severity),
		Title:    fmt.Sprintf("Suspicious activity: %s", strings.ReplaceAll(string(alert.Type), "_", " ")),
		Body: fmt.Sprintf("%s, %s (severity %s, risk %.2f) at %s",
			employee, strings.ReplaceAll(alert.Reason, "_", " "), alert.Severity, alert.RiskLevel, alert.Location),
		Data: map[string]interface{}{
			"alert_id":    alert.AlertID.String(),
			"employee_id": alert.EmployeeID.String(),
			"fraud_type":  string(alert.Type),
			"severity":    string(alert.Severity),
			"risk_level":  alert.RiskLevel,
			"latitude":    alert.Location.Latitude,
			"longitude":   alert.Location.Longitude,
			"detected_at": alert.DetectedAt.Format(time.RFC3339),
		},
	}

	return s.NotifyManagers(ctx, "", msg)
}

// Broadcast pushes a live event to everyone connected in a department room
func (s *Service) Broadcast(room, msgType string, data map[string]interface{}) int {
	if s.live == nil || room == "" {
		return 0
	}
	return s.live.SendToRoom(room, ws.NewMessage(msgType, data))
}

// Wait blocks until background deliveries finish
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) processNotification(ctx context.Context, recipient *Recipient, notification *Notification) {
	ctx, span := tracer.Start(ctx, "notifications.Deliver", trace.WithAttributes(
		attribute.String("notification.type", notification.Type),
		attribute.String("notification.priority", string(notification.Priority)),
		attribute.Int("notification.channels", len(notification.DeliveryMethods)),
	))
	defer span.End()

	report := s.dispatch(ctx, recipient, notification)
	status := report.Status()
	span.SetAttributes(attribute.String("notification.status", string(status)))

	var errMsg string
	if len(report.Failed) > 0 {
		parts := make([]string, 0, len(report.Failed))
		for _, ch := range notification.DeliveryMethods {
			if err, ok := report.Failed[ch]; ok {
				parts = append(parts, fmt.Sprintf("%s: %v", ch, err))
			}
		}
		errMsg = strings.Join(parts, "; ")
	}

	if err := s.repo.UpdateNotificationStatus(ctx, notification.ID, status, errMsg); err != nil {
		logger.Error("Failed to update notification status",
			zap.String("notification_id", notification.ID.String()),
			zap.Error(err))
	}

	fields := []zap.Field{
		zap.String("notification_id", notification.ID.String()),
		zap.String("user_id", notification.UserID.String()),
		zap.String("status", string(status)),
	}
	if status == StatusSent {
		logger.Info("Notification sent", fields...)
	} else {
		logger.Warn("Notification not fully delivered", append(fields, zap.String("errors", errMsg))...)
	}
}

func (s *Service) dispatch(ctx context.Context, recipient *Recipient, n *Notification) DeliveryReport {
	report := DeliveryReport{Failed: map[Channel]error{}}

	for _, ch := range n.DeliveryMethods {
		var err error
		switch ch {
		case ChannelPush:
			err = s.sendPush(ctx, n)
		case ChannelInApp:
			s.sendLive(n)
		case ChannelEmail:
			// No mail provider is wired; the stored notification stands in.
			logger.Debug("Email delivery skipped",
				zap.String("notification_id", n.ID.String()),
				zap.String("email", recipient.Email))
			continue
		case ChannelSMS:
			err = s.sendSMS(ctx, recipient, n)
		default:
			err = fmt.Errorf("unsupported notification channel: %s", ch)
		}

		if err != nil {
			report.Failed[ch] = err
			continue
		}
		report.Delivered = append(report.Delivered, ch)
	}

	return report
}

func (s *Service) sendPush(ctx context.Context, n *Notification) error {
	if s.push == nil {
		return ErrChannelUnavailable
	}

	tokens, err := s.repo.GetDeviceTokens(ctx, n.UserID)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return ErrNoDeviceTokens
	}

	data := make(map[string]string, len(n.Data)+2)
	for k, v := range n.Data {
		data[k] = fmt.Sprintf("%v", v)
	}
	data["notification_id"] = n.ID.String()
	data["type"] = n.Type

	// the breaker drops results on error; keep the last one for pruning
	var res *PushResult
	_, err = s.executeWithBreaker(ctx, s.pushBreaker, func(ctx context.Context) (interface{}, error) {
		r, err := s.push.SendMulticast(ctx, tokens, n.Title, n.Body, data, n.Priority == PriorityUrgent)
		if r != nil {
			res = r
		}
		return r, err
	})

	if res != nil && len(res.InvalidTokens) > 0 {
		if derr := s.repo.DeleteDeviceTokens(ctx, res.InvalidTokens); derr != nil {
			logger.Warn("Failed to prune device tokens", zap.Error(derr))
		}
	}
	return err
}

func (s *Service) sendSMS(ctx context.Context, recipient *Recipient, n *Notification) error {
	if s.sms == nil {
		return ErrChannelUnavailable
	}

	message := fmt.Sprintf("%s: %s", n.Title, n.Body)
	_, err := s.executeWithBreaker(ctx, s.smsBreaker, func(ctx context.Context) (interface{}, error) {
		return s.sms.SendSMS(ctx, recipient.PhoneNumber, message)
	})
	return err
}

func (s *Service) sendLive(n *Notification) {
	if s.live == nil {
		return
	}
	msg := ws.NewMessage(n.Type, map[string]interface{}{
		"notification_id": n.ID.String(),
		"priority":        string(n.Priority),
		"title":           n.Title,
		"body":            n.Body,
		"data":            n.Data,
	})
	s.live.SendToUser(n.UserID.String(), msg)
}

// executeWithBreaker retries op through breaker; an open breaker is
// reported by resilience.ErrCircuitOpen and not retried
func (s *Service) executeWithBreaker(ctx context.Context, breaker *resilience.CircuitBreaker, op resilience.Operation) (interface{}, error) {
	if breaker == nil {
		return resilience.Retry(ctx, s.retry, op)
	}
	return resilience.RetryWithBreaker(ctx, s.retry, breaker, op)
}

// ListNotifications returns a page of the user's notifications
func (s *Service) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int64, error) {
	return s.repo.ListNotifications(ctx, userID, unreadOnly, limit, offset)
}

// MarkAsRead marks one of the user's notifications as read
func (s *Service) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	err := s.repo.MarkAsRead(ctx, id, userID)
	if errors.Is(err, ErrNotificationNotFound) {
		return common.NewNotFoundError("notification not found")
	}
	if err != nil {
		return err
	}
	s.forgetUnread(ctx, userID)
	return nil
}

// UnreadCount returns how many notifications the user has not read
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	key := unreadKey(userID)
	if s.counts != nil {
		if raw, err := s.counts.GetString(ctx, key); err == nil {
			if n, err := strconv.Atoi(raw); err == nil {
				return n, nil
			}
		}
	}

	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}

	if s.counts != nil {
		if err := s.counts.SetWithExpiration(ctx, key, count, unreadCountTTL); err != nil {
			logger.Warn("Failed to cache unread count", zap.String("user_id", userID.String()), zap.Error(err))
		}
	}
	return count, nil
}

func (s *Service) forgetUnread(ctx context.Context, userID uuid.UUID) {
	if s.counts == nil {
		return
	}
	if err := s.counts.Delete(ctx, unreadKey(userID)); err != nil {
		logger.Warn("Failed to invalidate unread count", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

func unreadKey(userID uuid.UUID) string {
	return "notifications:unread:" + userID.String()
}

// RegisterDeviceToken stores a push token for the user
func (s *Service) RegisterDeviceToken(ctx context.Context, userID uuid.UUID, req *RegisterDeviceTokenRequest) error {
	return s.repo.SaveDeviceToken(ctx, userID, req.Token, req.Platform)
}

// CleanupRead deletes read notifications older than retention
func (s *Service) CleanupRead(ctx context.Context, retention time.Duration) (int64, error) {
	deleted, err := s.repo.DeleteReadBefore(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to clean up notifications: %w", err)
	}
	if deleted > 0 {
		logger.Info("Deleted old notifications", zap.Int64("count", deleted))
	}
	return deleted, nil
}

// RunCleanup deletes old read notifications every interval until ctx ends
func (s *Service) RunCleanup(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.CleanupRead(ctx, retention); err != nil {
				logger.Error("Notification cleanup failed", zap.Error(err))
			}
		}
	}
}
