package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	ws "github.com/richxcame/attendance-tracker/pkg/websocket"
)

// RepositoryInterface persists notifications and looks up recipients
type RepositoryInterface interface {
	GetRecipient(ctx context.Context, id uuid.UUID) (*Recipient, error)
	ListActiveManagers(ctx context.Context, department string) ([]*Recipient, error)
	GetDeviceTokens(ctx context.Context, userID uuid.UUID) ([]string, error)
	SaveDeviceToken(ctx context.Context, userID uuid.UUID, token, platform string) error
	DeleteDeviceTokens(ctx context.Context, tokens []string) error

	CreateNotification(ctx context.Context, n *Notification) error
	UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status Status, errorMessage string) error
	ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int64, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	DeleteReadBefore(ctx context.Context, before time.Time) (int64, error)
}

// PushSender delivers push notifications to device tokens
type PushSender interface {
	SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string, urgent bool) (*PushResult, error)
}

// PushResult reports a multicast send; InvalidTokens should be forgotten
type PushResult struct {
	SuccessCount  int
	FailureCount  int
	InvalidTokens []string
}

// SMSSender delivers text messages
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) (string, error)
}

// CountCache caches unread counts between reads
type CountCache interface {
	GetString(ctx context.Context, key string) (string, error)
	SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// LiveSender pushes frames to connected websocket clients
type LiveSender interface {
	SendToUser(userID string, msg *ws.Message) bool
	SendToRoom(room string, msg *ws.Message) int
}
