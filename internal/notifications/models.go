package notifications

import (
	"time"

	"github.com/google/uuid"
)

// Priority drives which channels a notification goes out on
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Channel is a delivery method
type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Status tracks delivery of a notification
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Notification types
const (
	TypeFraudAlert = "fraud_alert"
	TypeAttendance = "attendance"
)

// Recipient is an employee a notification can be addressed to
type Recipient struct {
	ID          uuid.UUID `json:"id" db:"id"`
	FullName    string    `json:"full_name" db:"full_name"`
	Email       string    `json:"email" db:"email"`
	PhoneNumber string    `json:"phone_number,omitempty" db:"phone_number"`
	Department  string    `json:"department" db:"department"`
	Role        string    `json:"role" db:"role"`
}

// IsManager reports whether the recipient reviews alerts
func (r *Recipient) IsManager() bool {
	return r.Role == "manager" || r.Role == "admin"
}

// Notification is a stored message to one user
type Notification struct {
	ID              uuid.UUID              `json:"id" db:"id"`
	UserID          uuid.UUID              `json:"user_id" db:"user_id"`
	Type            string                 `json:"type" db:"type"`
	Priority        Priority               `json:"priority" db:"priority"`
	Title           string                 `json:"title" db:"title"`
	Body            string                 `json:"body" db:"body"`
	Data            map[string]interface{} `json:"data,omitempty" db:"data"`
	DeliveryMethods []Channel              `json:"delivery_methods" db:"delivery_methods"`
	Status          Status                 `json:"status" db:"status"`
	ErrorMessage    string                 `json:"error_message,omitempty" db:"error_message"`
	CreatedAt       time.Time              `json:"created_at" db:"created_at"`
	SentAt          *time.Time             `json:"sent_at,omitempty" db:"sent_at"`
	ReadAt          *time.Time             `json:"read_at,omitempty" db:"read_at"`
}

// Message is the content of a notification before it is addressed
type Message struct {
	Type     string
	Priority Priority
	Title    string
	Body     string
	Data     map[string]interface{}
}

// DeliveryReport is the per-channel outcome of one dispatch
type DeliveryReport struct {
	Delivered []Channel
	Failed    map[Channel]error
}

// Status folds the per-channel outcomes into one notification status
func (r DeliveryReport) Status() Status {
	switch {
	case len(r.Failed) == 0:
		return StatusSent
	case len(r.Delivered) == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}

// RegisterDeviceTokenRequest is the request body for registering a push token
type RegisterDeviceTokenRequest struct {
	Token    string `json:"token" validate:"required,max=4096"`
	Platform string `json:"platform" validate:"required,oneof=ios android web"`
}
