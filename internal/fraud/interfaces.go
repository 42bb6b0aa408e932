package fraud

import (
	"context"

	"github.com/google/uuid"
)

// HistoryReader returns an employee's most recent samples in chronological order
type HistoryReader interface {
	RecentLocations(ctx context.Context, employeeID uuid.UUID, limit int) ([]LocationSample, error)
}

// BaselineStore keeps the device and WiFi baselines per employee.
// Missing baselines are reported as nil without an error.
type BaselineStore interface {
	DeviceBaseline(ctx context.Context, employeeID uuid.UUID) (*DeviceFingerprint, error)
	SaveDeviceBaseline(ctx context.Context, employeeID uuid.UUID, device DeviceFingerprint) error
	KnownWifi(ctx context.Context, employeeID uuid.UUID) ([]WifiObservation, error)
	SaveKnownWifi(ctx context.Context, employeeID uuid.UUID, networks []WifiObservation) error
}

// AlertFilter narrows alert listings; zero values match everything
type AlertFilter struct {
	EmployeeID *uuid.UUID
	Status     FraudAlertStatus
}

// AlertRepository persists fraud alerts
type AlertRepository interface {
	CreateAlert(ctx context.Context, alert *FraudAlert) error
	GetAlert(ctx context.Context, id uuid.UUID) (*FraudAlert, error)
	ListAlerts(ctx context.Context, filter AlertFilter, limit, offset int) ([]*FraudAlert, int64, error)
	UpdateAlertStatus(ctx context.Context, id uuid.UUID, status FraudAlertStatus, investigatedBy *uuid.UUID, notes, actionTaken string) error
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
}
