package attendance

import (
	"context"

	"github.com/google/uuid"
	"github.com/richxcame/attendance-tracker/internal/fraud"
)

// RiskAssessor scores a location sample
type RiskAssessor interface {
	CheckLocation(ctx context.Context, employeeID uuid.UUID, sample fraud.LocationSample) (*fraud.RiskVerdict, error)
}

// HistoryAppender keeps the recent-history cache in step with storage
type HistoryAppender interface {
	Append(ctx context.Context, employeeID uuid.UUID, sample fraud.LocationSample) error
}

// RepositoryInterface persists attendance and location records
type RepositoryInterface interface {
	// CreateAttendance stores both records atomically
	CreateAttendance(ctx context.Context, record *AttendanceRecord, location *LocationRecord) error
	CreateLocation(ctx context.Context, location *LocationRecord) error
	// LatestAttendance returns nil without an error when none exists
	LatestAttendance(ctx context.Context, employeeID uuid.UUID, kind EventKind) (*AttendanceRecord, error)
	ListAttendance(ctx context.Context, filter RecordFilter, limit, offset int) ([]*AttendanceRecord, int64, error)
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
}
