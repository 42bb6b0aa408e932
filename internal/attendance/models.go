package attendance

import (
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/attendance-tracker/internal/fraud"
	"github.com/richxcame/attendance-tracker/internal/geo"
	"github.com/richxcame/attendance-tracker/internal/geofence"
)

// EventKind is the type of submitted location event
type EventKind string

const (
	KindCheckIn  EventKind = "check_in"
	KindCheckOut EventKind = "check_out"
	KindPing     EventKind = "ping"
)

// Outcome is the final state of a submitted event
type Outcome string

const (
	OutcomeAccepted          Outcome = "ACCEPTED"
	OutcomeRejectedFraud     Outcome = "REJECTED_FRAUD"
	OutcomeRejectedOutOfArea Outcome = "REJECTED_OUT_OF_AREA"
	OutcomeRejectedInvalid   Outcome = "REJECTED_INVALID"
)

// Reason codes besides the fraud check reasons
const (
	ReasonAccepted        = "accepted"
	ReasonOutsideWorkArea = "outside_work_area"
	ReasonInvalidLocation = "invalid_location"
)

// Event bus subjects
const (
	SubjectCheckIn  = "attendance.check_in"
	SubjectCheckOut = "attendance.check_out"
	SubjectPing     = "attendance.ping"
	SubjectRejected = "attendance.rejected"
)

// Decision is the combined trust verdict for one event
type Decision struct {
	Outcome  Outcome            `json:"outcome"`
	Reason   string             `json:"reason"`
	Severity fraud.Severity     `json:"severity,omitempty"`
	Risk     *fraud.RiskVerdict `json:"risk,omitempty"`
	Geofence *geofence.Verdict  `json:"geofence,omitempty"`
}

// Accepted reports whether the event may be recorded
func (d Decision) Accepted() bool {
	return d.Outcome == OutcomeAccepted
}

// Location is a client-reported position
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy" validate:"gte=0,lte=100000"`
}

// Point returns the coordinate without accuracy
func (l Location) Point() geo.GeoPoint {
	return geo.GeoPoint{Latitude: l.Latitude, Longitude: l.Longitude}
}

// SubmitRequest is the body of check-in, check-out and ping requests.
// EmployeeID defaults to the authenticated user.
type SubmitRequest struct {
	EmployeeID   uuid.UUID                `json:"employee_id"`
	Location     Location                 `json:"location"`
	Timestamp    *time.Time               `json:"timestamp,omitempty"`
	Device       *fraud.DeviceFingerprint `json:"device_info,omitempty"`
	WifiNetworks []fraud.WifiObservation  `json:"wifi_networks,omitempty" validate:"omitempty,max=100,dive"`
}

// Sample converts the request into a fraud location sample
func (r *SubmitRequest) Sample(now time.Time) fraud.LocationSample {
	capturedAt := now
	if r.Timestamp != nil && !r.Timestamp.IsZero() {
		capturedAt = *r.Timestamp
	}
	return fraud.LocationSample{
		Point:        r.Location.Point(),
		Accuracy:     r.Location.Accuracy,
		CapturedAt:   capturedAt,
		Device:       r.Device,
		WifiNetworks: r.WifiNetworks,
	}
}

// AttendanceRecord is a stored check-in or check-out
type AttendanceRecord struct {
	ID             uuid.UUID                             `json:"id" db:"id"`
	EmployeeID     uuid.UUID                             `json:"employee_id" db:"employee_id"`
	Kind           EventKind                             `json:"kind" db:"kind"`
	Location       geo.GeoPoint                          `json:"location"`
	Accuracy       float64                               `json:"accuracy" db:"accuracy"`
	H3Cell         string                                `json:"h3_cell,omitempty" db:"h3_cell"`
	WorkAreaID     *uuid.UUID                            `json:"work_area_id,omitempty" db:"work_area_id"`
	WorkAreaName   string                                `json:"work_area_name,omitempty" db:"work_area_name"`
	Department     string                                `json:"department,omitempty" db:"department"`
	InBufferZone   bool                                  `json:"in_buffer_zone" db:"in_buffer_zone"`
	DistanceMeters float64                               `json:"distance_meters" db:"distance_meters"`
	RiskLevel      float64                               `json:"risk_level" db:"risk_level"`
	Checks         map[fraud.CheckName]fraud.CheckResult `json:"checks,omitempty" db:"checks"`
	Device         *fraud.DeviceFingerprint              `json:"device_info,omitempty" db:"device"`
	WifiNetworks   []fraud.WifiObservation               `json:"wifi_networks,omitempty" db:"wifi_networks"`
	RecordedAt     time.Time                             `json:"recorded_at" db:"recorded_at"`
	CreatedAt      time.Time                             `json:"created_at" db:"created_at"`
}

// LocationRecord is one entry of an employee's location history
type LocationRecord struct {
	ID           uuid.UUID                             `json:"id" db:"id"`
	EmployeeID   uuid.UUID                             `json:"employee_id" db:"employee_id"`
	Source       EventKind                             `json:"source" db:"source"`
	Location     geo.GeoPoint                          `json:"location"`
	Accuracy     float64                               `json:"accuracy" db:"accuracy"`
	H3Cell       string                                `json:"h3_cell,omitempty" db:"h3_cell"`
	CapturedAt   time.Time                             `json:"captured_at" db:"captured_at"`
	Device       *fraud.DeviceFingerprint              `json:"device_info,omitempty" db:"device"`
	WifiNetworks []fraud.WifiObservation               `json:"wifi_networks,omitempty" db:"wifi_networks"`
	FraudPassed  bool                                  `json:"fraud_passed" db:"fraud_passed"`
	RiskLevel    float64                               `json:"risk_level" db:"risk_level"`
	Checks       map[fraud.CheckName]fraud.CheckResult `json:"checks,omitempty" db:"checks"`
}

// SubmitResult is returned for an accepted check-in or check-out
type SubmitResult struct {
	Decision Decision          `json:"decision"`
	Record   *AttendanceRecord `json:"record"`
}

// PingResult is returned for a location ping
type PingResult struct {
	LocationID   uuid.UUID       `json:"location_id"`
	IsSuspicious bool            `json:"is_suspicious"`
	FraudType    fraud.CheckName `json:"fraud_type,omitempty"`
	Severity     fraud.Severity  `json:"severity,omitempty"`
	RiskLevel    float64         `json:"risk_level"`
}

// Session is the currently open check-in
type Session struct {
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	Seconds   int64     `json:"duration_seconds"`
}

// Status is an employee's current attendance state
type Status struct {
	EmployeeID     uuid.UUID         `json:"employee_id"`
	IsCheckedIn    bool              `json:"is_checked_in"`
	LastCheckIn    *AttendanceRecord `json:"last_check_in"`
	LastCheckOut   *AttendanceRecord `json:"last_check_out"`
	CurrentSession *Session          `json:"current_session"`
}

// RecordFilter narrows attendance listings; zero values match everything
type RecordFilter struct {
	EmployeeID *uuid.UUID
	Kind       EventKind
	From       *time.Time
	To         *time.Time
}

// Event is published on the event bus for every decided submission
type Event struct {
	EmployeeID uuid.UUID      `json:"employee_id"`
	Kind       EventKind      `json:"kind"`
	Outcome    Outcome        `json:"outcome"`
	Reason     string         `json:"reason"`
	Severity   fraud.Severity `json:"severity,omitempty"`
	RiskLevel  float64        `json:"risk_level"`
	Location   geo.GeoPoint   `json:"location"`
	RecordID   *uuid.UUID     `json:"record_id,omitempty"`
	WorkAreaID *uuid.UUID     `json:"work_area_id,omitempty"`
	AreaName   string         `json:"work_area_name,omitempty"`
	Department string         `json:"department,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// RejectionError carries a non-accepting decision back to the caller
type RejectionError struct {
	Decision Decision
}

func (e *RejectionError) Error() string {
	return string(e.Decision.Outcome) + ": " + e.Decision.Reason
}

// Message is the user-facing explanation of the rejection
func (e *RejectionError) Message() string {
	switch e.Decision.Outcome {
	case OutcomeRejectedFraud:
		return "Suspicious activity detected, additional verification required"
	case OutcomeRejectedOutOfArea:
		return "Location is outside an approved work area"
	default:
		return "Invalid location"
	}
}

// Details is the machine-readable part of the rejection response
func (e *RejectionError) Details() map[string]interface{} {
	d := map[string]interface{}{
		"outcome":  e.Decision.Outcome,
		"reason":   e.Decision.Reason,
		"severity": e.Decision.Severity,
	}
	if e.Decision.Risk != nil {
		d["fraud_type"] = e.Decision.Risk.PrimaryType
		d["risk_level"] = e.Decision.Risk.RiskLevel
	}
	if g := e.Decision.Geofence; g != nil {
		d["distance_meters"] = g.Distance
		if g.NearestArea != nil {
			d["nearest_area"] = g.NearestArea
		}
	}
	return d
}
