package fraud

import (
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/attendance-tracker/internal/geo"
)

// Severity grades a single check or a whole verdict
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// CheckName identifies one heuristic
type CheckName string

// Evaluation order; primary-type ties resolve to the earlier check.
const (
	CheckGPSJump        CheckName = "gps_jump"
	CheckStagnation     CheckName = "stagnation"
	CheckDeviceSharing  CheckName = "device_sharing"
	CheckWifiSpoofing   CheckName = "wifi_spoofing"
	CheckPatternAnomaly CheckName = "pattern_anomaly"

	// CheckNone is the primary type of a verdict with nothing suspicious
	CheckNone CheckName = "none"
)

// CheckOrder lists the heuristics in evaluation order
var CheckOrder = []CheckName{
	CheckGPSJump,
	CheckStagnation,
	CheckDeviceSharing,
	CheckWifiSpoofing,
	CheckPatternAnomaly,
}

// Reason codes reported by checks
const (
	ReasonInsufficientData    = "insufficient_data"
	ReasonInvalidTime         = "invalid_time"
	ReasonError               = "error"
	ReasonNormalSpeed         = "normal_speed"
	ReasonExcessiveSpeed      = "excessive_speed"
	ReasonNormalMovement      = "normal_movement"
	ReasonProlongedStagnation = "prolonged_stagnation"
	ReasonFirstDevice         = "first_device"
	ReasonNoChanges           = "no_changes"
	ReasonDeviceChanges       = "device_changes"
	ReasonFirstWifiScan       = "first_wifi_scan"
	ReasonNormalWifi          = "normal_wifi"
	ReasonWifiAnomaly         = "wifi_anomaly"
	ReasonNormalPatterns      = "normal_patterns"
	ReasonPatternAnomaly      = "pattern_anomaly"
)

// DeviceFingerprint is the client-reported device snapshot
type DeviceFingerprint struct {
	UserAgent        string `json:"user_agent" validate:"max=512"`
	ScreenResolution string `json:"screen_resolution" validate:"max=32"`
	Timezone         string `json:"timezone" validate:"omitempty,timezone"`
	Language         string `json:"language" validate:"max=35"`
	Platform         string `json:"platform" validate:"max=64"`
}

// WifiObservation is one network seen during a scan
type WifiObservation struct {
	SSID           string `json:"ssid" validate:"ssid"`
	BSSID          string `json:"bssid,omitempty" validate:"omitempty,mac"`
	SignalStrength int    `json:"signal_strength,omitempty"`
}

// LocationSample is one reported position of an employee
type LocationSample struct {
	Point        geo.GeoPoint       `json:"point"`
	Accuracy     float64            `json:"accuracy"`
	CapturedAt   time.Time          `json:"captured_at"`
	Device       *DeviceFingerprint `json:"device,omitempty"`
	WifiNetworks []WifiObservation  `json:"wifi_networks,omitempty"`
}

// CheckResult is the outcome of one heuristic
type CheckResult struct {
	Check      CheckName              `json:"check"`
	Suspicious bool                   `json:"suspicious"`
	Severity   Severity               `json:"severity,omitempty"`
	Reason     string                 `json:"reason"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// RiskVerdict combines every check into a single score
type RiskVerdict struct {
	RiskLevel    float64                   `json:"risk_level"`
	IsSuspicious bool                      `json:"is_suspicious"`
	PrimaryType  CheckName                 `json:"primary_type"`
	Severity     Severity                  `json:"severity"`
	Checks       map[CheckName]CheckResult `json:"checks"`

	// Errors holds collaborator failures that made a check fail open
	Errors []error `json:"-"`
}

// PrimaryReason returns the reason code of the primary check, if any
func (v *RiskVerdict) PrimaryReason() string {
	if v == nil || v.PrimaryType == CheckNone {
		return ""
	}
	return v.Checks[v.PrimaryType].Reason
}

// Input is everything one evaluation needs; the engine does no I/O
type Input struct {
	EmployeeID     uuid.UUID
	Current        LocationSample
	History        []LocationSample // chronological, most recent last
	PreviousDevice *DeviceFingerprint
	KnownWifi      []WifiObservation

	HistoryErr error
	DeviceErr  error
	WifiErr    error
}

// FraudAlertStatus tracks the manager review of an alert
type FraudAlertStatus string

const (
	AlertStatusActive        FraudAlertStatus = "active"
	AlertStatusInvestigating FraudAlertStatus = "investigating"
	AlertStatusConfirmed     FraudAlertStatus = "confirmed"
	AlertStatusFalsePositive FraudAlertStatus = "false_positive"
)

// FraudAlert is recorded whenever a location is judged suspicious
type FraudAlert struct {
	ID             uuid.UUID                 `json:"id"`
	EmployeeID     uuid.UUID                 `json:"employee_id"`
	Type           CheckName                 `json:"type"`
	Severity       Severity                  `json:"severity"`
	Status         FraudAlertStatus          `json:"status"`
	Location       geo.GeoPoint              `json:"location"`
	RiskLevel      float64                   `json:"risk_level"`
	Checks         map[CheckName]CheckResult `json:"checks"`
	DetectedAt     time.Time                 `json:"detected_at"`
	InvestigatedAt *time.Time                `json:"investigated_at,omitempty"`
	InvestigatedBy *uuid.UUID                `json:"investigated_by,omitempty"`
	ResolvedAt     *time.Time                `json:"resolved_at,omitempty"`
	Notes          string                    `json:"notes,omitempty"`
	ActionTaken    string                    `json:"action_taken,omitempty"`
}

// AlertEvent is published on the event bus when an alert is recorded
type AlertEvent struct {
	AlertID    uuid.UUID    `json:"alert_id"`
	EmployeeID uuid.UUID    `json:"employee_id"`
	Type       CheckName    `json:"type"`
	Severity   Severity     `json:"severity"`
	RiskLevel  float64      `json:"risk_level"`
	Location   geo.GeoPoint `json:"location"`
	Reason     string       `json:"reason"`
	DetectedAt time.Time    `json:"detected_at"`
}

// InvestigateAlertRequest is the request body for taking an alert under review
type InvestigateAlertRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// ResolveAlertRequest is the request body for closing an alert
type ResolveAlertRequest struct {
	Confirmed   bool   `json:"confirmed"`
	Notes       string `json:"notes" validate:"max=2000"`
	ActionTaken string `json:"action_taken" validate:"max=500"`
}
