package fraud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/attendance-tracker/pkg/common"
	"github.com/richxcame/attendance-tracker/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SubjectAlert is the event bus subject for recorded alerts
const SubjectAlert = "fraud.alert"

var tracer = otel.Tracer("attendance/fraud")

// Service gathers inputs through its ports, runs the engine and records
// baselines and alerts
type Service struct {
	history    HistoryReader
	baselines  BaselineStore
	alerts     AlertRepository
	publisher  EventPublisher
	thresholds Thresholds
	now        func() time.Time
}

// NewService creates a new fraud service. publisher may be nil.
func NewService(history HistoryReader, baselines BaselineStore, alerts AlertRepository, publisher EventPublisher, thresholds Thresholds) *Service {
	return &Service{
		history:    history,
		baselines:  baselines,
		alerts:     alerts,
		publisher:  publisher,
		thresholds: thresholds,
		now:        time.Now,
	}
}

// Thresholds returns the service's default thresholds
func (s *Service) Thresholds() Thresholds {
	return s.thresholds
}

// CheckLocation evaluates a sample with the service's thresholds
func (s *Service) CheckLocation(ctx context.Context, employeeID uuid.UUID, sample LocationSample) (*RiskVerdict, error) {
	return s.CheckLocationWith(ctx, employeeID, sample, s.thresholds)
}

// CheckLocationWith evaluates a sample with explicit thresholds.
// Collaborator failures never fail the call; they are returned in
// RiskVerdict.Errors and logged.
func (s *Service) CheckLocationWith(ctx context.Context, employeeID uuid.UUID, sample LocationSample, t Thresholds) (*RiskVerdict, error) {
	if err := sample.Point.Validate(); err != nil {
		return nil, common.NewBadRequestError("invalid location", err)
	}

	ctx, span := tracer.Start(ctx, "fraud.CheckLocation")
	defer span.End()

	in := s.gather(ctx, employeeID, sample, t)
	verdict := Evaluate(in, t)

	span.SetAttributes(
		attribute.Float64("fraud.risk_level", verdict.RiskLevel),
		attribute.Bool("fraud.suspicious", verdict.IsSuspicious),
		attribute.String("fraud.primary_type", string(verdict.PrimaryType)),
	)

	for _, err := range verdict.Errors {
		logger.WithContext(ctx).Warn("Fraud check ran without some inputs",
			zap.String("employee_id", employeeID.String()), zap.Error(err))
	}

	s.recordBaselines(ctx, in, verdict)

	if verdict.IsSuspicious {
		s.recordAlert(ctx, employeeID, sample, &verdict)
	}

	return &verdict, nil
}

func (s *Service) gather(ctx context.Context, employeeID uuid.UUID, sample LocationSample, t Thresholds) Input {
	in := Input{EmployeeID: employeeID, Current: sample}

	history, err := s.history.RecentLocations(ctx, employeeID, t.HistoryLimit)
	if err != nil {
		in.HistoryErr = fmt.Errorf("recent locations: %w", err)
	} else {
		in.History = history
	}

	if sample.Device != nil {
		device, err := s.baselines.DeviceBaseline(ctx, employeeID)
		if err != nil {
			in.DeviceErr = fmt.Errorf("device baseline: %w", err)
		} else {
			in.PreviousDevice = device
		}
	}

	if sample.WifiNetworks != nil {
		known, err := s.baselines.KnownWifi(ctx, employeeID)
		if err != nil {
			in.WifiErr = fmt.Errorf("known wifi: %w", err)
		} else {
			in.KnownWifi = known
		}
	}

	return in
}

// recordBaselines stores a first-seen device or WiFi scan for later comparison
func (s *Service) recordBaselines(ctx context.Context, in Input, verdict RiskVerdict) {
	if verdict.Checks[CheckDeviceSharing].Reason == ReasonFirstDevice && in.Current.Device != nil {
		if err := s.baselines.SaveDeviceBaseline(ctx, in.EmployeeID, *in.Current.Device); err != nil {
			logger.Error("Failed to save device baseline",
				zap.String("employee_id", in.EmployeeID.String()), zap.Error(err))
		}
	}

	if verdict.Checks[CheckWifiSpoofing].Reason == ReasonFirstWifiScan && len(in.Current.WifiNetworks) > 0 {
		if err := s.baselines.SaveKnownWifi(ctx, in.EmployeeID, in.Current.WifiNetworks); err != nil {
			logger.Error("Failed to save wifi baseline",
				zap.String("employee_id", in.EmployeeID.String()), zap.Error(err))
		}
	}
}

func (s *Service) recordAlert(ctx context.Context, employeeID uuid.UUID, sample LocationSample, verdict *RiskVerdict) {
	alert := &FraudAlert{
		ID:         uuid.New(),
		EmployeeID: employeeID,
		Type:       verdict.PrimaryType,
		Severity:   verdict.Severity,
		Status:     AlertStatusActive,
		Location:   sample.Point,
		RiskLevel:  verdict.RiskLevel,
		Checks:     verdict.Checks,
		DetectedAt: s.now(),
	}

	if err := s.alerts.CreateAlert(ctx, alert); err != nil {
		logger.Error("Failed to record fraud alert",
			zap.String("employee_id", employeeID.String()), zap.Error(err))
		return
	}

	logger.WithContext(ctx).Warn("Fraud detected",
		zap.String("employee_id", employeeID.String()),
		zap.String("fraud_type", string(alert.Type)),
		zap.String("severity", string(alert.Severity)),
		zap.Float64("risk_level", alert.RiskLevel),
		zap.Stringer("location", alert.Location))

	if s.publisher == nil {
		return
	}
	event := AlertEvent{
		AlertID:    alert.ID,
		EmployeeID: employeeID,
		Type:       alert.Type,
		Severity:   alert.Severity,
		RiskLevel:  alert.RiskLevel,
		Location:   alert.Location,
		Reason:     verdict.PrimaryReason(),
		DetectedAt: alert.DetectedAt,
	}
	if err := s.publisher.Publish(ctx, SubjectAlert, event); err != nil {
		logger.Error("Failed to publish fraud alert", zap.String("alert_id", alert.ID.String()), zap.Error(err))
	}
}

// ListAlerts returns a page of alerts
func (s *Service) ListAlerts(ctx context.Context, filter AlertFilter, limit, offset int) ([]*FraudAlert, int64, error) {
	alerts, total, err := s.alerts.ListAlerts(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, common.NewInternalServerError("failed to list fraud alerts")
	}
	return alerts, total, nil
}

// GetAlert returns one alert
func (s *Service) GetAlert(ctx context.Context, id uuid.UUID) (*FraudAlert, error) {
	alert, err := s.alerts.GetAlert(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAlertNotFound) {
			return nil, common.NewNotFoundError("fraud alert not found")
		}
		return nil, common.NewInternalServerError("failed to get fraud alert")
	}
	return alert, nil
}

// InvestigateAlert marks an active alert as under investigation
func (s *Service) InvestigateAlert(ctx context.Context, id, investigatorID uuid.UUID, notes string) error {
	alert, err := s.GetAlert(ctx, id)
	if err != nil {
		return err
	}
	if alert.Status != AlertStatusActive {
		return common.NewBadRequestError(fmt.Sprintf("alert is already %s", alert.Status), nil)
	}

	if err := s.alerts.UpdateAlertStatus(ctx, id, AlertStatusInvestigating, &investigatorID, notes, ""); err != nil {
		return common.NewInternalServerError("failed to update fraud alert")
	}
	return nil
}

// ResolveAlert closes an alert as confirmed fraud or a false positive
func (s *Service) ResolveAlert(ctx context.Context, id, investigatorID uuid.UUID, confirmed bool, notes, actionTaken string) error {
	alert, err := s.GetAlert(ctx, id)
	if err != nil {
		return err
	}
	if alert.Status == AlertStatusConfirmed || alert.Status == AlertStatusFalsePositive {
		return common.NewBadRequestError(fmt.Sprintf("alert is already %s", alert.Status), nil)
	}

	status := AlertStatusFalsePositive
	if confirmed {
		status = AlertStatusConfirmed
	}

	if err := s.alerts.UpdateAlertStatus(ctx, id, status, &investigatorID, notes, actionTaken); err != nil {
		return common.NewInternalServerError("failed to update fraud alert")
	}

	logger.Info("Fraud alert resolved",
		zap.String("alert_id", id.String()),
		zap.String("status", string(status)))
	return nil
}
