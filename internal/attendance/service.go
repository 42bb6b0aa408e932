package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/attendance-tracker/internal/fraud"
	"github.com/richxcame/attendance-tracker/internal/geo"
	"github.com/richxcame/attendance-tracker/internal/geofence"
	"github.com/richxcame/attendance-tracker/pkg/common"
	"github.com/richxcame/attendance-tracker/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("attendance/attendance")

// Service decides on submitted events and records the accepted ones
type Service struct {
	repo      RepositoryInterface
	risk      RiskAssessor
	areas     geofence.WorkAreaProvider
	history   HistoryAppender
	publisher EventPublisher
	now       func() time.Time
}

// NewService creates a new attendance service. history and publisher may be nil.
func NewService(repo RepositoryInterface, risk RiskAssessor, areas geofence.WorkAreaProvider, history HistoryAppender, publisher EventPublisher) *Service {
	return &Service{
		repo:      repo,
		risk:      risk,
		areas:     areas,
		history:   history,
		publisher: publisher,
		now:       time.Now,
	}
}

// SubmitCheckIn evaluates and records a check-in
func (s *Service) SubmitCheckIn(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	return s.submit(ctx, KindCheckIn, req)
}

// SubmitCheckOut evaluates and records a check-out
func (s *Service) SubmitCheckOut(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	return s.submit(ctx, KindCheckOut, req)
}

func (s *Service) submit(ctx context.Context, kind EventKind, req *SubmitRequest) (*SubmitResult, error) {
	sample := req.Sample(s.now())

	decision, err := s.evaluate(ctx, kind, req.EmployeeID, sample)
	if err != nil {
		return nil, err
	}

	if !decision.Accepted() {
		logger.WithContext(ctx).Info("Attendance event rejected",
			zap.String("employee_id", req.EmployeeID.String()),
			zap.String("kind", string(kind)),
			zap.String("outcome", string(decision.Outcome)),
			zap.String("reason", decision.Reason))
		s.publish(ctx, SubjectRejected, s.eventOf(req.EmployeeID, kind, sample, decision, nil))
		return nil, &RejectionError{Decision: decision}
	}

	record := s.attendanceRecord(req.EmployeeID, kind, sample, decision)
	location := s.locationRecord(req.EmployeeID, kind, sample, decision.Risk)

	if err := s.repo.CreateAttendance(ctx, record, location); err != nil {
		return nil, common.NewInternalServerError(fmt.Sprintf("failed to record %s: %v", kind, err))
	}

	s.appendHistory(ctx, req.EmployeeID, sample)

	logger.WithContext(ctx).Info("Attendance recorded",
		zap.String("employee_id", req.EmployeeID.String()),
		zap.String("kind", string(kind)),
		zap.String("record_id", record.ID.String()),
		zap.String("work_area", record.WorkAreaName))

	subject := SubjectCheckIn
	if kind == KindCheckOut {
		subject = SubjectCheckOut
	}
	s.publish(ctx, subject, s.eventOf(req.EmployeeID, kind, sample, decision, &record.ID))

	return &SubmitResult{Decision: decision, Record: record}, nil
}

// RecordPing scores an ambient location update and stores it whatever the
// verdict; suspicious pings are flagged rather than dropped and the
// geofence is not consulted.
func (s *Service) RecordPing(ctx context.Context, req *SubmitRequest) (*PingResult, error) {
	sample := req.Sample(s.now())
	if err := sample.Point.Validate(); err != nil {
		decisionsTotal.WithLabelValues(string(KindPing), string(OutcomeRejectedInvalid)).Inc()
		return nil, common.NewBadRequestError(ReasonInvalidLocation, err)
	}

	ctx, span := tracer.Start(ctx, "attendance.RecordPing")
	defer span.End()

	start := s.now()
	verdict, err := s.risk.CheckLocation(ctx, req.EmployeeID, sample)
	evaluationDuration.WithLabelValues(string(KindPing)).Observe(s.now().Sub(start).Seconds())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	riskLevel.WithLabelValues(string(KindPing)).Observe(verdict.RiskLevel)

	location := s.locationRecord(req.EmployeeID, KindPing, sample, verdict)
	if err := s.repo.CreateLocation(ctx, location); err != nil {
		return nil, common.NewInternalServerError(fmt.Sprintf("failed to record location: %v", err))
	}
	s.appendHistory(ctx, req.EmployeeID, sample)

	outcome := OutcomeAccepted
	if verdict.IsSuspicious {
		outcome = OutcomeRejectedFraud
	}
	decisionsTotal.WithLabelValues(string(KindPing), string(outcome)).Inc()

	s.publish(ctx, SubjectPing, Event{
		EmployeeID: req.EmployeeID,
		Kind:       KindPing,
		Outcome:    outcome,
		Reason:     verdict.PrimaryReason(),
		Severity:   verdict.Severity,
		RiskLevel:  verdict.RiskLevel,
		Location:   sample.Point,
		RecordID:   &location.ID,
		OccurredAt: sample.CapturedAt,
	})

	result := &PingResult{
		LocationID:   location.ID,
		IsSuspicious: verdict.IsSuspicious,
		RiskLevel:    verdict.RiskLevel,
	}
	if verdict.IsSuspicious {
		result.FraudType = verdict.PrimaryType
		result.Severity = verdict.Severity
	}
	return result, nil
}

// Status reports whether the employee is checked in. They are when the
// latest check-in is newer than the latest check-out.
func (s *Service) Status(ctx context.Context, employeeID uuid.UUID) (*Status, error) {
	lastIn, err := s.repo.LatestAttendance(ctx, employeeID, KindCheckIn)
	if err != nil {
		return nil, common.NewInternalServerError(fmt.Sprintf("failed to get last check-in: %v", err))
	}
	lastOut, err := s.repo.LatestAttendance(ctx, employeeID, KindCheckOut)
	if err != nil {
		return nil, common.NewInternalServerError(fmt.Sprintf("failed to get last check-out: %v", err))
	}

	status := &Status{
		EmployeeID:   employeeID,
		LastCheckIn:  lastIn,
		LastCheckOut: lastOut,
	}
	status.IsCheckedIn = lastIn != nil && (lastOut == nil || lastIn.RecordedAt.After(lastOut.RecordedAt))

	if status.IsCheckedIn {
		d := s.now().Sub(lastIn.RecordedAt)
		if d < 0 {
			d = 0
		}
		d = d.Truncate(time.Second)
		status.CurrentSession = &Session{
			StartedAt: lastIn.RecordedAt,
			Duration:  d.String(),
			Seconds:   int64(d / time.Second),
		}
	}

	return status, nil
}

// ListRecords returns a page of attendance records
func (s *Service) ListRecords(ctx context.Context, filter RecordFilter, limit, offset int) ([]*AttendanceRecord, int64, error) {
	return s.repo.ListAttendance(ctx, filter, limit, offset)
}

func (s *Service) evaluate(ctx context.Context, kind EventKind, employeeID uuid.UUID, sample fraud.LocationSample) (Decision, error) {
	ctx, span := tracer.Start(ctx, "attendance.Decide")
	defer span.End()
	span.SetAttributes(
		attribute.String("attendance.kind", string(kind)),
		attribute.String("attendance.employee_id", employeeID.String()),
	)

	start := s.now()
	decision, err := Decide(sample.Point,
		func() (*fraud.RiskVerdict, error) {
			return s.risk.CheckLocation(ctx, employeeID, sample)
		},
		func(p geo.GeoPoint) geofence.Verdict {
			return s.areas.Snapshot().Check(p)
		},
	)
	evaluationDuration.WithLabelValues(string(kind)).Observe(s.now().Sub(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation failed")
		return Decision{}, err
	}

	span.SetAttributes(
		attribute.String("attendance.outcome", string(decision.Outcome)),
		attribute.String("attendance.reason", decision.Reason),
	)
	decisionsTotal.WithLabelValues(string(kind), string(decision.Outcome)).Inc()
	if decision.Risk != nil {
		riskLevel.WithLabelValues(string(kind)).Observe(decision.Risk.RiskLevel)
	}

	return decision, nil
}

func (s *Service) attendanceRecord(employeeID uuid.UUID, kind EventKind, sample fraud.LocationSample, d Decision) *AttendanceRecord {
	rec := &AttendanceRecord{
		ID:           uuid.New(),
		EmployeeID:   employeeID,
		Kind:         kind,
		Location:     sample.Point,
		Accuracy:     sample.Accuracy,
		H3Cell:       cellOf(sample.Point),
		Device:       sample.Device,
		WifiNetworks: sample.WifiNetworks,
		RecordedAt:   sample.CapturedAt,
		CreatedAt:    s.now(),
	}
	if d.Risk != nil {
		rec.RiskLevel = d.Risk.RiskLevel
		rec.Checks = d.Risk.Checks
	}
	if g := d.Geofence; g != nil {
		rec.InBufferZone = g.InBufferZone
		rec.DistanceMeters = float64(g.Distance)
		if g.Area != nil {
			id := g.Area.ID
			rec.WorkAreaID = &id
			rec.WorkAreaName = g.Area.Name
			rec.Department = g.Area.Department
		}
	}
	return rec
}

func (s *Service) locationRecord(employeeID uuid.UUID, source EventKind, sample fraud.LocationSample, risk *fraud.RiskVerdict) *LocationRecord {
	rec := &LocationRecord{
		ID:           uuid.New(),
		EmployeeID:   employeeID,
		Source:       source,
		Location:     sample.Point,
		Accuracy:     sample.Accuracy,
		H3Cell:       cellOf(sample.Point),
		CapturedAt:   sample.CapturedAt,
		Device:       sample.Device,
		WifiNetworks: sample.WifiNetworks,
		FraudPassed:  true,
	}
	if risk != nil {
		rec.FraudPassed = !risk.IsSuspicious
		rec.RiskLevel = risk.RiskLevel
		rec.Checks = risk.Checks
	}
	return rec
}

func (s *Service) eventOf(employeeID uuid.UUID, kind EventKind, sample fraud.LocationSample, d Decision, recordID *uuid.UUID) Event {
	ev := Event{
		EmployeeID: employeeID,
		Kind:       kind,
		Outcome:    d.Outcome,
		Reason:     d.Reason,
		Severity:   d.Severity,
		Location:   sample.Point,
		RecordID:   recordID,
		OccurredAt: sample.CapturedAt,
	}
	if d.Risk != nil {
		ev.RiskLevel = d.Risk.RiskLevel
	}
	if g := d.Geofence; g != nil && g.Area != nil {
		id := g.Area.ID
		ev.WorkAreaID = &id
		ev.AreaName = g.Area.Name
		ev.Department = g.Area.Department
	}
	return ev
}

func (s *Service) appendHistory(ctx context.Context, employeeID uuid.UUID, sample fraud.LocationSample) {
	if s.history == nil {
		return
	}
	if err := s.history.Append(ctx, employeeID, sample); err != nil {
		logger.Warn("Failed to update location history cache",
			zap.String("employee_id", employeeID.String()), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, subject string, ev Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, subject, ev); err != nil {
		logger.Error("Failed to publish attendance event", zap.String("subject", subject), zap.Error(err))
	}
}

// cellOf returns "" for points H3 cannot index.
func cellOf(p geo.GeoPoint) string {
	cell, err := geo.CellOf(p, geo.DefaultCellResolution)
	if err != nil {
		return ""
	}
	return cell
}
