package fraud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/attendance-tracker/internal/geo"
)

// ErrAlertNotFound is returned when no alert has the requested id
var ErrAlertNotFound = errors.New("fraud alert not found")

// Repository handles fraud data operations
type Repository struct {
	db *pgxpool.Pool
}

var (
	_ HistoryReader   = (*Repository)(nil)
	_ BaselineStore   = (*Repository)(nil)
	_ AlertRepository = (*Repository)(nil)
)

// NewRepository creates a new fraud repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// RecentLocations reads the latest stored location records, newest first,
// and returns them oldest first.
func (r *Repository) RecentLocations(ctx context.Context, employeeID uuid.UUID, limit int) ([]LocationSample, error) {
	query := `
		SELECT latitude, longitude, accuracy, captured_at, device, wifi_networks
		FROM location_records
		WHERE employee_id = $1
		ORDER BY captured_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, employeeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent locations: %w", err)
	}
	defer rows.Close()

	samples := make([]LocationSample, 0, limit)
	for rows.Next() {
		var s LocationSample
		var device, wifi []byte
		if err := rows.Scan(&s.Point.Latitude, &s.Point.Longitude, &s.Accuracy, &s.CapturedAt, &device, &wifi); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		if len(device) > 0 {
			s.Device = &DeviceFingerprint{}
			if err := json.Unmarshal(device, s.Device); err != nil {
				s.Device = nil
			}
		}
		if len(wifi) > 0 {
			_ = json.Unmarshal(wifi, &s.WifiNetworks)
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(samples)-1; i < j; i, j = i+1, j-1 {
		samples[i], samples[j] = samples[j], samples[i]
	}
	return samples, nil
}

// DeviceBaseline returns the stored fingerprint, or nil when none exists
func (r *Repository) DeviceBaseline(ctx context.Context, employeeID uuid.UUID) (*DeviceFingerprint, error) {
	var data []byte
	err := r.db.QueryRow(ctx,
		`SELECT fingerprint FROM device_baselines WHERE employee_id = $1`, employeeID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device baseline: %w", err)
	}

	var fp DeviceFingerprint
	if err := json.Unmarshal(data, &fp); err != nil {
		return nil, fmt.Errorf("failed to decode device baseline: %w", err)
	}
	return &fp, nil
}

// SaveDeviceBaseline stores the fingerprint unless one is already recorded
func (r *Repository) SaveDeviceBaseline(ctx context.Context, employeeID uuid.UUID, device DeviceFingerprint) error {
	data, err := json.Marshal(device)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO device_baselines (employee_id, fingerprint, recorded_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (employee_id) DO NOTHING
	`, employeeID, data)
	if err != nil {
		return fmt.Errorf("failed to save device baseline: %w", err)
	}
	return nil
}

// KnownWifi returns the stored WiFi baseline, or nil when none exists
func (r *Repository) KnownWifi(ctx context.Context, employeeID uuid.UUID) ([]WifiObservation, error) {
	var data []byte
	err := r.db.QueryRow(ctx,
		`SELECT networks FROM wifi_baselines WHERE employee_id = $1`, employeeID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wifi baseline: %w", err)
	}

	var networks []WifiObservation
	if err := json.Unmarshal(data, &networks); err != nil {
		return nil, fmt.Errorf("failed to decode wifi baseline: %w", err)
	}
	return networks, nil
}

// SaveKnownWifi stores the WiFi baseline unless one is already recorded
func (r *Repository) SaveKnownWifi(ctx context.Context, employeeID uuid.UUID, networks []WifiObservation) error {
	data, err := json.Marshal(networks)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO wifi_baselines (employee_id, networks, recorded_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (employee_id) DO NOTHING
	`, employeeID, data)
	if err != nil {
		return fmt.Errorf("failed to save wifi baseline: %w", err)
	}
	return nil
}

// CreateAlert creates a new fraud alert
func (r *Repository) CreateAlert(ctx context.Context, alert *FraudAlert) error {
	checks, err := json.Marshal(alert.Checks)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO fraud_alerts (
			id, employee_id, alert_type, severity, status, latitude, longitude,
			risk_level, checks, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.Exec(ctx, query,
		alert.ID,
		alert.EmployeeID,
		alert.Type,
		alert.Severity,
		alert.Status,
		alert.Location.Latitude,
		alert.Location.Longitude,
		alert.RiskLevel,
		checks,
		alert.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create fraud alert: %w", err)
	}
	return nil
}

const alertColumns = `id, employee_id, alert_type, severity, status, latitude, longitude,
	risk_level, checks, detected_at, investigated_at, investigated_by,
	resolved_at, COALESCE(notes, ''), COALESCE(action_taken, '')`

func scanAlert(row pgx.Row) (*FraudAlert, error) {
	var a FraudAlert
	var checks []byte
	var lat, lng float64

	err := row.Scan(
		&a.ID, &a.EmployeeID, &a.Type, &a.Severity, &a.Status, &lat, &lng,
		&a.RiskLevel, &checks, &a.DetectedAt, &a.InvestigatedAt, &a.InvestigatedBy,
		&a.ResolvedAt, &a.Notes, &a.ActionTaken,
	)
	if err != nil {
		return nil, err
	}

	a.Location = geo.GeoPoint{Latitude: lat, Longitude: lng}
	if err := json.Unmarshal(checks, &a.Checks); err != nil {
		a.Checks = map[CheckName]CheckResult{}
	}
	return &a, nil
}

// GetAlert retrieves a fraud alert by ID
func (r *Repository) GetAlert(ctx context.Context, id uuid.UUID) (*FraudAlert, error) {
	a, err := scanAlert(r.db.QueryRow(ctx, `SELECT `+alertColumns+` FROM fraud_alerts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fraud alert: %w", err)
	}
	return a, nil
}

// ListAlerts retrieves a page of alerts, newest first, with the total count
func (r *Repository) ListAlerts(ctx context.Context, filter AlertFilter, limit, offset int) ([]*FraudAlert, int64, error) {
	where := `WHERE ($1::uuid IS NULL OR employee_id = $1) AND ($2 = '' OR status = $2)`

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM fraud_alerts `+where,
		filter.EmployeeID, string(filter.Status)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count fraud alerts: %w", err)
	}

	query := `SELECT ` + alertColumns + ` FROM fraud_alerts ` + where + `
		ORDER BY detected_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.db.Query(ctx, query, filter.EmployeeID, string(filter.Status), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list fraud alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]*FraudAlert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan fraud alert: %w", err)
		}
		alerts = append(alerts, a)
	}

	return alerts, total, rows.Err()
}

// UpdateAlertStatus updates the status of a fraud alert
func (r *Repository) UpdateAlertStatus(ctx context.Context, id uuid.UUID, status FraudAlertStatus, investigatedBy *uuid.UUID, notes, actionTaken string) error {
	query := `
		UPDATE fraud_alerts
		SET status = $2,
		    investigated_at = CASE WHEN $3::uuid IS NOT NULL THEN COALESCE(investigated_at, NOW()) ELSE investigated_at END,
		    investigated_by = COALESCE($3, investigated_by),
		    resolved_at = CASE WHEN $2 IN ('confirmed', 'false_positive') THEN NOW() ELSE resolved_at END,
		    notes = COALESCE(NULLIF($4, ''), notes),
		    action_taken = COALESCE(NULLIF($5, ''), action_taken)
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, status, investigatedBy, notes, actionTaken)
	if err != nil {
		return fmt.Errorf("failed to update fraud alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}
