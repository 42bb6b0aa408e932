package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/attendance-tracker/internal/fraud"
	"github.com/richxcame/attendance-tracker/pkg/database"
)

// Repository handles attendance and location persistence
type Repository struct {
	db *pgxpool.Pool
}

var _ RepositoryInterface = (*Repository)(nil)

// NewRepository creates a new attendance repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateAttendance stores the attendance record and its location history
// entry in one transaction
func (r *Repository) CreateAttendance(ctx context.Context, record *AttendanceRecord, location *LocationRecord) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := insertAttendance(ctx, tx, record); err != nil {
			return err
		}
		return insertLocation(ctx, tx, location)
	})
}

// CreateLocation stores a location history entry
func (r *Repository) CreateLocation(ctx context.Context, location *LocationRecord) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return insertLocation(ctx, tx, location)
	})
}

func insertAttendance(ctx context.Context, tx pgx.Tx, rec *AttendanceRecord) error {
	checks, device, wifi, err := encodeAudit(rec.Checks, rec.Device, rec.WifiNetworks)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO attendance_records (
			id, employee_id, kind, latitude, longitude, accuracy, h3_cell,
			work_area_id, work_area_name, department, in_buffer_zone, distance_meters,
			risk_level, checks, device, wifi_networks, recorded_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err = tx.Exec(ctx, query,
		rec.ID, rec.EmployeeID, string(rec.Kind), rec.Location.Latitude, rec.Location.Longitude,
		rec.Accuracy, nullString(rec.H3Cell), rec.WorkAreaID, nullString(rec.WorkAreaName),
		nullString(rec.Department), rec.InBufferZone, rec.DistanceMeters, rec.RiskLevel,
		checks, device, wifi, rec.RecordedAt, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert attendance record: %w", err)
	}
	return nil
}

func insertLocation(ctx context.Context, tx pgx.Tx, rec *LocationRecord) error {
	checks, device, wifi, err := encodeAudit(rec.Checks, rec.Device, rec.WifiNetworks)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO location_records (
			id, employee_id, source, latitude, longitude, accuracy, h3_cell,
			captured_at, device, wifi_networks, fraud_passed, risk_level, checks
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = tx.Exec(ctx, query,
		rec.ID, rec.EmployeeID, string(rec.Source), rec.Location.Latitude, rec.Location.Longitude,
		rec.Accuracy, nullString(rec.H3Cell), rec.CapturedAt, device, wifi,
		rec.FraudPassed, rec.RiskLevel, checks,
	)
	if err != nil {
		return fmt.Errorf("failed to insert location record: %w", err)
	}
	return nil
}

const attendanceColumns = `id, employee_id, kind, latitude, longitude, accuracy,
	COALESCE(h3_cell, ''), work_area_id, COALESCE(work_area_name, ''), COALESCE(department, ''),
	in_buffer_zone, distance_meters, risk_level, checks, device, wifi_networks,
	recorded_at, created_at`

func scanAttendance(row pgx.Row) (*AttendanceRecord, error) {
	var rec AttendanceRecord
	var kind string
	var checks, device, wifi []byte

	err := row.Scan(
		&rec.ID, &rec.EmployeeID, &kind, &rec.Location.Latitude, &rec.Location.Longitude,
		&rec.Accuracy, &rec.H3Cell, &rec.WorkAreaID, &rec.WorkAreaName, &rec.Department,
		&rec.InBufferZone, &rec.DistanceMeters, &rec.RiskLevel, &checks, &device, &wifi,
		&rec.RecordedAt, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Kind = EventKind(kind)

	if len(checks) > 0 {
		if err := json.Unmarshal(checks, &rec.Checks); err != nil {
			return nil, fmt.Errorf("failed to decode checks: %w", err)
		}
	}
	if len(device) > 0 && string(device) != "null" {
		rec.Device = &fraud.DeviceFingerprint{}
		if err := json.Unmarshal(device, rec.Device); err != nil {
			return nil, fmt.Errorf("failed to decode device: %w", err)
		}
	}
	if len(wifi) > 0 {
		if err := json.Unmarshal(wifi, &rec.WifiNetworks); err != nil {
			return nil, fmt.Errorf("failed to decode wifi networks: %w", err)
		}
	}
	return &rec, nil
}

// LatestAttendance returns the most recent record of the given kind
func (r *Repository) LatestAttendance(ctx context.Context, employeeID uuid.UUID, kind EventKind) (*AttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance_records
		WHERE employee_id = $1 AND kind = $2
		ORDER BY recorded_at DESC
		LIMIT 1`

	rec, err := scanAttendance(r.db.QueryRow(ctx, query, employeeID, string(kind)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest %s: %w", kind, err)
	}
	return rec, nil
}

// ListAttendance returns a filtered page of records, newest first
func (r *Repository) ListAttendance(ctx context.Context, filter RecordFilter, limit, offset int) ([]*AttendanceRecord, int64, error) {
	where, args := filterClause(filter)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM attendance_records`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendance records: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM attendance_records%s
		ORDER BY recorded_at DESC
		LIMIT $%d OFFSET $%d`, attendanceColumns, where, len(args)+1, len(args)+2)

	rows, err := r.db.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attendance records: %w", err)
	}
	defer rows.Close()

	records := make([]*AttendanceRecord, 0, limit)
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func filterClause(f RecordFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.EmployeeID != nil {
		add("employee_id = $%d", *f.EmployeeID)
	}
	if f.Kind != "" {
		add("kind = $%d", string(f.Kind))
	}
	if f.From != nil {
		add("recorded_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("recorded_at < $%d", *f.To)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func encodeAudit(checks map[fraud.CheckName]fraud.CheckResult, device *fraud.DeviceFingerprint, wifi []fraud.WifiObservation) (c, d, w []byte, err error) {
	if checks != nil {
		if c, err = json.Marshal(checks); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to encode checks: %w", err)
		}
	}
	if device != nil {
		if d, err = json.Marshal(device); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to encode device: %w", err)
		}
	}
	if wifi != nil {
		if w, err = json.Marshal(wifi); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to encode wifi networks: %w", err)
		}
	}
	return c, d, w, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
