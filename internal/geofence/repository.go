package geofence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrWorkAreaNotFound is returned when no work area has the requested id
var ErrWorkAreaNotFound = errors.New("work area not found")

// Repository handles database operations for work areas
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new work area repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const workAreaColumns = `id, name, department, boundary, buffer_meters, is_active, created_at, updated_at`

func scanWorkArea(row pgx.Row) (*WorkArea, error) {
	a := &WorkArea{}
	var boundary []byte
	err := row.Scan(&a.ID, &a.Name, &a.Department, &boundary, &a.BufferMeters,
		&a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(boundary, &a.Boundary); err != nil {
		return nil, fmt.Errorf("failed to decode boundary of work area %s: %w", a.ID, err)
	}
	return a, nil
}

// ListWorkAreas returns every work area, active or not, in creation order
func (r *Repository) ListWorkAreas(ctx context.Context) ([]*WorkArea, error) {
	query := `SELECT ` + workAreaColumns + ` FROM work_areas ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list work areas: %w", err)
	}
	defer rows.Close()

	areas := make([]*WorkArea, 0)
	for rows.Next() {
		a, err := scanWorkArea(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan work area: %w", err)
		}
		areas = append(areas, a)
	}

	return areas, rows.Err()
}

// ListWorkAreasPaged returns one page of work areas, optionally filtered by department
func (r *Repository) ListWorkAreasPaged(ctx context.Context, department string, limit, offset int) ([]*WorkArea, int64, error) {
	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM work_areas WHERE ($1 = '' OR department = $1)`, department,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count work areas: %w", err)
	}

	query := `SELECT ` + workAreaColumns + ` FROM work_areas
		WHERE ($1 = '' OR department = $1)
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, department, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list work areas: %w", err)
	}
	defer rows.Close()

	areas := make([]*WorkArea, 0)
	for rows.Next() {
		a, err := scanWorkArea(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan work area: %w", err)
		}
		areas = append(areas, a)
	}

	return areas, total, rows.Err()
}

// GetWorkArea retrieves a work area by ID
func (r *Repository) GetWorkArea(ctx context.Context, id uuid.UUID) (*WorkArea, error) {
	query := `SELECT ` + workAreaColumns + ` FROM work_areas WHERE id = $1`

	a, err := scanWorkArea(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWorkAreaNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get work area: %w", err)
	}
	return a, nil
}

// CreateWorkArea inserts a new work area
func (r *Repository) CreateWorkArea(ctx context.Context, area *WorkArea) error {
	boundary, err := json.Marshal(area.Boundary)
	if err != nil {
		return fmt.Errorf("failed to encode boundary: %w", err)
	}

	now := time.Now()
	if area.ID == uuid.Nil {
		area.ID = uuid.New()
	}
	area.CreatedAt = now
	area.UpdatedAt = now

	query := `
		INSERT INTO work_areas (id, name, department, boundary, buffer_meters, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.Exec(ctx, query, area.ID, area.Name, area.Department, boundary,
		area.BufferMeters, area.IsActive, area.CreatedAt, area.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create work area: %w", err)
	}
	return nil
}

// UpdateWorkArea overwrites a work area's editable fields
func (r *Repository) UpdateWorkArea(ctx context.Context, area *WorkArea) error {
	boundary, err := json.Marshal(area.Boundary)
	if err != nil {
		return fmt.Errorf("failed to encode boundary: %w", err)
	}
	area.UpdatedAt = time.Now()

	query := `
		UPDATE work_areas
		SET name = $2, department = $3, boundary = $4, buffer_meters = $5,
		    is_active = $6, updated_at = $7
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, area.ID, area.Name, area.Department, boundary,
		area.BufferMeters, area.IsActive, area.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update work area: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkAreaNotFound
	}
	return nil
}

// DeleteWorkArea deactivates a work area; history keeps referencing it
func (r *Repository) DeleteWorkArea(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE work_areas SET is_active = false, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete work area: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkAreaNotFound
	}
	return nil
}
