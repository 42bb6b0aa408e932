package geofence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/richxcame/attendance-tracker/internal/geo"
	"github.com/richxcame/attendance-tracker/pkg/common"
	"github.com/richxcame/attendance-tracker/pkg/logger"
	"go.uber.org/zap"
)

// Service manages work areas and answers geofence queries from the current snapshot
type Service struct {
	repo      RepositoryInterface
	store     *Store
	refresher *Refresher
}

// NewService creates a new geofence service
func NewService(repo RepositoryInterface, store *Store, refresher *Refresher) *Service {
	return &Service{repo: repo, store: store, refresher: refresher}
}

// Snapshot returns the work areas currently in effect
func (s *Service) Snapshot() *Snapshot {
	return s.store.Snapshot()
}

// Check evaluates a point against the current snapshot
func (s *Service) Check(point geo.GeoPoint) (Verdict, error) {
	if err := point.Validate(); err != nil {
		return Verdict{}, common.NewBadRequestError("invalid location", err)
	}
	return s.store.Snapshot().Check(point), nil
}

// ListWorkAreas returns a page of work areas from storage
func (s *Service) ListWorkAreas(ctx context.Context, department string, limit, offset int) ([]*WorkArea, int64, error) {
	return s.repo.ListWorkAreasPaged(ctx, department, limit, offset)
}

// GetWorkArea returns a work area with its derived geometry
func (s *Service) GetWorkArea(ctx context.Context, id uuid.UUID) (*WorkAreaResponse, error) {
	area, err := s.repo.GetWorkArea(ctx, id)
	if err != nil {
		if errors.Is(err, ErrWorkAreaNotFound) {
			return nil, common.NewNotFoundError("work area not found")
		}
		return nil, common.NewInternalServerError("failed to get work area")
	}
	return s.describe(area), nil
}

// CreateWorkArea validates and stores a new work area, then reloads the snapshot
func (s *Service) CreateWorkArea(ctx context.Context, req *CreateWorkAreaRequest) (*WorkAreaResponse, error) {
	if err := geo.ValidatePolygon(req.Boundary); err != nil {
		return nil, common.NewUnprocessableError("invalid work area boundary", err)
	}
	if req.BufferMeters < 0 {
		return nil, common.NewBadRequestError("buffer_meters must not be negative", nil)
	}

	area := &WorkArea{
		ID:           uuid.New(),
		Name:         req.Name,
		Department:   req.Department,
		Boundary:     req.Boundary,
		BufferMeters: req.BufferMeters,
		IsActive:     true,
	}
	if req.IsActive != nil {
		area.IsActive = *req.IsActive
	}

	if err := s.repo.CreateWorkArea(ctx, area); err != nil {
		logger.Error("Failed to create work area", zap.Error(err))
		return nil, common.NewInternalServerError("failed to create work area")
	}

	logger.Info("Work area created",
		zap.String("area_id", area.ID.String()),
		zap.String("department", area.Department))

	s.reload(ctx)
	return s.describe(area), nil
}

// UpdateWorkArea applies a partial update, then reloads the snapshot
func (s *Service) UpdateWorkArea(ctx context.Context, id uuid.UUID, req *UpdateWorkAreaRequest) (*WorkAreaResponse, error) {
	area, err := s.repo.GetWorkArea(ctx, id)
	if err != nil {
		if errors.Is(err, ErrWorkAreaNotFound) {
			return nil, common.NewNotFoundError("work area not found")
		}
		return nil, common.NewInternalServerError("failed to get work area")
	}

	if req.Name != nil {
		area.Name = *req.Name
	}
	if req.Department != nil {
		area.Department = *req.Department
	}
	if req.Boundary != nil {
		if err := geo.ValidatePolygon(req.Boundary); err != nil {
			return nil, common.NewUnprocessableError("invalid work area boundary", err)
		}
		area.Boundary = req.Boundary
	}
	if req.BufferMeters != nil {
		if *req.BufferMeters < 0 {
			return nil, common.NewBadRequestError("buffer_meters must not be negative", nil)
		}
		area.BufferMeters = *req.BufferMeters
	}
	if req.IsActive != nil {
		area.IsActive = *req.IsActive
	}

	if err := s.repo.UpdateWorkArea(ctx, area); err != nil {
		if errors.Is(err, ErrWorkAreaNotFound) {
			return nil, common.NewNotFoundError("work area not found")
		}
		logger.Error("Failed to update work area", zap.String("area_id", id.String()), zap.Error(err))
		return nil, common.NewInternalServerError("failed to update work area")
	}

	s.reload(ctx)
	return s.describe(area), nil
}

// DeleteWorkArea deactivates a work area, then reloads the snapshot
func (s *Service) DeleteWorkArea(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteWorkArea(ctx, id); err != nil {
		if errors.Is(err, ErrWorkAreaNotFound) {
			return common.NewNotFoundError("work area not found")
		}
		return common.NewInternalServerError("failed to delete work area")
	}
	s.reload(ctx)
	return nil
}

// describe adds derived geometry and overlaps with other active areas
func (s *Service) describe(area *WorkArea) *WorkAreaResponse {
	center := geo.Centroid(area.Boundary)
	resp := &WorkAreaResponse{
		WorkArea:         area,
		AreaSquareMeters: geo.PolygonArea(area.Boundary),
		Center:           center,
	}
	if area.BufferMeters > 0 {
		resp.BufferedBoundary = geo.BufferPolygon(area.Boundary, area.BufferMeters)
	}
	if cell, err := geo.CellOf(center, geo.DefaultCellResolution); err == nil {
		resp.CenterCell = cell
	}

	for _, other := range s.store.Snapshot().ActiveAreas() {
		if other.ID == area.ID {
			continue
		}
		if geo.PolygonsOverlap(area.Boundary, other.Boundary) {
			resp.Overlaps = append(resp.Overlaps, *refOf(&other))
		}
	}

	return resp
}

func (s *Service) reload(ctx context.Context) {
	if s.refresher == nil {
		return
	}
	if err := s.refresher.Refresh(ctx); err != nil {
		logger.Warn("Work area snapshot not refreshed after change", zap.Error(fmt.Errorf("reload: %w", err)))
	}
}
