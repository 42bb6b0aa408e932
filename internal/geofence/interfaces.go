package geofence

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryInterface defines the persistence operations for work areas
type RepositoryInterface interface {
	ListWorkAreas(ctx context.Context) ([]*WorkArea, error)
	GetWorkArea(ctx context.Context, id uuid.UUID) (*WorkArea, error)
	ListWorkAreasPaged(ctx context.Context, department string, limit, offset int) ([]*WorkArea, int64, error)
	CreateWorkArea(ctx context.Context, area *WorkArea) error
	UpdateWorkArea(ctx context.Context, area *WorkArea) error
	DeleteWorkArea(ctx context.Context, id uuid.UUID) error
}
