package geofence

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/attendance-tracker/internal/geo"
	"github.com/richxcame/attendance-tracker/pkg/logger"
	"go.uber.org/zap"
)

// Snapshot is an immutable view of the work areas at a point in time.
type Snapshot struct {
	areas    []WorkArea
	byID     map[uuid.UUID]int
	loadedAt time.Time
}

// NewSnapshot copies areas into a new snapshot.
func NewSnapshot(areas []WorkArea, loadedAt time.Time) *Snapshot {
	s := &Snapshot{
		areas:    make([]WorkArea, len(areas)),
		byID:     make(map[uuid.UUID]int, len(areas)),
		loadedAt: loadedAt,
	}
	for i, a := range areas {
		a.Boundary = append([]geo.GeoPoint(nil), a.Boundary...)
		s.areas[i] = a
		s.byID[a.ID] = i
	}
	return s
}

// Areas returns every area, active or not, in load order.
func (s *Snapshot) Areas() []WorkArea {
	if s == nil {
		return nil
	}
	return s.areas
}

// ActiveAreas returns the active areas in load order.
func (s *Snapshot) ActiveAreas() []WorkArea {
	if s == nil {
		return nil
	}
	active := make([]WorkArea, 0, len(s.areas))
	for _, a := range s.areas {
		if a.IsActive {
			active = append(active, a)
		}
	}
	return active
}

// AreaByID looks up an area regardless of its active flag.
func (s *Snapshot) AreaByID(id uuid.UUID) (WorkArea, bool) {
	if s == nil {
		return WorkArea{}, false
	}
	i, ok := s.byID[id]
	if !ok {
		return WorkArea{}, false
	}
	return s.areas[i], true
}

// AreasByDepartment returns the active areas of one department.
func (s *Snapshot) AreasByDepartment(department string) []WorkArea {
	var out []WorkArea
	for _, a := range s.ActiveAreas() {
		if a.Department == department {
			out = append(out, a)
		}
	}
	return out
}

// LoadedAt reports when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.loadedAt
}

// Check evaluates point against the snapshot's areas.
func (s *Snapshot) Check(point geo.GeoPoint) Verdict {
	return CheckWorkArea(point, s.Areas())
}

// WorkAreaProvider hands out the current work-area snapshot.
type WorkAreaProvider interface {
	Snapshot() *Snapshot
}

// Store holds the current snapshot and swaps it atomically on refresh.
type Store struct {
	current atomic.Pointer[Snapshot]
}

var _ WorkAreaProvider = (*Store)(nil)

// NewStore creates a store holding an empty snapshot.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(NewSnapshot(nil, time.Time{}))
	return s
}

// Snapshot returns the current snapshot; readers never see a partial update.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Replace publishes a new snapshot.
func (s *Store) Replace(snapshot *Snapshot) {
	s.current.Store(snapshot)
}

// Loader fetches the full list of work areas.
type Loader interface {
	ListWorkAreas(ctx context.Context) ([]*WorkArea, error)
}

// Refresher periodically reloads work areas into a Store.
type Refresher struct {
	loader   Loader
	store    *Store
	interval time.Duration
	now      func() time.Time
}

// NewRefresher creates a refresher; a non-positive interval defaults to five minutes.
func NewRefresher(loader Loader, store *Store, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Refresher{loader: loader, store: store, interval: interval, now: time.Now}
}

// Refresh loads work areas once. On failure the previous snapshot stays in place.
func (r *Refresher) Refresh(ctx context.Context) error {
	areas, err := r.loader.ListWorkAreas(ctx)
	if err != nil {
		refreshTotal.WithLabelValues("error").Inc()
		return err
	}

	list := make([]WorkArea, 0, len(areas))
	for _, a := range areas {
		if a != nil {
			list = append(list, *a)
		}
	}

	snapshot := NewSnapshot(list, r.now())
	r.store.Replace(snapshot)
	refreshTotal.WithLabelValues("ok").Inc()
	loadedAreas.Set(float64(len(snapshot.ActiveAreas())))

	logger.Info("Work areas loaded",
		zap.Int("total", len(list)),
		zap.Int("active", len(snapshot.ActiveAreas())))
	return nil
}

// Run refreshes immediately and then on every tick until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil {
		logger.Error("Failed to load work areas", zap.Error(err))
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				logger.Error("Failed to refresh work areas", zap.Error(err))
			}
		}
	}
}
