package hazard

import (
	"context"
	"sort"
	"sync"
	"time"

	"rideon-backend/internal/shared/apperr"
	"rideon-backend/internal/shared/geo"
)

type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]Report
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: map[string]Report{}}
}

func (m *MemoryStore) Insert(ctx context.Context, r Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[r.ID]; ok {
		return apperr.Conflict("hazard report %s already exists", r.ID)
	}
	m.reports[r.ID] = r
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[id]
	if !ok {
		return Report{}, apperr.NotFound("hazard report %s", id)
	}
	return r, nil
}

func (m *MemoryStore) UpdateStatus(ctx context.Context, id string, status Status) (Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return Report{}, apperr.NotFound("hazard report %s", id)
	}
	r.Status = status
	m.reports[id] = r
	return r, nil
}

func (m *MemoryStore) filter(keep func(Report) bool) []Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Report{}
	for _, r := range m.reports {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m *MemoryStore) Nearby(ctx context.Context, lat, lng, radius float64) ([]Report, error) {
	return m.filter(func(r Report) bool {
		return geo.PlanarDistanceKm(lat, lng, r.Lat, r.Lng) <= radius
	}), nil
}

func (m *MemoryStore) CountNearby(ctx context.Context, lat, lng, radius float64) (int64, error) {
	list, _ := m.Nearby(ctx, lat, lng, radius)
	return int64(len(list)), nil
}

func (m *MemoryStore) InBox(ctx context.Context, box geo.Box) ([]Report, error) {
	return m.filter(func(r Report) bool { return box.Contains(r.Lat, r.Lng) }), nil
}

func (m *MemoryStore) ByUser(ctx context.Context, userID string) ([]Report, error) {
	return m.filter(func(r Report) bool { return r.UserID == userID }), nil
}

func (m *MemoryStore) Since(ctx context.Context, t time.Time) ([]Report, error) {
	return m.filter(func(r Report) bool { return !r.CreatedAt.Before(t) }), nil
}
