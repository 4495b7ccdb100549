package hazard

import (
	"context"
	"time"

	"rideon-backend/internal/shared/geo"
)

// Store persists hazard reports. Every list is ordered newest first.
type Store interface {
	Insert(ctx context.Context, r Report) error
	Get(ctx context.Context, id string) (Report, error)
	// UpdateStatus returns the report as stored after the change.
	UpdateStatus(ctx context.Context, id string, status Status) (Report, error)
	// Nearby and CountNearby use the planar degree-space distance,
	// boundary inclusive.
	Nearby(ctx context.Context, lat, lng, radius float64) ([]Report, error)
	CountNearby(ctx context.Context, lat, lng, radius float64) (int64, error)
	InBox(ctx context.Context, box geo.Box) ([]Report, error)
	ByUser(ctx context.Context, userID string) ([]Report, error)
	Since(ctx context.Context, t time.Time) ([]Report, error)
}
