package hazard

import (
	"context"
	"time"

	"rideon-backend/internal/events"
	"rideon-backend/internal/metrics"
	"rideon-backend/internal/shared/apperr"
	"rideon-backend/internal/shared/geo"

	"github.com/apex/log"
	"github.com/google/uuid"
)

const (
	MetricPlanar   = "planar"
	MetricGeodesic = "geodesic"

	DefaultRecentDays = 30
)

type Options struct {
	// DistanceMetric is MetricPlanar (default) or MetricGeodesic.
	DistanceMetric string
	RecentDays     int
	Metrics        metrics.Sink
	Events         events.Publisher
	Now            func() time.Time
}

type Service struct {
	store      Store
	geodesic   bool
	recentDays int
	metrics    metrics.Sink
	events     events.Publisher
	now        func() time.Time
}

func NewService(store Store, opts Options) *Service {
	s := &Service{
		store:      store,
		geodesic:   opts.DistanceMetric == MetricGeodesic,
		recentDays: opts.RecentDays,
		metrics:    opts.Metrics,
		events:     opts.Events,
		now:        opts.Now,
	}
	if s.recentDays <= 0 {
		s.recentDays = DefaultRecentDays
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func validatePoint(lat, lng float64) error {
	if !geo.ValidLat(lat) {
		return apperr.Validation("latitude %f out of range", lat)
	}
	if !geo.ValidLng(lng) {
		return apperr.Validation("longitude %f out of range", lng)
	}
	return nil
}

// Report records a new UNCONFIRMED hazard.
func (s *Service) Report(ctx context.Context, userID string, in ReportInput) (Report, error) {
	if userID == "" {
		return Report{}, apperr.Validation("user id is required")
	}
	if err := validatePoint(in.Lat, in.Lng); err != nil {
		return Report{}, err
	}
	if !in.Type.Valid() {
		return Report{}, apperr.Validation("unknown hazard type %q", in.Type)
	}

	r := Report{
		ID:          uuid.NewString(),
		UserID:      userID,
		Lat:         in.Lat,
		Lng:         in.Lng,
		Type:        in.Type,
		Description: in.Description,
		Image:       in.Image,
		Status:      StatusUnconfirmed,
		CreatedAt:   s.now(),
	}
	if err := s.store.Insert(ctx, r); err != nil {
		return Report{}, err
	}

	s.metrics.HazardReported(string(r.Type))
	events.Emit(ctx, s.events, events.HazardReported, r)
	log.WithFields(log.Fields{"hazard_id": r.ID, "type": r.Type, "user_id": userID}).Info("hazard reported")
	return r, nil
}

func (s *Service) Get(ctx context.Context, id string) (Report, error) {
	return s.store.Get(ctx, id)
}

// Nearby lists hazards within radius of a point. Planar mode measures in
// degree space; geodesic mode measures great-circle kilometres.
func (s *Service) Nearby(ctx context.Context, lat, lng, radius float64) ([]Report, error) {
	if err := validatePoint(lat, lng); err != nil {
		return nil, err
	}
	if radius < 0 {
		return nil, apperr.Validation("radius must not be negative")
	}
	if !s.geodesic {
		return s.store.Nearby(ctx, lat, lng, radius)
	}

	candidates, err := s.store.InBox(ctx, geo.AroundKm(lat, lng, radius))
	if err != nil {
		return nil, err
	}
	out := candidates[:0]
	for _, r := range candidates {
		if geo.HaversineKm(lat, lng, r.Lat, r.Lng) <= radius {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Service) CountNearby(ctx context.Context, lat, lng, radius float64) (int64, error) {
	if !s.geodesic {
		if err := validatePoint(lat, lng); err != nil {
			return 0, err
		}
		if radius < 0 {
			return 0, apperr.Validation("radius must not be negative")
		}
		return s.store.CountNearby(ctx, lat, lng, radius)
	}
	list, err := s.Nearby(ctx, lat, lng, radius)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

// InRoute lists hazards inside the bounding box spanned by the two route
// endpoints, edges included.
func (s *Service) InRoute(ctx context.Context, startLat, startLng, endLat, endLng float64) ([]Report, error) {
	if err := validatePoint(startLat, startLng); err != nil {
		return nil, err
	}
	if err := validatePoint(endLat, endLng); err != nil {
		return nil, err
	}
	return s.store.InBox(ctx, geo.BoundingBox(startLat, startLng, endLat, endLng))
}

func (s *Service) ByUser(ctx context.Context, userID string) ([]Report, error) {
	return s.store.ByUser(ctx, userID)
}

// Recent lists hazards reported within the configured window.
func (s *Service) Recent(ctx context.Context) ([]Report, error) {
	return s.store.Since(ctx, s.now().AddDate(0, 0, -s.recentDays))
}

// UpdateStatus overwrites a report's status. Any status may follow any
// other.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (Report, error) {
	if !status.Valid() {
		return Report{}, apperr.Validation("unknown hazard status %q", status)
	}
	r, err := s.store.UpdateStatus(ctx, id, status)
	if err != nil {
		return Report{}, err
	}

	events.Emit(ctx, s.events, events.HazardStatusChanged, r)
	log.WithFields(log.Fields{"hazard_id": id, "status": status}).Info("hazard status updated")
	return r, nil
}

func (s *Service) Types() []Option {
	return append([]Option(nil), typeOptions...)
}

func (s *Service) Statuses() []Option {
	return append([]Option(nil), statusOptions...)
}
