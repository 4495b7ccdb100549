package riding

import (
	"context"
	"time"

	"rideon-backend/internal/events"
	"rideon-backend/internal/metrics"
	"rideon-backend/internal/stream"

	"github.com/apex/log"
)

// Options tune a Service. Zero values select no-op metrics and events,
// strict status transitions and the wall clock.
type Options struct {
	Metrics metrics.Sink
	Events  events.Publisher
	// LegacyTransitions lets any status overwrite any other, terminal
	// states included.
	LegacyTransitions bool
	Now               func() time.Time
}

// Service is the ingestion facade for riding sessions: session lifecycle,
// location and network samples, and offline reconciliation.
type Service struct {
	store   Store
	hub     *stream.Hub
	metrics metrics.Sink
	events  events.Publisher
	legacy  bool
	now     func() time.Time
}

func NewService(store Store, hub *stream.Hub, opts Options) *Service {
	s := &Service{
		store:   store,
		hub:     hub,
		metrics: opts.Metrics,
		events:  opts.Events,
		legacy:  opts.LegacyTransitions,
		now:     opts.Now,
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

// mutateSession is the only path that writes a session row. The row stays
// locked until tx ends, so concurrent updates to one session serialize.
// fn reports whether it changed anything worth writing.
func (s *Service) mutateSession(ctx context.Context, tx Store, id string, fn func(sess *Session) (bool, error)) (Session, error) {
	sess, err := tx.GetSessionForUpdate(ctx, id)
	if err != nil {
		return Session{}, err
	}
	changed, err := fn(&sess)
	if err != nil {
		return Session{}, err
	}
	if !changed {
		return sess, nil
	}
	if err := tx.UpdateSession(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *Service) publishLive(sessionID, kind string, data any) {
	if s.hub == nil {
		return
	}
	if err := s.hub.Publish(sessionID, kind, data); err != nil {
		log.WithError(err).WithField("session_id", sessionID).Warn("live update failed")
	}
}
