package riding

import (
	"context"
	"time"

	"rideon-backend/internal/events"
	"rideon-backend/internal/shared/apperr"
	"rideon-backend/internal/shared/geo"

	"github.com/apex/log"
	"github.com/google/uuid"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// CreateSession starts an ACTIVE session for userID. A user holding an
// ACTIVE session already gets a conflict.
func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	if userID == "" {
		return Session{}, apperr.Validation("user id is required")
	}

	var sess Session
	err := s.store.InTx(ctx, func(tx Store) error {
		if err := tx.LockUser(ctx, userID); err != nil {
			return err
		}
		if existing, err := tx.ActiveSession(ctx, userID); err == nil {
			return apperr.Conflict("user %s already has active riding session %s", userID, existing.ID)
		} else if !apperr.IsNotFound(err) {
			return err
		}

		now := s.now()
		sess = Session{
			ID:             uuid.NewString(),
			UserID:         userID,
			StartedAt:      now,
			Status:         StatusActive,
			NetworkQuality: QualityUnknown,
			CreatedAt:      now,
		}
		return tx.InsertSession(ctx, sess)
	})
	if err != nil {
		return Session{}, err
	}

	s.metrics.SessionCreated()
	events.Emit(ctx, s.events, events.SessionCreated, sess)
	log.WithFields(log.Fields{"session_id": sess.ID, "user_id": userID}).Info("riding session started")
	return sess, nil
}

// RecordLocation stores a sample and makes it the session's last known
// location. Samples are accepted in any status and in any recorded_at
// order; the latest write wins.
func (s *Service) RecordLocation(ctx context.Context, sessionID string, sample LocationSample) (LocationSample, error) {
	if !geo.ValidLat(sample.Lat) || !geo.ValidLng(sample.Lng) {
		return LocationSample{}, apperr.Validation("coordinates out of range: %f,%f", sample.Lat, sample.Lng)
	}
	if sample.NetworkQuality != "" && !sample.NetworkQuality.Valid() {
		return LocationSample{}, apperr.Validation("unknown network quality %q", sample.NetworkQuality)
	}
	sample.SessionID = sessionID
	if sample.RecordedAt.IsZero() {
		sample.RecordedAt = s.now()
	}

	err := s.store.InTx(ctx, func(tx Store) error {
		_, err := s.mutateSession(ctx, tx, sessionID, func(sess *Session) (bool, error) {
			if err := tx.InsertLocation(ctx, &sample); err != nil {
				return false, err
			}
			sess.LastLocation = &Location{Lat: sample.Lat, Lng: sample.Lng, Time: sample.RecordedAt}
			if sample.NetworkQuality != "" {
				sess.NetworkQuality = sample.NetworkQuality
			}
			return true, nil
		})
		return err
	})
	if err != nil {
		return LocationSample{}, err
	}

	s.metrics.LocationRecorded()
	s.publishLive(sessionID, "location", sample)
	return sample, nil
}

func (s *Service) transition(from, to Status) (Status, error) {
	if s.legacy {
		if !to.Valid() {
			return from, apperr.Validation("unknown status %q", to)
		}
		return to, nil
	}
	return Transition(from, to)
}

// changeStatus moves a session to status to. Resuming takes the user lock
// first so the one-active-session rule holds against concurrent creates.
// onSettle runs inside the transaction whenever the session ends up in
// status to, including a repeated request for the current status.
func (s *Service) changeStatus(ctx context.Context, id string, to Status, onSettle func(tx Store, sess *Session) error) (Session, bool, error) {
	var (
		out   Session
		moved bool
	)
	err := s.store.InTx(ctx, func(tx Store) error {
		if to == StatusActive {
			current, err := tx.GetSession(ctx, id)
			if err != nil {
				return err
			}
			if err := tx.LockUser(ctx, current.UserID); err != nil {
				return err
			}
		}

		sess, err := s.mutateSession(ctx, tx, id, func(sess *Session) (bool, error) {
			next, err := s.transition(sess.Status, to)
			if err != nil {
				return false, err
			}
			if next == sess.Status && !s.legacy {
				if onSettle != nil {
					return false, onSettle(tx, sess)
				}
				return false, nil
			}
			if next == StatusActive {
				other, err := tx.ActiveSession(ctx, sess.UserID)
				if err == nil && other.ID != sess.ID {
					return false, apperr.Conflict("user %s already has active riding session %s", sess.UserID, other.ID)
				}
				if err != nil && !apperr.IsNotFound(err) {
					return false, err
				}
			}
			if next.Terminal() {
				now := s.now()
				sess.EndedAt = &now
			}
			sess.Status = next
			moved = true
			if onSettle != nil {
				if err := onSettle(tx, sess); err != nil {
					return false, err
				}
			}
			return true, nil
		})
		out = sess
		return err
	})
	if err != nil {
		return Session{}, false, err
	}
	return out, moved, nil
}

func (s *Service) Pause(ctx context.Context, id string) (Session, error) {
	sess, _, err := s.changeStatus(ctx, id, StatusPaused, nil)
	return sess, err
}

func (s *Service) Resume(ctx context.Context, id string) (Session, error) {
	sess, _, err := s.changeStatus(ctx, id, StatusActive, nil)
	return sess, err
}

// End completes the session and reconciles its offline samples in the same
// transaction. Ending a completed session only reconciles again.
func (s *Service) End(ctx context.Context, id string) (Session, error) {
	var synced int64
	sess, moved, err := s.changeStatus(ctx, id, StatusCompleted, func(tx Store, sess *Session) error {
		n, err := tx.MarkAllSynced(ctx, sess.ID)
		synced = n
		return err
	})
	if err != nil {
		return Session{}, err
	}
	if moved {
		s.metrics.SessionCompleted()
		events.Emit(ctx, s.events, events.SessionEnded, sess)
		log.WithFields(log.Fields{"session_id": id, "synced": synced}).Info("riding session completed")
	} else if synced > 0 {
		log.WithFields(log.Fields{"session_id": id, "synced": synced}).Info("late offline samples reconciled")
	}
	return sess, nil
}

func (s *Service) Cancel(ctx context.Context, id string) (Session, error) {
	sess, moved, err := s.changeStatus(ctx, id, StatusCancelled, nil)
	if err != nil {
		return Session{}, err
	}
	if moved {
		events.Emit(ctx, s.events, events.SessionCancelled, sess)
		log.WithField("session_id", id).Info("riding session cancelled")
	}
	return sess, nil
}

func (s *Service) GetActive(ctx context.Context, userID string) (sess Session, err error) {
	err = s.store.InTx(ctx, func(tx Store) error {
		sess, err = tx.ActiveSession(ctx, userID)
		return err
	})
	return sess, err
}

func (s *Service) GetSession(ctx context.Context, id string) (sess Session, err error) {
	err = s.store.InTx(ctx, func(tx Store) error {
		sess, err = tx.GetSession(ctx, id)
		return err
	})
	return sess, err
}

// SessionsByUser pages through a user's sessions, newest first. Pages are
// zero-based; size falls back to DefaultPageSize and is capped at
// MaxPageSize.
func (s *Service) SessionsByUser(ctx context.Context, userID string, page, size int) (Page[Session], error) {
	if page < 0 {
		return Page[Session]{}, apperr.Validation("page must not be negative")
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	out := Page[Session]{Page: page, Size: size}
	err := s.store.InTx(ctx, func(tx Store) error {
		items, total, err := tx.SessionsByUser(ctx, userID, size, page*size)
		out.Items, out.Total = items, total
		return err
	})
	if err != nil {
		return Page[Session]{}, err
	}
	return out, nil
}

// Locations lists a session's samples by recorded_at.
func (s *Service) Locations(ctx context.Context, sessionID string) (list []LocationSample, err error) {
	err = s.store.InTx(ctx, func(tx Store) error {
		if _, err := tx.GetSession(ctx, sessionID); err != nil {
			return err
		}
		list, err = tx.Locations(ctx, sessionID)
		return err
	})
	return list, err
}

func (s *Service) Summary(ctx context.Context, sessionID string) (Summary, error) {
	var (
		sess  Session
		count int64
	)
	err := s.store.InTx(ctx, func(tx Store) error {
		var err error
		if sess, err = tx.GetSession(ctx, sessionID); err != nil {
			return err
		}
		count, err = tx.CountLocations(ctx, sessionID)
		return err
	})
	if err != nil {
		return Summary{}, err
	}

	end := s.now()
	if sess.EndedAt != nil {
		end = *sess.EndedAt
	}
	duration := end.Sub(sess.StartedAt)
	if duration < 0 {
		duration = 0
	}
	avgSpeed := 0.0
	if hours := duration.Hours(); hours > 0 {
		avgSpeed = sess.TotalDistanceKm / hours
	}

	return Summary{
		SessionID:       sess.ID,
		Status:          sess.Status,
		PointCount:      count,
		DistanceKm:      sess.TotalDistanceKm,
		DurationSec:     int64(duration / time.Second),
		AverageSpeedKmh: avgSpeed,
	}, nil
}

// UpdateStats overwrites the cumulative ride statistics.
func (s *Service) UpdateStats(ctx context.Context, sessionID string, stats Stats) (Session, error) {
	if stats.TotalDistanceKm < 0 || stats.AvgSpeedKmh < 0 || stats.MaxSpeedKmh < 0 || stats.CaloriesBurned < 0 {
		return Session{}, apperr.Validation("ride statistics must not be negative")
	}

	var sess Session
	err := s.store.InTx(ctx, func(tx Store) error {
		var err error
		sess, err = s.mutateSession(ctx, tx, sessionID, func(sess *Session) (bool, error) {
			sess.Stats = stats
			return true, nil
		})
		return err
	})
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}
