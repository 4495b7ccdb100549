package riding

import (
	"context"

	"rideon-backend/internal/events"
	"rideon-backend/internal/shared/apperr"

	"github.com/apex/log"
)

const (
	weakSignalThreshold = 30
	highPacketLoss      = 5.0
)

// RecordNetworkSample stores a connectivity sample and refreshes the
// session's cached quality from it. A disconnected sample counts as a lost
// connection and forces POOR.
func (s *Service) RecordNetworkSample(ctx context.Context, sessionID string, sample NetworkSample) (NetworkSample, error) {
	if v := sample.SignalStrength; v != nil && (*v < 0 || *v > 100) {
		return NetworkSample{}, apperr.Validation("signal strength must be within 0-100, got %d", *v)
	}
	if v := sample.PacketLossPercentage; v != nil && (*v < 0 || *v > 100) {
		return NetworkSample{}, apperr.Validation("packet loss must be within 0-100, got %f", *v)
	}
	sample.SessionID = sessionID
	if sample.RecordedAt.IsZero() {
		sample.RecordedAt = s.now()
	}

	var (
		sess     Session
		assessed Quality
	)
	err := s.store.InTx(ctx, func(tx Store) error {
		var err error
		sess, err = s.mutateSession(ctx, tx, sessionID, func(sess *Session) (bool, error) {
			if err := tx.InsertNetworkSample(ctx, &sample); err != nil {
				return false, err
			}
			assessed = AssessSample(&sample)
			changed := sess.NetworkQuality != assessed
			sess.NetworkQuality = assessed
			if !sample.Connected {
				sess.ConnectionLostCount++
				changed = true
			}
			return changed, nil
		})
		return err
	})
	if err != nil {
		return NetworkSample{}, err
	}

	logger := log.WithFields(log.Fields{"session_id": sessionID, "quality": assessed})
	if !sample.Connected {
		s.metrics.NetworkDisconnected()
		logger.WithField("connection_lost_count", sess.ConnectionLostCount).Warn("network disconnected")
		events.Emit(ctx, s.events, events.NetworkDisconnected, sess)
	}
	if v := sample.SignalStrength; v != nil && *v < weakSignalThreshold {
		logger.WithField("signal_strength", *v).Warn("weak network signal")
	}
	if v := sample.PacketLossPercentage; v != nil && *v > highPacketLoss {
		logger.WithField("packet_loss_percentage", *v).Warn("high packet loss")
	}
	if assessed != QualityUnknown {
		s.metrics.NetworkQualityChanged()
	}
	s.publishLive(sessionID, "network", sample)
	return sample, nil
}

// AssessQuality grades the most recently inserted sample of a session.
// Without samples the quality is UNKNOWN.
func (s *Service) AssessQuality(ctx context.Context, sessionID string) (Quality, error) {
	q := QualityUnknown
	err := s.store.InTx(ctx, func(tx Store) error {
		latest, err := tx.LatestNetworkSample(ctx, sessionID)
		if apperr.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		q = AssessSample(&latest)
		return nil
	})
	if err != nil {
		return QualityUnknown, err
	}
	return q, nil
}

func (s *Service) Recommend(ctx context.Context, sessionID string) (Recommendation, error) {
	q, err := s.AssessQuality(ctx, sessionID)
	if err != nil {
		return Recommendation{}, err
	}
	return RecommendFor(q), nil
}
