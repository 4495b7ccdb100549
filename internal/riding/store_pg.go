package riding

import (
	"context"
	"time"

	"rideon-backend/internal/db"
	"rideon-backend/internal/shared/apperr"

	"github.com/jackc/pgx/v5"
)

// PGStore is the PostgreSQL Store. Outside a transaction it holds the pool;
// inside InTx it is rebound to the transaction.
type PGStore struct {
	q    db.Querier
	pool db.Pool
}

func NewPGStore(pool db.Pool) *PGStore {
	return &PGStore{q: pool, pool: pool}
}

func (s *PGStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	return apperr.Store("transaction", db.WithTx(ctx, s.pool, func(q db.Querier) error {
		return fn(&PGStore{q: q})
	}))
}

func (s *PGStore) LockUser(ctx context.Context, userID string) error {
	_, err := s.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID)
	return apperr.Store("lock user", err)
}

const sessionColumns = `id, user_id, started_at, ended_at, status,
		total_distance_km, avg_speed_kmh, max_speed_kmh, calories_burned,
		last_location_lat, last_location_lng, last_location_time,
		network_quality, connection_lost_count, created_at`

func scanSession(row pgx.Row) (Session, error) {
	var (
		sess             Session
		status, quality  string
		lastLat, lastLng *float64
		lastTime         *time.Time
	)
	err := row.Scan(
		&sess.ID, &sess.UserID, &sess.StartedAt, &sess.EndedAt, &status,
		&sess.TotalDistanceKm, &sess.AvgSpeedKmh, &sess.MaxSpeedKmh, &sess.CaloriesBurned,
		&lastLat, &lastLng, &lastTime,
		&quality, &sess.ConnectionLostCount, &sess.CreatedAt,
	)
	if err != nil {
		return Session{}, err
	}
	sess.Status = Status(status)
	sess.NetworkQuality = Quality(quality)
	if lastLat != nil && lastLng != nil {
		loc := Location{Lat: *lastLat, Lng: *lastLng}
		if lastTime != nil {
			loc.Time = *lastTime
		}
		sess.LastLocation = &loc
	}
	return sess, nil
}

func (s *PGStore) InsertSession(ctx context.Context, sess Session) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO ride_sessions (id, user_id, started_at, status, network_quality, connection_lost_count, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, sess.ID, sess.UserID, sess.StartedAt, string(sess.Status), string(sess.NetworkQuality), sess.ConnectionLostCount, sess.CreatedAt)
	if db.IsUniqueViolation(err, db.ActiveSessionIndex) {
		return apperr.Conflict("user %s already has an active riding session", sess.UserID)
	}
	return apperr.Store("insert session", err)
}

func (s *PGStore) getSession(ctx context.Context, query, id string) (Session, error) {
	sess, err := scanSession(s.q.QueryRow(ctx, query, id))
	if db.IsNoRows(err) {
		return Session{}, apperr.NotFound("riding session %s", id)
	}
	if err != nil {
		return Session{}, apperr.Store("get session", err)
	}
	return sess, nil
}

func (s *PGStore) GetSession(ctx context.Context, id string) (Session, error) {
	return s.getSession(ctx, `SELECT `+sessionColumns+` FROM ride_sessions WHERE id=$1`, id)
}

func (s *PGStore) GetSessionForUpdate(ctx context.Context, id string) (Session, error) {
	return s.getSession(ctx, `SELECT `+sessionColumns+` FROM ride_sessions WHERE id=$1 FOR UPDATE`, id)
}

func (s *PGStore) UpdateSession(ctx context.Context, sess Session) error {
	var lastLat, lastLng *float64
	var lastTime *time.Time
	if sess.LastLocation != nil {
		lastLat, lastLng, lastTime = &sess.LastLocation.Lat, &sess.LastLocation.Lng, &sess.LastLocation.Time
	}
	tag, err := s.q.Exec(ctx, `
		UPDATE ride_sessions
		SET ended_at=$2, status=$3,
		    total_distance_km=$4, avg_speed_kmh=$5, max_speed_kmh=$6, calories_burned=$7,
		    last_location_lat=$8, last_location_lng=$9, last_location_time=$10,
		    network_quality=$11, connection_lost_count=$12
		WHERE id=$1
	`, sess.ID, sess.EndedAt, string(sess.Status),
		sess.TotalDistanceKm, sess.AvgSpeedKmh, sess.MaxSpeedKmh, sess.CaloriesBurned,
		lastLat, lastLng, lastTime,
		string(sess.NetworkQuality), sess.ConnectionLostCount)
	if db.IsUniqueViolation(err, db.ActiveSessionIndex) {
		return apperr.Conflict("user %s already has an active riding session", sess.UserID)
	}
	if err != nil {
		return apperr.Store("update session", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("riding session %s", sess.ID)
	}
	return nil
}

func (s *PGStore) ActiveSession(ctx context.Context, userID string) (Session, error) {
	sess, err := scanSession(s.q.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM ride_sessions WHERE user_id=$1 AND status='ACTIVE'
		ORDER BY started_at DESC
		LIMIT 1
	`, userID))
	if db.IsNoRows(err) {
		return Session{}, apperr.NotFound("no active riding session for user %s", userID)
	}
	if err != nil {
		return Session{}, apperr.Store("active session", err)
	}
	return sess, nil
}

func (s *PGStore) SessionsByUser(ctx context.Context, userID string, limit, offset int) ([]Session, int64, error) {
	var total int64
	if err := s.q.QueryRow(ctx, `SELECT COUNT(*) FROM ride_sessions WHERE user_id=$1`, userID).Scan(&total); err != nil {
		return nil, 0, apperr.Store("count sessions", err)
	}

	rows, err := s.q.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM ride_sessions WHERE user_id=$1
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Store("list sessions", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, 0, apperr.Store("scan session", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, total, apperr.Store("list sessions", rows.Err())
}

func (s *PGStore) InsertLocation(ctx context.Context, l *LocationSample) error {
	var quality *string
	if l.NetworkQuality != "" {
		q := string(l.NetworkQuality)
		quality = &q
	}
	row := s.q.QueryRow(ctx, `
		INSERT INTO ride_locations (session_id, lat, lng, speed_kmh, altitude, accuracy, heading,
		                            battery_level, network_quality, is_offline_sync, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id, created_at
	`, l.SessionID, l.Lat, l.Lng, l.SpeedKmh, l.Altitude, l.Accuracy, l.Heading,
		l.BatteryLevel, quality, l.IsOfflineSync, l.RecordedAt)
	return apperr.Store("insert location", row.Scan(&l.ID, &l.CreatedAt))
}

const locationColumns = `id, session_id, lat, lng, speed_kmh, altitude, accuracy, heading,
		battery_level, network_quality, is_offline_sync, recorded_at, created_at`

func (s *PGStore) queryLocations(ctx context.Context, op, query, sessionID string) ([]LocationSample, error) {
	rows, err := s.q.Query(ctx, query, sessionID)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	defer rows.Close()

	samples := []LocationSample{}
	for rows.Next() {
		var (
			l       LocationSample
			quality *string
		)
		if err := rows.Scan(&l.ID, &l.SessionID, &l.Lat, &l.Lng, &l.SpeedKmh, &l.Altitude, &l.Accuracy, &l.Heading,
			&l.BatteryLevel, &quality, &l.IsOfflineSync, &l.RecordedAt, &l.CreatedAt); err != nil {
			return nil, apperr.Store(op, err)
		}
		if quality != nil {
			l.NetworkQuality = Quality(*quality)
		}
		samples = append(samples, l)
	}
	return samples, apperr.Store(op, rows.Err())
}

func (s *PGStore) Locations(ctx context.Context, sessionID string) ([]LocationSample, error) {
	return s.queryLocations(ctx, "list locations", `
		SELECT `+locationColumns+`
		FROM ride_locations WHERE session_id=$1
		ORDER BY recorded_at, id
	`, sessionID)
}

func (s *PGStore) CountLocations(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := s.q.QueryRow(ctx, `SELECT COUNT(*) FROM ride_locations WHERE session_id=$1`, sessionID).Scan(&count)
	return count, apperr.Store("count locations", err)
}

func (s *PGStore) PendingSync(ctx context.Context, sessionID string) ([]LocationSample, error) {
	return s.queryLocations(ctx, "pending sync", `
		SELECT `+locationColumns+`
		FROM ride_locations WHERE session_id=$1 AND is_offline_sync
		ORDER BY recorded_at, id
	`, sessionID)
}

func (s *PGStore) MarkAllSynced(ctx context.Context, sessionID string) (int64, error) {
	tag, err := s.q.Exec(ctx, `
		UPDATE ride_locations SET is_offline_sync=false
		WHERE session_id=$1 AND is_offline_sync
	`, sessionID)
	if err != nil {
		return 0, apperr.Store("mark synced", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PGStore) InsertNetworkSample(ctx context.Context, n *NetworkSample) error {
	row := s.q.QueryRow(ctx, `
		INSERT INTO ride_network_samples (session_id, connection_type, signal_strength, is_connected, latency_ms,
		                                  upload_speed_mbps, download_speed_mbps, packet_loss_percentage, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id
	`, n.SessionID, n.ConnectionType, n.SignalStrength, n.Connected, n.LatencyMs,
		n.UploadSpeedMbps, n.DownloadSpeedMbps, n.PacketLossPercentage, n.RecordedAt)
	return apperr.Store("insert network sample", row.Scan(&n.ID))
}

func (s *PGStore) LatestNetworkSample(ctx context.Context, sessionID string) (NetworkSample, error) {
	var n NetworkSample
	err := s.q.QueryRow(ctx, `
		SELECT id, session_id, connection_type, signal_strength, is_connected, latency_ms,
		       upload_speed_mbps, download_speed_mbps, packet_loss_percentage, recorded_at
		FROM ride_network_samples WHERE session_id=$1
		ORDER BY id DESC
		LIMIT 1
	`, sessionID).Scan(&n.ID, &n.SessionID, &n.ConnectionType, &n.SignalStrength, &n.Connected, &n.LatencyMs,
		&n.UploadSpeedMbps, &n.DownloadSpeedMbps, &n.PacketLossPercentage, &n.RecordedAt)
	if db.IsNoRows(err) {
		return NetworkSample{}, apperr.NotFound("no network samples for session %s", sessionID)
	}
	if err != nil {
		return NetworkSample{}, apperr.Store("latest network sample", err)
	}
	return n, nil
}
