package db

import (
	"context"

	"github.com/apex/log"
)

// ActiveSessionIndex enforces a single ACTIVE session per user.
const ActiveSessionIndex = "ride_sessions_one_active_per_user"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS ride_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ,
		status TEXT NOT NULL,
		total_distance_km DOUBLE PRECISION NOT NULL DEFAULT 0,
		avg_speed_kmh DOUBLE PRECISION NOT NULL DEFAULT 0,
		max_speed_kmh DOUBLE PRECISION NOT NULL DEFAULT 0,
		calories_burned DOUBLE PRECISION NOT NULL DEFAULT 0,
		last_location_lat DOUBLE PRECISION,
		last_location_lng DOUBLE PRECISION,
		last_location_time TIMESTAMPTZ,
		network_quality TEXT NOT NULL DEFAULT 'UNKNOWN',
		connection_lost_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + ActiveSessionIndex + `
		ON ride_sessions (user_id) WHERE status = 'ACTIVE'`,
	`CREATE INDEX IF NOT EXISTS ride_sessions_user_started_idx
		ON ride_sessions (user_id, started_at DESC)`,
	`CREATE TABLE IF NOT EXISTS ride_locations (
		id BIGSERIAL PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES ride_sessions(id) ON DELETE CASCADE,
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		speed_kmh DOUBLE PRECISION,
		altitude DOUBLE PRECISION,
		accuracy DOUBLE PRECISION,
		heading DOUBLE PRECISION,
		battery_level INTEGER,
		network_quality TEXT,
		is_offline_sync BOOLEAN NOT NULL DEFAULT false,
		recorded_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS ride_locations_session_recorded_idx
		ON ride_locations (session_id, recorded_at)`,
	`CREATE TABLE IF NOT EXISTS ride_network_samples (
		id BIGSERIAL PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES ride_sessions(id) ON DELETE CASCADE,
		connection_type TEXT NOT NULL DEFAULT '',
		signal_strength INTEGER,
		is_connected BOOLEAN NOT NULL,
		latency_ms BIGINT,
		upload_speed_mbps DOUBLE PRECISION,
		download_speed_mbps DOUBLE PRECISION,
		packet_loss_percentage DOUBLE PRECISION,
		recorded_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ride_network_samples_session_idx
		ON ride_network_samples (session_id, id DESC)`,
	`CREATE TABLE IF NOT EXISTS hazard_reports (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		lat DOUBLE PRECISION NOT NULL CHECK (lat BETWEEN -90 AND 90),
		lng DOUBLE PRECISION NOT NULL CHECK (lng BETWEEN -180 AND 180),
		report_type TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS hazard_reports_lat_lng_idx ON hazard_reports (lat, lng)`,
	`CREATE INDEX IF NOT EXISTS hazard_reports_created_idx ON hazard_reports (created_at DESC)`,
}

// EnsureSchema creates the tables and indexes the stores rely on.
func EnsureSchema(ctx context.Context, q Querier) error {
	log.Info("initializing riding schema")
	for _, stmt := range schemaStatements {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	log.WithField("statements", len(schemaStatements)).Info("riding schema ready")
	return nil
}
