package riding

import (
	"context"
	"errors"
	"testing"
	"time"

	"rideon-backend/internal/db"
	"rideon-backend/internal/shared/apperr"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
)

var errDB = errors.New("db down")

var sessionCols = []string{
	"id", "user_id", "started_at", "ended_at", "status",
	"total_distance_km", "avg_speed_kmh", "max_speed_kmh", "calories_burned",
	"last_location_lat", "last_location_lng", "last_location_time",
	"network_quality", "connection_lost_count", "created_at",
}

func sessionRows(id, userID string, status Status) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(sessionCols).AddRow(
		id, userID, now.Add(-time.Hour), (*time.Time)(nil), string(status),
		12.5, 20.0, 35.0, 400.0,
		(*float64)(nil), (*float64)(nil), (*time.Time)(nil),
		"UNKNOWN", 0, now.Add(-time.Hour),
	)
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestPGCreateSession(t *testing.T) {
	mock := newMock(t)
	svc := NewService(NewPGStore(mock), nil, Options{})

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
		WithArgs("user-1").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(`FROM ride_sessions WHERE user_id=\$1 AND status='ACTIVE'`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows(sessionCols))
	mock.ExpectExec(`INSERT INTO ride_sessions`).
		WithArgs(pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), "ACTIVE", "UNKNOWN", 0, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	sess, err := svc.CreateSession(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if sess.ID == "" || sess.Status != StatusActive {
		t.Fatalf("unexpected session %+v", sess)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGCreateSessionExistingActive(t *testing.T) {
	mock := newMock(t)
	svc := NewService(NewPGStore(mock), nil, Options{})

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).WithArgs("user-1").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(`status='ACTIVE'`).WithArgs("user-1").
		WillReturnRows(sessionRows("session-1", "user-1", StatusActive))
	mock.ExpectRollback()

	_, err := svc.CreateSession(context.Background(), "user-1")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGCreateSessionUniqueViolation(t *testing.T) {
	mock := newMock(t)
	svc := NewService(NewPGStore(mock), nil, Options{})

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).WithArgs("user-1").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(`status='ACTIVE'`).WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows(sessionCols))
	mock.ExpectExec(`INSERT INTO ride_sessions`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: db.ActiveSessionIndex})
	mock.ExpectRollback()

	_, err := svc.CreateSession(context.Background(), "user-1")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestPGCreateSessionLockError(t *testing.T) {
	mock := newMock(t)
	svc := NewService(NewPGStore(mock), nil, Options{})

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnError(errDB)
	mock.ExpectRollback()

	_, err := svc.CreateSession(context.Background(), "user-1")
	var se *apperr.StoreError
	if !errors.As(err, &se) || !errors.Is(err, errDB) {
		t.Fatalf("expected store error, got %v", err)
	}
	if apperr.Status(err) != 500 {
		t.Fatalf("expected 500 mapping")
	}
}

func TestPGRecordLocationMissingSession(t *testing.T) {
	mock := newMock(t)
	svc := NewService(NewPGStore(mock), nil, Options{})

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM ride_sessions WHERE id=\$1 FOR UPDATE`).
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows(sessionCols))
	mock.ExpectRollback()

	_, err := svc.RecordLocation(context.Background(), "ghost", LocationSample{Lat: 1, Lng: 2})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGRecordLocation(t *testing.T) {
	mock := newMock(t)
	svc := NewService(NewPGStore(mock), nil, Options{})
	recorded := time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM ride_sessions WHERE id=\$1 FOR UPDATE`).
		WithArgs("session-1").
		WillReturnRows(sessionRows("session-1", "user-1", StatusActive))
	mock.ExpectQuery(`INSERT INTO ride_locations`).
		WithArgs("session-1", -6.2, 106.8, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), true, recorded).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), time.Now()))
	mock.ExpectExec(`UPDATE ride_sessions`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	sample, err := svc.RecordLocation(context.Background(), "session-1", LocationSample{
		Lat: -6.2, Lng: 106.8, IsOfflineSync: true, RecordedAt: recorded, NetworkQuality: QualityFair,
	})
	if err != nil {
		t.Fatalf("record location: %v", err)
	}
	if sample.ID != 7 || sample.SessionID != "session-1" {
		t.Fatalf("unexpected sample %+v", sample)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGEndSessionReconciles(t *testing.T) {
	mock := newMock(t)
	svc := NewService(NewPGStore(mock), nil, Options{})

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM ride_sessions WHERE id=\$1 FOR UPDATE`).
		WithArgs("session-1").
		WillReturnRows(sessionRows("session-1", "user-1", StatusPaused))
	mock.ExpectExec(`UPDATE ride_locations SET is_offline_sync=false`).
		WithArgs("session-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))
	mock.ExpectExec(`UPDATE ride_sessions`).
		WithArgs("session-1", pgxmock.AnyArg(), "COMPLETED",
			12.5, 20.0, 35.0, 400.0,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			"UNKNOWN", 0).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	sess, err := svc.End(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if sess.Status != StatusCompleted || sess.EndedAt == nil {
		t.Fatalf("unexpected session %+v", sess)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGEndCompletedSessionOnlyReconciles(t *testing.T) {
	mock := newMock(t)
	svc := NewService(NewPGStore(mock), nil, Options{})

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("session-1").
		WillReturnRows(sessionRows("session-1", "user-1", StatusCompleted))
	mock.ExpectExec(`UPDATE ride_locations SET is_offline_sync=false`).
		WithArgs("session-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	sess, err := svc.End(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if sess.Status != StatusCompleted {
		t.Fatalf("unexpected session %+v", sess)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGPauseCompletedSessionRejected(t *testing.T) {
	mock := newMock(t)
	svc := NewService(NewPGStore(mock), nil, Options{})

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("session-1").
		WillReturnRows(sessionRows("session-1", "user-1", StatusCompleted))
	mock.ExpectRollback()

	_, err := svc.Pause(context.Background(), "session-1")
	if !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestPGResumeTakesUserLock(t *testing.T) {
	mock := newMock(t)
	svc := NewService(NewPGStore(mock), nil, Options{})

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM ride_sessions WHERE id=\$1`).WithArgs("session-1").
		WillReturnRows(sessionRows("session-1", "user-1", StatusPaused))
	mock.ExpectExec(`pg_advisory_xact_lock`).WithArgs("user-1").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("session-1").
		WillReturnRows(sessionRows("session-1", "user-1", StatusPaused))
	mock.ExpectQuery(`status='ACTIVE'`).WithArgs("user-1").
		WillReturnRows(sessionRows("session-2", "user-1", StatusActive))
	mock.ExpectRollback()

	_, err := svc.Resume(context.Background(), "session-1")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGRecordNetworkSampleDisconnect(t *testing.T) {
	mock := newMock(t)
	svc := NewService(NewPGStore(mock), nil, Options{})

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("session-1").
		WillReturnRows(sessionRows("session-1", "user-1", StatusActive))
	mock.ExpectQuery(`INSERT INTO ride_network_samples`).
		WithArgs("session-1", "WIFI", pgxmock.AnyArg(), false, pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectExec(`UPDATE ride_sessions`).
		WithArgs("session-1", pgxmock.AnyArg(), "ACTIVE",
			12.5, 20.0, 35.0, 400.0,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			"POOR", 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	sample, err := svc.RecordNetworkSample(context.Background(), "session-1", NetworkSample{ConnectionType: "WIFI"})
	if err != nil {
		t.Fatalf("record network: %v", err)
	}
	if sample.ID != 3 {
		t.Fatalf("expected id from insert")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGAssessQuality(t *testing.T) {
	mock := newMock(t)
	svc := NewService(NewPGStore(mock), nil, Options{})
	cols := []string{"id", "session_id", "connection_type", "signal_strength", "is_connected", "latency_ms",
		"upload_speed_mbps", "download_speed_mbps", "packet_loss_percentage", "recorded_at"}
	signal := 60

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM ride_network_samples WHERE session_id=\$1`).
		WithArgs("session-1").
		WillReturnRows(pgxmock.NewRows(cols).AddRow(int64(1), "session-1", "LTE", &signal, true,
			(*int64)(nil), (*float64)(nil), (*float64)(nil), (*float64)(nil), time.Now()))
	mock.ExpectCommit()

	q, err := svc.AssessQuality(context.Background(), "session-1")
	if err != nil || q != QualityGood {
		t.Fatalf("assess: %v %v", q, err)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM ride_network_samples`).
		WithArgs("session-2").
		WillReturnRows(pgxmock.NewRows(cols))
	mock.ExpectCommit()

	q, err = svc.AssessQuality(context.Background(), "session-2")
	if err != nil || q != QualityUnknown {
		t.Fatalf("assess empty: %v %v", q, err)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM ride_network_samples`).WillReturnError(errDB)
	mock.ExpectRollback()

	if _, err := svc.AssessQuality(context.Background(), "session-3"); !errors.Is(err, errDB) {
		t.Fatalf("expected db error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGSessionsByUser(t *testing.T) {
	mock := newMock(t)
	svc := NewService(NewPGStore(mock), nil, Options{})

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ride_sessions`).WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(21)))
	mock.ExpectQuery(`ORDER BY started_at DESC`).WithArgs("user-1", 20, 20).
		WillReturnRows(sessionRows("session-21", "user-1", StatusCompleted))
	mock.ExpectCommit()

	page, err := svc.SessionsByUser(context.Background(), "user-1", 1, 0)
	if err != nil {
		t.Fatalf("sessions by user: %v", err)
	}
	if page.Total != 21 || len(page.Items) != 1 || page.Size != 20 {
		t.Fatalf("unexpected page %+v", page)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGLocationsAndPending(t *testing.T) {
	mock := newMock(t)
	store := NewPGStore(mock)
	cols := []string{"id", "session_id", "lat", "lng", "speed_kmh", "altitude", "accuracy", "heading",
		"battery_level", "network_quality", "is_offline_sync", "recorded_at", "created_at"}
	speed := 18.5
	quality := "GOOD"

	mock.ExpectQuery(`FROM ride_locations WHERE session_id=\$1 AND is_offline_sync`).
		WithArgs("session-1").
		WillReturnRows(pgxmock.NewRows(cols).AddRow(int64(1), "session-1", -6.2, 106.8, &speed,
			(*float64)(nil), (*float64)(nil), (*float64)(nil), (*int)(nil), &quality, true, time.Now(), time.Now()))

	pending, err := store.PendingSync(context.Background(), "session-1")
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending: %v", err)
	}
	if pending[0].NetworkQuality != QualityGood || *pending[0].SpeedKmh != 18.5 {
		t.Fatalf("unexpected sample %+v", pending[0])
	}

	mock.ExpectQuery(`FROM ride_locations WHERE session_id=\$1`).
		WithArgs("session-1").
		WillReturnError(errDB)
	if _, err := store.Locations(context.Background(), "session-1"); !errors.Is(err, errDB) {
		t.Fatalf("expected db error")
	}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ride_locations`).
		WithArgs("session-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(4)))
	if n, err := store.CountLocations(context.Background(), "session-1"); err != nil || n != 4 {
		t.Fatalf("count: %v", err)
	}
}

func TestPGUpdateSessionMissingRow(t *testing.T) {
	mock := newMock(t)
	store := NewPGStore(mock)

	mock.ExpectExec(`UPDATE ride_sessions`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.UpdateSession(context.Background(), Session{ID: "ghost", Status: StatusPaused})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPGBeginError(t *testing.T) {
	mock := newMock(t)
	svc := NewService(NewPGStore(mock), nil, Options{})

	mock.ExpectBegin().WillReturnError(errDB)

	_, err := svc.GetSession(context.Background(), "session-1")
	var se *apperr.StoreError
	if !errors.As(err, &se) {
		t.Fatalf("expected store error, got %v", err)
	}
}
