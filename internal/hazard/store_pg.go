package hazard

import (
	"context"
	"time"

	"rideon-backend/internal/db"
	"rideon-backend/internal/shared/apperr"
	"rideon-backend/internal/shared/geo"

	"github.com/jackc/pgx/v5"
)

type PGStore struct {
	db db.Querier
}

func NewPGStore(q db.Querier) *PGStore {
	return &PGStore{db: q}
}

const reportColumns = `id, user_id, lat, lng, report_type, description, image, status, created_at`

const planarDistance = `SQRT(POWER(lat - $1, 2) + POWER(lng - $2, 2))`

func (s *PGStore) Insert(ctx context.Context, r Report) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO hazard_reports (id, user_id, lat, lng, report_type, description, image, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, r.ID, r.UserID, r.Lat, r.Lng, string(r.Type), r.Description, r.Image, string(r.Status), r.CreatedAt)
	return apperr.Store("insert hazard", err)
}

func scanReport(row pgx.Row) (Report, error) {
	var (
		r            Report
		kind, status string
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.Lat, &r.Lng, &kind, &r.Description, &r.Image, &status, &r.CreatedAt); err != nil {
		return Report{}, err
	}
	r.Type, r.Status = Type(kind), Status(status)
	return r, nil
}

func (s *PGStore) Get(ctx context.Context, id string) (Report, error) {
	r, err := scanReport(s.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM hazard_reports WHERE id=$1`, id))
	if db.IsNoRows(err) {
		return Report{}, apperr.NotFound("hazard report %s", id)
	}
	if err != nil {
		return Report{}, apperr.Store("get hazard", err)
	}
	return r, nil
}

func (s *PGStore) UpdateStatus(ctx context.Context, id string, status Status) (Report, error) {
	r, err := scanReport(s.db.QueryRow(ctx,
		`UPDATE hazard_reports SET status=$2 WHERE id=$1 RETURNING `+reportColumns, id, string(status)))
	if db.IsNoRows(err) {
		return Report{}, apperr.NotFound("hazard report %s", id)
	}
	if err != nil {
		return Report{}, apperr.Store("update hazard status", err)
	}
	return r, nil
}

func (s *PGStore) list(ctx context.Context, op, query string, args ...any) ([]Report, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	defer rows.Close()

	reports := []Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, apperr.Store(op, err)
		}
		reports = append(reports, r)
	}
	return reports, apperr.Store(op, rows.Err())
}

func (s *PGStore) Nearby(ctx context.Context, lat, lng, radius float64) ([]Report, error) {
	return s.list(ctx, "nearby hazards", `
		SELECT `+reportColumns+`
		FROM hazard_reports
		WHERE `+planarDistance+` <= $3
		ORDER BY created_at DESC
	`, lat, lng, radius)
}

func (s *PGStore) CountNearby(ctx context.Context, lat, lng, radius float64) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM hazard_reports
		WHERE `+planarDistance+` <= $3
	`, lat, lng, radius).Scan(&n)
	return n, apperr.Store("count nearby hazards", err)
}

func (s *PGStore) InBox(ctx context.Context, box geo.Box) ([]Report, error) {
	return s.list(ctx, "hazards in box", `
		SELECT `+reportColumns+`
		FROM hazard_reports
		WHERE lat BETWEEN $1 AND $2 AND lng BETWEEN $3 AND $4
		ORDER BY created_at DESC
	`, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
}

func (s *PGStore) ByUser(ctx context.Context, userID string) ([]Report, error) {
	return s.list(ctx, "hazards by user", `
		SELECT `+reportColumns+`
		FROM hazard_reports WHERE user_id=$1
		ORDER BY created_at DESC
	`, userID)
}

func (s *PGStore) Since(ctx context.Context, t time.Time) ([]Report, error) {
	return s.list(ctx, "recent hazards", `
		SELECT `+reportColumns+`
		FROM hazard_reports WHERE created_at >= $1
		ORDER BY created_at DESC
	`, t)
}
