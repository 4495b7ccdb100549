package riding

import "context"

// Store persists sessions and their samples. Lookups of a missing session
// return an error wrapping apperr.ErrNotFound; any other failure is an
// *apperr.StoreError.
type Store interface {
	// InTx runs fn against a store bound to a single transaction.
	InTx(ctx context.Context, fn func(tx Store) error) error

	// LockUser serializes session creation and resumption per user for the
	// rest of the transaction.
	LockUser(ctx context.Context, userID string) error

	InsertSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	// GetSessionForUpdate loads the session and holds its row until the
	// transaction ends.
	GetSessionForUpdate(ctx context.Context, id string) (Session, error)
	UpdateSession(ctx context.Context, s Session) error
	ActiveSession(ctx context.Context, userID string) (Session, error)
	SessionsByUser(ctx context.Context, userID string, limit, offset int) ([]Session, int64, error)

	InsertLocation(ctx context.Context, l *LocationSample) error
	Locations(ctx context.Context, sessionID string) ([]LocationSample, error)
	CountLocations(ctx context.Context, sessionID string) (int64, error)
	PendingSync(ctx context.Context, sessionID string) ([]LocationSample, error)
	MarkAllSynced(ctx context.Context, sessionID string) (int64, error)

	InsertNetworkSample(ctx context.Context, n *NetworkSample) error
	// LatestNetworkSample returns the most recently inserted sample,
	// regardless of its recorded_at.
	LatestNetworkSample(ctx context.Context, sessionID string) (NetworkSample, error)
}
