package riding

import (
	"context"

	"github.com/apex/log"
)

// PendingSync lists samples buffered offline that are not reconciled yet,
// oldest first.
func (s *Service) PendingSync(ctx context.Context, sessionID string) (list []LocationSample, err error) {
	err = s.store.InTx(ctx, func(tx Store) error {
		if _, err := tx.GetSession(ctx, sessionID); err != nil {
			return err
		}
		list, err = tx.PendingSync(ctx, sessionID)
		return err
	})
	return list, err
}

// SyncOfflineData marks every pending sample of the session as reconciled
// and returns how many flipped. Running it again flips nothing.
func (s *Service) SyncOfflineData(ctx context.Context, sessionID string) (int64, error) {
	var synced int64
	err := s.store.InTx(ctx, func(tx Store) error {
		if _, err := tx.GetSessionForUpdate(ctx, sessionID); err != nil {
			return err
		}
		var err error
		synced, err = tx.MarkAllSynced(ctx, sessionID)
		return err
	})
	if err != nil {
		return 0, err
	}
	if synced > 0 {
		log.WithFields(log.Fields{"session_id": sessionID, "synced": synced}).Info("offline samples reconciled")
	}
	return synced, nil
}
