package riding

import (
	"context"
	"sort"
	"sync"
	"time"

	"rideon-backend/internal/shared/apperr"
)

// MemoryStore keeps riding data in process. A transaction holds the store
// mutex from start to finish and is undone on error.
type MemoryStore struct {
	mu    sync.Mutex
	state memoryState
	now   func() time.Time
}

type memoryState struct {
	sessions  map[string]Session
	locations map[string][]LocationSample
	network   map[string][]NetworkSample
	nextLocID int64
	nextNetID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: memoryState{
			sessions:  map[string]Session{},
			locations: map[string][]LocationSample{},
			network:   map[string][]NetworkSample{},
		},
		now: time.Now,
	}
}

func (m *MemoryStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	return m.run(func(tx *memoryTx) error { return fn(tx) })
}

func (m *MemoryStore) run(fn func(tx *memoryTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{s: &m.state, now: m.now}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (m *MemoryStore) LockUser(ctx context.Context, userID string) error {
	return nil
}

func (m *MemoryStore) InsertSession(ctx context.Context, s Session) error {
	return m.run(func(tx *memoryTx) error { return tx.InsertSession(ctx, s) })
}

func (m *MemoryStore) GetSession(ctx context.Context, id string) (sess Session, err error) {
	err = m.run(func(tx *memoryTx) error {
		sess, err = tx.GetSession(ctx, id)
		return err
	})
	return sess, err
}

func (m *MemoryStore) GetSessionForUpdate(ctx context.Context, id string) (Session, error) {
	return m.GetSession(ctx, id)
}

func (m *MemoryStore) UpdateSession(ctx context.Context, s Session) error {
	return m.run(func(tx *memoryTx) error { return tx.UpdateSession(ctx, s) })
}

func (m *MemoryStore) ActiveSession(ctx context.Context, userID string) (sess Session, err error) {
	err = m.run(func(tx *memoryTx) error {
		sess, err = tx.ActiveSession(ctx, userID)
		return err
	})
	return sess, err
}

func (m *MemoryStore) SessionsByUser(ctx context.Context, userID string, limit, offset int) (list []Session, total int64, err error) {
	err = m.run(func(tx *memoryTx) error {
		list, total, err = tx.SessionsByUser(ctx, userID, limit, offset)
		return err
	})
	return list, total, err
}

func (m *MemoryStore) InsertLocation(ctx context.Context, l *LocationSample) error {
	return m.run(func(tx *memoryTx) error { return tx.InsertLocation(ctx, l) })
}

func (m *MemoryStore) Locations(ctx context.Context, sessionID string) (list []LocationSample, err error) {
	err = m.run(func(tx *memoryTx) error {
		list, err = tx.Locations(ctx, sessionID)
		return err
	})
	return list, err
}

func (m *MemoryStore) CountLocations(ctx context.Context, sessionID string) (n int64, err error) {
	err = m.run(func(tx *memoryTx) error {
		n, err = tx.CountLocations(ctx, sessionID)
		return err
	})
	return n, err
}

func (m *MemoryStore) PendingSync(ctx context.Context, sessionID string) (list []LocationSample, err error) {
	err = m.run(func(tx *memoryTx) error {
		list, err = tx.PendingSync(ctx, sessionID)
		return err
	})
	return list, err
}

func (m *MemoryStore) MarkAllSynced(ctx context.Context, sessionID string) (n int64, err error) {
	err = m.run(func(tx *memoryTx) error {
		n, err = tx.MarkAllSynced(ctx, sessionID)
		return err
	})
	return n, err
}

func (m *MemoryStore) InsertNetworkSample(ctx context.Context, n *NetworkSample) error {
	return m.run(func(tx *memoryTx) error { return tx.InsertNetworkSample(ctx, n) })
}

func (m *MemoryStore) LatestNetworkSample(ctx context.Context, sessionID string) (n NetworkSample, err error) {
	err = m.run(func(tx *memoryTx) error {
		n, err = tx.LatestNetworkSample(ctx, sessionID)
		return err
	})
	return n, err
}

// memoryTx operates on the locked state and records how to undo each write.
type memoryTx struct {
	s    *memoryState
	now  func() time.Time
	undo []func()
}

func (t *memoryTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memoryTx) InTx(ctx context.Context, fn func(tx Store) error) error {
	return fn(t)
}

func (t *memoryTx) LockUser(ctx context.Context, userID string) error {
	return nil
}

func (t *memoryTx) activeFor(userID, exceptID string) (Session, bool) {
	var (
		found Session
		ok    bool
	)
	for _, sess := range t.s.sessions {
		if sess.UserID != userID || sess.Status != StatusActive || sess.ID == exceptID {
			continue
		}
		if !ok || sess.StartedAt.After(found.StartedAt) {
			found, ok = sess, true
		}
	}
	return found, ok
}

func (t *memoryTx) putSession(sess Session) {
	prev, existed := t.s.sessions[sess.ID]
	t.s.sessions[sess.ID] = sess
	t.undo = append(t.undo, func() {
		if existed {
			t.s.sessions[sess.ID] = prev
		} else {
			delete(t.s.sessions, sess.ID)
		}
	})
}

func (t *memoryTx) InsertSession(ctx context.Context, sess Session) error {
	if _, ok := t.s.sessions[sess.ID]; ok {
		return apperr.Conflict("riding session %s already exists", sess.ID)
	}
	if sess.Status == StatusActive {
		if _, ok := t.activeFor(sess.UserID, sess.ID); ok {
			return apperr.Conflict("user %s already has an active riding session", sess.UserID)
		}
	}
	t.putSession(cloneSession(sess))
	return nil
}

func (t *memoryTx) GetSession(ctx context.Context, id string) (Session, error) {
	sess, ok := t.s.sessions[id]
	if !ok {
		return Session{}, apperr.NotFound("riding session %s", id)
	}
	return cloneSession(sess), nil
}

func (t *memoryTx) GetSessionForUpdate(ctx context.Context, id string) (Session, error) {
	return t.GetSession(ctx, id)
}

func (t *memoryTx) UpdateSession(ctx context.Context, sess Session) error {
	if _, ok := t.s.sessions[sess.ID]; !ok {
		return apperr.NotFound("riding session %s", sess.ID)
	}
	if sess.Status == StatusActive {
		if _, ok := t.activeFor(sess.UserID, sess.ID); ok {
			return apperr.Conflict("user %s already has an active riding session", sess.UserID)
		}
	}
	t.putSession(cloneSession(sess))
	return nil
}

func (t *memoryTx) ActiveSession(ctx context.Context, userID string) (Session, error) {
	sess, ok := t.activeFor(userID, "")
	if !ok {
		return Session{}, apperr.NotFound("no active riding session for user %s", userID)
	}
	return cloneSession(sess), nil
}

func (t *memoryTx) SessionsByUser(ctx context.Context, userID string, limit, offset int) ([]Session, int64, error) {
	var all []Session
	for _, sess := range t.s.sessions {
		if sess.UserID == userID {
			all = append(all, cloneSession(sess))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartedAt.After(all[j].StartedAt) })

	total := int64(len(all))
	if offset >= len(all) {
		return []Session{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (t *memoryTx) InsertLocation(ctx context.Context, l *LocationSample) error {
	t.s.nextLocID++
	l.ID = t.s.nextLocID
	l.CreatedAt = t.now()

	id := l.SessionID
	t.s.locations[id] = append(t.s.locations[id], *l)
	t.undo = append(t.undo, func() {
		cur := t.s.locations[id]
		t.s.locations[id] = cur[:len(cur)-1]
		t.s.nextLocID--
	})
	return nil
}

func byRecordedAt(samples []LocationSample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].RecordedAt.Before(samples[j].RecordedAt)
	})
}

func (t *memoryTx) Locations(ctx context.Context, sessionID string) ([]LocationSample, error) {
	out := append([]LocationSample{}, t.s.locations[sessionID]...)
	byRecordedAt(out)
	return out, nil
}

func (t *memoryTx) CountLocations(ctx context.Context, sessionID string) (int64, error) {
	return int64(len(t.s.locations[sessionID])), nil
}

func (t *memoryTx) PendingSync(ctx context.Context, sessionID string) ([]LocationSample, error) {
	out := []LocationSample{}
	for _, l := range t.s.locations[sessionID] {
		if l.IsOfflineSync {
			out = append(out, l)
		}
	}
	byRecordedAt(out)
	return out, nil
}

func (t *memoryTx) MarkAllSynced(ctx context.Context, sessionID string) (int64, error) {
	samples := t.s.locations[sessionID]
	var flipped []int
	for i := range samples {
		if samples[i].IsOfflineSync {
			samples[i].IsOfflineSync = false
			flipped = append(flipped, i)
		}
	}
	if len(flipped) > 0 {
		t.undo = append(t.undo, func() {
			cur := t.s.locations[sessionID]
			for _, i := range flipped {
				cur[i].IsOfflineSync = true
			}
		})
	}
	return int64(len(flipped)), nil
}

func (t *memoryTx) InsertNetworkSample(ctx context.Context, n *NetworkSample) error {
	t.s.nextNetID++
	n.ID = t.s.nextNetID

	id := n.SessionID
	t.s.network[id] = append(t.s.network[id], *n)
	t.undo = append(t.undo, func() {
		cur := t.s.network[id]
		t.s.network[id] = cur[:len(cur)-1]
		t.s.nextNetID--
	})
	return nil
}

func (t *memoryTx) LatestNetworkSample(ctx context.Context, sessionID string) (NetworkSample, error) {
	samples := t.s.network[sessionID]
	if len(samples) == 0 {
		return NetworkSample{}, apperr.NotFound("no network samples for session %s", sessionID)
	}
	return samples[len(samples)-1], nil
}

func cloneSession(s Session) Session {
	if s.EndedAt != nil {
		ended := *s.EndedAt
		s.EndedAt = &ended
	}
	if s.LastLocation != nil {
		loc := *s.LastLocation
		s.LastLocation = &loc
	}
	return s
}
