package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/abhisek/cogniz/internal/store"
)

var (
	// ErrNoSnapshot is returned when a session has no recovery snapshot.
	ErrNoSnapshot = errors.New("no recovery snapshot")

	// ErrSessionActive is returned when recovering a session that is still
	// active in this process.
	ErrSessionActive = errors.New("session is still active")
)

// Snapshot is the crash-recovery record of an in-progress session. It is
// best effort: trials recorded after the last write are lost.
type Snapshot struct {
	Session   Session   `json:"session"`
	ClientKey string    `json:"clientKey"`
	SavedAt   time.Time `json:"savedAt"`
}

func (t *Tracker) scheduleSnapshot(h *Handle) {
	t.debouncer.Schedule(h.ID(), t.snapshotDelay, func() {
		t.writeSnapshot(context.Background(), h)
	})
}

func (t *Tracker) writeSnapshot(ctx context.Context, h *Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active {
		return
	}

	snap := Snapshot{
		Session:   h.session.clone(),
		ClientKey: h.clientKey,
		SavedAt:   t.now(),
	}
	if err := store.SetJSON(ctx, t.kv, store.ActiveSessionKey(h.ID()), snap); err != nil {
		t.metrics.StorageError("persist_snapshot")
		t.log.Error("persist session snapshot", "session_id", h.ID(), "error", err)
		return
	}
	t.updateActiveIndex(ctx, h.ID(), true)
	t.log.Debug("session snapshot written", "session_id", h.ID(), "trials", len(snap.Session.Trials))
}

func (t *Tracker) readActiveIndex(ctx context.Context) ([]string, error) {
	var ids []string
	if err := store.GetJSON(ctx, t.kv, store.ActiveIndexKey, &ids); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ids, nil
}

// updateActiveIndex adds or removes a session from the recovery index.
func (t *Tracker) updateActiveIndex(ctx context.Context, sessionID string, add bool) {
	t.idxMu.Lock()
	defer t.idxMu.Unlock()

	ids, err := t.readActiveIndex(ctx)
	if err != nil {
		t.metrics.StorageError("load_snapshot_index")
		t.log.Error("load snapshot index", "error", err)
		return
	}

	has := slices.Contains(ids, sessionID)
	switch {
	case add && !has:
		ids = append(ids, sessionID)
	case !add && has:
		ids = slices.DeleteFunc(ids, func(id string) bool { return id == sessionID })
	default:
		return
	}

	if len(ids) == 0 {
		err = t.kv.Remove(ctx, store.ActiveIndexKey)
	} else {
		err = store.SetJSON(ctx, t.kv, store.ActiveIndexKey, ids)
	}
	if err != nil {
		t.metrics.StorageError("persist_snapshot_index")
		t.log.Error("persist snapshot index", "error", err)
	}
}

// PendingSnapshots lists recovery snapshots of sessions that are not
// active in this process, oldest first.
func (t *Tracker) PendingSnapshots(ctx context.Context) ([]Snapshot, error) {
	t.idxMu.Lock()
	ids, err := t.readActiveIndex(ctx)
	t.idxMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("load snapshot index: %w", err)
	}

	out := []Snapshot{}
	for _, id := range ids {
		if _, ok := t.Lookup(id); ok {
			continue
		}
		var snap Snapshot
		if err := store.GetJSON(ctx, t.kv, store.ActiveSessionKey(id), &snap); err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				t.log.Error("load session snapshot", "session_id", id, "error", err)
			}
			continue
		}
		out = append(out, snap)
	}
	slices.SortFunc(out, func(a, b Snapshot) int {
		return a.Session.StartTime.Compare(b.Session.StartTime)
	})
	return out, nil
}

// Recover finishes an abandoned session from its snapshot: it is archived
// and summarized like a normal end. Ratings are not reapplied; they were
// written through when the trials were recorded.
func (t *Tracker) Recover(ctx context.Context, sessionID string) (*Result, error) {
	if _, ok := t.Lookup(sessionID); ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionActive, sessionID)
	}

	var snap Snapshot
	if err := store.GetJSON(ctx, t.kv, store.ActiveSessionKey(sessionID), &snap); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, sessionID)
		}
		return nil, fmt.Errorf("load session snapshot: %w", err)
	}

	s := snap.Session
	end := snap.SavedAt
	if n := len(s.Trials); n > 0 && s.Trials[n-1].Timestamp.After(end) {
		end = s.Trials[n-1].Timestamp
	}
	if end.Before(s.StartTime) {
		end = s.StartTime
	}
	s.EndTime = &end

	res := t.archive(ctx, &s)
	t.log.Info("session recovered", "session_id", s.ID, "game_id", s.GameID, "trials", len(s.Trials))
	return res, nil
}
