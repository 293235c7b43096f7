package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/cogniz/internal/store"
)

func TestSnapshot_WrittenOnRecord(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	h, err := f.tracker.StartFor(ctx, "tablet", "pattern-rotation")
	require.NoError(t, err)
	_, err = f.tracker.Record(ctx, h, TrialInput{Correct: true})
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, store.GetJSON(ctx, f.kv, store.ActiveSessionKey(h.ID()), &snap))
	assert.Equal(t, h.ID(), snap.Session.ID)
	assert.Equal(t, "tablet", snap.ClientKey)
	assert.Len(t, snap.Session.Trials, 1)

	var ids []string
	require.NoError(t, store.GetJSON(ctx, f.kv, store.ActiveIndexKey, &ids))
	assert.Equal(t, []string{h.ID()}, ids)

	// Active sessions are not offered for recovery.
	pending, err := f.tracker.PendingSnapshots(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = f.tracker.Recover(ctx, h.ID())
	assert.ErrorIs(t, err, ErrSessionActive)
}

func TestSnapshot_Debounced(t *testing.T) {
	f := newFixture(t, nil, WithSnapshotDelay(time.Hour))
	ctx := context.Background()

	h, err := f.tracker.Start(ctx, "quick-tap")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err = f.tracker.Record(ctx, h, TrialInput{Correct: true})
		require.NoError(t, err)
	}

	_, err = f.kv.Get(ctx, store.ActiveSessionKey(h.ID()))
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 1, f.tracker.debouncer.Pending())

	assert.Equal(t, 1, f.tracker.Flush())
	var snap Snapshot
	require.NoError(t, store.GetJSON(ctx, f.kv, store.ActiveSessionKey(h.ID()), &snap))
	assert.Len(t, snap.Session.Trials, 5)
}

func TestSnapshot_CancelledByEnd(t *testing.T) {
	f := newFixture(t, nil, WithSnapshotDelay(time.Hour))
	ctx := context.Background()

	h, err := f.tracker.Start(ctx, "quick-tap")
	require.NoError(t, err)
	_, err = f.tracker.Record(ctx, h, TrialInput{Correct: true})
	require.NoError(t, err)
	_, err = f.tracker.End(ctx, h)
	require.NoError(t, err)

	assert.Equal(t, 0, f.tracker.debouncer.Pending())
	assert.Equal(t, 0, f.tracker.Flush())
	_, err = f.kv.Get(ctx, store.ActiveSessionKey(h.ID()))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSnapshot_TimerFires(t *testing.T) {
	f := newFixture(t, nil, WithSnapshotDelay(10*time.Millisecond))
	ctx := context.Background()

	h, err := f.tracker.Start(ctx, "quick-tap")
	require.NoError(t, err)
	_, err = f.tracker.Record(ctx, h, TrialInput{Correct: true})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, err := f.kv.Get(ctx, store.ActiveSessionKey(h.ID()))
		return err == nil
	}, time.Second, 5*time.Millisecond)
}

func TestRecover_AbandonedSession(t *testing.T) {
	kv := store.NewMemoryKV()
	ctx := context.Background()

	crashed := newFixture(t, kv)
	h, err := crashed.tracker.Start(ctx, "peripheral-tracker")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = crashed.tracker.Record(ctx, h, TrialInput{Correct: i != 1})
		require.NoError(t, err)
	}
	sr, _ := crashed.ratings.Get("peripheral-awareness")
	ratingBefore := sr.Rating

	// A new process over the same store.
	f := newFixture(t, kv)
	require.NoError(t, f.ratings.Load(ctx))

	pending, err := f.tracker.PendingSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, h.ID(), pending[0].Session.ID)

	res, err := f.tracker.Recover(ctx, h.ID())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Summary.TrialCount)
	assert.InDelta(t, 2.0/3, res.Summary.Accuracy, 1e-9)
	require.NotNil(t, res.Session.EndTime)
	assert.False(t, res.Session.EndTime.Before(res.Session.StartTime))

	// Ratings are not applied twice.
	sr, _ = f.ratings.Get("peripheral-awareness")
	assert.Equal(t, ratingBefore, sr.Rating)
	assert.Equal(t, 3, sr.Confidence)

	history := f.tracker.History(ctx)
	require.Len(t, history, 1)
	assert.Equal(t, h.ID(), history[0].SessionID)

	pending, err = f.tracker.PendingSnapshots(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = f.tracker.Recover(ctx, h.ID())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}
