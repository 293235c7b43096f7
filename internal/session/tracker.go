// Package session records trials into sessions, summarizes finished
// sessions and keeps the capped session history.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/cogniz/internal/logger"
	"github.com/abhisek/cogniz/internal/metrics"
	"github.com/abhisek/cogniz/internal/rating"
	"github.com/abhisek/cogniz/internal/skillgraph"
	"github.com/abhisek/cogniz/internal/store"
)

var (
	// ErrNoActiveSession is returned when recording into or ending a
	// session that is not active.
	ErrNoActiveSession = errors.New("no active session")

	// ErrUnknownGame is returned when a game is not in the catalog.
	ErrUnknownGame = errors.New("unknown game")
)

// DefaultClientKey is the client key used by Start.
const DefaultClientKey = "default"

// DefaultSnapshotDelay is how long snapshot writes are coalesced.
const DefaultSnapshotDelay = time.Second

// Handle is an active session owned by one client. Operations on a handle
// are serialized by its own mutex.
type Handle struct {
	mu        sync.Mutex
	clientKey string
	session   *Session
	active    bool
}

// ID returns the session ID.
func (h *Handle) ID() string { return h.session.ID }

// GameID returns the game being played.
func (h *Handle) GameID() string { return h.session.GameID }

// ClientKey returns the key of the client that owns the handle.
func (h *Handle) ClientKey() string { return h.clientKey }

// StartTime returns when the session started.
func (h *Handle) StartTime() time.Time { return h.session.StartTime }

// Active reports whether trials can still be recorded.
func (h *Handle) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// Session returns a copy of the session so far.
func (h *Handle) Session() Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session.clone()
}

// Tracker owns session lifecycles. It can host many independent handles,
// at most one active per client key.
type Tracker struct {
	registry *skillgraph.Registry
	ratings  *rating.Engine
	kv       store.KV
	log      *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	snapshotDelay time.Duration
	debouncer     *Debouncer
	history       *historyIndex

	mu        sync.Mutex
	active    map[string]*Handle // by client key
	handles   map[string]*Handle // by session ID
	bodies    map[string]Session // finished sessions by storage key
	lastStart time.Time

	idxMu sync.Mutex
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the tracker logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithSnapshotDelay sets the snapshot coalescing window. Zero or less
// writes snapshots synchronously.
func WithSnapshotDelay(d time.Duration) Option {
	return func(t *Tracker) { t.snapshotDelay = d }
}

// WithHistoryLimit sets how many finished sessions are kept.
func WithHistoryLimit(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.history.limit = n
		}
	}
}

// NewTracker creates a tracker. A nil kv keeps everything in memory.
func NewTracker(reg *skillgraph.Registry, ratings *rating.Engine, kv store.KV, opts ...Option) *Tracker {
	if kv == nil {
		kv = store.NewMemoryKV()
	}
	t := &Tracker{
		registry:      reg,
		ratings:       ratings,
		kv:            kv,
		now:           time.Now,
		snapshotDelay: DefaultSnapshotDelay,
		debouncer:     NewDebouncer(),
		history:       &historyIndex{kv: kv, limit: DefaultHistoryLimit},
		active:        make(map[string]*Handle),
		handles:       make(map[string]*Handle),
		bodies:        make(map[string]Session),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = logger.OrDefault(t.log)
	t.history.log = t.log
	t.history.metrics = t.metrics
	t.history.evict = t.dropBodies
	return t
}

// Start begins a session for the default client.
func (t *Tracker) Start(ctx context.Context, gameID string) (*Handle, error) {
	return t.StartFor(ctx, DefaultClientKey, gameID)
}

// StartFor begins a session for a client. If the client already has an
// active session it is ended normally first, so its trials are archived
// rather than lost.
func (t *Tracker) StartFor(ctx context.Context, clientKey, gameID string) (*Handle, error) {
	if _, ok := t.registry.Game(gameID); !ok {
		t.metrics.UsageError("start_session")
		t.log.Warn("start session for unknown game", "game_id", gameID)
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, gameID)
	}
	if clientKey == "" {
		clientKey = DefaultClientKey
	}

	for {
		t.mu.Lock()
		stale := t.active[clientKey]
		if stale == nil {
			h := t.newHandleLocked(clientKey, gameID)
			t.mu.Unlock()

			t.metrics.SessionStarted(gameID)
			t.log.Info("session started", "session_id", h.ID(), "game_id", gameID, "client_key", clientKey)
			return h, nil
		}
		t.mu.Unlock()

		t.log.Warn("closing stale session before starting a new one",
			"session_id", stale.ID(), "game_id", stale.GameID(), "client_key", clientKey)
		if _, err := t.End(ctx, stale); err != nil && !errors.Is(err, ErrNoActiveSession) {
			return nil, err
		}
	}
}

func (t *Tracker) newHandleLocked(clientKey, gameID string) *Handle {
	// Storage keys use the start millisecond, so starts are kept unique.
	start := t.now().Truncate(time.Millisecond)
	if !start.After(t.lastStart) {
		start = t.lastStart.Add(time.Millisecond)
	}
	t.lastStart = start

	h := &Handle{
		clientKey: clientKey,
		active:    true,
		session: &Session{
			ID:           uuid.NewString(),
			GameID:       gameID,
			StartTime:    start,
			Trials:       []Trial{},
			SkillUpdates: []rating.UpdateResult{},
		},
	}
	t.active[clientKey] = h
	t.handles[h.ID()] = h
	return h
}

// Lookup returns the active handle of a session.
func (t *Tracker) Lookup(sessionID string) (*Handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.handles[sessionID]
	return h, ok
}

// ActiveCount returns the number of active sessions.
func (t *Tracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.handles)
}

// Record validates a trial, appends it to the session, updates the ratings
// of every skill the game trains and schedules a recovery snapshot. Invalid
// input returns a *ValidationError and changes nothing.
func (t *Tracker) Record(ctx context.Context, h *Handle, in TrialInput) (*Trial, error) {
	if h == nil {
		t.metrics.UsageError("record_trial")
		t.log.Warn("record trial without a session")
		return nil, ErrNoActiveSession
	}
	if err := in.Validate(); err != nil {
		t.metrics.ValidationError()
		t.log.Warn("rejected trial", "session_id", h.ID(), "error", err)
		return nil, err
	}

	h.mu.Lock()
	trial, err := t.recordLocked(ctx, h, in)
	h.mu.Unlock()
	if err != nil {
		return nil, err
	}

	t.scheduleSnapshot(h)
	return trial, nil
}

func (t *Tracker) recordLocked(ctx context.Context, h *Handle, in TrialInput) (*Trial, error) {
	if !h.active {
		t.metrics.UsageError("record_trial")
		t.log.Warn("record trial on inactive session", "session_id", h.ID())
		return nil, ErrNoActiveSession
	}

	s := h.session
	position := len(s.Trials) + 1

	trial := Trial{
		Timestamp:        in.Timestamp,
		GameID:           s.GameID,
		TrialNumber:      in.TrialNumber,
		Correct:          in.Correct,
		ErrorType:        in.ErrorType,
		ReactionTimeMs:   clonePtr(in.ReactionTimeMs),
		ThinkTimeMs:      clonePtr(in.ThinkTimeMs),
		Difficulty:       map[string]float64{},
		DifficultyRating: in.DifficultyRating,
		FatigueIndex:     FatigueIndex(position),
		Score:            in.Score,
	}
	for k, v := range in.Difficulty {
		trial.Difficulty[k] = v
	}
	if trial.Timestamp.IsZero() {
		trial.Timestamp = t.now()
	}
	if trial.TrialNumber == 0 {
		trial.TrialNumber = position
	}
	if trial.DifficultyRating == 0 {
		trial.DifficultyRating = rating.EstimateDifficultyRating(trial.Difficulty)
	}

	s.Trials = append(s.Trials, trial)
	updates := t.ratings.UpdateModuleSkills(ctx, s.GameID, rating.Outcome{
		Correct:          trial.Correct,
		DifficultyRating: trial.DifficultyRating,
		ReactionTimeMs:   trial.ReactionTimeMs,
	})
	s.SkillUpdates = append(s.SkillUpdates, updates...)

	t.metrics.TrialRecorded(s.GameID, trial.Correct)
	t.log.Debug("trial recorded",
		"session_id", s.ID, "position", position, "correct", trial.Correct,
		"fatigue_index", trial.FatigueIndex)

	out := trial.clone()
	return &out, nil
}

// End closes a session: the pending snapshot is dropped, the session body
// and history entry are persisted and the summary is returned.
func (t *Tracker) End(ctx context.Context, h *Handle) (*Result, error) {
	if h == nil {
		t.metrics.UsageError("end_session")
		t.log.Warn("end session without a session")
		return nil, ErrNoActiveSession
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active {
		t.metrics.UsageError("end_session")
		t.log.Warn("end inactive session", "session_id", h.ID())
		return nil, ErrNoActiveSession
	}
	h.active = false
	t.debouncer.Cancel(h.ID())
	t.detach(h)

	s := h.session
	end := t.now()
	if end.Before(s.StartTime) {
		end = s.StartTime
	}
	s.EndTime = &end

	res := t.archive(ctx, s)
	t.metrics.SessionEnded(s.GameID)
	t.log.Info("session ended",
		"session_id", s.ID, "game_id", s.GameID,
		"trials", res.Summary.TrialCount, "accuracy", res.Summary.Accuracy)
	return res, nil
}

func (t *Tracker) detach(h *Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active[h.clientKey] == h {
		delete(t.active, h.clientKey)
	}
	delete(t.handles, h.ID())
}

// archive persists a finished session, adds it to the history, evicts
// old sessions and clears the recovery snapshot.
func (t *Tracker) archive(ctx context.Context, s *Session) *Result {
	summary := Summarize(s)
	body := s.clone()
	key := store.SessionKey(s.GameID, s.StartTime)

	if err := store.SetJSON(ctx, t.kv, key, body); err != nil {
		t.metrics.StorageError("persist_session")
		t.log.Error("persist session", "session_id", s.ID, "error", err)
	}
	t.mu.Lock()
	t.bodies[key] = body
	t.mu.Unlock()

	t.history.add(ctx, HistoryEntry{
		SessionID:  s.ID,
		GameID:     s.GameID,
		Timestamp:  *s.EndTime,
		DurationMs: s.elapsed().Milliseconds(),
		TrialCount: len(s.Trials),
		StorageKey: key,
	})

	if err := t.kv.Remove(ctx, store.ActiveSessionKey(s.ID)); err != nil {
		t.metrics.StorageError("remove_snapshot")
		t.log.Error("remove session snapshot", "session_id", s.ID, "error", err)
	}
	t.updateActiveIndex(ctx, s.ID, false)

	return &Result{Session: body, Summary: summary}
}

func (t *Tracker) dropBodies(ctx context.Context, entries []HistoryEntry) {
	for _, e := range entries {
		t.mu.Lock()
		delete(t.bodies, e.StorageKey)
		t.mu.Unlock()
		if err := t.kv.Remove(ctx, e.StorageKey); err != nil {
			t.metrics.StorageError("evict_session")
			t.log.Error("evict session", "key", e.StorageKey, "error", err)
		}
	}
}

// History returns finished sessions, newest first.
func (t *Tracker) History(ctx context.Context) []HistoryEntry {
	return t.history.list(ctx)
}

// ResetHistory removes every finished session and the history index.
func (t *Tracker) ResetHistory(ctx context.Context) int {
	return t.history.reset(ctx)
}

// SessionsToday counts sessions finished since local midnight of now.
func (t *Tracker) SessionsToday(ctx context.Context, now time.Time) int {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	n := 0
	for _, e := range t.History(ctx) {
		if !e.Timestamp.Before(midnight) && !e.Timestamp.After(now) {
			n++
		}
	}
	return n
}

// LastPlayed returns the most recent finish time of every played game.
func (t *Tracker) LastPlayed(ctx context.Context) map[string]time.Time {
	out := make(map[string]time.Time)
	for _, e := range t.History(ctx) {
		if e.Timestamp.After(out[e.GameID]) {
			out[e.GameID] = e.Timestamp
		}
	}
	return out
}

// Flush writes every pending recovery snapshot now.
func (t *Tracker) Flush() int {
	return t.debouncer.FlushAll()
}
