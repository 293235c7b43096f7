// Package engine wires the skill registry, rating engine, session tracker
// and composer behind one API for game and dashboard collaborators.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/abhisek/cogniz/internal/composer"
	"github.com/abhisek/cogniz/internal/logger"
	"github.com/abhisek/cogniz/internal/metrics"
	"github.com/abhisek/cogniz/internal/rating"
	"github.com/abhisek/cogniz/internal/session"
	"github.com/abhisek/cogniz/internal/skillgraph"
	"github.com/abhisek/cogniz/internal/store"
)

// ErrInternal is returned when an operation panics.
var ErrInternal = errors.New("internal engine error")

// Engine is the public entry point. Every method returns a result or an
// error; none panics.
type Engine struct {
	registry *skillgraph.Registry
	ratings  *rating.Engine
	tracker  *session.Tracker
	composer *composer.Composer
	log      *slog.Logger
}

type options struct {
	log           *slog.Logger
	metrics       *metrics.Metrics
	now           func() time.Time
	snapshotDelay time.Duration
	historyLimit  int
	composer      composer.Config
}

// Option configures an Engine.
type Option func(*options)

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics sets the metrics sink shared by every component.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock overrides time.Now in every component.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithSnapshotDelay sets the recovery snapshot debounce window.
func WithSnapshotDelay(d time.Duration) Option {
	return func(o *options) { o.snapshotDelay = d }
}

// WithHistoryLimit caps the session history.
func WithHistoryLimit(n int) Option {
	return func(o *options) { o.historyLimit = n }
}

// WithComposerConfig tunes plan composition.
func WithComposerConfig(cfg composer.Config) Option {
	return func(o *options) { o.composer = cfg }
}

// New builds an engine over reg and kv and restores persisted ratings.
// A failure to read ratings is logged and the engine starts from defaults.
func New(ctx context.Context, reg *skillgraph.Registry, kv store.KV, opts ...Option) *Engine {
	o := options{
		now:           time.Now,
		snapshotDelay: session.DefaultSnapshotDelay,
		historyLimit:  session.DefaultHistoryLimit,
		composer:      composer.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.log = logger.OrDefault(o.log)
	if kv == nil {
		kv = store.NewMemoryKV()
	}

	ratings := rating.NewEngine(reg, kv,
		rating.WithLogger(o.log.With("component", "rating")),
		rating.WithMetrics(o.metrics),
		rating.WithClock(o.now))
	if err := ratings.Load(ctx); err != nil {
		o.log.Error("restore ratings; starting from defaults", "error", err)
	}

	tracker := session.NewTracker(reg, ratings, kv,
		session.WithLogger(o.log.With("component", "session")),
		session.WithMetrics(o.metrics),
		session.WithClock(o.now),
		session.WithSnapshotDelay(o.snapshotDelay),
		session.WithHistoryLimit(o.historyLimit))

	comp := composer.New(reg, ratings, tracker,
		composer.WithConfig(o.composer),
		composer.WithLogger(o.log.With("component", "composer")),
		composer.WithMetrics(o.metrics),
		composer.WithClock(o.now))

	return &Engine{
		registry: reg,
		ratings:  ratings,
		tracker:  tracker,
		composer: comp,
		log:      o.log,
	}
}

// call runs fn and turns a panic into ErrInternal.
func call[T any](e *Engine, op string, fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("engine operation panicked", "op", op, "panic", r, "stack", string(debug.Stack()))
			var zero T
			out, err = zero, fmt.Errorf("%w: %s: %v", ErrInternal, op, r)
		}
	}()
	return fn()
}

// Registry returns the skill registry.
func (e *Engine) Registry() *skillgraph.Registry { return e.registry }

// StartSession begins a session for the default client.
func (e *Engine) StartSession(ctx context.Context, gameID string) (*session.Handle, error) {
	return call(e, "start_session", func() (*session.Handle, error) {
		return e.tracker.Start(ctx, gameID)
	})
}

// StartSessionFor begins a session for a named client, archiving the
// client's previous session if it is still active.
func (e *Engine) StartSessionFor(ctx context.Context, clientKey, gameID string) (*session.Handle, error) {
	return call(e, "start_session", func() (*session.Handle, error) {
		return e.tracker.StartFor(ctx, clientKey, gameID)
	})
}

// Session returns the handle of an active session.
func (e *Engine) Session(sessionID string) (*session.Handle, bool) {
	return e.tracker.Lookup(sessionID)
}

// RecordTrial records a trial into an active session.
func (e *Engine) RecordTrial(ctx context.Context, h *session.Handle, in session.TrialInput) (*session.Trial, error) {
	return call(e, "record_trial", func() (*session.Trial, error) {
		return e.tracker.Record(ctx, h, in)
	})
}

// EndSession closes an active session and returns its summary.
func (e *Engine) EndSession(ctx context.Context, h *session.Handle) (*session.Result, error) {
	return call(e, "end_session", func() (*session.Result, error) {
		return e.tracker.End(ctx, h)
	})
}

// CognitiveProfile returns ratings grouped by domain.
func (e *Engine) CognitiveProfile() (rating.Profile, error) {
	return call(e, "cognitive_profile", func() (rating.Profile, error) {
		return e.ratings.Profile(), nil
	})
}

// Skills returns every skill with its rating, in catalog order.
func (e *Engine) Skills() []rating.SkillView {
	return e.ratings.All()
}

// ModuleStats aggregates the stored sessions of a game.
func (e *Engine) ModuleStats(ctx context.Context, gameID string) (*session.ModuleStats, error) {
	return call(e, "module_stats", func() (*session.ModuleStats, error) {
		return e.tracker.ModuleStats(ctx, gameID)
	})
}

// History returns finished sessions, newest first.
func (e *Engine) History(ctx context.Context) []session.HistoryEntry {
	return e.tracker.History(ctx)
}

// ComposeSession recommends a session of about requestedMinutes.
func (e *Engine) ComposeSession(ctx context.Context, requestedMinutes int) (*composer.Plan, error) {
	return call(e, "compose_session", func() (*composer.Plan, error) {
		return e.composer.ComposeSession(ctx, requestedMinutes)
	})
}

// ResetRatings puts one skill, or every skill when skillID is empty, back
// to the default rating.
func (e *Engine) ResetRatings(ctx context.Context, skillID string) error {
	_, err := call(e, "reset_ratings", func() (struct{}, error) {
		if skillID == "" {
			e.ratings.ResetAll(ctx)
			return struct{}{}, nil
		}
		return struct{}{}, e.ratings.Reset(ctx, skillID)
	})
	return err
}

// ResetHistory deletes every finished session and returns how many.
func (e *Engine) ResetHistory(ctx context.Context) int {
	return e.tracker.ResetHistory(ctx)
}

// PendingRecoveries lists abandoned sessions that can be recovered.
func (e *Engine) PendingRecoveries(ctx context.Context) ([]session.Snapshot, error) {
	return call(e, "pending_recoveries", func() ([]session.Snapshot, error) {
		return e.tracker.PendingSnapshots(ctx)
	})
}

// RecoverSession archives an abandoned session from its snapshot.
func (e *Engine) RecoverSession(ctx context.Context, sessionID string) (*session.Result, error) {
	return call(e, "recover_session", func() (*session.Result, error) {
		return e.tracker.Recover(ctx, sessionID)
	})
}

// Close writes pending recovery snapshots. Active sessions stay
// recoverable from them.
func (e *Engine) Close() {
	if n := e.tracker.Flush(); n > 0 {
		e.log.Info("flushed session snapshots", "count", n)
	}
}
