package rating

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/abhisek/cogniz/internal/logger"
	"github.com/abhisek/cogniz/internal/metrics"
	"github.com/abhisek/cogniz/internal/skillgraph"
	"github.com/abhisek/cogniz/internal/store"
)

// ErrUnknownSkill is returned when an update names a skill not in the catalog.
var ErrUnknownSkill = errors.New("unknown skill")

// snapshotVersion is bumped when SnapshotData changes shape.
const snapshotVersion = 1

// SkillRating is the mutable rating state of one skill.
type SkillRating struct {
	SkillID    string    `json:"skill_id"`
	Rating     int       `json:"rating"`
	Confidence int       `json:"confidence"`
	UpdatedAt  time.Time `json:"updated_at,omitzero"`
}

// SnapshotData is the persisted form of every skill's rating.
type SnapshotData struct {
	Version int                     `json:"version"`
	Skills  map[string]*SkillRating `json:"skills"`
}

// Outcome is the part of a trial the rating update needs.
type Outcome struct {
	Correct bool
	// DifficultyRating is the trial difficulty on the rating scale.
	// Zero means DefaultDifficultyRating.
	DifficultyRating float64
	// ReactionTimeMs is carried for callers; it does not change the delta.
	ReactionTimeMs *float64
}

// UpdateResult describes one applied update.
type UpdateResult struct {
	SkillID   string  `json:"skillId"`
	OldRating int     `json:"oldRating"`
	NewRating int     `json:"newRating"`
	Delta     float64 `json:"delta"`
	Expected  float64 `json:"expected"`
	Actual    float64 `json:"actual"`
}

// Engine maintains an Elo-style rating and confidence for every skill in
// the registry. Updates are written through to the KV store immediately;
// storage failures are logged and the in-memory state stays authoritative.
type Engine struct {
	mu       sync.Mutex
	registry *skillgraph.Registry
	kv       store.KV
	ratings  map[string]*SkillRating
	log      *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine with every catalog skill at default rating.
// kv may be nil, in which case nothing is persisted.
func NewEngine(reg *skillgraph.Registry, kv store.KV, opts ...Option) *Engine {
	e := &Engine{
		registry: reg,
		kv:       kv,
		ratings:  make(map[string]*SkillRating),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = logger.OrDefault(e.log)

	for _, s := range reg.AllSkills() {
		e.ratings[s.ID] = defaultRating(s.ID)
	}
	return e
}

func defaultRating(skillID string) *SkillRating {
	return &SkillRating{SkillID: skillID, Rating: DefaultRating}
}

// Load restores ratings from the KV store. A missing record is not an
// error. Skills in the record that are not in the catalog are ignored;
// out-of-range values are clamped.
func (e *Engine) Load(ctx context.Context) error {
	if e.kv == nil {
		return nil
	}
	var snap SnapshotData
	if err := store.GetJSON(ctx, e.kv, store.RatingsKey, &snap); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		e.metrics.StorageError("load_ratings")
		return fmt.Errorf("load ratings: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadFromSnapshot(&snap)
	return nil
}

func (e *Engine) loadFromSnapshot(snap *SnapshotData) {
	if snap == nil || snap.Skills == nil {
		return
	}
	for id, sr := range snap.Skills {
		if sr == nil {
			continue
		}
		if _, ok := e.ratings[id]; !ok {
			e.log.Warn("ignoring rating for skill not in catalog", "skill_id", id)
			continue
		}
		confidence := sr.Confidence
		if confidence < 0 {
			confidence = 0
		}
		e.ratings[id] = &SkillRating{
			SkillID:    id,
			Rating:     ClampRating(float64(sr.Rating)),
			Confidence: confidence,
			UpdatedAt:  sr.UpdatedAt,
		}
		e.metrics.RatingSet(id, e.ratings[id].Rating)
	}
}

// Get returns the rating of a skill.
func (e *Engine) Get(skillID string) (SkillRating, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sr, ok := e.ratings[skillID]
	if !ok {
		return SkillRating{}, false
	}
	return *sr, true
}

// Update applies one trial outcome to a skill and persists the result.
func (e *Engine) Update(ctx context.Context, skillID string, o Outcome) (*UpdateResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res, ok := e.apply(skillID, o)
	if !ok {
		e.log.Warn("rating update for unknown skill", "skill_id", skillID)
		return nil, fmt.Errorf("%w: %q", ErrUnknownSkill, skillID)
	}
	e.persistLocked(ctx)
	return &res, nil
}

// UpdateModuleSkills applies the same outcome independently to every skill
// the game trains, in the game's skill order. An unknown game yields an
// empty result and a warning.
func (e *Engine) UpdateModuleSkills(ctx context.Context, gameID string, o Outcome) []UpdateResult {
	skills := e.registry.ModuleSkills(gameID)
	if len(skills) == 0 {
		return []UpdateResult{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	results := make([]UpdateResult, 0, len(skills))
	for _, s := range skills {
		if res, ok := e.apply(s.ID, o); ok {
			results = append(results, res)
		}
	}
	e.persistLocked(ctx)
	return results
}

// apply runs the Elo update. Caller holds e.mu.
func (e *Engine) apply(skillID string, o Outcome) (UpdateResult, bool) {
	sr, ok := e.ratings[skillID]
	if !ok {
		return UpdateResult{}, false
	}

	difficulty := o.DifficultyRating
	if difficulty == 0 {
		difficulty = DefaultDifficultyRating
	}

	k := KFactor(sr.Confidence)
	expected := ExpectedScore(sr.Rating, difficulty)
	actual := 0.0
	if o.Correct {
		actual = 1.0
	}
	delta := k * (actual - expected)

	old := sr.Rating
	sr.Rating = ClampRating(float64(old) + delta)
	sr.Confidence++
	sr.UpdatedAt = e.now()

	e.metrics.RatingUpdated(skillID, delta, sr.Rating)

	return UpdateResult{
		SkillID:   skillID,
		OldRating: old,
		NewRating: sr.Rating,
		Delta:     delta,
		Expected:  expected,
		Actual:    actual,
	}, true
}

// Reset puts one skill back to the default rating and zero confidence.
func (e *Engine) Reset(ctx context.Context, skillID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.ratings[skillID]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSkill, skillID)
	}
	e.ratings[skillID] = defaultRating(skillID)
	e.metrics.RatingSet(skillID, DefaultRating)
	e.persistLocked(ctx)
	return nil
}

// ResetAll puts every skill back to defaults.
func (e *Engine) ResetAll(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id := range e.ratings {
		e.ratings[id] = defaultRating(id)
		e.metrics.RatingSet(id, DefaultRating)
	}
	e.persistLocked(ctx)
}

// SnapshotData exports every skill's rating for persistence.
func (e *Engine) SnapshotData() *SnapshotData {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() *SnapshotData {
	data := &SnapshotData{
		Version: snapshotVersion,
		Skills:  make(map[string]*SkillRating, len(e.ratings)),
	}
	for id, sr := range e.ratings {
		cp := *sr
		data.Skills[id] = &cp
	}
	return data
}

// persistLocked writes the full rating snapshot. Failures are logged and
// swallowed. Caller holds e.mu.
func (e *Engine) persistLocked(ctx context.Context) {
	if e.kv == nil {
		return
	}
	if err := store.SetJSON(ctx, e.kv, store.RatingsKey, e.snapshotLocked()); err != nil {
		e.metrics.StorageError("persist_ratings")
		e.log.Error("persist ratings", "error", err)
	}
}

// SkillView joins a skill definition with its current rating.
type SkillView struct {
	skillgraph.Skill
	Rating     int `json:"rating"`
	Confidence int `json:"confidence"`
}

// All returns every skill with its rating, in catalog order.
func (e *Engine) All() []SkillView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewsLocked()
}

func (e *Engine) viewsLocked() []SkillView {
	skills := e.registry.AllSkills()
	out := make([]SkillView, 0, len(skills))
	for _, s := range skills {
		sr := e.ratings[s.ID]
		out = append(out, SkillView{Skill: s, Rating: sr.Rating, Confidence: sr.Confidence})
	}
	return out
}

// WeakestSkills returns the k lowest-rated skills in ascending rating
// order. Ties keep catalog order, so the result is deterministic.
func (e *Engine) WeakestSkills(k int) []SkillView {
	views := e.All()
	slices.SortStableFunc(views, func(a, b SkillView) int {
		return a.Rating - b.Rating
	})
	return firstN(views, k)
}

// StrongestSkills returns the k highest-rated skills in descending rating
// order. Ties keep catalog order.
func (e *Engine) StrongestSkills(k int) []SkillView {
	views := e.All()
	slices.SortStableFunc(views, func(a, b SkillView) int {
		return b.Rating - a.Rating
	})
	return firstN(views, k)
}

func firstN(views []SkillView, k int) []SkillView {
	if k < 0 {
		k = 0
	}
	if k < len(views) {
		views = views[:k]
	}
	return views
}
