package composer

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/cogniz/internal/logger"
	"github.com/abhisek/cogniz/internal/rating"
	"github.com/abhisek/cogniz/internal/skillgraph"
)

var testNow = time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

// fakeRatings ranks catalog skills by a rating override map.
type fakeRatings struct {
	reg     *skillgraph.Registry
	ratings map[string]int
}

func (f *fakeRatings) WeakestSkills(k int) []rating.SkillView {
	var views []rating.SkillView
	for _, s := range f.reg.AllSkills() {
		r, ok := f.ratings[s.ID]
		if !ok {
			r = rating.DefaultRating
		}
		views = append(views, rating.SkillView{Skill: s, Rating: r})
	}
	slices.SortStableFunc(views, func(a, b rating.SkillView) int { return a.Rating - b.Rating })
	if k < len(views) {
		views = views[:k]
	}
	return views
}

type fakeHistory struct {
	last  map[string]time.Time
	today int
}

func (f *fakeHistory) LastPlayed(context.Context) map[string]time.Time {
	out := make(map[string]time.Time, len(f.last))
	for k, v := range f.last {
		out[k] = v
	}
	return out
}

func (f *fakeHistory) SessionsToday(context.Context, time.Time) int { return f.today }

func daysAgo(n int) time.Time { return testNow.Add(-time.Duration(n) * 24 * time.Hour) }

type setup struct {
	ratings map[string]int
	last    map[string]time.Time
	today   int
	cfg     *Config
}

func newComposer(s setup) *Composer {
	reg := skillgraph.Default(skillgraph.WithLogger(logger.Discard()))
	opts := []Option{
		WithLogger(logger.Discard()),
		WithClock(func() time.Time { return testNow }),
	}
	if s.cfg != nil {
		opts = append(opts, WithConfig(*s.cfg))
	}
	return New(reg,
		&fakeRatings{reg: reg, ratings: s.ratings},
		&fakeHistory{last: s.last, today: s.today},
		opts...)
}

func gameIDs(items []PlanItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.GameID
	}
	return out
}

func minutes(items []PlanItem) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.AllocatedMinutes
	}
	return out
}

func TestComposeSession_FreshProfile(t *testing.T) {
	c := newComposer(setup{})

	plan, err := c.ComposeSession(context.Background(), 20)
	require.NoError(t, err)

	assert.Equal(t, []string{"symbol-recall", "grid-memory", "path-recall", "pattern-rotation", "peripheral-tracker"}, gameIDs(plan.Items))
	assert.Equal(t, []int{4, 4, 4, 4, 4}, minutes(plan.Items))
	assert.Equal(t, 20, plan.TotalMinutes())
	assert.False(t, plan.Fatigued)
	assert.False(t, plan.Relaxed)
	assert.Equal(t, testNow, plan.GeneratedAt)

	first := plan.Items[0]
	assert.Equal(t, CategoryFocus, first.Category)
	assert.Equal(t, "Symbol Recall", first.GameName)
	assert.Equal(t, []string{"visual-working-memory", "associative-memory"}, first.TargetedSkills)
	assert.Equal(t, "lowest-rated skills Visual Working Memory (1500) and Associative Memory (1500); never played", first.Rationale)

	variety := plan.Items[3]
	assert.Equal(t, CategoryVariety, variety.Category)
	assert.Equal(t, []string{"mental-rotation", "pattern-recognition"}, variety.TargetedSkills)
	assert.Equal(t, "variety: trains Mental Rotation, Pattern Recognition; never played", variety.Rationale)
}

func TestComposeSession_TargetsWeakestSkill(t *testing.T) {
	c := newComposer(setup{
		ratings: map[string]int{"task-switching": 1420},
		last:    map[string]time.Time{"rule-switch": daysAgo(9)},
	})

	plan, err := c.ComposeSession(context.Background(), 30)
	require.NoError(t, err)

	first := plan.Items[0]
	assert.Equal(t, "rule-switch", first.GameID)
	assert.Equal(t, []string{"task-switching"}, first.TargetedSkills)
	assert.Equal(t, "lowest-rated skill Task Switching (1420); not played in 9 days", first.Rationale)
}

func TestComposeSession_ExcludesRecentGames(t *testing.T) {
	c := newComposer(setup{
		ratings: map[string]int{"task-switching": 1200},
		last:    map[string]time.Time{"rule-switch": daysAgo(2), "pattern-rotation": daysAgo(6)},
	})

	plan, err := c.ComposeSession(context.Background(), 20)
	require.NoError(t, err)

	ids := gameIDs(plan.Items)
	assert.NotContains(t, ids, "rule-switch")
	assert.NotContains(t, ids, "pattern-rotation")
	assert.False(t, plan.Relaxed)
	assert.Equal(t, []string{"symbol-recall", "grid-memory", "path-recall", "peripheral-tracker", "color-clash"}, ids)
}

func TestComposeSession_RecentFocusGivesWayToVariety(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WeakestCount = 1
	c := newComposer(setup{
		ratings: map[string]int{"task-switching": 1200},
		last:    map[string]time.Time{"rule-switch": daysAgo(2)},
		cfg:     &cfg,
	})

	plan, err := c.ComposeSession(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, []string{"symbol-recall", "pattern-rotation"}, gameIDs(plan.Items))
	assert.Equal(t, []int{5, 5}, minutes(plan.Items))
	for _, it := range plan.Items {
		assert.Equal(t, CategoryVariety, it.Category)
	}
	assert.False(t, plan.Relaxed)
	assert.Equal(t, []string{
		"every game for Task Switching was played in the last 7 days; focus time goes to variety games",
	}, plan.Notes)
}

func TestComposeSession_RelaxesRecencyWhenNothingElse(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WeakestCount = 1
	last := map[string]time.Time{}
	for _, id := range []string{"symbol-recall", "pattern-rotation", "peripheral-tracker", "grid-memory", "color-clash", "quick-tap", "target-search", "pair-match", "path-recall"} {
		last[id] = daysAgo(1)
	}
	last["rule-switch"] = daysAgo(2)
	c := newComposer(setup{
		ratings: map[string]int{"task-switching": 1200},
		last:    last,
		cfg:     &cfg,
	})

	plan, err := c.ComposeSession(context.Background(), 10)
	require.NoError(t, err)

	require.Len(t, plan.Items, 1)
	assert.True(t, plan.Relaxed)
	assert.Equal(t, "rule-switch", plan.Items[0].GameID)
	assert.Equal(t, CategoryFocus, plan.Items[0].Category)
	assert.Equal(t, 10, plan.Items[0].AllocatedMinutes)
	assert.Contains(t, plan.Items[0].Rationale, "not played in 2 days; recency rule relaxed")
	require.Len(t, plan.Notes, 1)
	assert.Contains(t, plan.Notes[0], "recency rule relaxed")
}

func TestComposeSession_FatigueRelaxesIntensityBeforeRecency(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WeakestCount = 1
	c := newComposer(setup{
		ratings: map[string]int{"mental-rotation": 1200},
		last:    map[string]time.Time{"path-recall": daysAgo(1)},
		today:   5,
		cfg:     &cfg,
	})

	plan, err := c.ComposeSession(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, []string{"pattern-rotation", "quick-tap", "color-clash"}, gameIDs(plan.Items))
	assert.Equal(t, []int{6, 2, 2}, minutes(plan.Items))
	assert.NotContains(t, gameIDs(plan.Items), "path-recall")
	assert.False(t, plan.Relaxed)
	assert.Contains(t, plan.Items[0].Rationale, "high intensity kept")
	require.Len(t, plan.Notes, 2)
	assert.Contains(t, plan.Notes[1], "intensity rule relaxed")
}

func TestComposeSession_Fatigue(t *testing.T) {
	c := newComposer(setup{today: 4})

	plan, err := c.ComposeSession(context.Background(), 20)
	require.NoError(t, err)

	assert.True(t, plan.Fatigued)
	assert.Equal(t, 4, plan.SessionsToday)
	assert.Equal(t, []string{"symbol-recall", "grid-memory", "path-recall", "quick-tap", "color-clash"}, gameIDs(plan.Items))
	for _, it := range plan.Items {
		g, _ := skillgraph.Default(skillgraph.WithLogger(logger.Discard())).Game(it.GameID)
		assert.NotEqual(t, skillgraph.IntensityHigh, g.Intensity, it.GameID)
	}
	require.NotEmpty(t, plan.Notes)
	assert.Contains(t, plan.Notes[0], "4 sessions played today")
	assert.Contains(t, plan.Items[0].Rationale, "lighter pick for a busy day")
	assert.Contains(t, plan.Items[3].Rationale, "short 3-minute game")
}

func TestComposeSession_FatigueThresholdIsExclusive(t *testing.T) {
	c := newComposer(setup{today: 3})
	plan, err := c.ComposeSession(context.Background(), 20)
	require.NoError(t, err)
	assert.False(t, plan.Fatigued)
	assert.Contains(t, gameIDs(plan.Items), "pattern-rotation")
}

func TestComposeSession_FatigueRelaxesIntensityWhenNothingElse(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WeakestCount = 1
	c := newComposer(setup{
		ratings: map[string]int{"task-switching": 1200},
		today:   5,
		cfg:     &cfg,
	})

	plan, err := c.ComposeSession(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, "rule-switch", plan.Items[0].GameID)
	assert.False(t, plan.Relaxed)
	assert.Contains(t, plan.Items[0].Rationale, "high intensity kept")
	assert.Len(t, plan.Notes, 2)
}

func TestComposeSession_VarietyOrder(t *testing.T) {
	c := newComposer(setup{
		last: map[string]time.Time{
			"pattern-rotation": daysAgo(20),
			"color-clash":      daysAgo(8),
			"rule-switch":      daysAgo(30),
			"quick-tap":        daysAgo(1),
			"target-search":    daysAgo(15),
			"pair-match":       daysAgo(9),
		},
	})

	plan, err := c.ComposeSession(context.Background(), 20)
	require.NoError(t, err)

	var variety []PlanItem
	for _, it := range plan.Items {
		if it.Category == CategoryVariety {
			variety = append(variety, it)
		}
	}
	require.Len(t, variety, 2)
	assert.Equal(t, "peripheral-tracker", variety[0].GameID)
	assert.Equal(t, "rule-switch", variety[1].GameID)
	assert.Contains(t, variety[1].Rationale, "not played in 30 days")
}

func TestComposeSession_NoVarietyFoldsIntoFocus(t *testing.T) {
	last := map[string]time.Time{}
	for _, id := range []string{"pattern-rotation", "peripheral-tracker", "color-clash", "rule-switch", "quick-tap", "target-search", "pair-match"} {
		last[id] = daysAgo(1)
	}
	c := newComposer(setup{last: last})

	plan, err := c.ComposeSession(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, []string{"symbol-recall", "grid-memory", "path-recall"}, gameIDs(plan.Items))
	assert.Equal(t, []int{4, 3, 3}, minutes(plan.Items))
	for _, it := range plan.Items {
		assert.Equal(t, CategoryFocus, it.Category)
	}
}

func TestComposeSession_MinuteTotals(t *testing.T) {
	c := newComposer(setup{})
	for m := 1; m <= 90; m++ {
		plan, err := c.ComposeSession(context.Background(), m)
		require.NoError(t, err)
		assert.Equal(t, m, plan.TotalMinutes(), "minutes=%d", m)
		for _, it := range plan.Items {
			assert.Positive(t, it.AllocatedMinutes)
		}
	}

	plan, err := c.ComposeSession(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 1, 2, 1}, minutes(plan.Items))

	plan, err = c.ComposeSession(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"symbol-recall"}, gameIDs(plan.Items))
}

func TestComposeSession_InvalidMinutes(t *testing.T) {
	c := newComposer(setup{})
	for _, m := range []int{0, -5} {
		plan, err := c.ComposeSession(context.Background(), m)
		assert.Nil(t, plan)
		assert.ErrorIs(t, err, ErrInvalidMinutes)
	}
}

func TestComposeSession_Deterministic(t *testing.T) {
	s := setup{
		ratings: map[string]int{"mental-rotation": 1350, "reaction-speed": 1350},
		last:    map[string]time.Time{"path-recall": daysAgo(12)},
	}
	a, err := newComposer(s).ComposeSession(context.Background(), 25)
	require.NoError(t, err)
	b, err := newComposer(s).ComposeSession(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAllocate(t *testing.T) {
	assert.Nil(t, allocate(10, 0))
	assert.Equal(t, []int{4, 3, 3}, allocate(10, 3))
	assert.Equal(t, []int{1, 0, 0}, allocate(1, 3))
	assert.Equal(t, []int{6}, allocate(6, 1))
}
