// Package composer recommends training sessions from the current ratings
// and the session history.
package composer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/abhisek/cogniz/internal/logger"
	"github.com/abhisek/cogniz/internal/metrics"
	"github.com/abhisek/cogniz/internal/rating"
	"github.com/abhisek/cogniz/internal/skillgraph"
)

// ErrInvalidMinutes is returned when the requested length is not positive.
var ErrInvalidMinutes = errors.New("requested minutes must be positive")

// RatingSource provides the current skill ratings.
type RatingSource interface {
	WeakestSkills(k int) []rating.SkillView
}

// HistorySource provides what the composer needs from session history.
type HistorySource interface {
	LastPlayed(ctx context.Context) map[string]time.Time
	SessionsToday(ctx context.Context, now time.Time) int
}

// Config tunes plan composition.
type Config struct {
	// FocusShare is the fraction of minutes spent on the weakest skills.
	FocusShare float64
	// RecentWindow excludes games played more recently than this.
	RecentWindow time.Duration
	// FatigueThreshold is the number of sessions per day above which the
	// day counts as fatigued.
	FatigueThreshold int
	// WeakestCount is how many of the lowest-rated skills are targeted.
	WeakestCount    int
	MaxFocusGames   int
	MaxVarietyGames int
}

// DefaultConfig returns the standard composition settings.
func DefaultConfig() Config {
	return Config{
		FocusShare:       0.6,
		RecentWindow:     7 * 24 * time.Hour,
		FatigueThreshold: 3,
		WeakestCount:     5,
		MaxFocusGames:    3,
		MaxVarietyGames:  2,
	}
}

// Composer builds training plans.
type Composer struct {
	registry *skillgraph.Registry
	ratings  RatingSource
	history  HistorySource
	cfg      Config
	log      *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures a Composer.
type Option func(*Composer)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(c *Composer) { c.cfg = cfg }
}

// WithLogger sets the composer logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Composer) { c.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Composer) { c.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Composer) { c.now = now }
}

// New creates a Composer.
func New(reg *skillgraph.Registry, ratings RatingSource, history HistorySource, opts ...Option) *Composer {
	c := &Composer{
		registry: reg,
		ratings:  ratings,
		history:  history,
		cfg:      DefaultConfig(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.OrDefault(c.log)
	return c
}

// candidate is a game considered for a plan.
type candidate struct {
	game     skillgraph.Game
	targets  []rating.SkillView
	last     time.Time
	recent   bool
	demanded bool // high intensity
}

// ComposeSession builds a plan of about requestedMinutes. Focus games
// train the weakest skills; variety games are the least recently played
// of the rest. The same inputs always produce the same plan.
func (c *Composer) ComposeSession(ctx context.Context, requestedMinutes int) (*Plan, error) {
	if requestedMinutes <= 0 {
		c.metrics.UsageError("compose_session")
		c.log.Warn("compose session with non-positive minutes", "minutes", requestedMinutes)
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMinutes, requestedMinutes)
	}

	now := c.now()
	lastPlayed := c.history.LastPlayed(ctx)
	today := c.history.SessionsToday(ctx, now)

	plan := &Plan{
		RequestedMinutes: requestedMinutes,
		GeneratedAt:      now,
		Items:            []PlanItem{},
		Notes:            []string{},
		SessionsToday:    today,
		Fatigued:         today > c.cfg.FatigueThreshold,
	}
	if plan.Fatigued {
		plan.Notes = append(plan.Notes, fmt.Sprintf(
			"%d sessions played today; high-intensity games skipped", today))
	}

	all := c.focusCandidates(now, lastPlayed)
	focus, variety := c.selectGames(plan, now, lastPlayed, all)

	focusMinutes, varietyMinutes := c.split(requestedMinutes, len(focus), len(variety))
	for i, m := range allocate(focusMinutes, len(focus)) {
		if m == 0 {
			continue
		}
		f := focus[i]
		plan.Items = append(plan.Items, PlanItem{
			GameID:           f.game.ID,
			GameName:         f.game.Name,
			AllocatedMinutes: m,
			TargetedSkills:   skillIDs(f.targets),
			Category:         CategoryFocus,
			Rationale:        c.focusRationale(f, now, plan),
		})
	}
	for i, m := range allocate(varietyMinutes, len(variety)) {
		if m == 0 {
			continue
		}
		v := variety[i]
		plan.Items = append(plan.Items, PlanItem{
			GameID:           v.game.ID,
			GameName:         v.game.Name,
			AllocatedMinutes: m,
			TargetedSkills:   slices.Clone(v.game.Skills),
			Category:         CategoryVariety,
			Rationale:        c.varietyRationale(v, now, plan),
		})
	}

	c.metrics.PlanComposed()
	c.log.Debug("plan composed",
		"minutes", requestedMinutes, "items", len(plan.Items),
		"fatigued", plan.Fatigued, "relaxed", plan.Relaxed)
	return plan, nil
}

// focusCandidates returns every game that trains one of the weakest
// skills, ordered by its weakest targeted skill and then catalog order.
func (c *Composer) focusCandidates(now time.Time, lastPlayed map[string]time.Time) []candidate {
	weakest := c.ratings.WeakestSkills(c.cfg.WeakestCount)

	var out []candidate
	index := make(map[string]int)
	for _, s := range weakest {
		for _, gameID := range c.registry.GamesForSkill(s.ID) {
			if i, ok := index[gameID]; ok {
				out[i].targets = append(out[i].targets, s)
				continue
			}
			g, ok := c.registry.Game(gameID)
			if !ok {
				continue
			}
			index[gameID] = len(out)
			out = append(out, c.newCandidate(g, now, lastPlayed, []rating.SkillView{s}))
		}
	}
	return out
}

func (c *Composer) newCandidate(g skillgraph.Game, now time.Time, lastPlayed map[string]time.Time, targets []rating.SkillView) candidate {
	last := lastPlayed[g.ID]
	return candidate{
		game:     g,
		targets:  targets,
		last:     last,
		recent:   !last.IsZero() && now.Sub(last) < c.cfg.RecentWindow,
		demanded: g.Intensity == skillgraph.IntensityHigh,
	}
}

func filterCandidates(all []candidate, skipRecent, skipDemanding bool) []candidate {
	var out []candidate
	for _, cand := range all {
		if skipRecent && cand.recent {
			continue
		}
		if skipDemanding && cand.demanded {
			continue
		}
		out = append(out, cand)
	}
	return out
}

// selectGames picks the focus and variety games. On a fatigued day the
// intensity rule gives way before the recency rule, and recently played
// games are only used when nothing outside the recent window is left for
// either side of the plan.
func (c *Composer) selectGames(plan *Plan, now time.Time, lastPlayed map[string]time.Time, all []candidate) (focus, variety []candidate) {
	days := windowDays(c.cfg.RecentWindow)

	focus = filterCandidates(all, true, plan.Fatigued)
	if len(focus) == 0 && plan.Fatigued {
		focus = filterCandidates(all, true, false)
		if len(focus) > 0 {
			plan.Notes = append(plan.Notes, "no low-effort game trains the weakest skills; intensity rule relaxed")
		}
	}
	focus = firstN(focus, c.cfg.MaxFocusGames)

	variety = c.selectVariety(now, lastPlayed, chosenIDs(focus), true, plan.Fatigued, plan.Fatigued)
	if len(focus) == 0 && len(variety) == 0 && plan.Fatigued {
		variety = c.selectVariety(now, lastPlayed, nil, true, false, true)
		if len(variety) > 0 {
			plan.Notes = append(plan.Notes, "no low-effort game is left outside the recent window; intensity rule relaxed")
		}
	}

	switch {
	case len(focus) > 0:
	case len(variety) > 0:
		if len(all) > 0 {
			plan.Notes = append(plan.Notes, fmt.Sprintf(
				"every game for %s was played in the last %d days; focus time goes to variety games",
				strings.Join(targetNames(all), ", "), days))
		}
	default:
		focus = filterCandidates(all, false, plan.Fatigued)
		if len(focus) == 0 && plan.Fatigued {
			focus = filterCandidates(all, false, false)
			if len(focus) > 0 {
				plan.Notes = append(plan.Notes, "no low-effort game trains the weakest skills; intensity rule relaxed")
			}
		}
		focus = firstN(focus, c.cfg.MaxFocusGames)
		if len(focus) > 0 {
			plan.Notes = append(plan.Notes, fmt.Sprintf(
				"every game for the weakest skills was played in the last %d days; recency rule relaxed", days))
			break
		}
		variety = c.selectVariety(now, lastPlayed, nil, false, false, plan.Fatigued)
		if len(variety) > 0 {
			plan.Notes = append(plan.Notes, fmt.Sprintf(
				"every game was played in the last %d days; recency rule relaxed", days))
		}
	}

	isRecent := func(cand candidate) bool { return cand.recent }
	plan.Relaxed = slices.ContainsFunc(focus, isRecent) || slices.ContainsFunc(variety, isRecent)
	return focus, variety
}

// selectVariety picks games outside the focus set: never-played first,
// then least recently played. On a fatigued day shorter games come first.
func (c *Composer) selectVariety(now time.Time, lastPlayed map[string]time.Time, chosen map[string]bool, skipRecent, skipDemanding, fatigued bool) []candidate {
	var out []candidate
	for _, g := range c.registry.AllGames() {
		if chosen[g.ID] {
			continue
		}
		cand := c.newCandidate(g, now, lastPlayed, nil)
		if (skipRecent && cand.recent) || (skipDemanding && cand.demanded) {
			continue
		}
		out = append(out, cand)
	}

	slices.SortStableFunc(out, func(a, b candidate) int {
		if fatigued && a.game.TypicalMinutes != b.game.TypicalMinutes {
			return a.game.TypicalMinutes - b.game.TypicalMinutes
		}
		// Zero times sort first, so never-played games lead.
		return a.last.Compare(b.last)
	})
	return firstN(out, c.cfg.MaxVarietyGames)
}

func firstN(cands []candidate, n int) []candidate {
	if len(cands) > n {
		return cands[:n]
	}
	return cands
}

func chosenIDs(cands []candidate) map[string]bool {
	out := make(map[string]bool, len(cands))
	for _, cand := range cands {
		out[cand.game.ID] = true
	}
	return out
}

// targetNames lists the skills the candidates train, weakest first.
func targetNames(cands []candidate) []string {
	var names []string
	seen := make(map[string]bool)
	for _, cand := range cands {
		for _, s := range cand.targets {
			if !seen[s.ID] {
				seen[s.ID] = true
				names = append(names, s.Name)
			}
		}
	}
	return names
}

// split divides the minutes between focus and variety. A side without
// games gives its share to the other.
func (c *Composer) split(total, nFocus, nVariety int) (focus, variety int) {
	switch {
	case nFocus == 0 && nVariety == 0:
		return 0, 0
	case nVariety == 0:
		return total, 0
	case nFocus == 0:
		return 0, total
	}
	focus = int(math.Round(float64(total) * c.cfg.FocusShare))
	focus = min(max(focus, 0), total)
	return focus, total - focus
}

// allocate spreads minutes over n items in whole minutes; the remainder
// goes to the first item.
func allocate(minutes, n int) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, n)
	base := minutes / n
	for i := range out {
		out[i] = base
	}
	out[0] += minutes - base*n
	return out
}

func (c *Composer) focusRationale(f candidate, now time.Time, plan *Plan) string {
	parts := make([]string, 0, len(f.targets))
	for _, s := range f.targets {
		parts = append(parts, fmt.Sprintf("%s (%d)", s.Name, s.Rating))
	}
	label := "lowest-rated skill "
	if len(parts) > 1 {
		label = "lowest-rated skills "
	}

	var b strings.Builder
	b.WriteString(label)
	b.WriteString(strings.Join(parts, " and "))
	b.WriteString("; ")
	b.WriteString(recencyPhrase(f.last, now))
	if f.recent {
		b.WriteString("; recency rule relaxed")
	}
	if plan.Fatigued {
		if f.demanded {
			b.WriteString("; high intensity kept, nothing lighter trains this skill")
		} else {
			b.WriteString("; lighter pick for a busy day")
		}
	}
	return b.String()
}

func (c *Composer) varietyRationale(v candidate, now time.Time, plan *Plan) string {
	names := make([]string, 0, len(v.game.Skills))
	for _, id := range v.game.Skills {
		names = append(names, c.registry.SkillName(id))
	}
	s := "variety: trains " + strings.Join(names, ", ") + "; " + recencyPhrase(v.last, now)
	if v.recent {
		s += "; recency rule relaxed"
	}
	if plan.Fatigued {
		if v.demanded {
			s += "; high intensity kept, nothing lighter is left"
		} else {
			s += fmt.Sprintf("; short %d-minute game for a busy day", v.game.TypicalMinutes)
		}
	}
	return s
}

func recencyPhrase(last, now time.Time) string {
	if last.IsZero() {
		return "never played"
	}
	days := int(now.Sub(last).Hours() / 24)
	switch {
	case days <= 0:
		return "last played today"
	case days == 1:
		return "not played in 1 day"
	default:
		return fmt.Sprintf("not played in %d days", days)
	}
}

func windowDays(d time.Duration) int {
	return int(d.Hours() / 24)
}

func skillIDs(views []rating.SkillView) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.ID
	}
	return out
}
