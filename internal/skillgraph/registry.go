package skillgraph

import (
	"log/slog"
	"slices"

	"github.com/abhisek/cogniz/internal/logger"
)

// Registry is the immutable catalog of skills and the game→skills mapping,
// with precomputed indices. All lookups are pure; unknown ids produce
// empty results and a logged warning.
type Registry struct {
	version      string
	skills       []Skill
	byID         map[string]int
	byDomain     map[Domain][]Skill
	order        map[string]int
	games        []Game
	gameByID     map[string]int
	gamesBySkill map[string][]string
	log          *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for unknown-id warnings.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.log = l
	}
}

// New validates cat and builds a Registry from it.
func New(cat Catalog, opts ...Option) (*Registry, error) {
	if err := validateCatalog(cat); err != nil {
		return nil, err
	}

	r := &Registry{
		version:      cat.Version,
		skills:       slices.Clone(cat.Skills),
		byID:         make(map[string]int, len(cat.Skills)),
		byDomain:     make(map[Domain][]Skill),
		order:        make(map[string]int, len(cat.Skills)),
		games:        make([]Game, len(cat.Games)),
		gameByID:     make(map[string]int, len(cat.Games)),
		gamesBySkill: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = logger.OrDefault(r.log)

	for i, s := range r.skills {
		r.byID[s.ID] = i
		r.order[s.ID] = i
		r.byDomain[s.Domain] = append(r.byDomain[s.Domain], s)
	}

	for i, g := range cat.Games {
		g.Skills = slices.Clone(g.Skills)
		r.games[i] = g
		r.gameByID[g.ID] = i
		for _, skillID := range g.Skills {
			r.gamesBySkill[skillID] = append(r.gamesBySkill[skillID], g.ID)
		}
	}

	return r, nil
}

// Version returns the catalog version.
func (r *Registry) Version() string {
	return r.version
}

// GetSkill returns a skill by ID.
func (r *Registry) GetSkill(id string) (Skill, bool) {
	i, ok := r.byID[id]
	if !ok {
		r.log.Warn("unknown skill", "skill_id", id)
		return Skill{}, false
	}
	return r.skills[i], true
}

// HasSkill reports whether id is in the catalog without logging.
func (r *Registry) HasSkill(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// SkillName returns the display name of a skill, or the id itself if unknown.
func (r *Registry) SkillName(id string) string {
	if i, ok := r.byID[id]; ok {
		return r.skills[i].Name
	}
	return id
}

// SkillOrder returns the catalog position of a skill, used as the
// deterministic tie-break everywhere skills are sorted. Unknown ids sort last.
func (r *Registry) SkillOrder(id string) int {
	if i, ok := r.order[id]; ok {
		return i
	}
	return len(r.skills)
}

// AllSkills returns all skills in catalog order.
func (r *Registry) AllSkills() []Skill {
	return slices.Clone(r.skills)
}

// SkillsByDomain returns all skills in a domain, in catalog order.
func (r *Registry) SkillsByDomain(d Domain) []Skill {
	skills, ok := r.byDomain[d]
	if !ok {
		r.log.Warn("unknown or empty domain", "domain", d)
		return []Skill{}
	}
	return slices.Clone(skills)
}

// Domains returns the domains that have at least one skill, in display order.
func (r *Registry) Domains() []Domain {
	var out []Domain
	for _, d := range AllDomains() {
		if len(r.byDomain[d]) > 0 {
			out = append(out, d)
		}
	}
	return out
}

// Game returns a game by ID.
func (r *Registry) Game(id string) (Game, bool) {
	i, ok := r.gameByID[id]
	if !ok {
		return Game{}, false
	}
	g := r.games[i]
	g.Skills = slices.Clone(g.Skills)
	return g, true
}

// AllGames returns all games in catalog order.
func (r *Registry) AllGames() []Game {
	out := make([]Game, len(r.games))
	for i, g := range r.games {
		g.Skills = slices.Clone(g.Skills)
		out[i] = g
	}
	return out
}

// ModuleSkills returns the skills trained by a game, in the game's order.
// Returns an empty slice for an unknown game.
func (r *Registry) ModuleSkills(gameID string) []Skill {
	i, ok := r.gameByID[gameID]
	if !ok {
		r.log.Warn("unknown game", "game_id", gameID)
		return []Skill{}
	}
	ids := r.games[i].Skills
	out := make([]Skill, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.skills[r.byID[id]])
	}
	return out
}

// GamesForSkill returns the ids of games that train a skill, in catalog order.
func (r *Registry) GamesForSkill(skillID string) []string {
	if _, ok := r.byID[skillID]; !ok {
		r.log.Warn("unknown skill", "skill_id", skillID)
		return []string{}
	}
	return slices.Clone(r.gamesBySkill[skillID])
}
