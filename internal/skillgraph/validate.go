package skillgraph

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// SupportedMajorVersion is the only catalog major version understood.
const SupportedMajorVersion = "v1"

// validateCatalog performs all structural checks on the given catalog.
// Returns a combined error describing all problems found, or nil if valid.
func validateCatalog(cat Catalog) error {
	var errs []string

	switch {
	case cat.Version == "":
		errs = append(errs, "catalog version is empty")
	case !semver.IsValid(cat.Version):
		errs = append(errs, fmt.Sprintf("catalog version %q is not valid semver", cat.Version))
	case semver.Major(cat.Version) != SupportedMajorVersion:
		errs = append(errs, fmt.Sprintf("catalog version %q unsupported (want %s.x.y)", cat.Version, SupportedMajorVersion))
	}

	if len(cat.Skills) == 0 {
		errs = append(errs, "catalog has no skills")
	}
	if len(cat.Games) == 0 {
		errs = append(errs, "catalog has no games")
	}

	domains := make(map[Domain]bool)
	for _, d := range AllDomains() {
		domains[d] = true
	}

	skillSet := make(map[string]bool, len(cat.Skills))
	for _, s := range cat.Skills {
		if s.ID == "" {
			errs = append(errs, "skill with empty ID")
			continue
		}
		if skillSet[s.ID] {
			errs = append(errs, fmt.Sprintf("duplicate skill ID: %q", s.ID))
		}
		skillSet[s.ID] = true
		if s.Name == "" {
			errs = append(errs, fmt.Sprintf("skill %q has no name", s.ID))
		}
		if !domains[s.Domain] {
			errs = append(errs, fmt.Sprintf("skill %q has unknown domain %q", s.ID, s.Domain))
		}
	}

	gameSet := make(map[string]bool, len(cat.Games))
	for _, g := range cat.Games {
		if g.ID == "" {
			errs = append(errs, "game with empty ID")
			continue
		}
		if gameSet[g.ID] {
			errs = append(errs, fmt.Sprintf("duplicate game ID: %q", g.ID))
		}
		gameSet[g.ID] = true

		if n := len(g.Skills); n < MinSkillsPerGame || n > MaxSkillsPerGame {
			errs = append(errs, fmt.Sprintf("game %q trains %d skills, want %d-%d", g.ID, n, MinSkillsPerGame, MaxSkillsPerGame))
		}
		seen := make(map[string]bool, len(g.Skills))
		for _, skillID := range g.Skills {
			if !skillSet[skillID] {
				errs = append(errs, fmt.Sprintf("game %q references nonexistent skill %q", g.ID, skillID))
			}
			if seen[skillID] {
				errs = append(errs, fmt.Sprintf("game %q lists skill %q twice", g.ID, skillID))
			}
			seen[skillID] = true
		}
		if !g.Intensity.Valid() {
			errs = append(errs, fmt.Sprintf("game %q has unknown intensity %q", g.ID, g.Intensity))
		}
		if g.TypicalMinutes <= 0 {
			errs = append(errs, fmt.Sprintf("game %q: TypicalMinutes must be > 0, got %d", g.ID, g.TypicalMinutes))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("skill catalog validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
