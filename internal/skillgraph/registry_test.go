package skillgraph

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSkill_Exists(t *testing.T) {
	r := Default()
	s, ok := r.GetSkill("visual-working-memory")
	if !ok {
		t.Fatal("expected skill to exist")
	}
	if s.Name != "Visual Working Memory" {
		t.Errorf("got name %q, want %q", s.Name, "Visual Working Memory")
	}
	if s.Domain != DomainMemory {
		t.Errorf("got domain %q, want %q", s.Domain, DomainMemory)
	}
}

func TestGetSkill_UnknownLogsWarning(t *testing.T) {
	var buf bytes.Buffer
	r := Default(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	_, ok := r.GetSkill("telekinesis")
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "unknown skill")
	assert.Contains(t, buf.String(), "telekinesis")
}

func TestAllSkills_CatalogOrder(t *testing.T) {
	r := Default()
	all := r.AllSkills()
	require.Len(t, all, 12)
	assert.Equal(t, "visual-working-memory", all[0].ID)
	for i, s := range all {
		assert.Equal(t, i, r.SkillOrder(s.ID))
	}
	assert.Equal(t, len(all), r.SkillOrder("nope"))
}

func TestSkillsByDomain(t *testing.T) {
	r := Default()
	tests := []struct {
		domain Domain
		want   int
	}{
		{DomainMemory, 3},
		{DomainAttention, 3},
		{DomainSpeed, 2},
		{DomainExecutive, 2},
		{DomainVisuospatial, 2},
	}
	for _, tt := range tests {
		skills := r.SkillsByDomain(tt.domain)
		if len(skills) != tt.want {
			t.Errorf("SkillsByDomain(%q): got %d skills, want %d", tt.domain, len(skills), tt.want)
		}
		for _, s := range skills {
			if s.Domain != tt.domain {
				t.Errorf("skill %q in domain %q, want %q", s.ID, s.Domain, tt.domain)
			}
		}
	}

	assert.Empty(t, r.SkillsByDomain("luck"))
	assert.NotNil(t, r.SkillsByDomain("luck"))
	assert.Equal(t, AllDomains(), r.Domains())
}

func TestModuleSkills(t *testing.T) {
	r := Default()

	skills := r.ModuleSkills("peripheral-tracker")
	require.Len(t, skills, 3)
	assert.Equal(t, "peripheral-awareness", skills[0].ID)
	assert.Equal(t, "sustained-attention", skills[1].ID)
	assert.Equal(t, "reaction-speed", skills[2].ID)

	unknown := r.ModuleSkills("chess")
	assert.NotNil(t, unknown)
	assert.Empty(t, unknown)
}

func TestGamesForSkill(t *testing.T) {
	r := Default()
	assert.Equal(t, []string{"symbol-recall", "grid-memory"}, r.GamesForSkill("visual-working-memory"))
	assert.Equal(t, []string{"color-clash", "rule-switch"}, r.GamesForSkill("inhibitory-control"))
	assert.Empty(t, r.GamesForSkill("telekinesis"))
}

func TestRegistry_IsolatedFromCallerMutation(t *testing.T) {
	cat := DefaultCatalog()
	r, err := New(cat)
	require.NoError(t, err)

	cat.Games[0].Skills[0] = "mutated"
	cat.Skills[0].Name = "mutated"

	g, ok := r.Game("symbol-recall")
	require.True(t, ok)
	assert.Equal(t, "visual-working-memory", g.Skills[0])
	assert.Equal(t, "Visual Working Memory", r.SkillName("visual-working-memory"))

	// Returned slices are copies as well.
	g.Skills[0] = "mutated"
	g2, _ := r.Game("symbol-recall")
	assert.Equal(t, "visual-working-memory", g2.Skills[0])
}

func TestNew_RejectsInvalidCatalog(t *testing.T) {
	cat := DefaultCatalog()
	cat.Games[0].Skills = []string{"visual-working-memory", "nope"}
	_, err := New(cat)
	assert.Error(t, err)
}

const testCatalogYAML = `
version: v1.2.0
skills:
  - id: focus
    name: Focus
    domain: attention
  - id: recall
    name: Recall
    domain: memory
    description: Remember things
games:
  - id: lantern
    name: Lantern
    skills: [focus, recall]
    intensity: low
    typical_minutes: 4
`

func TestLoad_FromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalogYAML), 0o644))

	r, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "v1.2.0", r.Version())
	g, ok := r.Game("lantern")
	require.True(t, ok)
	assert.Equal(t, []string{"focus", "recall"}, g.Skills)
	assert.Equal(t, IntensityLow, g.Intensity)
	assert.Equal(t, 4, g.TypicalMinutes)

	s, ok := r.GetSkill("recall")
	require.True(t, ok)
	assert.Equal(t, "Remember things", s.Description)
}

func TestLoad_DefaultWhenPathEmpty(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultCatalogVersion, r.Version())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
