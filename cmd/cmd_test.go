package cmd

import (
	"bytes"
	"encoding/json"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/cogniz/internal/rating"
	"github.com/abhisek/cogniz/internal/session"
	"github.com/abhisek/cogniz/internal/skillgraph"
)

func TestDisplayVersion(t *testing.T) {
	orig := version
	t.Cleanup(func() { version = orig })

	tests := []struct{ in, want string }{
		{"(devel)", "(devel)"},
		{"1.2.3", "v1.2.3"},
		{"v1.2", "v1.2.0"},
		{"v2.0.0-rc.1", "v2.0.0-rc.1"},
	}
	for _, tt := range tests {
		version = tt.in
		assert.Equal(t, tt.want, displayVersion(), tt.in)
	}
}

func TestSimulatedTrialIsValid(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	for i := range 200 {
		in := simulatedTrial(rng, i, 0.5, 500)
		require.NoError(t, in.Validate(), "trial %d", i)
		assert.GreaterOrEqual(t, *in.ReactionTimeMs, 100.0)
		assert.LessOrEqual(t, in.Difficulty["level"], 10.0)
	}
}

func TestRenderProfile_SummaryCard(t *testing.T) {
	p := rating.Profile{
		OverallAverage: 1500,
		Top:            []rating.SkillView{{Skill: skillgraph.Skill{Name: "Reaction Speed"}, Rating: 1620}},
		Bottom:         []rating.SkillView{{Skill: skillgraph.Skill{Name: "Task Switching"}, Rating: 1380}},
	}

	var out bytes.Buffer
	renderProfile(&out, p)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	card := lines[len(lines)-4:]
	assert.True(t, strings.HasPrefix(card[0], "╭"), card[0])
	assert.Contains(t, card[1], "Strongest: Reaction Speed (1620)")
	assert.Contains(t, card[2], "Weakest:   Task Switching (1380)")
	assert.True(t, strings.HasPrefix(card[3], "╰"), card[3])
}

func runCLI(t *testing.T, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())
	return out.Bytes()
}

func TestCommands_SimulateThenReport(t *testing.T) {
	t.Setenv("COGNIZ_CONFIG", "")
	t.Setenv("COGNIZ_LOG_LEVEL", "error")
	db := filepath.Join(t.TempDir(), "cogniz.db")

	var res session.Result
	raw := runCLI(t, "--db", db, "--json", "simulate", "quick-tap", "--trials", "12", "--seed", "42")
	require.NoError(t, json.Unmarshal(raw, &res))
	assert.Equal(t, 12, res.Summary.TrialCount)
	assert.Len(t, res.Session.SkillUpdates, 24)

	var history []session.HistoryEntry
	raw = runCLI(t, "--db", db, "--json", "history")
	require.NoError(t, json.Unmarshal(raw, &history))
	require.Len(t, history, 1)
	assert.Equal(t, res.Session.ID, history[0].SessionID)

	var skills []rating.SkillView
	raw = runCLI(t, "--db", db, "--json", "skill", "list", "--domain", "processing-speed")
	require.NoError(t, json.Unmarshal(raw, &skills))
	require.Len(t, skills, 2)
	for _, s := range skills {
		if s.ID == "reaction-speed" {
			assert.Equal(t, 12, s.Confidence)
		}
	}
}
