package cmd

import (
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/cogniz/internal/session"
	"github.com/abhisek/cogniz/internal/ui/theme"
)

var simulateErrors = []session.ErrorType{
	session.ErrorOmission,
	session.ErrorCommission,
	session.ErrorTimeout,
	session.ErrorWrongTarget,
}

var simulateCmd = &cobra.Command{
	Use:   "simulate <game-id>",
	Short: "Play a synthetic session of a game (developer tool)",
	Long: `Record a session of randomly generated trials against the real engine.

Ratings and history are updated exactly as if a game client had played.
Useful for exercising plans and dashboards without a game client.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().Int("trials", 20, "Number of trials")
	simulateCmd.Flags().Float64("accuracy", 0.75, "Probability that a trial is correct")
	simulateCmd.Flags().Float64("rt", 550, "Mean reaction time in milliseconds")
	simulateCmd.Flags().Uint64("seed", 0, "Random seed (0 picks one)")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	gameID := args[0]
	trials, _ := cmd.Flags().GetInt("trials")
	accuracy, _ := cmd.Flags().GetFloat64("accuracy")
	meanRT, _ := cmd.Flags().GetFloat64("rt")
	seed, _ := cmd.Flags().GetUint64("seed")

	if trials < 0 {
		return fmt.Errorf("trials must be >= 0, got %d", trials)
	}
	if accuracy < 0 || accuracy > 1 {
		return fmt.Errorf("accuracy must be in [0, 1], got %v", accuracy)
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	rt, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	h, err := rt.engine.StartSessionFor(ctx, "simulate", gameID)
	if err != nil {
		return err
	}
	rt.log.Debug("simulating session", "session_id", h.ID(), "game_id", gameID, "seed", seed)

	for i := range trials {
		in := simulatedTrial(rng, i, accuracy, meanRT)
		if _, err := rt.engine.RecordTrial(ctx, h, in); err != nil {
			return fmt.Errorf("trial %d: %w", i+1, err)
		}
	}

	res, err := rt.engine.EndSession(ctx, h)
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(cmd, res)
	}
	renderResult(cmd.OutOrStdout(), res)
	return nil
}

// simulatedTrial draws one trial. Difficulty climbs one level every four
// trials.
func simulatedTrial(rng *rand.Rand, i int, accuracy, meanRT float64) session.TrialInput {
	in := session.TrialInput{
		Correct:    rng.Float64() < accuracy,
		Difficulty: map[string]float64{"level": float64(min(10, 1+i/4))},
	}
	rtMs := max(100, meanRT+rng.NormFloat64()*meanRT/5)
	in.ReactionTimeMs = &rtMs
	if in.Correct {
		in.Score = 10
	} else {
		in.ErrorType = simulateErrors[rng.IntN(len(simulateErrors))]
	}
	return in
}

func renderResult(w io.Writer, res *session.Result) {
	s := res.Summary
	lipgloss.Fprintln(w, theme.Heading("Session "+shortID(res.Session.ID)))
	lipgloss.Fprintf(w, "Trials        %d (%d correct)\n", s.TrialCount, s.CorrectCount)
	lipgloss.Fprintf(w, "Accuracy      %s %.0f%%\n", theme.Bar(s.Accuracy, 0, 1, barWidth), s.Accuracy*100)
	lipgloss.Fprintf(w, "Avg reaction  %.0f ms (variance %.0f)\n", s.AvgReactionTimeMs, s.RTVariance)
	lipgloss.Fprintf(w, "Fatigue drop  %+.2f\n", s.FatigueDropoff)
	lipgloss.Fprintf(w, "Score         %.0f\n", s.TotalScore)

	if len(s.ErrorBreakdown) > 0 {
		kinds := make([]string, 0, len(s.ErrorBreakdown))
		for k := range s.ErrorBreakdown {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		lipgloss.Fprintln(w)
		lipgloss.Fprintln(w, theme.Subtitle.Render("Errors"))
		for _, k := range kinds {
			lipgloss.Fprintf(w, "  %-14s %d\n", k, s.ErrorBreakdown[k])
		}
	}

	if len(res.Session.SkillUpdates) > 0 {
		last := make(map[string]int)
		first := make(map[string]int)
		var order []string
		for _, u := range res.Session.SkillUpdates {
			if _, ok := first[u.SkillID]; !ok {
				first[u.SkillID] = u.OldRating
				order = append(order, u.SkillID)
			}
			last[u.SkillID] = u.NewRating
		}
		lipgloss.Fprintln(w)
		lipgloss.Fprintln(w, theme.Subtitle.Render("Rating changes"))
		for _, id := range order {
			delta := last[id] - first[id]
			style := theme.Neutral
			switch {
			case delta > 0:
				style = theme.Strong
			case delta < 0:
				style = theme.Weak
			}
			lipgloss.Fprintf(w, "  %-24s %d → %d %s\n", id, first[id], last[id], style.Render(fmt.Sprintf("(%+d)", delta)))
		}
	}
}
