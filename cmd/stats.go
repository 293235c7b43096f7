package cmd

import (
	"fmt"
	"io"
	"strconv"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/cogniz/internal/session"
	"github.com/abhisek/cogniz/internal/ui/theme"
)

var statsCmd = &cobra.Command{
	Use:   "stats <game-id>",
	Short: "Show aggregated statistics for a game",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		stats, err := rt.engine.ModuleStats(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(cmd, stats)
		}
		name := stats.GameID
		if g, ok := rt.engine.Registry().Game(stats.GameID); ok {
			name = g.Name
		}
		renderStats(cmd.OutOrStdout(), name, stats)
		return nil
	},
}

func renderStats(w io.Writer, name string, s *session.ModuleStats) {
	lipgloss.Fprintln(w, theme.Heading(name))
	if s.TotalSessions == 0 {
		lipgloss.Fprintln(w, theme.Hint.Render("Not played yet."))
		return
	}

	lipgloss.Fprintf(w, "Sessions      %d\n", s.TotalSessions)
	lipgloss.Fprintf(w, "Trials        %d\n", s.TotalTrials)
	lipgloss.Fprintf(w, "Accuracy      %s %.0f%%\n", theme.Bar(s.Accuracy, 0, 1, barWidth), s.Accuracy*100)
	lipgloss.Fprintf(w, "Avg reaction  %.0f ms\n", s.AvgReactionTimeMs)
	if s.LastPlayed != nil {
		lipgloss.Fprintf(w, "Last played   %s\n", s.LastPlayed.Local().Format("2006-01-02 15:04"))
	}

	lipgloss.Fprintln(w)
	t := theme.Table("Session", "Ended", "Trials", "Accuracy")
	for _, r := range s.RecentAccuracies {
		t.Row(shortID(r.SessionID), r.Timestamp.Local().Format("Jan 02 15:04"),
			strconv.Itoa(r.TrialCount), fmt.Sprintf("%.0f%%", r.Accuracy*100))
	}
	lipgloss.Fprintln(w, t.Render())
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
