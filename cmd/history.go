package cmd

import (
	"strconv"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/cogniz/internal/ui/theme"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List finished sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		rt, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		entries := rt.engine.History(cmd.Context())
		if limit > 0 && len(entries) > limit {
			entries = entries[:limit]
		}
		if jsonOutput(cmd) {
			return printJSON(cmd, entries)
		}

		w := cmd.OutOrStdout()
		lipgloss.Fprintln(w, theme.Heading("Session History"))
		if len(entries) == 0 {
			lipgloss.Fprintln(w, theme.Hint.Render("No sessions yet."))
			return nil
		}
		t := theme.Table("Session", "Game", "Ended", "Duration", "Trials")
		for _, e := range entries {
			t.Row(shortID(e.SessionID), e.GameID,
				e.Timestamp.Local().Format("2006-01-02 15:04"),
				(time.Duration(e.DurationMs) * time.Millisecond).Round(time.Second).String(),
				strconv.Itoa(e.TrialCount))
		}
		lipgloss.Fprintln(w, t.Render())
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum entries to show (0 for all)")
}
