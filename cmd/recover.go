package cmd

import (
	"strconv"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/cogniz/internal/session"
	"github.com/abhisek/cogniz/internal/ui/theme"
)

var recoverCmd = &cobra.Command{
	Use:   "recover [session-id]",
	Short: "List or recover sessions interrupted by a crash",
	Long: `Without arguments, list sessions that have a crash-recovery snapshot.
With a session ID (or --all), close those sessions and add them to history.
Recovered trials keep the ratings they already produced.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		rt, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		w := cmd.OutOrStdout()

		if len(args) == 1 {
			res, err := rt.engine.RecoverSession(ctx, args[0])
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, res)
			}
			renderResult(w, res)
			return nil
		}

		pending, err := rt.engine.PendingRecoveries(ctx)
		if err != nil {
			return err
		}

		if all {
			var results []*session.Result
			for _, snap := range pending {
				res, err := rt.engine.RecoverSession(ctx, snap.Session.ID)
				if err != nil {
					return err
				}
				results = append(results, res)
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, results)
			}
			lipgloss.Fprintf(w, "Recovered %d sessions.\n", len(results))
			return nil
		}

		if jsonOutput(cmd) {
			return printJSON(cmd, pending)
		}
		lipgloss.Fprintln(w, theme.Heading("Interrupted Sessions"))
		if len(pending) == 0 {
			lipgloss.Fprintln(w, theme.Hint.Render("Nothing to recover."))
			return nil
		}
		t := theme.Table("Session", "Game", "Client", "Started", "Trials")
		for _, snap := range pending {
			t.Row(snap.Session.ID, snap.Session.GameID, snap.ClientKey,
				snap.Session.StartTime.Local().Format("2006-01-02 15:04"),
				strconv.Itoa(len(snap.Session.Trials)))
		}
		lipgloss.Fprintln(w, t.Render())
		return nil
	},
}

func init() {
	recoverCmd.Flags().Bool("all", false, "Recover every interrupted session")
}
