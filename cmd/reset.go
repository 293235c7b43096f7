package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errNotConfirmed = errors.New("refusing to reset without --yes")

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset skill ratings and session history",
	Long: `Reset every skill rating to the default, or a single skill with --skill.
With --history, also clear the session history index.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		skill, _ := cmd.Flags().GetString("skill")
		history, _ := cmd.Flags().GetBool("history")
		if !yes {
			return errNotConfirmed
		}

		rt, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		if err := rt.engine.ResetRatings(ctx, skill); err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if skill == "" {
			fmt.Fprintln(w, "Reset all skill ratings.")
		} else {
			fmt.Fprintf(w, "Reset rating of %s.\n", skill)
		}

		if history {
			n := rt.engine.ResetHistory(ctx)
			fmt.Fprintf(w, "Cleared %d history entries.\n", n)
		}
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("yes", false, "Confirm the reset")
	resetCmd.Flags().String("skill", "", "Reset only this skill ID")
	resetCmd.Flags().Bool("history", false, "Also clear session history")
}
