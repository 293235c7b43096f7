package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/cogniz/internal/composer"
	"github.com/abhisek/cogniz/internal/ui/theme"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compose a training plan for the given number of minutes",
	RunE: func(cmd *cobra.Command, args []string) error {
		minutes, _ := cmd.Flags().GetInt("minutes")

		rt, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		plan, err := rt.engine.ComposeSession(cmd.Context(), minutes)
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(cmd, plan)
		}
		renderPlan(cmd.OutOrStdout(), plan)
		return nil
	},
}

func init() {
	planCmd.Flags().Int("minutes", 20, "Minutes available for training")
}

func renderPlan(w io.Writer, p *composer.Plan) {
	lipgloss.Fprintln(w, theme.Heading(fmt.Sprintf("Training Plan (%d min)", p.RequestedMinutes)))
	if len(p.Items) == 0 {
		lipgloss.Fprintln(w, theme.Hint.Render("No games fit the request."))
		return
	}

	t := theme.Table("#", "Game", "Min", "Type", "Why")
	for i, it := range p.Items {
		t.Row(strconv.Itoa(i+1), it.GameName, strconv.Itoa(it.AllocatedMinutes), string(it.Category), it.Rationale)
	}
	lipgloss.Fprintln(w, t.Render())

	if p.Fatigued {
		lipgloss.Fprintln(w, theme.Warning.Render(
			fmt.Sprintf("%d sessions already today, favouring lighter games.", p.SessionsToday)))
	}
	if len(p.Notes) > 0 {
		lipgloss.Fprintln(w, theme.Hint.Render(strings.Join(p.Notes, "\n")))
	}
}
