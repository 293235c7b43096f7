package cmd

import (
	"fmt"
	"io"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/cogniz/internal/rating"
	"github.com/abhisek/cogniz/internal/ui/theme"
)

const barWidth = 20

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the cognitive profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		p, err := rt.engine.CognitiveProfile()
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(cmd, p)
		}
		renderProfile(cmd.OutOrStdout(), p)
		return nil
	},
}

func renderProfile(w io.Writer, p rating.Profile) {
	lipgloss.Fprintln(w, theme.Heading("Cognitive Profile"))
	lipgloss.Fprintln(w, theme.Hint.Render(fmt.Sprintf("overall average %.0f", p.OverallAverage)))

	for _, d := range p.Domains {
		lipgloss.Fprintln(w)
		lipgloss.Fprintln(w, theme.Subtitle.Render(fmt.Sprintf("%s  %.0f", d.Name, d.Average)))
		for _, s := range d.Skills {
			lipgloss.Fprintf(w, "  %-24s %s %s %s\n",
				s.Name,
				theme.Bar(float64(s.Rating), rating.MinRating, rating.MaxRating, barWidth),
				theme.RatingStyle(s.Rating).Render(fmt.Sprintf("%4d", s.Rating)),
				theme.Hint.Render(fmt.Sprintf("(%d trials)", s.Confidence)))
		}
	}

	lipgloss.Fprintln(w)
	lipgloss.Fprintln(w, theme.Card.Render(
		theme.Strong.Render("Strongest: ")+skillNames(p.Top)+"\n"+
			theme.Weak.Render("Weakest:   ")+skillNames(p.Bottom)))
}

func skillNames(views []rating.SkillView) string {
	out := ""
	for i, v := range views {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s (%d)", v.Name, v.Rating)
	}
	return out
}
