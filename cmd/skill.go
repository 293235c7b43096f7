package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/cogniz/internal/rating"
	"github.com/abhisek/cogniz/internal/skillgraph"
	"github.com/abhisek/cogniz/internal/ui/theme"
)

var skillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Browse the skill catalog",
}

var skillListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all skills with their ratings (optionally filtered by domain)",
	RunE: func(cmd *cobra.Command, args []string) error {
		domain, _ := cmd.Flags().GetString("domain")

		rt, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		var skills []rating.SkillView
		for _, s := range rt.engine.Skills() {
			if domain == "" || string(s.Domain) == domain {
				skills = append(skills, s)
			}
		}
		if len(skills) == 0 {
			return fmt.Errorf("no skills found for domain %q", domain)
		}
		if jsonOutput(cmd) {
			return printJSON(cmd, skills)
		}

		t := theme.Table("ID", "Name", "Domain", "Rating", "Trials")
		for _, s := range skills {
			t.Row(s.ID, s.Name, skillgraph.DomainDisplayName(s.Domain),
				strconv.Itoa(s.Rating), strconv.Itoa(s.Confidence))
		}
		w := cmd.OutOrStdout()
		lipgloss.Fprintln(w, t.Render())
		lipgloss.Fprintf(w, "\n%d skills\n", len(skills))
		return nil
	},
}

var gameCmd = &cobra.Command{
	Use:   "game",
	Short: "Browse the game catalog",
}

var gameListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all games and the skills they train",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		reg := rt.engine.Registry()
		games := reg.AllGames()
		if jsonOutput(cmd) {
			return printJSON(cmd, games)
		}

		t := theme.Table("ID", "Name", "Intensity", "Min", "Skills")
		for _, g := range games {
			names := make([]string, 0, len(g.Skills))
			for _, id := range g.Skills {
				names = append(names, reg.SkillName(id))
			}
			t.Row(g.ID, g.Name, string(g.Intensity), strconv.Itoa(g.TypicalMinutes), strings.Join(names, ", "))
		}
		w := cmd.OutOrStdout()
		lipgloss.Fprintln(w, t.Render())
		lipgloss.Fprintf(w, "\n%d games, catalog %s\n", len(games), reg.Version())
		return nil
	},
}

func init() {
	domains := make([]string, 0, len(skillgraph.AllDomains()))
	for _, d := range skillgraph.AllDomains() {
		domains = append(domains, string(d))
	}
	skillListCmd.Flags().String("domain", "", "Filter by domain ("+strings.Join(domains, ", ")+")")

	skillCmd.AddCommand(skillListCmd)
	gameCmd.AddCommand(gameListCmd)
}
