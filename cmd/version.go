package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/abhisek/cogniz/internal/skillgraph"
)

// version is set via -ldflags at build time.
var version = "(devel)"

// displayVersion returns the canonical semver form of version, or the raw
// value for development builds.
func displayVersion() string {
	v := version
	if v != "" && v[0] != 'v' {
		v = "v" + v
	}
	if semver.IsValid(v) {
		return semver.Canonical(v)
	}
	return version
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "cogniz", displayVersion())
		fmt.Fprintln(cmd.OutOrStdout(), "built-in catalog", skillgraph.DefaultCatalogVersion)
	},
}
