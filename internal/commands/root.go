package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alvazi/microgl/internal/buildinfo"
)

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	repo      string
	logLevel  string
	logFormat string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:     "microgl",
		Short:   "Post bank CSV exports into a double-entry general ledger",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&g.repo, "repo", ".", "ledger project directory")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (overrides microgl.yaml and MICROGL_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "log format: console or json")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newImportCommand(g))
	rootCmd.AddCommand(newReportCommand(g))
	rootCmd.AddCommand(newAccountsCommand(g))
	rootCmd.AddCommand(newRulesCommand(g))
	rootCmd.AddCommand(newValidateCommand(g))
	rootCmd.AddCommand(newLogCommand(g))

	return rootCmd
}
