// Package cmd holds the lspclient command line.
package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

// NewRootCommand creates the root command. app holds the options of the fx application every subcommand runs.
func NewRootCommand(app fx.Option) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lspclient",
		Short: "Language Server Protocol client session engine",
		Long: `lspclient drives language servers on behalf of an editor.

It launches or connects to the servers declared in its configuration, negotiates their
capabilities and keeps one session per language and workspace root.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewServeCommand(app))
	rootCmd.AddCommand(NewProbeCommand(app))
	return rootCmd
}
