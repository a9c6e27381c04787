// Package cmd implements the nursery command line
package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// Execute runs the root command
func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "nursery",
		Short: "Next-action advice for feeds and naps",
		Long: `nursery reads the caregiver's activity log (feeds, naps, diapers) and
answers one question: what to do next. It learns the child's own rhythm
from the last week, blends it with age-based norms, and can simulate the
rest of the day as a schedule.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "settings file (default: user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		newVersionCmd(),
		newNextCmd(opts),
		newScheduleCmd(opts),
		newLogCmd(opts),
		newImportCmd(opts),
		newExportCmd(opts),
		newServeCmd(opts),
		newWatchCmd(opts),
		newIconCmd(opts),
		newAutostartCmd(opts),
		newInitCmd(opts),
		newAlertTestCmd(opts),
		newDiagnoseCmd(opts),
	)

	return rootCmd
}
