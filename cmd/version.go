package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrcode/nursery-advisor/internal/app"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "nursery %s\n", app.Version)
			return err
		},
	}
}
