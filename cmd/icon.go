package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newIconCmd(opts *rootOptions) *cobra.Command {
	var (
		output string
		ico    bool
	)

	cmd := &cobra.Command{
		Use:   "icon",
		Short: "Render the current status badge",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, settings, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.NextAction(cmd.Context())
			if err != nil {
				return err
			}
			badge := a.Badge()
			if _, err := badge.Update(result); err != nil {
				return err
			}
			data, err := badge.Current(ico)
			if err != nil {
				return err
			}

			if output == "" {
				if output, err = settings.ResolveIconPath(); err != nil {
					return err
				}
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), badge.Tooltip())
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default from settings)")
	cmd.Flags().BoolVar(&ico, "ico", false, "write ICO instead of PNG")
	return cmd
}
