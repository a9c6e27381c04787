package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrcode/nursery-advisor/internal/autostart"
)

func newAutostartCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autostart",
		Short: "Manage starting the watch loop at login",
	}

	setAutostart := func(enable bool) error {
		settings, path, err := opts.loadSettings()
		if err != nil {
			return err
		}
		if enable {
			err = autostart.Enable()
		} else {
			err = autostart.Disable()
		}
		if err != nil {
			return err
		}
		settings.AutoStart = enable
		return settings.Save(path)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "enable",
			Short: "Start the watch loop at login",
			RunE: func(*cobra.Command, []string) error {
				return setAutostart(true)
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Stop starting at login",
			RunE: func(*cobra.Command, []string) error {
				return setAutostart(false)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Report whether autostart is enabled",
			RunE: func(cmd *cobra.Command, _ []string) error {
				enabled, err := autostart.IsEnabled()
				if err != nil {
					return err
				}
				state := "disabled"
				if enabled {
					state = "enabled"
				}
				fmt.Fprintln(cmd.OutOrStdout(), "autostart "+state)
				return nil
			},
		},
	)
	return cmd
}
