package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrcode/nursery-advisor/internal/app"
	"github.com/mrcode/nursery-advisor/internal/models"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactively create or update the settings file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := opts.settingsPath()
			if err != nil {
				return err
			}

			current := models.DefaultSettings()
			if err := current.Load(path); err != nil {
				return err
			}
			if err := current.Validate(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Ignoring invalid settings in %s: %v\n", path, err)
				current = models.DefaultSettings()
			}

			a, err := app.New(current, app.Options{Logger: opts.logger(cmd.ErrOrStderr())})
			if err != nil {
				return err
			}
			defer a.Close()

			settings, err := models.RunWizard(current)
			if err != nil {
				return err
			}

			if settings.Source == models.SourceRemote {
				err := a.TestConnection(cmd.Context(), settings.RemoteURL, settings.APISecret, settings.APIToken, settings.UseToken)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not reach %s: %v\n", settings.RemoteURL, err)
				}
			}

			if err := a.SaveSettings(settings, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Settings written to %s\n", path)
			return nil
		},
	}
}

func newAlertTestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "alert-test",
		Short: "Send a test desktop notification",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.SendTestNotification(); err != nil {
				return fmt.Errorf("sending notification: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Notification sent")
			return nil
		},
	}
}
