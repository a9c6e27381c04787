package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mrcode/nursery-advisor/internal/app"
	"github.com/mrcode/nursery-advisor/internal/models"
)

// settingsPath returns the --config value or the default location
func (o *rootOptions) settingsPath() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	return models.GetConfigPath()
}

// loadSettings reads and validates the settings file
func (o *rootOptions) loadSettings() (*models.Settings, string, error) {
	path, err := o.settingsPath()
	if err != nil {
		return nil, "", fmt.Errorf("locating settings: %w", err)
	}

	settings := models.DefaultSettings()
	if err := settings.Load(path); err != nil {
		return nil, "", err
	}
	if err := settings.Validate(); err != nil {
		return nil, "", fmt.Errorf("settings %s: %w", path, err)
	}
	return settings, path, nil
}

func (o *rootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openApp loads settings and opens the activity source. The caller closes
// the returned App.
func (o *rootOptions) openApp(cmd *cobra.Command) (*app.App, *models.Settings, error) {
	settings, _, err := o.loadSettings()
	if err != nil {
		return nil, nil, err
	}

	a, err := app.New(settings, app.Options{Logger: o.logger(cmd.ErrOrStderr())})
	if err != nil {
		return nil, nil, err
	}
	return a, settings, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
