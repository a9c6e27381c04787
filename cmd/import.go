package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/mrcode/nursery-advisor/internal/activitylog"
	"github.com/mrcode/nursery-advisor/internal/models"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var (
		remote bool
		days   int
	)

	cmd := &cobra.Command{
		Use:   "import [FILE]",
		Short: "Import activities into the local log",
		Long: `Import activities into the local database, either from a JSON file (an
array of activity records, "-" for stdin) or, with --remote, from the
configured remote activity log. Records whose id already exists are skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, _, err := opts.loadSettings()
			if err != nil {
				return err
			}

			var records []models.ActivityRecord
			switch {
			case remote:
				if settings.RemoteURL == "" {
					return fmt.Errorf("remote_url is not configured")
				}
				client := activitylog.NewClient(settings.RemoteURL, settings.APISecret, settings.APIToken, settings.UseToken)
				to := time.Now()
				records, err = client.Activities(cmd.Context(), to.AddDate(0, 0, -days), to)
				if err != nil {
					return fmt.Errorf("fetching remote activities: %w", err)
				}
			case len(args) == 1:
				records, err = readRecords(cmd.InOrStdin(), args[0])
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("name a FILE or pass --remote")
			}

			path, err := settings.ResolveDatabasePath()
			if err != nil {
				return err
			}
			db, err := activitylog.Open(path)
			if err != nil {
				return err
			}
			defer db.Close()

			bar := progressbar.NewOptions(len(records),
				progressbar.OptionSetDescription("Importing"),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
			store := activitylog.NewStore(db)
			added, err := store.Import(cmd.Context(), records, func() { _ = bar.Add(1) })
			_ = bar.Finish()
			if err != nil {
				return err
			}
			total, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d activities (%d already present)\n", added, len(records), len(records)-added)
			fmt.Fprintf(cmd.OutOrStdout(), "The log now holds %d activities\n", total)
			return nil
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "pull from the configured remote log")
	cmd.Flags().IntVar(&days, "days", 14, "days of remote history to pull")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		days   int
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export activities as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			to := time.Now()
			records, err := a.Activities(cmd.Context(), to.AddDate(0, 0, -days), to)
			if err != nil {
				return err
			}
			if records == nil {
				records = []models.ActivityRecord{}
			}

			if output == "" || output == "-" {
				return printJSON(cmd.OutOrStdout(), records)
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := printJSON(f, records); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}

	cmd.Flags().IntVar(&days, "days", 14, "days of history to export")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func readRecords(stdin io.Reader, name string) ([]models.ActivityRecord, error) {
	var r io.Reader = stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var records []models.ActivityRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return records, nil
}
