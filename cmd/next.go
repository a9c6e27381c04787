package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrcode/nursery-advisor/internal/models"
)

func newNextCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show what to do next",
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
			if asJSON {
				return printJSON(cmd.OutOrStdout(), result)
			}
			printResult(cmd.OutOrStdout(), result, settings.Location())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

func printResult(w io.Writer, r *models.NextActionResult, loc *time.Location) {
	fmt.Fprintf(w, "%s (%s confidence)\n", r.Intent.Label(), r.Confidence)

	for _, reason := range r.Reasons {
		fmt.Fprintf(w, "  - %s\n", reason)
	}

	clock := func(t *time.Time) string { return t.In(loc).Format("15:04") }
	if t := r.Timing.NextFeedAt; t != nil {
		fmt.Fprintf(w, "Next feed:   %s", clock(t))
		if r.Timing.ExpectedFeedVolume > 0 {
			fmt.Fprintf(w, " (~%.0f ml)", r.Timing.ExpectedFeedVolume)
		}
		fmt.Fprintln(w)
	}
	if t := r.Timing.NextNapWindowAt; t != nil {
		fmt.Fprintf(w, "Nap window:  %s\n", clock(t))
	}
	if t := r.Timing.NextWakeAt; t != nil {
		fmt.Fprintf(w, "Wake around: %s\n", clock(t))
	}

	p := r.DayProgress
	fmt.Fprintf(w, "Today:       %d feeds (%d-%d), %d naps (%d-%d), %d diapers\n",
		p.Feeds, p.ExpectedFeeds.Min, p.ExpectedFeeds.Max,
		p.Naps, p.ExpectedNaps.Min, p.ExpectedNaps.Max,
		p.Diapers)
	fmt.Fprintf(w, "Check again in %d minutes\n", r.ReevaluateInMinutes)
}
