package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrcode/nursery-advisor/internal/models"
	"github.com/mrcode/nursery-advisor/internal/tray"
)

func newScheduleCmd(opts *rootOptions) *cobra.Command {
	var (
		asJSON  bool
		pngPath string
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Simulate the rest of today",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, settings, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			sched, err := a.Schedule(cmd.Context())
			if err != nil {
				return err
			}

			if pngPath != "" {
				data, err := tray.RenderTimeline(settings, *sched, settings.Location())
				if err != nil {
					return err
				}
				if err := os.WriteFile(pngPath, data, 0644); err != nil {
					return fmt.Errorf("writing %s: %w", pngPath, err)
				}
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), sched)
			}
			printSchedule(cmd.OutOrStdout(), sched, settings.Location())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the schedule as JSON")
	cmd.Flags().StringVar(&pngPath, "png", "", "also render the day as a PNG timeline to this file")
	return cmd
}

func printSchedule(w io.Writer, s *models.AdaptiveSchedule, loc *time.Location) {
	fmt.Fprintf(w, "Schedule (%s confidence, %s)\n", s.Confidence, s.Basis)

	for _, e := range s.Events {
		marker := " "
		if e.Logged {
			marker = "*"
		}
		line := fmt.Sprintf("%s %s  %-5s", marker, e.Time.In(loc).Format("15:04"), e.Type)
		if e.Duration != nil {
			line += fmt.Sprintf("  %3d min", *e.Duration)
		}
		if e.Reasoning != "" {
			line += "  " + e.Reasoning
		}
		fmt.Fprintln(w, line)
	}

	if s.Truncated {
		fmt.Fprintln(w, "(simulation stopped early)")
	}
}
