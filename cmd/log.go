package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrcode/nursery-advisor/internal/models"
)

func newLogCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Record or inspect care activities",
	}

	cmd.AddCommand(
		newLogFeedCmd(opts),
		newLogNapCmd(opts),
		newLogDiaperCmd(opts),
		newLogNoteCmd(opts),
		newLogListCmd(opts),
		newLogDeleteCmd(opts),
	)
	return cmd
}

// parseClock validates an "HH:MM" wall-clock value; empty is allowed
func parseClock(name, v string) error {
	if v == "" {
		return nil
	}
	if _, err := time.Parse("15:04", v); err != nil {
		return fmt.Errorf("invalid --%s %q: want HH:MM", name, v)
	}
	return nil
}

// addRecord stamps the record with the configured zone and stores it
func addRecord(cmd *cobra.Command, opts *rootOptions, rec models.ActivityRecord) error {
	a, settings, err := opts.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	rec.LoggedAt = time.Now().UTC()
	rec.Timezone = settings.Timezone

	stored, err := a.AddActivity(cmd.Context(), rec)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged %s %s\n", stored.Kind, stored.ID)
	return nil
}

func newLogFeedCmd(opts *rootOptions) *cobra.Command {
	var (
		feedType string
		amount   float64
		unit     string
		at       string
		start    string
		end      string
	)

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Log a feed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for name, v := range map[string]string{"at": at, "start": start, "end": end} {
				if err := parseClock(name, v); err != nil {
					return err
				}
			}
			switch feedType {
			case models.FeedBottle, models.FeedNursing, "solids":
			default:
				return fmt.Errorf("invalid --type %q: want bottle, nursing or solids", feedType)
			}

			details := models.ActivityDetails{
				FeedType:  feedType,
				Time:      at,
				StartTime: start,
				EndTime:   end,
			}
			if cmd.Flags().Changed("amount") {
				details.Quantity = models.Float(amount)
				details.Unit = unit
			}
			return addRecord(cmd, opts, models.ActivityRecord{Kind: models.KindFeed, Details: details})
		},
	}

	cmd.Flags().StringVar(&feedType, "type", models.FeedBottle, "bottle, nursing or solids")
	cmd.Flags().Float64Var(&amount, "amount", 0, "volume fed")
	cmd.Flags().StringVar(&unit, "unit", "ml", "ml or oz")
	cmd.Flags().StringVar(&at, "at", "", "wall-clock time of the feed (HH:MM, default now)")
	cmd.Flags().StringVar(&start, "start", "", "nursing session start (HH:MM)")
	cmd.Flags().StringVar(&end, "end", "", "nursing session end (HH:MM)")
	return cmd
}

func newLogNapCmd(opts *rootOptions) *cobra.Command {
	var (
		start string
		end   string
		night bool
	)

	cmd := &cobra.Command{
		Use:   "nap",
		Short: "Log a nap or night sleep; omit --end while still asleep",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if start == "" {
				return fmt.Errorf("--start is required")
			}
			if err := parseClock("start", start); err != nil {
				return err
			}
			if err := parseClock("end", end); err != nil {
				return err
			}
			return addRecord(cmd, opts, models.ActivityRecord{
				Kind: models.KindNap,
				Details: models.ActivityDetails{
					StartTime:  start,
					EndTime:    end,
					NightSleep: night,
				},
			})
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "sleep start (HH:MM)")
	cmd.Flags().StringVar(&end, "end", "", "sleep end (HH:MM)")
	cmd.Flags().BoolVar(&night, "night", false, "mark as night sleep")
	return cmd
}

func newLogDiaperCmd(opts *rootOptions) *cobra.Command {
	var diaperType string

	cmd := &cobra.Command{
		Use:   "diaper",
		Short: "Log a diaper change",
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch diaperType {
			case "wet", "dirty", "both":
			default:
				return fmt.Errorf("invalid --type %q: want wet, dirty or both", diaperType)
			}
			return addRecord(cmd, opts, models.ActivityRecord{
				Kind:    models.KindDiaper,
				Details: models.ActivityDetails{DiaperType: diaperType},
			})
		},
	}

	cmd.Flags().StringVar(&diaperType, "type", "wet", "wet, dirty or both")
	return cmd
}

func newLogNoteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "note TEXT...",
		Short: "Log a free-text note",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return addRecord(cmd, opts, models.ActivityRecord{
				Kind:    models.KindNote,
				Details: models.ActivityDetails{Note: strings.Join(args, " ")},
			})
		},
	}
}

func newLogListCmd(opts *rootOptions) *cobra.Command {
	var (
		hours  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent activities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if hours < 1 {
				return fmt.Errorf("--hours must be positive")
			}

			a, settings, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			to := time.Now()
			records, err := a.Activities(cmd.Context(), to.Add(-time.Duration(hours)*time.Hour), to)
			if err != nil {
				return err
			}

			if asJSON {
				if records == nil {
					records = []models.ActivityRecord{}
				}
				return printJSON(cmd.OutOrStdout(), records)
			}

			w := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(w, "No activities logged")
				return nil
			}
			for _, r := range records {
				loc := r.Location(settings.Location())
				fmt.Fprintf(w, "%s  %-6s  %s  %s\n", r.LoggedAt.In(loc).Format("01-02 15:04"), r.Kind, describe(r.Details), r.ID)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&hours, "hours", 24, "how far back to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}

func newLogDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a logged activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.DeleteActivity(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

// describe renders the interesting detail fields on one line
func describe(d models.ActivityDetails) string {
	var parts []string
	if d.FeedType != "" {
		parts = append(parts, d.FeedType)
	}
	if d.Quantity != nil {
		parts = append(parts, fmt.Sprintf("%g%s", *d.Quantity, d.Unit))
	}
	if d.Time != "" {
		parts = append(parts, "at "+d.Time)
	}
	if d.StartTime != "" {
		span := d.StartTime + "-" + d.EndTime
		if d.EndTime == "" {
			span += "?"
		}
		parts = append(parts, span)
	}
	if d.NightSleep {
		parts = append(parts, "night")
	}
	if d.DiaperType != "" {
		parts = append(parts, d.DiaperType)
	}
	if d.Note != "" {
		parts = append(parts, fmt.Sprintf("%q", d.Note))
	}
	return strings.Join(parts, " ")
}
