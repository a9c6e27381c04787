package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrcode/nursery-advisor/internal/models"
	"github.com/mrcode/nursery-advisor/internal/prediction"
)

// segmentView is the printable form of a sleep segment
type segmentView struct {
	Start      time.Time        `json:"start"`
	End        *time.Time       `json:"end,omitempty"`
	Kind       models.SleepKind `json:"kind"`
	Minutes    float64          `json:"minutes"`
	AutoClosed bool             `json:"autoClosed,omitempty"`
}

type diagnosis struct {
	AsOf      time.Time                 `json:"asOf"`
	Events    map[string]int            `json:"events"`
	Internals models.EngineInternals    `json:"internals"`
	Baseline  models.PersonalizedParams `json:"baseline"`
	Adaptive  models.PersonalizedParams `json:"adaptive"`
	Segments  []segmentView             `json:"segments"`
}

func newDiagnoseCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Show what the engine learned from the log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, settings, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			engine, now, err := a.Engine(cmd.Context())
			if err != nil {
				return err
			}
			d := diagnose(engine, now)

			if asJSON {
				return printJSON(cmd.OutOrStdout(), d)
			}
			printDiagnosis(cmd.OutOrStdout(), d, settings.Location())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func diagnose(engine *prediction.Engine, now time.Time) diagnosis {
	d := diagnosis{
		AsOf:      now,
		Events:    map[string]int{},
		Internals: engine.Internals(),
		Baseline:  engine.Baseline(),
		Adaptive:  engine.Adaptive(),
		Segments:  []segmentView{},
	}
	for _, ev := range engine.Events() {
		d.Events[string(ev.Kind)]++
	}
	for _, seg := range engine.Segments() {
		d.Segments = append(d.Segments, segmentView{
			Start:      seg.Start,
			End:        seg.End,
			Kind:       seg.Kind,
			Minutes:    seg.Minutes(),
			AutoClosed: seg.AutoClosed,
		})
	}
	return d
}

func printDiagnosis(w io.Writer, d diagnosis, loc *time.Location) {
	in := d.Internals
	fmt.Fprintf(w, "Age: %.1f months, data %s, baseline weight %.0f%%\n", in.AgeMonths, in.DataStability, in.BlendRatio*100)
	fmt.Fprintf(w, "Events: %d feeds, %d naps, %d diapers\n", d.Events[string(models.KindFeed)], d.Events[string(models.KindNap)], d.Events[string(models.KindDiaper)])
	fmt.Fprintf(w, "Learned: wake window %.0f min (n=%d), feed interval %.0f min (n=%d), day sleep %.0f min (n=%d)\n",
		in.WakeWindowMedian, in.WakeWindowSamples,
		in.FeedIntervalMedian, in.FeedIntervalSamples,
		in.DaySleepMedian, in.DaySleepSamples)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-18s %9s %9s\n", "", "baseline", "adaptive")
	rows := []struct {
		name     string
		baseline float64
		adaptive float64
	}{
		{"wake window min", d.Baseline.WakeWindowMin, d.Adaptive.WakeWindowMin},
		{"wake window max", d.Baseline.WakeWindowMax, d.Adaptive.WakeWindowMax},
		{"feed interval min", d.Baseline.FeedIntervalMin, d.Adaptive.FeedIntervalMin},
		{"feed interval max", d.Baseline.FeedIntervalMax, d.Adaptive.FeedIntervalMax},
		{"day sleep target", d.Baseline.DaySleepTarget, d.Adaptive.DaySleepTarget},
		{"short nap floor", d.Baseline.ShortNapFloor, d.Adaptive.ShortNapFloor},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%-18s %9.0f %9.0f\n", r.name, r.baseline, r.adaptive)
	}

	if len(d.Segments) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Sleep:")
	for _, s := range d.Segments {
		end := "now"
		if s.End != nil {
			end = s.End.In(loc).Format("15:04")
		}
		note := ""
		if s.AutoClosed {
			note = " (auto-closed)"
		}
		fmt.Fprintf(w, "  %s-%s  %-5s %4.0f min%s\n", s.Start.In(loc).Format("01-02 15:04"), end, s.Kind, s.Minutes, note)
	}
}
