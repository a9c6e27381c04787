package prediction

import (
	"time"

	"github.com/mrcode/nursery-advisor/internal/models"
)

const (
	learningWindow = 7 * 24 * time.Hour

	// Gaps at or beyond this are treated as missing data, not real intervals
	maxSampleGapMinutes = 480.0

	minStableSamples = 3
	stableCVLimit    = 0.4

	blendSparse   = 0.8
	blendUnstable = 0.6
	blendStable   = 0.3

	adaptiveFloor   = 0.7
	adaptiveCeiling = 1.5

	minDaySleepTarget = 120.0
	maxDaySleepTarget = 300.0
)

// learnedSamples are the raw measurements taken from recent history
type learnedSamples struct {
	wakeWindows   []float64
	feedIntervals []float64
	dailySleep    []float64
	napLengths    []float64
}

// collectSamples gathers measurements from the learning window before asOf.
// The day containing asOf is incomplete and is left out of daily totals.
func collectSamples(segments []SleepSegment, feeds []FeedEvent, asOf time.Time, loc *time.Location) learnedSamples {
	from := asOf.Add(-learningWindow)
	var s learnedSamples

	recent := make([]SleepSegment, 0, len(segments))
	for _, seg := range segments {
		if seg.Start.Before(from) || seg.Start.After(asOf) {
			continue
		}
		recent = append(recent, seg)
	}

	for i := 1; i < len(recent); i++ {
		prev, next := recent[i-1], recent[i]
		if prev.Kind != models.SleepNap || next.Kind != models.SleepNap || prev.End == nil {
			continue
		}
		gap := minutesBetween(*prev.End, next.Start)
		if gap > 0 && gap < maxSampleGapMinutes {
			s.wakeWindows = append(s.wakeWindows, gap)
		}
	}

	var prevFeed *FeedEvent
	for i := range feeds {
		f := &feeds[i]
		if f.Timestamp.Before(from) || f.Timestamp.After(asOf) {
			continue
		}
		if prevFeed != nil {
			gap := minutesBetween(prevFeed.Timestamp, f.Timestamp)
			if gap > 0 && gap < maxSampleGapMinutes {
				s.feedIntervals = append(s.feedIntervals, gap)
			}
		}
		prevFeed = f
	}

	today := dayKey(asOf, loc)
	totals := make(map[string]float64)
	var days []string
	for _, seg := range recent {
		if seg.Kind != models.SleepNap || seg.End == nil {
			continue
		}
		s.napLengths = append(s.napLengths, seg.Minutes())

		key := dayKey(seg.Start, loc)
		if key == today {
			continue
		}
		if _, seen := totals[key]; !seen {
			days = append(days, key)
		}
		totals[key] += seg.Minutes()
	}
	for _, key := range days {
		s.dailySleep = append(s.dailySleep, totals[key])
	}

	return s
}

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// classifyStability decides how much the learned values can be trusted and
// returns the baseline weight to blend with.
func classifyStability(wakeWindows, feedIntervals []float64) (models.DataStability, float64) {
	if len(wakeWindows) < minStableSamples || len(feedIntervals) < minStableSamples {
		return models.StabilitySparse, blendSparse
	}
	m := median(wakeWindows)
	if m <= 0 {
		return models.StabilityUnstable, blendUnstable
	}
	if stdDev(wakeWindows)/m < stableCVLimit {
		return models.StabilityStable, blendStable
	}
	return models.StabilityUnstable, blendUnstable
}

// adaptBound blends a baseline bound with the learned median and keeps it
// within a fixed band around the baseline
func adaptBound(base float64, samples []float64, ratio float64) float64 {
	if len(samples) == 0 {
		return base
	}
	v := blend(base, median(samples), ratio)
	return clamp(v, adaptiveFloor*base, adaptiveCeiling*base)
}

// learnParams derives the adaptive parameters and diagnostics
func learnParams(baseline models.PersonalizedParams, s learnedSamples) (models.PersonalizedParams, models.EngineInternals) {
	stability, ratio := classifyStability(s.wakeWindows, s.feedIntervals)

	adaptive := models.PersonalizedParams{
		WakeWindowMin:   adaptBound(baseline.WakeWindowMin, s.wakeWindows, ratio),
		WakeWindowMax:   adaptBound(baseline.WakeWindowMax, s.wakeWindows, ratio),
		FeedIntervalMin: adaptBound(baseline.FeedIntervalMin, s.feedIntervals, ratio),
		FeedIntervalMax: adaptBound(baseline.FeedIntervalMax, s.feedIntervals, ratio),
		DaySleepTarget:  baseline.DaySleepTarget,
		ShortNapFloor:   baseline.ShortNapFloor,
	}
	if adaptive.WakeWindowMin > adaptive.WakeWindowMax {
		adaptive.WakeWindowMin = adaptive.WakeWindowMax
	}
	if adaptive.FeedIntervalMin > adaptive.FeedIntervalMax {
		adaptive.FeedIntervalMin = adaptive.FeedIntervalMax
	}
	if len(s.dailySleep) >= minStableSamples {
		adaptive.DaySleepTarget = clamp(median(s.dailySleep), minDaySleepTarget, maxDaySleepTarget)
	}

	internals := models.EngineInternals{
		WakeWindowMedian:    median(s.wakeWindows),
		WakeWindowStdDev:    stdDev(s.wakeWindows),
		FeedIntervalMedian:  median(s.feedIntervals),
		FeedIntervalStdDev:  stdDev(s.feedIntervals),
		DaySleepMedian:      median(s.dailySleep),
		AverageNapMinutes:   mean(s.napLengths),
		WakeWindowSamples:   len(s.wakeWindows),
		FeedIntervalSamples: len(s.feedIntervals),
		DaySleepSamples:     len(s.dailySleep),
		DataStability:       stability,
		BlendRatio:          ratio,
		Baseline:            baseline,
		Adaptive:            adaptive,
	}

	return adaptive, internals
}
