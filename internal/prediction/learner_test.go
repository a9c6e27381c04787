package prediction

import (
	"math"
	"testing"
	"time"

	"github.com/mrcode/nursery-advisor/internal/models"
)

func TestBaselineFor(t *testing.T) {
	tests := []struct {
		name          string
		ageMonths     float64
		known         bool
		wakeWindowMax float64
		feedMax       float64
		shortNapFloor float64
	}{
		{"Newborn", 0.5, true, 90, 180, 30},
		{"Three months", 3.9, true, 90, 180, 30},
		{"Five months", 5, true, 150, 210, 40},
		{"Six and a half months", 6.5, true, 150, 210, 40},
		{"Nine months", 9, true, 240, 240, 45},
		{"Unknown age", 0, false, 90, 180, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := BaselineFor(tt.ageMonths, tt.known)
			if p.WakeWindowMax != tt.wakeWindowMax {
				t.Errorf("WakeWindowMax = %f, want %f", p.WakeWindowMax, tt.wakeWindowMax)
			}
			if p.FeedIntervalMax != tt.feedMax {
				t.Errorf("FeedIntervalMax = %f, want %f", p.FeedIntervalMax, tt.feedMax)
			}
			if p.ShortNapFloor != tt.shortNapFloor {
				t.Errorf("ShortNapFloor = %f, want %f", p.ShortNapFloor, tt.shortNapFloor)
			}
		})
	}
}

func TestAgeMonths(t *testing.T) {
	birth, ok := ParseBirthDate("2026-05-15", time.UTC)
	if !ok {
		t.Fatal("ParseBirthDate rejected a valid date")
	}

	got := AgeMonths(birth, day(0, 0))
	if got < 5.1 || got > 5.2 {
		t.Errorf("AgeMonths = %f, want about 5.16", got)
	}

	if AgeMonths(day(0, 0), birth) != 0 {
		t.Error("future birth date should give age 0")
	}

	if _, ok := ParseBirthDate("15.05.2026", time.UTC); ok {
		t.Error("ParseBirthDate accepted a malformed date")
	}
}

func TestExpectedCounts(t *testing.T) {
	tests := []struct {
		ageMonths float64
		feeds     models.CountRange
		naps      models.CountRange
	}{
		{0.5, models.CountRange{Min: 8, Max: 12}, models.CountRange{Min: 4, Max: 6}},
		{2, models.CountRange{Min: 7, Max: 9}, models.CountRange{Min: 3, Max: 5}},
		{5, models.CountRange{Min: 6, Max: 8}, models.CountRange{Min: 3, Max: 4}},
		{7, models.CountRange{Min: 5, Max: 6}, models.CountRange{Min: 2, Max: 3}},
		{10, models.CountRange{Min: 4, Max: 5}, models.CountRange{Min: 2, Max: 3}},
		{18, models.CountRange{Min: 3, Max: 4}, models.CountRange{Min: 1, Max: 2}},
	}

	for _, tt := range tests {
		feeds, naps := expectedCounts(tt.ageMonths, true)
		if feeds != tt.feeds || naps != tt.naps {
			t.Errorf("expectedCounts(%.1f) = %v %v, want %v %v", tt.ageMonths, feeds, naps, tt.feeds, tt.naps)
		}
	}
}

func TestClassifyStability(t *testing.T) {
	feeds := []float64{180, 170, 190}

	tests := []struct {
		name        string
		wakeWindows []float64
		feeds       []float64
		expected    models.DataStability
		ratio       float64
	}{
		{"Too few wake windows", []float64{100, 110}, feeds, models.StabilitySparse, 0.8},
		{"Too few feeds", []float64{100, 110, 120}, []float64{180}, models.StabilitySparse, 0.8},
		{"Consistent", []float64{100, 105, 95}, feeds, models.StabilityStable, 0.3},
		{"Erratic", []float64{60, 150, 90}, feeds, models.StabilityUnstable, 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ratio := classifyStability(tt.wakeWindows, tt.feeds)
			if got != tt.expected {
				t.Errorf("classifyStability() = %s, want %s", got, tt.expected)
			}
			if ratio != tt.ratio {
				t.Errorf("blend ratio = %f, want %f", ratio, tt.ratio)
			}
		})
	}
}

func TestAdaptBound(t *testing.T) {
	// Learned values equal to the baseline leave it untouched
	for _, ratio := range []float64{blendSparse, blendUnstable, blendStable} {
		if got := adaptBound(120, []float64{120, 120, 120}, ratio); math.Abs(got-120) > 1e-9 {
			t.Errorf("adaptBound(120, [120...], %.1f) = %f, want 120", ratio, got)
		}
	}

	if got := adaptBound(100, []float64{1000}, blendStable); math.Abs(got-150) > 1e-9 {
		t.Errorf("adaptBound upper clamp = %f, want 150", got)
	}
	if got := adaptBound(100, []float64{1}, blendStable); math.Abs(got-70) > 1e-9 {
		t.Errorf("adaptBound lower clamp = %f, want 70", got)
	}
	if got := adaptBound(100, nil, blendStable); got != 100 {
		t.Errorf("adaptBound without samples = %f, want 100", got)
	}
}

func TestLearnParams_NoHistoryKeepsBaseline(t *testing.T) {
	base := BaselineFor(5, true)
	adaptive, internals := learnParams(base, learnedSamples{})

	if adaptive != base {
		t.Errorf("adaptive = %+v, want baseline %+v", adaptive, base)
	}
	if internals.DataStability != models.StabilitySparse {
		t.Errorf("stability = %s, want sparse", internals.DataStability)
	}
}

func TestLearnParams_DaySleepTarget(t *testing.T) {
	base := BaselineFor(5, true)

	adaptive, _ := learnParams(base, learnedSamples{dailySleep: []float64{60, 70, 80}})
	if adaptive.DaySleepTarget != minDaySleepTarget {
		t.Errorf("DaySleepTarget = %f, want clamped to %f", adaptive.DaySleepTarget, minDaySleepTarget)
	}

	adaptive, _ = learnParams(base, learnedSamples{dailySleep: []float64{180, 190}})
	if adaptive.DaySleepTarget != base.DaySleepTarget {
		t.Errorf("DaySleepTarget with two days = %f, want baseline %f", adaptive.DaySleepTarget, base.DaySleepTarget)
	}
}

func TestLearnParams_MinNeverAboveMax(t *testing.T) {
	base := models.PersonalizedParams{
		WakeWindowMin: 100, WakeWindowMax: 110,
		FeedIntervalMin: 150, FeedIntervalMax: 160,
		DaySleepTarget: 200, ShortNapFloor: 30,
	}
	samples := learnedSamples{
		wakeWindows:   []float64{40, 40, 40},
		feedIntervals: []float64{60, 60, 60},
	}
	adaptive, _ := learnParams(base, samples)
	if adaptive.WakeWindowMin > adaptive.WakeWindowMax {
		t.Errorf("WakeWindowMin %f > WakeWindowMax %f", adaptive.WakeWindowMin, adaptive.WakeWindowMax)
	}
	if adaptive.FeedIntervalMin > adaptive.FeedIntervalMax {
		t.Errorf("FeedIntervalMin %f > FeedIntervalMax %f", adaptive.FeedIntervalMin, adaptive.FeedIntervalMax)
	}
}

func TestCollectSamples(t *testing.T) {
	asOf := day(12, 0)
	yesterday := func(h, m int) time.Time { return day(h, m).AddDate(0, 0, -1) }

	segments := []SleepSegment{
		{Start: yesterday(9, 0), End: ptr(yesterday(10, 0)), Kind: models.SleepNap},
		{Start: yesterday(12, 0), End: ptr(yesterday(13, 0)), Kind: models.SleepNap},
		{Start: yesterday(15, 0), End: ptr(yesterday(15, 30)), Kind: models.SleepNap},
		{Start: yesterday(19, 30), End: ptr(day(6, 30)), Kind: models.SleepNight},
		{Start: day(9, 0), End: ptr(day(10, 0)), Kind: models.SleepNap},
	}
	feeds := []FeedEvent{
		{Timestamp: yesterday(6, 0)},
		{Timestamp: yesterday(9, 0)},
		{Timestamp: yesterday(21, 0)},
		{Timestamp: day(7, 0)},
		{Timestamp: day(10, 0)},
	}

	s := collectSamples(segments, feeds, asOf, time.UTC)

	// 10:00->12:00 and 13:00->15:00; the night breaks the chain
	if len(s.wakeWindows) != 2 || s.wakeWindows[0] != 120 || s.wakeWindows[1] != 120 {
		t.Errorf("wakeWindows = %v, want [120 120]", s.wakeWindows)
	}
	// The 12h and 10h gaps are missing data
	if len(s.feedIntervals) != 2 {
		t.Errorf("feedIntervals = %v, want 2 samples", s.feedIntervals)
	}
	// Today is left out of the daily totals
	if len(s.dailySleep) != 1 || s.dailySleep[0] != 150 {
		t.Errorf("dailySleep = %v, want [150]", s.dailySleep)
	}
	if len(s.napLengths) != 4 {
		t.Errorf("napLengths = %v, want 4 naps", s.napLengths)
	}
}
