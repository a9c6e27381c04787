package prediction

import (
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/mrcode/nursery-advisor/internal/models"
)

func testEngine(p models.PersonalizedParams, stability models.DataStability) *Engine {
	ratio := blendSparse
	switch stability {
	case models.StabilityStable:
		ratio = blendStable
	case models.StabilityUnstable:
		ratio = blendUnstable
	}
	return &Engine{
		baseline:  p,
		adaptive:  p,
		internals: models.EngineInternals{DataStability: stability, BlendRatio: ratio, Baseline: p, Adaptive: p},
		ageMonths: 5,
		ageKnown:  true,
		loc:       time.UTC,
		night:     nightWindow{StartHour: DefaultNightStartHour, EndHour: DefaultNightEndHour},
		logger:    slog.New(slog.DiscardHandler),
	}
}

// awakeAt builds a snapshot at now. Negative minutes mean unknown.
func awakeAt(now time.Time, sinceFeed, awake, daySleep float64) snapshot {
	s := snapshot{now: now, daySleep: daySleep}
	if sinceFeed >= 0 {
		f := now.Add(-minutesDuration(sinceFeed))
		s.lastFeedAt = &f
	}
	if awake >= 0 {
		a := now.Add(-minutesDuration(awake))
		s.awakeSince = &a
	}
	return s
}

func fiveMonthParams() models.PersonalizedParams {
	return BaselineFor(5, true)
}

func TestFeedPressure_Monotonic(t *testing.T) {
	p := fiveMonthParams()
	now := day(11, 0)

	prev := -1.0
	for minutes := 0.0; minutes <= 400; minutes += 10 {
		got := feedPressure(awakeAt(now, minutes, 30, 0), p, false, false)
		if got <= prev {
			t.Fatalf("feedPressure(%.0f) = %f, not above %f", minutes, got, prev)
		}
		prev = got
	}
}

func TestFeedPressure_Modifiers(t *testing.T) {
	p := fiveMonthParams()
	now := day(11, 0)
	s := awakeAt(now, 180, 30, 0)
	plain := feedPressure(s, p, false, false)

	if got := feedPressure(s, p, true, false); math.Abs(got-plain*clusterFeedFactor) > 1e-9 {
		t.Errorf("cluster feedPressure = %f, want %f", got, plain*clusterFeedFactor)
	}

	night := s
	night.night = true
	if got := feedPressure(night, p, false, false); math.Abs(got-plain*nightFeedFactor) > 1e-9 {
		t.Errorf("night feedPressure = %f, want %f", got, plain*nightFeedFactor)
	}

	if got := feedPressure(awakeAt(now, -1, 30, 0), p, false, false); got != unknownFeedPressure {
		t.Errorf("feedPressure without feeds = %f, want %f", got, unknownFeedPressure)
	}

	if got := feedPressure(awakeAt(now, 1000, 30, 0), p, false, true); got > 1 {
		t.Errorf("feedPressure with illness = %f, want at most 1", got)
	}
}

func TestSleepPressure(t *testing.T) {
	p := fiveMonthParams()
	now := day(11, 0)

	if got := sleepPressure(awakeAt(now, 60, -1, 0), p, false); got != 0 {
		t.Errorf("sleepPressure with unknown wake = %f, want 0", got)
	}

	asleep := awakeAt(now, 60, 30, 0)
	asleep.sleep = &SleepSegment{Start: now.Add(-30 * time.Minute), Kind: models.SleepNap}
	if got := sleepPressure(asleep, p, false); got != 0 {
		t.Errorf("sleepPressure while asleep = %f, want 0", got)
	}

	low := sleepPressure(awakeAt(now, 60, 30, 200), p, false)
	high := sleepPressure(awakeAt(now, 60, 200, 200), p, false)
	if high <= low {
		t.Errorf("sleepPressure should rise with time awake: %f <= %f", high, low)
	}

	boosted := sleepPressure(awakeAt(now, 60, 30, 200), p, true)
	if math.Abs(boosted-low-shortNapBoost) > 1e-9 {
		t.Errorf("short nap boost = %f, want %f", boosted-low, shortNapBoost)
	}
}

func TestIsClusterFeeding(t *testing.T) {
	tests := []struct {
		gaps     []float64
		expected bool
	}{
		{[]float64{60, 70, 200}, true},
		{[]float64{60, 200, 200}, false},
		{[]float64{200, 200, 60, 60}, false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := isClusterFeeding(tt.gaps, 150); got != tt.expected {
			t.Errorf("isClusterFeeding(%v) = %v, want %v", tt.gaps, got, tt.expected)
		}
	}
}

func TestDecide(t *testing.T) {
	p := fiveMonthParams()
	tight := models.PersonalizedParams{
		WakeWindowMin: 90, WakeWindowMax: 150,
		FeedIntervalMin: 150, FeedIntervalMax: 160,
		DaySleepTarget: 210, ShortNapFloor: 40,
	}
	morning := day(11, 0)
	evening := day(22, 0)

	withGaps := func(s snapshot, gaps ...float64) snapshot {
		s.feedGaps = gaps
		return s
	}
	withLastNap := func(s snapshot, minutes float64) snapshot {
		s.lastNap = &minutes
		return s
	}
	atNight := func(s snapshot) snapshot {
		s.night = true
		return s
	}
	asleep := func(s snapshot) snapshot {
		s.sleep = &SleepSegment{Start: s.now.Add(-40 * time.Minute), Kind: models.SleepNap}
		return s
	}

	tests := []struct {
		name       string
		params     models.PersonalizedParams
		snapshot   snapshot
		intent     models.Intent
		confidence models.ConfidenceLevel
		tieBreak   string
		conflict   bool
		dataGap    bool
	}{
		{
			name:       "Asleep",
			params:     p,
			snapshot:   asleep(awakeAt(morning, 500, -1, 0)),
			intent:     models.IntentLetSleepContinue,
			confidence: models.ConfidenceHigh,
		},
		{
			name:       "Data gap",
			params:     p,
			snapshot:   awakeAt(morning, 370, 30, 0),
			intent:     models.IntentFeedSoon,
			confidence: models.ConfidenceLow,
			dataGap:    true,
		},
		{
			name:       "No feeds at all",
			params:     p,
			snapshot:   awakeAt(morning, -1, 30, 0),
			intent:     models.IntentFeedSoon,
			confidence: models.ConfidenceLow,
			dataGap:    true,
		},
		{
			name:       "Feed pressure wins",
			params:     p,
			snapshot:   awakeAt(morning, 200, 30, 200),
			intent:     models.IntentFeedSoon,
			confidence: models.ConfidenceHigh,
		},
		{
			name:       "Sleep pressure wins",
			params:     p,
			snapshot:   awakeAt(morning, 60, 180, 60),
			intent:     models.IntentStartWindDown,
			confidence: models.ConfidenceHigh,
		},
		{
			name:       "Calm morning",
			params:     p,
			snapshot:   awakeAt(morning, 60, 30, 210),
			intent:     models.IntentIndependentTime,
			confidence: models.ConfidenceMedium,
			tieBreak:   tieNoClearNeed,
			conflict:   true,
		},
		{
			name:       "Calm evening winds down",
			params:     p,
			snapshot:   atNight(awakeAt(evening, 60, 30, 210)),
			intent:     models.IntentStartWindDown,
			confidence: models.ConfidenceMedium,
			tieBreak:   tieNightOverride,
			conflict:   true,
		},
		{
			name:       "Unknown wake time holds",
			params:     p,
			snapshot:   awakeAt(morning, 60, -1, 0),
			intent:     models.IntentHold,
			confidence: models.ConfidenceMedium,
			tieBreak:   tieNoWakeHistory,
			conflict:   true,
		},
		{
			name:       "Overdue feed breaks the tie",
			params:     p,
			snapshot:   withGaps(awakeAt(morning, 215, 180, 60), 100, 100, 200),
			intent:     models.IntentFeedSoon,
			confidence: models.ConfidenceMedium,
			tieBreak:   tieFeedOverdue,
			conflict:   true,
		},
		{
			name:       "Weak feed yields to long wake window",
			params:     tight,
			snapshot:   withGaps(awakeAt(morning, 165, 155, 210), 100, 100, 100),
			intent:     models.IntentStartWindDown,
			confidence: models.ConfidenceMedium,
			tieBreak:   tieWakeWindowOverride,
			conflict:   true,
		},
		{
			name:       "Short nap recovery",
			params:     p,
			snapshot:   withLastNap(awakeAt(morning, 100, 120, 100), 30),
			intent:     models.IntentStartWindDown,
			confidence: models.ConfidenceMedium,
			tieBreak:   tieShortNapRecovery,
			conflict:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := testEngine(tt.params, models.StabilityStable)
			d := e.decide(tt.snapshot)

			if d.intent != tt.intent {
				t.Errorf("intent = %s, want %s (feed %.3f, sleep %.3f, tie %q)",
					d.intent, tt.intent, d.feedPressure, d.sleepPressure, d.tieBreak)
			}
			if d.confidence != tt.confidence {
				t.Errorf("confidence = %s, want %s (score %.3f)", d.confidence, tt.confidence, d.score)
			}
			if d.tieBreak != tt.tieBreak {
				t.Errorf("tieBreak = %q, want %q", d.tieBreak, tt.tieBreak)
			}
			if d.flags.Conflict != tt.conflict {
				t.Errorf("conflict = %v, want %v", d.flags.Conflict, tt.conflict)
			}
			if d.flags.DataGap != tt.dataGap {
				t.Errorf("data gap = %v, want %v", d.flags.DataGap, tt.dataGap)
			}
			if len(d.reasons) == 0 {
				t.Error("decision has no reasons")
			}
		})
	}
}

func TestConfidenceLevel(t *testing.T) {
	tests := []struct {
		name      string
		score     float64
		conflict  bool
		stability models.DataStability
		expected  models.ConfidenceLevel
	}{
		{"Stable and clear", 0.8, false, models.StabilityStable, models.ConfidenceHigh},
		{"Stable conflict", 0.8, true, models.StabilityStable, models.ConfidenceMedium},
		{"Stable weak", 0.3, true, models.StabilityStable, models.ConfidenceMedium},
		{"Unstable strong", 0.65, false, models.StabilityUnstable, models.ConfidenceMedium},
		{"Unstable weak", 0.55, false, models.StabilityUnstable, models.ConfidenceLow},
		{"Sparse moderate", 0.5, false, models.StabilitySparse, models.ConfidenceMedium},
		{"Sparse weak", 0.4, false, models.StabilitySparse, models.ConfidenceLow},
		{"Sparse strong never high", 0.9, false, models.StabilitySparse, models.ConfidenceMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := confidenceLevel(tt.score, tt.conflict, tt.stability); got != tt.expected {
				t.Errorf("confidenceLevel() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestConfidenceScore_Clamped(t *testing.T) {
	if got := confidenceScore(0.05, 0.1, true, true, models.StabilitySparse); got != minConfidence {
		t.Errorf("confidenceScore floor = %f, want %f", got, minConfidence)
	}
	if got := confidenceScore(1, 0, false, false, models.StabilityStable); got != maxConfidence {
		t.Errorf("confidenceScore ceiling = %f, want %f", got, maxConfidence)
	}
	got := confidenceScore(0.7, 0.2, true, false, models.StabilityUnstable)
	if math.Abs(got-0.65) > 1e-9 {
		t.Errorf("confidenceScore with unstable conflict = %f, want 0.65", got)
	}
}

func TestProjectTiming(t *testing.T) {
	now := day(11, 0)
	e := testEngine(fiveMonthParams(), models.StabilitySparse)

	s := awakeAt(now, 120, 100, 0)
	s.volumes = []float64{120, 90}
	timing := e.projectTiming(s)

	if timing.NextFeedAt == nil || !timing.NextFeedAt.Equal(now.Add(90*time.Minute)) {
		t.Errorf("NextFeedAt = %v, want %v", timing.NextFeedAt, now.Add(90*time.Minute))
	}
	if timing.NextNapWindowAt == nil || !timing.NextNapWindowAt.Equal(now.Add(50*time.Minute)) {
		t.Errorf("NextNapWindowAt = %v, want %v", timing.NextNapWindowAt, now.Add(50*time.Minute))
	}
	if timing.ExpectedFeedVolume != 105 {
		t.Errorf("ExpectedFeedVolume = %f, want 105", timing.ExpectedFeedVolume)
	}
	if timing.NextWakeAt != nil {
		t.Errorf("NextWakeAt = %v, want nil while awake", timing.NextWakeAt)
	}

	overdue := e.projectTiming(awakeAt(now, 300, 200, 0))
	if !overdue.NextFeedAt.Equal(now) || !overdue.NextNapWindowAt.Equal(now) {
		t.Errorf("overdue projections = %v / %v, want now", overdue.NextFeedAt, overdue.NextNapWindowAt)
	}
}

func TestProjectWake(t *testing.T) {
	start := day(10, 0)

	sparse := testEngine(fiveMonthParams(), models.StabilitySparse)
	sparse.internals.AverageNapMinutes = 60
	if got := sparse.projectWake(SleepSegment{Start: start, Kind: models.SleepNap}); !got.Equal(start.Add(90 * time.Minute)) {
		t.Errorf("sparse nap wake = %v, want band length 90m", got)
	}

	stable := testEngine(fiveMonthParams(), models.StabilityStable)
	stable.internals.AverageNapMinutes = 60
	// 0.3*90 + 0.7*60
	if got := stable.projectWake(SleepSegment{Start: start, Kind: models.SleepNap}); absDuration(got.Sub(start.Add(69*time.Minute))) > time.Second {
		t.Errorf("stable nap wake = %v, want blended 69m", got)
	}

	night := day(19, 30)
	if got := stable.projectWake(SleepSegment{Start: night, Kind: models.SleepNight}); !got.Equal(night.Add(10 * time.Hour)) {
		t.Errorf("night wake = %v, want 10h after start", got)
	}
}

func TestFormatMinutes(t *testing.T) {
	tests := map[float64]string{
		0:    "0m",
		45:   "45m",
		60:   "1h00m",
		125:  "2h05m",
		-3.0: "0m",
	}
	for in, want := range tests {
		if got := formatMinutes(in); got != want {
			t.Errorf("formatMinutes(%f) = %q, want %q", in, got, want)
		}
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
