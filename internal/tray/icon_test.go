package tray

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/mrcode/nursery-advisor/internal/models"
)

var now = time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)

func at(offset time.Duration) *time.Time {
	t := now.Add(offset)
	return &t
}

func TestBadge_UpdateRendersPNG(t *testing.T) {
	badge := NewBadge(models.DefaultSettings())

	data, err := badge.Update(&models.NextActionResult{
		Intent:     models.IntentFeedSoon,
		Confidence: models.ConfidenceMedium,
		ComputedAt: now,
		Timing:     models.Timing{NextFeedAt: at(20 * time.Minute)},
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("badge is not a valid PNG: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 64 {
		t.Errorf("badge size = %v, want 64x64", img.Bounds())
	}

	// Background left of the text carries the feed color
	r, g, b, _ := img.At(4, 32).RGBA()
	if r>>8 != 0xf9 || g>>8 != 0x73 || b>>8 != 0x16 {
		t.Errorf("edge pixel = %02x%02x%02x, want f97316", r>>8, g>>8, b>>8)
	}
}

func TestBadge_CurrentICO(t *testing.T) {
	badge := NewBadge(models.DefaultSettings())

	data, err := badge.Current(true)
	if err != nil {
		t.Fatalf("Current(true) error = %v", err)
	}
	if len(data) < 22 {
		t.Fatalf("ICO too short: %d bytes", len(data))
	}
	if binary.LittleEndian.Uint16(data[2:4]) != 1 || binary.LittleEndian.Uint16(data[4:6]) != 1 {
		t.Error("ICO header should declare one icon image")
	}
	if data[6] != 64 || data[7] != 64 {
		t.Errorf("ICO entry size = %dx%d, want 64x64", data[6], data[7])
	}
	if size := binary.LittleEndian.Uint32(data[14:18]); int(size) != len(data)-22 {
		t.Errorf("ICO data size = %d, want %d", size, len(data)-22)
	}
	if _, err := png.Decode(bytes.NewReader(data[22:])); err != nil {
		t.Errorf("ICO payload is not PNG: %v", err)
	}
}

func TestMinutesToNext(t *testing.T) {
	tests := []struct {
		name     string
		result   models.NextActionResult
		expected int
		ok       bool
	}{
		{"Feed", models.NextActionResult{Intent: models.IntentFeedSoon, Timing: models.Timing{NextFeedAt: at(25 * time.Minute)}}, 25, true},
		{"Overdue feed", models.NextActionResult{Intent: models.IntentFeedSoon, Timing: models.Timing{NextFeedAt: at(-time.Hour)}}, 0, true},
		{"Wind-down", models.NextActionResult{Intent: models.IntentStartWindDown, Timing: models.Timing{NextNapWindowAt: at(10 * time.Minute)}}, 10, true},
		{"Asleep", models.NextActionResult{Intent: models.IntentLetSleepContinue, Timing: models.Timing{NextWakeAt: at(50 * time.Minute)}}, 50, true},
		{"Independent picks the earlier", models.NextActionResult{Intent: models.IntentIndependentTime,
			Timing: models.Timing{NextFeedAt: at(40 * time.Minute), NextNapWindowAt: at(70 * time.Minute)}}, 40, true},
		{"Hold", models.NextActionResult{Intent: models.IntentHold}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.result.ComputedAt = now
			got, ok := minutesToNext(&tt.result)
			if got != tt.expected || ok != tt.ok {
				t.Errorf("minutesToNext() = %d, %v; want %d, %v", got, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestFormatting(t *testing.T) {
	tests := []struct {
		minutes int
		long    string
		compact string
	}{
		{0, "now", "now"},
		{1, "1 minute", "1m"},
		{45, "45 minutes", "45m"},
		{60, "1 hour", "1h"},
		{125, "2h 05m", "2h"},
		{180, "3 hours", "3h"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.minutes); got != tt.long {
			t.Errorf("formatDuration(%d) = %q, want %q", tt.minutes, got, tt.long)
		}
		if got := formatCompactDuration(tt.minutes); got != tt.compact {
			t.Errorf("formatCompactDuration(%d) = %q, want %q", tt.minutes, got, tt.compact)
		}
	}
}

func TestBadge_Tooltip(t *testing.T) {
	badge := NewBadge(models.DefaultSettings())
	if !strings.Contains(badge.Tooltip(), "Loading") {
		t.Errorf("Tooltip before first update = %q", badge.Tooltip())
	}

	for _, p := range []float64{0.1, 0.5, 0.9} {
		_, err := badge.Update(&models.NextActionResult{
			Intent:     models.IntentStartWindDown,
			Confidence: models.ConfidenceHigh,
			ComputedAt: now,
			Reasons:    []string{"Awake 2h05m"},
			Timing:     models.Timing{NextNapWindowAt: at(15 * time.Minute)},
			Rationale:  models.Rationale{SleepPressure: p},
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	tip := badge.Tooltip()
	for _, want := range []string{"Start wind-down (high confidence)", "Next: 15 minutes", "Awake 2h05m", "Sleep pressure"} {
		if !strings.Contains(tip, want) {
			t.Errorf("Tooltip %q should contain %q", tip, want)
		}
	}
}

func TestGenerateCompactSparkline(t *testing.T) {
	badge := &Badge{history: []float64{0, 0.3, 0.6, 1, 1.4}}

	spark := badge.generateCompactSparkline()
	lines := strings.Split(spark, "\n")
	if len(lines) != 2 {
		t.Fatalf("sparkline has %d lines, want 2", len(lines))
	}
	for i, line := range lines {
		if n := len([]rune(line)); n != 5 {
			t.Errorf("line %d has %d columns, want 5", i, n)
		}
	}
	// Values above 1 are clamped to a full column
	top := []rune(lines[0])
	if top[3] != '⣿' || top[4] != '⣿' {
		t.Errorf("full pressure columns = %q, want full blocks", string(top[3:]))
	}
}

func TestGenerateCompactSparkline_Empty(t *testing.T) {
	badge := &Badge{history: []float64{0.5}}
	if spark := badge.generateCompactSparkline(); spark != "" {
		t.Errorf("single reading should give no sparkline, got %q", spark)
	}
}

func TestBadge_HistoryIsBounded(t *testing.T) {
	badge := NewBadge(models.DefaultSettings())
	for i := 0; i < historySize+10; i++ {
		if _, err := badge.Update(&models.NextActionResult{Intent: models.IntentHold, ComputedAt: now}); err != nil {
			t.Fatal(err)
		}
	}
	if len(badge.history) != historySize {
		t.Errorf("history length = %d, want %d", len(badge.history), historySize)
	}
}

func TestParseHexColor(t *testing.T) {
	r, g, b := parseHexColor("#3b82f6")
	if r != 0x3b || g != 0x82 || b != 0xf6 {
		t.Errorf("parseHexColor = %x %x %x", r, g, b)
	}
	if r, g, b := parseHexColor("blue"); r != 0 || g != 0 || b != 0 {
		t.Error("invalid color should parse to black")
	}
}

func TestRenderTimeline(t *testing.T) {
	nap := 60
	schedule := models.AdaptiveSchedule{
		GeneratedAt: now,
		Events: []models.ScheduleEvent{
			{Time: now.Add(-8 * time.Hour), Type: models.ScheduleWake, Logged: true},
			{Time: now.Add(-5 * time.Hour), Type: models.ScheduleNap, Duration: &nap, Logged: true},
			{Time: now.Add(time.Hour), Type: models.ScheduleFeed},
			{Time: now.Add(5*time.Hour + 30*time.Minute), Type: models.ScheduleBed},
		},
	}

	data, err := RenderTimeline(models.DefaultSettings(), schedule, time.UTC)
	if err != nil {
		t.Fatalf("RenderTimeline() error = %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("timeline is not a valid PNG: %v", err)
	}
	if img.Bounds().Dx() != timelineWidth || img.Bounds().Dy() != timelineHeight {
		t.Errorf("timeline size = %v", img.Bounds())
	}
}
