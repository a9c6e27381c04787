package tray

import (
	"bytes"
	"fmt"
	"image/png"
	"time"

	"github.com/fogleman/gg"

	"github.com/mrcode/nursery-advisor/internal/models"
)

// Timeline layout, in pixels
const (
	timelineWidth   = 720
	timelineHeight  = 96
	timelineMargin  = 24
	timelineBarTop  = 28
	timelineBarSize = 32
)

// Hours covered by the timeline
const (
	timelineStartHour = 5
	timelineEndHour   = 23
)

// RenderTimeline draws the schedule as a horizontal day strip: naps as
// blocks, feeds as ticks, wake and bed as markers. Projected entries are
// drawn translucent, logged ones solid.
func RenderTimeline(settings *models.Settings, schedule models.AdaptiveSchedule, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}

	dc := gg.NewContext(timelineWidth, timelineHeight)
	dc.SetRGB255(255, 255, 255)
	dc.Clear()

	ref := schedule.GeneratedAt
	if ref.IsZero() && len(schedule.Events) > 0 {
		ref = schedule.Events[0].Time
	}
	ref = ref.In(loc)
	dayStart := time.Date(ref.Year(), ref.Month(), ref.Day(), timelineStartHour, 0, 0, 0, loc)
	span := float64((timelineEndHour - timelineStartHour) * 60)
	usable := float64(timelineWidth - 2*timelineMargin)

	xAt := func(t time.Time) float64 {
		mins := t.Sub(dayStart).Minutes()
		if mins < 0 {
			mins = 0
		}
		if mins > span {
			mins = span
		}
		return timelineMargin + mins/span*usable
	}

	// Track and hour grid
	dc.SetRGB255(243, 244, 246)
	dc.DrawRectangle(timelineMargin, timelineBarTop, usable, timelineBarSize)
	dc.Fill()

	if err := loadFont(dc, 11); err != nil {
		return nil, err
	}
	for h := timelineStartHour; h <= timelineEndHour; h++ {
		x := xAt(dayStart.Add(time.Duration(h-timelineStartHour) * time.Hour))
		dc.SetRGB255(209, 213, 219)
		dc.SetLineWidth(1)
		dc.DrawLine(x, timelineBarTop, x, timelineBarTop+timelineBarSize)
		dc.Stroke()
		if h%3 == 0 {
			dc.SetRGB255(75, 85, 99)
			dc.DrawStringAnchored(fmt.Sprintf("%02d", h), x, timelineBarTop+timelineBarSize+12, 0.5, 0.5)
		}
	}

	for _, ev := range schedule.Events {
		alpha := 0.45
		if ev.Logged {
			alpha = 1
		}
		x := xAt(ev.Time)

		switch ev.Type {
		case models.ScheduleNap:
			setHex(dc, settings.ColorSleep, alpha)
			w := xAt(ev.End()) - x
			if w < 2 {
				w = 2
			}
			dc.DrawRectangle(x, timelineBarTop+4, w, timelineBarSize-8)
			dc.Fill()
		case models.ScheduleFeed:
			setHex(dc, settings.ColorFeed, alpha)
			dc.SetLineWidth(3)
			dc.DrawLine(x, timelineBarTop-4, x, timelineBarTop+timelineBarSize+4)
			dc.Stroke()
		case models.ScheduleWake, models.ScheduleBed:
			setHex(dc, settings.ColorWindDown, alpha)
			dc.DrawCircle(x, timelineBarTop-10, 5)
			dc.Fill()
			dc.SetRGB255(31, 41, 55)
			dc.DrawStringAnchored(string(ev.Type), x, timelineBarTop-20, 0.5, 0.5)
		}
	}

	// Now marker
	if !schedule.GeneratedAt.IsZero() {
		x := xAt(schedule.GeneratedAt.In(loc))
		dc.SetRGB255(239, 68, 68)
		dc.SetLineWidth(2)
		dc.DrawLine(x, timelineBarTop-2, x, timelineBarTop+timelineBarSize+2)
		dc.Stroke()
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("encoding timeline: %w", err)
	}
	return buf.Bytes(), nil
}

func setHex(dc *gg.Context, hex string, alpha float64) {
	r, g, b := parseHexColor(hex)
	dc.SetRGBA255(int(r), int(g), int(b), int(alpha*255))
}
