package prediction

import (
	"time"

	"github.com/mrcode/nursery-advisor/internal/models"
)

// recentGapCount is how many inter-feed gaps the cluster check looks at
const recentGapCount = 3

// snapshot is the state of the day at a single instant. The decision core
// reads only this, so the schedule simulator can feed it a virtual one.
type snapshot struct {
	now   time.Time
	night bool

	lastFeedAt *time.Time
	feedGaps   []float64 // Most recent first
	volumes    []float64 // Nonzero volumes, most recent first

	sleep      *SleepSegment // Current open segment, nil while awake
	awakeSince *time.Time

	lastNap  *float64 // Minutes of the most recent completed nap
	daySleep float64  // Completed nap minutes on the local day of now
}

func (s snapshot) asleep() bool {
	return s.sleep != nil
}

func (s snapshot) minutesSinceFeed() (float64, bool) {
	if s.lastFeedAt == nil {
		return 0, false
	}
	return minutesBetween(*s.lastFeedAt, s.now), true
}

func (s snapshot) minutesAwake() (float64, bool) {
	if s.sleep != nil || s.awakeSince == nil {
		return 0, false
	}
	return minutesBetween(*s.awakeSince, s.now), true
}

func (s snapshot) minutesAsleep() (float64, bool) {
	if s.sleep == nil {
		return 0, false
	}
	return minutesBetween(s.sleep.Start, s.now), true
}

// snapshotAt builds the real snapshot from logged history up to now
func (e *Engine) snapshotAt(now time.Time) snapshot {
	s := snapshot{now: now, night: e.night.contains(now, e.loc)}

	var latest *SleepSegment
	for i := range e.segments {
		seg := e.segments[i]
		if seg.Start.After(now) {
			break
		}
		// A segment that ends after now was still running at now
		if seg.End != nil && seg.End.After(now) {
			seg.End = nil
		}
		latest = &seg

		if seg.Kind == models.SleepNap && seg.End != nil {
			minutes := seg.Minutes()
			s.lastNap = &minutes
			if sameDay(seg.Start, now, e.loc) {
				s.daySleep += minutes
			}
		}
	}

	if latest != nil {
		if latest.Open() {
			s.sleep = latest
		} else {
			end := *latest.End
			s.awakeSince = &end
		}
	}

	var prev *time.Time
	for i := len(e.feeds) - 1; i >= 0; i-- {
		f := e.feeds[i]
		if f.Timestamp.After(now) {
			continue
		}
		if s.lastFeedAt == nil {
			ts := f.Timestamp
			s.lastFeedAt = &ts
		}
		if prev != nil && len(s.feedGaps) < recentGapCount {
			s.feedGaps = append(s.feedGaps, minutesBetween(f.Timestamp, *prev))
		}
		if f.Volume > 0 && len(s.volumes) < recentVolumeCount {
			s.volumes = append(s.volumes, f.Volume)
		}
		ts := f.Timestamp
		prev = &ts

		if len(s.feedGaps) >= recentGapCount && len(s.volumes) >= recentVolumeCount {
			break
		}
	}

	return s
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	return dayKey(a, loc) == dayKey(b, loc)
}

// Virtual transitions used by the schedule simulator

func (s snapshot) at(t time.Time, night nightWindow, loc *time.Location) snapshot {
	s.now = t
	s.night = night.contains(t, loc)
	return s
}

// startedDayAt makes the awake time count from the start of the day at the
// latest
func (s snapshot) startedDayAt(t time.Time) snapshot {
	if s.sleep == nil && (s.awakeSince == nil || s.awakeSince.Before(t)) {
		s.awakeSince = &t
	}
	return s
}

func (s snapshot) fedAt(t time.Time) snapshot {
	if s.lastFeedAt != nil {
		gaps := make([]float64, 0, recentGapCount)
		gaps = append(gaps, minutesBetween(*s.lastFeedAt, t))
		gaps = append(gaps, s.feedGaps...)
		if len(gaps) > recentGapCount {
			gaps = gaps[:recentGapCount]
		}
		s.feedGaps = gaps
	}
	s.lastFeedAt = &t
	return s
}

func (s snapshot) nappedAt(start time.Time, minutes float64) snapshot {
	end := start.Add(minutesDuration(minutes))
	s.sleep = nil
	s.awakeSince = &end
	s.lastNap = &minutes
	s.daySleep += minutes
	return s
}

func (s snapshot) wokeAt(t time.Time) snapshot {
	if s.sleep != nil && s.sleep.Kind == models.SleepNap {
		minutes := minutesBetween(s.sleep.Start, t)
		s.lastNap = &minutes
		s.daySleep += minutes
	}
	s.sleep = nil
	s.awakeSince = &t
	return s
}
