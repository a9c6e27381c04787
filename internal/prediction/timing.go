package prediction

import (
	"time"

	"github.com/mrcode/nursery-advisor/internal/models"
)

// recentVolumeCount is how many measured feeds the volume estimate averages
const recentVolumeCount = 3

// projectTiming turns the snapshot into absolute times. Projections never
// lie before s.now.
func (e *Engine) projectTiming(s snapshot) models.Timing {
	p := e.adaptive
	var t models.Timing

	if since, ok := s.minutesSinceFeed(); ok {
		next := notBefore(s.now.Add(minutesDuration(p.FeedIntervalMax-since)), s.now)
		t.NextFeedAt = &next
	} else {
		now := s.now
		t.NextFeedAt = &now
	}
	t.ExpectedFeedVolume = mean(s.volumes)

	if awake, ok := s.minutesAwake(); ok {
		next := notBefore(s.now.Add(minutesDuration(p.WakeWindowMax-awake)), s.now)
		t.NextNapWindowAt = &next
	}

	if s.asleep() {
		wake := e.projectWake(*s.sleep)
		t.NextWakeAt = &wake
	}

	return t
}

// projectWake estimates when a sleep segment will end
func (e *Engine) projectWake(seg SleepSegment) time.Time {
	if seg.Kind == models.SleepNight {
		length := lookupLength(nightLengthBands, e.ageMonths, e.ageKnown)
		return seg.Start.Add(minutesDuration(length))
	}
	return seg.Start.Add(minutesDuration(e.expectedNapMinutes()))
}

// expectedNapMinutes is the age band nap length, blended with the learned
// average nap once there is enough history
func (e *Engine) expectedNapMinutes() float64 {
	band := lookupLength(napLengthBands, e.ageMonths, e.ageKnown)
	avg := e.internals.AverageNapMinutes
	if e.internals.DataStability == models.StabilitySparse || avg <= 0 {
		return band
	}
	return blend(band, avg, e.internals.BlendRatio)
}

func notBefore(t, floor time.Time) time.Time {
	if t.Before(floor) {
		return floor
	}
	return t
}
