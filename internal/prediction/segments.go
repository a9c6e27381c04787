package prediction

import (
	"sort"
	"time"

	"github.com/mrcode/nursery-advisor/internal/models"
)

// staleNapAfter is how long an open nap may run before it is assumed to have
// ended at the next logged activity.
const staleNapAfter = 120 * time.Minute

// SleepSegment is a single sleep period
type SleepSegment struct {
	Start      time.Time
	End        *time.Time
	Kind       models.SleepKind
	AutoClosed bool
}

// Open returns true while the segment has no end
func (s SleepSegment) Open() bool {
	return s.End == nil
}

// Minutes returns the segment length, or 0 while it is open
func (s SleepSegment) Minutes() float64 {
	if s.End == nil {
		return 0
	}
	return minutesBetween(s.Start, *s.End)
}

// FeedEvent is a feed reduced to what the scorer needs
type FeedEvent struct {
	Timestamp time.Time
	Volume    float64 // ml, 0 when not measured
	Type      string
}

// nightWindow is the local-hour range treated as night. It wraps midnight
// when StartHour > EndHour.
type nightWindow struct {
	StartHour int
	EndHour   int
}

func (w nightWindow) contains(t time.Time, loc *time.Location) bool {
	h := t.In(loc).Hour()
	if w.StartHour > w.EndHour {
		return h >= w.StartHour || h < w.EndHour
	}
	return h >= w.StartHour && h < w.EndHour
}

// extractSegments builds sleep segments from nap events, oldest first.
// Open naps older than staleNapAfter are closed at the earliest later event.
func extractSegments(events []Event, night nightWindow, loc *time.Location, asOf time.Time) []SleepSegment {
	segments := make([]SleepSegment, 0)
	for _, ev := range events {
		if ev.Kind != models.KindNap || ev.Start == nil {
			continue
		}
		seg := SleepSegment{Start: *ev.Start, End: ev.End, Kind: models.SleepNap}
		if night.contains(seg.Start, loc) {
			seg.Kind = models.SleepNight
		}
		segments = append(segments, seg)
	}

	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start.Before(segments[j].Start)
	})

	for i := range segments {
		seg := &segments[i]
		if !seg.Open() || seg.Kind != models.SleepNap {
			continue
		}
		if asOf.Sub(seg.Start) <= staleNapAfter {
			continue
		}
		if next, ok := firstEventAfter(events, seg.Start); ok {
			seg.End = &next
			seg.AutoClosed = true
		}
	}

	return segments
}

// closeStaleNights ends an open night sleep at the first activity logged
// after its projected wake. Activity before the projected wake, such as night
// feeds, leaves the night open.
func (e *Engine) closeStaleNights() {
	for i := range e.segments {
		seg := &e.segments[i]
		if !seg.Open() || seg.Kind != models.SleepNight {
			continue
		}
		if next, ok := firstEventAfter(e.events, e.projectWake(*seg)); ok {
			seg.End = &next
			seg.AutoClosed = true
		}
	}
}

// firstEventAfter returns the earliest event timestamp strictly after t.
// events is ordered most recent first.
func firstEventAfter(events []Event, t time.Time) (time.Time, bool) {
	var found time.Time
	ok := false
	for _, ev := range events {
		if !ev.Timestamp.After(t) {
			break
		}
		found = ev.Timestamp
		ok = true
	}
	return found, ok
}

// extractFeeds returns feeds oldest first. Timed nursing sessions are placed
// at the midpoint of the session.
func extractFeeds(events []Event) []FeedEvent {
	feeds := make([]FeedEvent, 0)
	for _, ev := range events {
		if ev.Kind != models.KindFeed {
			continue
		}

		f := FeedEvent{Timestamp: ev.Timestamp, Type: models.FeedNursing}
		if ev.Details.HasQuantity() {
			f.Type = models.FeedBottle
			f.Volume = ev.Details.QuantityML()
		} else if ev.Start != nil && ev.End != nil {
			f.Timestamp = ev.Start.Add(ev.End.Sub(*ev.Start) / 2)
		}
		feeds = append(feeds, f)
	}

	sort.SliceStable(feeds, func(i, j int) bool {
		return feeds[i].Timestamp.Before(feeds[j].Timestamp)
	})
	return feeds
}
