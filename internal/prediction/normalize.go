package prediction

import (
	"sort"
	"strings"
	"time"

	"github.com/mrcode/nursery-advisor/internal/models"
)

// Event is a logged activity resolved to absolute instants
type Event struct {
	ID        string
	Kind      models.ActivityKind
	Timestamp time.Time
	Start     *time.Time // Naps and timed nursing sessions
	End       *time.Time // nil while a nap is still running
	Details   models.ActivityDetails
}

// Wall-clock layouts accepted in record details, tried in order
var clockLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"3:04 pm",
	"3:04pm",
}

// overnightSlack is how far past the logging instant an anchored wall-clock
// time may fall before it is moved to the previous day.
const overnightSlack = 12 * time.Hour

// resolveClock turns a wall-clock string into an absolute instant. Bare times
// are anchored to the calendar day of logged in loc. Full RFC3339 values are
// taken as-is. ok is false for empty or unparseable values.
func resolveClock(value string, logged time.Time, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}

	for _, layout := range clockLayouts {
		clock, err := time.Parse(layout, value)
		if err != nil {
			continue
		}

		local := logged.In(loc)
		anchored := time.Date(local.Year(), local.Month(), local.Day(),
			clock.Hour(), clock.Minute(), clock.Second(), 0, loc)

		// "23:40" logged at 00:15 belongs to yesterday
		if anchored.Sub(logged) > overnightSlack {
			anchored = anchored.AddDate(0, 0, -1)
		}
		return anchored, true
	}

	return time.Time{}, false
}

// optionalClock resolves value when present. A present but unparseable value
// reports bad so the caller can drop the record.
func optionalClock(value string, logged time.Time, loc *time.Location) (t *time.Time, bad bool) {
	if strings.TrimSpace(value) == "" {
		return nil, false
	}
	resolved, ok := resolveClock(value, logged, loc)
	if !ok {
		return nil, true
	}
	return &resolved, false
}

// normalizeRecord resolves a single record. ok is false when the record
// carries a time it cannot be placed by.
func normalizeRecord(r *models.ActivityRecord, fallback *time.Location, asOf time.Time) (Event, bool) {
	loc := r.Location(fallback)
	ev := Event{
		ID:        r.ID,
		Kind:      r.Kind,
		Timestamp: r.LoggedAt,
		Details:   r.Details,
	}
	if r.Details.Quantity != nil {
		q := *r.Details.Quantity
		ev.Details.Quantity = &q
	}

	at, bad := optionalClock(r.Details.Time, r.LoggedAt, loc)
	if bad {
		return Event{}, false
	}
	start, bad := optionalClock(r.Details.StartTime, r.LoggedAt, loc)
	if bad {
		return Event{}, false
	}
	end, bad := optionalClock(r.Details.EndTime, r.LoggedAt, loc)
	if bad {
		return Event{}, false
	}

	switch r.Kind {
	case models.KindNap:
		s := r.LoggedAt
		if start != nil {
			s = *start
		} else if at != nil {
			s = *at
		}
		ev.Start = &s
		ev.Timestamp = s

		if end != nil {
			e := *end
			if e.Before(s) {
				e = e.Add(24 * time.Hour)
			}
			// An end in the future means the nap is still running
			if !e.After(asOf) {
				ev.End = &e
			}
		}

	case models.KindFeed:
		if at != nil {
			ev.Timestamp = *at
		}
		if start != nil {
			ev.Start = start
			if at == nil {
				ev.Timestamp = *start
			}
			if end != nil {
				e := *end
				if e.Before(*start) {
					e = e.Add(24 * time.Hour)
				}
				ev.End = &e
			}
		}

	default:
		if at != nil {
			ev.Timestamp = *at
		}
	}

	return ev, true
}

// normalizeRecords resolves all scheduling records, drops anything after asOf
// and returns the events most recent first.
func normalizeRecords(records []models.ActivityRecord, fallback *time.Location, asOf time.Time) []Event {
	events := make([]Event, 0, len(records))
	for i := range records {
		r := &records[i]
		if !r.IsSchedulingKind() {
			continue
		}
		ev, ok := normalizeRecord(r, fallback, asOf)
		if !ok {
			continue
		}
		if ev.Timestamp.After(asOf) {
			continue
		}
		events = append(events, ev)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	return events
}
