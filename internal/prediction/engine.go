// Package prediction decides what a caregiver should do next and simulates
// the rest of the day from a child's activity log
package prediction

import (
	"log/slog"
	"time"

	"github.com/mrcode/nursery-advisor/internal/models"
)

// Default night window, local hours
const (
	DefaultNightStartHour = 19
	DefaultNightEndHour   = 7
)

// Options configure an Engine
type Options struct {
	BirthDate string         // YYYY-MM-DD, empty if unknown
	AsOf      time.Time      // Records after this instant are ignored
	Location  *time.Location // Zone for records without their own, nil = time.Local

	// Night window in local hours. Both zero means the defaults.
	NightStartHour int
	NightEndHour   int

	Logger *slog.Logger
}

// Engine holds everything derived from an activity log. It is immutable once
// built, so Decide and Schedule are safe for concurrent use and always return
// the same answer for the same instant.
type Engine struct {
	events   []Event        // Most recent first
	segments []SleepSegment // Oldest first
	feeds    []FeedEvent    // Oldest first

	baseline  models.PersonalizedParams
	adaptive  models.PersonalizedParams
	internals models.EngineInternals

	ageMonths float64
	ageKnown  bool

	asOf   time.Time
	loc    *time.Location
	night  nightWindow
	logger *slog.Logger
}

// NewEngine normalizes the records and learns the child's parameters.
// records is not modified.
func NewEngine(records []models.ActivityRecord, opts Options) *Engine {
	e := &Engine{
		asOf:   opts.AsOf,
		loc:    opts.Location,
		logger: opts.Logger,
		night:  nightWindow{StartHour: opts.NightStartHour, EndHour: opts.NightEndHour},
	}
	if e.loc == nil {
		e.loc = time.Local
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.night.StartHour == 0 && e.night.EndHour == 0 {
		e.night = nightWindow{StartHour: DefaultNightStartHour, EndHour: DefaultNightEndHour}
	}
	if e.asOf.IsZero() {
		e.asOf = time.Now()
	}

	if birth, ok := ParseBirthDate(opts.BirthDate, e.loc); ok {
		e.ageMonths = AgeMonths(birth, e.asOf)
		e.ageKnown = true
	}

	e.events = normalizeRecords(records, e.loc, e.asOf)
	e.segments = extractSegments(e.events, e.night, e.loc, e.asOf)
	e.closeStaleNights()
	e.feeds = extractFeeds(e.events)

	e.baseline = BaselineFor(e.ageMonths, e.ageKnown)
	e.adaptive, e.internals = learnParams(e.baseline, collectSamples(e.segments, e.feeds, e.asOf, e.loc))
	e.internals.AgeMonths = e.ageMonths

	e.logger.Debug("engine built",
		"records", len(records),
		"events", len(e.events),
		"segments", len(e.segments),
		"feeds", len(e.feeds),
		"stability", e.internals.DataStability,
		"age_months", e.ageMonths)

	return e
}

// Baseline returns the age baseline parameters
func (e *Engine) Baseline() models.PersonalizedParams {
	return e.baseline
}

// Adaptive returns the learned parameters the scorer uses
func (e *Engine) Adaptive() models.PersonalizedParams {
	return e.adaptive
}

// Internals returns the learning diagnostics
func (e *Engine) Internals() models.EngineInternals {
	return e.internals
}

// Events returns a copy of the normalized events, most recent first
func (e *Engine) Events() []Event {
	out := make([]Event, len(e.events))
	copy(out, e.events)
	return out
}

// Segments returns a copy of the sleep segments, oldest first
func (e *Engine) Segments() []SleepSegment {
	out := make([]SleepSegment, len(e.segments))
	copy(out, e.segments)
	return out
}

// Decide returns the next action at now. Events after now are ignored.
func (e *Engine) Decide(now time.Time) models.NextActionResult {
	s := e.snapshotAt(now)
	d := e.decide(s)

	result := models.NextActionResult{
		Intent:              d.intent,
		Confidence:          d.confidence,
		Timing:              e.projectTiming(s),
		Reasons:             d.reasons,
		DayProgress:         e.dayProgress(now),
		Internals:           e.internals,
		Rationale:           e.rationale(s, d),
		ReevaluateInMinutes: d.intent.ReevaluateMinutes(),
		ComputedAt:          now,
	}

	e.logger.Debug("decided",
		"now", now,
		"intent", d.intent,
		"confidence", d.confidence,
		"feed_pressure", d.feedPressure,
		"sleep_pressure", d.sleepPressure,
		"tie_break", d.tieBreak)

	return result
}

func (e *Engine) rationale(s snapshot, d decision) models.Rationale {
	r := models.Rationale{
		FeedPressure:       d.feedPressure,
		SleepPressure:      d.sleepPressure,
		CumulativeDaySleep: s.daySleep,
		LastNapMinutes:     s.lastNap,
		ConfidenceScore:    d.score,
		TieBreak:           d.tieBreak,
		Flags:              d.flags,
		Params:             e.adaptive,
	}
	if v, ok := s.minutesSinceFeed(); ok {
		r.MinutesSinceFeed = &v
	}
	if v, ok := s.minutesAwake(); ok {
		r.MinutesAwake = &v
	}
	if v, ok := s.minutesAsleep(); ok {
		r.MinutesAsleep = &v
	}
	return r
}
