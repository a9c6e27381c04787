package prediction

import (
	"fmt"
	"sort"
	"time"

	"github.com/mrcode/nursery-advisor/internal/models"
)

const (
	maxScheduleNaps   = 5
	maxScheduleFeeds  = 10
	maxScheduleEvents = 20

	// Hard stop for the simulation loop. Every step but one advances the
	// clock by at least minSimulationAdvance, so a day never needs this many.
	maxSimulationSteps = 400

	simulationStep       = 30 * time.Minute
	minSimulationAdvance = 5 * time.Minute
	minFeedSpacing       = 60 * time.Minute
	minNapRemaining      = 30 * time.Minute
	plannedNapMinutes    = 90

	dayCutoffHour    = 22
	bedtimeHour      = 19
	bedtimeMinute    = 30
	bedtimeFeedLead  = 30 * time.Minute
	bedtimeSlotCount = 2
)

// Schedule simulates the rest of the local day containing now. Logged
// activity is reported as-is and the remainder is projected by replaying the
// decision core against a virtual state of the day.
func (e *Engine) Schedule(now time.Time) models.AdaptiveSchedule {
	local := now.In(e.loc)
	y, m, d := local.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, e.loc)
	// Wall-clock times, so DST days get the same local cutoff
	cutoff := time.Date(y, m, d, dayCutoffHour, 0, 0, 0, e.loc)
	noon := time.Date(y, m, d, 12, 0, 0, 0, e.loc)
	bedtime := time.Date(y, m, d, bedtimeHour, bedtimeMinute, 0, 0, e.loc)

	overall := scheduleConfidence(e.internals.DataStability)
	sched := models.AdaptiveSchedule{
		Confidence:  overall,
		Basis:       e.basis(),
		GeneratedAt: now,
	}

	current := e.snapshotAt(now)

	// Already down for the night: nothing left to plan
	if current.sleep != nil && current.sleep.Kind == models.SleepNight && !current.sleep.Start.Before(noon) {
		sched.Events = append(sched.Events, e.loggedEvents(dayStart, earlierOf(current.sleep.Start, cutoff), now)...)
		if !current.sleep.Start.After(cutoff) {
			sched.Events = append(sched.Events, models.ScheduleEvent{
				Time:       current.sleep.Start,
				Type:       models.ScheduleBed,
				Confidence: models.ConfidenceHigh,
				Reasoning:  "Down for the night",
				Logged:     true,
			})
		}
		sched.Events, sched.Truncated = capEvents(sched.Events)
		return sched
	}

	wake := e.dayWake(current, dayStart, now, overall)
	if wake.Time.After(cutoff) {
		wake.Time = cutoff
	}
	sched.Events = append(sched.Events, wake)
	sched.Events = append(sched.Events, e.loggedEvents(wake.Time, earlierOf(now, cutoff), now)...)

	bedtimePending := now.Before(bedtime)
	end := cutoff
	eventCap := maxScheduleEvents
	feedCap := maxScheduleFeeds
	if bedtimePending {
		end = bedtime.Add(-bedtimeFeedLead)
		eventCap -= bedtimeSlotCount
		feedCap--
	}

	sim := &simulation{
		engine:   e,
		clock:    laterOf(wake.Time, now),
		end:      end,
		events:   sched.Events,
		eventCap: eventCap,
		feedCap:  feedCap,
		napCap:   maxScheduleNaps,
	}
	sim.state = current.startedDayAt(wake.Time).at(sim.clock, e.night, e.loc)
	for _, ev := range sched.Events {
		switch ev.Type {
		case models.ScheduleFeed:
			sim.feeds++
			sim.lastFeed = ev.Time
		case models.ScheduleNap:
			sim.naps++
		}
	}
	sim.run()

	sched.Events = sim.events
	sched.Truncated = sim.truncated

	if bedtimePending {
		feedAt := bedtime.Add(-bedtimeFeedLead)
		sched.Events = append(sched.Events,
			models.ScheduleEvent{
				Time:       feedAt,
				Type:       models.ScheduleFeed,
				Confidence: overall,
				Reasoning:  "Bedtime feed",
			},
			models.ScheduleEvent{
				Time:       bedtime,
				Type:       models.ScheduleBed,
				Confidence: overall,
				Reasoning:  "Bedtime",
			})
	}

	sort.SliceStable(sched.Events, func(i, j int) bool {
		return sched.Events[i].Time.Before(sched.Events[j].Time)
	})
	var capped bool
	sched.Events, capped = capEvents(sched.Events)
	sched.Truncated = sched.Truncated || capped

	e.logger.Debug("schedule simulated",
		"now", now,
		"events", len(sched.Events),
		"steps", sim.steps,
		"truncated", sched.Truncated)

	return sched
}

// dayWake decides when the day started
func (e *Engine) dayWake(current snapshot, dayStart, now time.Time, overall models.ConfidenceLevel) models.ScheduleEvent {
	// Still in the overnight sleep
	if current.sleep != nil && current.sleep.Kind == models.SleepNight {
		at := laterOf(e.projectWake(*current.sleep), now)
		return models.ScheduleEvent{
			Time:       at,
			Type:       models.ScheduleWake,
			Confidence: overall,
			Reasoning:  "Expected end of night sleep",
		}
	}

	// Logged end of the night
	var morning *time.Time
	for _, seg := range e.segments {
		if seg.Kind != models.SleepNight || seg.End == nil {
			continue
		}
		if seg.End.Before(dayStart) || seg.End.After(now) {
			continue
		}
		end := *seg.End
		morning = &end
	}
	if morning != nil {
		return models.ScheduleEvent{
			Time:       *morning,
			Type:       models.ScheduleWake,
			Confidence: models.ConfidenceHigh,
			Reasoning:  "Woke up for the day",
			Logged:     true,
		}
	}

	y, m, d := dayStart.Date()
	at := time.Date(y, m, d, e.night.EndHour, 0, 0, 0, e.loc)
	for i := len(e.events) - 1; i >= 0; i-- {
		ts := e.events[i].Timestamp
		if ts.Before(dayStart) || ts.After(now) {
			continue
		}
		if ts.Before(at) {
			at = ts
		}
		break
	}
	return models.ScheduleEvent{
		Time:       at,
		Type:       models.ScheduleWake,
		Confidence: overall,
		Reasoning:  "Assumed start of the day",
	}
}

// loggedEvents reports logged feeds and naps completed by now that started in [from, to]
func (e *Engine) loggedEvents(from, to, now time.Time) []models.ScheduleEvent {
	var out []models.ScheduleEvent

	for _, f := range e.feeds {
		if f.Timestamp.Before(from) || f.Timestamp.After(to) || f.Timestamp.After(now) {
			continue
		}
		reason := "Logged feed"
		if f.Volume > 0 {
			reason = fmt.Sprintf("Logged %s feed, %.0f ml", f.Type, f.Volume)
		}
		out = append(out, models.ScheduleEvent{
			Time:       f.Timestamp,
			Type:       models.ScheduleFeed,
			Confidence: models.ConfidenceHigh,
			Reasoning:  reason,
			Logged:     true,
		})
	}

	for _, seg := range e.segments {
		if seg.Kind != models.SleepNap || seg.End == nil || seg.End.After(now) {
			continue
		}
		if seg.Start.Before(from) || seg.Start.After(to) {
			continue
		}
		minutes := int(seg.Minutes())
		out = append(out, models.ScheduleEvent{
			Time:       seg.Start,
			Type:       models.ScheduleNap,
			Duration:   &minutes,
			Confidence: models.ConfidenceHigh,
			Reasoning:  "Logged nap",
			Logged:     true,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})
	return out
}

// simulation replays the decision core against a virtual day. Each call to
// step handles one decision and moves the clock forward.
type simulation struct {
	engine *Engine
	state  snapshot
	clock  time.Time
	end    time.Time

	events   []models.ScheduleEvent
	naps     int
	feeds    int
	lastFeed time.Time

	eventCap int
	feedCap  int
	napCap   int

	steps     int
	done      bool
	truncated bool
}

func (s *simulation) run() {
	for s.step() {
	}
}

// step advances the simulation once. It returns false when finished.
func (s *simulation) step() bool {
	if s.done || !s.clock.Before(s.end) {
		return false
	}
	if s.steps >= maxSimulationSteps || len(s.events) >= s.eventCap {
		s.truncated = true
		return false
	}
	s.steps++

	e := s.engine
	s.state = s.state.at(s.clock, e.night, e.loc)
	d := e.decide(s.state)

	switch d.intent {
	case models.IntentLetSleepContinue:
		s.finishSleep(d)

	case models.IntentFeedSoon:
		if s.feeds < s.feedCap && (s.lastFeed.IsZero() || s.clock.Sub(s.lastFeed) >= minFeedSpacing) {
			s.emit(models.ScheduleEvent{
				Time:       s.clock,
				Type:       models.ScheduleFeed,
				Confidence: d.confidence,
				Reasoning:  firstReason(d, "Feed due"),
			})
			s.feeds++
			s.lastFeed = s.clock
			s.state = s.state.fedAt(s.clock)
		} else if s.feeds >= s.feedCap {
			s.truncated = true
		}
		s.advance(simulationStep)

	case models.IntentStartWindDown:
		s.windDown(d)

	default:
		s.advance(simulationStep)
	}

	return true
}

// finishSleep closes the ongoing sleep at its projected end. The virtual
// state never falls asleep again, so this runs at most once.
func (s *simulation) finishSleep(d decision) {
	seg := *s.state.sleep
	wake := laterOf(s.engine.projectWake(seg), s.clock)

	if seg.Kind == models.SleepNap {
		if s.naps < s.napCap {
			minutes := int(minutesBetween(seg.Start, wake))
			s.emit(models.ScheduleEvent{
				Time:       seg.Start,
				Type:       models.ScheduleNap,
				Duration:   &minutes,
				Confidence: d.confidence,
				Reasoning:  "Current nap, expected wake " + wake.In(s.engine.loc).Format("15:04"),
			})
			s.naps++
		} else {
			s.truncated = true
		}
	}

	s.state = s.state.wokeAt(wake)
	s.clock = wake
}

func (s *simulation) windDown(d decision) {
	e := s.engine
	windowAt := s.clock
	if awake, ok := s.state.minutesAwake(); ok {
		windowAt = notBefore(s.clock.Add(minutesDuration(e.adaptive.WakeWindowMax-awake)), s.clock)
	}

	if windowAt.After(s.clock) {
		s.clock = laterOf(windowAt, s.clock.Add(minSimulationAdvance))
		return
	}

	if s.evening() {
		s.emit(models.ScheduleEvent{
			Time:       s.clock,
			Type:       models.ScheduleBed,
			Confidence: d.confidence,
			Reasoning:  "Night sleep",
		})
		s.done = true
		return
	}

	remaining := s.end.Sub(s.clock)
	if s.naps >= s.napCap || remaining < minNapRemaining {
		if s.naps >= s.napCap {
			s.truncated = true
		}
		s.advance(simulationStep)
		return
	}

	minutes := plannedNapMinutes
	if remaining < time.Duration(minutes)*time.Minute {
		minutes = int(remaining.Minutes())
	}
	s.emit(models.ScheduleEvent{
		Time:       s.clock,
		Type:       models.ScheduleNap,
		Duration:   &minutes,
		Confidence: d.confidence,
		Reasoning:  firstReason(d, "Nap window open"),
	})
	s.naps++
	s.state = s.state.nappedAt(s.clock, float64(minutes))
	s.advance(time.Duration(minutes) * time.Minute)
}

// evening is true once the night window has started on the simulated day
func (s *simulation) evening() bool {
	return s.state.night && s.clock.In(s.engine.loc).Hour() >= 12
}

func (s *simulation) emit(ev models.ScheduleEvent) {
	s.events = append(s.events, ev)
}

func (s *simulation) advance(d time.Duration) {
	if d < minSimulationAdvance {
		d = minSimulationAdvance
	}
	s.clock = s.clock.Add(d)
}

func firstReason(d decision, fallback string) string {
	if len(d.reasons) == 0 {
		return fallback
	}
	return fallback + ": " + d.reasons[0]
}

// capEvents enforces the nap, feed and overall event caps, keeping the
// earliest events. events must be in time order.
func capEvents(events []models.ScheduleEvent) ([]models.ScheduleEvent, bool) {
	out := make([]models.ScheduleEvent, 0, len(events))
	naps, feeds := 0, 0
	dropped := false
	for _, ev := range events {
		switch {
		case len(out) >= maxScheduleEvents:
			dropped = true
			continue
		case ev.Type == models.ScheduleNap && naps >= maxScheduleNaps:
			dropped = true
			continue
		case ev.Type == models.ScheduleFeed && feeds >= maxScheduleFeeds:
			dropped = true
			continue
		}
		switch ev.Type {
		case models.ScheduleNap:
			naps++
		case models.ScheduleFeed:
			feeds++
		}
		out = append(out, ev)
	}
	return out, dropped
}

func scheduleConfidence(stability models.DataStability) models.ConfidenceLevel {
	switch stability {
	case models.StabilityStable:
		return models.ConfidenceHigh
	case models.StabilityUnstable:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

func (e *Engine) basis() string {
	in := e.internals
	age := "unknown age"
	if e.ageKnown {
		age = fmt.Sprintf("%.1f months", e.ageMonths)
	}
	return fmt.Sprintf("%s, %s history (%d wake windows, %d feed gaps), wake window %s to %s, feeds every %s to %s",
		age, in.DataStability, in.WakeWindowSamples, in.FeedIntervalSamples,
		formatMinutes(e.adaptive.WakeWindowMin), formatMinutes(e.adaptive.WakeWindowMax),
		formatMinutes(e.adaptive.FeedIntervalMin), formatMinutes(e.adaptive.FeedIntervalMax))
}

func earlierOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
