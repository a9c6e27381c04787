package prediction

import (
	"fmt"
	"math"

	"github.com/mrcode/nursery-advisor/internal/models"
)

const (
	// Beyond this the log is assumed to be missing feeds
	dataGapMinutes = 360.0

	feedThreshold  = 0.55
	sleepThreshold = 0.60
	pressureMargin = 0.08

	progressThreshold = 0.8
	shortNapWakeShare = 0.75

	conflictPenalty = 0.05
	dataGapPenalty  = 0.10
	minConfidence   = 0.2
	maxConfidence   = 0.95
	asleepScore     = 0.95

	highConfidence          = 0.7
	unstableMediumThreshold = 0.6
	sparseMediumThreshold   = 0.45
)

// Tie-break labels reported in the rationale
const (
	tieFeedOverdue        = "feed_overdue"
	tieWakeWindowOver     = "wake_window_exceeded"
	tieShortNapRecovery   = "short_nap_recovery"
	tieFeedFurther        = "feed_further_along"
	tieSleepFurther       = "sleep_further_along"
	tieFeedProgress       = "feed_progress"
	tieSleepProgress      = "sleep_progress"
	tieNoClearNeed        = "no_clear_need"
	tieNoWakeHistory      = "no_wake_history"
	tieNightOverride      = "night_override"
	tieWakeWindowOverride = "wake_window_override"
)

// decision is the outcome of the decision core for one snapshot
type decision struct {
	intent        models.Intent
	confidence    models.ConfidenceLevel
	score         float64
	feedPressure  float64
	sleepPressure float64
	tieBreak      string
	flags         models.DecisionFlags
	reasons       []string
}

// decide runs the scorer and rule set against a snapshot. It depends only on
// the snapshot and the engine's immutable parameters.
func (e *Engine) decide(s snapshot) decision {
	p := e.adaptive
	stability := e.internals.DataStability

	d := decision{}
	d.flags.Night = s.night
	d.flags.ClusterFeeding = isClusterFeeding(s.feedGaps, p.FeedIntervalMin)
	d.flags.ShortNap = isShortNap(s, p)

	if s.asleep() {
		d.intent = models.IntentLetSleepContinue
		d.confidence = models.ConfidenceHigh
		d.score = asleepScore
		d.flags.Asleep = true
		asleepFor, _ := s.minutesAsleep()
		d.reasons = append(d.reasons, fmt.Sprintf("Asleep for %s (%s)", formatMinutes(asleepFor), s.sleep.Kind))
		return d
	}

	d.feedPressure = feedPressure(s, p, d.flags.ClusterFeeding, d.flags.Illness)
	d.sleepPressure = sleepPressure(s, p, d.flags.ShortNap)
	d.reasons = describe(s, p)

	since, feedKnown := s.minutesSinceFeed()
	if !feedKnown || since > dataGapMinutes {
		d.intent = models.IntentFeedSoon
		d.confidence = models.ConfidenceLow
		d.flags.DataGap = true
		d.score = confidenceScore(d.feedPressure, d.sleepPressure, false, true, stability)
		d.reasons = append([]string{"No feed logged in the last 6 hours, check the log"}, d.reasons...)
		return d
	}

	switch {
	case d.feedPressure >= feedThreshold && d.feedPressure-d.sleepPressure > pressureMargin:
		d.intent = models.IntentFeedSoon
	case d.sleepPressure >= sleepThreshold && d.sleepPressure-d.feedPressure > pressureMargin:
		d.intent = models.IntentStartWindDown
	default:
		d.flags.Conflict = true
		d.intent, d.tieBreak = breakTie(s, p)
	}

	awake, awakeKnown := s.minutesAwake()
	if s.night && (d.intent == models.IntentIndependentTime || d.intent == models.IntentHold) {
		d.intent = models.IntentStartWindDown
		d.tieBreak = tieNightOverride
	}
	if d.intent == models.IntentFeedSoon && d.feedPressure < feedThreshold && awakeKnown && awake > p.WakeWindowMax {
		d.intent = models.IntentStartWindDown
		d.tieBreak = tieWakeWindowOverride
	}

	d.score = confidenceScore(d.feedPressure, d.sleepPressure, d.flags.Conflict, false, stability)
	d.confidence = confidenceLevel(d.score, d.flags.Conflict, stability)
	return d
}

// breakTie resolves the conflict zone where neither pressure clearly wins
func breakTie(s snapshot, p models.PersonalizedParams) (models.Intent, string) {
	since, _ := s.minutesSinceFeed()
	awake, awakeKnown := s.minutesAwake()

	if since > p.FeedIntervalMax {
		return models.IntentFeedSoon, tieFeedOverdue
	}
	if awakeKnown && awake > p.WakeWindowMax {
		return models.IntentStartWindDown, tieWakeWindowOver
	}
	if awakeKnown && s.lastNap != nil && *s.lastNap <= p.ShortNapFloor && awake >= shortNapWakeShare*p.WakeWindowMax {
		return models.IntentStartWindDown, tieShortNapRecovery
	}

	feedProgress := since / p.FeedIntervalMax
	sleepProgress := 0.0
	if awakeKnown {
		sleepProgress = awake / p.WakeWindowMax
	}

	switch {
	case feedProgress > progressThreshold && sleepProgress > progressThreshold:
		if sleepProgress > feedProgress {
			return models.IntentStartWindDown, tieSleepFurther
		}
		return models.IntentFeedSoon, tieFeedFurther
	case feedProgress > progressThreshold:
		return models.IntentFeedSoon, tieFeedProgress
	case sleepProgress > progressThreshold:
		return models.IntentStartWindDown, tieSleepProgress
	case !awakeKnown:
		return models.IntentHold, tieNoWakeHistory
	default:
		return models.IntentIndependentTime, tieNoClearNeed
	}
}

func confidenceScore(feed, sleep float64, conflict, dataGap bool, stability models.DataStability) float64 {
	score := math.Max(feed, sleep)
	if conflict && stability != models.StabilityStable {
		score -= conflictPenalty
	}
	if dataGap {
		score -= dataGapPenalty
	}
	return clamp(score, minConfidence, maxConfidence)
}

func confidenceLevel(score float64, conflict bool, stability models.DataStability) models.ConfidenceLevel {
	switch {
	case score >= highConfidence && !conflict && stability == models.StabilityStable:
		return models.ConfidenceHigh
	case stability == models.StabilityStable:
		return models.ConfidenceMedium
	case stability == models.StabilityUnstable && score >= unstableMediumThreshold:
		return models.ConfidenceMedium
	case stability == models.StabilitySparse && score >= sparseMediumThreshold:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// describe builds the human readable reasons for an awake snapshot
func describe(s snapshot, p models.PersonalizedParams) []string {
	var reasons []string

	if since, ok := s.minutesSinceFeed(); ok {
		reasons = append(reasons, fmt.Sprintf("Last feed %s ago (usual gap %s to %s)",
			formatMinutes(since), formatMinutes(p.FeedIntervalMin), formatMinutes(p.FeedIntervalMax)))
	}
	if awake, ok := s.minutesAwake(); ok {
		reasons = append(reasons, fmt.Sprintf("Awake for %s (wake window %s to %s)",
			formatMinutes(awake), formatMinutes(p.WakeWindowMin), formatMinutes(p.WakeWindowMax)))
	} else {
		reasons = append(reasons, "No recent sleep logged")
	}
	if s.lastNap != nil && *s.lastNap < p.ShortNapFloor {
		reasons = append(reasons, fmt.Sprintf("Last nap was short (%s)", formatMinutes(*s.lastNap)))
	}
	if isClusterFeeding(s.feedGaps, p.FeedIntervalMin) {
		reasons = append(reasons, "Feeds are clustering")
	}
	reasons = append(reasons, fmt.Sprintf("Day sleep so far %s of %s", formatMinutes(s.daySleep), formatMinutes(p.DaySleepTarget)))
	if s.night {
		reasons = append(reasons, "It is night time")
	}
	return reasons
}

// formatMinutes renders minutes as "45m" or "2h05m"
func formatMinutes(m float64) string {
	total := int(math.Round(m))
	if total < 0 {
		total = 0
	}
	if total < 60 {
		return fmt.Sprintf("%dm", total)
	}
	return fmt.Sprintf("%dh%02dm", total/60, total%60)
}
