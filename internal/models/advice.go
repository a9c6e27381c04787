// Package models contains data structures used throughout the application
package models

import "time"

// Intent is the single "what to do next" recommendation
type Intent string

const (
	IntentFeedSoon         Intent = "FEED_SOON"
	IntentStartWindDown    Intent = "START_WIND_DOWN"
	IntentIndependentTime  Intent = "INDEPENDENT_TIME"
	IntentLetSleepContinue Intent = "LET_SLEEP_CONTINUE"
	IntentHold             Intent = "HOLD"
)

// ReevaluateMinutes returns how long the caller may wait before recomputing
func (i Intent) ReevaluateMinutes() int {
	switch i {
	case IntentFeedSoon:
		return 45
	case IntentLetSleepContinue:
		return 30
	default:
		return 10
	}
}

// Label returns a short human readable label for the intent
func (i Intent) Label() string {
	switch i {
	case IntentFeedSoon:
		return "Feed soon"
	case IntentStartWindDown:
		return "Start wind-down"
	case IntentIndependentTime:
		return "Independent time"
	case IntentLetSleepContinue:
		return "Let sleep continue"
	case IntentHold:
		return "Hold"
	default:
		return string(i)
	}
}

// ConfidenceLevel is the coarse confidence attached to a recommendation
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// DataStability classifies how far the child's own history can be trusted
type DataStability string

const (
	StabilitySparse   DataStability = "sparse"
	StabilityUnstable DataStability = "unstable"
	StabilityStable   DataStability = "stable"
)

// SleepKind classifies a sleep segment
type SleepKind string

const (
	SleepNap   SleepKind = "nap"
	SleepNight SleepKind = "night"
)

// PersonalizedParams are the thresholds the scorer works against. All values in minutes.
type PersonalizedParams struct {
	WakeWindowMin   float64 `json:"wakeWindowMin"`
	WakeWindowMax   float64 `json:"wakeWindowMax"`
	FeedIntervalMin float64 `json:"feedIntervalMin"`
	FeedIntervalMax float64 `json:"feedIntervalMax"`
	DaySleepTarget  float64 `json:"daySleepTarget"`
	ShortNapFloor   float64 `json:"shortNapFloor"`
}

// EngineInternals exposes what the engine learned, for diagnostics
type EngineInternals struct {
	WakeWindowMedian    float64            `json:"wakeWindowMedian"`
	WakeWindowStdDev    float64            `json:"wakeWindowStdDev"`
	FeedIntervalMedian  float64            `json:"feedIntervalMedian"`
	FeedIntervalStdDev  float64            `json:"feedIntervalStdDev"`
	DaySleepMedian      float64            `json:"daySleepMedian"`
	AverageNapMinutes   float64            `json:"averageNapMinutes"`
	WakeWindowSamples   int                `json:"wakeWindowSamples"`
	FeedIntervalSamples int                `json:"feedIntervalSamples"`
	DaySleepSamples     int                `json:"daySleepSamples"`
	DataStability       DataStability      `json:"dataStability"`
	BlendRatio          float64            `json:"blendRatio"` // Weight given to the age baseline
	AgeMonths           float64            `json:"ageMonths"`
	Baseline            PersonalizedParams `json:"baseline"`
	Adaptive            PersonalizedParams `json:"adaptive"`
}

// Timing holds absolute projections derived from a decision
type Timing struct {
	NextFeedAt         *time.Time `json:"nextFeedAt,omitempty"`
	ExpectedFeedVolume float64    `json:"expectedFeedVolume"` // ml, 0 if no measured feeds
	NextNapWindowAt    *time.Time `json:"nextNapWindowAt,omitempty"`
	NextWakeAt         *time.Time `json:"nextWakeAt,omitempty"` // Only while asleep
}

// CountRange is an expected min/max count for a day
type CountRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// DayProgress summarises today's activity against age-expected ranges
type DayProgress struct {
	Date          string     `json:"date"` // Local calendar day, YYYY-MM-DD
	Feeds         int        `json:"feeds"`
	Naps          int        `json:"naps"`
	Diapers       int        `json:"diapers"`
	ExpectedFeeds CountRange `json:"expectedFeeds"`
	ExpectedNaps  CountRange `json:"expectedNaps"`
	DaySleepMins  float64    `json:"daySleepMinutes"`
}

// DecisionFlags records the conditions that shaped a decision
type DecisionFlags struct {
	ClusterFeeding bool `json:"cluster_feeding"`
	ShortNap       bool `json:"short_nap"`
	DataGap        bool `json:"data_gap"`
	Night          bool `json:"night"`
	Conflict       bool `json:"conflict"`
	Illness        bool `json:"illness"`
	Asleep         bool `json:"asleep"`
}

// Rationale is the full numeric basis of a decision
type Rationale struct {
	FeedPressure       float64            `json:"feedPressure"`
	SleepPressure      float64            `json:"sleepPressure"`
	MinutesSinceFeed   *float64           `json:"minutesSinceFeed,omitempty"`
	MinutesAwake       *float64           `json:"minutesAwake,omitempty"`
	MinutesAsleep      *float64           `json:"minutesAsleep,omitempty"`
	CumulativeDaySleep float64            `json:"cumulativeDaySleep"`
	LastNapMinutes     *float64           `json:"lastNapMinutes,omitempty"`
	ConfidenceScore    float64            `json:"confidenceScore"`
	TieBreak           string             `json:"tieBreak,omitempty"`
	Flags              DecisionFlags      `json:"flags"`
	Params             PersonalizedParams `json:"params"`
}

// NextActionResult is the primary output of the engine
type NextActionResult struct {
	Intent              Intent          `json:"intent"`
	Confidence          ConfidenceLevel `json:"confidence"`
	Timing              Timing          `json:"timing"`
	Reasons             []string        `json:"reasons"`
	DayProgress         DayProgress     `json:"dayProgress"`
	Internals           EngineInternals `json:"internals"`
	Rationale           Rationale       `json:"rationale"`
	ReevaluateInMinutes int             `json:"reevaluate_in_minutes"`
	ComputedAt          time.Time       `json:"computedAt"`
}

// ScheduleEventType is the kind of block in a simulated day
type ScheduleEventType string

const (
	ScheduleWake ScheduleEventType = "wake"
	ScheduleNap  ScheduleEventType = "nap"
	ScheduleFeed ScheduleEventType = "feed"
	ScheduleBed  ScheduleEventType = "bed"
)

// ScheduleEvent is a single entry of an adaptive schedule
type ScheduleEvent struct {
	Time       time.Time         `json:"time"`
	Type       ScheduleEventType `json:"type"`
	Duration   *int              `json:"duration,omitempty"` // Minutes
	Confidence ConfidenceLevel   `json:"confidence"`
	Reasoning  string            `json:"reasoning"`
	Logged     bool              `json:"logged"` // True when taken from the activity log
}

// End returns the end of the block, or its start when it has no duration
func (e ScheduleEvent) End() time.Time {
	if e.Duration == nil {
		return e.Time
	}
	return e.Time.Add(time.Duration(*e.Duration) * time.Minute)
}

// AdaptiveSchedule is a simulated plan for the rest of the day
type AdaptiveSchedule struct {
	Events      []ScheduleEvent `json:"events"`
	Confidence  ConfidenceLevel `json:"confidence"`
	Basis       string          `json:"basis"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Truncated   bool            `json:"truncated"` // A cap ended the simulation early
}
