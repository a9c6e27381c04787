// Package models contains data structures used throughout the application
package models

import (
	"time"
)

// ActivityKind identifies what a caregiver logged
type ActivityKind string

// Activity kinds known to the advisor
const (
	KindFeed   ActivityKind = "feed"
	KindNap    ActivityKind = "nap"
	KindDiaper ActivityKind = "diaper"
	KindNote   ActivityKind = "note"
)

// Feed types
const (
	FeedBottle  = "bottle"
	FeedNursing = "nursing"
)

// ActivityRecord is a single logged care activity as received from the activity log.
// Records are owned by the caller and never mutated by the engine.
type ActivityRecord struct {
	ID       string          `json:"id"`
	Kind     ActivityKind    `json:"kind"`
	LoggedAt time.Time       `json:"loggedAt"`           // Absolute instant the entry was logged
	Timezone string          `json:"timezone,omitempty"` // IANA zone the caregiver logged in
	Details  ActivityDetails `json:"details"`
}

// ActivityDetails is the kind-specific payload of an activity record
type ActivityDetails struct {
	// Feed
	FeedType string   `json:"feedType,omitempty"` // "bottle", "nursing", "solids"
	Quantity *float64 `json:"quantity,omitempty"` // Volume, nil if not measured
	Unit     string   `json:"unit,omitempty"`     // "ml" or "oz"
	Time     string   `json:"time,omitempty"`     // Display wall-clock time, e.g. "14:30"

	// Nap / sleep, and timed nursing sessions
	StartTime  string `json:"startTime,omitempty"`
	EndTime    string `json:"endTime,omitempty"`
	NightSleep bool   `json:"nightSleep,omitempty"`

	// Diaper
	DiaperType string `json:"diaperType,omitempty"` // "wet", "dirty", "both"

	Note string `json:"note,omitempty"`
}

// IsSchedulingKind returns true for kinds that feed the scheduling engine.
// Notes and unknown kinds are informational only.
func (a *ActivityRecord) IsSchedulingKind() bool {
	switch a.Kind {
	case KindFeed, KindNap, KindDiaper:
		return true
	default:
		return false
	}
}

// Location returns the record's own time zone, or fallback when the label
// is empty or unknown.
func (a *ActivityRecord) Location(fallback *time.Location) *time.Location {
	if a.Timezone == "" {
		return fallback
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return fallback
	}
	return loc
}

// HasQuantity returns true if a numeric feed volume was recorded
func (d *ActivityDetails) HasQuantity() bool {
	return d.Quantity != nil
}

// QuantityML returns the recorded volume in millilitres, 0 if absent
func (d *ActivityDetails) QuantityML() float64 {
	if d.Quantity == nil {
		return 0
	}
	if d.Unit == "oz" {
		return *d.Quantity * 29.5735
	}
	return *d.Quantity
}

// Float returns a pointer to v, for building records with a quantity
func Float(v float64) *float64 {
	return &v
}
