package prediction

import (
	"math"
	"strings"
	"time"

	"github.com/mrcode/nursery-advisor/internal/models"
)

// daysPerMonth converts an age in days to months
const daysPerMonth = 30.44

type ageBracket struct {
	belowMonths float64
	params      models.PersonalizedParams
}

// Age baselines, youngest first. Values in minutes.
var baselineBrackets = []ageBracket{
	{4, models.PersonalizedParams{
		WakeWindowMin: 45, WakeWindowMax: 90,
		FeedIntervalMin: 120, FeedIntervalMax: 180,
		DaySleepTarget: 300, ShortNapFloor: 30,
	}},
	{7, models.PersonalizedParams{
		WakeWindowMin: 90, WakeWindowMax: 150,
		FeedIntervalMin: 150, FeedIntervalMax: 210,
		DaySleepTarget: 210, ShortNapFloor: 40,
	}},
	{math.Inf(1), models.PersonalizedParams{
		WakeWindowMin: 150, WakeWindowMax: 240,
		FeedIntervalMin: 180, FeedIntervalMax: 240,
		DaySleepTarget: 150, ShortNapFloor: 45,
	}},
}

type lengthBand struct {
	belowMonths float64
	minutes     float64
}

// Typical nap length by age
var napLengthBands = []lengthBand{
	{3, 120},
	{6, 90},
	{12, 75},
	{math.Inf(1), 60},
}

// Typical night sleep length by age
var nightLengthBands = []lengthBand{
	{3, 8 * 60},
	{6, 10 * 60},
	{math.Inf(1), 11 * 60},
}

type countBand struct {
	belowMonths float64
	feeds       models.CountRange
	naps        models.CountRange
}

// Expected daily counts by age
var dayCountBands = []countBand{
	{1, models.CountRange{Min: 8, Max: 12}, models.CountRange{Min: 4, Max: 6}},
	{3, models.CountRange{Min: 7, Max: 9}, models.CountRange{Min: 3, Max: 5}},
	{6, models.CountRange{Min: 6, Max: 8}, models.CountRange{Min: 3, Max: 4}},
	{9, models.CountRange{Min: 5, Max: 6}, models.CountRange{Min: 2, Max: 3}},
	{12, models.CountRange{Min: 4, Max: 5}, models.CountRange{Min: 2, Max: 3}},
	{math.Inf(1), models.CountRange{Min: 3, Max: 4}, models.CountRange{Min: 1, Max: 2}},
}

// ParseBirthDate accepts YYYY-MM-DD or RFC3339. ok is false for empty or
// malformed values.
func ParseBirthDate(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.ParseInLocation("2006-01-02", value, loc); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// AgeMonths returns the age at the given instant in months. A future birth
// date yields 0.
func AgeMonths(birth, at time.Time) float64 {
	days := at.Sub(birth).Hours() / 24
	if days < 0 {
		return 0
	}
	return days / daysPerMonth
}

// BaselineFor returns the age baseline. Unknown ages use the youngest bracket.
func BaselineFor(ageMonths float64, known bool) models.PersonalizedParams {
	if !known {
		return baselineBrackets[0].params
	}
	for _, b := range baselineBrackets {
		if ageMonths < b.belowMonths {
			return b.params
		}
	}
	return baselineBrackets[len(baselineBrackets)-1].params
}

func lookupLength(bands []lengthBand, ageMonths float64, known bool) float64 {
	if !known {
		return bands[0].minutes
	}
	for _, b := range bands {
		if ageMonths < b.belowMonths {
			return b.minutes
		}
	}
	return bands[len(bands)-1].minutes
}

func expectedCounts(ageMonths float64, known bool) (feeds, naps models.CountRange) {
	if !known {
		return dayCountBands[0].feeds, dayCountBands[0].naps
	}
	for _, b := range dayCountBands {
		if ageMonths < b.belowMonths {
			return b.feeds, b.naps
		}
	}
	last := dayCountBands[len(dayCountBands)-1]
	return last.feeds, last.naps
}
