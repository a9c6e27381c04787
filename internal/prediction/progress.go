package prediction

import (
	"time"

	"github.com/mrcode/nursery-advisor/internal/models"
)

// dayProgress counts today's activity up to now against the age ranges
func (e *Engine) dayProgress(now time.Time) models.DayProgress {
	local := now.In(e.loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, e.loc)

	dp := models.DayProgress{Date: local.Format("2006-01-02")}
	dp.ExpectedFeeds, dp.ExpectedNaps = expectedCounts(e.ageMonths, e.ageKnown)

	for _, ev := range e.events {
		if ev.Timestamp.After(now) {
			continue
		}
		if ev.Timestamp.Before(dayStart) {
			break
		}
		switch ev.Kind {
		case models.KindFeed:
			dp.Feeds++
		case models.KindDiaper:
			dp.Diapers++
		}
	}

	for _, seg := range e.segments {
		if seg.Kind != models.SleepNap || seg.End == nil || seg.End.After(now) {
			continue
		}
		if seg.Start.Before(dayStart) {
			continue
		}
		dp.Naps++
		dp.DaySleepMins += seg.Minutes()
	}

	return dp
}
