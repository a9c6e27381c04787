package prediction

import "github.com/mrcode/nursery-advisor/internal/models"

const (
	// Used when no feed has been logged at all
	unknownFeedPressure = 0.8

	feedPressureScale  = 30.0 // minutes
	wakePressureScale  = 20.0
	sleepDebtScale     = 40.0
	wakePressureWeight = 0.55
	sleepDebtWeight    = 0.35

	clusterFeedFactor = 0.85
	nightFeedFactor   = 0.9
	illnessFeedFactor = 1.15

	shortNapBoost   = 0.15
	nightSleepBoost = 0.1
)

// feedPressure scores the urge to feed in [0,1]
func feedPressure(s snapshot, p models.PersonalizedParams, cluster, illness bool) float64 {
	since, ok := s.minutesSinceFeed()
	if !ok {
		return unknownFeedPressure
	}

	v := sigmoid((since - p.FeedIntervalMin) / feedPressureScale)
	if cluster {
		v *= clusterFeedFactor
	}
	if s.night {
		v *= nightFeedFactor
	}
	if illness {
		v *= illnessFeedFactor
	}
	return clamp(v, 0, 1)
}

// sleepPressure scores the urge to sleep in [0,1]. It is 0 while asleep or
// when nothing is known about the last wake-up.
func sleepPressure(s snapshot, p models.PersonalizedParams, shortNap bool) float64 {
	awake, ok := s.minutesAwake()
	if !ok {
		return 0
	}

	v := wakePressureWeight*sigmoid((awake-p.WakeWindowMax)/wakePressureScale) +
		sleepDebtWeight*sigmoid((p.DaySleepTarget-s.daySleep)/sleepDebtScale)
	if shortNap {
		v += shortNapBoost
	}
	if s.night {
		v += nightSleepBoost
	}
	return clamp(v, 0, 1)
}

// isClusterFeeding is true when at least two of the last three gaps were
// shorter than the minimum feed interval
func isClusterFeeding(gaps []float64, feedIntervalMin float64) bool {
	short := 0
	for i, g := range gaps {
		if i >= recentGapCount {
			break
		}
		if g < feedIntervalMin {
			short++
		}
	}
	return short >= 2
}

// isShortNap is true when the last completed nap was below the floor
func isShortNap(s snapshot, p models.PersonalizedParams) bool {
	return s.lastNap != nil && *s.lastNap < p.ShortNapFloor
}
