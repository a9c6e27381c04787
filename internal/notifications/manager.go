// Package notifications handles desktop alerts when the recommended next action changes
package notifications

import (
	"fmt"
	"sync"
	"time"

	"github.com/mrcode/nursery-advisor/internal/models"
)

// Alert type constants
const (
	alertFeed     = "feed"
	alertDataGap  = "data_gap"
	alertWindDown = "wind_down"
	alertWake     = "wake"
)

// wakeLead is how close a projected wake must be before the wake alert fires
const wakeLead = 15 * time.Minute

// Manager turns recommendations into alerts, suppressing repeats
type Manager struct {
	settings      *models.Settings
	sender        Sender
	active        string
	lastAlertTime map[string]time.Time
	mu            sync.Mutex
}

// NewManager creates a new notification manager. A nil sender uses the
// platform default.
func NewManager(settings *models.Settings, sender Sender) *Manager {
	if sender == nil {
		sender = NewDesktopSender(settings.EnableSoundAlerts)
	}
	return &Manager{
		settings:      settings,
		sender:        sender,
		lastAlertTime: make(map[string]time.Time),
	}
}

// UpdateSettings updates the settings reference
func (m *Manager) UpdateSettings(settings *models.Settings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = settings
}

// CheckAndNotify sends an alert for result if its intent warrants one.
// An alert fires when the alert type changes and then again every
// RepeatAlertMinutes while it persists. Returns true if an alert was sent.
func (m *Manager) CheckAndNotify(result *models.NextActionResult) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	alertType := m.shouldAlert(result)
	if alertType != m.active {
		m.lastAlertTime = make(map[string]time.Time)
		m.active = alertType
	}
	if alertType == "" {
		return false, nil
	}

	now := result.ComputedAt
	if lastTime, ok := m.lastAlertTime[alertType]; ok {
		if m.settings.RepeatAlertMinutes <= 0 {
			return false, nil
		}
		if now.Sub(lastTime) < time.Duration(m.settings.RepeatAlertMinutes)*time.Minute {
			return false, nil
		}
	}

	title, message := m.formatNotification(result, alertType)
	if err := m.sender.Send(title, message, alertType == alertDataGap); err != nil {
		return false, fmt.Errorf("sending %s alert: %w", alertType, err)
	}

	m.lastAlertTime[alertType] = now
	return true, nil
}

// shouldAlert determines which alert, if any, a recommendation raises
func (m *Manager) shouldAlert(result *models.NextActionResult) string {
	switch result.Intent {
	case models.IntentFeedSoon:
		if result.Rationale.Flags.DataGap && m.settings.UrgentDataGapAlerts {
			return alertDataGap
		}
		if m.settings.EnableFeedAlert {
			return alertFeed
		}
	case models.IntentStartWindDown:
		if m.settings.EnableWindDownAlert {
			return alertWindDown
		}
	case models.IntentLetSleepContinue:
		wake := result.Timing.NextWakeAt
		if m.settings.EnableWakeAlert && wake != nil && !wake.After(result.ComputedAt.Add(wakeLead)) {
			return alertWake
		}
	}
	return ""
}

// formatNotification creates the notification title and message
func (m *Manager) formatNotification(result *models.NextActionResult, alertType string) (string, string) {
	name := m.settings.ChildName
	if name == "" {
		name = "Baby"
	}

	var title, message string
	switch alertType {
	case alertDataGap:
		title = "⚠️ No feed logged"
		message = fmt.Sprintf("No feed recorded for %s in over six hours. Feed now and log it.", name)
	case alertFeed:
		title = "🍼 Feed soon"
		message = fmt.Sprintf("%s is due a feed", name)
		if result.Timing.ExpectedFeedVolume > 0 {
			message += fmt.Sprintf(", about %.0f ml", result.Timing.ExpectedFeedVolume)
		}
	case alertWindDown:
		title = "🌙 Start wind-down"
		message = fmt.Sprintf("%s is getting tired", name)
		if result.Timing.NextNapWindowAt != nil {
			message += ", sleep window at " + result.Timing.NextNapWindowAt.Format("15:04")
		}
	case alertWake:
		title = "☀️ Waking soon"
		message = fmt.Sprintf("%s is expected to wake", name)
		if result.Timing.NextWakeAt != nil {
			message += " around " + result.Timing.NextWakeAt.Format("15:04")
		}
	}

	if len(result.Reasons) > 0 {
		message += "\n" + result.Reasons[0]
	}
	return title, message
}

// ClearAlertState clears the alert state for a specific type or all types
func (m *Manager) ClearAlertState(alertType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if alertType == "" {
		m.lastAlertTime = make(map[string]time.Time)
		m.active = ""
	} else {
		delete(m.lastAlertTime, alertType)
	}
}

// SendTestNotification sends a test notification
func (m *Manager) SendTestNotification() error {
	return m.sender.Send("Nursery Advisor", "Test notification - alerts are working!", false)
}
