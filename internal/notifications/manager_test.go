package notifications

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mrcode/nursery-advisor/internal/models"
)

type sent struct {
	title, message string
	urgent         bool
}

type fakeSender struct {
	sent []sent
	err  error
}

func (f *fakeSender) Send(title, message string, urgent bool) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sent{title, message, urgent})
	return nil
}

var base = time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)

func result(intent models.Intent, offset time.Duration) *models.NextActionResult {
	return &models.NextActionResult{
		Intent:     intent,
		ComputedAt: base.Add(offset),
		Reasons:    []string{"test reason"},
	}
}

func TestManager_shouldAlert(t *testing.T) {
	settings := models.DefaultSettings()
	settings.EnableWakeAlert = true
	manager := NewManager(settings, &fakeSender{})

	soonWake := base.Add(10 * time.Minute)
	lateWake := base.Add(time.Hour)

	tests := []struct {
		name     string
		result   *models.NextActionResult
		expected string
	}{
		{"Feed", result(models.IntentFeedSoon, 0), alertFeed},
		{"Data gap", &models.NextActionResult{Intent: models.IntentFeedSoon, Rationale: models.Rationale{Flags: models.DecisionFlags{DataGap: true}}}, alertDataGap},
		{"Wind-down", result(models.IntentStartWindDown, 0), alertWindDown},
		{"Wake close", &models.NextActionResult{Intent: models.IntentLetSleepContinue, ComputedAt: base, Timing: models.Timing{NextWakeAt: &soonWake}}, alertWake},
		{"Wake far off", &models.NextActionResult{Intent: models.IntentLetSleepContinue, ComputedAt: base, Timing: models.Timing{NextWakeAt: &lateWake}}, ""},
		{"Independent time", result(models.IntentIndependentTime, 0), ""},
		{"Hold", result(models.IntentHold, 0), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := manager.shouldAlert(tt.result)
			if got != tt.expected {
				t.Errorf("shouldAlert() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestManager_shouldAlert_Disabled(t *testing.T) {
	settings := models.DefaultSettings()
	settings.EnableFeedAlert = false
	settings.EnableWindDownAlert = false
	settings.UrgentDataGapAlerts = false
	manager := NewManager(settings, &fakeSender{})

	for _, intent := range []models.Intent{models.IntentFeedSoon, models.IntentStartWindDown} {
		if got := manager.shouldAlert(result(intent, 0)); got != "" {
			t.Errorf("shouldAlert(%s) = %q, want empty (disabled)", intent, got)
		}
	}

	gap := result(models.IntentFeedSoon, 0)
	gap.Rationale.Flags.DataGap = true
	if got := manager.shouldAlert(gap); got != "" {
		t.Errorf("shouldAlert(data gap) = %q, want empty (disabled)", got)
	}
}

func TestManager_CheckAndNotify_Transitions(t *testing.T) {
	settings := models.DefaultSettings()
	settings.RepeatAlertMinutes = 30
	sender := &fakeSender{}
	manager := NewManager(settings, sender)

	steps := []struct {
		intent models.Intent
		offset time.Duration
		alert  bool
	}{
		{models.IntentIndependentTime, 0, false},
		{models.IntentFeedSoon, 10 * time.Minute, true},
		{models.IntentFeedSoon, 20 * time.Minute, false}, // Within the repeat interval
		{models.IntentFeedSoon, 40 * time.Minute, true},  // Repeat
		{models.IntentStartWindDown, 45 * time.Minute, true},
		{models.IntentFeedSoon, 50 * time.Minute, true}, // New transition, not a repeat
	}

	for i, step := range steps {
		fired, err := manager.CheckAndNotify(result(step.intent, step.offset))
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if fired != step.alert {
			t.Errorf("step %d (%s): fired = %v, want %v", i, step.intent, fired, step.alert)
		}
	}
	if len(sender.sent) != 4 {
		t.Errorf("sent %d alerts, want 4", len(sender.sent))
	}
}

func TestManager_CheckAndNotify_NoRepeat(t *testing.T) {
	settings := models.DefaultSettings()
	settings.RepeatAlertMinutes = 0
	sender := &fakeSender{}
	manager := NewManager(settings, sender)

	for _, offset := range []time.Duration{0, time.Hour, 3 * time.Hour} {
		if _, err := manager.CheckAndNotify(result(models.IntentFeedSoon, offset)); err != nil {
			t.Fatal(err)
		}
	}
	if len(sender.sent) != 1 {
		t.Errorf("sent %d alerts, want 1 with repeats disabled", len(sender.sent))
	}
}

func TestManager_CheckAndNotify_UrgentDataGap(t *testing.T) {
	sender := &fakeSender{}
	manager := NewManager(models.DefaultSettings(), sender)

	gap := result(models.IntentFeedSoon, 0)
	gap.Rationale.Flags.DataGap = true
	if _, err := manager.CheckAndNotify(gap); err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 1 || !sender.sent[0].urgent {
		t.Errorf("sent = %+v, want one urgent alert", sender.sent)
	}
}

func TestManager_CheckAndNotify_SendError(t *testing.T) {
	sender := &fakeSender{err: errors.New("no notifier")}
	manager := NewManager(models.DefaultSettings(), sender)

	fired, err := manager.CheckAndNotify(result(models.IntentFeedSoon, 0))
	if err == nil || fired {
		t.Errorf("CheckAndNotify() = %v, %v; want error", fired, err)
	}

	// A failed alert is retried on the next check
	sender.err = nil
	if fired, _ := manager.CheckAndNotify(result(models.IntentFeedSoon, time.Minute)); !fired {
		t.Error("alert should be retried after a send failure")
	}
}

func TestManager_formatNotification(t *testing.T) {
	settings := models.DefaultSettings()
	settings.ChildName = "Mia"
	manager := NewManager(settings, &fakeSender{})

	napAt := base.Add(20 * time.Minute)
	r := &models.NextActionResult{
		Intent:  models.IntentStartWindDown,
		Reasons: []string{"Awake 2h05m of a 2h30m window"},
		Timing:  models.Timing{NextNapWindowAt: &napAt, ExpectedFeedVolume: 140},
	}

	tests := []struct {
		alertType     string
		expectedTitle string
		contains      string
	}{
		{alertFeed, "🍼 Feed soon", "about 140 ml"},
		{alertDataGap, "⚠️ No feed logged", "six hours"},
		{alertWindDown, "🌙 Start wind-down", "sleep window at 14:20"},
		{alertWake, "☀️ Waking soon", "Mia"},
	}

	for _, tt := range tests {
		t.Run(tt.alertType, func(t *testing.T) {
			title, message := manager.formatNotification(r, tt.alertType)
			if title != tt.expectedTitle {
				t.Errorf("title = %s, want %s", title, tt.expectedTitle)
			}
			if !strings.Contains(message, tt.contains) {
				t.Errorf("message %q should contain %q", message, tt.contains)
			}
			if !strings.Contains(message, r.Reasons[0]) {
				t.Errorf("message %q should carry the first reason", message)
			}
		})
	}
}

func TestManager_ClearAlertState(t *testing.T) {
	manager := NewManager(models.DefaultSettings(), &fakeSender{})

	manager.lastAlertTime[alertFeed] = time.Now()
	manager.lastAlertTime[alertWindDown] = time.Now()

	manager.ClearAlertState(alertFeed)
	if _, ok := manager.lastAlertTime[alertFeed]; ok {
		t.Error("feed alert should be cleared")
	}
	if _, ok := manager.lastAlertTime[alertWindDown]; !ok {
		t.Error("wind-down alert should still exist")
	}

	manager.lastAlertTime[alertFeed] = time.Now()
	manager.ClearAlertState("")
	if len(manager.lastAlertTime) != 0 {
		t.Error("All alerts should be cleared")
	}
}

func TestManager_UpdateSettings(t *testing.T) {
	manager := NewManager(models.DefaultSettings(), &fakeSender{})

	newSettings := models.DefaultSettings()
	newSettings.RepeatAlertMinutes = 5

	manager.UpdateSettings(newSettings)

	if manager.settings.RepeatAlertMinutes != 5 {
		t.Error("Settings were not updated")
	}
}

func TestManager_SendTestNotification(t *testing.T) {
	sender := &fakeSender{}
	manager := NewManager(models.DefaultSettings(), sender)

	if err := manager.SendTestNotification(); err != nil {
		t.Fatalf("SendTestNotification() error = %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d notifications, want 1", len(sender.sent))
	}
	if sender.sent[0].urgent {
		t.Error("test notification should not be urgent")
	}
}
