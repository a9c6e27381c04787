package app

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrcode/nursery-advisor/internal/activitylog"
	"github.com/mrcode/nursery-advisor/internal/models"
)

type recordingSender struct {
	titles []string
	urgent []bool
}

func (r *recordingSender) Send(title, _ string, urgent bool) error {
	r.titles = append(r.titles, title)
	r.urgent = append(r.urgent, urgent)
	return nil
}

func newTestApp(t *testing.T) (*App, *recordingSender, *models.Settings) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	settings := models.DefaultSettings()
	settings.BirthDate = "2026-05-15"
	settings.Timezone = "UTC"
	settings.DatabasePath = filepath.Join(dir, "activity.db")
	settings.IconPath = filepath.Join(dir, "badge", "status.png")

	sender := &recordingSender{}
	a, err := New(settings, Options{Logger: slog.New(slog.DiscardHandler), Sender: sender})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, sender, settings
}

func TestApp_CycleOnEmptyLog(t *testing.T) {
	a, sender, settings := newTestApp(t)

	result, err := a.Cycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.IntentFeedSoon, result.Intent)
	assert.True(t, result.Rationale.Flags.DataGap)

	require.Len(t, sender.titles, 1, "data gap should raise an alert")
	assert.True(t, sender.urgent[0])

	data, err := os.ReadFile(settings.IconPath)
	require.NoError(t, err, "badge should be written")
	assert.NotEmpty(t, data)
	_, err = os.Stat(settings.IconPath + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary badge file should be renamed away")
}

func TestApp_AddActivityRefreshes(t *testing.T) {
	a, _, _ := newTestApp(t)
	ctx := context.Background()

	_, err := a.Cycle(ctx)
	require.NoError(t, err)

	stored, err := a.AddActivity(ctx, models.ActivityRecord{
		Kind:     models.KindFeed,
		LoggedAt: time.Now().Add(-time.Minute),
		Details:  models.ActivityDetails{FeedType: models.FeedBottle, Quantity: models.Float(120), Unit: "ml"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)

	select {
	case <-a.refresh:
	default:
		t.Error("AddActivity should request a refresh")
	}

	result, err := a.Cycle(ctx)
	require.NoError(t, err)
	assert.False(t, result.Rationale.Flags.DataGap, "the new feed should be visible without waiting for the cache")

	records, err := a.Activities(ctx, time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.Len(t, records, 1)

	require.NoError(t, a.DeleteActivity(ctx, stored.ID))
	assert.ErrorIs(t, a.DeleteActivity(ctx, stored.ID), activitylog.ErrNotFound)
}

func TestApp_ClosedSourceIsReadOnly(t *testing.T) {
	a, _, _ := newTestApp(t)
	require.NoError(t, a.Close())

	_, err := a.AddActivity(context.Background(), models.ActivityRecord{Kind: models.KindNote})
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.Nil(t, a.Store())
}

func TestApp_SaveSettingsSwitchesSource(t *testing.T) {
	a, _, _ := newTestApp(t)
	path := filepath.Join(t.TempDir(), "settings.yaml")

	updated := a.GetSettings()
	updated.Source = models.SourceRemote
	updated.RemoteURL = "http://127.0.0.1:1"
	require.NoError(t, a.SaveSettings(updated, path))

	assert.Nil(t, a.Store(), "remote source has no local store")
	_, err := os.Stat(path)
	assert.NoError(t, err, "settings should be written")

	invalid := a.GetSettings()
	invalid.Source = "carrier-pigeon"
	assert.Error(t, a.SaveSettings(invalid, path))
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	a, _, _ := newTestApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	// Let the first cycle run, then stop
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNextDelay(t *testing.T) {
	tests := []struct {
		name     string
		minutes  int
		floor    time.Duration
		expected time.Duration
	}{
		{"Engine interval wins", 45, time.Minute, 45 * time.Minute},
		{"Floor wins", 10, 15 * time.Minute, 15 * time.Minute},
		{"Zero interval", 0, 30 * time.Second, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextDelay(&models.NextActionResult{ReevaluateInMinutes: tt.minutes}, tt.floor)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestApp_CycleSourceError(t *testing.T) {
	a, _, _ := newTestApp(t)
	require.NoError(t, a.Close())

	_, err := a.Cycle(context.Background())
	assert.Error(t, err)
	assert.False(t, errors.Is(err, context.Canceled))
}
