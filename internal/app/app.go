// Package app wires settings, the activity source, the advice service and
// the desktop outputs together
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mrcode/nursery-advisor/internal/activitylog"
	"github.com/mrcode/nursery-advisor/internal/autostart"
	"github.com/mrcode/nursery-advisor/internal/models"
	"github.com/mrcode/nursery-advisor/internal/notifications"
	"github.com/mrcode/nursery-advisor/internal/prediction"
	"github.com/mrcode/nursery-advisor/internal/tray"
)

// Version is the application version, overridden at build time
var Version = "1.0.0"

// ErrReadOnly is returned when writing activities while no log is configured
var ErrReadOnly = errors.New("activity log is not writable")

// Options configure an App
type Options struct {
	Logger *slog.Logger
	// Sender delivers alerts; nil uses desktop notifications
	Sender notifications.Sender
}

// App represents the running application
type App struct {
	logger        *slog.Logger
	notifyManager *notifications.Manager
	badge         *tray.Badge
	service       *prediction.Service

	mu       sync.RWMutex
	settings *models.Settings
	db       *activitylog.DB
	store    *activitylog.Store
	client   *activitylog.Client
	refresh  chan struct{}
}

// New creates an App and opens its activity source
func New(settings *models.Settings, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		logger:        logger,
		settings:      settings,
		notifyManager: notifications.NewManager(settings, opts.Sender),
		badge:         tray.NewBadge(settings),
		refresh:       make(chan struct{}, 1),
	}
	a.service = prediction.NewService(nil, prediction.ConfigFromSettings(settings), logger)

	if err := a.initSource(); err != nil {
		return nil, err
	}
	return a, nil
}

// initSource opens the local database or creates the remote client
func (a *App) initSource() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db != nil {
		_ = a.db.Close()
		a.db, a.store = nil, nil
	}
	a.client = nil

	switch a.settings.Source {
	case models.SourceRemote:
		a.client = activitylog.NewClient(
			a.settings.RemoteURL,
			a.settings.APISecret,
			a.settings.APIToken,
			a.settings.UseToken,
		)
		a.service.SetSource(a.client)
		a.logger.Debug("using remote activity log", "url", a.settings.RemoteURL)
	default:
		path, err := a.settings.ResolveDatabasePath()
		if err != nil {
			return fmt.Errorf("resolving database path: %w", err)
		}
		db, err := activitylog.Open(path)
		if err != nil {
			return err
		}
		a.db = db
		a.store = activitylog.NewStore(db)
		a.service.SetSource(a.store)
		a.logger.Debug("using local activity log", "path", path)
	}
	return nil
}

// Close releases the activity source
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db, a.store = nil, nil
	return err
}

// NextAction computes the current recommendation
func (a *App) NextAction(ctx context.Context) (*models.NextActionResult, error) {
	return a.service.NextAction(ctx)
}

// Schedule simulates the rest of today
func (a *App) Schedule(ctx context.Context) (*models.AdaptiveSchedule, error) {
	return a.service.Schedule(ctx)
}

// Engine builds an engine over the current history, for diagnostics
func (a *App) Engine(ctx context.Context) (*prediction.Engine, time.Time, error) {
	return a.service.Engine(ctx)
}

// Badge returns the status badge renderer
func (a *App) Badge() *tray.Badge {
	return a.badge
}

// Logger returns the application logger
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Store returns the local store, nil when reading from a remote log
func (a *App) Store() *activitylog.Store {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.store
}

// GetSettings returns a copy of the current settings
func (a *App) GetSettings() *models.Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings.Clone()
}

// Activities returns logged records in [from, to] from the active source
func (a *App) Activities(ctx context.Context, from, to time.Time) ([]models.ActivityRecord, error) {
	a.mu.RLock()
	store, client := a.store, a.client
	a.mu.RUnlock()

	switch {
	case store != nil:
		return store.Activities(ctx, from, to)
	case client != nil:
		return client.Activities(ctx, from, to)
	default:
		return nil, prediction.ErrNoSource
	}
}

// AddActivity logs a record to the active source and drops cached history
func (a *App) AddActivity(ctx context.Context, r models.ActivityRecord) (*models.ActivityRecord, error) {
	a.mu.RLock()
	store, client := a.store, a.client
	a.mu.RUnlock()

	var (
		stored *models.ActivityRecord
		err    error
	)
	switch {
	case store != nil:
		stored, err = store.Add(ctx, r)
	case client != nil:
		stored, err = client.AddActivity(ctx, r)
	default:
		return nil, ErrReadOnly
	}
	if err != nil {
		return nil, err
	}

	a.service.RefreshCache()
	a.ForceRefresh()
	a.logger.Info("activity logged", "id", stored.ID, "kind", stored.Kind)
	return stored, nil
}

// DeleteActivity removes a record from the active source
func (a *App) DeleteActivity(ctx context.Context, id string) error {
	a.mu.RLock()
	store, client := a.store, a.client
	a.mu.RUnlock()

	var err error
	switch {
	case store != nil:
		err = store.Delete(ctx, id)
	case client != nil:
		err = client.DeleteActivity(ctx, id)
	default:
		return ErrReadOnly
	}
	if err != nil {
		return err
	}

	a.service.RefreshCache()
	a.ForceRefresh()
	a.logger.Info("activity deleted", "id", id)
	return nil
}

// SaveSettings applies and persists new settings, then reopens the source
func (a *App) SaveSettings(settings *models.Settings, path string) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	if settings != a.settings {
		a.settings.Update(settings)
	}
	a.mu.Unlock()

	if err := a.settings.Save(path); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}

	if err := a.initSource(); err != nil {
		return err
	}
	a.notifyManager.ClearAlertState("")
	a.service.SetConfig(prediction.ConfigFromSettings(a.settings))
	a.notifyManager.UpdateSettings(a.settings)
	a.badge.UpdateSettings(a.settings)
	a.ForceRefresh()

	if settings.AutoStart {
		if err := autostart.Enable(); err != nil {
			a.logger.Warn("enabling autostart failed", "error", err)
		}
	} else {
		if err := autostart.Disable(); err != nil {
			a.logger.Warn("disabling autostart failed", "error", err)
		}
	}

	return nil
}

// TestConnection checks a remote care-log server
func (a *App) TestConnection(ctx context.Context, url, secret, token string, useToken bool) error {
	client := activitylog.NewClient(url, secret, token, useToken)
	return client.TestConnection(ctx)
}

// SendTestNotification sends a test notification
func (a *App) SendTestNotification() error {
	return a.notifyManager.SendTestNotification()
}

// ForceRefresh asks a running watch loop to recompute immediately
func (a *App) ForceRefresh() {
	select {
	case a.refresh <- struct{}{}:
	default:
	}
}
