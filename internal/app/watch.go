package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mrcode/nursery-advisor/internal/models"
)

// Run recomputes the recommendation until ctx is cancelled. Each cycle
// waits the engine's reevaluate_in_minutes, but never less than the
// configured refresh floor. A cycle that fails is retried after the floor.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("watch loop started")
	defer a.logger.Info("watch loop stopped")

	for {
		result, err := a.Cycle(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}

		floor := a.refreshFloor()
		wait := floor
		if err != nil {
			a.logger.Error("recommendation failed", "error", err, "retry_in", floor)
			if last := a.service.LastResult(); last != nil {
				a.logger.Warn("badge shows a stale recommendation", "computed_at", last.ComputedAt)
			}
		} else {
			wait = nextDelay(result, floor)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-a.refresh:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Cycle computes one recommendation, alerts on it and writes the badge
func (a *App) Cycle(ctx context.Context) (*models.NextActionResult, error) {
	result, err := a.service.NextAction(ctx)
	if err != nil {
		return nil, err
	}

	a.logger.Info("recommendation",
		"intent", result.Intent,
		"confidence", result.Confidence,
		"feed_pressure", fmt.Sprintf("%.2f", result.Rationale.FeedPressure),
		"sleep_pressure", fmt.Sprintf("%.2f", result.Rationale.SleepPressure),
		"reevaluate_in", result.ReevaluateInMinutes,
	)

	if sent, err := a.notifyManager.CheckAndNotify(result); err != nil {
		a.logger.Warn("notification failed", "error", err)
	} else if sent {
		a.logger.Debug("alert sent", "intent", result.Intent)
	}

	icon, err := a.badge.Update(result)
	if err != nil {
		a.logger.Warn("rendering badge failed", "error", err)
		return result, nil
	}
	if err := a.writeBadge(icon); err != nil {
		a.logger.Warn("writing badge failed", "error", err)
	}

	return result, nil
}

// nextDelay returns how long to wait before recomputing result
func nextDelay(result *models.NextActionResult, floor time.Duration) time.Duration {
	wait := time.Duration(result.ReevaluateInMinutes) * time.Minute
	if wait < floor {
		return floor
	}
	return wait
}

func (a *App) refreshFloor() time.Duration {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return time.Duration(a.settings.RefreshFloor) * time.Second
}

// writeBadge replaces the badge file atomically so readers never see a
// partial image
func (a *App) writeBadge(icon []byte) error {
	a.mu.RLock()
	settings := a.settings
	a.mu.RUnlock()

	path, err := settings.ResolveIconPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, icon, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
