package prediction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mrcode/nursery-advisor/internal/models"
)

// ErrNoSource is returned when the service has nowhere to read activity from
var ErrNoSource = errors.New("no activity source configured")

// Source supplies logged activities for a time range
type Source interface {
	Activities(ctx context.Context, from, to time.Time) ([]models.ActivityRecord, error)
}

// Config is what the service needs to build an engine
type Config struct {
	BirthDate      string
	Location       *time.Location
	NightStartHour int
	NightEndHour   int
	HistoryDays    int
}

// ConfigFromSettings derives the engine configuration from user settings
func ConfigFromSettings(s *models.Settings) Config {
	return Config{
		BirthDate:      s.BirthDate,
		Location:       s.Location(),
		NightStartHour: s.NightStartHour,
		NightEndHour:   s.NightEndHour,
		HistoryDays:    s.HistoryDays,
	}
}

// Service provides advice to the application. It caches the fetched history
// for a short while so repeated requests do not hit the source.
type Service struct {
	logger *slog.Logger
	now    func() time.Time

	mu            sync.RWMutex
	source        Source
	config        Config
	lastResult    *models.NextActionResult
	cachedRecords []models.ActivityRecord
	cacheTime     time.Time
	cacheDuration time.Duration
}

// NewService creates a new advice service
func NewService(source Source, config Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if config.HistoryDays <= 0 {
		config.HistoryDays = 8
	}
	return &Service{
		source:        source,
		config:        config,
		logger:        logger,
		now:           time.Now,
		cacheDuration: time.Minute,
	}
}

// SetSource replaces the activity source and drops the cache
func (s *Service) SetSource(source Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = source
	s.cacheTime = time.Time{}
}

// SetConfig replaces the engine configuration
func (s *Service) SetConfig(config Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if config.HistoryDays <= 0 {
		config.HistoryDays = 8
	}
	s.config = config
	s.cacheTime = time.Time{}
}

// Engine builds an engine over the recent history as of now
func (s *Service) Engine(ctx context.Context) (*Engine, time.Time, error) {
	now := s.now()
	records, err := s.getRecentRecords(ctx, now)
	if err != nil {
		return nil, now, err
	}

	s.mu.RLock()
	cfg := s.config
	s.mu.RUnlock()

	engine := NewEngine(records, Options{
		BirthDate:      cfg.BirthDate,
		AsOf:           now,
		Location:       cfg.Location,
		NightStartHour: cfg.NightStartHour,
		NightEndHour:   cfg.NightEndHour,
		Logger:         s.logger,
	})
	return engine, now, nil
}

// NextAction computes the current recommendation
func (s *Service) NextAction(ctx context.Context) (*models.NextActionResult, error) {
	engine, now, err := s.Engine(ctx)
	if err != nil {
		return nil, err
	}

	result := engine.Decide(now)

	s.mu.Lock()
	s.lastResult = &result
	s.mu.Unlock()

	return &result, nil
}

// Schedule simulates the rest of today
func (s *Service) Schedule(ctx context.Context) (*models.AdaptiveSchedule, error) {
	engine, now, err := s.Engine(ctx)
	if err != nil {
		return nil, err
	}
	sched := engine.Schedule(now)
	return &sched, nil
}

// LastResult returns the most recent recommendation without computing a new one
func (s *Service) LastResult() *models.NextActionResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastResult
}

// RefreshCache forces the next request to refetch
func (s *Service) RefreshCache() {
	s.mu.Lock()
	s.cacheTime = time.Time{}
	s.mu.Unlock()
}

func (s *Service) getRecentRecords(ctx context.Context, now time.Time) ([]models.ActivityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cacheTime.IsZero() && now.Sub(s.cacheTime) < s.cacheDuration {
		return s.cachedRecords, nil
	}

	if s.source == nil {
		return nil, ErrNoSource
	}

	from := now.AddDate(0, 0, -s.config.HistoryDays)
	records, err := s.source.Activities(ctx, from, now)
	if err != nil {
		return nil, fmt.Errorf("fetching activities: %w", err)
	}

	s.cachedRecords = records
	s.cacheTime = now
	s.logger.Debug("activity cache refreshed", "records", len(records), "from", from)

	return records, nil
}
