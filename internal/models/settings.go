// Package models contains data structures used throughout the application
package models

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

const appDirName = "nursery-advisor"

// Data source constants
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

// Settings contains all application settings
type Settings struct {
	mu sync.RWMutex

	// Child
	ChildName string `yaml:"child_name" koanf:"child_name"`
	BirthDate string `yaml:"birth_date" koanf:"birth_date"` // YYYY-MM-DD
	Timezone  string `yaml:"timezone" koanf:"timezone"`     // IANA zone, empty = system local

	// Night window used for sleep classification and night modifiers
	NightStartHour int `yaml:"night_start_hour" koanf:"night_start_hour"`
	NightEndHour   int `yaml:"night_end_hour" koanf:"night_end_hour"`

	// Data source
	Source       string `yaml:"source" koanf:"source"` // "local" or "remote"
	DatabasePath string `yaml:"database_path" koanf:"database_path"`
	RemoteURL    string `yaml:"remote_url" koanf:"remote_url"`
	APISecret    string `yaml:"api_secret" koanf:"api_secret"` // Plain API secret (will be hashed)
	APIToken     string `yaml:"api_token" koanf:"api_token"`
	UseToken     bool   `yaml:"use_token" koanf:"use_token"`
	HistoryDays  int    `yaml:"history_days" koanf:"history_days"` // Days of history handed to the engine

	// Watch loop
	RefreshFloor int `yaml:"refresh_floor" koanf:"refresh_floor"` // Seconds (30-600), lower bound between recomputes

	// Alert settings
	EnableFeedAlert     bool `yaml:"enable_feed_alert" koanf:"enable_feed_alert"`
	EnableWindDownAlert bool `yaml:"enable_wind_down_alert" koanf:"enable_wind_down_alert"`
	EnableWakeAlert     bool `yaml:"enable_wake_alert" koanf:"enable_wake_alert"`
	EnableSoundAlerts   bool `yaml:"enable_sound_alerts" koanf:"enable_sound_alerts"`
	UrgentDataGapAlerts bool `yaml:"urgent_data_gap_alerts" koanf:"urgent_data_gap_alerts"`
	RepeatAlertMinutes  int  `yaml:"repeat_alert_minutes" koanf:"repeat_alert_minutes"` // 0 = no repeat

	// HTTP API
	ServerPort      int  `yaml:"server_port" koanf:"server_port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`

	// Status badge
	IconPath             string `yaml:"icon_path" koanf:"icon_path"`
	ColorFeed            string `yaml:"color_feed" koanf:"color_feed"`
	ColorWindDown        string `yaml:"color_wind_down" koanf:"color_wind_down"`
	ColorIndependentTime string `yaml:"color_independent_time" koanf:"color_independent_time"`
	ColorSleep           string `yaml:"color_sleep" koanf:"color_sleep"`
	ColorHold            string `yaml:"color_hold" koanf:"color_hold"`

	// System settings
	AutoStart bool `yaml:"auto_start" koanf:"auto_start"`
}

// DefaultSettings returns settings with default values
func DefaultSettings() *Settings {
	return &Settings{
		ChildName: "",
		BirthDate: "",
		Timezone:  "",

		NightStartHour: 19,
		NightEndHour:   7,

		Source:       SourceLocal,
		DatabasePath: "",
		RemoteURL:    "",
		APISecret:    "",
		APIToken:     "",
		UseToken:     false,
		HistoryDays:  8, // Learning window is 7 days, plus the current one

		RefreshFloor: 60,

		EnableFeedAlert:     true,
		EnableWindDownAlert: true,
		EnableWakeAlert:     false,
		EnableSoundAlerts:   false,
		UrgentDataGapAlerts: true,
		RepeatAlertMinutes:  30,

		ServerPort:      8417,
		AllowAllOrigins: false,

		IconPath:             "",
		ColorFeed:            "#f97316", // Orange
		ColorWindDown:        "#8b5cf6", // Violet
		ColorIndependentTime: "#4ade80", // Green
		ColorSleep:           "#3b82f6", // Blue
		ColorHold:            "#9ca3af", // Gray

		AutoStart: false,
	}
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	appDir := filepath.Join(configDir, appDirName)
	if err := os.MkdirAll(appDir, 0750); err != nil {
		return "", err
	}

	return appDir, nil
}

// GetConfigPath returns the full path to the config file
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.yaml"), nil
}

// Load reads settings from the YAML file at path, then overlays
// environment variable overrides (NURSERY_*). A missing file yields defaults.
func (s *Settings) Load(path string) error {
	k := koanf.New(".")

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return fmt.Errorf("reading settings %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("accessing settings %s: %w", path, err)
	}

	if err := k.Load(env.Provider("NURSERY_", ".", func(key string) string {
		return strings.ToLower(strings.TrimPrefix(key, "NURSERY_"))
	}), nil); err != nil {
		return fmt.Errorf("loading env overrides: %w", err)
	}

	loaded := DefaultSettings()
	if err := k.Unmarshal("", loaded); err != nil {
		return fmt.Errorf("unmarshalling settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.copySettingsFields(loaded)
	return nil
}

// Save writes settings to path as YAML
func (s *Settings) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := yamlv3.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshalling settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// Clone creates a copy of the settings
func (s *Settings) Clone() *Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clone := &Settings{}
	clone.copySettingsFields(s)
	return clone
}

// Update updates settings from another Settings object
func (s *Settings) Update(other *Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	other.mu.RLock()
	defer other.mu.RUnlock()

	s.copySettingsFields(other)
}

// copySettingsFields copies all fields from other to s, excluding the mutex
// The caller must hold the necessary locks on s and other (if other is shared)
func (s *Settings) copySettingsFields(other *Settings) {
	s.ChildName = other.ChildName
	s.BirthDate = other.BirthDate
	s.Timezone = other.Timezone
	s.NightStartHour = other.NightStartHour
	s.NightEndHour = other.NightEndHour
	s.Source = other.Source
	s.DatabasePath = other.DatabasePath
	s.RemoteURL = other.RemoteURL
	s.APISecret = other.APISecret
	s.APIToken = other.APIToken
	s.UseToken = other.UseToken
	s.HistoryDays = other.HistoryDays
	s.RefreshFloor = other.RefreshFloor
	s.EnableFeedAlert = other.EnableFeedAlert
	s.EnableWindDownAlert = other.EnableWindDownAlert
	s.EnableWakeAlert = other.EnableWakeAlert
	s.EnableSoundAlerts = other.EnableSoundAlerts
	s.UrgentDataGapAlerts = other.UrgentDataGapAlerts
	s.RepeatAlertMinutes = other.RepeatAlertMinutes
	s.ServerPort = other.ServerPort
	s.AllowAllOrigins = other.AllowAllOrigins
	s.IconPath = other.IconPath
	s.ColorFeed = other.ColorFeed
	s.ColorWindDown = other.ColorWindDown
	s.ColorIndependentTime = other.ColorIndependentTime
	s.ColorSleep = other.ColorSleep
	s.ColorHold = other.ColorHold
	s.AutoStart = other.AutoStart
}

// Validate checks that the settings contain usable values
func (s *Settings) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.BirthDate != "" {
		if _, err := time.Parse("2006-01-02", s.BirthDate); err != nil {
			return fmt.Errorf("invalid birth_date %q: want YYYY-MM-DD", s.BirthDate)
		}
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
		}
	}
	if s.NightStartHour < 0 || s.NightStartHour > 23 || s.NightEndHour < 0 || s.NightEndHour > 23 {
		return fmt.Errorf("night hours must be between 0 and 23")
	}
	switch s.Source {
	case SourceLocal:
	case SourceRemote:
		if s.RemoteURL == "" {
			return fmt.Errorf("remote_url is required for the remote source")
		}
	default:
		return fmt.Errorf("invalid source %q: must be local or remote", s.Source)
	}
	if s.HistoryDays < 1 {
		return fmt.Errorf("history_days must be positive")
	}
	if s.RefreshFloor < 30 || s.RefreshFloor > 600 {
		return fmt.Errorf("refresh_floor must be between 30 and 600 seconds")
	}
	if s.RepeatAlertMinutes < 0 {
		return fmt.Errorf("repeat_alert_minutes must be non-negative")
	}
	if s.ServerPort < 1 || s.ServerPort > 65535 {
		return fmt.Errorf("server_port must be between 1 and 65535")
	}
	return nil
}

// Location returns the configured time zone, falling back to the system zone
func (s *Settings) Location() *time.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ResolveDatabasePath returns the configured database path or the default
// location inside the config directory
func (s *Settings) ResolveDatabasePath() (string, error) {
	s.mu.RLock()
	path := s.DatabasePath
	s.mu.RUnlock()

	if path != "" {
		return path, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "activity.db"), nil
}

// ResolveIconPath returns the configured badge path or the default location
func (s *Settings) ResolveIconPath() (string, error) {
	s.mu.RLock()
	path := s.IconPath
	s.mu.RUnlock()

	if path != "" {
		return path, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "status.png"), nil
}

// IntentColor returns the badge color configured for an intent
func (s *Settings) IntentColor(intent Intent) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch intent {
	case IntentFeedSoon:
		return s.ColorFeed
	case IntentStartWindDown:
		return s.ColorWindDown
	case IntentIndependentTime:
		return s.ColorIndependentTime
	case IntentLetSleepContinue:
		return s.ColorSleep
	default:
		return s.ColorHold
	}
}
