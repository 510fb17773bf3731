// Package config loads the bot configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither a flag nor BESEDKA_CONFIG_PATH is set.
const DefaultPath = "configs/config.yaml"

// DefaultVenuesPath is the venue file used when none is configured.
const DefaultVenuesPath = "configs/venues.yaml"

// Store backends.
const (
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		Debug    bool   `yaml:"debug"`
	} `yaml:"telegram"`

	Operator struct {
		ChatID int64  `yaml:"chat_id"`
		Phone  string `yaml:"phone"`
	} `yaml:"operator"`

	Payment struct {
		Details        string `yaml:"details"`
		TimeoutMinutes int    `yaml:"timeout_minutes"`
	} `yaml:"payment"`

	Schedule ScheduleConfig `yaml:"schedule"`

	Booking struct {
		SessionTimeoutMinutes  int `yaml:"session_timeout_minutes"`
		JanitorIntervalSeconds int `yaml:"janitor_interval_seconds"`
	} `yaml:"booking"`

	Store struct {
		Backend string `yaml:"backend"`
	} `yaml:"store"`

	Sheets struct {
		CredentialsFile   string `yaml:"credentials_file"`
		SpreadsheetID     string `yaml:"spreadsheet_id"`
		VenuesSheet       string `yaml:"venues_sheet"`
		ReservationsSheet string `yaml:"reservations_sheet"`
		RequestsPerMinute int    `yaml:"requests_per_minute"`
	} `yaml:"sheets"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	VenuesConfigPath string `yaml:"venues_config_path"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	RateLimit struct {
		PerSecond float64 `yaml:"per_second"`
		Burst     int     `yaml:"burst"`
	} `yaml:"rate_limit"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Backup BackupConfig `yaml:"backup"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// ScheduleConfig is the daily operating window.
type ScheduleConfig struct {
	WorkStart          int    `yaml:"work_start"`
	WorkEnd            int    `yaml:"work_end"`
	StepMinutes        int    `yaml:"step_minutes"`
	MinDurationMinutes int    `yaml:"min_duration_minutes"`
	Timezone           string `yaml:"timezone"`
}

// BackupConfig controls periodic SQLite backups.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// ResolvePath picks the config path: explicit value, then
// BESEDKA_CONFIG_PATH, then DefaultPath.
func ResolvePath(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv("BESEDKA_CONFIG_PATH"); env != "" {
		return env
	}
	return DefaultPath
}

// Load reads .env (if present) and the YAML file, expands ${ENV}
// placeholders and applies defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	path = ResolvePath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Store.Backend == BackendSQLite {
		if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Payment.TimeoutMinutes <= 0 {
		c.Payment.TimeoutMinutes = 30
	}
	if c.Schedule.WorkStart == 0 && c.Schedule.WorkEnd == 0 {
		c.Schedule.WorkStart, c.Schedule.WorkEnd = 8, 21
	}
	if c.Schedule.StepMinutes <= 0 {
		c.Schedule.StepMinutes = 30
	}
	if c.Schedule.MinDurationMinutes <= 0 {
		c.Schedule.MinDurationMinutes = 120
	}
	if c.Booking.SessionTimeoutMinutes <= 0 {
		c.Booking.SessionTimeoutMinutes = 30
	}
	if c.Booking.JanitorIntervalSeconds <= 0 {
		c.Booking.JanitorIntervalSeconds = 60
	}
	if c.Store.Backend == "" {
		c.Store.Backend = BackendSheets
	}
	if c.Sheets.VenuesSheet == "" {
		c.Sheets.VenuesSheet = "huts"
	}
	if c.Sheets.ReservationsSheet == "" {
		c.Sheets.ReservationsSheet = "bookings"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/besedka.db"
	}
	if c.VenuesConfigPath == "" {
		c.VenuesConfigPath = DefaultVenuesPath
	}
	if c.RateLimit.PerSecond <= 0 {
		c.RateLimit.PerSecond = 2
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 5
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Backup.IntervalHours <= 0 {
		c.Backup.IntervalHours = 24
	}
	if c.Backup.Path == "" {
		c.Backup.Path = "data/backups"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks values that have no sensible default.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendSheets:
		if c.Sheets.SpreadsheetID == "" || c.Sheets.CredentialsFile == "" {
			return errors.New("sheets backend needs sheets.spreadsheet_id and sheets.credentials_file")
		}
	case BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	s := c.Schedule
	if s.WorkStart < 0 || s.WorkEnd > 24 || s.WorkStart >= s.WorkEnd {
		return fmt.Errorf("invalid working hours %d-%d", s.WorkStart, s.WorkEnd)
	}
	if 60%s.StepMinutes != 0 {
		return fmt.Errorf("step_minutes must divide an hour, got %d", s.StepMinutes)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location returns the configured timezone, local time when unset.
func (c *Config) Location() (*time.Location, error) {
	if c.Schedule.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Schedule.Timezone, err)
	}
	return loc, nil
}

func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.Booking.SessionTimeoutMinutes) * time.Minute
}

func (c *Config) PaymentTimeout() time.Duration {
	return time.Duration(c.Payment.TimeoutMinutes) * time.Minute
}

func (c *Config) JanitorInterval() time.Duration {
	return time.Duration(c.Booking.JanitorIntervalSeconds) * time.Second
}
