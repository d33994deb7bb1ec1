// Package config holds the process configuration and a file-backed manager
// with hot reload.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration document (YAML).
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Storage   StorageConfig   `yaml:"storage"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Notifier  NotifierConfig  `yaml:"notifier"`
}

type LoggingConfig struct {
	Level   string     `yaml:"level"`
	Console bool       `yaml:"console"`
	File    FileConfig `yaml:"file"`
}

type FileConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// StorageConfig selects the task-override persistence backend.
//
// Driver values:
//   - "sqlite": SQLite database file
//   - "file":   dependency-free JSON document
//   - "" / "none": persistence disabled (static defaults only)
type StorageConfig struct {
	Driver      string        `yaml:"driver"`
	Path        string        `yaml:"path"`
	BusyTimeout time.Duration `yaml:"busy_timeout"` // sqlite only; 0 means default
}

type SchedulerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Workers      int           `yaml:"workers"`
	MisfireGrace time.Duration `yaml:"misfire_grace"`
	Timezone     string        `yaml:"timezone"` // IANA TZ, e.g. "Asia/Shanghai"
}

type MetricsConfig struct {
	// HistorySize caps the per-task duration window used for percentiles.
	HistorySize int `yaml:"history_size"`
}

type NotifierConfig struct {
	Enabled    bool           `yaml:"enabled"`
	RatePerSec float64        `yaml:"rate_per_sec"`
	Telegram   TelegramConfig `yaml:"telegram"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  int64  `yaml:"chat_id"`
}

// Default returns the configuration used when a field is absent.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Console: true},
		Storage: StorageConfig{Driver: "sqlite", Path: "./data/pmojobs.db"},
		Scheduler: SchedulerConfig{
			Enabled:      true,
			Workers:      5,
			MisfireGrace: 5 * time.Minute,
		},
		Metrics:  MetricsConfig{HistorySize: 100},
		Notifier: NotifierConfig{Enabled: false, RatePerSec: 1},
	}
}

// Normalize fills zero values with defaults. It mutates c in place.
func (c *Config) Normalize() {
	def := Default()
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = def.Logging.Level
	}
	if strings.TrimSpace(c.Storage.Driver) == "" {
		c.Storage.Driver = def.Storage.Driver
	}
	if c.Scheduler.Workers <= 0 {
		c.Scheduler.Workers = def.Scheduler.Workers
	}
	if c.Scheduler.MisfireGrace <= 0 {
		c.Scheduler.MisfireGrace = def.Scheduler.MisfireGrace
	}
	if c.Metrics.HistorySize <= 0 {
		c.Metrics.HistorySize = def.Metrics.HistorySize
	}
	if c.Notifier.RatePerSec <= 0 {
		c.Notifier.RatePerSec = def.Notifier.RatePerSec
	}
}

// Validate rejects configurations the services cannot run with.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "", "none", "file", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver)
	}
	if d := strings.ToLower(strings.TrimSpace(c.Storage.Driver)); (d == "file" || d == "sqlite" || d == "sqlite3") && strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("storage.path is required for driver %q", c.Storage.Driver)
	}
	if c.Scheduler.Workers > 64 {
		return fmt.Errorf("scheduler.workers %d is unreasonably large", c.Scheduler.Workers)
	}
	if tz := strings.TrimSpace(c.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: %w", err)
		}
	}
	if c.Notifier.Enabled && c.Notifier.Telegram.Enabled {
		if strings.TrimSpace(c.Notifier.Telegram.Token) == "" {
			return fmt.Errorf("notifier.telegram.token is required when the telegram channel is enabled")
		}
		if c.Notifier.Telegram.ChatID == 0 {
			return fmt.Errorf("notifier.telegram.chat_id is required when the telegram channel is enabled")
		}
	}
	return nil
}
