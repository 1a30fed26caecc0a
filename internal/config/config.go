package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds service configuration. Environment variables are parsed from
// the TIMEWARDEN_ prefix, e.g. TIMEWARDEN_HTTP_PORT, TIMEWARDEN_DATA_DIR.
type Config struct {
	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// DataDir holds the two JSON snapshot documents.
	DataDir string `envconfig:"DATA_DIR" default:"./data"`

	// TimeZone anchors every wall-clock decision: daily buckets, weekly
	// windows and the lifecycle triggers.
	TimeZone string `envconfig:"TIME_ZONE" default:"America/Mexico_City"`

	// Lifecycle triggers (local wall clock).
	AutoStartHour   int `envconfig:"AUTO_START_HOUR" default:"19"`
	AutoStartMinute int `envconfig:"AUTO_START_MINUTE" default:"0"`
	AutoStopHour    int `envconfig:"AUTO_STOP_HOUR" default:"21"`
	AutoStopMinute  int `envconfig:"AUTO_STOP_MINUTE" default:"21"`

	// Milestone sweep tuning.
	MilestoneInterval     time.Duration `envconfig:"MILESTONE_INTERVAL" default:"15s"`
	MilestoneConcurrency  int           `envconfig:"MILESTONE_CONCURRENCY" default:"6"`
	MilestoneCheckTimeout time.Duration `envconfig:"MILESTONE_CHECK_TIMEOUT" default:"20s"`

	// EventBufferSize bounds the notification intent queue.
	EventBufferSize int `envconfig:"EVENT_BUFFER_SIZE" default:"256"`

	// UnlimitedIDs lists entity IDs resolved to the unlimited role when no
	// live identity service is wired in. Comma separated.
	UnlimitedIDs []string `envconfig:"UNLIMITED_IDS" default:""`
}

// Validate rejects configurations the schedulers cannot run with.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT: %d", c.HTTPPort)
	}
	if err := validClockTime(c.AutoStartHour, c.AutoStartMinute); err != nil {
		return fmt.Errorf("auto-start trigger: %w", err)
	}
	if err := validClockTime(c.AutoStopHour, c.AutoStopMinute); err != nil {
		return fmt.Errorf("auto-stop trigger: %w", err)
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("invalid TIME_ZONE %q: %w", c.TimeZone, err)
	}
	return nil
}

func validClockTime(hour, minute int) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("invalid wall-clock time %02d:%02d", hour, minute)
	}
	return nil
}

// New creates a Config by parsing environment variables.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("TIMEWARDEN", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewForTesting creates a config suitable for tests: UTC zone, tight sweep
// cadence, temp-style data dir supplied by the caller.
func NewForTesting(dataDir string) *Config {
	return &Config{
		HTTPPort:              8080,
		DataDir:               dataDir,
		TimeZone:              "UTC",
		AutoStartHour:         19,
		AutoStartMinute:       0,
		AutoStopHour:          21,
		AutoStopMinute:        21,
		MilestoneInterval:     10 * time.Millisecond,
		MilestoneConcurrency:  2,
		MilestoneCheckTimeout: time.Second,
		EventBufferSize:       16,
	}
}
