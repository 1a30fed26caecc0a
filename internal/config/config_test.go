package config

import (
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want 8080", cfg.HTTPPort)
	}
	if cfg.TimeZone != "America/Mexico_City" {
		t.Errorf("TimeZone = %q", cfg.TimeZone)
	}
	if cfg.AutoStartHour != 19 || cfg.AutoStartMinute != 0 {
		t.Errorf("auto-start = %02d:%02d, want 19:00", cfg.AutoStartHour, cfg.AutoStartMinute)
	}
	if cfg.AutoStopHour != 21 || cfg.AutoStopMinute != 21 {
		t.Errorf("auto-stop = %02d:%02d, want 21:21", cfg.AutoStopHour, cfg.AutoStopMinute)
	}
	if cfg.MilestoneInterval != 15*time.Second {
		t.Errorf("MilestoneInterval = %v, want 15s", cfg.MilestoneInterval)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("TIMEWARDEN_HTTP_PORT", "9191")
	t.Setenv("TIMEWARDEN_UNLIMITED_IDS", "u1,u2")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cfg.HTTPPort != 9191 {
		t.Errorf("HTTPPort = %d, want 9191", cfg.HTTPPort)
	}
	if len(cfg.UnlimitedIDs) != 2 || cfg.UnlimitedIDs[0] != "u1" || cfg.UnlimitedIDs[1] != "u2" {
		t.Errorf("UnlimitedIDs = %v", cfg.UnlimitedIDs)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.HTTPPort = -1 }},
		{"bad start hour", func(c *Config) { c.AutoStartHour = 24 }},
		{"bad stop minute", func(c *Config) { c.AutoStopMinute = 60 }},
		{"bad zone", func(c *Config) { c.TimeZone = "Mars/Olympus" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewForTesting(t.TempDir())
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
