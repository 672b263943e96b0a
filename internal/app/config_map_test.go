package app

import (
	"testing"
	"time"

	"fieldops/internal/config"
	"fieldops/internal/schedule"
)

func baseConfig() *config.Config {
	return &config.Config{
		Detector: config.DetectorConfig{Enabled: true},
		Sweep:    config.SweepConfig{Enabled: true, Schedule: "@hourly", Timezone: "Asia/Jakarta"},
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	t.Parallel()
	if err := Validate(baseConfig()); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateRejectsBadInput(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"bad debounce", func(c *config.Config) { c.Detector.Debounce = "soon" }},
		{"bad schedule", func(c *config.Config) { c.Sweep.Schedule = "whenever" }},
		{"bad timezone", func(c *config.Config) { c.Sweep.Timezone = "Mars/Olympus" }},
		{"bad storage driver", func(c *config.Config) {
			c.Storage = &config.StorageConfig{Driver: "postgres", Path: "x"}
		}},
		{"sqlite without path", func(c *config.Config) {
			c.Storage = &config.StorageConfig{Driver: "sqlite"}
		}},
		{"negative hard cap", func(c *config.Config) { c.Recurrence.HardCap = -1 }},
		{"bad dedup window", func(c *config.Config) {
			c.Escalation = &config.EscalationConfig{Enabled: true, DedupWindow: "never"}
		}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestMapDetectorDefaults(t *testing.T) {
	t.Parallel()
	got, err := mapDetectorConfig(baseConfig())
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if got.Debounce != 500*time.Millisecond {
		t.Fatalf("debounce = %v", got.Debounce)
	}
}

func TestMapEscalationDisabledWithoutTarget(t *testing.T) {
	t.Parallel()
	cfg := baseConfig()
	cfg.Escalation = &config.EscalationConfig{Enabled: true, MinSeverity: "high"}
	got, err := mapEscalationConfig(cfg)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if got.Enabled {
		t.Fatal("escalation without token/chat should stay disabled")
	}
	if got.MinSeverity != schedule.SeverityHigh {
		t.Fatalf("min severity = %v", got.MinSeverity)
	}

	cfg.Escalation.Telegram = config.TelegramConfig{Token: "t", ChatID: 42}
	got, err = mapEscalationConfig(cfg)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if !got.Enabled {
		t.Fatal("escalation with target should be enabled")
	}
	if got.DedupWindow != 24*time.Hour {
		t.Fatalf("dedup window = %v", got.DedupWindow)
	}
}

func TestMapStorageConfig(t *testing.T) {
	t.Parallel()
	cfg := baseConfig()
	if _, enabled, _ := mapStorageConfig(cfg); enabled {
		t.Fatal("nil storage section should be disabled")
	}

	cfg.Storage = &config.StorageConfig{Driver: "sqlite", Path: "./fieldops.db", BusyTimeout: "2s"}
	sc, enabled, err := mapStorageConfig(cfg)
	if err != nil || !enabled {
		t.Fatalf("map: enabled=%v err=%v", enabled, err)
	}
	if sc.BusyTimeout != 2*time.Second {
		t.Fatalf("busy timeout = %v", sc.BusyTimeout)
	}
}
