package app

import (
	"fmt"
	"strings"
	"time"

	"fieldops/internal/config"
	"fieldops/internal/schedule"
	"fieldops/internal/services/detect"
	"fieldops/internal/services/escalate"
	"fieldops/internal/services/sweep"
	"fieldops/internal/storage"
)

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "file":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=file")
		}
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapDetectorConfig(cfg *config.Config) (detect.Config, error) {
	debounce, err := config.ParseDurationOrDefault("detector.debounce", cfg.Detector.Debounce, 500*time.Millisecond)
	if err != nil {
		return detect.Config{}, err
	}
	if cfg.Detector.RatePerMinute < 0 {
		return detect.Config{}, fmt.Errorf("detector.rate_per_minute must be >= 0")
	}
	if cfg.Detector.HistorySize < 0 {
		return detect.Config{}, fmt.Errorf("detector.history_size must be >= 0")
	}
	return detect.Config{
		Enabled:       cfg.Detector.Enabled,
		Debounce:      debounce,
		RatePerMinute: cfg.Detector.RatePerMinute,
		HistorySize:   cfg.Detector.HistorySize,
	}, nil
}

func mapSweepConfig(cfg *config.Config) sweep.Config {
	return sweep.Config{
		Enabled:  cfg.Sweep.Enabled,
		Schedule: cfg.Sweep.Schedule,
		Timezone: cfg.Sweep.Timezone,
	}
}

func mapEscalationConfig(cfg *config.Config) (escalate.Config, error) {
	if cfg.Escalation == nil {
		return escalate.Config{}, nil
	}
	ec := cfg.Escalation
	window, err := config.ParseDurationOrDefault("escalation.dedup_window", ec.DedupWindow, 24*time.Hour)
	if err != nil {
		return escalate.Config{}, err
	}
	if ec.RatePerSec < 0 {
		return escalate.Config{}, fmt.Errorf("escalation.rate_per_sec must be >= 0")
	}
	minSev := schedule.SeverityCritical
	if s := strings.TrimSpace(ec.MinSeverity); s != "" {
		minSev = schedule.ParseSeverity(s)
	}
	enabled := ec.Enabled
	if strings.TrimSpace(ec.Telegram.Token) == "" || ec.Telegram.ChatID == 0 {
		enabled = false
	}
	return escalate.Config{
		Enabled:     enabled,
		MinSeverity: minSev,
		DedupWindow: window,
		RatePerSec:  ec.RatePerSec,
	}, nil
}

// Validate rejects configs that would break a hot reload: bad durations,
// bad timezones, unparsable sweep schedules.
func Validate(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if _, _, err := mapStorageConfig(cfg); err != nil {
		return err
	}
	if _, err := mapDetectorConfig(cfg); err != nil {
		return err
	}
	if _, err := mapEscalationConfig(cfg); err != nil {
		return err
	}
	if cfg.Sweep.Enabled {
		if _, err := sweep.ParseSchedule(cfg.Sweep.Schedule); err != nil {
			return fmt.Errorf("sweep.schedule: %w", err)
		}
	}
	if tz := strings.TrimSpace(cfg.Sweep.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("sweep.timezone: invalid %q: %w", tz, err)
		}
	}
	if cfg.Recurrence.HardCap < 0 {
		return fmt.Errorf("recurrence.hard_cap must be >= 0")
	}
	return nil
}
