package config

// Config is the root configuration document.
//
// Files may be JSON or YAML (YAML is coerced to JSON before the strict
// decode, so unknown fields are rejected in both formats).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging LoggingConfig `json:"logging"`

	// Storage configures the job/technician store. If omitted, storage is
	// disabled and the daemon modes have nothing to sweep.
	Storage *StorageConfig `json:"storage,omitempty"`

	// Detector controls the debounced conflict-detection pipeline.
	Detector DetectorConfig `json:"detector"`

	// Sweep controls the periodic store-driven detection trigger.
	Sweep SweepConfig `json:"sweep"`

	// Recurrence holds defaults for series expansion.
	Recurrence RecurrenceConfig `json:"recurrence"`

	// Escalation forwards high-severity alerts to Telegram. If the whole
	// section is omitted, escalation is disabled.
	Escalation *EscalationConfig `json:"escalation,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the persistence layer.
//
// Driver values:
//   - "file": JSON documents (jobs/technicians/dedup) under a path prefix
//   - "sqlite": SQLite database file
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./fieldops.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// DetectorConfig controls the detection service.
//
// Defaults (when fields are omitted/zero):
//   - debounce: "500ms"
//   - rate_per_minute: 60
//   - history_size: 200
type DetectorConfig struct {
	Enabled bool `json:"enabled"`

	// Debounce is how long the input job list must stay quiet before a
	// detection pass runs. Rapid submissions supersede each other;
	// only the latest one's result is published.
	Debounce string `json:"debounce,omitempty"`

	// RatePerMinute caps detection passes as a guard against submit
	// storms. Use 0 for the default.
	RatePerMinute int `json:"rate_per_minute,omitempty"`

	HistorySize int `json:"history_size,omitempty"`
}

// SweepConfig controls the cron-triggered re-detection from store state.
//
// Schedule accepts a cron spec ("0 7 * * *", "@hourly", "@every 30m"),
// a Go duration ("30m"), or an HH:MM interval ("02:30").
type SweepConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"`
	// Timezone is an IANA name (e.g. "Asia/Jakarta"). It only selects when
	// the sweep fires; the scheduling core itself stays zone-naive.
	Timezone string `json:"timezone,omitempty"`
}

// RecurrenceConfig holds series-expansion defaults.
type RecurrenceConfig struct {
	// HardCap bounds generation for patterns without their own bounds
	// (preview limit). Default 100.
	HardCap int `json:"hard_cap,omitempty"`
}

// EscalationConfig controls the Telegram alert escalation pipeline.
type EscalationConfig struct {
	Enabled bool `json:"enabled"`

	// MinSeverity is the lowest severity that gets forwarded
	// ("low"|"medium"|"high"|"critical"). Default "critical".
	MinSeverity string `json:"min_severity,omitempty"`

	// DedupWindow suppresses re-sends of the same alert id. Default "24h".
	DedupWindow string `json:"dedup_window,omitempty"`

	RatePerSec int `json:"rate_per_sec,omitempty"`

	Telegram TelegramConfig `json:"telegram"`
}

type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
}
