package config

import (
	"reflect"
)

// ChangedSections returns a compact list of top-level sections that differ
// between two configs, for reload logging. Secrets (the Telegram token)
// are compared but never returned as values.
func ChangedSections(oldCfg, newCfg *Config) []string {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
	}
	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
	}
	if !reflect.DeepEqual(oldCfg.Detector, newCfg.Detector) {
		changed = append(changed, "detector")
	}
	if !reflect.DeepEqual(oldCfg.Sweep, newCfg.Sweep) {
		changed = append(changed, "sweep")
	}
	if !reflect.DeepEqual(oldCfg.Recurrence, newCfg.Recurrence) {
		changed = append(changed, "recurrence")
	}
	if !reflect.DeepEqual(oldCfg.Escalation, newCfg.Escalation) {
		changed = append(changed, "escalation")
	}
	return changed
}
