// Package alert derives user-facing alerts from detected conflicts and
// from simple temporal rules (overdue jobs that still need attention).
//
// Projection is pure and idempotent: alert IDs are derived from their
// source, so re-running it over the same inputs yields the same set and
// consumers can dedup by ID across runs.
package alert

import (
	"fmt"
	"sort"
	"time"

	"fieldops/internal/schedule"
	"fieldops/internal/schedule/conflict"
)

// Kind discriminates how an alert was derived.
type Kind int

const (
	KindConflict Kind = iota
	KindOverdue
)

var kindNames = map[Kind]string{
	KindConflict: "conflict",
	KindOverdue:  "overdue",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Alert is one user-facing notification row.
type Alert struct {
	ID        string            `json:"id"`
	Kind      Kind              `json:"kind"`
	Severity  schedule.Severity `json:"severity"`
	JobID     string            `json:"job_id"`
	Message   string            `json:"message"`
	CreatedAt time.Time         `json:"created_at"`
}

// Project derives alerts from the current job list and conflict set.
//
// Rules:
//   - every critical or high conflict yields one alert keyed by the first
//     involved job;
//   - every assigned or unassigned job scheduled strictly before today
//     (day granularity, derived from now) is overdue, severity high.
//
// Output order is unspecified; use SortBySeverity for display.
func Project(jobs []schedule.Job, conflicts []conflict.Conflict, now time.Time) []Alert {
	var out []Alert

	for _, c := range conflicts {
		if c.Severity < schedule.SeverityHigh {
			continue
		}
		out = append(out, Alert{
			ID:        "conflict-" + c.JobIDs[0],
			Kind:      KindConflict,
			Severity:  c.Severity,
			JobID:     c.JobIDs[0],
			Message:   c.Description,
			CreatedAt: now,
		})
	}

	today := schedule.DateOf(now)
	for _, j := range jobs {
		if j.ID == "" || j.Date.IsZero() {
			continue
		}
		if j.Status != schedule.StatusAssigned && j.Status != schedule.StatusUnassigned {
			continue
		}
		if !j.Date.Before(today) {
			continue
		}
		out = append(out, Alert{
			ID:        "overdue-" + j.ID,
			Kind:      KindOverdue,
			Severity:  schedule.SeverityHigh,
			JobID:     j.ID,
			Message:   fmt.Sprintf("Job for %s was scheduled on %s and is still %s", j.CustomerLabel(), j.Date, j.Status),
			CreatedAt: now,
		})
	}

	return out
}

// SortBySeverity orders alerts critical -> high -> medium -> low, with a
// stable ID tie-break so output is deterministic.
func SortBySeverity(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Severity != alerts[j].Severity {
			return alerts[i].Severity > alerts[j].Severity
		}
		return alerts[i].ID < alerts[j].ID
	})
}
