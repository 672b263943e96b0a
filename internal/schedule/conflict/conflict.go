// Package conflict detects pairwise collisions between time-boxed jobs
// along three independent dimensions: time, technician and location.
//
// Detection is a pure function of its inputs. Conflicts are ephemeral:
// every pass recomputes the full set from the current job list, and a
// conflict with no backing overlap simply does not reappear.
package conflict

import (
	"fmt"
	"time"

	"fieldops/internal/schedule"
)

// Type discriminates the three detection dimensions.
type Type int

const (
	TimeOverlap Type = iota
	TechnicianDoubleBooking
	LocationConflict
)

var typeNames = map[Type]string{
	TimeOverlap:             "time_overlap",
	TechnicianDoubleBooking: "technician_double_booking",
	LocationConflict:        "location_conflict",
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return "unknown"
}

// Severity is fixed per type: a technician cannot be in two places at
// once (critical), a general shared slot is high, a shared location is
// medium.
func (t Type) Severity() schedule.Severity {
	switch t {
	case TechnicianDoubleBooking:
		return schedule.SeverityCritical
	case TimeOverlap:
		return schedule.SeverityHigh
	case LocationConflict:
		return schedule.SeverityMedium
	default:
		return schedule.SeverityLow
	}
}

// Conflict is one detected collision between exactly two jobs.
type Conflict struct {
	// ID is deterministic: derived from the type and the sorted job-id
	// pair, so repeated detection runs de-duplicate naturally.
	ID          string            `json:"id"`
	Type        Type              `json:"type"`
	Severity    schedule.Severity `json:"severity"`
	JobIDs      [2]string         `json:"involved_job_ids"`
	Description string            `json:"description"`
	DetectedAt  time.Time         `json:"detected_at"`
}

func (t Type) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// NewID builds the deterministic conflict identifier for a job pair.
func NewID(t Type, jobA, jobB string) string {
	lo, hi := jobA, jobB
	if hi < lo {
		lo, hi = hi, lo
	}
	return fmt.Sprintf("%s:%s+%s", t, lo, hi)
}
