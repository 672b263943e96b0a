package schedule

import "strings"

// Status is the lifecycle state of a job assignment.
type Status int

const (
	StatusUnknown Status = iota
	StatusScheduled
	StatusAssigned
	StatusInProgress
	StatusCompleted
	StatusCancelled
	StatusUnassigned
)

var statusNames = map[Status]string{
	StatusScheduled:  "scheduled",
	StatusAssigned:   "assigned",
	StatusInProgress: "in_progress",
	StatusCompleted:  "completed",
	StatusCancelled:  "cancelled",
	StatusUnassigned: "unassigned",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

// ParseStatus maps a raw status string to its enum value.
// Unrecognized input maps to StatusUnknown (defensive, never an error):
// an unknown status simply never satisfies any status-gated rule.
func ParseStatus(raw string) Status {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for s, n := range statusNames {
		if n == raw {
			return s
		}
	}
	return StatusUnknown
}

// Priority is the operator-facing urgency of a job.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

var priorityNames = map[Priority]string{
	PriorityLow:    "low",
	PriorityMedium: "medium",
	PriorityHigh:   "high",
	PriorityUrgent: "urgent",
}

func (p Priority) String() string {
	if n, ok := priorityNames[p]; ok {
		return n
	}
	return "low"
}

// ParsePriority maps a raw priority string, defaulting to low.
func ParsePriority(raw string) Priority {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for p, n := range priorityNames {
		if n == raw {
			return p
		}
	}
	return PriorityLow
}

// Severity ranks conflicts and alerts: low < medium < high < critical.
// The ordering is load-bearing (escalation thresholds, UI sorting).
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityLow:      "low",
	SeverityMedium:   "medium",
	SeverityHigh:     "high",
	SeverityCritical: "critical",
}

func (s Severity) String() string {
	if n, ok := severityNames[s]; ok {
		return n
	}
	return "low"
}

// ParseSeverity maps a raw severity string, defaulting to low.
func ParseSeverity(raw string) Severity {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for s, n := range severityNames {
		if n == raw {
			return s
		}
	}
	return SeverityLow
}

func (s Status) MarshalText() ([]byte, error)   { return []byte(s.String()), nil }
func (s *Status) UnmarshalText(b []byte) error  { *s = ParseStatus(string(b)); return nil }
func (p Priority) MarshalText() ([]byte, error) { return []byte(p.String()), nil }
func (p *Priority) UnmarshalText(b []byte) error {
	*p = ParsePriority(string(b))
	return nil
}
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
func (s *Severity) UnmarshalText(b []byte) error {
	*s = ParseSeverity(string(b))
	return nil
}
