package schedule

import "strings"

// Job is a normalized, time-boxed assignment.
//
// The raw upstream shape is duck-typed (nested location/customer objects
// with several fallback field names); the storage boundary normalizes it
// into this value type so the core never does optional-chaining.
type Job struct {
	ID           string   `json:"id"`
	CustomerName string   `json:"customer_name,omitempty"`
	Date         Date     `json:"scheduled_date"`
	StartTime    string   `json:"start_time,omitempty"` // "HH:MM"; empty = unset
	EndTime      string   `json:"end_time,omitempty"`   // "HH:MM"; empty = unset
	TechnicianID string   `json:"technician_id,omitempty"`
	LocationID   string   `json:"location_id,omitempty"`
	Status       Status   `json:"status"`
	Priority     Priority `json:"priority"`
}

// HasWindow reports whether the job carries everything overlap checks
// need: a scheduled date and both clock bounds. Jobs without a full
// window are silently excluded from detection (partial data is normal,
// e.g. an unassigned job), but stay eligible for temporal alert rules.
func (j Job) HasWindow() bool {
	return !j.Date.IsZero() &&
		strings.TrimSpace(j.StartTime) != "" &&
		strings.TrimSpace(j.EndTime) != ""
}

// CustomerLabel is the customer-facing name used in descriptions.
func (j Job) CustomerLabel() string {
	if n := strings.TrimSpace(j.CustomerName); n != "" {
		return n
	}
	return "Unknown"
}

// Technician is a directory entry used to render conflict descriptions.
type Technician struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DisplayName renders "First Last", tolerating missing parts.
func (t Technician) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(t.FirstName) + " " + strings.TrimSpace(t.LastName))
	if name == "" {
		return "Unknown"
	}
	return name
}

// TechnicianName resolves an id against the directory, else "Unknown".
func TechnicianName(techs []Technician, id string) string {
	for _, t := range techs {
		if t.ID == id {
			return t.DisplayName()
		}
	}
	return "Unknown"
}
