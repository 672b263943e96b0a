package storage

import (
	"encoding/json"
	"strings"

	"fieldops/internal/schedule"
)

// The upstream job shape is duck-typed: ids may be strings or numbers,
// the location may be a nested object or a flat field, and the customer
// name hides behind several keys. rawJob accepts all of that and
// Normalize() collapses it into the schedule.Job value type, so the
// scheduling core never does optional-chaining.

// flexString decodes a JSON string or number into a string.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = []byte(strings.TrimSpace(string(b)))
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type rawRef struct {
	ID flexString `json:"id"`
}

type rawCustomer struct {
	ID          flexString `json:"id"`
	Name        string     `json:"name"`
	DisplayName string     `json:"display_name"`
}

type rawJob struct {
	ID            flexString   `json:"id"`
	ScheduledDate string       `json:"scheduled_date"`
	StartTime     string       `json:"start_time"`
	EndTime       string       `json:"end_time"`
	TechnicianID  flexString   `json:"technician_id"`
	LocationID    flexString   `json:"location_id"`
	Location      *rawRef      `json:"location"`
	Customer      *rawCustomer `json:"customer"`
	CustomerName  string       `json:"customer_name"`
	Status        string       `json:"status"`
	Priority      string       `json:"priority"`
}

// Normalize maps the raw document onto the core value type. Unparseable
// dates come out zero, which excludes the job from date-gated rules
// without faulting the load.
func (r rawJob) Normalize() schedule.Job {
	j := schedule.Job{
		ID:           string(r.ID),
		CustomerName: customerName(r),
		StartTime:    strings.TrimSpace(r.StartTime),
		EndTime:      strings.TrimSpace(r.EndTime),
		TechnicianID: string(r.TechnicianID),
		LocationID:   locationID(r),
		Status:       schedule.ParseStatus(r.Status),
		Priority:     schedule.ParsePriority(r.Priority),
	}
	if d, err := schedule.ParseDate(strings.TrimSpace(r.ScheduledDate)); err == nil {
		j.Date = d
	}
	return j
}

// locationID resolves the nested location.id first, falling back to the
// flat location_id field.
func locationID(r rawJob) string {
	if r.Location != nil && r.Location.ID != "" {
		return string(r.Location.ID)
	}
	return string(r.LocationID)
}

func customerName(r rawJob) string {
	if r.Customer != nil {
		if n := strings.TrimSpace(r.Customer.Name); n != "" {
			return n
		}
		if n := strings.TrimSpace(r.Customer.DisplayName); n != "" {
			return n
		}
	}
	return strings.TrimSpace(r.CustomerName)
}

type rawTechnician struct {
	ID             flexString `json:"id"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	FirstNameCamel string     `json:"firstName"`
	LastNameCamel  string     `json:"lastName"`
}

func (r rawTechnician) Normalize() schedule.Technician {
	t := schedule.Technician{
		ID:        string(r.ID),
		FirstName: strings.TrimSpace(r.FirstName),
		LastName:  strings.TrimSpace(r.LastName),
	}
	if t.FirstName == "" {
		t.FirstName = strings.TrimSpace(r.FirstNameCamel)
	}
	if t.LastName == "" {
		t.LastName = strings.TrimSpace(r.LastNameCamel)
	}
	return t
}

// denormalize renders a normalized job back into the flat raw shape, so
// files written by UpsertJobs stay readable by the raw loader (and by
// the upstream tooling that expects flat fields).
func denormalize(j schedule.Job) rawJob {
	r := rawJob{
		ID:           flexString(j.ID),
		StartTime:    j.StartTime,
		EndTime:      j.EndTime,
		TechnicianID: flexString(j.TechnicianID),
		LocationID:   flexString(j.LocationID),
		CustomerName: j.CustomerName,
		Status:       j.Status.String(),
		Priority:     j.Priority.String(),
	}
	if !j.Date.IsZero() {
		r.ScheduledDate = j.Date.String()
	}
	return r
}
