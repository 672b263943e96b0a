package schedule

import (
	"testing"
	"time"
)

func TestParseDateRoundTrip(t *testing.T) {
	t.Parallel()
	d, err := ParseDate("2025-01-06")
	if err != nil {
		t.Fatalf("ParseDate error: %v", err)
	}
	if d.String() != "2025-01-06" {
		t.Fatalf("String = %s, want 2025-01-06", d.String())
	}
	if d.Weekday() != time.Monday {
		t.Fatalf("Weekday = %v, want Monday", d.Weekday())
	}

	if _, err := ParseDate("2025-13-40"); err == nil {
		t.Fatal("expected error for invalid date")
	}
}

func TestAddDaysRollover(t *testing.T) {
	t.Parallel()
	d := Date{Year: 2024, Month: time.February, Day: 28}
	if got := d.AddDays(1).String(); got != "2024-02-29" {
		t.Fatalf("leap day = %s", got)
	}
	if got := d.AddDays(2).String(); got != "2024-03-01" {
		t.Fatalf("rollover = %s", got)
	}
}

func TestAddMonthsClamped(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		from string
		n    int
		day  int
		want string
	}{
		{name: "jan31 to feb", from: "2025-01-31", n: 1, day: 31, want: "2025-02-28"},
		{name: "feb clamp back to mar31", from: "2025-02-28", n: 1, day: 31, want: "2025-03-31"},
		{name: "leap february", from: "2024-01-31", n: 1, day: 31, want: "2024-02-29"},
		{name: "year rollover", from: "2025-11-15", n: 2, day: 0, want: "2026-01-15"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDate(tt.from)
			if err != nil {
				t.Fatalf("ParseDate: %v", err)
			}
			if got := d.AddMonthsClamped(tt.n, tt.day).String(); got != tt.want {
				t.Fatalf("AddMonthsClamped = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDaysSince(t *testing.T) {
	t.Parallel()
	a, _ := ParseDate("2025-03-01")
	b, _ := ParseDate("2025-03-11")
	if got := b.DaysSince(a); got != 10 {
		t.Fatalf("DaysSince = %d, want 10", got)
	}
	if got := a.DaysSince(b); got != -10 {
		t.Fatalf("DaysSince = %d, want -10", got)
	}
}

func TestEnumParsing(t *testing.T) {
	t.Parallel()
	if ParseStatus("In_Progress") != StatusInProgress {
		t.Fatal("status parse should be case-insensitive")
	}
	if ParseStatus("bogus") != StatusUnknown {
		t.Fatal("unknown status must map to StatusUnknown")
	}
	if ParseSeverity("critical") <= ParseSeverity("high") {
		t.Fatal("severity ordering broken")
	}
	if ParsePriority("urgent") != PriorityUrgent {
		t.Fatal("priority parse failed")
	}
}

func TestTechnicianName(t *testing.T) {
	t.Parallel()
	techs := []Technician{{ID: "t1", FirstName: "Jane", LastName: "Doe"}, {ID: "t2"}}
	if got := TechnicianName(techs, "t1"); got != "Jane Doe" {
		t.Fatalf("name = %q", got)
	}
	if got := TechnicianName(techs, "t2"); got != "Unknown" {
		t.Fatalf("empty name = %q", got)
	}
	if got := TechnicianName(techs, "missing"); got != "Unknown" {
		t.Fatalf("missing = %q", got)
	}
}
