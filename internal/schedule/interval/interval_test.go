package interval

import (
	"testing"

	"fieldops/internal/schedule"
)

func TestParseClock(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want int
		ok   bool
	}{
		{raw: "00:00", want: 0, ok: true},
		{raw: "09:30", want: 570, ok: true},
		{raw: "23:59", want: 1439, ok: true},
		{raw: " 10:15 ", want: 615, ok: true},
		{raw: "24:00", ok: false},
		{raw: "09:60", ok: false},
		{raw: "0930", ok: false},
		{raw: "", ok: false},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.raw)
		if tt.ok && err != nil {
			t.Fatalf("ParseClock(%q) error: %v", tt.raw, err)
		}
		if !tt.ok && err == nil {
			t.Fatalf("ParseClock(%q) expected error", tt.raw)
		}
		if tt.ok && got != tt.want {
			t.Fatalf("ParseClock(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestOverlapsStrict(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd int
		want                       bool
	}{
		{name: "partial overlap", aStart: 540, aEnd: 600, bStart: 570, bEnd: 630, want: true},
		{name: "containment", aStart: 540, aEnd: 720, bStart: 600, bEnd: 660, want: true},
		{name: "identical", aStart: 540, aEnd: 600, bStart: 540, bEnd: 600, want: true},
		{name: "touching endpoints", aStart: 540, aEnd: 600, bStart: 600, bEnd: 660, want: false},
		{name: "disjoint", aStart: 540, aEnd: 600, bStart: 700, bEnd: 760, want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd); got != tt.want {
				t.Fatalf("Overlaps = %v, want %v", got, tt.want)
			}
			// Symmetry must hold for every pair.
			if got := Overlaps(tt.bStart, tt.bEnd, tt.aStart, tt.aEnd); got != tt.want {
				t.Fatalf("Overlaps not symmetric for %s", tt.name)
			}
		})
	}
}

func TestWindowRequiresSameDate(t *testing.T) {
	t.Parallel()
	mon, _ := schedule.ParseDate("2025-01-06")
	tue, _ := schedule.ParseDate("2025-01-07")
	a := Window{Date: mon, StartMin: 540, EndMin: 600}
	b := Window{Date: tue, StartMin: 540, EndMin: 600}
	if a.Overlaps(b) {
		t.Fatal("windows on different dates must not overlap")
	}
	b.Date = mon
	if !a.Overlaps(b) {
		t.Fatal("identical windows on the same date must overlap")
	}
}

func TestJobWindow(t *testing.T) {
	t.Parallel()
	d, _ := schedule.ParseDate("2025-01-06")
	j := schedule.Job{ID: "j1", Date: d, StartTime: "09:00", EndTime: "10:30"}
	w, ok := JobWindow(j)
	if !ok {
		t.Fatal("expected a window")
	}
	if w.StartMin != 540 || w.EndMin != 630 {
		t.Fatalf("window = %+v", w)
	}

	for _, bad := range []schedule.Job{
		{ID: "no-date", StartTime: "09:00", EndTime: "10:00"},
		{ID: "no-start", Date: d, EndTime: "10:00"},
		{ID: "no-end", Date: d, StartTime: "09:00"},
		{ID: "garbage", Date: d, StartTime: "9am", EndTime: "10:00"},
	} {
		if _, ok := JobWindow(bad); ok {
			t.Fatalf("job %s should not produce a window", bad.ID)
		}
	}
}

func TestFormatClock(t *testing.T) {
	t.Parallel()
	if got := FormatClock(570); got != "09:30" {
		t.Fatalf("FormatClock = %s", got)
	}
}
