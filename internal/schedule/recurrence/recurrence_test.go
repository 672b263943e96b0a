package recurrence

import (
	"reflect"
	"testing"
	"time"

	"fieldops/internal/schedule"
)

func mustDate(t *testing.T, s string) schedule.Date {
	t.Helper()
	d, err := schedule.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func dates(t *testing.T, ss ...string) []schedule.Date {
	t.Helper()
	out := make([]schedule.Date, 0, len(ss))
	for _, s := range ss {
		out = append(out, mustDate(t, s))
	}
	return out
}

func TestGenerateDailyMaxOccurrences(t *testing.T) {
	t.Parallel()
	p := Daily{Bounds{Start: mustDate(t, "2025-03-01"), Interval: 1, MaxOccurrences: 5}}
	got := Generate(p, 100)
	want := dates(t, "2025-03-01", "2025-03-02", "2025-03-03", "2025-03-04", "2025-03-05")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("daily = %v, want %v", got, want)
	}
}

func TestGenerateDailyInterval(t *testing.T) {
	t.Parallel()
	p := Daily{Bounds{Start: mustDate(t, "2025-03-01"), Interval: 3}}
	got := Generate(p, 3)
	want := dates(t, "2025-03-01", "2025-03-04", "2025-03-07")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("daily interval = %v, want %v", got, want)
	}
}

func TestGenerateWeeklyDaysOfWeek(t *testing.T) {
	t.Parallel()
	// 2025-01-06 is a Monday.
	p := Weekly{
		Bounds: Bounds{Start: mustDate(t, "2025-01-06"), Interval: 1},
		Days:   []time.Weekday{time.Monday, time.Wednesday, time.Friday},
	}
	got := Generate(p, 6)
	want := dates(t, "2025-01-06", "2025-01-08", "2025-01-10", "2025-01-13", "2025-01-15", "2025-01-17")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("weekly = %v, want %v", got, want)
	}
}

func TestGenerateWeeklyBiweekly(t *testing.T) {
	t.Parallel()
	p := Weekly{
		Bounds: Bounds{Start: mustDate(t, "2025-01-06"), Interval: 2},
		Days:   []time.Weekday{time.Monday},
	}
	got := Generate(p, 3)
	// Week of Jan 6 fires, week of Jan 13 is skipped.
	want := dates(t, "2025-01-06", "2025-01-20", "2025-02-03")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("biweekly = %v, want %v", got, want)
	}
}

func TestGenerateWeeklyNoDaySet(t *testing.T) {
	t.Parallel()
	p := Weekly{Bounds: Bounds{Start: mustDate(t, "2025-01-06"), Interval: 2}}
	got := Generate(p, 3)
	want := dates(t, "2025-01-06", "2025-01-20", "2025-02-03")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("weekly without day set = %v, want %v", got, want)
	}
}

func TestGenerateWeeklyEmptyDaySetTerminates(t *testing.T) {
	t.Parallel()
	p := Weekly{
		Bounds: Bounds{Start: mustDate(t, "2025-01-06"), Interval: 1},
		Days:   []time.Weekday{}, // malformed: can never match
	}
	done := make(chan []schedule.Date, 1)
	go func() { done <- Generate(p, 10) }()
	select {
	case got := <-done:
		if len(got) != 0 {
			t.Fatalf("empty day set produced occurrences: %v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Generate did not terminate for a malformed weekly pattern")
	}
}

func TestGenerateMonthlyClampsShortMonths(t *testing.T) {
	t.Parallel()
	p := Monthly{
		Bounds:     Bounds{Start: mustDate(t, "2025-01-31"), Interval: 1},
		DayOfMonth: 31,
	}
	got := Generate(p, 3)
	// Policy: clamp to the last day of short months, never skip a month.
	want := dates(t, "2025-01-31", "2025-02-28", "2025-03-31")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("monthly clamp = %v, want %v", got, want)
	}
}

func TestGenerateMonthlyPinsToStartDay(t *testing.T) {
	t.Parallel()
	p := Monthly{Bounds: Bounds{Start: mustDate(t, "2025-04-15"), Interval: 2}}
	got := Generate(p, 3)
	want := dates(t, "2025-04-15", "2025-06-15", "2025-08-15")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("monthly pinned = %v, want %v", got, want)
	}
}

func TestGenerateMonthlyStartBeforePin(t *testing.T) {
	t.Parallel()
	p := Monthly{
		Bounds:     Bounds{Start: mustDate(t, "2025-01-15"), Interval: 1},
		DayOfMonth: 31,
	}
	got := Generate(p, 2)
	// The pinned day later in the start month is the first occurrence;
	// nothing before the start date is ever emitted.
	want := dates(t, "2025-01-31", "2025-02-28")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("monthly re-pin = %v, want %v", got, want)
	}
}

func TestGenerateEndDateBound(t *testing.T) {
	t.Parallel()
	end := mustDate(t, "2025-03-03")
	p := Daily{Bounds{Start: mustDate(t, "2025-03-01"), Interval: 1, End: &end}}
	got := Generate(p, 100)
	want := dates(t, "2025-03-01", "2025-03-02", "2025-03-03")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("end bound = %v, want %v", got, want)
	}
}

func TestGenerateTightestBoundWins(t *testing.T) {
	t.Parallel()
	end := mustDate(t, "2025-03-10")
	p := Daily{Bounds{Start: mustDate(t, "2025-03-01"), Interval: 1, End: &end, MaxOccurrences: 4}}
	if got := Generate(p, 100); len(got) != 4 {
		t.Fatalf("maxOccurrences should win over endDate: %v", got)
	}

	p.MaxOccurrences = 50
	if got := Generate(p, 3); len(got) != 3 {
		t.Fatalf("hardCap should win over pattern bounds: %v", got)
	}
}

func TestGenerateRestartable(t *testing.T) {
	t.Parallel()
	p := Weekly{
		Bounds: Bounds{Start: mustDate(t, "2025-01-06"), Interval: 1},
		Days:   []time.Weekday{time.Tuesday, time.Thursday},
	}
	first := Generate(p, 8)
	second := Generate(p, 8)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Generate is not restartable:\n%v\n%v", first, second)
	}
}

func TestGenerateStrictlyAscending(t *testing.T) {
	t.Parallel()
	patterns := []Pattern{
		Daily{Bounds{Start: mustDate(t, "2025-01-01"), Interval: 1}},
		Custom{Bounds{Start: mustDate(t, "2025-01-01"), Interval: 11}},
		Weekly{Bounds: Bounds{Start: mustDate(t, "2025-01-06")}, Days: []time.Weekday{time.Monday, time.Friday}},
		Monthly{Bounds: Bounds{Start: mustDate(t, "2025-01-31")}, DayOfMonth: 31},
	}
	for _, p := range patterns {
		got := Generate(p, 20)
		if len(got) == 0 {
			t.Fatalf("%s produced nothing", p.kind())
		}
		for i := 1; i < len(got); i++ {
			if !got[i-1].Before(got[i]) {
				t.Fatalf("%s not strictly ascending: %v", p.kind(), got)
			}
		}
	}
}

func TestEstimateTotal(t *testing.T) {
	t.Parallel()
	end := mustDate(t, "2025-03-31")

	tests := []struct {
		name    string
		p       Pattern
		want    int
		bounded bool
	}{
		{
			name:    "max occurrences wins",
			p:       Daily{Bounds{Start: mustDate(t, "2025-03-01"), MaxOccurrences: 7, End: &end}},
			want:    7,
			bounded: true,
		},
		{
			name:    "daily span",
			p:       Daily{Bounds{Start: mustDate(t, "2025-03-01"), Interval: 1, End: &end}},
			want:    31,
			bounded: true,
		},
		{
			name:    "weekly approximation",
			p:       Weekly{Bounds: Bounds{Start: mustDate(t, "2025-03-03"), Interval: 1, End: &end}, Days: []time.Weekday{time.Monday, time.Friday}},
			want:    10, // 4 full weeks + 1, times 2 days: an estimate, not a recount
			bounded: true,
		},
		{
			name:    "unbounded",
			p:       Daily{Bounds{Start: mustDate(t, "2025-03-01")}},
			bounded: false,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			n, bounded := EstimateTotal(tt.p)
			if bounded != tt.bounded {
				t.Fatalf("bounded = %v, want %v", bounded, tt.bounded)
			}
			if bounded && n != tt.want {
				t.Fatalf("n = %d, want %d", n, tt.want)
			}
		})
	}
}
