// Package recurrence unrolls a recurring-series definition into a
// bounded, deterministic sequence of concrete occurrence dates.
//
// Patterns are a sealed tagged union: each variant carries only the
// fields that mean something for its stepping rule. Generation is a pure
// function with no retained iterator state, so it is restartable and two
// calls with the same inputs yield identical sequences.
package recurrence

import (
	"time"

	"fieldops/internal/schedule"
)

// maxIterations bounds the cursor walk so a malformed pattern (e.g. a
// weekly pattern with an empty day set) always terminates with whatever
// was produced instead of spinning.
const maxIterations = 1000

// Pattern is one recurring-series definition.
//
// The interface is sealed: the only implementations are Daily, Weekly,
// Monthly and Custom.
type Pattern interface {
	kind() string
	bounds() Bounds
	// includes reports whether the cursor date is an occurrence.
	includes(d schedule.Date) bool
	// advance moves the cursor strictly forward per the stepping rule.
	advance(d schedule.Date) schedule.Date
}

// Bounds are the fields common to every pattern variant.
type Bounds struct {
	Start schedule.Date
	// Interval is the cadence multiplier ("every N units"); values < 1
	// are treated as 1.
	Interval int
	// End, when set, is an inclusive hard stop.
	End *schedule.Date
	// MaxOccurrences, when > 0, is a hard stop on the produced count.
	MaxOccurrences int
}

func (b Bounds) step() int {
	if b.Interval < 1 {
		return 1
	}
	return b.Interval
}

// Daily repeats every Interval days from Start.
type Daily struct{ Bounds }

func (p Daily) kind() string                { return "daily" }
func (p Daily) bounds() Bounds              { return p.Bounds }
func (p Daily) includes(schedule.Date) bool { return true }
func (p Daily) advance(d schedule.Date) schedule.Date {
	return d.AddDays(p.step())
}

// Custom behaves like Daily with an arbitrary day interval; it exists as
// a distinct variant because upstream patterns distinguish the two.
type Custom struct{ Bounds }

func (p Custom) kind() string                { return "custom" }
func (p Custom) bounds() Bounds              { return p.Bounds }
func (p Custom) includes(schedule.Date) bool { return true }
func (p Custom) advance(d schedule.Date) schedule.Date {
	return d.AddDays(p.step())
}

// Weekly repeats on the weekdays in Days every Interval weeks. A nil
// Days set degenerates to "every Interval weeks from Start". An empty
// non-nil set is malformed (it can never match); generation still
// terminates via the iteration ceiling and returns nothing.
type Weekly struct {
	Bounds
	Days []time.Weekday
}

func (p Weekly) kind() string   { return "weekly" }
func (p Weekly) bounds() Bounds { return p.Bounds }

func (p Weekly) includes(d schedule.Date) bool {
	if p.Days == nil {
		return true
	}
	wd := d.Weekday()
	for _, day := range p.Days {
		if day == wd {
			return true
		}
	}
	return false
}

func (p Weekly) advance(d schedule.Date) schedule.Date {
	if p.Days == nil {
		return d.AddDays(7 * p.step())
	}
	// Walk day by day; when the cursor crosses a week boundary (Sunday,
	// weekday 0) skip the off-cadence weeks in one jump.
	next := d.AddDays(1)
	if next.Weekday() == time.Sunday && p.step() > 1 {
		next = next.AddDays(7 * (p.step() - 1))
	}
	return next
}

// Monthly repeats on a pinned day-of-month every Interval months.
// DayOfMonth == 0 pins to Start's day-of-month.
//
// Rollover policy: when the pinned day exceeds the target month's length
// the occurrence clamps to the month's last day (Jan 31 -> Feb 28 ->
// Mar 31); months are never skipped.
type Monthly struct {
	Bounds
	DayOfMonth int
}

func (p Monthly) kind() string   { return "monthly" }
func (p Monthly) bounds() Bounds { return p.Bounds }

func (p Monthly) pin() int {
	if p.DayOfMonth >= 1 && p.DayOfMonth <= 31 {
		return p.DayOfMonth
	}
	return p.Start.Day
}

func (p Monthly) includes(d schedule.Date) bool {
	return d.Day == d.ClampedDay(p.pin())
}

func (p Monthly) advance(d schedule.Date) schedule.Date {
	pin := p.pin()
	// A start date before the pinned day re-pins within its own month
	// first, so e.g. start=Jan 15, day=31 yields Jan 31 as the first hit.
	if clamped := d.ClampedDay(pin); d.Day < clamped {
		return schedule.Date{Year: d.Year, Month: d.Month, Day: clamped}
	}
	return d.AddMonthsClamped(p.step(), pin)
}

// Generate unrolls the pattern into a finite, ascending, deduplicated
// slice of dates. hardCap is the caller's termination guarantee for
// conceptually unbounded patterns (a preview limit); generation stops at
// min(MaxOccurrences, hardCap), at End, and in all cases within the
// internal iteration ceiling. Only dates >= Start are emitted.
func Generate(p Pattern, hardCap int) []schedule.Date {
	if p == nil || hardCap <= 0 {
		return nil
	}
	b := p.bounds()
	if b.Start.IsZero() {
		return nil
	}

	limit := hardCap
	if b.MaxOccurrences > 0 && b.MaxOccurrences < limit {
		limit = b.MaxOccurrences
	}

	out := make([]schedule.Date, 0, minInt(limit, 32))
	cursor := b.Start
	for iter := 0; iter < maxIterations && len(out) < limit; iter++ {
		if b.End != nil && cursor.After(*b.End) {
			break
		}
		if !cursor.Before(b.Start) && p.includes(cursor) {
			if len(out) == 0 || out[len(out)-1].Before(cursor) {
				out = append(out, cursor)
			}
		}
		next := p.advance(cursor)
		if !next.After(cursor) {
			// A non-advancing rule would spin; bail out defensively.
			break
		}
		cursor = next
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
