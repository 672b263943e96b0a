package schedule

import (
	"fmt"
	"time"
)

// Date is a civil calendar date with no time-of-day and no zone.
//
// Arithmetic goes through time.Time pinned to UTC purely as a calendar
// vehicle; the zone never leaks out.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf truncates t to its calendar date (in t's own location).
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) Weekday() time.Weekday { return d.time().Weekday() }

// AddDays returns the date n days after d (normalizing month/year rollover).
func (d Date) AddDays(n int) Date { return DateOf(d.time().AddDate(0, 0, n)) }

// AddMonthsClamped advances by n months, clamping the day to the last day
// of the target month (Jan 31 + 1 month = Feb 28/29, never Mar 2/3).
func (d Date) AddMonthsClamped(n int, day int) Date {
	if day <= 0 {
		day = d.Day
	}
	// First-of-month anchor avoids Go's AddDate overflow normalization.
	anchor := time.Date(d.Year, d.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	y, m, _ := anchor.Date()
	return Date{Year: y, Month: m, Day: clampDay(y, m, day)}
}

// ClampedDay returns day clamped to the number of days in d's month.
func (d Date) ClampedDay(day int) int { return clampDay(d.Year, d.Month, day) }

func clampDay(y int, m time.Month, day int) int {
	if day < 1 {
		day = 1
	}
	if last := daysInMonth(y, m); day > last {
		return last
	}
	return day
}

func daysInMonth(y int, m time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }

// DaysSince returns the whole-day distance from o to d (negative if d < o).
func (d Date) DaysSince(o Date) int {
	return int(d.time().Sub(o.time()) / (24 * time.Hour))
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	p, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = p
	return nil
}
