// Package interval provides the overlap primitives the conflict detector
// is built on: HH:MM clock parsing and strict open-interval overlap over
// minutes-since-midnight.
package interval

import (
	"fmt"
	"strconv"
	"strings"

	"fieldops/internal/schedule"
)

// ParseClock parses an "HH:MM" wall-clock string into minutes since
// midnight (hour*60+minute). No timezone or DST adjustment is applied.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// Overlaps is the strict open-interval overlap test over clock minutes.
// Intervals that merely touch at an endpoint (aEnd == bStart) do not
// overlap. The relation is symmetric; callers must exclude self-pairs.
//
// end > start is assumed, not validated: garbage bounds shrink the result
// set instead of faulting.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// Window is a job's time box on a single calendar date.
type Window struct {
	Date     schedule.Date
	StartMin int
	EndMin   int
}

// Overlaps reports whether two windows collide: same date and strictly
// overlapping clock intervals.
func (w Window) Overlaps(o Window) bool {
	if w.Date != o.Date {
		return false
	}
	return Overlaps(w.StartMin, w.EndMin, o.StartMin, o.EndMin)
}

// JobWindow derives the job's window. ok is false when the job is missing
// its date or either clock bound, or a bound fails to parse; such jobs are
// excluded from overlap checks.
func JobWindow(j schedule.Job) (Window, bool) {
	if !j.HasWindow() {
		return Window{}, false
	}
	start, err := ParseClock(j.StartTime)
	if err != nil {
		return Window{}, false
	}
	end, err := ParseClock(j.EndTime)
	if err != nil {
		return Window{}, false
	}
	return Window{Date: j.Date, StartMin: start, EndMin: end}, true
}

// FormatClock renders minutes since midnight back to "HH:MM" for
// descriptions.
func FormatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}
