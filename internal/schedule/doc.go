// Package schedule holds the normalized domain types shared by the
// conflict detector, the recurrence engine and the alert projector.
//
// Calendar policy: all dates and clock times in this package are naive
// local wall-clock values. There is no timezone or DST handling anywhere
// in the scheduling core; two jobs compare equal in time exactly when
// their calendar date and HH:MM minutes match.
package schedule
