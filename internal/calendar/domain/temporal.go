package domain

import "time"

const (
	// JoinGap is the tolerance within which two identity-matching
	// intervals are considered touching and must be merged. It doubles
	// as the minimum useful interval length when materializing
	// schedules.
	JoinGap = 5 * time.Minute

	// ExtendHorizon is the default look-ahead used when rolling a
	// weekly schedule template forward in time.
	ExtendHorizon = 40 * 24 * time.Hour
)

// DayOfWeek maps t to the service's weekday convention: Sunday=0,
// Monday=1, ... Saturday=6. The week starts on Sunday, which is also
// how time.Weekday counts, so only the UTC normalization matters here.
func DayOfWeek(t time.Time) int {
	return int(t.UTC().Weekday())
}

// StartOfDay truncates t to midnight in UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateAt combines a calendar day with a time-of-day, both on the UTC
// timeline.
func DateAt(day time.Time, clock time.Time) time.Time {
	y, m, d := day.UTC().Date()
	h, min, sec := clock.UTC().Clock()
	return time.Date(y, m, d, h, min, sec, clock.UTC().Nanosecond(), time.UTC)
}

// DaysBetween counts whole calendar days from the day of a to the day
// of b. Same-day instants yield 0.
func DaysBetween(a, b time.Time) int {
	return int(StartOfDay(b).Sub(StartOfDay(a)) / (24 * time.Hour))
}

// RangeBounds converts the inclusive [start, end] date pair of a listing
// query into instants. When includeEndDate is set the end advances by
// one day so the whole last day is covered.
func RangeBounds(start, end time.Time, includeEndDate bool) (time.Time, time.Time) {
	from := StartOfDay(start)
	to := StartOfDay(end)
	if includeEndDate {
		to = to.AddDate(0, 0, 1)
	}
	return from, to
}
