package domain

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleFragment is one row of a weekly template: a day of week
// (Sunday=0) plus start and end times of day. Times are stored on the
// UTC clock; naive inputs are assumed UTC.
type ScheduleFragment struct {
	ID         uuid.UUID
	Membership uuid.UUID
	DayOfWeek  int
	StartTime  time.Time
	EndTime    time.Time
}

// NewScheduleFragment normalizes the time-of-day pair to UTC. Only the
// clock components of startTime and endTime matter.
func NewScheduleFragment(dayOfWeek int, startTime, endTime time.Time) *ScheduleFragment {
	return &ScheduleFragment{
		ID:        uuid.New(),
		DayOfWeek: dayOfWeek,
		StartTime: clockOnly(startTime),
		EndTime:   clockOnly(endTime),
	}
}

// clockOnly keeps just the UTC time-of-day on a fixed reference day so
// fragment times compare by clock alone.
func clockOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(1, time.January, 1, u.Hour(), u.Minute(), u.Second(), 0, time.UTC)
}

// Intersects reports whether two fragments collide: same weekday and
// strictly overlapping clock ranges. Touching endpoints do not collide.
func (f *ScheduleFragment) Intersects(o *ScheduleFragment) bool {
	if f.DayOfWeek != o.DayOfWeek {
		return false
	}
	return (o.StartTime.Before(f.StartTime) && f.StartTime.Before(o.EndTime)) ||
		(f.StartTime.Before(o.StartTime) && o.StartTime.Before(f.EndTime))
}

// AsWeekly decomposes an interval into per-day fragments: first day
// starts at the interval's start clock, last day ends at its end clock,
// days in between span 00:00:00 to 23:59:59.
func AsWeekly(iv *Interval) []*ScheduleFragment {
	var out []*ScheduleFragment
	days := DaysBetween(iv.Start, iv.End)
	for i := 0; i <= days; i++ {
		day := StartOfDay(iv.Start).AddDate(0, 0, i)
		start := time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
		if i == 0 {
			start = clockOnly(iv.Start)
		}
		end := time.Date(1, time.January, 1, 23, 59, 59, 0, time.UTC)
		if day.Equal(StartOfDay(iv.End)) {
			end = clockOnly(iv.End)
		}
		out = append(out, &ScheduleFragment{
			ID:        uuid.New(),
			DayOfWeek: DayOfWeek(day),
			StartTime: start,
			EndTime:   end,
		})
	}
	return out
}

// FragmentsIntersect reports whether any fragment of the template
// collides with the interval's weekly decomposition.
func FragmentsIntersect(template []*ScheduleFragment, iv *Interval) bool {
	pieces := AsWeekly(iv)
	for _, t := range template {
		for _, p := range pieces {
			if t.Intersects(p) {
				return true
			}
		}
	}
	return false
}
