package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marfateam/rcalendar/internal/calendar/domain"
)

func clock(h, m, s int) time.Time {
	return time.Date(1, time.January, 1, h, m, s, 0, time.UTC)
}

func TestDayOfWeek(t *testing.T) {
	tests := []struct {
		date time.Time
		want int
	}{
		{time.Date(2024, time.January, 14, 0, 0, 0, 0, time.UTC), 0}, // Sunday
		{time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), 1}, // Monday
		{time.Date(2024, time.January, 17, 0, 0, 0, 0, time.UTC), 3}, // Wednesday
		{time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC), 6}, // Saturday
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, domain.DayOfWeek(tt.date), "for %v", tt.date)
	}
}

func TestRangeBounds(t *testing.T) {
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)

	from, to := domain.RangeBounds(start, end, true)
	assert.True(t, from.Equal(start))
	assert.True(t, to.Equal(end.AddDate(0, 0, 1)), "inclusive end covers the whole last day")

	_, to = domain.RangeBounds(start, end, false)
	assert.True(t, to.Equal(end))
}

func TestFragmentIntersects(t *testing.T) {
	tests := []struct {
		name string
		a    *domain.ScheduleFragment
		b    *domain.ScheduleFragment
		want bool
	}{
		{
			name: "different weekday never intersects",
			a:    domain.NewScheduleFragment(1, clock(9, 0, 0), clock(12, 0, 0)),
			b:    domain.NewScheduleFragment(2, clock(9, 0, 0), clock(12, 0, 0)),
			want: false,
		},
		{
			name: "overlap on the same weekday",
			a:    domain.NewScheduleFragment(1, clock(9, 0, 0), clock(12, 0, 0)),
			b:    domain.NewScheduleFragment(1, clock(11, 0, 0), clock(13, 0, 0)),
			want: true,
		},
		{
			name: "touching ranges do not intersect",
			a:    domain.NewScheduleFragment(1, clock(9, 0, 0), clock(12, 0, 0)),
			b:    domain.NewScheduleFragment(1, clock(12, 0, 0), clock(14, 0, 0)),
			want: false,
		},
		{
			name: "contained range intersects",
			a:    domain.NewScheduleFragment(1, clock(9, 0, 0), clock(18, 0, 0)),
			b:    domain.NewScheduleFragment(1, clock(10, 0, 0), clock(11, 0, 0)),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Intersects(tt.b))
			assert.Equal(t, tt.want, tt.b.Intersects(tt.a), "intersection is symmetric")
		})
	}
}

func TestAsWeekly(t *testing.T) {
	resource := uuid.New()

	t.Run("single day keeps both clocks", func(t *testing.T) {
		iv := domain.NewInterval(resource, domain.KindOrgReserved,
			time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC),
			time.Date(2024, time.January, 15, 12, 30, 0, 0, time.UTC))

		frags := domain.AsWeekly(iv)

		require.Len(t, frags, 1)
		assert.Equal(t, 1, frags[0].DayOfWeek)
		assert.True(t, frags[0].StartTime.Equal(clock(9, 0, 0)))
		assert.True(t, frags[0].EndTime.Equal(clock(12, 30, 0)))
	})

	t.Run("multi day spans midnight to midnight in between", func(t *testing.T) {
		iv := domain.NewInterval(resource, domain.KindOrgReserved,
			time.Date(2024, time.January, 15, 22, 0, 0, 0, time.UTC), // Monday
			time.Date(2024, time.January, 17, 6, 0, 0, 0, time.UTC))  // Wednesday

		frags := domain.AsWeekly(iv)

		require.Len(t, frags, 3)

		assert.Equal(t, 1, frags[0].DayOfWeek)
		assert.True(t, frags[0].StartTime.Equal(clock(22, 0, 0)))
		assert.True(t, frags[0].EndTime.Equal(clock(23, 59, 59)))

		assert.Equal(t, 2, frags[1].DayOfWeek)
		assert.True(t, frags[1].StartTime.Equal(clock(0, 0, 0)))
		assert.True(t, frags[1].EndTime.Equal(clock(23, 59, 59)))

		assert.Equal(t, 3, frags[2].DayOfWeek)
		assert.True(t, frags[2].StartTime.Equal(clock(0, 0, 0)))
		assert.True(t, frags[2].EndTime.Equal(clock(6, 0, 0)))
	})
}

func TestFragmentsIntersect(t *testing.T) {
	resource := uuid.New()
	template := []*domain.ScheduleFragment{
		domain.NewScheduleFragment(1, clock(9, 0, 0), clock(18, 0, 0)), // Monday
		domain.NewScheduleFragment(3, clock(14, 0, 0), clock(16, 0, 0)),
	}

	monday10to11 := domain.NewInterval(resource, domain.KindOrgReserved,
		time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 15, 11, 0, 0, 0, time.UTC))
	assert.True(t, domain.FragmentsIntersect(template, monday10to11))

	tuesday := domain.NewInterval(resource, domain.KindOrgReserved,
		time.Date(2024, time.January, 16, 10, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 16, 11, 0, 0, 0, time.UTC))
	assert.False(t, domain.FragmentsIntersect(template, tuesday))

	wednesdayEvening := domain.NewInterval(resource, domain.KindOrgReserved,
		time.Date(2024, time.January, 17, 16, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 17, 19, 0, 0, 0, time.UTC))
	assert.False(t, domain.FragmentsIntersect(template, wednesdayEvening),
		"touching the template end does not collide")
}
