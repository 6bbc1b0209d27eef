package commands_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marfateam/rcalendar/internal/calendar/application/commands"
	caldomain "github.com/marfateam/rcalendar/internal/calendar/domain"
	dirdomain "github.com/marfateam/rcalendar/internal/directory/domain"
)

func jan(day, h, m int) time.Time {
	return time.Date(2024, time.January, day, h, m, 0, 0, time.UTC)
}

func clock(h, m int) time.Time {
	return time.Date(2024, time.January, 1, h, m, 0, 0, time.UTC)
}

// weekTemplate is Monday 09:00-12:00 plus Wednesday 14:00-16:00.
func weekTemplate() []*caldomain.ScheduleFragment {
	return []*caldomain.ScheduleFragment{
		caldomain.NewScheduleFragment(1, clock(9, 0), clock(12, 0)),
		caldomain.NewScheduleFragment(3, clock(14, 0), clock(16, 0)),
	}
}

func assertSpan(t *testing.T, iv *caldomain.Interval, start, end time.Time) {
	t.Helper()
	assert.True(t, iv.Start.Equal(start), "start %v, want %v", iv.Start, start)
	assert.True(t, iv.End.Equal(end), "end %v, want %v", iv.End, end)
}

func TestApplySchedule_WindowedMaterialization(t *testing.T) {
	f := newFixture(t)
	res := f.resource(1)
	org := f.organization(10)
	f.member(res, org)

	// 2024-01-01 was a Monday; two weeks hold Mondays the 1st and 8th
	// and Wednesdays the 3rd and 10th.
	start := jan(1, 0, 0)
	end := jan(14, 0, 0)
	ctx, sink := sinkContext()
	result, err := f.applyHandler().Handle(ctx, commands.ApplyScheduleCommand{
		App:          testApp,
		Resource:     1,
		Organization: 10,
		Start:        &start,
		End:          &end,
		Fragments:    weekTemplate(),
	})
	require.NoError(t, err)
	assert.True(t, result.Applied)

	rows := f.stored(res, jan(1, 0, 0), jan(20, 0, 0))
	require.Len(t, rows, 4)
	assertSpan(t, rows[0], jan(1, 9, 0), jan(1, 12, 0))
	assertSpan(t, rows[1], jan(3, 14, 0), jan(3, 16, 0))
	assertSpan(t, rows[2], jan(8, 9, 0), jan(8, 12, 0))
	assertSpan(t, rows[3], jan(10, 14, 0), jan(10, 16, 0))
	for _, iv := range rows {
		assert.Equal(t, caldomain.KindOrgReserved, iv.Kind)
		require.NotNil(t, iv.Organization)
		assert.Equal(t, org.ID, *iv.Organization)
	}

	// A windowed apply neither persists the template nor moves the
	// watermark.
	m, err := f.memberships.Find(sinkCtx(), res.ID, org.ID)
	require.NoError(t, err)
	assert.Nil(t, m.ScheduleExtendedTo)
	fragments, err := f.memberships.Fragments(sinkCtx(), m.ID)
	require.NoError(t, err)
	assert.Empty(t, fragments)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, caldomain.EventApplySchedule, events[0].Kind)
	assert.Equal(t, false, events[0].Payload["permanent"])

	staged := f.staged()
	require.Len(t, staged, 1)
	assert.Equal(t, "calendar.schedule.applied", staged[0].RoutingKey)
	assert.Equal(t, "membership", staged[0].AggregateType)
}

func TestApplySchedule_RerunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	res := f.resource(1)
	org := f.organization(10)
	f.member(res, org)

	start := jan(1, 0, 0)
	end := jan(14, 0, 0)
	cmd := commands.ApplyScheduleCommand{
		App:          testApp,
		Resource:     1,
		Organization: 10,
		Start:        &start,
		End:          &end,
		Fragments:    weekTemplate(),
	}
	_, err := f.applyHandler().Handle(sinkCtx(), cmd)
	require.NoError(t, err)
	_, err = f.applyHandler().Handle(sinkCtx(), commands.ApplyScheduleCommand{
		App:          testApp,
		Resource:     1,
		Organization: 10,
		Start:        &start,
		End:          &end,
		Fragments:    weekTemplate(),
	})
	require.NoError(t, err)

	rows := f.stored(res, jan(1, 0, 0), jan(20, 0, 0))
	require.Len(t, rows, 4, "second run wipes and recreates the same spans")
	assertSpan(t, rows[0], jan(1, 9, 0), jan(1, 12, 0))
	assertSpan(t, rows[3], jan(10, 14, 0), jan(10, 16, 0))
}

func TestApplySchedule_IncludesWindowEndDay(t *testing.T) {
	f := newFixture(t)
	res := f.resource(1)
	org := f.organization(10)
	f.member(res, org)

	// The day loop runs through the end instant's calendar day, so a
	// window ending Monday midnight still materializes that Monday.
	start := jan(1, 0, 0)
	end := jan(15, 0, 0)
	_, err := f.applyHandler().Handle(sinkCtx(), commands.ApplyScheduleCommand{
		App:          testApp,
		Resource:     1,
		Organization: 10,
		Start:        &start,
		End:          &end,
		Fragments:    weekTemplate(),
	})
	require.NoError(t, err)

	rows := f.stored(res, jan(1, 0, 0), jan(20, 0, 0))
	require.Len(t, rows, 5)
	assertSpan(t, rows[4], jan(15, 9, 0), jan(15, 12, 0))
}

func TestApplySchedule_CarvesWindowOutOfStandingTime(t *testing.T) {
	f := newFixture(t)
	res := f.resource(1)
	org := f.organization(10)
	f.member(res, org)

	// One standing span strictly containing the window gets split; the
	// window is then rebuilt from the fragments, and the last created
	// span joins the right-hand remainder.
	f.seed(caldomain.NewInterval(res.ID, caldomain.KindOrgReserved,
		time.Date(2023, time.December, 25, 0, 0, 0, 0, time.UTC), jan(20, 0, 0)).
		WithOrganization(org.ID))

	start := jan(1, 0, 0)
	end := jan(8, 0, 0)
	_, err := f.applyHandler().Handle(sinkCtx(), commands.ApplyScheduleCommand{
		App:          testApp,
		Resource:     1,
		Organization: 10,
		Start:        &start,
		End:          &end,
		Fragments: []*caldomain.ScheduleFragment{
			caldomain.NewScheduleFragment(1, clock(9, 0), clock(12, 0)),
		},
	})
	require.NoError(t, err)

	rows := f.stored(res, time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC), jan(31, 0, 0))
	require.Len(t, rows, 3)
	assertSpan(t, rows[0], time.Date(2023, time.December, 25, 0, 0, 0, 0, time.UTC), jan(1, 0, 0))
	assertSpan(t, rows[1], jan(1, 9, 0), jan(1, 12, 0))
	assertSpan(t, rows[2], jan(8, 0, 0), jan(20, 0, 0))
}

func TestApplySchedule_PermanentInstallsTemplate(t *testing.T) {
	f := newFixture(t)
	res := f.resource(1)
	org := f.organization(10)
	f.member(res, org)

	before := time.Now().UTC()
	ctx, sink := sinkContext()
	result, err := f.applyHandler().Handle(ctx, commands.ApplyScheduleCommand{
		App:          testApp,
		Resource:     1,
		Organization: 10,
		AuthorID:     i64(30),
		Fragments:    weekTemplate(),
	})
	require.NoError(t, err)
	assert.True(t, result.Applied)

	m, err := f.memberships.Find(sinkCtx(), res.ID, org.ID)
	require.NoError(t, err)
	require.NotNil(t, m.ScheduleExtendedTo)
	wantWatermark := before.Add(caldomain.ExtendHorizon)
	assert.WithinDuration(t, wantWatermark, *m.ScheduleExtendedTo, time.Minute)

	fragments, err := f.memberships.Fragments(sinkCtx(), m.ID)
	require.NoError(t, err)
	require.Len(t, fragments, 2)
	assert.Equal(t, 1, fragments[0].DayOfWeek)
	assert.Equal(t, 3, fragments[1].DayOfWeek)
	assert.Equal(t, m.ID, fragments[0].Membership)

	rows := f.stored(res, before.AddDate(0, 0, -2), before.Add(caldomain.ExtendHorizon).AddDate(0, 0, 2))
	assert.GreaterOrEqual(t, len(rows), 10)
	assert.LessOrEqual(t, len(rows), 13)
	for _, iv := range rows {
		day := caldomain.DayOfWeek(iv.Start)
		switch day {
		case 1:
			assert.Equal(t, 9, iv.Start.Hour())
			assert.Equal(t, 12, iv.End.Hour())
		case 3:
			assert.Equal(t, 14, iv.Start.Hour())
			assert.Equal(t, 16, iv.End.Hour())
		default:
			t.Fatalf("interval materialized on weekday %d", day)
		}
	}

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, true, events[0].Payload["permanent"])
	require.NotNil(t, payloadRef(t, events[0], "manager"))
	assert.Equal(t, int64(30), *payloadRef(t, events[0], "manager"))
}

func TestApplySchedule_EmptyFragmentsWipeWindow(t *testing.T) {
	f := newFixture(t)
	res := f.resource(1)
	org := f.organization(10)
	m := f.member(res, org)

	require.NoError(t, f.memberships.ReplaceFragments(sinkCtx(), m.ID, weekTemplate()))
	f.seed(caldomain.NewInterval(res.ID, caldomain.KindOrgReserved, jan(1, 9, 0), jan(1, 12, 0)).
		WithOrganization(org.ID))

	start := jan(1, 0, 0)
	end := jan(2, 0, 0)
	result, err := f.applyHandler().Handle(sinkCtx(), commands.ApplyScheduleCommand{
		App:          testApp,
		Resource:     1,
		Organization: 10,
		Start:        &start,
		End:          &end,
		Fragments:    []*caldomain.ScheduleFragment{},
	})
	require.NoError(t, err)
	assert.True(t, result.Applied)

	assert.Empty(t, f.stored(res, jan(1, 0, 0), jan(2, 0, 0)))

	// A windowed wipe leaves the persisted template alone.
	fragments, err := f.memberships.Fragments(sinkCtx(), m.ID)
	require.NoError(t, err)
	assert.Len(t, fragments, 2)
}

func TestApplySchedule_PermanentEmptyFragmentsClearTemplate(t *testing.T) {
	f := newFixture(t)
	res := f.resource(1)
	org := f.organization(10)
	m := f.member(res, org)

	require.NoError(t, f.memberships.ReplaceFragments(sinkCtx(), m.ID, weekTemplate()))
	future := time.Now().UTC().Add(24 * time.Hour)
	f.seed(caldomain.NewInterval(res.ID, caldomain.KindOrgReserved, future, future.Add(2*time.Hour)).
		WithOrganization(org.ID))

	result, err := f.applyHandler().Handle(sinkCtx(), commands.ApplyScheduleCommand{
		App:          testApp,
		Resource:     1,
		Organization: 10,
		Fragments:    []*caldomain.ScheduleFragment{},
	})
	require.NoError(t, err)
	assert.True(t, result.Applied)

	fragments, err := f.memberships.Fragments(sinkCtx(), m.ID)
	require.NoError(t, err)
	assert.Empty(t, fragments, "permanent empty template is cleared")

	rows := f.stored(res, future.Add(-time.Hour), future.Add(3*time.Hour))
	assert.Empty(t, rows, "standing time inside the horizon is wiped")
}

func TestApplySchedule_NothingToApply(t *testing.T) {
	f := newFixture(t)
	res := f.resource(1)
	org := f.organization(10)
	f.member(res, org)

	// No stored template and no fragments in the request.
	ctx, sink := sinkContext()
	result, err := f.applyHandler().Handle(ctx, commands.ApplyScheduleCommand{
		App:          testApp,
		Resource:     1,
		Organization: 10,
		Fragments:    []*caldomain.ScheduleFragment{},
	})
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Zero(t, sink.Len())
	assert.Empty(t, f.staged())
}

func TestApplySchedule_UnknownReferences(t *testing.T) {
	f := newFixture(t)
	f.resource(1)
	f.organization(10)

	_, err := f.applyHandler().Handle(sinkCtx(), commands.ApplyScheduleCommand{
		App: testApp, Resource: 99, Organization: 10, Fragments: weekTemplate(),
	})
	require.ErrorIs(t, err, dirdomain.ErrResourceNotFound)

	_, err = f.applyHandler().Handle(sinkCtx(), commands.ApplyScheduleCommand{
		App: testApp, Resource: 1, Organization: 99, Fragments: weekTemplate(),
	})
	require.ErrorIs(t, err, dirdomain.ErrOrganizationNotFound)

	// Registered pair without a membership edge.
	_, err = f.applyHandler().Handle(sinkCtx(), commands.ApplyScheduleCommand{
		App: testApp, Resource: 1, Organization: 10, Fragments: weekTemplate(),
	})
	require.ErrorIs(t, err, caldomain.ErrResourceNotInOrg)
}
