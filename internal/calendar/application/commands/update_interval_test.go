package commands_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marfateam/rcalendar/internal/calendar/application/commands"
	caldomain "github.com/marfateam/rcalendar/internal/calendar/domain"
)

// reservationFixture seeds the usual trio: resource 1 in organization
// 10 with manager 30, organization time 09:00-17:00 already reserved.
func reservationFixture(t *testing.T) (*fixture, *caldomain.Interval) {
	t.Helper()
	f := newFixture(t)
	res := f.resource(1)
	org := f.organization(10)
	f.member(res, org)
	mgr := f.manager(30, org)
	f.seed(caldomain.NewInterval(res.ID, caldomain.KindOrgReserved, at(9, 0), at(17, 0)).
		WithOrganization(org.ID))
	reservation := f.seed(caldomain.NewInterval(res.ID, caldomain.KindManagerReserved, at(10, 0), at(11, 0)).
		WithOrganization(org.ID).WithManager(mgr.ID))
	return f, reservation
}

func TestUpdateInterval_MoveBounds(t *testing.T) {
	f, reservation := reservationFixture(t)

	end := at(12, 0)
	ctx, sink := sinkContext()
	result, err := f.updateHandler().Handle(ctx, commands.UpdateIntervalCommand{
		App:      testApp,
		ID:       reservation.ID,
		AuthorID: i64(30),
		End:      &end,
	})
	require.NoError(t, err)

	assert.True(t, result.Interval.Start.Equal(at(10, 0)))
	assert.True(t, result.Interval.End.Equal(at(12, 0)))
	require.NotNil(t, result.OrganizationRef)
	assert.Equal(t, int64(10), *result.OrganizationRef)
	require.NotNil(t, result.ManagerRef)
	assert.Equal(t, int64(30), *result.ManagerRef)

	stored, err := f.intervals.FindByID(sinkCtx(), reservation.ID)
	require.NoError(t, err)
	assert.True(t, stored.End.Equal(at(12, 0)))

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, caldomain.EventCreateInterval, events[0].Kind)
}

func TestUpdateInterval_RevalidatesRules(t *testing.T) {
	f := newFixture(t)
	res := f.resource(1)
	org := f.organization(10)
	f.member(res, org)
	mgr := f.manager(30, org)
	f.seed(caldomain.NewInterval(res.ID, caldomain.KindOrgReserved, at(9, 0), at(12, 0)).
		WithOrganization(org.ID))
	reservation := f.seed(caldomain.NewInterval(res.ID, caldomain.KindManagerReserved, at(10, 0), at(11, 0)).
		WithOrganization(org.ID).WithManager(mgr.ID))

	// The new end runs past the organization's reserved time.
	end := at(13, 0)
	_, err := f.updateHandler().Handle(sinkCtx(), commands.UpdateIntervalCommand{
		App:      testApp,
		ID:       reservation.ID,
		AuthorID: i64(30),
		End:      &end,
	})
	require.ErrorIs(t, err, caldomain.ErrOutsideOrgTime)

	stored, err := f.intervals.FindByID(sinkCtx(), reservation.ID)
	require.NoError(t, err)
	assert.True(t, stored.End.Equal(at(11, 0)), "failed update must not move bounds")
}

func TestUpdateInterval_CommentClearedWhenSet(t *testing.T) {
	f := newFixture(t)
	res := f.resource(1)
	unavailable := f.seed(caldomain.NewInterval(res.ID, caldomain.KindUnavailable, at(13, 0), at(15, 0)).
		WithComment("dentist"))

	// CommentSet with a nil comment clears; bounds stay put.
	_, err := f.updateHandler().Handle(sinkCtx(), commands.UpdateIntervalCommand{
		App:        testApp,
		ID:         unavailable.ID,
		AuthorID:   i64(1),
		Comment:    nil,
		CommentSet: true,
	})
	require.NoError(t, err)

	stored, err := f.intervals.FindByID(sinkCtx(), unavailable.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Comment)
	assert.True(t, stored.Start.Equal(at(13, 0)))
	assert.True(t, stored.End.Equal(at(15, 0)))
}

func TestUpdateInterval_AuthorRule(t *testing.T) {
	f, reservation := reservationFixture(t)
	end := at(12, 0)

	_, err := f.updateHandler().Handle(sinkCtx(), commands.UpdateIntervalCommand{
		App: testApp, ID: reservation.ID, End: &end,
	})
	require.ErrorIs(t, err, caldomain.ErrNotIntervalAuthor, "missing author")

	_, err = f.updateHandler().Handle(sinkCtx(), commands.UpdateIntervalCommand{
		App: testApp, ID: reservation.ID, AuthorID: i64(31), End: &end,
	})
	require.ErrorIs(t, err, caldomain.ErrNotIntervalAuthor, "foreign author")

	// The resource itself may only touch its own unavailability.
	_, err = f.updateHandler().Handle(sinkCtx(), commands.UpdateIntervalCommand{
		App: testApp, ID: reservation.ID, AuthorID: i64(1), End: &end,
	})
	require.ErrorIs(t, err, caldomain.ErrNotIntervalAuthor, "resource on a manager reservation")
}

func TestUpdateInterval_ScopedToApp(t *testing.T) {
	f, reservation := reservationFixture(t)
	end := at(12, 0)

	_, err := f.updateHandler().Handle(sinkCtx(), commands.UpdateIntervalCommand{
		App: "other-app", ID: reservation.ID, AuthorID: i64(30), End: &end,
	})
	require.ErrorIs(t, err, caldomain.ErrIntervalNotFound)

	_, err = f.updateHandler().Handle(sinkCtx(), commands.UpdateIntervalCommand{
		App: testApp, ID: uuid.New(), AuthorID: i64(30), End: &end,
	})
	require.ErrorIs(t, err, caldomain.ErrIntervalNotFound)
}
