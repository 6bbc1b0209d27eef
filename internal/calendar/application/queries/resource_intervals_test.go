package queries_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marfateam/rcalendar/internal/calendar/application/queries"
	caldomain "github.com/marfateam/rcalendar/internal/calendar/domain"
	dirdomain "github.com/marfateam/rcalendar/internal/directory/domain"
)

func TestResourceIntervals_ListsFullTimeline(t *testing.T) {
	f := newFixture(t)
	res := f.resource(1)
	org := f.organization(10)
	f.member(res, org)
	mgr := f.manager(30, org)

	f.seed(caldomain.NewInterval(res.ID, caldomain.KindOrgReserved, at(9, 0), at(17, 0)).WithOrganization(org.ID))
	f.seed(caldomain.NewInterval(res.ID, caldomain.KindManagerReserved, at(10, 0), at(11, 0)).WithOrganization(org.ID).WithManager(mgr.ID))
	f.seed(caldomain.NewInterval(res.ID, caldomain.KindUnavailable, at(13, 0), at(16, 0)).WithComment("boiler flooded"))

	rows, err := f.resourceIntervals().Handle(context.Background(), queries.ResourceIntervalsQuery{
		App:      testApp,
		Resource: 1,
		Start:    monday,
		End:      monday,
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "organization", rows[0].Kind)
	assert.Equal(t, int64(1), rows[0].Resource)
	require.NotNil(t, rows[0].Organization)
	assert.Equal(t, int64(10), *rows[0].Organization)
	assert.Nil(t, rows[0].Manager)
	require.NotNil(t, rows[0].Object)
	assert.Equal(t, int64(10), *rows[0].Object)

	assert.Equal(t, "manager", rows[1].Kind)
	require.NotNil(t, rows[1].Manager)
	assert.Equal(t, int64(30), *rows[1].Manager)
	require.NotNil(t, rows[1].Object)
	assert.Equal(t, int64(30), *rows[1].Object)

	assert.Equal(t, "unavailable", rows[2].Kind)
	assert.Nil(t, rows[2].Organization)
	assert.Nil(t, rows[2].Manager)
	assert.Nil(t, rows[2].Object)
	require.NotNil(t, rows[2].Comment)
	assert.Equal(t, "boiler flooded", *rows[2].Comment)
	assert.True(t, rows[2].Start.Equal(at(13, 0)))
	assert.True(t, rows[2].End.Equal(at(16, 0)))
}

func TestResourceIntervals_EndDateIsInclusive(t *testing.T) {
	f := newFixture(t)
	res := f.resource(1)
	nextDay := monday.AddDate(0, 0, 1)
	f.seed(caldomain.NewInterval(res.ID, caldomain.KindUnavailable, nextDay.Add(10*time.Hour), nextDay.Add(11*time.Hour)))

	rows, err := f.resourceIntervals().Handle(context.Background(), queries.ResourceIntervalsQuery{
		App: testApp, Resource: 1, Start: monday, End: nextDay,
	})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rows, err = f.resourceIntervals().Handle(context.Background(), queries.ResourceIntervalsQuery{
		App: testApp, Resource: 1, Start: monday, End: monday,
	})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestResourceIntervals_UnknownResource(t *testing.T) {
	f := newFixture(t)

	_, err := f.resourceIntervals().Handle(context.Background(), queries.ResourceIntervalsQuery{
		App: testApp, Resource: 99, Start: monday, End: monday,
	})
	require.ErrorIs(t, err, dirdomain.ErrResourceNotFound)
}
