package queries_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marfateam/rcalendar/internal/calendar/application/queries"
	caldomain "github.com/marfateam/rcalendar/internal/calendar/domain"
	dirdomain "github.com/marfateam/rcalendar/internal/directory/domain"
)

func TestOrganizationIntervals_MasksForeignTime(t *testing.T) {
	f := newFixture(t)
	res := f.resource(1)
	mine := f.organization(10)
	other := f.organization(20)
	f.member(res, mine)
	f.member(res, other)
	foreignMgr := f.manager(40, other)

	// Fully inside the other organization's reserved block, so invisible
	// to this one.
	f.seed(caldomain.NewInterval(res.ID, caldomain.KindUnavailable, at(13, 30), at(14, 30)))
	// Outside anyone's reserved time, so plainly visible.
	f.seed(caldomain.NewInterval(res.ID, caldomain.KindUnavailable, at(8, 0), at(8, 30)))
	// Inside this organization's own time; own coverage hides nothing.
	f.seed(caldomain.NewInterval(res.ID, caldomain.KindUnavailable, at(10, 0), at(10, 30)))
	f.seed(caldomain.NewInterval(res.ID, caldomain.KindOrgReserved, at(9, 0), at(12, 0)).WithOrganization(mine.ID))
	f.seed(caldomain.NewInterval(res.ID, caldomain.KindOrgReserved, at(13, 0), at(17, 0)).WithOrganization(other.ID).WithComment("private"))
	f.seed(caldomain.NewInterval(res.ID, caldomain.KindManagerReserved, at(14, 0), at(15, 0)).WithOrganization(other.ID).WithManager(foreignMgr.ID))

	rows, err := f.organizationIntervals().Handle(context.Background(), queries.OrganizationIntervalsQuery{
		App:          testApp,
		Organization: 10,
		Start:        monday,
		End:          monday,
	})
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "unavailable", rows[0].Kind)
	assert.True(t, rows[0].Start.Equal(at(8, 0)))

	assert.Equal(t, "organization", rows[1].Kind)
	require.NotNil(t, rows[1].Organization)
	assert.Equal(t, int64(10), *rows[1].Organization)

	assert.Equal(t, "unavailable", rows[2].Kind)
	assert.True(t, rows[2].Start.Equal(at(10, 0)))

	// The other organization's reserved block keeps its bounds but loses
	// comment and manager.
	masked := rows[3]
	assert.Equal(t, "organization", masked.Kind)
	assert.True(t, masked.Start.Equal(at(13, 0)))
	assert.True(t, masked.End.Equal(at(17, 0)))
	require.NotNil(t, masked.Organization)
	assert.Equal(t, int64(20), *masked.Organization)
	assert.Nil(t, masked.Comment)
	assert.Nil(t, masked.Manager)
}

func TestOrganizationIntervals_ResourceFilter(t *testing.T) {
	f := newFixture(t)
	first := f.resource(1)
	second := f.resource(2)
	org := f.organization(10)
	f.member(first, org)
	f.member(second, org)

	f.seed(caldomain.NewInterval(first.ID, caldomain.KindOrgReserved, at(9, 0), at(12, 0)).WithOrganization(org.ID))
	f.seed(caldomain.NewInterval(second.ID, caldomain.KindOrgReserved, at(13, 0), at(17, 0)).WithOrganization(org.ID))

	rows, err := f.organizationIntervals().Handle(context.Background(), queries.OrganizationIntervalsQuery{
		App:          testApp,
		Organization: 10,
		Start:        monday,
		End:          monday,
	})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = f.organizationIntervals().Handle(context.Background(), queries.OrganizationIntervalsQuery{
		App:          testApp,
		Organization: 10,
		Resource:     i64(2),
		Start:        monday,
		End:          monday,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].Resource)

	// A filter that does not resolve yields an empty listing, not an
	// error.
	rows, err = f.organizationIntervals().Handle(context.Background(), queries.OrganizationIntervalsQuery{
		App:          testApp,
		Organization: 10,
		Resource:     i64(99),
		Start:        monday,
		End:          monday,
	})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestOrganizationIntervals_NoMembers(t *testing.T) {
	f := newFixture(t)
	f.organization(10)

	rows, err := f.organizationIntervals().Handle(context.Background(), queries.OrganizationIntervalsQuery{
		App:          testApp,
		Organization: 10,
		Start:        monday,
		End:          monday,
	})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestOrganizationIntervals_UnknownOrganization(t *testing.T) {
	f := newFixture(t)

	_, err := f.organizationIntervals().Handle(context.Background(), queries.OrganizationIntervalsQuery{
		App:          testApp,
		Organization: 99,
		Start:        monday,
		End:          monday,
	})
	require.ErrorIs(t, err, dirdomain.ErrOrganizationNotFound)
}
