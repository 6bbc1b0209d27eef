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

func TestOrganizationView_ListsManagersAndMembers(t *testing.T) {
	f := newFixture(t)
	org := f.organization(10)
	f.manager(31, org)
	f.manager(30, org)

	scheduled := f.resource(1)
	plain := f.resource(2)
	m := f.member(scheduled, org)
	f.member(plain, org)

	require.NoError(t, f.memberships.ReplaceFragments(context.Background(), m.ID, []*caldomain.ScheduleFragment{
		caldomain.NewScheduleFragment(1, clock(9, 0), clock(12, 0)),
	}))

	dto, err := f.organizationView().Handle(context.Background(), queries.OrganizationViewQuery{
		App:          testApp,
		Organization: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{30, 31}, dto.ManagerIDs)
	require.Len(t, dto.ResourceMembers, 2)
	assert.Equal(t, queries.OrganizationMemberDTO{Resource: 1, HasSchedule: true}, dto.ResourceMembers[0])
	assert.Equal(t, queries.OrganizationMemberDTO{Resource: 2, HasSchedule: false}, dto.ResourceMembers[1])
}

func TestOrganizationView_EmptyOrganization(t *testing.T) {
	f := newFixture(t)
	f.organization(10)

	dto, err := f.organizationView().Handle(context.Background(), queries.OrganizationViewQuery{
		App:          testApp,
		Organization: 10,
	})
	require.NoError(t, err)
	assert.Empty(t, dto.ManagerIDs)
	assert.Empty(t, dto.ResourceMembers)
}

func TestOrganizationView_UnknownOrganization(t *testing.T) {
	f := newFixture(t)

	_, err := f.organizationView().Handle(context.Background(), queries.OrganizationViewQuery{
		App:          testApp,
		Organization: 99,
	})
	require.ErrorIs(t, err, dirdomain.ErrOrganizationNotFound)
}
