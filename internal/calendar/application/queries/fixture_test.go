package queries_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/marfateam/rcalendar/internal/calendar/application/queries"
	caldomain "github.com/marfateam/rcalendar/internal/calendar/domain"
	calpersistence "github.com/marfateam/rcalendar/internal/calendar/infrastructure/persistence"
	dirdomain "github.com/marfateam/rcalendar/internal/directory/domain"
	dirpersistence "github.com/marfateam/rcalendar/internal/directory/infrastructure/persistence"
)

const testApp = "crm"

// monday anchors the clock math; 2024-01-15 was a Monday.
var monday = time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return monday.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func clock(h, m int) time.Time {
	return time.Date(2024, time.January, 1, h, m, 0, 0, time.UTC)
}

func i64(v int64) *int64 { return &v }

// fixture wires query handlers to in-memory repositories.
type fixture struct {
	t *testing.T

	intervals     *calpersistence.InMemoryIntervalRepository
	memberships   *calpersistence.InMemoryMembershipRepository
	organizations *dirpersistence.InMemoryOrganizationRepository
	managers      *dirpersistence.InMemoryManagerRepository
	resources     *dirpersistence.InMemoryResourceRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	resources := dirpersistence.NewInMemoryResourceRepository()
	managers := dirpersistence.NewInMemoryManagerRepository()
	organizations := dirpersistence.NewInMemoryOrganizationRepository(managers)
	memberships := calpersistence.NewInMemoryMembershipRepository(resources)
	managers.BindOrganizations(organizations, func(ctx context.Context, resource, organization uuid.UUID) (bool, error) {
		m, err := memberships.Find(ctx, resource, organization)
		return m != nil, err
	})

	return &fixture{
		t:             t,
		intervals:     calpersistence.NewInMemoryIntervalRepository(),
		memberships:   memberships,
		organizations: organizations,
		managers:      managers,
		resources:     resources,
	}
}

func (f *fixture) resourceIntervals() *queries.ResourceIntervalsHandler {
	return queries.NewResourceIntervalsHandler(f.intervals, f.resources, f.organizations, f.managers)
}

func (f *fixture) organizationIntervals() *queries.OrganizationIntervalsHandler {
	return queries.NewOrganizationIntervalsHandler(f.intervals, f.memberships, f.resources, f.organizations, f.managers)
}

func (f *fixture) organizationView() *queries.OrganizationViewHandler {
	return queries.NewOrganizationViewHandler(f.memberships, f.organizations)
}

func (f *fixture) membershipView() *queries.MembershipViewHandler {
	return queries.NewMembershipViewHandler(f.memberships, f.resources, f.organizations)
}

func (f *fixture) resource(externalID int64) *dirdomain.Resource {
	f.t.Helper()
	res, _, err := f.resources.GetOrCreate(context.Background(), testApp, externalID)
	require.NoError(f.t, err)
	return res
}

func (f *fixture) organization(externalID int64) *dirdomain.Organization {
	f.t.Helper()
	org, _, err := f.organizations.GetOrCreate(context.Background(), testApp, externalID)
	require.NoError(f.t, err)
	return org
}

func (f *fixture) manager(externalID int64, orgs ...*dirdomain.Organization) *dirdomain.Manager {
	f.t.Helper()
	mgr, _, err := f.managers.GetOrCreate(context.Background(), testApp, externalID)
	require.NoError(f.t, err)
	for _, o := range orgs {
		require.NoError(f.t, f.organizations.AddManager(context.Background(), o.ID, mgr.ID))
	}
	return mgr
}

func (f *fixture) member(res *dirdomain.Resource, org *dirdomain.Organization) *caldomain.Membership {
	f.t.Helper()
	m, _, err := f.memberships.GetOrCreate(context.Background(), res.ID, org.ID)
	require.NoError(f.t, err)
	return m
}

func (f *fixture) seed(iv *caldomain.Interval) *caldomain.Interval {
	f.t.Helper()
	require.NoError(f.t, f.intervals.Insert(context.Background(), iv))
	return iv
}
