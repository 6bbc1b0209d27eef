package commands_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/marfateam/rcalendar/internal/calendar/application/commands"
	caldomain "github.com/marfateam/rcalendar/internal/calendar/domain"
	calpersistence "github.com/marfateam/rcalendar/internal/calendar/infrastructure/persistence"
	dirdomain "github.com/marfateam/rcalendar/internal/directory/domain"
	dirpersistence "github.com/marfateam/rcalendar/internal/directory/infrastructure/persistence"
	sharedApplication "github.com/marfateam/rcalendar/internal/shared/application"
	"github.com/marfateam/rcalendar/internal/shared/infrastructure/outbox"
)

const testApp = "crm"

// monday is the anchor for clock math in these tests; 2024-01-15 was a
// Monday.
var monday = time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return monday.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func i64(v int64) *int64 { return &v }

func str(s string) *string { return &s }

// sinkContext returns a context carrying a fresh event sink, the way
// the HTTP layer binds one per request.
func sinkContext() (context.Context, *caldomain.Sink) {
	s := caldomain.NewSink()
	return caldomain.WithSink(context.Background(), s), s
}

// sinkCtx is sinkContext for tests that never read the sink back.
func sinkCtx() context.Context {
	ctx, _ := sinkContext()
	return ctx
}

// fixture wires command handlers to in-memory repositories the same way
// the container wires them to PostgreSQL.
type fixture struct {
	t *testing.T

	intervals     *calpersistence.InMemoryIntervalRepository
	memberships   *calpersistence.InMemoryMembershipRepository
	organizations *dirpersistence.InMemoryOrganizationRepository
	managers      *dirpersistence.InMemoryManagerRepository
	resources     *dirpersistence.InMemoryResourceRepository
	outbox        *outbox.InMemoryRepository
	uow           sharedApplication.UnitOfWork
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
		outbox:        outbox.NewInMemoryRepository(),
		uow:           sharedApplication.NewNoopUnitOfWork(),
	}
}

func (f *fixture) createHandler() *commands.CreateIntervalHandler {
	return commands.NewCreateIntervalHandler(
		f.intervals, f.memberships, f.resources, f.organizations, f.managers, f.outbox, f.uow)
}

func (f *fixture) updateHandler() *commands.UpdateIntervalHandler {
	return commands.NewUpdateIntervalHandler(
		f.intervals, f.memberships, f.resources, f.organizations, f.managers, f.outbox, f.uow)
}

func (f *fixture) deleteHandler() *commands.DeleteIntervalHandler {
	return commands.NewDeleteIntervalHandler(
		f.intervals, f.memberships, f.resources, f.organizations, f.managers, f.outbox, f.uow)
}

func (f *fixture) clearHandler() *commands.ClearUnavailableHandler {
	return commands.NewClearUnavailableHandler(
		f.intervals, f.memberships, f.resources, f.organizations, f.managers, f.outbox, f.uow)
}

func (f *fixture) applyHandler() *commands.ApplyScheduleHandler {
	return commands.NewApplyScheduleHandler(
		f.intervals, f.memberships, f.resources, f.organizations, f.outbox, f.uow)
}

func (f *fixture) extendHandler() *commands.ExtendScheduleHandler {
	return commands.NewExtendScheduleHandler(
		f.intervals, f.memberships, f.resources, f.organizations, f.outbox, f.uow)
}

func (f *fixture) joinHandler() *commands.JoinMembershipHandler {
	return commands.NewJoinMembershipHandler(f.memberships, f.resources, f.organizations, f.uow)
}

func (f *fixture) dismissHandler() *commands.DismissMembershipHandler {
	return commands.NewDismissMembershipHandler(
		f.intervals, f.memberships, f.resources, f.organizations, f.uow)
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

// manager registers a manager and attaches it to the given
// organizations.
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

// seed stores an interval directly, bypassing the save pipeline.
func (f *fixture) seed(iv *caldomain.Interval) *caldomain.Interval {
	f.t.Helper()
	require.NoError(f.t, f.intervals.Insert(context.Background(), iv))
	return iv
}

// stored returns the resource's intervals overlapping the span, ordered
// by start.
func (f *fixture) stored(res *dirdomain.Resource, from, to time.Time) caldomain.Intervals {
	f.t.Helper()
	out, err := f.intervals.ListForResourceBetween(context.Background(), res.ID, from, to)
	require.NoError(f.t, err)
	return out
}

// staged returns the outbox rows written so far.
func (f *fixture) staged() []*outbox.Message {
	f.t.Helper()
	msgs, err := f.outbox.GetUnpublished(context.Background(), 100)
	require.NoError(f.t, err)
	return msgs
}
