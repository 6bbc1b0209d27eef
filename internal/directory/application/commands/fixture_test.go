package commands_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	calpersistence "github.com/marfateam/rcalendar/internal/calendar/infrastructure/persistence"
	"github.com/marfateam/rcalendar/internal/directory/application/commands"
	"github.com/marfateam/rcalendar/internal/directory/domain"
	dirpersistence "github.com/marfateam/rcalendar/internal/directory/infrastructure/persistence"
	sharedApplication "github.com/marfateam/rcalendar/internal/shared/application"
)

const testApp = "crm"

// fixture wires directory command handlers to in-memory repositories.
type fixture struct {
	t *testing.T

	resources     *dirpersistence.InMemoryResourceRepository
	managers      *dirpersistence.InMemoryManagerRepository
	organizations *dirpersistence.InMemoryOrganizationRepository
	memberships   *calpersistence.InMemoryMembershipRepository
	keys          *dirpersistence.InMemoryAPIKeyRepository
	uow           sharedApplication.UnitOfWork
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	resources := dirpersistence.NewInMemoryResourceRepository()
	managers := dirpersistence.NewInMemoryManagerRepository()

	return &fixture{
		t:             t,
		resources:     resources,
		managers:      managers,
		organizations: dirpersistence.NewInMemoryOrganizationRepository(managers),
		memberships:   calpersistence.NewInMemoryMembershipRepository(resources),
		keys:          dirpersistence.NewInMemoryAPIKeyRepository(),
		uow:           sharedApplication.NewNoopUnitOfWork(),
	}
}

func (f *fixture) organization(externalID int64) *domain.Organization {
	f.t.Helper()
	org, _, err := f.organizations.GetOrCreate(context.Background(), testApp, externalID)
	require.NoError(f.t, err)
	return org
}

func (f *fixture) addManagers() *commands.AddManagersHandler {
	return commands.NewAddManagersHandler(f.managers, f.organizations, f.uow)
}

func (f *fixture) addResources() *commands.AddResourcesHandler {
	return commands.NewAddResourcesHandler(f.resources, f.organizations, f.memberships, f.uow)
}

func (f *fixture) wipeApp() *commands.WipeAppHandler {
	return commands.NewWipeAppHandler(f.organizations, f.managers, f.resources, f.uow)
}
