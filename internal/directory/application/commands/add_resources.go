package commands

import (
	"context"

	caldomain "github.com/marfateam/rcalendar/internal/calendar/domain"
	"github.com/marfateam/rcalendar/internal/directory/domain"
	sharedApplication "github.com/marfateam/rcalendar/internal/shared/application"
)

// AddResourcesCommand registers the given resources and, when an
// organization is named, makes each one a member of it.
type AddResourcesCommand struct {
	App          string
	IDs          []int64
	Organization *int64
}

// AddResourcesResult counts the resources newly registered; joining an
// organization alone does not count.
type AddResourcesResult struct {
	Created int
}

// AddResourcesHandler handles the AddResourcesCommand.
type AddResourcesHandler struct {
	resources     domain.ResourceRepository
	organizations domain.OrganizationRepository
	memberships   caldomain.MembershipRepository
	uow           sharedApplication.UnitOfWork
}

// NewAddResourcesHandler creates a new AddResourcesHandler.
func NewAddResourcesHandler(
	resources domain.ResourceRepository,
	organizations domain.OrganizationRepository,
	memberships caldomain.MembershipRepository,
	uow sharedApplication.UnitOfWork,
) *AddResourcesHandler {
	return &AddResourcesHandler{
		resources:     resources,
		organizations: organizations,
		memberships:   memberships,
		uow:           uow,
	}
}

// Handle executes the AddResourcesCommand.
func (h *AddResourcesHandler) Handle(ctx context.Context, cmd AddResourcesCommand) (*AddResourcesResult, error) {
	var result *AddResourcesResult

	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		var org *domain.Organization
		if cmd.Organization != nil {
			var err error
			org, err = h.organizations.FindByExternalID(txCtx, cmd.App, *cmd.Organization)
			if err != nil {
				return err
			}
			if org == nil {
				return domain.ErrOrganizationNotFound
			}
		}

		count := 0
		for _, id := range cmd.IDs {
			res, created, err := h.resources.GetOrCreate(txCtx, cmd.App, id)
			if err != nil {
				return err
			}
			if org != nil {
				if _, _, err := h.memberships.GetOrCreate(txCtx, res.ID, org.ID); err != nil {
					return err
				}
			}
			if created {
				count++
			}
		}
		result = &AddResourcesResult{Created: count}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
