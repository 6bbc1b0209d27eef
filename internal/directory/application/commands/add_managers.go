package commands

import (
	"context"

	"github.com/marfateam/rcalendar/internal/directory/domain"
	sharedApplication "github.com/marfateam/rcalendar/internal/shared/application"
)

// AddManagersCommand registers the given managers and attaches them to
// an organization in one shot.
type AddManagersCommand struct {
	App          string
	IDs          []int64
	Organization int64
}

// AddManagersResult counts the managers newly attached; managers
// already in the organization do not count.
type AddManagersResult struct {
	Count int
}

// AddManagersHandler handles the AddManagersCommand.
type AddManagersHandler struct {
	managers      domain.ManagerRepository
	organizations domain.OrganizationRepository
	uow           sharedApplication.UnitOfWork
}

// NewAddManagersHandler creates a new AddManagersHandler.
func NewAddManagersHandler(
	managers domain.ManagerRepository,
	organizations domain.OrganizationRepository,
	uow sharedApplication.UnitOfWork,
) *AddManagersHandler {
	return &AddManagersHandler{managers: managers, organizations: organizations, uow: uow}
}

// Handle executes the AddManagersCommand.
func (h *AddManagersHandler) Handle(ctx context.Context, cmd AddManagersCommand) (*AddManagersResult, error) {
	var result *AddManagersResult

	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		org, err := h.organizations.FindByExternalID(txCtx, cmd.App, cmd.Organization)
		if err != nil {
			return err
		}
		if org == nil {
			return domain.ErrOrganizationNotFound
		}

		count := 0
		for _, id := range cmd.IDs {
			mgr, _, err := h.managers.GetOrCreate(txCtx, cmd.App, id)
			if err != nil {
				return err
			}
			attached, err := h.organizations.HasManager(txCtx, org.ID, mgr.ID)
			if err != nil {
				return err
			}
			if attached {
				continue
			}
			if err := h.organizations.AddManager(txCtx, org.ID, mgr.ID); err != nil {
				return err
			}
			count++
		}
		result = &AddManagersResult{Count: count}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
