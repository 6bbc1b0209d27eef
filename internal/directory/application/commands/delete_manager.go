package commands

import (
	"context"

	"github.com/marfateam/rcalendar/internal/directory/domain"
)

// DeleteManagerCommand removes a manager, or just detaches them from
// one organization when Organization is set.
type DeleteManagerCommand struct {
	App          string
	ID           int64
	Organization *int64
}

// DeleteManagerHandler handles the DeleteManagerCommand.
type DeleteManagerHandler struct {
	managers      domain.ManagerRepository
	organizations domain.OrganizationRepository
}

// NewDeleteManagerHandler creates a new DeleteManagerHandler.
func NewDeleteManagerHandler(
	managers domain.ManagerRepository,
	organizations domain.OrganizationRepository,
) *DeleteManagerHandler {
	return &DeleteManagerHandler{managers: managers, organizations: organizations}
}

// Handle executes the DeleteManagerCommand.
func (h *DeleteManagerHandler) Handle(ctx context.Context, cmd DeleteManagerCommand) error {
	mgr, err := h.managers.FindByExternalID(ctx, cmd.App, cmd.ID)
	if err != nil {
		return err
	}
	if mgr == nil {
		return domain.ErrManagerNotFound
	}

	if cmd.Organization != nil {
		org, err := h.organizations.FindByExternalID(ctx, cmd.App, *cmd.Organization)
		if err != nil {
			return err
		}
		if org == nil {
			return domain.ErrOrganizationNotFound
		}
		return h.organizations.RemoveManager(ctx, org.ID, mgr.ID)
	}
	return h.managers.Delete(ctx, mgr.ID)
}
