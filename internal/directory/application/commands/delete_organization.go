package commands

import (
	"context"

	"github.com/marfateam/rcalendar/internal/directory/domain"
)

// DeleteOrganizationCommand removes an organization. Memberships,
// manager edges and the organization's intervals go with it through the
// schema's cascades.
type DeleteOrganizationCommand struct {
	App string
	ID  int64
}

// DeleteOrganizationHandler handles the DeleteOrganizationCommand.
type DeleteOrganizationHandler struct {
	organizations domain.OrganizationRepository
}

// NewDeleteOrganizationHandler creates a new DeleteOrganizationHandler.
func NewDeleteOrganizationHandler(organizations domain.OrganizationRepository) *DeleteOrganizationHandler {
	return &DeleteOrganizationHandler{organizations: organizations}
}

// Handle executes the DeleteOrganizationCommand.
func (h *DeleteOrganizationHandler) Handle(ctx context.Context, cmd DeleteOrganizationCommand) error {
	org, err := h.organizations.FindByExternalID(ctx, cmd.App, cmd.ID)
	if err != nil {
		return err
	}
	if org == nil {
		return domain.ErrOrganizationNotFound
	}
	return h.organizations.Delete(ctx, org.ID)
}
