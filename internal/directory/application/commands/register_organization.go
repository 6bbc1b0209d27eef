// Package commands implements the directory write operations: tenant
// registration by external id, batch attach of managers and resources,
// API key management and whole-app wipes.
package commands

import (
	"context"

	"github.com/marfateam/rcalendar/internal/directory/domain"
)

// RegisterOrganizationCommand registers an organization under the
// calling app. Registration is idempotent per (app, id).
type RegisterOrganizationCommand struct {
	App string
	ID  int64
}

// RegisterOrganizationResult reports whether the row is new.
type RegisterOrganizationResult struct {
	Created bool
}

// RegisterOrganizationHandler handles the RegisterOrganizationCommand.
type RegisterOrganizationHandler struct {
	organizations domain.OrganizationRepository
}

// NewRegisterOrganizationHandler creates a new RegisterOrganizationHandler.
func NewRegisterOrganizationHandler(organizations domain.OrganizationRepository) *RegisterOrganizationHandler {
	return &RegisterOrganizationHandler{organizations: organizations}
}

// Handle executes the RegisterOrganizationCommand.
func (h *RegisterOrganizationHandler) Handle(ctx context.Context, cmd RegisterOrganizationCommand) (*RegisterOrganizationResult, error) {
	_, created, err := h.organizations.GetOrCreate(ctx, cmd.App, cmd.ID)
	if err != nil {
		return nil, err
	}
	return &RegisterOrganizationResult{Created: created}, nil
}
