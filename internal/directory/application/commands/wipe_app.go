package commands

import (
	"context"

	"github.com/marfateam/rcalendar/internal/directory/domain"
	sharedApplication "github.com/marfateam/rcalendar/internal/shared/application"
)

// WipeAppCommand removes every tenant registered by one calling app.
// Intervals, memberships and manager edges go with their owners through
// the schema's cascades. API keys stay.
type WipeAppCommand struct {
	App string
}

// WipeAppResult counts the deleted tenant rows per entity.
type WipeAppResult struct {
	Resources     int64
	Managers      int64
	Organizations int64
}

// WipeAppHandler handles the WipeAppCommand.
type WipeAppHandler struct {
	organizations domain.OrganizationRepository
	managers      domain.ManagerRepository
	resources     domain.ResourceRepository
	uow           sharedApplication.UnitOfWork
}

// NewWipeAppHandler creates a new WipeAppHandler.
func NewWipeAppHandler(
	organizations domain.OrganizationRepository,
	managers domain.ManagerRepository,
	resources domain.ResourceRepository,
	uow sharedApplication.UnitOfWork,
) *WipeAppHandler {
	return &WipeAppHandler{
		organizations: organizations,
		managers:      managers,
		resources:     resources,
		uow:           uow,
	}
}

// Handle executes the WipeAppCommand.
func (h *WipeAppHandler) Handle(ctx context.Context, cmd WipeAppCommand) (*WipeAppResult, error) {
	var result *WipeAppResult

	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		resources, err := h.resources.DeleteAllForApp(txCtx, cmd.App)
		if err != nil {
			return err
		}
		managers, err := h.managers.DeleteAllForApp(txCtx, cmd.App)
		if err != nil {
			return err
		}
		organizations, err := h.organizations.DeleteAllForApp(txCtx, cmd.App)
		if err != nil {
			return err
		}
		result = &WipeAppResult{
			Resources:     resources,
			Managers:      managers,
			Organizations: organizations,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
