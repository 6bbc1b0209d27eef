package commands

import (
	"context"

	"github.com/marfateam/rcalendar/internal/directory/domain"
)

// DeleteResourceCommand removes a resource and, through the schema's
// cascades, its memberships and intervals.
type DeleteResourceCommand struct {
	App string
	ID  int64
}

// DeleteResourceHandler handles the DeleteResourceCommand.
type DeleteResourceHandler struct {
	resources domain.ResourceRepository
}

// NewDeleteResourceHandler creates a new DeleteResourceHandler.
func NewDeleteResourceHandler(resources domain.ResourceRepository) *DeleteResourceHandler {
	return &DeleteResourceHandler{resources: resources}
}

// Handle executes the DeleteResourceCommand.
func (h *DeleteResourceHandler) Handle(ctx context.Context, cmd DeleteResourceCommand) error {
	res, err := h.resources.FindByExternalID(ctx, cmd.App, cmd.ID)
	if err != nil {
		return err
	}
	if res == nil {
		return domain.ErrResourceNotFound
	}
	return h.resources.Delete(ctx, res.ID)
}
