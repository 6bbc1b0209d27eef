package commands

import (
	"context"

	"github.com/marfateam/rcalendar/internal/directory/domain"
)

// RegisterResourceCommand registers a resource under the calling app.
type RegisterResourceCommand struct {
	App string
	ID  int64
}

// RegisterResourceResult reports whether the row is new.
type RegisterResourceResult struct {
	Created bool
}

// RegisterResourceHandler handles the RegisterResourceCommand.
type RegisterResourceHandler struct {
	resources domain.ResourceRepository
}

// NewRegisterResourceHandler creates a new RegisterResourceHandler.
func NewRegisterResourceHandler(resources domain.ResourceRepository) *RegisterResourceHandler {
	return &RegisterResourceHandler{resources: resources}
}

// Handle executes the RegisterResourceCommand.
func (h *RegisterResourceHandler) Handle(ctx context.Context, cmd RegisterResourceCommand) (*RegisterResourceResult, error) {
	_, created, err := h.resources.GetOrCreate(ctx, cmd.App, cmd.ID)
	if err != nil {
		return nil, err
	}
	return &RegisterResourceResult{Created: created}, nil
}
