package commands

import (
	"context"

	"github.com/marfateam/rcalendar/internal/directory/domain"
)

// RegisterManagerCommand registers a manager under the calling app.
type RegisterManagerCommand struct {
	App string
	ID  int64
}

// RegisterManagerResult reports whether the row is new.
type RegisterManagerResult struct {
	Created bool
}

// RegisterManagerHandler handles the RegisterManagerCommand.
type RegisterManagerHandler struct {
	managers domain.ManagerRepository
}

// NewRegisterManagerHandler creates a new RegisterManagerHandler.
func NewRegisterManagerHandler(managers domain.ManagerRepository) *RegisterManagerHandler {
	return &RegisterManagerHandler{managers: managers}
}

// Handle executes the RegisterManagerCommand.
func (h *RegisterManagerHandler) Handle(ctx context.Context, cmd RegisterManagerCommand) (*RegisterManagerResult, error) {
	_, created, err := h.managers.GetOrCreate(ctx, cmd.App, cmd.ID)
	if err != nil {
		return nil, err
	}
	return &RegisterManagerResult{Created: created}, nil
}
