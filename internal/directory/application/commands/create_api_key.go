package commands

import (
	"context"

	"github.com/marfateam/rcalendar/internal/directory/domain"
)

// CreateAPIKeyCommand mints an API key for a calling service.
type CreateAPIKeyCommand struct {
	App string
}

// CreateAPIKeyHandler handles the CreateAPIKeyCommand.
type CreateAPIKeyHandler struct {
	keys domain.APIKeyRepository
}

// NewCreateAPIKeyHandler creates a new CreateAPIKeyHandler.
func NewCreateAPIKeyHandler(keys domain.APIKeyRepository) *CreateAPIKeyHandler {
	return &CreateAPIKeyHandler{keys: keys}
}

// Handle executes the CreateAPIKeyCommand.
func (h *CreateAPIKeyHandler) Handle(ctx context.Context, cmd CreateAPIKeyCommand) (*domain.APIKey, error) {
	key := domain.NewAPIKey(cmd.App)
	if err := h.keys.Create(ctx, key); err != nil {
		return nil, err
	}
	return key, nil
}
