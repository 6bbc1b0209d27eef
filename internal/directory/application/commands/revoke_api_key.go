package commands

import (
	"context"

	"github.com/google/uuid"

	"github.com/marfateam/rcalendar/internal/directory/domain"
)

// RevokeAPIKeyCommand deactivates an API key. Requests presenting it
// are rejected from the next lookup on.
type RevokeAPIKeyCommand struct {
	Key uuid.UUID
}

// RevokeAPIKeyHandler handles the RevokeAPIKeyCommand.
type RevokeAPIKeyHandler struct {
	keys domain.APIKeyRepository
}

// NewRevokeAPIKeyHandler creates a new RevokeAPIKeyHandler.
func NewRevokeAPIKeyHandler(keys domain.APIKeyRepository) *RevokeAPIKeyHandler {
	return &RevokeAPIKeyHandler{keys: keys}
}

// Handle executes the RevokeAPIKeyCommand.
func (h *RevokeAPIKeyHandler) Handle(ctx context.Context, cmd RevokeAPIKeyCommand) error {
	return h.keys.Deactivate(ctx, cmd.Key)
}
