// Package queries implements the directory read side.
package queries

import (
	"context"

	"github.com/marfateam/rcalendar/internal/directory/domain"
)

// ListAPIKeysHandler lists every issued API key, oldest first.
type ListAPIKeysHandler struct {
	keys domain.APIKeyRepository
}

// NewListAPIKeysHandler creates a new ListAPIKeysHandler.
func NewListAPIKeysHandler(keys domain.APIKeyRepository) *ListAPIKeysHandler {
	return &ListAPIKeysHandler{keys: keys}
}

// Handle returns the stored keys.
func (h *ListAPIKeysHandler) Handle(ctx context.Context) ([]*domain.APIKey, error) {
	return h.keys.List(ctx)
}
