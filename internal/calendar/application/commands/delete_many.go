package commands

import (
	"context"

	"github.com/google/uuid"
)

// DeleteManyCommand removes a batch of intervals. Each interval is
// deleted in its own transaction; the first failure stops the batch
// and earlier deletions stand, matching per-interval delete semantics.
type DeleteManyCommand struct {
	App      string
	IDs      []uuid.UUID
	AuthorID *int64
}

// DeleteManyHandler handles the DeleteManyCommand.
type DeleteManyHandler struct {
	single *DeleteIntervalHandler
}

// NewDeleteManyHandler creates a new DeleteManyHandler.
func NewDeleteManyHandler(single *DeleteIntervalHandler) *DeleteManyHandler {
	return &DeleteManyHandler{single: single}
}

// Handle executes the DeleteManyCommand.
func (h *DeleteManyHandler) Handle(ctx context.Context, cmd DeleteManyCommand) error {
	for _, id := range cmd.IDs {
		err := h.single.Handle(ctx, DeleteIntervalCommand{
			App:      cmd.App,
			ID:       id,
			AuthorID: cmd.AuthorID,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
