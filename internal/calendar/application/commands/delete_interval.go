package commands

import (
	"context"

	"github.com/google/uuid"

	caldomain "github.com/marfateam/rcalendar/internal/calendar/domain"
	dirdomain "github.com/marfateam/rcalendar/internal/directory/domain"
	sharedApplication "github.com/marfateam/rcalendar/internal/shared/application"
	"github.com/marfateam/rcalendar/internal/shared/infrastructure/outbox"
)

// DeleteIntervalCommand removes one interval on behalf of its author.
type DeleteIntervalCommand struct {
	App      string
	ID       uuid.UUID
	AuthorID *int64
}

// DeleteIntervalHandler handles the DeleteIntervalCommand.
type DeleteIntervalHandler struct {
	saver      intervalSaver
	resources  dirdomain.ResourceRepository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
}

// NewDeleteIntervalHandler creates a new DeleteIntervalHandler.
func NewDeleteIntervalHandler(
	intervals caldomain.IntervalRepository,
	memberships caldomain.MembershipRepository,
	resources dirdomain.ResourceRepository,
	organizations dirdomain.OrganizationRepository,
	managers dirdomain.ManagerRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
) *DeleteIntervalHandler {
	return &DeleteIntervalHandler{
		saver: intervalSaver{
			intervals:     intervals,
			memberships:   memberships,
			organizations: organizations,
			managers:      managers,
		},
		resources:  resources,
		outboxRepo: outboxRepo,
		uow:        uow,
	}
}

// Handle executes the DeleteIntervalCommand.
func (h *DeleteIntervalHandler) Handle(ctx context.Context, cmd DeleteIntervalCommand) error {
	var events []caldomain.Event

	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		iv, err := h.saver.intervals.FindByID(txCtx, cmd.ID)
		if err != nil {
			return err
		}
		if iv == nil {
			return caldomain.ErrIntervalNotFound
		}

		res, err := h.resources.FindByID(txCtx, iv.Resource)
		if err != nil {
			return err
		}
		if res == nil || res.App != cmd.App {
			return caldomain.ErrIntervalNotFound
		}
		if err := authorizeIntervalAuthor(txCtx, h.saver.managers, cmd.App, cmd.AuthorID, iv, res); err != nil {
			return err
		}
		if err := h.resources.Lock(txCtx, res.ID); err != nil {
			return err
		}

		refs := caldomain.EventRefs{Resource: &res.ExternalID}
		if iv.Organization != nil {
			org, err := h.saver.organizations.FindByID(txCtx, *iv.Organization)
			if err != nil {
				return err
			}
			if org != nil {
				refs.Organization = &org.ExternalID
			}
		}
		if iv.Manager != nil {
			mgr, err := h.saver.managers.FindByID(txCtx, *iv.Manager)
			if err != nil {
				return err
			}
			if mgr != nil {
				refs.Manager = &mgr.ExternalID
			}
		}
		events = []caldomain.Event{
			caldomain.NewIntervalDeleted(iv.Kind, refs, iv.Comment, iv.Start, iv.End),
		}

		if iv.Kind == caldomain.KindUnavailable {
			window, err := h.saver.intervals.ListForResourceBetween(txCtx, iv.Resource, iv.Start, iv.End)
			if err != nil {
				return err
			}
			affected, err := h.saver.affectedManagerRefs(txCtx, res, window)
			if err != nil {
				return err
			}
			for _, r := range affected {
				events = append(events, caldomain.NewUnavailableCleared(r, iv.Start, iv.End))
			}
		}

		if err := h.saver.intervals.Delete(txCtx, iv.ID); err != nil {
			return err
		}
		return stageEvents(txCtx, h.outboxRepo, cmd.App, "interval", iv.ID, events)
	})
	if err != nil {
		return err
	}

	sink := caldomain.SinkFrom(ctx)
	for _, e := range events {
		sink.Push(e)
	}
	return nil
}
