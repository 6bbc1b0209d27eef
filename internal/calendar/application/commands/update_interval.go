package commands

import (
	"context"
	"time"

	"github.com/google/uuid"

	caldomain "github.com/marfateam/rcalendar/internal/calendar/domain"
	dirdomain "github.com/marfateam/rcalendar/internal/directory/domain"
	sharedApplication "github.com/marfateam/rcalendar/internal/shared/application"
	"github.com/marfateam/rcalendar/internal/shared/infrastructure/outbox"
)

// UpdateIntervalCommand moves or annotates an existing interval. Nil
// fields keep their stored value; CommentSet distinguishes clearing
// the comment from leaving it alone. The whole rule pipeline runs
// again against the new bounds.
type UpdateIntervalCommand struct {
	App        string
	ID         uuid.UUID
	AuthorID   *int64
	Start      *time.Time
	End        *time.Time
	Comment    *string
	CommentSet bool
}

// UpdateIntervalHandler handles the UpdateIntervalCommand.
type UpdateIntervalHandler struct {
	saver      intervalSaver
	resources  dirdomain.ResourceRepository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
}

// NewUpdateIntervalHandler creates a new UpdateIntervalHandler.
func NewUpdateIntervalHandler(
	intervals caldomain.IntervalRepository,
	memberships caldomain.MembershipRepository,
	resources dirdomain.ResourceRepository,
	organizations dirdomain.OrganizationRepository,
	managers dirdomain.ManagerRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
) *UpdateIntervalHandler {
	return &UpdateIntervalHandler{
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

// Handle executes the UpdateIntervalCommand.
func (h *UpdateIntervalHandler) Handle(ctx context.Context, cmd UpdateIntervalCommand) (*IntervalResult, error) {
	var result *IntervalResult
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

		org, mgr, err := h.loadRefs(txCtx, iv)
		if err != nil {
			return err
		}

		if cmd.Start != nil {
			iv.Start = cmd.Start.UTC()
		}
		if cmd.End != nil {
			iv.End = cmd.End.UTC()
		}
		if cmd.CommentSet {
			iv.Comment = cmd.Comment
		}

		events, err = h.saver.save(txCtx, iv, res, org, mgr, true)
		if err != nil {
			return err
		}
		if err := stageEvents(txCtx, h.outboxRepo, cmd.App, "interval", iv.ID, events); err != nil {
			return err
		}

		result = &IntervalResult{Interval: iv, ResourceRef: res.ExternalID}
		if org != nil {
			result.OrganizationRef = &org.ExternalID
		}
		if mgr != nil {
			result.ManagerRef = &mgr.ExternalID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sink := caldomain.SinkFrom(ctx)
	for _, e := range events {
		sink.Push(e)
	}
	return result, nil
}

// loadRefs resolves the interval's stored organization and manager
// rows for event payloads.
func (h *UpdateIntervalHandler) loadRefs(ctx context.Context, iv *caldomain.Interval) (*dirdomain.Organization, *dirdomain.Manager, error) {
	var org *dirdomain.Organization
	var mgr *dirdomain.Manager
	var err error

	if iv.Organization != nil {
		org, err = h.saver.organizations.FindByID(ctx, *iv.Organization)
		if err != nil {
			return nil, nil, err
		}
	}
	if iv.Manager != nil {
		mgr, err = h.saver.managers.FindByID(ctx, *iv.Manager)
		if err != nil {
			return nil, nil, err
		}
	}
	return org, mgr, nil
}
