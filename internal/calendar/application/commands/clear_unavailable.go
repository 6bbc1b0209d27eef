package commands

import (
	"context"
	"time"

	caldomain "github.com/marfateam/rcalendar/internal/calendar/domain"
	dirdomain "github.com/marfateam/rcalendar/internal/directory/domain"
	sharedApplication "github.com/marfateam/rcalendar/internal/shared/application"
	"github.com/marfateam/rcalendar/internal/shared/infrastructure/outbox"
)

// ClearUnavailableCommand lifts a resource's unavailability between
// Start and End, shortening or splitting whatever stored spans cross
// the window.
type ClearUnavailableCommand struct {
	App      string
	Resource int64
	Start    time.Time
	End      time.Time
}

// ClearUnavailableResult reports whether any stored interval changed.
type ClearUnavailableResult struct {
	Changed bool
}

// ClearUnavailableHandler handles the ClearUnavailableCommand.
type ClearUnavailableHandler struct {
	saver      intervalSaver
	resources  dirdomain.ResourceRepository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
}

// NewClearUnavailableHandler creates a new ClearUnavailableHandler.
func NewClearUnavailableHandler(
	intervals caldomain.IntervalRepository,
	memberships caldomain.MembershipRepository,
	resources dirdomain.ResourceRepository,
	organizations dirdomain.OrganizationRepository,
	managers dirdomain.ManagerRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
) *ClearUnavailableHandler {
	return &ClearUnavailableHandler{
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

// Handle executes the ClearUnavailableCommand.
func (h *ClearUnavailableHandler) Handle(ctx context.Context, cmd ClearUnavailableCommand) (*ClearUnavailableResult, error) {
	var result *ClearUnavailableResult
	var events []caldomain.Event

	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		res, err := h.resources.FindByExternalID(txCtx, cmd.App, cmd.Resource)
		if err != nil {
			return err
		}
		if res == nil {
			return dirdomain.ErrResourceNotFound
		}
		if err := h.resources.Lock(txCtx, res.ID); err != nil {
			return err
		}

		probe := caldomain.NewInterval(res.ID, caldomain.KindUnavailable, cmd.Start, cmd.End)
		bag := caldomain.NewRepositoryBag(h.saver.intervals)
		changed, err := caldomain.Subtract(txCtx, bag, probe)
		if err != nil {
			return err
		}

		if changed {
			window, err := h.saver.intervals.ListForResourceBetween(txCtx, res.ID, probe.Start, probe.End)
			if err != nil {
				return err
			}
			affected, err := h.saver.affectedManagerRefs(txCtx, res, window)
			if err != nil {
				return err
			}
			for _, r := range affected {
				events = append(events, caldomain.NewUnavailableCleared(r, probe.Start, probe.End))
			}
			if err := stageEvents(txCtx, h.outboxRepo, cmd.App, "resource", res.ID, events); err != nil {
				return err
			}
		}

		result = &ClearUnavailableResult{Changed: changed}
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
