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

// ExtendScheduleCommand rolls one membership's persisted template
// forward to End. It addresses the pair by internal ids because its
// caller iterates stored memberships rather than external requests.
type ExtendScheduleCommand struct {
	Resource     uuid.UUID
	Organization uuid.UUID
	End          time.Time
}

// ExtendScheduleResult reports whether the watermark moved.
type ExtendScheduleResult struct {
	Applied bool
}

// ExtendScheduleHandler handles the ExtendScheduleCommand.
type ExtendScheduleHandler struct {
	intervals     caldomain.IntervalRepository
	memberships   caldomain.MembershipRepository
	resources     dirdomain.ResourceRepository
	organizations dirdomain.OrganizationRepository
	outboxRepo    outbox.Repository
	uow           sharedApplication.UnitOfWork
	now           func() time.Time
}

// NewExtendScheduleHandler creates a new ExtendScheduleHandler.
func NewExtendScheduleHandler(
	intervals caldomain.IntervalRepository,
	memberships caldomain.MembershipRepository,
	resources dirdomain.ResourceRepository,
	organizations dirdomain.OrganizationRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
) *ExtendScheduleHandler {
	return &ExtendScheduleHandler{
		intervals:     intervals,
		memberships:   memberships,
		resources:     resources,
		organizations: organizations,
		outboxRepo:    outboxRepo,
		uow:           uow,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the ExtendScheduleCommand.
func (h *ExtendScheduleHandler) Handle(ctx context.Context, cmd ExtendScheduleCommand) (*ExtendScheduleResult, error) {
	var result *ExtendScheduleResult

	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		res, err := h.resources.FindByID(txCtx, cmd.Resource)
		if err != nil {
			return err
		}
		if res == nil {
			return dirdomain.ErrResourceNotFound
		}
		if err := h.resources.Lock(txCtx, res.ID); err != nil {
			return err
		}

		m, err := h.memberships.Find(txCtx, res.ID, cmd.Organization)
		if err != nil {
			return err
		}
		if m == nil {
			return dirdomain.ErrMembershipNotFound
		}

		mz := &materializer{intervals: h.intervals, memberships: h.memberships, now: h.now}
		applied, from, err := mz.extend(txCtx, m, cmd.End.UTC())
		if err != nil {
			return err
		}

		if applied {
			org, err := h.organizations.FindByID(txCtx, m.Organization)
			if err != nil {
				return err
			}
			refs := caldomain.EventRefs{Resource: &res.ExternalID}
			if org != nil {
				refs.Organization = &org.ExternalID
			}
			event := caldomain.NewScheduleApplied(refs, false, from, cmd.End.UTC())
			if err := stageEvents(txCtx, h.outboxRepo, res.App, "membership", m.ID, []caldomain.Event{event}); err != nil {
				return err
			}
		}

		result = &ExtendScheduleResult{Applied: applied}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
