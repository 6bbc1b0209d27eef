package commands

import (
	"context"
	"time"

	caldomain "github.com/marfateam/rcalendar/internal/calendar/domain"
	dirdomain "github.com/marfateam/rcalendar/internal/directory/domain"
	sharedApplication "github.com/marfateam/rcalendar/internal/shared/application"
	"github.com/marfateam/rcalendar/internal/shared/infrastructure/outbox"
)

// ApplyScheduleCommand materializes a weekly template for a resource
// inside one of its organizations. Nil Fragments roll the persisted
// template forward; Fragments without End install them as the new
// permanent template.
type ApplyScheduleCommand struct {
	App          string
	Resource     int64
	Organization int64
	AuthorID     *int64
	Start        *time.Time
	End          *time.Time
	Fragments    []*caldomain.ScheduleFragment
}

// ApplyScheduleResult reports whether any window was materialized.
type ApplyScheduleResult struct {
	Applied bool
}

// ApplyScheduleHandler handles the ApplyScheduleCommand.
type ApplyScheduleHandler struct {
	intervals     caldomain.IntervalRepository
	memberships   caldomain.MembershipRepository
	resources     dirdomain.ResourceRepository
	organizations dirdomain.OrganizationRepository
	outboxRepo    outbox.Repository
	uow           sharedApplication.UnitOfWork
	now           func() time.Time
}

// NewApplyScheduleHandler creates a new ApplyScheduleHandler.
func NewApplyScheduleHandler(
	intervals caldomain.IntervalRepository,
	memberships caldomain.MembershipRepository,
	resources dirdomain.ResourceRepository,
	organizations dirdomain.OrganizationRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
) *ApplyScheduleHandler {
	return &ApplyScheduleHandler{
		intervals:     intervals,
		memberships:   memberships,
		resources:     resources,
		organizations: organizations,
		outboxRepo:    outboxRepo,
		uow:           uow,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the ApplyScheduleCommand.
func (h *ApplyScheduleHandler) Handle(ctx context.Context, cmd ApplyScheduleCommand) (*ApplyScheduleResult, error) {
	var result *ApplyScheduleResult
	var events []caldomain.Event

	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		res, err := h.resources.FindByExternalID(txCtx, cmd.App, cmd.Resource)
		if err != nil {
			return err
		}
		if res == nil {
			return dirdomain.ErrResourceNotFound
		}
		org, err := h.organizations.FindByExternalID(txCtx, cmd.App, cmd.Organization)
		if err != nil {
			return err
		}
		if org == nil {
			return dirdomain.ErrOrganizationNotFound
		}
		if err := h.resources.Lock(txCtx, res.ID); err != nil {
			return err
		}

		m, err := h.memberships.Find(txCtx, res.ID, org.ID)
		if err != nil {
			return err
		}
		if m == nil {
			return caldomain.ErrResourceNotInOrg
		}

		mz := &materializer{intervals: h.intervals, memberships: h.memberships, now: h.now}
		now := h.now()

		var applied, permanent bool
		var spanStart, spanEnd time.Time
		switch {
		case cmd.Fragments == nil:
			spanEnd = now.Add(caldomain.ExtendHorizon)
			if cmd.End != nil {
				spanEnd = cmd.End.UTC()
			}
			applied, spanStart, err = mz.extend(txCtx, m, spanEnd)

		case cmd.End != nil:
			spanStart = now
			if cmd.Start != nil {
				spanStart = cmd.Start.UTC()
			}
			spanEnd = cmd.End.UTC()
			applied, err = mz.apply(txCtx, m, spanStart, spanEnd, cmd.Fragments, false)

		default:
			permanent = true
			spanStart = now
			if cmd.Start != nil {
				spanStart = cmd.Start.UTC()
			}
			spanEnd = now.Add(caldomain.ExtendHorizon)
			applied, err = mz.apply(txCtx, m, spanStart, spanEnd, cmd.Fragments, true)
			if err == nil && applied {
				if err = h.memberships.SetWatermark(txCtx, m.ID, &spanEnd); err == nil {
					m.ScheduleExtendedTo = &spanEnd
				}
			}
		}
		if err != nil {
			return err
		}

		if applied {
			refs := caldomain.EventRefs{
				Resource:     &res.ExternalID,
				Organization: &org.ExternalID,
				Manager:      cmd.AuthorID,
			}
			events = append(events, caldomain.NewScheduleApplied(refs, permanent, spanStart, spanEnd))
			if err := stageEvents(txCtx, h.outboxRepo, cmd.App, "membership", m.ID, events); err != nil {
				return err
			}
		}

		result = &ApplyScheduleResult{Applied: applied}
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
