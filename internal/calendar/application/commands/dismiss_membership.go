package commands

import (
	"context"
	"time"

	caldomain "github.com/marfateam/rcalendar/internal/calendar/domain"
	dirdomain "github.com/marfateam/rcalendar/internal/directory/domain"
	sharedApplication "github.com/marfateam/rcalendar/internal/shared/application"
)

// DismissMembershipCommand removes a resource from an organization:
// the pair's standing time is cut at the current instant, intervals
// starting in the future are dropped and the membership row goes away,
// template and all.
type DismissMembershipCommand struct {
	App          string
	Resource     int64
	Organization int64
}

// DismissMembershipHandler handles the DismissMembershipCommand.
type DismissMembershipHandler struct {
	intervals     caldomain.IntervalRepository
	memberships   caldomain.MembershipRepository
	resources     dirdomain.ResourceRepository
	organizations dirdomain.OrganizationRepository
	uow           sharedApplication.UnitOfWork
	now           func() time.Time
}

// NewDismissMembershipHandler creates a new DismissMembershipHandler.
func NewDismissMembershipHandler(
	intervals caldomain.IntervalRepository,
	memberships caldomain.MembershipRepository,
	resources dirdomain.ResourceRepository,
	organizations dirdomain.OrganizationRepository,
	uow sharedApplication.UnitOfWork,
) *DismissMembershipHandler {
	return &DismissMembershipHandler{
		intervals:     intervals,
		memberships:   memberships,
		resources:     resources,
		organizations: organizations,
		uow:           uow,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the DismissMembershipCommand.
func (h *DismissMembershipHandler) Handle(ctx context.Context, cmd DismissMembershipCommand) error {
	return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
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
			return dirdomain.ErrMembershipNotFound
		}

		at := h.now()
		mz := &materializer{intervals: h.intervals, memberships: h.memberships, now: h.now}
		if err := mz.strip(txCtx, m, at); err != nil {
			return err
		}
		if err := h.intervals.DeleteStartingFrom(txCtx, res.ID, org.ID, at); err != nil {
			return err
		}
		return h.memberships.Delete(txCtx, m.ID)
	})
}
