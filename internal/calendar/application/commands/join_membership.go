package commands

import (
	"context"

	caldomain "github.com/marfateam/rcalendar/internal/calendar/domain"
	dirdomain "github.com/marfateam/rcalendar/internal/directory/domain"
	sharedApplication "github.com/marfateam/rcalendar/internal/shared/application"
)

// JoinMembershipCommand adds a resource to an organization.
type JoinMembershipCommand struct {
	App          string
	Resource     int64
	Organization int64
}

// JoinMembershipResult reports whether a new membership was created.
type JoinMembershipResult struct {
	Created bool
}

// JoinMembershipHandler handles the JoinMembershipCommand.
type JoinMembershipHandler struct {
	memberships   caldomain.MembershipRepository
	resources     dirdomain.ResourceRepository
	organizations dirdomain.OrganizationRepository
	uow           sharedApplication.UnitOfWork
}

// NewJoinMembershipHandler creates a new JoinMembershipHandler.
func NewJoinMembershipHandler(
	memberships caldomain.MembershipRepository,
	resources dirdomain.ResourceRepository,
	organizations dirdomain.OrganizationRepository,
	uow sharedApplication.UnitOfWork,
) *JoinMembershipHandler {
	return &JoinMembershipHandler{
		memberships:   memberships,
		resources:     resources,
		organizations: organizations,
		uow:           uow,
	}
}

// Handle executes the JoinMembershipCommand.
func (h *JoinMembershipHandler) Handle(ctx context.Context, cmd JoinMembershipCommand) (*JoinMembershipResult, error) {
	var result *JoinMembershipResult

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

		_, created, err := h.memberships.GetOrCreate(txCtx, res.ID, org.ID)
		if err != nil {
			return err
		}
		result = &JoinMembershipResult{Created: created}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
