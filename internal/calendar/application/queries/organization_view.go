package queries

import (
	"context"

	caldomain "github.com/marfateam/rcalendar/internal/calendar/domain"
	dirdomain "github.com/marfateam/rcalendar/internal/directory/domain"
)

// OrganizationViewQuery fetches one organization's detail view.
type OrganizationViewQuery struct {
	App          string
	Organization int64
}

// OrganizationMemberDTO is one membership row of the detail view.
type OrganizationMemberDTO struct {
	Resource    int64 `json:"resource"`
	HasSchedule bool  `json:"has_schedule"`
}

// OrganizationDTO is the organization detail view.
type OrganizationDTO struct {
	ManagerIDs      []int64                 `json:"manager_ids"`
	ResourceMembers []OrganizationMemberDTO `json:"resource_members"`
}

// OrganizationViewHandler handles the OrganizationViewQuery.
type OrganizationViewHandler struct {
	memberships   caldomain.MembershipRepository
	organizations dirdomain.OrganizationRepository
}

// NewOrganizationViewHandler creates a new OrganizationViewHandler.
func NewOrganizationViewHandler(
	memberships caldomain.MembershipRepository,
	organizations dirdomain.OrganizationRepository,
) *OrganizationViewHandler {
	return &OrganizationViewHandler{memberships: memberships, organizations: organizations}
}

// Handle executes the OrganizationViewQuery.
func (h *OrganizationViewHandler) Handle(ctx context.Context, query OrganizationViewQuery) (*OrganizationDTO, error) {
	org, err := h.organizations.FindByExternalID(ctx, query.App, query.Organization)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, dirdomain.ErrOrganizationNotFound
	}

	managerIDs, err := h.organizations.ManagerExternalIDs(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	members, err := h.memberships.MembersOfOrganization(ctx, org.ID)
	if err != nil {
		return nil, err
	}

	dto := &OrganizationDTO{
		ManagerIDs:      make([]int64, 0, len(managerIDs)),
		ResourceMembers: make([]OrganizationMemberDTO, 0, len(members)),
	}
	dto.ManagerIDs = append(dto.ManagerIDs, managerIDs...)
	for _, m := range members {
		dto.ResourceMembers = append(dto.ResourceMembers, OrganizationMemberDTO{
			Resource:    m.ResourceExternalID,
			HasSchedule: m.HasSchedule,
		})
	}
	return dto, nil
}
