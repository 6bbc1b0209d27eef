package queries

import (
	"context"
	"time"

	caldomain "github.com/marfateam/rcalendar/internal/calendar/domain"
	dirdomain "github.com/marfateam/rcalendar/internal/directory/domain"
)

// clockLayout renders a template's times of day.
const clockLayout = "15:04:05"

// MembershipViewQuery fetches the membership of a resource in an
// organization, template included.
type MembershipViewQuery struct {
	App          string
	Resource     int64
	Organization int64
}

// ScheduleFragmentDTO is one weekly template row.
type ScheduleFragmentDTO struct {
	DayOfWeek int    `json:"day_of_week"`
	Start     string `json:"start"`
	End       string `json:"end"`
}

// MembershipDTO is the membership detail view.
type MembershipDTO struct {
	Organization       int64                 `json:"organization"`
	HasSchedule        bool                  `json:"has_schedule"`
	ScheduleExtendedTo *time.Time            `json:"schedule_extended_to"`
	ScheduleIntervals  []ScheduleFragmentDTO `json:"schedule_intervals"`
}

// MembershipViewHandler handles the MembershipViewQuery.
type MembershipViewHandler struct {
	memberships   caldomain.MembershipRepository
	resources     dirdomain.ResourceRepository
	organizations dirdomain.OrganizationRepository
}

// NewMembershipViewHandler creates a new MembershipViewHandler.
func NewMembershipViewHandler(
	memberships caldomain.MembershipRepository,
	resources dirdomain.ResourceRepository,
	organizations dirdomain.OrganizationRepository,
) *MembershipViewHandler {
	return &MembershipViewHandler{
		memberships:   memberships,
		resources:     resources,
		organizations: organizations,
	}
}

// Handle executes the MembershipViewQuery.
func (h *MembershipViewHandler) Handle(ctx context.Context, query MembershipViewQuery) (*MembershipDTO, error) {
	res, err := h.resources.FindByExternalID(ctx, query.App, query.Resource)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, dirdomain.ErrResourceNotFound
	}
	org, err := h.organizations.FindByExternalID(ctx, query.App, query.Organization)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, dirdomain.ErrOrganizationNotFound
	}

	m, err := h.memberships.Find(ctx, res.ID, org.ID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, dirdomain.ErrMembershipNotFound
	}

	fragments, err := h.memberships.Fragments(ctx, m.ID)
	if err != nil {
		return nil, err
	}

	dto := &MembershipDTO{
		Organization:       org.ExternalID,
		HasSchedule:        len(fragments) > 0,
		ScheduleExtendedTo: m.ScheduleExtendedTo,
		ScheduleIntervals:  make([]ScheduleFragmentDTO, 0, len(fragments)),
	}
	for _, f := range fragments {
		dto.ScheduleIntervals = append(dto.ScheduleIntervals, ScheduleFragmentDTO{
			DayOfWeek: f.DayOfWeek,
			Start:     f.StartTime.Format(clockLayout),
			End:       f.EndTime.Format(clockLayout),
		})
	}
	return dto, nil
}
