package queries

import (
	"context"
	"time"

	caldomain "github.com/marfateam/rcalendar/internal/calendar/domain"
	dirdomain "github.com/marfateam/rcalendar/internal/directory/domain"
)

// ResourceIntervalsQuery lists everything on one resource's timeline
// over an inclusive date range.
type ResourceIntervalsQuery struct {
	App      string
	Resource int64
	Start    time.Time
	End      time.Time
}

// ResourceIntervalsHandler handles the ResourceIntervalsQuery.
type ResourceIntervalsHandler struct {
	intervals     caldomain.IntervalRepository
	resources     dirdomain.ResourceRepository
	organizations dirdomain.OrganizationRepository
	managers      dirdomain.ManagerRepository
}

// NewResourceIntervalsHandler creates a new ResourceIntervalsHandler.
func NewResourceIntervalsHandler(
	intervals caldomain.IntervalRepository,
	resources dirdomain.ResourceRepository,
	organizations dirdomain.OrganizationRepository,
	managers dirdomain.ManagerRepository,
) *ResourceIntervalsHandler {
	return &ResourceIntervalsHandler{
		intervals:     intervals,
		resources:     resources,
		organizations: organizations,
		managers:      managers,
	}
}

// Handle executes the ResourceIntervalsQuery.
func (h *ResourceIntervalsHandler) Handle(ctx context.Context, query ResourceIntervalsQuery) ([]IntervalDTO, error) {
	res, err := h.resources.FindByExternalID(ctx, query.App, query.Resource)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, dirdomain.ErrResourceNotFound
	}

	from, to := caldomain.RangeBounds(query.Start, query.End, true)
	ivs, err := h.intervals.ListForResourceBetween(ctx, res.ID, from, to)
	if err != nil {
		return nil, err
	}

	refs, err := loadRefMaps(ctx, h.organizations, h.managers, ivs)
	if err != nil {
		return nil, err
	}

	out := make([]IntervalDTO, 0, len(ivs))
	for _, iv := range ivs {
		out = append(out, NewIntervalDTO(iv, res.ExternalID, refs.organization(iv.Organization), refs.manager(iv.Manager)))
	}
	return out, nil
}
