package queries

import (
	"context"
	"time"

	"github.com/google/uuid"

	caldomain "github.com/marfateam/rcalendar/internal/calendar/domain"
	dirdomain "github.com/marfateam/rcalendar/internal/directory/domain"
)

// OrganizationIntervalsQuery lists the timeline an organization is
// allowed to see: its own intervals plus other organizations' reserved
// time and resource unavailability, masked per the visibility rules.
// Resource narrows the listing to one resource; when it does not
// resolve the listing is empty.
type OrganizationIntervalsQuery struct {
	App          string
	Organization int64
	Resource     *int64
	Start        time.Time
	End          time.Time
}

// OrganizationIntervalsHandler handles the OrganizationIntervalsQuery.
type OrganizationIntervalsHandler struct {
	intervals     caldomain.IntervalRepository
	memberships   caldomain.MembershipRepository
	resources     dirdomain.ResourceRepository
	organizations dirdomain.OrganizationRepository
	managers      dirdomain.ManagerRepository
}

// NewOrganizationIntervalsHandler creates a new OrganizationIntervalsHandler.
func NewOrganizationIntervalsHandler(
	intervals caldomain.IntervalRepository,
	memberships caldomain.MembershipRepository,
	resources dirdomain.ResourceRepository,
	organizations dirdomain.OrganizationRepository,
	managers dirdomain.ManagerRepository,
) *OrganizationIntervalsHandler {
	return &OrganizationIntervalsHandler{
		intervals:     intervals,
		memberships:   memberships,
		resources:     resources,
		organizations: organizations,
		managers:      managers,
	}
}

// Handle executes the OrganizationIntervalsQuery.
func (h *OrganizationIntervalsHandler) Handle(ctx context.Context, query OrganizationIntervalsQuery) ([]IntervalDTO, error) {
	org, err := h.organizations.FindByExternalID(ctx, query.App, query.Organization)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, dirdomain.ErrOrganizationNotFound
	}

	var resourceRefs map[uuid.UUID]int64
	if query.Resource != nil {
		res, err := h.resources.FindByExternalID(ctx, query.App, *query.Resource)
		if err != nil {
			return nil, err
		}
		if res == nil {
			return []IntervalDTO{}, nil
		}
		resourceRefs = map[uuid.UUID]int64{res.ID: res.ExternalID}
	} else {
		resourceRefs, err = h.memberships.ResourceRefs(ctx, org.ID)
		if err != nil {
			return nil, err
		}
	}
	if len(resourceRefs) == 0 {
		return []IntervalDTO{}, nil
	}
	ids := make([]uuid.UUID, 0, len(resourceRefs))
	for id := range resourceRefs {
		ids = append(ids, id)
	}

	from, to := caldomain.RangeBounds(query.Start, query.End, true)
	all, err := h.intervals.ListForResourcesBetween(ctx, ids, from, to)
	if err != nil {
		return nil, err
	}

	// Other organizations' manager time is invisible; their reserved
	// spans stay visible but get recorded so unavailability they fully
	// cover can be hidden below.
	foreign := make(map[uuid.UUID]caldomain.Intervals)
	visible := make(caldomain.Intervals, 0, len(all))
	for _, iv := range all {
		if !h.ownedBy(iv, org.ID) {
			if iv.Kind == caldomain.KindManagerReserved {
				continue
			}
			if iv.Kind == caldomain.KindOrgReserved {
				foreign[iv.Resource] = append(foreign[iv.Resource], iv)
			}
		}
		visible = append(visible, iv)
	}

	kept := make(caldomain.Intervals, 0, len(visible))
	for _, iv := range visible {
		if iv.Kind == caldomain.KindUnavailable && coveredByAny(foreign[iv.Resource], iv) {
			continue
		}
		kept = append(kept, iv)
	}

	refs, err := loadRefMaps(ctx, h.organizations, h.managers, kept)
	if err != nil {
		return nil, err
	}

	out := make([]IntervalDTO, 0, len(kept))
	for _, iv := range kept {
		if iv.Kind == caldomain.KindOrgReserved && !h.ownedBy(iv, org.ID) {
			// Foreign reserved time shows bare bounds: no comment, no
			// manager.
			out = append(out, NewIntervalDTO(iv, resourceRefs[iv.Resource], refs.organization(iv.Organization), nil))
			out[len(out)-1].Comment = nil
			continue
		}
		out = append(out, NewIntervalDTO(iv, resourceRefs[iv.Resource], refs.organization(iv.Organization), refs.manager(iv.Manager)))
	}
	return out, nil
}

func (h *OrganizationIntervalsHandler) ownedBy(iv *caldomain.Interval, org uuid.UUID) bool {
	return iv.Organization != nil && *iv.Organization == org
}

// coveredByAny reports whether a single covering interval spans iv
// whole, bounds inclusive.
func coveredByAny(covers caldomain.Intervals, iv *caldomain.Interval) bool {
	for _, c := range covers {
		if !c.Start.After(iv.Start) && !c.End.Before(iv.End) {
			return true
		}
	}
	return false
}
