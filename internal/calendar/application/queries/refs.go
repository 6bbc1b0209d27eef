package queries

import (
	"context"

	"github.com/google/uuid"

	caldomain "github.com/marfateam/rcalendar/internal/calendar/domain"
	dirdomain "github.com/marfateam/rcalendar/internal/directory/domain"
)

// refMaps resolves the organization and manager references appearing in
// an interval set to external ids, with one batched lookup per entity.
type refMaps struct {
	organizations map[uuid.UUID]int64
	managers      map[uuid.UUID]int64
}

func loadRefMaps(ctx context.Context, organizations dirdomain.OrganizationRepository, managers dirdomain.ManagerRepository, ivs caldomain.Intervals) (*refMaps, error) {
	var orgIDs, mgrIDs []uuid.UUID
	seenOrg := make(map[uuid.UUID]struct{})
	seenMgr := make(map[uuid.UUID]struct{})
	for _, iv := range ivs {
		if iv.Organization != nil {
			if _, ok := seenOrg[*iv.Organization]; !ok {
				seenOrg[*iv.Organization] = struct{}{}
				orgIDs = append(orgIDs, *iv.Organization)
			}
		}
		if iv.Manager != nil {
			if _, ok := seenMgr[*iv.Manager]; !ok {
				seenMgr[*iv.Manager] = struct{}{}
				mgrIDs = append(mgrIDs, *iv.Manager)
			}
		}
	}

	rm := &refMaps{
		organizations: make(map[uuid.UUID]int64, len(orgIDs)),
		managers:      make(map[uuid.UUID]int64, len(mgrIDs)),
	}
	if len(orgIDs) > 0 {
		orgs, err := organizations.ListByIDs(ctx, orgIDs)
		if err != nil {
			return nil, err
		}
		for _, o := range orgs {
			rm.organizations[o.ID] = o.ExternalID
		}
	}
	if len(mgrIDs) > 0 {
		mgrs, err := managers.ListByIDs(ctx, mgrIDs)
		if err != nil {
			return nil, err
		}
		for _, m := range mgrs {
			rm.managers[m.ID] = m.ExternalID
		}
	}
	return rm, nil
}

func (r *refMaps) organization(id *uuid.UUID) *int64 {
	if id == nil {
		return nil
	}
	ext, ok := r.organizations[*id]
	if !ok {
		return nil
	}
	return &ext
}

func (r *refMaps) manager(id *uuid.UUID) *int64 {
	if id == nil {
		return nil
	}
	ext, ok := r.managers[*id]
	if !ok {
		return nil
	}
	return &ext
}
