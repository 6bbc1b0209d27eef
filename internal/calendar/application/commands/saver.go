// Package commands implements the calendar write operations: interval
// save/delete with layered validation, unavailability clearing and
// weekly schedule materialization. Every handler runs inside a unit of
// work with a row lock on the resource, emits the request's domain
// events and mirrors them to the transactional outbox.
package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	caldomain "github.com/marfateam/rcalendar/internal/calendar/domain"
	dirdomain "github.com/marfateam/rcalendar/internal/directory/domain"
	"github.com/marfateam/rcalendar/internal/shared/infrastructure/outbox"
	"github.com/marfateam/rcalendar/pkg/observability"
)

// intervalSaver runs the save pipeline shared by interval create and
// update: the ordered validation rules, the canonicalizing join and
// the resulting events.
type intervalSaver struct {
	intervals     caldomain.IntervalRepository
	memberships   caldomain.MembershipRepository
	organizations dirdomain.OrganizationRepository
	managers      dirdomain.ManagerRepository
}

// validate applies the save rules in their fixed order and returns the
// resource's intervals overlapping the candidate's span, the candidate
// itself excluded. The returned set feeds the kind-specific rules and,
// for unavailability, the affected-manager events.
func (s *intervalSaver) validate(ctx context.Context, iv *caldomain.Interval) (caldomain.Intervals, error) {
	if !iv.Start.Before(iv.End) {
		return nil, caldomain.ErrEndNotAfterStart
	}
	if iv.Organization == nil && iv.Kind != caldomain.KindUnavailable {
		return nil, caldomain.ErrOrganizationRequired
	}
	if iv.Organization != nil && iv.Manager != nil {
		ok, err := s.organizations.HasManager(ctx, *iv.Organization, *iv.Manager)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, caldomain.ErrManagerNotInOrg
		}
	}
	if iv.Organization != nil {
		member, err := s.memberships.Find(ctx, iv.Resource, *iv.Organization)
		if err != nil {
			return nil, err
		}
		if member == nil {
			return nil, caldomain.ErrResourceNotInOrg
		}
	}

	q, err := s.intervals.ListForResourceBetween(ctx, iv.Resource, iv.Start, iv.End)
	if err != nil {
		return nil, err
	}
	q = q.Excluding(iv.ID)

	switch iv.Kind {
	case caldomain.KindManagerReserved:
		if iv.Manager == nil {
			return nil, caldomain.ErrManagerRequired
		}
		orgTime := q.OfKind(caldomain.KindOrgReserved).ForOrganization(iv.Organization)
		if !orgTime.IsContinuous(iv.Start, iv.End) {
			return nil, caldomain.ErrOutsideOrgTime
		}
		if len(q.OfKind(caldomain.KindManagerReserved).ExcludingManager(iv.Manager)) > 0 {
			return nil, caldomain.ErrReservedForAnother
		}
		mine := q.OfKind(caldomain.KindManagerReserved).
			ForOrganization(iv.Organization).
			ForManager(iv.Manager)
		if mine.IsContinuous(iv.Start, iv.End) {
			return nil, caldomain.ErrAlreadyReserved
		}

	case caldomain.KindOrgReserved:
		owned := q.OfKind(caldomain.KindOrgReserved).ForOrganization(iv.Organization)
		if owned.IsContinuous(iv.Start, iv.End) {
			return nil, caldomain.ErrAlreadyReservedForOrg
		}
		if len(q.OfKind(caldomain.KindOrgReserved).ExcludingOrganization(iv.Organization)) > 0 {
			return nil, caldomain.ErrWithinAnotherOrg
		}
		others, err := s.memberships.ListForResource(ctx, iv.Resource)
		if err != nil {
			return nil, err
		}
		for _, m := range others {
			if iv.Organization != nil && m.Organization == *iv.Organization {
				continue
			}
			fragments, err := s.memberships.Fragments(ctx, m.ID)
			if err != nil {
				return nil, err
			}
			if caldomain.FragmentsIntersect(fragments, iv) {
				return nil, caldomain.ErrWithinAnotherSchedule
			}
		}
	}
	return q, nil
}

// save validates iv, joins it with its stored similar intervals and
// persists the result. The returned events carry the post-join bounds:
// always create-interval, plus one add-unavailable-interval per manager
// whose reservations the new unavailability touches.
func (s *intervalSaver) save(ctx context.Context, iv *caldomain.Interval, res *dirdomain.Resource, org *dirdomain.Organization, mgr *dirdomain.Manager, update bool) ([]caldomain.Event, error) {
	q, err := s.validate(ctx, iv)
	if err != nil {
		return nil, err
	}

	bag := caldomain.NewRepositoryBag(s.intervals)
	if _, err := caldomain.JoinStored(ctx, bag, iv, caldomain.JoinGap); err != nil {
		return nil, err
	}

	if update {
		err = s.intervals.Update(ctx, iv)
	} else {
		err = s.intervals.Insert(ctx, iv)
	}
	if err != nil {
		return nil, err
	}

	refs := caldomain.EventRefs{Resource: &res.ExternalID}
	if org != nil {
		refs.Organization = &org.ExternalID
	}
	if mgr != nil {
		refs.Manager = &mgr.ExternalID
	}
	events := []caldomain.Event{
		caldomain.NewIntervalCreated(iv.Kind, refs, iv.Comment, iv.Start, iv.End),
	}

	if iv.Kind == caldomain.KindUnavailable {
		affected, err := s.affectedManagerRefs(ctx, res, q)
		if err != nil {
			return nil, err
		}
		for _, r := range affected {
			events = append(events, caldomain.NewUnavailableAdded(r, iv.Comment, iv.Start, iv.End))
		}
	}
	return events, nil
}

// affectedManagerRefs resolves the managers reserving time in q into
// event references, each carrying one organization linking the manager
// to the resource (nil when they share none).
func (s *intervalSaver) affectedManagerRefs(ctx context.Context, res *dirdomain.Resource, q caldomain.Intervals) ([]caldomain.EventRefs, error) {
	ids := q.Managers()
	if len(ids) == 0 {
		return nil, nil
	}
	affected, err := s.managers.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]caldomain.EventRefs, 0, len(affected))
	for _, m := range affected {
		orgs, err := s.managers.OrganizationsForResource(ctx, m.ID, res.ID)
		if err != nil {
			return nil, err
		}
		refs := caldomain.EventRefs{Resource: &res.ExternalID, Manager: &m.ExternalID}
		if len(orgs) > 0 {
			refs.Organization = &orgs[0].ExternalID
		}
		out = append(out, refs)
	}
	return out, nil
}

// resolveRefs loads the optional organization and manager named by a
// command. Unknown references fail the way unresolvable body fields do
// at the API boundary.
func (s *intervalSaver) resolveRefs(ctx context.Context, app string, organization, manager *int64) (*dirdomain.Organization, *dirdomain.Manager, error) {
	var org *dirdomain.Organization
	var mgr *dirdomain.Manager
	var err error

	if organization != nil {
		org, err = s.organizations.FindByExternalID(ctx, app, *organization)
		if err != nil {
			return nil, nil, err
		}
		if org == nil {
			return nil, nil, invalidRef("organization", *organization)
		}
	}
	if manager != nil {
		mgr, err = s.managers.FindByExternalID(ctx, app, *manager)
		if err != nil {
			return nil, nil, err
		}
		if mgr == nil {
			return nil, nil, invalidRef("manager", *manager)
		}
	}
	return org, mgr, nil
}

// invalidRef reports an unresolvable entity reference in a request
// body.
func invalidRef(field string, id int64) *caldomain.ValidationError {
	return caldomain.NewValidationError(field,
		fmt.Sprintf("Invalid pk %q - object does not exist.", strconv.FormatInt(id, 10)))
}

// authorizeIntervalAuthor enforces the author_id rule on interval
// mutations: the author must be the interval's manager, or its
// resource when the interval is personal unavailability.
func authorizeIntervalAuthor(ctx context.Context, managers dirdomain.ManagerRepository, app string, authorID *int64, iv *caldomain.Interval, res *dirdomain.Resource) error {
	if authorID == nil {
		return caldomain.ErrNotIntervalAuthor
	}
	mgr, err := managers.FindByExternalID(ctx, app, *authorID)
	if err != nil {
		return err
	}
	if mgr != nil && iv.Manager != nil && *iv.Manager == mgr.ID {
		return nil
	}
	if res.ExternalID == *authorID && iv.Kind == caldomain.KindUnavailable {
		return nil
	}
	return caldomain.ErrNotIntervalAuthor
}

// Routing keys the outbox relay publishes sink events under.
var routingKeys = map[string]string{
	caldomain.EventCreateInterval:   "calendar.interval.created",
	caldomain.EventDeleteInterval:   "calendar.interval.deleted",
	caldomain.EventAddUnavailable:   "calendar.unavailable.added",
	caldomain.EventClearUnavailable: "calendar.unavailable.cleared",
	caldomain.EventApplySchedule:    "calendar.schedule.applied",
}

// stageEvents mirrors sink events into the outbox within the ambient
// transaction, so the broker sees exactly what the caller saw.
func stageEvents(ctx context.Context, repo outbox.Repository, app, aggregateType string, aggregateID uuid.UUID, events []caldomain.Event) error {
	if len(events) == 0 {
		return nil
	}
	meta := outbox.Metadata{
		CorrelationID: observability.CorrelationIDFromContext(ctx),
		App:           app,
	}
	msgs := make([]*outbox.Message, 0, len(events))
	for _, e := range events {
		msg, err := outbox.NewMessage(aggregateType, aggregateID, routingKeys[e.Kind], e, meta)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	return repo.SaveBatch(ctx, msgs)
}
