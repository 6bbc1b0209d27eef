package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marfateam/rcalendar/internal/calendar/domain"
	dirdomain "github.com/marfateam/rcalendar/internal/directory/domain"
)

// InMemoryIntervalRepository implements domain.IntervalRepository in
// memory for tests. Range queries apply the same strict-overlap rule as
// the PostgreSQL implementation, and reads hand out copies so callers
// can mutate rows before writing them back.
type InMemoryIntervalRepository struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]domain.Interval
}

// NewInMemoryIntervalRepository creates an empty in-memory interval
// repository.
func NewInMemoryIntervalRepository() *InMemoryIntervalRepository {
	return &InMemoryIntervalRepository{rows: make(map[uuid.UUID]domain.Interval)}
}

func (r *InMemoryIntervalRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Interval, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	iv, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrIntervalNotFound
	}
	cp := iv
	return &cp, nil
}

func (r *InMemoryIntervalRepository) Insert(ctx context.Context, iv *domain.Interval) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if iv.CreatedAt.IsZero() {
		iv.CreatedAt = time.Now().UTC()
	}
	r.rows[iv.ID] = *iv
	return nil
}

func (r *InMemoryIntervalRepository) InsertBatch(ctx context.Context, ivs []*domain.Interval) error {
	for _, iv := range ivs {
		if err := r.Insert(ctx, iv); err != nil {
			return err
		}
	}
	return nil
}

func (r *InMemoryIntervalRepository) Update(ctx context.Context, iv *domain.Interval) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[iv.ID]; !ok {
		return domain.ErrIntervalNotFound
	}
	r.rows[iv.ID] = *iv
	return nil
}

func (r *InMemoryIntervalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[id]; !ok {
		return domain.ErrIntervalNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *InMemoryIntervalRepository) ListForResourceBetween(ctx context.Context, resource uuid.UUID, from, to time.Time) (domain.Intervals, error) {
	return r.collect(func(iv *domain.Interval) bool {
		return iv.Resource == resource && overlapsStrict(iv, from, to)
	}), nil
}

func (r *InMemoryIntervalRepository) ListForResourcesBetween(ctx context.Context, resources []uuid.UUID, from, to time.Time) (domain.Intervals, error) {
	wanted := make(map[uuid.UUID]struct{}, len(resources))
	for _, id := range resources {
		wanted[id] = struct{}{}
	}
	out := r.collect(func(iv *domain.Interval) bool {
		_, ok := wanted[iv.Resource]
		return ok && overlapsStrict(iv, from, to)
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Resource != out[j].Resource {
			return out[i].Resource.String() < out[j].Resource.String()
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

func (r *InMemoryIntervalRepository) ListCovering(ctx context.Context, resource, organization uuid.UUID, at time.Time) (domain.Intervals, error) {
	return r.collect(func(iv *domain.Interval) bool {
		return iv.Resource == resource &&
			iv.Organization != nil && *iv.Organization == organization &&
			iv.Start.Before(at) && iv.End.After(at)
	}), nil
}

func (r *InMemoryIntervalRepository) SimilarBetween(ctx context.Context, iv *domain.Interval, from, to time.Time) ([]*domain.Interval, error) {
	return r.collect(func(o *domain.Interval) bool {
		return o.ID != iv.ID &&
			o.Resource == iv.Resource &&
			o.Kind == iv.Kind &&
			sameRef(o.Organization, iv.Organization) &&
			sameRef(o.Manager, iv.Manager) &&
			overlapsStrict(o, from, to)
	}), nil
}

func (r *InMemoryIntervalRepository) DeleteStartingFrom(ctx context.Context, resource, organization uuid.UUID, from time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, iv := range r.rows {
		if iv.Resource == resource &&
			iv.Organization != nil && *iv.Organization == organization &&
			!iv.Start.Before(from) {
			delete(r.rows, id)
		}
	}
	return nil
}

// collect snapshots the matching rows ordered by start.
func (r *InMemoryIntervalRepository) collect(match func(*domain.Interval) bool) domain.Intervals {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out domain.Intervals
	for _, iv := range r.rows {
		cp := iv
		if match(&cp) {
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// overlapsStrict is the boundary rule of domain.IntervalRepository:
// exact kisses at either range bound do not match.
func overlapsStrict(iv *domain.Interval, from, to time.Time) bool {
	return iv.Start.Before(to) && iv.End.After(from)
}

func sameRef(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// InMemoryMembershipRepository implements domain.MembershipRepository in
// memory for tests. The resource repository stands in for the SQL join
// resolving member resources to their external ids.
type InMemoryMembershipRepository struct {
	mu        sync.RWMutex
	rows      map[uuid.UUID]domain.Membership
	fragments map[uuid.UUID][]*domain.ScheduleFragment
	resources dirdomain.ResourceRepository
	seq       int64
}

// NewInMemoryMembershipRepository creates an empty in-memory membership
// repository resolving resource refs through the given repository.
func NewInMemoryMembershipRepository(resources dirdomain.ResourceRepository) *InMemoryMembershipRepository {
	return &InMemoryMembershipRepository{
		rows:      make(map[uuid.UUID]domain.Membership),
		fragments: make(map[uuid.UUID][]*domain.ScheduleFragment),
		resources: resources,
	}
}

func (r *InMemoryMembershipRepository) GetOrCreate(ctx context.Context, resource, organization uuid.UUID) (*domain.Membership, bool, error) {
	if m, err := r.Find(ctx, resource, organization); err != nil || m != nil {
		return m, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m := domain.NewMembership(resource, organization)
	r.seq++
	// Spread creation instants so CreatedAt ordering is deterministic.
	m.CreatedAt = time.Now().UTC().Add(time.Duration(r.seq) * time.Microsecond)
	r.rows[m.ID] = *m
	return m, true, nil
}

func (r *InMemoryMembershipRepository) Find(ctx context.Context, resource, organization uuid.UUID) (*domain.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.rows {
		if m.Resource == resource && m.Organization == organization {
			cp := m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *InMemoryMembershipRepository) ListForResource(ctx context.Context, resource uuid.UUID) ([]*domain.Membership, error) {
	return r.list(func(m *domain.Membership) bool { return m.Resource == resource }), nil
}

func (r *InMemoryMembershipRepository) ListScheduled(ctx context.Context) ([]*domain.Membership, error) {
	r.mu.RLock()
	scheduled := make(map[uuid.UUID]bool, len(r.fragments))
	for id, fs := range r.fragments {
		scheduled[id] = len(fs) > 0
	}
	r.mu.RUnlock()

	return r.list(func(m *domain.Membership) bool { return scheduled[m.ID] }), nil
}

func (r *InMemoryMembershipRepository) list(match func(*domain.Membership) bool) []*domain.Membership {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Membership
	for _, m := range r.rows {
		cp := m
		if match(&cp) {
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *InMemoryMembershipRepository) MembersOfOrganization(ctx context.Context, organization uuid.UUID) ([]domain.OrganizationMember, error) {
	members := r.list(func(m *domain.Membership) bool { return m.Organization == organization })

	out := make([]domain.OrganizationMember, 0, len(members))
	for _, m := range members {
		res, err := r.resources.FindByID(ctx, m.Resource)
		if err != nil {
			return nil, err
		}
		if res == nil {
			continue
		}
		r.mu.RLock()
		hasSchedule := len(r.fragments[m.ID]) > 0
		r.mu.RUnlock()
		out = append(out, domain.OrganizationMember{
			ResourceExternalID: res.ExternalID,
			HasSchedule:        hasSchedule,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResourceExternalID < out[j].ResourceExternalID })
	return out, nil
}

func (r *InMemoryMembershipRepository) ResourceRefs(ctx context.Context, organization uuid.UUID) (map[uuid.UUID]int64, error) {
	members := r.list(func(m *domain.Membership) bool { return m.Organization == organization })

	out := make(map[uuid.UUID]int64, len(members))
	for _, m := range members {
		res, err := r.resources.FindByID(ctx, m.Resource)
		if err != nil {
			return nil, err
		}
		if res == nil {
			continue
		}
		out[res.ID] = res.ExternalID
	}
	return out, nil
}

func (r *InMemoryMembershipRepository) SetWatermark(ctx context.Context, id uuid.UUID, watermark *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.rows[id]
	if !ok {
		return nil
	}
	if watermark != nil {
		w := watermark.UTC()
		m.ScheduleExtendedTo = &w
	} else {
		m.ScheduleExtendedTo = nil
	}
	r.rows[id] = m
	return nil
}

func (r *InMemoryMembershipRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.rows, id)
	delete(r.fragments, id)
	return nil
}

func (r *InMemoryMembershipRepository) Fragments(ctx context.Context, membership uuid.UUID) ([]*domain.ScheduleFragment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.fragments[membership]
	out := make([]*domain.ScheduleFragment, 0, len(stored))
	for _, f := range stored {
		cp := *f
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

func (r *InMemoryMembershipRepository) ReplaceFragments(ctx context.Context, membership uuid.UUID, fragments []*domain.ScheduleFragment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := make([]*domain.ScheduleFragment, 0, len(fragments))
	for _, f := range fragments {
		cp := *f
		cp.Membership = membership
		stored = append(stored, &cp)
	}
	r.fragments[membership] = stored
	return nil
}
