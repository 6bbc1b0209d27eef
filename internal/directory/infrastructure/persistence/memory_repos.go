package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marfateam/rcalendar/internal/directory/domain"
)

// The in-memory repositories below back tests with the same contract as
// the PostgreSQL implementations: Find methods return (nil, nil) on
// missing rows, GetOrCreate reports whether it created, list orderings
// match the SQL ORDER BY clauses. Reads return copies.

// InMemoryOrganizationRepository implements domain.OrganizationRepository
// in memory, including the manager edges.
type InMemoryOrganizationRepository struct {
	mu       sync.RWMutex
	rows     map[uuid.UUID]domain.Organization
	edges    map[uuid.UUID]map[uuid.UUID]struct{}
	managers *InMemoryManagerRepository
}

// NewInMemoryOrganizationRepository creates an empty in-memory
// organization repository resolving manager external ids through the
// given manager repository.
func NewInMemoryOrganizationRepository(managers *InMemoryManagerRepository) *InMemoryOrganizationRepository {
	return &InMemoryOrganizationRepository{
		rows:     make(map[uuid.UUID]domain.Organization),
		edges:    make(map[uuid.UUID]map[uuid.UUID]struct{}),
		managers: managers,
	}
}

func (r *InMemoryOrganizationRepository) GetOrCreate(ctx context.Context, app string, externalID int64) (*domain.Organization, bool, error) {
	if o, err := r.FindByExternalID(ctx, app, externalID); err != nil || o != nil {
		return o, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	o := domain.Organization{ID: uuid.New(), App: app, ExternalID: externalID, CreatedAt: time.Now().UTC()}
	r.rows[o.ID] = o
	return &o, true, nil
}

func (r *InMemoryOrganizationRepository) FindByExternalID(ctx context.Context, app string, externalID int64) (*domain.Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, o := range r.rows {
		if o.App == app && o.ExternalID == externalID {
			cp := o
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *InMemoryOrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	cp := o
	return &cp, nil
}

func (r *InMemoryOrganizationRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{}, len(ids))
	var out []*domain.Organization
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if o, ok := r.rows[id]; ok {
			cp := o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *InMemoryOrganizationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.rows, id)
	delete(r.edges, id)
	return nil
}

func (r *InMemoryOrganizationRepository) DeleteAllForApp(ctx context.Context, app string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, o := range r.rows {
		if o.App == app {
			delete(r.rows, id)
			delete(r.edges, id)
			n++
		}
	}
	return n, nil
}

func (r *InMemoryOrganizationRepository) ManagerExternalIDs(ctx context.Context, id uuid.UUID) ([]int64, error) {
	r.mu.RLock()
	memberIDs := make([]uuid.UUID, 0, len(r.edges[id]))
	for managerID := range r.edges[id] {
		memberIDs = append(memberIDs, managerID)
	}
	r.mu.RUnlock()

	var out []int64
	for _, managerID := range memberIDs {
		m, err := r.managers.FindByID(ctx, managerID)
		if err != nil {
			return nil, err
		}
		if m != nil {
			out = append(out, m.ExternalID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *InMemoryOrganizationRepository) AddManager(ctx context.Context, id, manager uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.edges[id] == nil {
		r.edges[id] = make(map[uuid.UUID]struct{})
	}
	r.edges[id][manager] = struct{}{}
	return nil
}

func (r *InMemoryOrganizationRepository) RemoveManager(ctx context.Context, id, manager uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.edges[id], manager)
	return nil
}

func (r *InMemoryOrganizationRepository) HasManager(ctx context.Context, id, manager uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.edges[id][manager]
	return ok, nil
}

// InMemoryManagerRepository implements domain.ManagerRepository in
// memory. OrganizationsForResource needs the organization repository
// and a membership predicate; bind them with BindOrganizations before
// exercising event flows.
type InMemoryManagerRepository struct {
	mu       sync.RWMutex
	rows     map[uuid.UUID]domain.Manager
	orgs     *InMemoryOrganizationRepository
	memberOf func(ctx context.Context, resource, organization uuid.UUID) (bool, error)
}

// NewInMemoryManagerRepository creates an empty in-memory manager
// repository.
func NewInMemoryManagerRepository() *InMemoryManagerRepository {
	return &InMemoryManagerRepository{rows: make(map[uuid.UUID]domain.Manager)}
}

// BindOrganizations wires the lookups OrganizationsForResource joins
// across. memberOf reports whether the resource belongs to the
// organization.
func (r *InMemoryManagerRepository) BindOrganizations(orgs *InMemoryOrganizationRepository, memberOf func(ctx context.Context, resource, organization uuid.UUID) (bool, error)) {
	r.orgs = orgs
	r.memberOf = memberOf
}

func (r *InMemoryManagerRepository) GetOrCreate(ctx context.Context, app string, externalID int64) (*domain.Manager, bool, error) {
	if m, err := r.FindByExternalID(ctx, app, externalID); err != nil || m != nil {
		return m, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m := domain.Manager{ID: uuid.New(), App: app, ExternalID: externalID, CreatedAt: time.Now().UTC()}
	r.rows[m.ID] = m
	return &m, true, nil
}

func (r *InMemoryManagerRepository) FindByExternalID(ctx context.Context, app string, externalID int64) (*domain.Manager, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.rows {
		if m.App == app && m.ExternalID == externalID {
			cp := m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *InMemoryManagerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Manager, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	cp := m
	return &cp, nil
}

func (r *InMemoryManagerRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Manager, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{}, len(ids))
	var out []*domain.Manager
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if m, ok := r.rows[id]; ok {
			cp := m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out, nil
}

func (r *InMemoryManagerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.rows, id)
	return nil
}

func (r *InMemoryManagerRepository) DeleteAllForApp(ctx context.Context, app string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, m := range r.rows {
		if m.App == app {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

func (r *InMemoryManagerRepository) OrganizationsForResource(ctx context.Context, manager, resource uuid.UUID) ([]*domain.Organization, error) {
	if r.orgs == nil || r.memberOf == nil {
		return nil, nil
	}

	r.orgs.mu.RLock()
	orgIDs := make([]uuid.UUID, 0, len(r.orgs.rows))
	for id := range r.orgs.rows {
		orgIDs = append(orgIDs, id)
	}
	r.orgs.mu.RUnlock()

	var out []*domain.Organization
	for _, orgID := range orgIDs {
		managed, err := r.orgs.HasManager(ctx, orgID, manager)
		if err != nil {
			return nil, err
		}
		if !managed {
			continue
		}
		member, err := r.memberOf(ctx, resource, orgID)
		if err != nil {
			return nil, err
		}
		if !member {
			continue
		}
		o, err := r.orgs.FindByID(ctx, orgID)
		if err != nil {
			return nil, err
		}
		if o != nil {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out, nil
}

// InMemoryResourceRepository implements domain.ResourceRepository in
// memory. Lock only checks existence; tests run single-writer.
type InMemoryResourceRepository struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]domain.Resource
}

// NewInMemoryResourceRepository creates an empty in-memory resource
// repository.
func NewInMemoryResourceRepository() *InMemoryResourceRepository {
	return &InMemoryResourceRepository{rows: make(map[uuid.UUID]domain.Resource)}
}

func (r *InMemoryResourceRepository) GetOrCreate(ctx context.Context, app string, externalID int64) (*domain.Resource, bool, error) {
	if res, err := r.FindByExternalID(ctx, app, externalID); err != nil || res != nil {
		return res, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	res := domain.Resource{ID: uuid.New(), App: app, ExternalID: externalID, CreatedAt: time.Now().UTC()}
	r.rows[res.ID] = res
	return &res, true, nil
}

func (r *InMemoryResourceRepository) FindByExternalID(ctx context.Context, app string, externalID int64) (*domain.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, res := range r.rows {
		if res.App == app && res.ExternalID == externalID {
			cp := res
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *InMemoryResourceRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	cp := res
	return &cp, nil
}

func (r *InMemoryResourceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.rows, id)
	return nil
}

func (r *InMemoryResourceRepository) DeleteAllForApp(ctx context.Context, app string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, res := range r.rows {
		if res.App == app {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

func (r *InMemoryResourceRepository) Lock(ctx context.Context, id uuid.UUID) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.rows[id]; !ok {
		return domain.ErrResourceNotFound
	}
	return nil
}

// InMemoryAPIKeyRepository implements domain.APIKeyRepository in memory.
type InMemoryAPIKeyRepository struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]domain.APIKey
	seq  int64
}

// NewInMemoryAPIKeyRepository creates an empty in-memory API key
// repository.
func NewInMemoryAPIKeyRepository() *InMemoryAPIKeyRepository {
	return &InMemoryAPIKeyRepository{rows: make(map[uuid.UUID]domain.APIKey)}
}

func (r *InMemoryAPIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if key.CreatedAt.IsZero() {
		r.seq++
		key.CreatedAt = time.Now().UTC().Add(time.Duration(r.seq) * time.Microsecond)
	}
	r.rows[key.Key] = *key
	return nil
}

func (r *InMemoryAPIKeyRepository) FindApp(ctx context.Context, key uuid.UUID) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	k, ok := r.rows[key]
	if !ok || !k.Active {
		return "", nil
	}
	return k.App, nil
}

func (r *InMemoryAPIKeyRepository) List(ctx context.Context) ([]*domain.APIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.APIKey, 0, len(r.rows))
	for _, k := range r.rows {
		cp := k
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryAPIKeyRepository) Deactivate(ctx context.Context, key uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.rows[key]
	if !ok {
		return nil
	}
	k.Active = false
	r.rows[key] = k
	return nil
}
