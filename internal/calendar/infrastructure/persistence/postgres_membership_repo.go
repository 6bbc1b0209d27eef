package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marfateam/rcalendar/internal/calendar/domain"
	sharedPersistence "github.com/marfateam/rcalendar/internal/shared/infrastructure/persistence"
)

const selectMembershipColumns = `
	SELECT id, resource_id, organization_id, schedule_extended_to, created_at
	FROM resource_memberships
`

// PostgresMembershipRepository implements domain.MembershipRepository
// using PostgreSQL.
type PostgresMembershipRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresMembershipRepository creates a new PostgreSQL membership repository.
func NewPostgresMembershipRepository(pool *pgxpool.Pool) *PostgresMembershipRepository {
	return &PostgresMembershipRepository{pool: pool}
}

func scanMembership(row pgx.Row) (*domain.Membership, error) {
	var m domain.Membership
	err := row.Scan(&m.ID, &m.Resource, &m.Organization, &m.ScheduleExtendedTo, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetOrCreate returns the membership for the pair, creating it when
// missing. The second return reports whether a row was created.
func (r *PostgresMembershipRepository) GetOrCreate(ctx context.Context, resource, organization uuid.UUID) (*domain.Membership, bool, error) {
	execer := sharedPersistence.Executor(ctx, r.pool)

	m := domain.NewMembership(resource, organization)
	err := execer.QueryRow(ctx, `
		INSERT INTO resource_memberships (id, resource_id, organization_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (resource_id, organization_id) DO NOTHING
		RETURNING created_at
	`, m.ID, resource, organization).Scan(&m.CreatedAt)
	if err == nil {
		return m, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	existing, err := r.Find(ctx, resource, organization)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Find returns the pair's membership, or (nil, nil) when none exists.
func (r *PostgresMembershipRepository) Find(ctx context.Context, resource, organization uuid.UUID) (*domain.Membership, error) {
	row := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, selectMembershipColumns+`
		WHERE resource_id = $1 AND organization_id = $2
	`, resource, organization)
	m, err := scanMembership(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// ListForResource returns all of a resource's memberships.
func (r *PostgresMembershipRepository) ListForResource(ctx context.Context, resource uuid.UUID) ([]*domain.Membership, error) {
	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx, selectMembershipColumns+`
		WHERE resource_id = $1
		ORDER BY created_at
	`, resource)
	return collectMemberships(rows, err)
}

// ListScheduled returns every membership carrying at least one schedule
// fragment, for the roll-forward job.
func (r *PostgresMembershipRepository) ListScheduled(ctx context.Context) ([]*domain.Membership, error) {
	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx, `
		SELECT m.id, m.resource_id, m.organization_id, m.schedule_extended_to, m.created_at
		FROM resource_memberships m
		WHERE EXISTS (SELECT 1 FROM schedule_fragments f WHERE f.membership_id = m.id)
		ORDER BY m.created_at
	`)
	return collectMemberships(rows, err)
}

func collectMemberships(rows pgx.Rows, err error) ([]*domain.Membership, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MembersOfOrganization lists the organization's members with their
// schedule flag, ordered by the resource's external id.
func (r *PostgresMembershipRepository) MembersOfOrganization(ctx context.Context, organization uuid.UUID) ([]domain.OrganizationMember, error) {
	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx, `
		SELECT res.external_id,
		       EXISTS (SELECT 1 FROM schedule_fragments f WHERE f.membership_id = m.id)
		FROM resource_memberships m
		JOIN resources res ON res.id = m.resource_id
		WHERE m.organization_id = $1
		ORDER BY res.external_id
	`, organization)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.OrganizationMember
	for rows.Next() {
		var member domain.OrganizationMember
		if err := rows.Scan(&member.ResourceExternalID, &member.HasSchedule); err != nil {
			return nil, err
		}
		out = append(out, member)
	}
	return out, rows.Err()
}

// ResourceRefs maps the organization's member resources from internal
// to external id.
func (r *PostgresMembershipRepository) ResourceRefs(ctx context.Context, organization uuid.UUID) (map[uuid.UUID]int64, error) {
	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx, `
		SELECT res.id, res.external_id
		FROM resource_memberships m
		JOIN resources res ON res.id = m.resource_id
		WHERE m.organization_id = $1
	`, organization)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]int64)
	for rows.Next() {
		var id uuid.UUID
		var externalID int64
		if err := rows.Scan(&id, &externalID); err != nil {
			return nil, err
		}
		out[id] = externalID
	}
	return out, rows.Err()
}

// SetWatermark stores the instant through which the membership's
// schedule has been materialized.
func (r *PostgresMembershipRepository) SetWatermark(ctx context.Context, id uuid.UUID, watermark *time.Time) error {
	_, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx,
		`UPDATE resource_memberships SET schedule_extended_to = $2 WHERE id = $1`, id, watermark)
	return err
}

// Delete removes the membership; its fragments cascade.
func (r *PostgresMembershipRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx,
		`DELETE FROM resource_memberships WHERE id = $1`, id)
	return err
}

// Fragments returns the membership's weekly template rows.
func (r *PostgresMembershipRepository) Fragments(ctx context.Context, membership uuid.UUID) ([]*domain.ScheduleFragment, error) {
	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx, `
		SELECT id, membership_id, day_of_week, start_time, end_time
		FROM schedule_fragments
		WHERE membership_id = $1
		ORDER BY day_of_week, start_time
	`, membership)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ScheduleFragment
	for rows.Next() {
		var f domain.ScheduleFragment
		if err := rows.Scan(&f.ID, &f.Membership, &f.DayOfWeek, &f.StartTime, &f.EndTime); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

// ReplaceFragments swaps the membership's template for the given rows
// atomically, joining the ambient transaction when one is present.
func (r *PostgresMembershipRepository) ReplaceFragments(ctx context.Context, membership uuid.UUID, fragments []*domain.ScheduleFragment) error {
	if info, ok := sharedPersistence.TxInfoFromContext(ctx); ok {
		return replaceFragments(ctx, info.Tx, membership, fragments)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := replaceFragments(ctx, tx, membership, fragments); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func replaceFragments(ctx context.Context, execer sharedPersistence.DBExecutor, membership uuid.UUID, fragments []*domain.ScheduleFragment) error {
	if _, err := execer.Exec(ctx,
		`DELETE FROM schedule_fragments WHERE membership_id = $1`, membership); err != nil {
		return err
	}
	for _, f := range fragments {
		f.Membership = membership
		_, err := execer.Exec(ctx, `
			INSERT INTO schedule_fragments (id, membership_id, day_of_week, start_time, end_time)
			VALUES ($1, $2, $3, $4, $5)
		`, f.ID, f.Membership, f.DayOfWeek, f.StartTime, f.EndTime)
		if err != nil {
			return err
		}
	}
	return nil
}
