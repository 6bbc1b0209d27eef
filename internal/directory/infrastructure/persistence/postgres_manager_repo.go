package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marfateam/rcalendar/internal/directory/domain"
	sharedPersistence "github.com/marfateam/rcalendar/internal/shared/infrastructure/persistence"
)

const selectManagerColumns = `
	SELECT id, app, external_id, created_at
	FROM managers
`

// PostgresManagerRepository implements domain.ManagerRepository using
// PostgreSQL.
type PostgresManagerRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresManagerRepository creates a new PostgreSQL manager repository.
func NewPostgresManagerRepository(pool *pgxpool.Pool) *PostgresManagerRepository {
	return &PostgresManagerRepository{pool: pool}
}

func scanManager(row pgx.Row) (*domain.Manager, error) {
	var m domain.Manager
	if err := row.Scan(&m.ID, &m.App, &m.ExternalID, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetOrCreate returns the app's manager with the given external id,
// creating it when missing.
func (r *PostgresManagerRepository) GetOrCreate(ctx context.Context, app string, externalID int64) (*domain.Manager, bool, error) {
	execer := sharedPersistence.Executor(ctx, r.pool)

	m := &domain.Manager{ID: uuid.New(), App: app, ExternalID: externalID}
	err := execer.QueryRow(ctx, `
		INSERT INTO managers (id, app, external_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (app, external_id) DO NOTHING
		RETURNING created_at
	`, m.ID, app, externalID).Scan(&m.CreatedAt)
	if err == nil {
		return m, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	existing, err := r.FindByExternalID(ctx, app, externalID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// FindByExternalID returns the app's manager, or (nil, nil) when none
// exists.
func (r *PostgresManagerRepository) FindByExternalID(ctx context.Context, app string, externalID int64) (*domain.Manager, error) {
	row := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx,
		selectManagerColumns+`WHERE app = $1 AND external_id = $2`, app, externalID)
	m, err := scanManager(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// FindByID returns the manager, or (nil, nil) when none exists.
func (r *PostgresManagerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Manager, error) {
	row := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx,
		selectManagerColumns+`WHERE id = $1`, id)
	m, err := scanManager(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// ListByIDs returns the managers with the given ids, ordered by
// external id.
func (r *PostgresManagerRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Manager, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx,
		selectManagerColumns+`WHERE id = ANY($1) ORDER BY external_id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Manager
	for rows.Next() {
		m, err := scanManager(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes the manager; their intervals and organization edges
// cascade.
func (r *PostgresManagerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx,
		`DELETE FROM managers WHERE id = $1`, id)
	return err
}

// DeleteAllForApp removes every manager of the app and returns the
// number of rows deleted.
func (r *PostgresManagerRepository) DeleteAllForApp(ctx context.Context, app string) (int64, error) {
	tag, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx,
		`DELETE FROM managers WHERE app = $1`, app)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// OrganizationsForResource returns the manager's organizations the
// resource is a member of, ordered by external id so callers get a
// stable representative.
func (r *PostgresManagerRepository) OrganizationsForResource(ctx context.Context, manager, resource uuid.UUID) ([]*domain.Organization, error) {
	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx, `
		SELECT o.id, o.app, o.external_id, o.created_at
		FROM organizations o
		JOIN organization_managers om ON om.organization_id = o.id AND om.manager_id = $1
		JOIN resource_memberships rm ON rm.organization_id = o.id AND rm.resource_id = $2
		ORDER BY o.external_id
	`, manager, resource)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Organization
	for rows.Next() {
		var o domain.Organization
		if err := rows.Scan(&o.ID, &o.App, &o.ExternalID, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}
