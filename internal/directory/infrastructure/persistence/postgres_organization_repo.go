// Package persistence implements the directory repositories on
// PostgreSQL, plus a Redis cache in front of API key resolution.
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

const selectOrganizationColumns = `
	SELECT id, app, external_id, created_at
	FROM organizations
`

// PostgresOrganizationRepository implements domain.OrganizationRepository
// using PostgreSQL.
type PostgresOrganizationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresOrganizationRepository creates a new PostgreSQL organization repository.
func NewPostgresOrganizationRepository(pool *pgxpool.Pool) *PostgresOrganizationRepository {
	return &PostgresOrganizationRepository{pool: pool}
}

func scanOrganization(row pgx.Row) (*domain.Organization, error) {
	var o domain.Organization
	if err := row.Scan(&o.ID, &o.App, &o.ExternalID, &o.CreatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrCreate returns the app's organization with the given external
// id, creating it when missing.
func (r *PostgresOrganizationRepository) GetOrCreate(ctx context.Context, app string, externalID int64) (*domain.Organization, bool, error) {
	execer := sharedPersistence.Executor(ctx, r.pool)

	o := &domain.Organization{ID: uuid.New(), App: app, ExternalID: externalID}
	err := execer.QueryRow(ctx, `
		INSERT INTO organizations (id, app, external_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (app, external_id) DO NOTHING
		RETURNING created_at
	`, o.ID, app, externalID).Scan(&o.CreatedAt)
	if err == nil {
		return o, true, nil
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

// FindByExternalID returns the app's organization, or (nil, nil) when
// none exists.
func (r *PostgresOrganizationRepository) FindByExternalID(ctx context.Context, app string, externalID int64) (*domain.Organization, error) {
	row := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx,
		selectOrganizationColumns+`WHERE app = $1 AND external_id = $2`, app, externalID)
	o, err := scanOrganization(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

// FindByID returns the organization, or (nil, nil) when none exists.
func (r *PostgresOrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	row := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx,
		selectOrganizationColumns+`WHERE id = $1`, id)
	o, err := scanOrganization(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

// ListByIDs returns the organizations with the given ids, in no
// particular order.
func (r *PostgresOrganizationRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Organization, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx,
		selectOrganizationColumns+`WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Delete removes the organization; intervals, memberships and manager
// edges cascade.
func (r *PostgresOrganizationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx,
		`DELETE FROM organizations WHERE id = $1`, id)
	return err
}

// DeleteAllForApp removes every organization of the app and returns the
// number of rows deleted.
func (r *PostgresOrganizationRepository) DeleteAllForApp(ctx context.Context, app string) (int64, error) {
	tag, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx,
		`DELETE FROM organizations WHERE app = $1`, app)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ManagerExternalIDs lists the external ids of the organization's
// managers in ascending order.
func (r *PostgresOrganizationRepository) ManagerExternalIDs(ctx context.Context, id uuid.UUID) ([]int64, error) {
	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx, `
		SELECT m.external_id
		FROM organization_managers om
		JOIN managers m ON m.id = om.manager_id
		WHERE om.organization_id = $1
		ORDER BY m.external_id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var externalID int64
		if err := rows.Scan(&externalID); err != nil {
			return nil, err
		}
		out = append(out, externalID)
	}
	return out, rows.Err()
}

// AddManager records the manager as a member of the organization.
func (r *PostgresOrganizationRepository) AddManager(ctx context.Context, id, manager uuid.UUID) error {
	_, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx, `
		INSERT INTO organization_managers (organization_id, manager_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, id, manager)
	return err
}

// RemoveManager drops the manager's membership edge.
func (r *PostgresOrganizationRepository) RemoveManager(ctx context.Context, id, manager uuid.UUID) error {
	_, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx,
		`DELETE FROM organization_managers WHERE organization_id = $1 AND manager_id = $2`,
		id, manager)
	return err
}

// HasManager reports whether the manager belongs to the organization.
func (r *PostgresOrganizationRepository) HasManager(ctx context.Context, id, manager uuid.UUID) (bool, error) {
	var ok bool
	err := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM organization_managers
			WHERE organization_id = $1 AND manager_id = $2
		)
	`, id, manager).Scan(&ok)
	return ok, err
}
