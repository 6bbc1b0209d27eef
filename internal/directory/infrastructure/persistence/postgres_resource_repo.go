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

const selectResourceColumns = `
	SELECT id, app, external_id, created_at
	FROM resources
`

// PostgresResourceRepository implements domain.ResourceRepository using
// PostgreSQL.
type PostgresResourceRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresResourceRepository creates a new PostgreSQL resource repository.
func NewPostgresResourceRepository(pool *pgxpool.Pool) *PostgresResourceRepository {
	return &PostgresResourceRepository{pool: pool}
}

func scanResource(row pgx.Row) (*domain.Resource, error) {
	var res domain.Resource
	if err := row.Scan(&res.ID, &res.App, &res.ExternalID, &res.CreatedAt); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetOrCreate returns the app's resource with the given external id,
// creating it when missing.
func (r *PostgresResourceRepository) GetOrCreate(ctx context.Context, app string, externalID int64) (*domain.Resource, bool, error) {
	execer := sharedPersistence.Executor(ctx, r.pool)

	res := &domain.Resource{ID: uuid.New(), App: app, ExternalID: externalID}
	err := execer.QueryRow(ctx, `
		INSERT INTO resources (id, app, external_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (app, external_id) DO NOTHING
		RETURNING created_at
	`, res.ID, app, externalID).Scan(&res.CreatedAt)
	if err == nil {
		return res, true, nil
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

// FindByExternalID returns the app's resource, or (nil, nil) when none
// exists.
func (r *PostgresResourceRepository) FindByExternalID(ctx context.Context, app string, externalID int64) (*domain.Resource, error) {
	row := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx,
		selectResourceColumns+`WHERE app = $1 AND external_id = $2`, app, externalID)
	res, err := scanResource(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return res, err
}

// FindByID returns the resource, or (nil, nil) when none exists.
func (r *PostgresResourceRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Resource, error) {
	row := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx,
		selectResourceColumns+`WHERE id = $1`, id)
	res, err := scanResource(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return res, err
}

// Delete removes the resource; its intervals and memberships cascade.
func (r *PostgresResourceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx,
		`DELETE FROM resources WHERE id = $1`, id)
	return err
}

// DeleteAllForApp removes every resource of the app and returns the
// number of rows deleted.
func (r *PostgresResourceRepository) DeleteAllForApp(ctx context.Context, app string) (int64, error) {
	tag, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx,
		`DELETE FROM resources WHERE app = $1`, app)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Lock takes a row lock on the resource until the ambient transaction
// ends, serializing interval mutations per resource.
func (r *PostgresResourceRepository) Lock(ctx context.Context, id uuid.UUID) error {
	var locked uuid.UUID
	err := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx,
		`SELECT id FROM resources WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrResourceNotFound
	}
	return err
}
