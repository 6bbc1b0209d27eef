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

// PostgresAPIKeyRepository implements domain.APIKeyRepository using
// PostgreSQL.
type PostgresAPIKeyRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAPIKeyRepository creates a new PostgreSQL API key repository.
func NewPostgresAPIKeyRepository(pool *pgxpool.Pool) *PostgresAPIKeyRepository {
	return &PostgresAPIKeyRepository{pool: pool}
}

// Create stores a new key.
func (r *PostgresAPIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	return sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO api_keys (key, app, is_active)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, key.Key, key.App, key.Active).Scan(&key.CreatedAt)
}

// FindApp resolves an active key to its app label; ("", nil) when the
// key is unknown or revoked.
func (r *PostgresAPIKeyRepository) FindApp(ctx context.Context, key uuid.UUID) (string, error) {
	var app string
	err := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx,
		`SELECT app FROM api_keys WHERE key = $1 AND is_active`, key).Scan(&app)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return app, err
}

// List returns every key, oldest first.
func (r *PostgresAPIKeyRepository) List(ctx context.Context) ([]*domain.APIKey, error) {
	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx,
		`SELECT key, app, is_active, created_at FROM api_keys ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.APIKey
	for rows.Next() {
		var k domain.APIKey
		if err := rows.Scan(&k.Key, &k.App, &k.Active, &k.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &k)
	}
	return out, rows.Err()
}

// Deactivate revokes the key. Revoked keys stay listed for audit.
func (r *PostgresAPIKeyRepository) Deactivate(ctx context.Context, key uuid.UUID) error {
	_, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx,
		`UPDATE api_keys SET is_active = false WHERE key = $1`, key)
	return err
}
