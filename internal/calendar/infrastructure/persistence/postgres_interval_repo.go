// Package persistence implements the calendar repositories on
// PostgreSQL. Queries join the ambient transaction when the context
// carries one, so the algebra's row updates commit atomically with the
// rest of a request's mutation.
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

const selectIntervalColumns = `
	SELECT id, resource_id, kind, start, "end", organization_id, manager_id, comment, created_at
	FROM intervals
`

const insertIntervalSQL = `
	INSERT INTO intervals (id, resource_id, kind, start, "end", organization_id, manager_id, comment)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING created_at
`

const updateIntervalSQL = `
	UPDATE intervals
	SET start = $2, "end" = $3, organization_id = $4, manager_id = $5, comment = $6
	WHERE id = $1
`

// PostgresIntervalRepository implements domain.IntervalRepository using
// PostgreSQL. Every range query applies the strict-overlap rule
// (start < range end AND "end" > range start), which is the boundary
// contract of domain.IntervalRepository.
type PostgresIntervalRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresIntervalRepository creates a new PostgreSQL interval repository.
func NewPostgresIntervalRepository(pool *pgxpool.Pool) *PostgresIntervalRepository {
	return &PostgresIntervalRepository{pool: pool}
}

func scanInterval(row pgx.Row) (*domain.Interval, error) {
	var iv domain.Interval
	var kind int16
	err := row.Scan(&iv.ID, &iv.Resource, &kind, &iv.Start, &iv.End,
		&iv.Organization, &iv.Manager, &iv.Comment, &iv.CreatedAt)
	if err != nil {
		return nil, err
	}
	iv.Kind = domain.Kind(kind)
	return &iv, nil
}

func collectIntervals(rows pgx.Rows, err error) (domain.Intervals, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out domain.Intervals
	for rows.Next() {
		iv, err := scanInterval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

// FindByID returns the interval or domain.ErrIntervalNotFound.
func (r *PostgresIntervalRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Interval, error) {
	row := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, selectIntervalColumns+`WHERE id = $1`, id)
	iv, err := scanInterval(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrIntervalNotFound
	}
	return iv, err
}

// Insert stores a new interval row.
func (r *PostgresIntervalRepository) Insert(ctx context.Context, iv *domain.Interval) error {
	return sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, insertIntervalSQL,
		iv.ID, iv.Resource, int16(iv.Kind), iv.Start, iv.End,
		iv.Organization, iv.Manager, iv.Comment,
	).Scan(&iv.CreatedAt)
}

// InsertBatch stores several intervals atomically, joining the ambient
// transaction when one is present.
func (r *PostgresIntervalRepository) InsertBatch(ctx context.Context, ivs []*domain.Interval) error {
	if len(ivs) == 0 {
		return nil
	}

	if info, ok := sharedPersistence.TxInfoFromContext(ctx); ok {
		return insertIntervals(ctx, info.Tx, ivs)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := insertIntervals(ctx, tx, ivs); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertIntervals(ctx context.Context, execer sharedPersistence.DBExecutor, ivs []*domain.Interval) error {
	for _, iv := range ivs {
		err := execer.QueryRow(ctx, insertIntervalSQL,
			iv.ID, iv.Resource, int16(iv.Kind), iv.Start, iv.End,
			iv.Organization, iv.Manager, iv.Comment,
		).Scan(&iv.CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

// Update rewrites the interval's mutable columns.
func (r *PostgresIntervalRepository) Update(ctx context.Context, iv *domain.Interval) error {
	tag, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx, updateIntervalSQL,
		iv.ID, iv.Start, iv.End, iv.Organization, iv.Manager, iv.Comment)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrIntervalNotFound
	}
	return nil
}

// Delete removes the interval row.
func (r *PostgresIntervalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx,
		`DELETE FROM intervals WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrIntervalNotFound
	}
	return nil
}

// ListForResourceBetween returns a resource's intervals matching the
// range, every kind included, ordered by start.
func (r *PostgresIntervalRepository) ListForResourceBetween(ctx context.Context, resource uuid.UUID, from, to time.Time) (domain.Intervals, error) {
	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx, selectIntervalColumns+`
		WHERE resource_id = $1 AND start < $3 AND "end" > $2
		ORDER BY start
	`, resource, from, to)
	return collectIntervals(rows, err)
}

// ListForResourcesBetween is ListForResourceBetween over a resource set.
func (r *PostgresIntervalRepository) ListForResourcesBetween(ctx context.Context, resources []uuid.UUID, from, to time.Time) (domain.Intervals, error) {
	if len(resources) == 0 {
		return nil, nil
	}
	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx, selectIntervalColumns+`
		WHERE resource_id = ANY($1) AND start < $3 AND "end" > $2
		ORDER BY resource_id, start
	`, resources, from, to)
	return collectIntervals(rows, err)
}

// ListCovering returns the pair's intervals strictly covering the
// instant; intervals starting or ending exactly at it do not count.
func (r *PostgresIntervalRepository) ListCovering(ctx context.Context, resource, organization uuid.UUID, at time.Time) (domain.Intervals, error) {
	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx, selectIntervalColumns+`
		WHERE resource_id = $1 AND organization_id = $2 AND start < $3 AND "end" > $3
		ORDER BY start
	`, resource, organization, at)
	return collectIntervals(rows, err)
}

// SimilarBetween returns the identity-matching intervals touching the
// window, excluding iv itself. NULL organization or manager matches
// only NULL.
func (r *PostgresIntervalRepository) SimilarBetween(ctx context.Context, iv *domain.Interval, from, to time.Time) ([]*domain.Interval, error) {
	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx, selectIntervalColumns+`
		WHERE resource_id = $1
		  AND kind = $2
		  AND organization_id IS NOT DISTINCT FROM $3
		  AND manager_id IS NOT DISTINCT FROM $4
		  AND id <> $5
		  AND start < $7 AND "end" > $6
		ORDER BY start
	`, iv.Resource, int16(iv.Kind), iv.Organization, iv.Manager, iv.ID, from, to)
	return collectIntervals(rows, err)
}

// DeleteStartingFrom removes the pair's intervals starting at or after
// the given instant.
func (r *PostgresIntervalRepository) DeleteStartingFrom(ctx context.Context, resource, organization uuid.UUID, from time.Time) error {
	_, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx,
		`DELETE FROM intervals WHERE resource_id = $1 AND organization_id = $2 AND start >= $3`,
		resource, organization, from)
	return err
}
