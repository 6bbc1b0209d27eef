// Package application holds the transaction boundary used by all command
// handlers.
package application

import "context"

// UnitOfWork groups several repository operations into one atomic commit.
type UnitOfWork interface {
	Begin(ctx context.Context) (context.Context, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UnitOfWorkFunc is a function that executes within a unit of work.
type UnitOfWorkFunc func(ctx context.Context) error

// WithUnitOfWork executes fn inside a unit of work: fn errors roll the work
// back and are returned unchanged, otherwise the unit commits.
func WithUnitOfWork(ctx context.Context, uow UnitOfWork, fn UnitOfWorkFunc) error {
	txCtx, err := uow.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(txCtx); err != nil {
		_ = uow.Rollback(txCtx)
		return err
	}

	return uow.Commit(txCtx)
}

// NoopUnitOfWork is a pass-through unit of work for tests and
// non-transactional stores.
type NoopUnitOfWork struct{}

// NewNoopUnitOfWork creates a unit of work that does nothing.
func NewNoopUnitOfWork() *NoopUnitOfWork {
	return &NoopUnitOfWork{}
}

func (u *NoopUnitOfWork) Begin(ctx context.Context) (context.Context, error) { return ctx, nil }

func (u *NoopUnitOfWork) Commit(ctx context.Context) error { return nil }

func (u *NoopUnitOfWork) Rollback(ctx context.Context) error { return nil }
