package persistence

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTx implements pgx.Tx for testing purposes.
type mockTx struct {
	commitCalled   bool
	rollbackCalled bool
}

func (m *mockTx) Begin(_ context.Context) (pgx.Tx, error) { return m, nil }
func (m *mockTx) Commit(_ context.Context) error          { m.commitCalled = true; return nil }
func (m *mockTx) Rollback(_ context.Context) error        { m.rollbackCalled = true; return nil }
func (m *mockTx) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *mockTx) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults { return nil }
func (m *mockTx) LargeObjects() pgx.LargeObjects                             { return pgx.LargeObjects{} }
func (m *mockTx) Prepare(_ context.Context, _ string, _ string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *mockTx) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (m *mockTx) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return nil, nil }
func (m *mockTx) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row        { return nil }
func (m *mockTx) Conn() *pgx.Conn                                               { return nil }

func TestWithTx(t *testing.T) {
	t.Run("round-trips ownership through the context", func(t *testing.T) {
		tx := &mockTx{}

		for _, owned := range []bool{true, false} {
			ctx := WithTx(context.Background(), tx, owned)

			info, ok := TxInfoFromContext(ctx)
			require.True(t, ok)
			assert.Same(t, tx, info.Tx)
			assert.Equal(t, owned, info.Owned)
		}
	})

	t.Run("inner WithTx shadows the outer transaction", func(t *testing.T) {
		outer := &mockTx{}
		inner := &mockTx{}

		ctx := WithTx(context.Background(), outer, true)
		ctx = WithTx(ctx, inner, false)

		info, ok := TxInfoFromContext(ctx)
		require.True(t, ok)
		assert.Same(t, inner, info.Tx)
		assert.False(t, info.Owned)
	})
}

func TestTxInfoFromContext(t *testing.T) {
	t.Run("empty context carries no transaction", func(t *testing.T) {
		info, ok := TxInfoFromContext(context.Background())

		assert.False(t, ok)
		assert.Zero(t, info)
	})

	t.Run("nil transaction is treated as absent", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), txKey{}, TxInfo{Tx: nil, Owned: true})

		_, ok := TxInfoFromContext(ctx)

		assert.False(t, ok)
	})
}

func TestExecutor(t *testing.T) {
	t.Run("prefers the context transaction", func(t *testing.T) {
		tx := &mockTx{}
		ctx := WithTx(context.Background(), tx, true)

		assert.Same(t, tx, Executor(ctx, nil))
	})

	t.Run("falls back to the pool", func(t *testing.T) {
		// A real pool needs a database; nil is enough to prove the branch.
		assert.Nil(t, Executor(context.Background(), nil))
	})
}
