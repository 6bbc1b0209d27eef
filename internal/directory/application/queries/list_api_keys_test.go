package queries_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marfateam/rcalendar/internal/directory/application/queries"
	"github.com/marfateam/rcalendar/internal/directory/domain"
	dirpersistence "github.com/marfateam/rcalendar/internal/directory/infrastructure/persistence"
)

func TestListAPIKeys_OldestFirst(t *testing.T) {
	keys := dirpersistence.NewInMemoryAPIKeyRepository()
	first := domain.NewAPIKey("crm")
	second := domain.NewAPIKey("warehouse")
	require.NoError(t, keys.Create(context.Background(), first))
	require.NoError(t, keys.Create(context.Background(), second))
	require.NoError(t, keys.Deactivate(context.Background(), second.Key))

	out, err := queries.NewListAPIKeysHandler(keys).Handle(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, first.Key, out[0].Key)
	assert.True(t, out[0].Active)
	assert.Equal(t, second.Key, out[1].Key)
	// Revoked keys stay listed so operators can see their history.
	assert.False(t, out[1].Active)
}
