package commands_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marfateam/rcalendar/internal/directory/application/commands"
)

func TestWipeApp_RemovesOnlyTheCallersTenants(t *testing.T) {
	f := newFixture(t)

	for _, id := range []int64{1, 2} {
		_, _, err := f.resources.GetOrCreate(context.Background(), testApp, id)
		require.NoError(t, err)
	}
	_, _, err := f.managers.GetOrCreate(context.Background(), testApp, 30)
	require.NoError(t, err)
	f.organization(10)

	_, _, err = f.resources.GetOrCreate(context.Background(), "other", 1)
	require.NoError(t, err)

	result, err := f.wipeApp().Handle(context.Background(), commands.WipeAppCommand{App: testApp})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Resources)
	assert.Equal(t, int64(1), result.Managers)
	assert.Equal(t, int64(1), result.Organizations)

	gone, err := f.resources.FindByExternalID(context.Background(), testApp, 1)
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := f.resources.FindByExternalID(context.Background(), "other", 1)
	require.NoError(t, err)
	assert.NotNil(t, kept)

	// A second wipe finds nothing.
	result, err = f.wipeApp().Handle(context.Background(), commands.WipeAppCommand{App: testApp})
	require.NoError(t, err)
	assert.Zero(t, result.Resources)
	assert.Zero(t, result.Managers)
	assert.Zero(t, result.Organizations)
}
