package badger

import (
	"context"
	"testing"

	"github.com/mirarav/convocatorias/core"
	"github.com/mirarav/convocatorias/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertCallAndGetByURL(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	_, err := repos.Calls.GetByURL(ctx, "https://www.ader.es/ayudas/")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	call, err := repos.Calls.InsertCall(ctx, &core.Call{URL: "https://www.ader.es/ayudas/", Organism: "ADER"})
	require.NoError(t, err)
	assert.NotZero(t, call.Id)

	got, err := repos.Calls.GetByURL(ctx, "https://www.ader.es/ayudas/")
	require.NoError(t, err)
	assert.Equal(t, call.Id, got.Id)
	assert.Equal(t, "ADER", got.Organism)
}

func TestInsertCall_Duplicate(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	_, err := repos.Calls.InsertCall(ctx, &core.Call{URL: "https://www.spri.eus/x"})
	require.NoError(t, err)
	_, err = repos.Calls.InsertCall(ctx, &core.Call{URL: "https://www.spri.eus/x"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestInsertCall_Invalid(t *testing.T) {
	repos := newTestRepositories(t)
	_, err := repos.Calls.InsertCall(context.Background(), &core.Call{URL: "spri.eus"})
	assert.ErrorIs(t, err, core.ErrInvalidCall)
}

func TestAssociate(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	call, err := repos.Calls.InsertCall(ctx, &core.Call{URL: "https://www.cdti.es/convocatoria"})
	require.NoError(t, err)

	created, err := repos.Calls.Associate(ctx, call.Id, 30)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repos.Calls.Associate(ctx, call.Id, 30)
	require.NoError(t, err)
	assert.False(t, created)

	_, err = repos.Calls.Associate(ctx, call.Id, 10)
	require.NoError(t, err)

	ids, err := repos.Calls.DocumentsForCall(ctx, call.Id)
	require.NoError(t, err)
	assert.Equal(t, []core.ID{10, 30}, ids)

	_, err = repos.Calls.Associate(ctx, 9999, 10)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
