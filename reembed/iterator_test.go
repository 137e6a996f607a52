package reembed

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mirarav/convocatorias/core"
	"github.com/mirarav/convocatorias/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *badger.Repositories {
	t.Helper()
	repos, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		repos.Close()
		backend.Close()
	})
	return repos
}

// addChunks stores n chunks with a stale two-dimensional vector.
func addChunks(t *testing.T, repos *badger.Repositories, n int) []*core.Chunk {
	t.Helper()
	chunks := make([]*core.Chunk, n)
	for i := range chunks {
		chunks[i] = &core.Chunk{
			DocumentId:   3,
			PageNumber:   1 + i/2,
			Ordinal:      i % 2,
			Text:         fmt.Sprintf("fragmento %d", i),
			SectionTitle: fmt.Sprintf("Page %d - Chunk %d", 1+i/2, 1+i%2),
			Vector:       []float32{1, 0},
		}
		ok, err := repos.Chunks.InsertChunk(context.Background(), chunks[i])
		require.NoError(t, err)
		require.True(t, ok)
	}
	return chunks
}

func TestChunkIterator_Basic(t *testing.T) {
	repos := setupTestDB(t)
	added := addChunks(t, repos, 5)

	it := NewChunkIterator(repos.Chunks, 2)
	var sizes []int
	var ids []core.ID
	err := it.ForEach(context.Background(), func(chunks []*core.Chunk) error {
		sizes = append(sizes, len(chunks))
		for _, c := range chunks {
			ids = append(ids, c.Id)
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []int{2, 2, 1}, sizes)
	for i, c := range added {
		assert.Equal(t, c.Id, ids[i])
	}
}

func TestChunkIterator_ResumeAfter(t *testing.T) {
	repos := setupTestDB(t)
	added := addChunks(t, repos, 5)

	it := NewChunkIterator(repos.Chunks, 2)
	it.ResumeAfter(added[2].Id)

	var ids []core.ID
	err := it.ForEach(context.Background(), func(chunks []*core.Chunk) error {
		for _, c := range chunks {
			ids = append(ids, c.Id)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []core.ID{added[3].Id, added[4].Id}, ids)
}

func TestChunkIterator_Empty(t *testing.T) {
	repos := setupTestDB(t)

	called := false
	err := NewChunkIterator(repos.Chunks, 0).ForEach(context.Background(), func([]*core.Chunk) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestChunkIterator_StopsOnError(t *testing.T) {
	repos := setupTestDB(t)
	addChunks(t, repos, 6)

	calls := 0
	boom := errors.New("boom")
	err := NewChunkIterator(repos.Chunks, 2).ForEach(context.Background(), func([]*core.Chunk) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestChunkIterator_Cancellation(t *testing.T) {
	repos := setupTestDB(t)
	addChunks(t, repos, 6)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := NewChunkIterator(repos.Chunks, 2).ForEach(ctx, func([]*core.Chunk) error {
		calls++
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
