package badger

import (
	"context"
	"strings"
	"testing"

	"github.com/mirarav/convocatorias/core"
	"github.com/mirarav/convocatorias/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFingerprint(hashByte, url string) *core.Fingerprint {
	return &core.Fingerprint{
		MimeType:    "application/pdf",
		ByteSize:    2048,
		PageCount:   3,
		ContentHash: strings.Repeat(hashByte, 32),
		SourceURL:   url,
	}
}

func TestInsertDocument(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	fp := testFingerprint("aa", "https://www.ivace.es/bases.pdf")
	id, err := repos.Documents.InsertDocument(ctx, fp)
	require.NoError(t, err)
	assert.Equal(t, core.IDFromContent(fp.ContentHash), id)

	doc, err := repos.Documents.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, fp.SourceURL, doc.SourceURL)
	assert.Equal(t, 3, doc.PageCount)
	assert.False(t, doc.InsertedAt.IsZero())
}

func TestInsertDocument_SameHashDifferentURL(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	first, err := repos.Documents.InsertDocument(ctx, testFingerprint("bb", "https://a.example/one.pdf"))
	require.NoError(t, err)
	second, err := repos.Documents.InsertDocument(ctx, testFingerprint("bb", "https://b.example/two.pdf"))
	require.NoError(t, err)

	assert.Equal(t, first, second)

	// the first URL wins
	doc, err := repos.Documents.GetDocument(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "https://a.example/one.pdf", doc.SourceURL)
}

func TestInsertDocument_Invalid(t *testing.T) {
	repos := newTestRepositories(t)

	_, err := repos.Documents.InsertDocument(context.Background(), &core.Fingerprint{ContentHash: "short"})
	assert.ErrorIs(t, err, core.ErrInvalidFingerprint)
}

func TestDocumentByHash(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	_, err := repos.Documents.DocumentByHash(ctx, strings.Repeat("cc", 32))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	fp := testFingerprint("cc", "https://www.cdti.es/a.pdf")
	id, err := repos.Documents.InsertDocument(ctx, fp)
	require.NoError(t, err)

	doc, err := repos.Documents.DocumentByHash(ctx, fp.ContentHash)
	require.NoError(t, err)
	assert.Equal(t, id, doc.Id)
}

func TestGetDocument_NotFound(t *testing.T) {
	repos := newTestRepositories(t)

	_, err := repos.Documents.GetDocument(context.Background(), 12345)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestHasChunks(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	id, err := repos.Documents.InsertDocument(ctx, testFingerprint("dd", "https://www.spri.eus/a.pdf"))
	require.NoError(t, err)
	other, err := repos.Documents.InsertDocument(ctx, testFingerprint("ee", "https://www.spri.eus/b.pdf"))
	require.NoError(t, err)

	has, err := repos.Documents.HasChunks(ctx, id)
	require.NoError(t, err)
	assert.False(t, has)

	ok, err := repos.Chunks.InsertChunk(ctx, &core.Chunk{DocumentId: id, PageNumber: 1, Text: "Artículo 1"})
	require.NoError(t, err)
	require.True(t, ok)

	has, err = repos.Documents.HasChunks(ctx, id)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = repos.Documents.HasChunks(ctx, other)
	require.NoError(t, err)
	assert.False(t, has)
}
