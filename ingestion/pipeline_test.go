package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mirarav/convocatorias/ai/mock"
	"github.com/mirarav/convocatorias/chunking"
	"github.com/mirarav/convocatorias/core"
	"github.com/mirarav/convocatorias/extract"
	"github.com/mirarav/convocatorias/extract/extracttest"
	"github.com/mirarav/convocatorias/fetch"
	"github.com/mirarav/convocatorias/storage"
	"github.com/mirarav/convocatorias/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDiscoverer struct {
	mu    sync.Mutex
	links map[string][]string
	calls int
}

func (f *fakeDiscoverer) Discover(ctx context.Context, pageURL string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.links[pageURL], nil
}

type countingExtractor struct {
	inner PageExtractor
	calls atomic.Int32
}

func (c *countingExtractor) Extract(data []byte) []core.ExtractedPage {
	c.calls.Add(1)
	return c.inner.Extract(data)
}

type captureRecorder struct {
	mu        sync.Mutex
	documents []core.DocumentOutcome
	crawls    []core.CrawlOutcome
}

func (c *captureRecorder) RecordDocument(_ context.Context, _ core.ID, o core.DocumentOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.documents = append(c.documents, o)
}

func (c *captureRecorder) RecordCrawl(_ context.Context, _ string, o core.CrawlOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.crawls = append(c.crawls, o)
}

func callPDF() []byte {
	return extracttest.Build(
		extracttest.Page{Content: extracttest.Text(72, 720, "Bases reguladoras de la convocatoria")},
		extracttest.Page{Content: extracttest.Text(72, 720, "Presupuesto") +
			extracttest.Grid(72, 600, 150, 20, [][]string{
				{"Concepto", "Importe"},
				{"Personal", "12000"},
			})},
	)
}

// site serves a small government site: two byte-identical PDFs, an HTML
// page and a document whose body is not a PDF.
type site struct {
	*httptest.Server
	hits atomic.Int32
}

func newSite(t *testing.T) *site {
	t.Helper()
	s := &site{}
	pdf := callPDF()
	serve := func(contentType string, body []byte) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			s.hits.Add(1)
			w.Header().Set("Content-Type", contentType)
			http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(body))
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/docs/bases.pdf", serve("application/pdf", pdf))
	mux.Handle("/docs/copia.pdf", serve("application/pdf", pdf))
	mux.Handle("/docs/resolucion.pdf", serve("text/html; charset=utf-8", []byte("<html>no encontrado</html>")))
	mux.Handle("/convocatoria.html", serve("text/html; charset=utf-8", []byte("<html></html>")))
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

type fixture struct {
	repos      *badger.Repositories
	pipeline   *Pipeline
	discoverer *fakeDiscoverer
	extractor  *countingExtractor
	embedder   *mock.MockEmbedder
	recorder   *captureRecorder
	site       *site
}

func setupPipeline(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	repos, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		repos.Close()
		backend.Close()
	})

	cfg := fetch.DefaultConfig()
	cfg.RequestsPerSecond = 0
	cfg.MaxRetries = 0
	client := fetch.NewHTTPClient(cfg)
	verifier, err := fetch.NewVerifier(client)
	require.NoError(t, err)
	downloader, err := fetch.NewDownloader(client)
	require.NoError(t, err)
	ext, err := extract.New()
	require.NoError(t, err)

	f := &fixture{
		repos:      repos,
		discoverer: &fakeDiscoverer{links: map[string][]string{}},
		extractor:  &countingExtractor{inner: ext},
		embedder:   mock.NewMockEmbedder(),
		recorder:   &captureRecorder{},
		site:       newSite(t),
	}

	all := append([]Option{
		WithDiscoverer(f.discoverer),
		WithVerifier(verifier),
		WithDownloader(downloader),
		WithExtractor(f.extractor),
		WithRecorder(f.recorder),
	}, opts...)

	f.pipeline, err = NewPipeline(repos.Documents, repos.Chunks, repos.Calls, f.embedder, all...)
	require.NoError(t, err)
	return f
}

func (f *fixture) url(path string) string {
	return f.site.URL + path
}

func (f *fixture) insertDocument(t *testing.T, path string) core.ID {
	t.Helper()
	id, err := f.repos.Documents.InsertDocument(context.Background(), &core.Fingerprint{
		MimeType:    "application/pdf",
		ContentHash: fmt.Sprintf("%064x", len(path)),
		SourceURL:   f.url(path),
	})
	require.NoError(t, err)
	return id
}

func TestIngestPage_StoresDeduplicatedDocuments(t *testing.T) {
	f := setupPipeline(t)
	ctx := context.Background()

	page := "https://www.cdti.es/ayudas/neotec-2025"
	f.discoverer.links[page] = []string{
		f.url("/docs/bases.pdf"),
		f.url("/convocatoria.html"),
		f.url("/docs/copia.pdf"),
	}

	outcome, err := f.pipeline.IngestPage(ctx, page)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, 2, outcome.DocumentCount)
	assert.Equal(t, 4, outcome.PageCount)

	call, err := f.repos.Calls.GetByURL(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, "CDTI", call.Organism)

	docs, err := f.repos.Calls.DocumentsForCall(ctx, call.Id)
	require.NoError(t, err)
	require.Len(t, docs, 1, "identical PDFs share one document")

	chunks, err := f.repos.Chunks.ChunksForDocument(ctx, docs[0])
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, 1, chunks[0].PageNumber)
	assert.Equal(t, "Page 1 - Chunk 1", chunks[0].SectionTitle)
	assert.Contains(t, chunks[0].Text, "Bases reguladoras de la convocatoria")
	assert.False(t, chunks[0].IsTable)

	assert.Equal(t, "Page 2 - Chunk 1", chunks[1].SectionTitle)
	assert.Contains(t, chunks[1].Text, "Presupuesto")

	assert.True(t, chunks[2].IsTable)
	assert.Equal(t, "TABLE 1 (PAGE 2)", chunks[2].SectionTitle)
	assert.Equal(t, "--- TABLE 1 PAGE 2 ---\nConcepto | Importe\nPersonal | 12000", chunks[2].Text)

	for _, c := range chunks {
		assert.Equal(t, mock.Vector(c.Text, f.embedder.Dimensions), c.Vector)
	}

	assert.Equal(t, int32(1), f.extractor.calls.Load(), "the copy short-circuits")
	require.Len(t, f.recorder.documents, 1)
	assert.True(t, f.recorder.documents[0].HasTables)
	assert.Equal(t, 3, f.recorder.documents[0].ChunkCount)
	require.Len(t, f.recorder.crawls, 1)
	assert.Equal(t, outcome, f.recorder.crawls[0])
}

func TestIngestPage_SkipsProcessedPage(t *testing.T) {
	f := setupPipeline(t)
	ctx := context.Background()

	page := "https://www.ivace.es/convocatoria"
	f.discoverer.links[page] = []string{f.url("/docs/bases.pdf")}

	first, err := f.pipeline.IngestPage(ctx, page)
	require.NoError(t, err)
	assert.True(t, first.Success)

	second, err := f.pipeline.IngestPage(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, core.CrawlOutcome{}, second)
	assert.Equal(t, 1, f.discoverer.calls)
	assert.True(t, f.pipeline.Processed().Contains(page))
}

func TestIngestPage_SharedURLSet(t *testing.T) {
	set := NewURLSet()
	set.Add("https://www.spri.eus/ayuda")
	f := setupPipeline(t, WithURLSet(set))

	outcome, err := f.pipeline.IngestPage(context.Background(), "https://www.spri.eus/ayuda")
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.Zero(t, f.discoverer.calls)
}

func TestIngestPage_ReusesExistingCall(t *testing.T) {
	f := setupPipeline(t)
	ctx := context.Background()

	page := "https://www.aragon.es/ayudas/industria"
	existing, err := f.repos.Calls.InsertCall(ctx, &core.Call{URL: page, Organism: "Gobierno de Aragón"})
	require.NoError(t, err)
	f.discoverer.links[page] = []string{f.url("/docs/bases.pdf")}

	_, err = f.pipeline.IngestPage(ctx, page)
	require.NoError(t, err)

	docs, err := f.repos.Calls.DocumentsForCall(ctx, existing.Id)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestIngestPage_NoValidPDFs(t *testing.T) {
	f := setupPipeline(t)
	page := "https://www.boe.es/convocatoria"
	f.discoverer.links[page] = []string{f.url("/convocatoria.html")}

	outcome, err := f.pipeline.IngestPage(context.Background(), page)
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	require.Len(t, f.recorder.crawls, 1)
	assert.False(t, f.recorder.crawls[0].Success)

	call, err := f.repos.Calls.GetByURL(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, "OTRO", call.Organism)
}

func TestIngestPage_InvalidURL(t *testing.T) {
	f := setupPipeline(t)

	_, err := f.pipeline.IngestPage(context.Background(), "javascript:void(0)")
	assert.ErrorIs(t, err, core.ErrInvalidURL)
	assert.Zero(t, f.pipeline.Processed().Len())
}

func TestIngestPage_Cancelled(t *testing.T) {
	f := setupPipeline(t)
	page := "https://www.cdti.es/cancelada"
	f.discoverer.links[page] = []string{f.url("/docs/bases.pdf")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.pipeline.IngestPage(ctx, page)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.extractor.calls.Load())
}

func TestIngestDocument_Idempotent(t *testing.T) {
	f := setupPipeline(t)
	ctx := context.Background()
	docID := f.insertDocument(t, "/docs/bases.pdf")

	first, err := f.pipeline.IngestDocument(ctx, docID, f.url("/docs/bases.pdf"))
	require.NoError(t, err)
	assert.True(t, first.Success())
	hits := f.site.hits.Load()

	second, err := f.pipeline.IngestDocument(ctx, docID, f.url("/docs/bases.pdf"))
	require.NoError(t, err)
	assert.True(t, second.Success())
	assert.Equal(t, first.ChunkCount, second.ChunkCount)
	assert.Equal(t, hits, f.site.hits.Load(), "no network work on the second run")

	count, err := f.repos.Chunks.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestIngestPDF(t *testing.T) {
	f := setupPipeline(t)
	ctx := context.Background()

	docID, outcome, err := f.pipeline.IngestPDF(ctx, f.url("/docs/bases.pdf"))
	require.NoError(t, err)
	assert.NotZero(t, docID)
	assert.True(t, outcome.Success())
	assert.Equal(t, 3, outcome.ChunkCount)

	copyID, outcome, err := f.pipeline.IngestPDF(ctx, f.url("/docs/copia.pdf"))
	require.NoError(t, err)
	assert.Equal(t, docID, copyID, "same content, same document")
	assert.Equal(t, 3, outcome.ChunkCount)
	assert.Equal(t, int32(1), f.extractor.calls.Load())
}

func TestIngestPDF_Rejections(t *testing.T) {
	f := setupPipeline(t)
	ctx := context.Background()

	_, _, err := f.pipeline.IngestPDF(ctx, f.url("/convocatoria.html"))
	assert.ErrorIs(t, err, ErrNotPDF)

	_, _, err = f.pipeline.IngestPDF(ctx, "bases.pdf")
	assert.ErrorIs(t, err, core.ErrInvalidURL)

	count, err := f.repos.Chunks.CountChunks(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, f.extractor.calls.Load())
}

func TestIngestDocument_RejectsNonPDF(t *testing.T) {
	f := setupPipeline(t)
	ctx := context.Background()
	docID := f.insertDocument(t, "/docs/resolucion.pdf")

	outcome, err := f.pipeline.IngestDocument(ctx, docID, f.url("/docs/resolucion.pdf"))
	require.NoError(t, err)
	assert.False(t, outcome.Success())
	assert.False(t, outcome.HasText)
	assert.Zero(t, f.extractor.calls.Load())

	has, err := f.repos.Documents.HasChunks(ctx, docID)
	require.NoError(t, err)
	assert.False(t, has)
	require.Len(t, f.recorder.documents, 1)
	assert.False(t, f.recorder.documents[0].Success())
}

func TestIngestDocument_EmbeddingFailure(t *testing.T) {
	f := setupPipeline(t)
	f.embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("embedding server unavailable")
	}
	docID := f.insertDocument(t, "/docs/bases.pdf")

	outcome, err := f.pipeline.IngestDocument(context.Background(), docID, f.url("/docs/bases.pdf"))
	require.NoError(t, err)
	assert.False(t, outcome.Success())
	assert.True(t, outcome.HasText)
	assert.True(t, outcome.HasTables)
	assert.Zero(t, outcome.ChunkCount)
}

func TestIngestDocument_SkipsPageWithoutEmbeddings(t *testing.T) {
	f := setupPipeline(t)
	f.embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		for _, text := range texts {
			if strings.Contains(text, "Presupuesto") {
				return nil, errors.New("batch rejected")
			}
		}
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = mock.Vector(text, 8)
		}
		return vectors, nil
	}
	ctx := context.Background()
	docID := f.insertDocument(t, "/docs/bases.pdf")

	outcome, err := f.pipeline.IngestDocument(ctx, docID, f.url("/docs/bases.pdf"))
	require.NoError(t, err)
	assert.True(t, outcome.Success())
	assert.Equal(t, 1, outcome.ChunkCount)

	chunks, err := f.repos.Chunks.ChunksForDocument(ctx, docID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].PageNumber)
}

func TestIngestDocument_CancelledMidDocumentStoresNothing(t *testing.T) {
	f := setupPipeline(t)
	docID := f.insertDocument(t, "/docs/bases.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	f.embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		for _, text := range texts {
			if strings.Contains(text, "Presupuesto") {
				cancel()
				return nil, context.Canceled
			}
		}
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = mock.Vector(text, f.embedder.Dimensions)
		}
		return vectors, nil
	}

	_, err := f.pipeline.IngestDocument(ctx, docID, f.url("/docs/bases.pdf"))
	assert.ErrorIs(t, err, context.Canceled)

	has, err := f.repos.Documents.HasChunks(context.Background(), docID)
	require.NoError(t, err)
	assert.False(t, has, "page 1 must not be stored on its own")

	f.embedder.EmbedTextsFunc = nil
	outcome, err := f.pipeline.IngestDocument(context.Background(), docID, f.url("/docs/bases.pdf"))
	require.NoError(t, err)
	assert.Equal(t, 3, outcome.ChunkCount)
	assert.Equal(t, int32(2), f.extractor.calls.Load())

	chunks, err := f.repos.Chunks.ChunksForDocument(context.Background(), docID)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, 2, chunks[2].PageNumber)
}

type unreadableDocuments struct {
	storage.DocumentRepository
}

func (unreadableDocuments) GetDocument(context.Context, core.ID) (*core.Document, error) {
	return nil, storage.ErrNotFound
}

func TestIngestPage_FallsBackToFingerprintPageCount(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f := setupPipeline(t, WithLogger(logger))
	f.pipeline.documents = unreadableDocuments{f.repos.Documents}

	page := "https://www.cdti.es/ayudas/fallback"
	f.discoverer.links[page] = []string{f.url("/docs/bases.pdf")}

	outcome, err := f.pipeline.IngestPage(context.Background(), page)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, 2, outcome.PageCount)
	assert.Contains(t, logs.String(), "using fingerprint page count")
}

func TestEmbeddingGenerator(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	g, err := NewEmbeddingGenerator(embedder, 2, nil)
	require.NoError(t, err)
	ctx := context.Background()

	assert.Empty(t, g.Embed(ctx, nil))
	assert.Zero(t, embedder.CallCount())

	texts := []string{"a", "b", "c", "d", "e"}
	vectors := g.Embed(ctx, texts)
	require.Len(t, vectors, 5)
	assert.Equal(t, 3, embedder.CallCount())
	assert.Equal(t, texts, embedder.Texts())
	assert.Equal(t, mock.Vector("e", embedder.Dimensions), vectors[4])

	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}
	assert.Empty(t, g.Embed(ctx, texts), "short batches count as failures")

	_, err = NewEmbeddingGenerator(nil, 0, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestSectionTitle(t *testing.T) {
	assert.Equal(t, "Page 3 - Chunk 2", SectionTitle(chunking.Segment{Text: "x"}, 3, 2))
	assert.Equal(t, "TABLE 4 (PAGE 3)", SectionTitle(chunking.Segment{Text: "x", IsTable: true, TableNumber: 4}, 3, 2))
}

func TestURLSet_Concurrent(t *testing.T) {
	set := NewURLSet()
	var added atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if set.Add(fmt.Sprintf("https://example.org/%d", i%10)) {
				added.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(10), added.Load())
	assert.Equal(t, 10, set.Len())
}

func TestQueue(t *testing.T) {
	f := setupPipeline(t)
	pages := []string{
		"https://www.cdti.es/a",
		"https://www.ivace.es/b",
		"https://www.cdti.es/a",
	}
	f.discoverer.links[pages[0]] = []string{f.url("/docs/bases.pdf")}
	f.discoverer.links[pages[1]] = []string{f.url("/convocatoria.html")}

	q, err := NewQueue(f.pipeline, nil)
	require.NoError(t, err)
	defer q.Release()

	for _, page := range pages {
		require.NoError(t, q.Submit(context.Background(), page))
	}
	results := q.Wait()
	require.Len(t, results, 3)

	for i, r := range results {
		assert.Equal(t, pages[i], r.URL)
		assert.NoError(t, r.Err)
	}
	assert.True(t, results[0].Outcome.Success)
	assert.False(t, results[1].Outcome.Success)
	assert.False(t, results[2].Outcome.Success, "duplicate page is skipped")

	_, err = NewQueue(nil, nil)
	assert.ErrorIs(t, err, ErrPipelineRequired)
}

func TestNewPipeline_Validation(t *testing.T) {
	repos, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()
	defer repos.Close()
	embedder := mock.NewMockEmbedder()

	_, err = NewPipeline(nil, repos.Chunks, repos.Calls, embedder)
	assert.ErrorIs(t, err, ErrDocumentRepositoryRequired)
	_, err = NewPipeline(repos.Documents, nil, repos.Calls, embedder)
	assert.ErrorIs(t, err, ErrChunkRepositoryRequired)
	_, err = NewPipeline(repos.Documents, repos.Chunks, nil, embedder)
	assert.ErrorIs(t, err, ErrCallRepositoryRequired)
	_, err = NewPipeline(repos.Documents, repos.Chunks, repos.Calls, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
	_, err = NewPipeline(repos.Documents, repos.Chunks, repos.Calls, embedder, WithEmbeddingBatchSize(0))
	assert.Error(t, err)

	p, err := NewPipeline(repos.Documents, repos.Chunks, repos.Calls, embedder)
	require.NoError(t, err)
	assert.NotNil(t, p.discoverer)
	assert.NotNil(t, p.verifier)
	assert.NotNil(t, p.downloader)
	assert.NotNil(t, p.extractor)
	assert.NotNil(t, p.splitter)
}
