package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/mirarav/convocatorias/ai"
	"github.com/mirarav/convocatorias/chunking"
	"github.com/mirarav/convocatorias/core"
	"github.com/mirarav/convocatorias/crawl"
	"github.com/mirarav/convocatorias/extract"
	"github.com/mirarav/convocatorias/fetch"
	"github.com/mirarav/convocatorias/metrics"
	"github.com/mirarav/convocatorias/storage"
)

// State is the stage a document run has reached.
type State int

const (
	StateNotStarted State = iota
	StateDownloading
	StateExtracting
	StateSplitting
	StateEmbedding
	StateStoring
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateNotStarted:  "not_started",
	StateDownloading: "downloading",
	StateExtracting:  "extracting",
	StateSplitting:   "splitting",
	StateEmbedding:   "embedding",
	StateStoring:     "storing",
	StateDone:        "done",
	StateFailed:      "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Pipeline ingests call pages and the PDFs they link to.
type Pipeline struct {
	documents storage.DocumentRepository
	chunks    storage.ChunkRepository
	calls     storage.CallRepository

	discoverer LinkDiscoverer
	verifier   PDFVerifier
	downloader PDFDownloader
	extractor  PageExtractor
	splitter   SegmentSplitter
	embeddings *EmbeddingGenerator
	recorder   metrics.Recorder
	processed  *URLSet

	httpConfig   fetch.Config
	chromeConfig crawl.ChromeConfig
	batchSize    int
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithDiscoverer sets the link discoverer.
// Default is a crawl.Discoverer over a headless Chrome renderer.
func WithDiscoverer(d LinkDiscoverer) Option {
	return func(p *Pipeline) error {
		p.discoverer = d
		return nil
	}
}

// WithVerifier sets the PDF verifier.
// Default is a fetch.Verifier over the hardened HTTP client.
func WithVerifier(v PDFVerifier) Option {
	return func(p *Pipeline) error {
		p.verifier = v
		return nil
	}
}

// WithDownloader sets the PDF downloader.
// Default is a fetch.Downloader over the hardened HTTP client.
func WithDownloader(d PDFDownloader) Option {
	return func(p *Pipeline) error {
		p.downloader = d
		return nil
	}
}

// WithExtractor sets the page extractor.
// Default is extract.New() with default tolerances.
func WithExtractor(e PageExtractor) Option {
	return func(p *Pipeline) error {
		p.extractor = e
		return nil
	}
}

// WithSplitter sets the chunk splitter.
// Default is chunking.New() with size 1000 and overlap 200.
func WithSplitter(s SegmentSplitter) Option {
	return func(p *Pipeline) error {
		p.splitter = s
		return nil
	}
}

// WithRecorder sets the metrics recorder.
// Default is metrics.Nop.
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Pipeline) error {
		if r == nil {
			r = metrics.Nop{}
		}
		p.recorder = r
		return nil
	}
}

// WithURLSet sets the set of already processed call pages, so several
// pipelines can share one.
// Default is a fresh set per pipeline.
func WithURLSet(s *URLSet) Option {
	return func(p *Pipeline) error {
		if s == nil {
			return errors.New("url set cannot be nil")
		}
		p.processed = s
		return nil
	}
}

// WithHTTPConfig sets the HTTP session used by the default verifier and downloader.
// Default is fetch.DefaultConfig().
func WithHTTPConfig(cfg fetch.Config) Option {
	return func(p *Pipeline) error {
		p.httpConfig = cfg
		return nil
	}
}

// WithChromeConfig sets the browser settings of the default discoverer.
// Default is crawl.DefaultChromeConfig().
func WithChromeConfig(cfg crawl.ChromeConfig) Option {
	return func(p *Pipeline) error {
		p.chromeConfig = cfg
		return nil
	}
}

// WithEmbeddingBatchSize sets how many chunks are embedded per request.
// Default is DefaultEmbeddingBatchSize.
func WithEmbeddingBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("embedding batch size must be >= 1, got %d", size)
		}
		p.batchSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates an ingestion pipeline. Stages not supplied through
// options are built with their package defaults.
func NewPipeline(
	documents storage.DocumentRepository,
	chunks storage.ChunkRepository,
	calls storage.CallRepository,
	embedder ai.Embedder,
	opts ...Option,
) (*Pipeline, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if calls == nil {
		return nil, ErrCallRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	p := &Pipeline{
		documents:    documents,
		chunks:       chunks,
		calls:        calls,
		recorder:     metrics.Nop{},
		processed:    NewURLSet(),
		httpConfig:   fetch.DefaultConfig(),
		chromeConfig: crawl.DefaultChromeConfig(),
		batchSize:    DefaultEmbeddingBatchSize,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	if err := p.buildDefaults(); err != nil {
		return nil, err
	}

	embeddings, err := NewEmbeddingGenerator(embedder, p.batchSize, p.logger)
	if err != nil {
		return nil, err
	}
	p.embeddings = embeddings
	p.logger = p.logger.With("component", "pipeline")

	return p, nil
}

func (p *Pipeline) buildDefaults() error {
	if p.verifier == nil || p.downloader == nil {
		client := fetch.NewHTTPClient(p.httpConfig)
		if p.verifier == nil {
			v, err := fetch.NewVerifier(client, fetch.WithLogger(p.logger))
			if err != nil {
				return err
			}
			p.verifier = v
		}
		if p.downloader == nil {
			d, err := fetch.NewDownloader(client, fetch.WithLogger(p.logger))
			if err != nil {
				return err
			}
			p.downloader = d
		}
	}

	if p.extractor == nil {
		e, err := extract.New(extract.WithLogger(p.logger))
		if err != nil {
			return err
		}
		p.extractor = e
	}

	if p.splitter == nil {
		s, err := chunking.New(chunking.WithLogger(p.logger))
		if err != nil {
			return err
		}
		p.splitter = s
	}

	if p.discoverer == nil {
		renderer := crawl.NewChromeRenderer(p.chromeConfig, p.logger)
		d, err := crawl.NewDiscoverer(renderer, crawl.WithLogger(p.logger))
		if err != nil {
			return err
		}
		p.discoverer = d
	}
	return nil
}

// Processed returns the set of call pages this pipeline has seen.
func (p *Pipeline) Processed() *URLSet {
	return p.processed
}

// IngestDocument downloads, extracts, splits, embeds and stores the PDF at
// url under docID. A document that already has chunks is skipped with a
// successful outcome before any network work. Download and extraction
// failures end the run with an unsuccessful outcome and a nil error; the
// error return is for cancellation and storage failures.
func (p *Pipeline) IngestDocument(ctx context.Context, docID core.ID, url string) (core.DocumentOutcome, error) {
	logger := p.logger.With("document", docID, "url", url)

	done, err := p.documents.HasChunks(ctx, docID)
	if err != nil {
		return core.DocumentOutcome{}, fmt.Errorf("check chunks for document %d: %w", docID, err)
	}
	if done {
		stored, err := p.chunks.ChunksForDocument(ctx, docID)
		if err != nil {
			return core.DocumentOutcome{}, fmt.Errorf("load chunks for document %d: %w", docID, err)
		}
		logger.Debug("document already ingested", "chunks", len(stored))
		return core.DocumentOutcome{HasText: true, HasMetadata: true, ChunkCount: len(stored)}, nil
	}

	run := &documentRun{start: time.Now(), logger: logger}
	outcome, err := p.ingest(ctx, run, docID, url)
	outcome.Elapsed = time.Since(run.start)
	if err != nil {
		run.enter(StateFailed)
		return outcome, err
	}

	if outcome.Success() {
		run.enter(StateDone)
	} else {
		run.enter(StateFailed)
	}
	p.recorder.RecordDocument(ctx, docID, outcome)
	return outcome, nil
}

func (p *Pipeline) ingest(ctx context.Context, run *documentRun, docID core.ID, url string) (core.DocumentOutcome, error) {
	var outcome core.DocumentOutcome

	run.enter(StateDownloading)
	data, err := p.downloader.Download(ctx, url)
	if ctx.Err() != nil {
		return outcome, ctx.Err()
	}
	if err != nil || len(data) == 0 {
		run.logger.Warn("could not download pdf", "err", err)
		return outcome, nil
	}

	run.enter(StateExtracting)
	pages := p.extractor.Extract(data)
	if len(pages) == 0 {
		run.logger.Warn("no text extracted from pdf")
		return outcome, nil
	}

	outcome.HasText = true
	outcome.HasMetadata = true
	var chunks []*core.Chunk
	for i := range pages {
		page := &pages[i]
		if page.HasTables() {
			outcome.HasTables = true
		}
		text := page.Combined()
		outcome.CharCount += utf8.RuneCountInString(text)

		prepared, err := p.preparePage(ctx, run, docID, page.PageNumber, text)
		if err != nil {
			return outcome, err
		}
		chunks = append(chunks, prepared...)
	}
	if len(chunks) == 0 {
		run.logger.Warn("no chunks produced for document", "pages", len(pages))
		return outcome, nil
	}

	// Chunks land together or not at all; a half-stored document would
	// pass the HasChunks check on the next run.
	run.enter(StateStoring)
	stored, err := p.chunks.InsertChunks(ctx, chunks...)
	if err != nil {
		return outcome, fmt.Errorf("insert chunks for document %d: %w", docID, err)
	}
	if stored < len(chunks) {
		run.logger.Warn("chunks rejected", "rejected", len(chunks)-stored)
	}
	outcome.ChunkCount = stored

	run.logger.Info("document ingested", "pages", len(pages), "chunks", outcome.ChunkCount)
	return outcome, nil
}

// preparePage splits and embeds one page. A page whose embeddings come back
// incomplete yields no chunks.
func (p *Pipeline) preparePage(ctx context.Context, run *documentRun, docID core.ID, pageNumber int, text string) ([]*core.Chunk, error) {
	run.enter(StateSplitting)
	segments := p.splitter.Segments(text)
	if len(segments) == 0 {
		return nil, nil
	}

	run.enter(StateEmbedding)
	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}
	vectors := p.embeddings.Embed(ctx, texts)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(vectors) != len(segments) {
		run.logger.Warn("skipping page, embeddings missing", "page", pageNumber,
			"chunks", len(segments), "vectors", len(vectors))
		return nil, nil
	}

	chunks := make([]*core.Chunk, len(segments))
	for i, seg := range segments {
		chunks[i] = &core.Chunk{
			DocumentId:   docID,
			PageNumber:   pageNumber,
			Ordinal:      i,
			Text:         seg.Text,
			IsTable:      seg.IsTable,
			SectionTitle: SectionTitle(seg, pageNumber, i+1),
			Vector:       vectors[i],
		}
	}
	return chunks, nil
}

// SectionTitle names a chunk: "TABLE <n> (PAGE <p>)" for table blocks and
// "Page <p> - Chunk <k>" otherwise, k being 1-based within the page.
func SectionTitle(seg chunking.Segment, pageNumber, k int) string {
	if seg.IsTable {
		return fmt.Sprintf("TABLE %d (PAGE %d)", seg.TableNumber, pageNumber)
	}
	return fmt.Sprintf("Page %d - Chunk %d", pageNumber, k)
}

// IngestPage discovers the PDFs linked from a call page and ingests each
// one that verifies as a PDF. The call is registered on first sight and
// every stored document is associated with it. A page already handed to
// this pipeline returns an unsuccessful outcome without work. The outcome
// counts the documents that ended with stored chunks and their PDF pages.
func (p *Pipeline) IngestPage(ctx context.Context, pageURL string) (core.CrawlOutcome, error) {
	var outcome core.CrawlOutcome

	if err := crawl.ValidateURL(pageURL); err != nil {
		return outcome, err
	}
	if !p.processed.Add(pageURL) {
		p.logger.Info("page already processed", "url", pageURL)
		return outcome, nil
	}

	call, err := p.callFor(ctx, pageURL)
	if err != nil {
		return outcome, err
	}
	logger := p.logger.With("call", call.Id, "url", pageURL)

	links, err := p.discoverer.Discover(ctx, pageURL)
	if err != nil {
		return outcome, err
	}

	var candidates []string
	for _, link := range links {
		if p.verifier.IsPDF(ctx, link) {
			candidates = append(candidates, link)
		}
	}
	if ctx.Err() != nil {
		return outcome, ctx.Err()
	}
	if len(candidates) == 0 {
		logger.Warn("no valid pdfs found", "links", len(links))
		p.recorder.RecordCrawl(ctx, pageURL, outcome)
		return outcome, nil
	}

	for _, link := range candidates {
		if ctx.Err() != nil {
			return outcome, ctx.Err()
		}
		pages, ok, err := p.ingestCandidate(ctx, call, link)
		if err != nil {
			if ctx.Err() != nil {
				return outcome, ctx.Err()
			}
			logger.Error("error ingesting document", "pdf", link, "err", err)
			continue
		}
		if ok {
			outcome.DocumentCount++
			outcome.PageCount += pages
		}
	}

	outcome.Success = outcome.DocumentCount > 0
	logger.Info("page processed", "candidates", len(candidates),
		"documents", outcome.DocumentCount, "pages", outcome.PageCount)
	p.recorder.RecordCrawl(ctx, pageURL, outcome)
	return outcome, nil
}

// IngestPDF ingests a single PDF URL that belongs to no call page. The
// document is registered by content hash, so a PDF already stored under
// another URL is reused and not processed again.
func (p *Pipeline) IngestPDF(ctx context.Context, url string) (core.ID, core.DocumentOutcome, error) {
	if err := crawl.ValidateURL(url); err != nil {
		return 0, core.DocumentOutcome{}, err
	}
	if !p.verifier.IsPDF(ctx, url) {
		if ctx.Err() != nil {
			return 0, core.DocumentOutcome{}, ctx.Err()
		}
		return 0, core.DocumentOutcome{}, ErrNotPDF
	}

	docID, _, err := p.register(ctx, url)
	if err != nil {
		return 0, core.DocumentOutcome{}, err
	}
	outcome, err := p.IngestDocument(ctx, docID, url)
	return docID, outcome, err
}

// register fingerprints url and stores the document, returning its ID and
// the page count seen in the fingerprint.
func (p *Pipeline) register(ctx context.Context, url string) (core.ID, int, error) {
	fp, err := p.verifier.Fingerprint(ctx, url)
	if err != nil || fp == nil {
		if ctx.Err() != nil {
			return 0, 0, ctx.Err()
		}
		return 0, 0, fmt.Errorf("%w: %s: %v", ErrFingerprint, url, err)
	}

	docID, err := p.documents.InsertDocument(ctx, fp)
	if err != nil {
		return 0, 0, fmt.Errorf("insert document: %w", err)
	}
	return docID, fp.PageCount, nil
}

// ingestCandidate registers and ingests one PDF found on a call page. It
// returns the document's page count and whether the document has stored chunks.
func (p *Pipeline) ingestCandidate(ctx context.Context, call *core.Call, url string) (int, bool, error) {
	docID, fpPages, err := p.register(ctx, url)
	if errors.Is(err, ErrFingerprint) {
		p.logger.Warn("could not fingerprint pdf", "pdf", url, "err", err)
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	if _, err := p.calls.Associate(ctx, call.Id, docID); err != nil {
		return 0, false, fmt.Errorf("associate document %d with call %d: %w", docID, call.Id, err)
	}

	outcome, err := p.IngestDocument(ctx, docID, url)
	if err != nil {
		return 0, false, err
	}
	if !outcome.Success() {
		return 0, false, nil
	}

	doc, err := p.documents.GetDocument(ctx, docID)
	if err != nil {
		p.logger.Debug("using fingerprint page count", "document", docID, "err", err)
		return fpPages, true, nil
	}
	return doc.PageCount, true, nil
}

// callFor returns the call registered for url, registering it if needed.
func (p *Pipeline) callFor(ctx context.Context, url string) (*core.Call, error) {
	call, err := p.calls.GetByURL(ctx, url)
	if err == nil {
		return call, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("look up call: %w", err)
	}

	call, err = p.calls.InsertCall(ctx, &core.Call{URL: url, Organism: crawl.OrganismFor(url)})
	if errors.Is(err, storage.ErrDuplicateKey) {
		return p.calls.GetByURL(ctx, url)
	}
	if err != nil {
		return nil, fmt.Errorf("insert call: %w", err)
	}
	p.logger.Info("registered call", "call", call.Id, "url", url, "organism", call.Organism)
	return call, nil
}

// documentRun tracks the state of one IngestDocument call for logging.
type documentRun struct {
	state  State
	start  time.Time
	logger *slog.Logger
}

func (r *documentRun) enter(s State) {
	if r.state == s {
		return
	}
	r.logger.Debug("document state", "from", r.state, "to", s, "elapsed", time.Since(r.start))
	r.state = s
}
