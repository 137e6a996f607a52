package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mirarav/convocatorias"
	"github.com/mirarav/convocatorias/chunking"
	"github.com/mirarav/convocatorias/config"
	"github.com/mirarav/convocatorias/crawl"
	"github.com/mirarav/convocatorias/fetch"
	"github.com/mirarav/convocatorias/ingestion"
	"github.com/mirarav/convocatorias/metrics"
	"github.com/mirarav/convocatorias/reembed"
	"github.com/mirarav/convocatorias/search"
	"github.com/urfave/cli/v2"
)

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("db") {
		cfg.Storage.Path = c.String("db")
		cfg.Storage.InMemory = false
	}
	return cfg, nil
}

func openDatabase(cfg *config.Config) (*convocatorias.Database, error) {
	opts := []convocatorias.DatabaseOption{
		convocatorias.WithAIConfig(cfg.AIConfig()),
		convocatorias.WithProviderFactory(providerFactory),
		convocatorias.WithDatabaseLogger(slog.Default()),
	}
	if cfg.Storage.InMemory {
		opts = append(opts, convocatorias.WithInMemory())
	}
	db, err := convocatorias.NewDatabase(cfg.Storage.Path, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// pipelineOptions builds the stages described by cfg.
func pipelineOptions(cfg *config.Config, static bool, recorder metrics.Recorder) ([]ingestion.Option, error) {
	logger := slog.Default()

	splitter, err := chunking.New(
		chunking.WithChunkSize(cfg.Chunking.Size),
		chunking.WithChunkOverlap(cfg.Chunking.Overlap),
		chunking.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	var renderer crawl.Renderer
	if static || cfg.Crawl.Static {
		renderer = crawl.NewHTTPRenderer(fetch.NewHTTPClient(cfg.FetchConfig()))
	} else {
		renderer = crawl.NewChromeRenderer(cfg.ChromeConfig(), logger)
	}
	discoverer, err := crawl.NewDiscoverer(renderer,
		crawl.WithMaxAttempts(cfg.Crawl.MaxAttempts),
		crawl.WithBaseDelay(cfg.Crawl.BaseBackoff),
		crawl.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	return []ingestion.Option{
		ingestion.WithDiscoverer(discoverer),
		ingestion.WithSplitter(splitter),
		ingestion.WithHTTPConfig(cfg.FetchConfig()),
		ingestion.WithChromeConfig(cfg.ChromeConfig()),
		ingestion.WithEmbeddingBatchSize(cfg.AI.BatchSize),
		ingestion.WithRecorder(recorder),
	}, nil
}

// readURLFile returns the non-blank lines of path that do not start with #.
func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

// serveMetrics exposes prom on addr until the returned stop func is called.
func serveMetrics(addr string, prom *metrics.Prometheus) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", prom.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		slog.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "addr", addr, "err", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func crawlCommand(c *cli.Context) error {
	urls := c.Args().Slice()
	if path := c.String("file"); path != "" {
		fromFile, err := readURLFile(path)
		if err != nil {
			return fmt.Errorf("failed to read url file: %w", err)
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		return cli.Exit("at least one page URL is required", 1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := metrics.Multi{metrics.NewLogRecorder(slog.Default())}
	addr := cfg.Metrics.ListenAddr
	if c.IsSet("metrics-addr") {
		addr = c.String("metrics-addr")
	}
	if addr != "" {
		prom, err := metrics.NewPrometheus()
		if err != nil {
			return fmt.Errorf("failed to create metrics: %w", err)
		}
		recorder = append(recorder, prom)
		defer serveMetrics(addr, prom)()
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	opts, err := pipelineOptions(cfg, c.Bool("static"), recorder)
	if err != nil {
		return err
	}
	pipeline, err := db.NewPipeline(opts...)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	queue, err := ingestion.NewQueue(pipeline, slog.Default())
	if err != nil {
		return err
	}
	defer queue.Release()

	for _, url := range urls {
		if err := queue.Submit(ctx, url); err != nil {
			slog.Error("could not queue page", "url", url, "err", err)
		}
	}

	w := c.App.Writer
	failed := 0
	for _, result := range queue.Wait() {
		switch {
		case result.Err != nil:
			failed++
			fmt.Fprintf(w, "FAIL\t%s\t%v\n", result.URL, result.Err)
		case result.Outcome.Success:
			fmt.Fprintf(w, "OK\t%s\tdocuments=%d pages=%d\n",
				result.URL, result.Outcome.DocumentCount, result.Outcome.PageCount)
		default:
			fmt.Fprintf(w, "EMPTY\t%s\n", result.URL)
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if failed == len(urls) {
		return cli.Exit(fmt.Sprintf("all %d pages failed", failed), 1)
	}
	return nil
}

func ingestPDFCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("exactly one PDF URL is required", 1)
	}
	url := c.Args().First()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	opts, err := pipelineOptions(cfg, true, metrics.NewLogRecorder(slog.Default()))
	if err != nil {
		return err
	}
	pipeline, err := db.NewPipeline(opts...)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	docID, outcome, err := pipeline.IngestPDF(ctx, url)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	if !outcome.Success() {
		return cli.Exit(fmt.Sprintf("no chunks stored for %s", url), 1)
	}
	fmt.Fprintf(c.App.Writer, "Stored %d chunks for document %d\n", outcome.ChunkCount, docID)
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return cli.Exit("a query is required", 1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher(search.WithThreshold(float32(c.Float64("threshold"))))
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}

	results, err := searcher.FindSimilar(c.Context, query, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Found %d hits\n", len(results))
	for i, hit := range results {
		fmt.Fprintf(w, "%d: [%0.3f] document %d, %s\n", i, hit.Score, hit.Chunk.DocumentId, hit.Chunk.SectionTitle)
		fmt.Fprintf(w, "   %s\n", hit.Chunk.Text)
	}
	return nil
}

func reembedCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("embedding-host") {
		cfg.AI.EmbeddingHost = c.String("embedding-host")
	}
	if c.IsSet("embedding-model") {
		cfg.AI.EmbeddingModel = c.String("embedding-model")
	}
	if c.IsSet("dimensions") {
		cfg.AI.Dimensions = c.Int("dimensions")
	}

	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	progress := c.App.ErrWriter
	reembedder, err := db.NewReembedder(reembedConfig, progress)
	if err != nil {
		return fmt.Errorf("failed to create reembedder: %w", err)
	}

	fmt.Fprintf(progress, "Database: %s\n", cfg.Storage.Path)
	fmt.Fprintf(progress, "Embedding host: %s\n", cfg.AI.EmbeddingHost)
	fmt.Fprintf(progress, "Embedding model: %s\n", cfg.AI.EmbeddingModel)
	fmt.Fprintln(progress)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := reembedder.Run(ctx); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}
