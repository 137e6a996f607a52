package metrics

import (
	"context"
	"log/slog"

	"github.com/mirarav/convocatorias/core"
)

// Recorder collects ingestion outcomes. Implementations must be safe for
// concurrent use and must not block the caller for long.
type Recorder interface {
	RecordDocument(ctx context.Context, docID core.ID, outcome core.DocumentOutcome)
	RecordCrawl(ctx context.Context, url string, outcome core.CrawlOutcome)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordDocument(context.Context, core.ID, core.DocumentOutcome) {}
func (Nop) RecordCrawl(context.Context, string, core.CrawlOutcome)       {}

// LogRecorder writes outcomes to a slog.Logger.
type LogRecorder struct {
	logger *slog.Logger
}

// NewLogRecorder creates a LogRecorder. A nil logger means slog.Default().
func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogRecorder{logger: logger.With("component", "metrics")}
}

func (r *LogRecorder) RecordDocument(ctx context.Context, docID core.ID, outcome core.DocumentOutcome) {
	level := slog.LevelInfo
	if !outcome.Success() {
		level = slog.LevelWarn
	}
	r.logger.Log(ctx, level, "document processed",
		"document", docID,
		"success", outcome.Success(),
		"has_text", outcome.HasText,
		"has_tables", outcome.HasTables,
		"has_metadata", outcome.HasMetadata,
		"chunks", outcome.ChunkCount,
		"chars", outcome.CharCount,
		"elapsed", outcome.Elapsed,
	)
}

func (r *LogRecorder) RecordCrawl(ctx context.Context, url string, outcome core.CrawlOutcome) {
	level := slog.LevelInfo
	if !outcome.Success {
		level = slog.LevelWarn
	}
	r.logger.Log(ctx, level, "page crawled",
		"url", url,
		"success", outcome.Success,
		"documents", outcome.DocumentCount,
		"pages", outcome.PageCount,
	)
}

// Multi forwards every outcome to each recorder in order.
type Multi []Recorder

func (m Multi) RecordDocument(ctx context.Context, docID core.ID, outcome core.DocumentOutcome) {
	for _, r := range m {
		r.RecordDocument(ctx, docID, outcome)
	}
}

func (m Multi) RecordCrawl(ctx context.Context, url string, outcome core.CrawlOutcome) {
	for _, r := range m {
		r.RecordCrawl(ctx, url, outcome)
	}
}
