package search

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/mirarav/convocatorias/ai"
	"github.com/mirarav/convocatorias/core"
	"github.com/mirarav/convocatorias/storage"
)

const (
	// DefaultThreshold is the minimum cosine similarity of a hit.
	DefaultThreshold = 0.60

	// VerbatimBoost is added to hits containing every significant query word.
	VerbatimBoost = 0.3
)

// Searcher runs semantic search over stored chunks.
type Searcher struct {
	chunkRepository storage.ChunkRepository
	embedder        ai.Embedder
	threshold       float32
	logger          *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithThreshold sets the minimum similarity a chunk needs to be returned.
// Default is DefaultThreshold.
func WithThreshold(threshold float32) Option {
	return func(s *Searcher) error {
		if threshold < -1 || threshold > 1 {
			return fmt.Errorf("threshold must be within [-1, 1], got %g", threshold)
		}
		s.threshold = threshold
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(chunkRepository storage.ChunkRepository, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if chunkRepository == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		chunkRepository: chunkRepository,
		embedder:        embedder,
		threshold:       DefaultThreshold,
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")

	return s, nil
}

// FindSimilar returns up to maxHits chunks similar to query, best first.
func (s *Searcher) FindSimilar(ctx context.Context, query string, maxHits int) ([]*core.SearchResult, error) {
	return s.FindSimilarWithMonitor(ctx, query, maxHits, nil)
}

// FindSimilarWithMonitor is FindSimilar with callbacks at each stage.
func (s *Searcher) FindSimilarWithMonitor(ctx context.Context, query string, maxHits int, monitor SearchMonitor) ([]*core.SearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if maxHits < 1 {
		return []*core.SearchResult{}, nil
	}

	monitor.Start(query)

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}

	matches, err := s.chunkRepository.FindSimilar(ctx, embedding, s.threshold, maxHits)
	if err != nil {
		s.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}
	monitor.AfterSemanticSearch(matches)

	results := make([]*core.SearchResult, 0, len(matches))
	for _, match := range matches {
		if match == nil || match.Chunk == nil {
			continue
		}
		score := match.Score
		if containsAllQueryWords(match.Chunk.Text, query) {
			score += VerbatimBoost
			monitor.VerbatimHit(match.Chunk)
		}
		results = append(results, &core.SearchResult{Chunk: match.Chunk, Score: score})
	}

	slices.SortStableFunc(results, func(a, b *core.SearchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	monitor.Finish(results)

	s.logger.Debug("search finished", "query", query, "hits", len(results))
	return results, nil
}
