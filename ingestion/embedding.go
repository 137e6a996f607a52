package ingestion

import (
	"context"
	"log/slog"

	"github.com/mirarav/convocatorias/ai"
)

// DefaultEmbeddingBatchSize is how many texts go to the embedder per request.
const DefaultEmbeddingBatchSize = 32

// EmbeddingGenerator turns chunk texts into vectors.
type EmbeddingGenerator struct {
	embedder  ai.Embedder
	batchSize int
	logger    *slog.Logger
}

// NewEmbeddingGenerator wraps embedder. A batchSize below 1 means
// DefaultEmbeddingBatchSize; a nil logger means slog.Default().
func NewEmbeddingGenerator(embedder ai.Embedder, batchSize int, logger *slog.Logger) (*EmbeddingGenerator, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if batchSize < 1 {
		batchSize = DefaultEmbeddingBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbeddingGenerator{
		embedder:  embedder,
		batchSize: batchSize,
		logger:    logger.With("component", "embeddings"),
	}, nil
}

// Embed returns one vector per text, in order. The result is empty when
// texts is empty or when any batch fails; callers compare lengths to detect
// the failure.
func (g *EmbeddingGenerator) Embed(ctx context.Context, texts []string) [][]float32 {
	if len(texts) == 0 {
		return [][]float32{}
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += g.batchSize {
		end := min(start+g.batchSize, len(texts))
		batch, err := g.embedder.EmbedTexts(ctx, texts[start:end])
		if err != nil {
			g.logger.Error("error generating embeddings", "texts", end-start, "err", err)
			return [][]float32{}
		}
		if len(batch) != end-start {
			g.logger.Error("embedding result mismatch", "expected", end-start, "received", len(batch))
			return [][]float32{}
		}
		vectors = append(vectors, batch...)
	}
	return vectors
}
