package reembed

import (
	"context"

	"github.com/mirarav/convocatorias/core"
	"github.com/mirarav/convocatorias/storage"
)

const (
	// DefaultBatchSize is the default number of chunks to fetch in each batch
	DefaultBatchSize = 100
)

// ChunkIterator walks every stored chunk in ID order, in batches.
type ChunkIterator struct {
	repo      storage.ChunkRepository
	batchSize int
	after     core.ID
}

// NewChunkIterator creates a new chunk iterator.
// batchSize: number of chunks per batch; values <= 0 mean DefaultBatchSize
func NewChunkIterator(repo storage.ChunkRepository, batchSize int) *ChunkIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &ChunkIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// ResumeAfter makes ForEach skip chunks with IDs up to and including id.
func (it *ChunkIterator) ResumeAfter(id core.ID) {
	it.after = id
}

// ForEach calls fn for each batch of chunks. Iteration stops on the first
// error from fn or when the context is cancelled.
func (it *ChunkIterator) ForEach(ctx context.Context, fn func([]*core.Chunk) error) error {
	return it.repo.ForEachChunk(ctx, it.batchSize, func(chunks []*core.Chunk) error {
		if it.after > 0 {
			pending := chunks[:0]
			for _, chunk := range chunks {
				if chunk.Id > it.after {
					pending = append(pending, chunk)
				}
			}
			chunks = pending
		}
		if len(chunks) == 0 {
			return nil
		}
		if err := fn(chunks); err != nil {
			return err
		}
		return ctx.Err()
	})
}
