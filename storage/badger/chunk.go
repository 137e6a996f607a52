package badger

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mirarav/convocatorias/core"
	"github.com/mirarav/convocatorias/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) (*ChunkRepository, error) {
	idSeq, err := backend.GetSequence(chunkIDSeq)
	if err != nil {
		return nil, err
	}

	return &ChunkRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *ChunkRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *ChunkRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// InsertChunk stores the chunk and its document index entry.
func (r *ChunkRepository) InsertChunk(ctx context.Context, chunk *core.Chunk) (bool, error) {
	stored, err := r.InsertChunks(ctx, chunk)
	return stored == 1, err
}

// InsertChunks stores every valid chunk in one transaction; either all of
// them are written or none are. Invalid chunks are skipped.
func (r *ChunkRepository) InsertChunks(ctx context.Context, chunks ...*core.Chunk) (int, error) {
	valid := make([]*core.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			r.backend.logger.Warn("rejecting chunk", "err", err)
			continue
		}
		valid = append(valid, chunk)
	}
	if len(valid) == 0 {
		return 0, nil
	}

	ids := make([]core.ID, len(valid))
	now := time.Now().UTC()
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for i, chunk := range valid {
			if err := ctx.Err(); err != nil {
				return err
			}
			id, err := nextID(r.idSeq)
			if err != nil {
				return err
			}
			ids[i] = core.ID(id)

			record := *chunk
			record.Id = ids[i]
			record.InsertedAt = now
			if err := tx.Set(makeChunkKey(record.Id), storage.MarshalChunk(&record)); err != nil {
				return err
			}
			if err := tx.Set(makeChunkDocKey(record.DocumentId, record.Id), storage.MarshalID(record.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}

	for i, chunk := range valid {
		chunk.Id = ids[i]
		chunk.InsertedAt = now
	}
	return len(valid), nil
}

// UpdateChunks rewrites existing chunks in one transaction.
func (r *ChunkRepository) UpdateChunks(ctx context.Context, chunks ...*core.Chunk) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			key := makeChunkKey(chunk.Id)
			found, err := exists(tx, key)
			if err != nil {
				return err
			}
			if !found {
				return storage.ErrNotFound
			}
			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// ChunksForDocument walks the document index and loads each chunk.
func (r *ChunkRepository) ChunksForDocument(ctx context.Context, id core.ID) ([]*core.Chunk, error) {
	var chunks []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makePartialChunkDocKey(id)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			chunkID, err := childFromPairKey(iter.Item().Key())
			if err != nil {
				return err
			}
			raw, err := readValue(tx, makeChunkKey(chunkID))
			if err != nil {
				return err
			}
			if raw == nil {
				continue
			}
			chunk, err := storage.UnmarshalChunk(raw)
			if err != nil {
				return err
			}
			chunks = append(chunks, chunk)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(chunks, func(a, b *core.Chunk) int {
		if a.PageNumber != b.PageNumber {
			return a.PageNumber - b.PageNumber
		}
		return a.Ordinal - b.Ordinal
	})
	return chunks, nil
}

var errStopIteration = errors.New("stop iteration")

// ForEachChunk streams chunks in ID order. Each batch is read in its own
// transaction so fn may write through UpdateChunks.
func (r *ChunkRepository) ForEachChunk(ctx context.Context, batchSize int, fn func([]*core.Chunk) error) error {
	if batchSize <= 0 {
		return storage.ErrInvalidQuery
	}

	seek := makeChunkKey(0)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch := make([]*core.Chunk, 0, batchSize)
		var next []byte
		err := r.backend.WithTx(func(tx *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(chunkPrefix)
			iter := tx.NewIterator(opts)
			defer iter.Close()

			for iter.Seek(seek); iter.Valid(); iter.Next() {
				item := iter.Item()
				if len(batch) == batchSize {
					next = item.KeyCopy(nil)
					return errStopIteration
				}
				err := item.Value(func(val []byte) error {
					chunk, err := storage.UnmarshalChunk(val)
					if err != nil {
						return err
					}
					batch = append(batch, chunk)
					return nil
				})
				if err != nil {
					return err
				}
			}
			return nil
		}, false)
		if err != nil && !errors.Is(err, errStopIteration) {
			return err
		}

		if len(batch) > 0 {
			if err := fn(batch); err != nil {
				return err
			}
		}
		if next == nil {
			return nil
		}
		seek = next
	}
}

// CountChunks counts chunk records without loading their values.
func (r *ChunkRepository) CountChunks(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(chunkPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// FindSimilar scans every embedded chunk and ranks by dot product.
// Stored vectors are expected to be normalized.
func (r *ChunkRepository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.SearchResult
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}

			// Skip chunks without embeddings
			if len(chunk.Vector) == 0 {
				continue
			}

			similarity := dotProduct(vector, chunk.Vector)
			if similarity >= minSimilarity {
				results = append(results, &core.SearchResult{
					Chunk: chunk,
					Score: similarity,
				})
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.SearchResult) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
