package storage

import (
	"context"

	"github.com/mirarav/convocatorias/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close releases repository resources. It does not close the backend.
	Close() error
}

// DocumentRepository stores deduplicated PDF documents keyed by content hash.
type DocumentRepository interface {
	Repository

	// InsertDocument stores the fingerprint as a document and returns its ID.
	// If a document with the same content hash exists, its ID is returned
	// and nothing is written.
	InsertDocument(ctx context.Context, fp *core.Fingerprint) (core.ID, error)

	// DocumentByHash returns the document with the given content hash.
	// Returns ErrNotFound if no such document exists.
	DocumentByHash(ctx context.Context, hash string) (*core.Document, error)

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// HasChunks reports whether any chunk is stored for the document.
	HasChunks(ctx context.Context, id core.ID) (bool, error)
}

// ChunkRepository stores embedded chunks and answers vector queries over them.
type ChunkRepository interface {
	Repository

	// InsertChunk stores a chunk, assigning its ID and InsertedAt.
	// Returns false with a nil error when the chunk fails validation.
	InsertChunk(ctx context.Context, chunk *core.Chunk) (bool, error)

	// InsertChunks stores the valid chunks atomically and returns how many
	// were stored. Chunks failing validation are skipped.
	InsertChunks(ctx context.Context, chunks ...*core.Chunk) (int, error)

	// UpdateChunks rewrites existing chunks, typically with new vectors.
	// Returns ErrNotFound if any chunk doesn't exist.
	UpdateChunks(ctx context.Context, chunks ...*core.Chunk) error

	// ChunksForDocument returns a document's chunks ordered by page then ordinal.
	ChunksForDocument(ctx context.Context, id core.ID) ([]*core.Chunk, error)

	// ForEachChunk calls fn with batches of at most batchSize chunks in ID order.
	// Iteration stops at the first error returned by fn.
	ForEachChunk(ctx context.Context, batchSize int, fn func([]*core.Chunk) error) error

	// CountChunks returns the number of stored chunks.
	CountChunks(ctx context.Context) (int, error)

	// FindSimilar finds chunks similar to the given vector.
	// Returns chunks with similarity >= minSimilarity, up to limit results.
	// Results are ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)
}

// CallRepository stores grant call pages and their document associations.
type CallRepository interface {
	Repository

	// GetByURL returns the call registered for url.
	// Returns ErrNotFound if the call doesn't exist.
	GetByURL(ctx context.Context, url string) (*core.Call, error)

	// InsertCall stores a new call and assigns its ID.
	// Returns ErrDuplicateKey if a call with the same URL exists.
	InsertCall(ctx context.Context, call *core.Call) (*core.Call, error)

	// Associate links a document to a call. It returns false when the link
	// already existed.
	Associate(ctx context.Context, callID, documentID core.ID) (bool, error)

	// DocumentsForCall returns the IDs of documents linked to a call.
	DocumentsForCall(ctx context.Context, callID core.ID) ([]core.ID, error)
}

// CheckpointRepository persists progress markers for resumable jobs.
type CheckpointRepository interface {
	// SaveCheckpoint stores the checkpoint under its name, stamping UpdatedAt.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint returns the named checkpoint, or nil, nil if none exists.
	LoadCheckpoint(ctx context.Context, name string) (*core.Checkpoint, error)

	// DeleteCheckpoint removes the named checkpoint. Missing checkpoints are ignored.
	DeleteCheckpoint(ctx context.Context, name string) error
}
