package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mirarav/convocatorias/core"
	"github.com/mirarav/convocatorias/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) *DocumentRepository {
	return &DocumentRepository{backend: backend}
}

// Close is a no-op; documents use content-derived IDs and hold no sequence.
func (r *DocumentRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *DocumentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// InsertDocument stores the fingerprint unless its content hash is already known.
func (r *DocumentRepository) InsertDocument(ctx context.Context, fp *core.Fingerprint) (core.ID, error) {
	if err := core.ValidateFingerprint(fp); err != nil {
		return 0, err
	}

	var id core.ID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		hashKey := makeDocumentHashKey(fp.ContentHash)
		existing, err := readValue(tx, hashKey)
		if err != nil {
			return err
		}
		if existing != nil {
			id, err = storage.UnmarshalID(existing)
			return err
		}

		doc := core.NewDocument(fp)
		doc.InsertedAt = time.Now().UTC()

		key := makeDocumentKey(doc.Id)
		taken, err := exists(tx, key)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: document id %d already used by another hash", storage.ErrDuplicateKey, doc.Id)
		}

		if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
			return err
		}
		if err := tx.Set(hashKey, storage.MarshalID(doc.Id)); err != nil {
			return err
		}
		id = doc.Id
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// DocumentByHash looks a document up through the hash index.
func (r *DocumentRepository) DocumentByHash(ctx context.Context, hash string) (*core.Document, error) {
	var doc *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		raw, err := readValue(tx, makeDocumentHashKey(hash))
		if err != nil {
			return err
		}
		if raw == nil {
			return storage.ErrNotFound
		}
		id, err := storage.UnmarshalID(raw)
		if err != nil {
			return err
		}
		doc, err = r.readDocument(tx, id)
		return err
	}, false)
	return doc, err
}

// GetDocument retrieves a document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var doc *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		doc, err = r.readDocument(tx, id)
		return err
	}, false)
	return doc, err
}

// HasChunks reports whether the chunk index holds any entry for the document.
func (r *DocumentRepository) HasChunks(ctx context.Context, id core.ID) (bool, error) {
	found := false
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makePartialChunkDocKey(id)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		iter.Rewind()
		found = iter.Valid()
		return nil
	}, false)
	return found, err
}

func (r *DocumentRepository) readDocument(tx *badger.Txn, id core.ID) (*core.Document, error) {
	raw, err := readValue(tx, makeDocumentKey(id))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, storage.ErrNotFound
	}
	return storage.UnmarshalDocument(raw)
}
