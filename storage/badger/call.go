package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mirarav/convocatorias/core"
	"github.com/mirarav/convocatorias/storage"
)

// CallRepository implements storage.CallRepository for BadgerDB.
type CallRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.CallRepository = (*CallRepository)(nil)

// NewCallRepository creates a new CallRepository.
func NewCallRepository(backend *Backend) (*CallRepository, error) {
	idSeq, err := backend.GetSequence(callIDSeq)
	if err != nil {
		return nil, err
	}
	return &CallRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *CallRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *CallRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// GetByURL resolves a call through the URL index.
func (r *CallRepository) GetByURL(ctx context.Context, url string) (*core.Call, error) {
	var call *core.Call
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		raw, err := readValue(tx, makeCallURLKey(url))
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
		data, err := readValue(tx, makeCallKey(id))
		if err != nil {
			return err
		}
		if data == nil {
			return storage.ErrNotFound
		}
		call, err = storage.UnmarshalCall(data)
		return err
	}, false)
	return call, err
}

// InsertCall stores a call and its URL index entry.
func (r *CallRepository) InsertCall(ctx context.Context, call *core.Call) (*core.Call, error) {
	if err := core.ValidateCall(call); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		urlKey := makeCallURLKey(call.URL)
		taken, err := exists(tx, urlKey)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: call %s", storage.ErrDuplicateKey, call.URL)
		}

		id, err := nextID(r.idSeq)
		if err != nil {
			return err
		}
		call.Id = core.ID(id)
		call.InsertedAt = time.Now().UTC()

		if err := tx.Set(makeCallKey(call.Id), storage.MarshalCall(call)); err != nil {
			return err
		}
		if err := tx.Set(urlKey, storage.MarshalID(call.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return call, nil
}

// Associate records the call→document link once.
func (r *CallRepository) Associate(ctx context.Context, callID, documentID core.ID) (bool, error) {
	created := false
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		found, err := exists(tx, makeCallKey(callID))
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: call %d", storage.ErrNotFound, callID)
		}

		key := makeCallDocKey(callID, documentID)
		linked, err := exists(tx, key)
		if err != nil {
			return err
		}
		if linked {
			return nil
		}
		if err := tx.Set(key, storage.MarshalID(documentID)); err != nil {
			return err
		}
		created = true
		return tx.Commit()
	}, true)
	return created, err
}

// DocumentsForCall lists linked document IDs in ascending order.
func (r *CallRepository) DocumentsForCall(ctx context.Context, callID core.ID) ([]core.ID, error) {
	var ids []core.ID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makePartialCallDocKey(callID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			id, err := childFromPairKey(iter.Item().Key())
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	}, false)
	return ids, err
}
