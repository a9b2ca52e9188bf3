package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/storage"
)

// KnowledgeBaseRepository implements storage.KnowledgeBaseRepository for
// BadgerDB.
type KnowledgeBaseRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.KnowledgeBaseRepository = (*KnowledgeBaseRepository)(nil)

// NewKnowledgeBaseRepository creates a new KnowledgeBaseRepository.
func NewKnowledgeBaseRepository(backend *Backend) (*KnowledgeBaseRepository, error) {
	idSeq, err := backend.GetSequence(kbIDSeq)
	if err != nil {
		return nil, err
	}

	return &KnowledgeBaseRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *KnowledgeBaseRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *KnowledgeBaseRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// Add stores a new knowledge base.
func (r *KnowledgeBaseRepository) Add(ctx context.Context, kb *core.KnowledgeBase) (*core.KnowledgeBase, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// The name uniqueness check and the index write happen in the
		// same transaction, so concurrent creates with the same name
		// conflict instead of both landing.
		nameKey := makeKBNameKey(kb.OwnerId, kb.Name)
		if _, err := tx.Get(nameKey); err == nil {
			return storage.ErrDuplicateName
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if kb.Id == 0 {
			next, err := nextID(r.idSeq)
			if err != nil {
				return err
			}
			kb.Id = core.ID(next)
		}
		kb.InsertedAt = time.Now().UTC()
		kb.UpdatedAt = kb.InsertedAt

		if err := tx.Set(makeKBKey(kb.Id), storage.MarshalKnowledgeBase(kb)); err != nil {
			return err
		}
		if err := tx.Set(nameKey, storage.MarshalID(kb.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return kb, nil
}

// Get retrieves a knowledge base by ID.
func (r *KnowledgeBaseRepository) Get(ctx context.Context, id core.ID) (*core.KnowledgeBase, error) {
	var result *core.KnowledgeBase
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readKnowledgeBase(tx, makeKBKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// FindByName retrieves an owner's knowledge base by name.
func (r *KnowledgeBaseRepository) FindByName(ctx context.Context, ownerId core.ID, name string) (*core.KnowledgeBase, error) {
	var result *core.KnowledgeBase
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		id, err := readIndexedID(tx, makeKBNameKey(ownerId, name))
		if err != nil {
			return err
		}
		result, err = readKnowledgeBase(tx, makeKBKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ListByOwner retrieves all knowledge bases belonging to an owner.
func (r *KnowledgeBaseRepository) ListByOwner(ctx context.Context, ownerId core.ID) ([]*core.KnowledgeBase, error) {
	var results []*core.KnowledgeBase
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialKBNameKey(ownerId)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var id core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			kb, err := readKnowledgeBase(tx, makeKBKey(id))
			if err != nil {
				return err
			}
			if kb != nil {
				results = append(results, kb)
			}
		}
		return nil
	}, false)
	return results, err
}

// Update stores modified fields of an existing knowledge base.
func (r *KnowledgeBaseRepository) Update(ctx context.Context, kb *core.KnowledgeBase) (*core.KnowledgeBase, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		old, err := readKnowledgeBase(tx, makeKBKey(kb.Id))
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		kb.UpdatedAt = time.Now().UTC()

		if err := tx.Set(makeKBKey(kb.Id), storage.MarshalKnowledgeBase(kb)); err != nil {
			return err
		}

		// Move the name index if the knowledge base was renamed.
		if old.Name != kb.Name || old.OwnerId != kb.OwnerId {
			if err := tx.Delete(makeKBNameKey(old.OwnerId, old.Name)); err != nil {
				return err
			}
			if err := tx.Set(makeKBNameKey(kb.OwnerId, kb.Name), storage.MarshalID(kb.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return kb, nil
}

// Delete removes a knowledge base and everything under it.
func (r *KnowledgeBaseRepository) Delete(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		kb, err := readKnowledgeBase(tx, makeKBKey(id))
		if err != nil {
			return err
		}
		if kb == nil {
			return storage.ErrNotFound
		}

		docs, err := listDocumentIDs(tx, id)
		if err != nil {
			return err
		}
		for _, docId := range docs {
			doc, err := readDocument(tx, makeDocKey(docId))
			if err != nil {
				return err
			}
			if doc == nil {
				continue
			}
			if err := deleteDocumentCascade(tx, doc); err != nil {
				return err
			}
		}

		if err := deleteByPrefix(tx, makePartialVectorDimKey(id)); err != nil {
			return err
		}
		if err := tx.Delete(makeKBNameKey(kb.OwnerId, kb.Name)); err != nil {
			return err
		}
		if err := tx.Delete(makeKBKey(id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// RecomputeStatistics recounts documents and chunks and persists the totals.
func (r *KnowledgeBaseRepository) RecomputeStatistics(ctx context.Context, id core.ID) (*core.KnowledgeBase, error) {
	var result *core.KnowledgeBase
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		kb, err := readKnowledgeBase(tx, makeKBKey(id))
		if err != nil {
			return err
		}
		if kb == nil {
			return storage.ErrNotFound
		}

		docs, err := countByPrefix(tx, makePartialDocNameKey(id))
		if err != nil {
			return err
		}
		chunks, err := countByPrefix(tx, makePartialChunkKBKey(id))
		if err != nil {
			return err
		}

		kb.DocumentCount = docs
		kb.ChunkCount = chunks
		kb.UpdatedAt = time.Now().UTC()

		if err := tx.Set(makeKBKey(id), storage.MarshalKnowledgeBase(kb)); err != nil {
			return err
		}
		result = kb
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return result, nil
}

// readKnowledgeBase reads and decodes a knowledge base record.
// Returns nil without error if the key doesn't exist.
func readKnowledgeBase(tx *badger.Txn, key []byte) (*core.KnowledgeBase, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var kb *core.KnowledgeBase
	err = item.Value(func(val []byte) error {
		var err error
		kb, err = storage.UnmarshalKnowledgeBase(val)
		return err
	})
	return kb, err
}

// readIndexedID reads an ID stored under an index key.
// Returns storage.ErrNotFound if the index entry doesn't exist.
func readIndexedID(tx *badger.Txn, key []byte) (core.ID, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, storage.ErrNotFound
		}
		return 0, err
	}

	var id core.ID
	err = item.Value(func(val []byte) error {
		var err error
		id, err = storage.UnmarshalID(val)
		return err
	})
	return id, err
}

// deleteByPrefix removes every key under a prefix within the caller's
// transaction.
func deleteByPrefix(tx *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	var keys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	iter.Close()

	for _, key := range keys {
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// countByPrefix counts keys under a prefix without loading values.
func countByPrefix(tx *badger.Txn, prefix []byte) (int, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	count := 0
	for iter.Rewind(); iter.Valid(); iter.Next() {
		count++
	}
	return count, nil
}
