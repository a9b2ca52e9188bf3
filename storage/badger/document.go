package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	idSeq, err := backend.GetSequence(docIDSeq)
	if err != nil {
		return nil, err
	}

	return &DocumentRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *DocumentRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *DocumentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// Add stores a new document. The content hash uniqueness check and the
// insert run in one transaction, so two concurrent uploads of identical
// content cannot both land: the loser's commit conflicts, and the retry
// sees the winner's hash row and reports the duplicate.
func (r *DocumentRepository) Add(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	err := r.addTx(doc)
	if errors.Is(err, badger.ErrConflict) {
		err = r.addTx(doc)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *DocumentRepository) addTx(doc *core.Document) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		hashKey := makeDocHashKey(doc.KnowledgeBaseId, doc.ContentHash)
		if _, err := tx.Get(hashKey); err == nil {
			return storage.ErrDuplicateContent
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if doc.Id == 0 {
			next, err := nextID(r.idSeq)
			if err != nil {
				return err
			}
			doc.Id = core.ID(next)
		}
		doc.InsertedAt = time.Now().UTC()
		doc.UpdatedAt = doc.InsertedAt

		if err := tx.Set(makeDocKey(doc.Id), storage.MarshalDocument(doc)); err != nil {
			return err
		}
		if err := tx.Set(hashKey, storage.MarshalID(doc.Id)); err != nil {
			return err
		}
		nameKey := makeDocNameKey(doc.KnowledgeBaseId, doc.Filename)
		if err := tx.Set(nameKey, storage.MarshalID(doc.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Get retrieves a document by ID.
func (r *DocumentRepository) Get(ctx context.Context, id core.ID) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readDocument(tx, makeDocKey(id))
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

// FindByFilename retrieves a document by knowledge base and filename.
func (r *DocumentRepository) FindByFilename(ctx context.Context, kbId core.ID, filename string) (*core.Document, error) {
	return r.findIndexed(makeDocNameKey(kbId, filename))
}

// FindByContentHash retrieves a document by knowledge base and content hash.
func (r *DocumentRepository) FindByContentHash(ctx context.Context, kbId core.ID, hash string) (*core.Document, error) {
	return r.findIndexed(makeDocHashKey(kbId, hash))
}

func (r *DocumentRepository) findIndexed(indexKey []byte) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		id, err := readIndexedID(tx, indexKey)
		if err != nil {
			return err
		}
		result, err = readDocument(tx, makeDocKey(id))
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

// ListByKnowledgeBase retrieves all documents in a knowledge base,
// ordered by filename.
func (r *DocumentRepository) ListByKnowledgeBase(ctx context.Context, kbId core.ID) ([]*core.Document, error) {
	var results []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := listDocumentIDs(tx, kbId)
		if err != nil {
			return err
		}
		for _, id := range ids {
			doc, err := readDocument(tx, makeDocKey(id))
			if err != nil {
				return err
			}
			if doc != nil {
				results = append(results, doc)
			}
		}
		return nil
	}, false)
	return results, err
}

// Update stores modified fields of an existing document.
func (r *DocumentRepository) Update(ctx context.Context, doc *core.Document) (*core.Document, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		old, err := readDocument(tx, makeDocKey(doc.Id))
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		doc.UpdatedAt = time.Now().UTC()

		if err := tx.Set(makeDocKey(doc.Id), storage.MarshalDocument(doc)); err != nil {
			return err
		}

		// Move the hash index if the content changed.
		if old.ContentHash != doc.ContentHash {
			if err := tx.Delete(makeDocHashKey(old.KnowledgeBaseId, old.ContentHash)); err != nil {
				return err
			}
			hashKey := makeDocHashKey(doc.KnowledgeBaseId, doc.ContentHash)
			if err := tx.Set(hashKey, storage.MarshalID(doc.Id)); err != nil {
				return err
			}
		}
		if old.Filename != doc.Filename {
			if err := tx.Delete(makeDocNameKey(old.KnowledgeBaseId, old.Filename)); err != nil {
				return err
			}
			nameKey := makeDocNameKey(doc.KnowledgeBaseId, doc.Filename)
			if err := tx.Set(nameKey, storage.MarshalID(doc.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes a document along with its chunks and vectors.
func (r *DocumentRepository) Delete(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		doc, err := readDocument(tx, makeDocKey(id))
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}
		if err := deleteDocumentCascade(tx, doc); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// readDocument reads and decodes a document record.
// Returns nil without error if the key doesn't exist.
func readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	return doc, err
}

// listDocumentIDs collects the IDs of a knowledge base's documents from
// the filename index.
func listDocumentIDs(tx *badger.Txn, kbId core.ID) ([]core.ID, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialDocNameKey(kbId)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var ids []core.ID
	for iter.Rewind(); iter.Valid(); iter.Next() {
		var id core.ID
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			id, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// deleteDocumentCascade removes a document, its index entries, its
// chunks, and their vectors within the caller's transaction.
func deleteDocumentCascade(tx *badger.Txn, doc *core.Document) error {
	chunkIds, err := listChunkIDsByDocument(tx, doc.Id)
	if err != nil {
		return err
	}
	for _, pair := range chunkIds {
		if err := tx.Delete(makeVectorKey(pair.id)); err != nil {
			return err
		}
		if err := tx.Delete(makeChunkKBKey(doc.KnowledgeBaseId, pair.id)); err != nil {
			return err
		}
		if err := tx.Delete(makeChunkDocKey(doc.Id, pair.index)); err != nil {
			return err
		}
		if err := tx.Delete(makeChunkKey(pair.id)); err != nil {
			return err
		}
	}

	if err := tx.Delete(makeDocHashKey(doc.KnowledgeBaseId, doc.ContentHash)); err != nil {
		return err
	}
	if err := tx.Delete(makeDocNameKey(doc.KnowledgeBaseId, doc.Filename)); err != nil {
		return err
	}
	return tx.Delete(makeDocKey(doc.Id))
}
