package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/storage"
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

// AddChunks stores all chunks atomically. The chunks are validated as a
// sequence first, so a gap or out-of-order index rejects the whole batch
// before anything is written.
func (r *ChunkRepository) AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	if err := core.ValidateChunkSequence(chunks); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			if chunk.Id == 0 {
				next, err := nextID(r.idSeq)
				if err != nil {
					return err
				}
				chunk.Id = core.ID(next)
			}
			chunk.InsertedAt = time.Now().UTC()

			if err := tx.Set(makeChunkKey(chunk.Id), storage.MarshalChunk(chunk)); err != nil {
				return err
			}
			docKey := makeChunkDocKey(chunk.DocumentId, chunk.ChunkIndex)
			if err := tx.Set(docKey, storage.MarshalID(chunk.Id)); err != nil {
				return err
			}
			kbKey := makeChunkKBKey(chunk.KnowledgeBaseId, chunk.Id)
			if err := tx.Set(kbKey, storage.MarshalID(chunk.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// Get retrieves a chunk by ID.
func (r *ChunkRepository) Get(ctx context.Context, id core.ID) (*core.Chunk, error) {
	var result *core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readChunk(tx, makeChunkKey(id))
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

// ListByDocument retrieves a document's chunks in ChunkIndex order. The
// index keys carry the chunk index in BigEndian, so plain iteration
// already yields document order.
func (r *ChunkRepository) ListByDocument(ctx context.Context, docId core.ID) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		refs, err := listChunkIDsByDocument(tx, docId)
		if err != nil {
			return err
		}
		for _, ref := range refs {
			chunk, err := readChunk(tx, makeChunkKey(ref.id))
			if err != nil {
				return err
			}
			if chunk != nil {
				results = append(results, chunk)
			}
		}
		return nil
	}, false)
	return results, err
}

// ListByKnowledgeBase retrieves all chunks in a knowledge base.
func (r *ChunkRepository) ListByKnowledgeBase(ctx context.Context, kbId core.ID) ([]*core.Chunk, error) {
	return r.listByKB(kbId, 0, 0, vectorAny)
}

// ListWithoutVector retrieves chunks in a knowledge base that have no
// stored vector.
func (r *ChunkRepository) ListWithoutVector(ctx context.Context, kbId core.ID, limit int) ([]*core.Chunk, error) {
	return r.listByKB(kbId, 0, limit, vectorMissing)
}

// ListWithVector retrieves chunks in a knowledge base that have a stored
// vector, skipping the first offset matches.
func (r *ChunkRepository) ListWithVector(ctx context.Context, kbId core.ID, offset, limit int) ([]*core.Chunk, error) {
	return r.listByKB(kbId, offset, limit, vectorPresent)
}

// vectorFilter selects chunks by whether a vector is stored for them.
type vectorFilter int

const (
	vectorAny vectorFilter = iota
	vectorMissing
	vectorPresent
)

func (r *ChunkRepository) listByKB(kbId core.ID, offset, limit int, filter vectorFilter) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialChunkKBKey(kbId)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		skipped := 0
		for iter.Rewind(); iter.Valid(); iter.Next() {
			var id core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			if filter != vectorAny {
				_, err := tx.Get(makeVectorKey(id))
				if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
					return err
				}
				hasVector := err == nil
				if hasVector != (filter == vectorPresent) {
					continue
				}
			}
			if skipped < offset {
				skipped++
				continue
			}

			chunk, err := readChunk(tx, makeChunkKey(id))
			if err != nil {
				return err
			}
			if chunk != nil {
				results = append(results, chunk)
				if limit > 0 && len(results) >= limit {
					return nil
				}
			}
		}
		return nil
	}, false)
	return results, err
}

// CountByKnowledgeBase returns the number of chunks in a knowledge base.
func (r *ChunkRepository) CountByKnowledgeBase(ctx context.Context, kbId core.ID) (int, error) {
	var count int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		count, err = countByPrefix(tx, makePartialChunkKBKey(kbId))
		return err
	}, false)
	return count, err
}

// DeleteByDocument removes all chunks of a document along with their
// vectors.
func (r *ChunkRepository) DeleteByDocument(ctx context.Context, docId core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		refs, err := listChunkIDsByDocument(tx, docId)
		if err != nil {
			return err
		}
		for _, ref := range refs {
			chunk, err := readChunk(tx, makeChunkKey(ref.id))
			if err != nil {
				return err
			}
			if chunk != nil {
				if err := tx.Delete(makeChunkKBKey(chunk.KnowledgeBaseId, ref.id)); err != nil {
					return err
				}
			}
			if err := tx.Delete(makeVectorKey(ref.id)); err != nil {
				return err
			}
			if err := tx.Delete(makeChunkDocKey(docId, ref.index)); err != nil {
				return err
			}
			if err := tx.Delete(makeChunkKey(ref.id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// chunkRef pairs a chunk ID with its position in the document.
type chunkRef struct {
	id    core.ID
	index int
}

// listChunkIDsByDocument collects a document's chunk references from the
// document index, in ChunkIndex order.
func listChunkIDsByDocument(tx *badger.Txn, docId core.ID) ([]chunkRef, error) {
	prefix := makePartialChunkDocKey(docId)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var refs []chunkRef
	for iter.Rewind(); iter.Valid(); iter.Next() {
		key := iter.Item().Key()
		index := int(binary.BigEndian.Uint64(key[len(prefix):]))

		var id core.ID
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			id, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return nil, err
		}
		refs = append(refs, chunkRef{id: id, index: index})
	}
	return refs, nil
}

// readChunk reads and decodes a chunk record.
// Returns nil without error if the key doesn't exist.
func readChunk(tx *badger.Txn, key []byte) (*core.Chunk, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var chunk *core.Chunk
	err = item.Value(func(val []byte) error {
		var err error
		chunk, err = storage.UnmarshalChunk(val)
		return err
	})
	return chunk, err
}
