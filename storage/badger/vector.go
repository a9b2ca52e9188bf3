package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/storage"
)

// VectorRepository implements storage.VectorRepository for BadgerDB.
// Vectors are keyed by chunk ID; a chunk has at most one stored vector.
type VectorRepository struct {
	backend *Backend
}

var _ storage.VectorRepository = (*VectorRepository)(nil)

// NewVectorRepository creates a new VectorRepository.
func NewVectorRepository(backend *Backend) (*VectorRepository, error) {
	return &VectorRepository{backend: backend}, nil
}

// Close is a no-op; the repository holds no sequence.
func (r *VectorRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *VectorRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// Upsert stores a vector entry for a chunk. The first vector written for
// a knowledge base and model pins the dimension; later writes with a
// different dimension fail with ErrDimensionMismatch.
func (r *VectorRepository) Upsert(ctx context.Context, kbId core.ID, entry *core.VectorEntry) (*core.VectorEntry, error) {
	if len(entry.Vector) == 0 {
		return nil, fmt.Errorf("%w: empty vector for chunk %d", storage.ErrSerializationFailed, entry.ChunkId)
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		dimKey := makeVectorDimKey(kbId, entry.ModelId)
		pinned, err := readDimension(tx, dimKey)
		if err != nil {
			return err
		}
		if pinned == 0 {
			if err := tx.Set(dimKey, encodeDimension(entry.Dimension())); err != nil {
				return err
			}
		} else if pinned != entry.Dimension() {
			return fmt.Errorf("%w: got %d, knowledge base %d stores %d for model %s",
				storage.ErrDimensionMismatch, entry.Dimension(), kbId, pinned, entry.ModelId)
		}

		entry.InsertedAt = time.Now().UTC()
		return setAndCommit(tx, makeVectorKey(entry.ChunkId), storage.MarshalVectorEntry(entry))
	}, true)

	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Get retrieves the vector entry for a chunk.
func (r *VectorRepository) Get(ctx context.Context, chunkId core.ID) (*core.VectorEntry, error) {
	var result *core.VectorEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeVectorKey(chunkId))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			result, err = storage.UnmarshalVectorEntry(val)
			return err
		})
	}, false)
	return result, err
}

// Delete removes the vector entries for the given chunks.
func (r *VectorRepository) Delete(ctx context.Context, chunkIds ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range chunkIds {
			if err := tx.Delete(makeVectorKey(id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// CountByKnowledgeBase returns how many of the knowledge base's chunks
// have a stored vector.
func (r *VectorRepository) CountByKnowledgeBase(ctx context.Context, kbId core.ID) (int, error) {
	var count int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialChunkKBKey(kbId)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := makePartialChunkKBKey(kbId)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			chunkId := core.ID(binary.BigEndian.Uint64(key[len(prefix):]))
			if _, err := tx.Get(makeVectorKey(chunkId)); err == nil {
				count++
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	}, false)
	return count, err
}

// FindSimilar scans the knowledge base's vectors and scores them against
// the query by dot product. Stored vectors are unit length, so the dot
// product is the cosine similarity.
func (r *VectorRepository) FindSimilar(ctx context.Context, kbId core.ID, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	var results []*core.SearchResult

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialChunkKBKey(kbId)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			chunkId := core.ID(binary.BigEndian.Uint64(key[len(prefix):]))

			item, err := tx.Get(makeVectorKey(chunkId))
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					// Chunk not embedded yet.
					continue
				}
				return err
			}

			var entry *core.VectorEntry
			if err := item.Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalVectorEntry(val)
				return err
			}); err != nil {
				return err
			}

			similarity := dotProduct(vector, entry.Vector)
			if similarity < minSimilarity {
				continue
			}

			chunk, err := readChunk(tx, makeChunkKey(chunkId))
			if err != nil {
				return err
			}
			if chunk == nil {
				continue
			}
			results = append(results, &core.SearchResult{
				Chunk: chunk,
				Score: similarity,
			})
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortFunc(results, func(a, b *core.SearchResult) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// makeVectorDimKey generates the key pinning a knowledge base's vector
// dimension for one model.
func makeVectorDimKey(kbId core.ID, modelId string) []byte {
	return []byte(fmt.Sprintf("vecdim:%d:%s", kbId, modelId))
}

// makePartialVectorDimKey generates a partial key covering all of a
// knowledge base's dimension pins.
func makePartialVectorDimKey(kbId core.ID) []byte {
	return []byte(fmt.Sprintf("vecdim:%d:", kbId))
}

func encodeDimension(dim int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(dim))
	return buf
}

func readDimension(tx *badger.Txn, key []byte) (int, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	var dim int
	err = item.Value(func(val []byte) error {
		dim = int(binary.BigEndian.Uint64(val))
		return nil
	})
	return dim, err
}

func setAndCommit(tx *badger.Txn, key, value []byte) error {
	if err := tx.Set(key, value); err != nil {
		return err
	}
	return tx.Commit()
}
