package storage

import (
	"context"

	"github.com/poiesic/corpora/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the repository and releases resources.
	Close() error
}

// KnowledgeBaseRepository provides operations for managing knowledge bases.
type KnowledgeBaseRepository interface {
	Repository

	// Add stores a new knowledge base. For Id=0, generates a new ID from
	// sequence. Sets InsertedAt/UpdatedAt timestamps.
	// Returns ErrDuplicateName if the owner already has a knowledge base
	// with the same name.
	Add(ctx context.Context, kb *core.KnowledgeBase) (*core.KnowledgeBase, error)

	// Get retrieves a knowledge base by ID.
	// Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id core.ID) (*core.KnowledgeBase, error)

	// FindByName retrieves an owner's knowledge base by name.
	// Returns ErrNotFound if it doesn't exist.
	FindByName(ctx context.Context, ownerId core.ID, name string) (*core.KnowledgeBase, error)

	// ListByOwner retrieves all knowledge bases belonging to an owner.
	ListByOwner(ctx context.Context, ownerId core.ID) ([]*core.KnowledgeBase, error)

	// Update stores modified fields of an existing knowledge base and
	// refreshes UpdatedAt. Returns ErrNotFound if it doesn't exist.
	Update(ctx context.Context, kb *core.KnowledgeBase) (*core.KnowledgeBase, error)

	// Delete removes a knowledge base together with all of its documents,
	// chunks, and vectors. The cascade runs in a single transaction.
	// Returns ErrNotFound if it doesn't exist.
	Delete(ctx context.Context, id core.ID) error

	// RecomputeStatistics counts the knowledge base's documents and chunks
	// from storage and persists the fresh totals. Counting beats
	// incremental arithmetic here: a recount after every mutation cannot
	// drift, no matter what failed halfway before it.
	RecomputeStatistics(ctx context.Context, id core.ID) (*core.KnowledgeBase, error)
}

// DocumentRepository provides operations for managing documents.
type DocumentRepository interface {
	Repository

	// Add stores a new document. For Id=0, generates a new ID from
	// sequence. Sets InsertedAt/UpdatedAt timestamps.
	// Returns ErrDuplicateContent if the knowledge base already holds a
	// document with the same content hash.
	Add(ctx context.Context, doc *core.Document) (*core.Document, error)

	// Get retrieves a document by ID.
	// Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id core.ID) (*core.Document, error)

	// FindByFilename retrieves a document by knowledge base and filename.
	// Returns ErrNotFound if it doesn't exist.
	FindByFilename(ctx context.Context, kbId core.ID, filename string) (*core.Document, error)

	// FindByContentHash retrieves a document by knowledge base and content
	// hash. Returns ErrNotFound if it doesn't exist.
	FindByContentHash(ctx context.Context, kbId core.ID, hash string) (*core.Document, error)

	// ListByKnowledgeBase retrieves all documents in a knowledge base.
	ListByKnowledgeBase(ctx context.Context, kbId core.ID) ([]*core.Document, error)

	// Update stores modified fields of an existing document and refreshes
	// UpdatedAt. Returns ErrNotFound if it doesn't exist.
	Update(ctx context.Context, doc *core.Document) (*core.Document, error)

	// Delete removes a document together with its chunks and vectors in a
	// single transaction. Returns ErrNotFound if it doesn't exist.
	Delete(ctx context.Context, id core.ID) error
}

// ChunkRepository provides operations for managing chunks.
type ChunkRepository interface {
	Repository

	// AddChunks stores all chunks of one document atomically: either every
	// chunk lands or none do. For Id=0, generates new IDs from sequence.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// Get retrieves a chunk by ID.
	// Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id core.ID) (*core.Chunk, error)

	// ListByDocument retrieves a document's chunks ordered by ChunkIndex.
	ListByDocument(ctx context.Context, docId core.ID) ([]*core.Chunk, error)

	// ListByKnowledgeBase retrieves all chunks in a knowledge base.
	ListByKnowledgeBase(ctx context.Context, kbId core.ID) ([]*core.Chunk, error)

	// ListWithoutVector retrieves chunks in a knowledge base that have no
	// stored vector, up to limit. limit <= 0 means no limit.
	ListWithoutVector(ctx context.Context, kbId core.ID, limit int) ([]*core.Chunk, error)

	// ListWithVector retrieves chunks in a knowledge base that have a
	// stored vector, skipping the first offset matches and returning at
	// most limit. limit <= 0 means no limit.
	ListWithVector(ctx context.Context, kbId core.ID, offset, limit int) ([]*core.Chunk, error)

	// CountByKnowledgeBase returns the number of chunks in a knowledge base.
	CountByKnowledgeBase(ctx context.Context, kbId core.ID) (int, error)

	// DeleteByDocument removes all chunks of a document along with their
	// vectors.
	DeleteByDocument(ctx context.Context, docId core.ID) error
}

// VectorRepository provides operations for managing embedding vectors.
type VectorRepository interface {
	Repository

	// Upsert stores a vector entry for a chunk, replacing any previous
	// vector. Returns ErrDimensionMismatch if the entry's dimension
	// differs from vectors already stored for the same knowledge base and
	// model.
	Upsert(ctx context.Context, kbId core.ID, entry *core.VectorEntry) (*core.VectorEntry, error)

	// Get retrieves the vector entry for a chunk.
	// Returns ErrNotFound if the chunk has no vector.
	Get(ctx context.Context, chunkId core.ID) (*core.VectorEntry, error)

	// Delete removes the vector entries for the given chunks. Chunks
	// without vectors are skipped.
	Delete(ctx context.Context, chunkIds ...core.ID) error

	// CountByKnowledgeBase returns the number of chunks in a knowledge
	// base that have a stored vector.
	CountByKnowledgeBase(ctx context.Context, kbId core.ID) (int, error)

	// FindSimilar finds chunks in a knowledge base similar to the given
	// vector. Returns chunks with similarity >= minSimilarity, up to limit
	// results, ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, kbId core.ID, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)
}
