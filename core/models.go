package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// KnowledgeBase is the scoping container for documents, chunks, and the
// chunking/embedding/retrieval workflow configuration.
type KnowledgeBase struct {
	Id            ID
	OwnerId       ID
	Name          string
	Config        WorkflowConfig
	DocumentCount int // Recomputed after structural changes, never incremented
	ChunkCount    int
	InsertedAt    time.Time
	UpdatedAt     time.Time
}

// Document represents one ingested file within a knowledge base.
// Identity is content-addressed: at most one document may exist per
// (knowledge base, content hash) pair.
type Document struct {
	Id              ID
	KnowledgeBaseId ID
	Filename        string
	ContentHash     string // SHA-256 hex digest of the raw file bytes
	Size            int64
	Processed       bool
	ChunkCount      int
	InsertedAt      time.Time
	UpdatedAt       time.Time
}

// ChunkMetadata carries the chunking provenance of a chunk.
type ChunkMetadata struct {
	Strategy string
	Level    int // 0 for flat strategies, 1 for child chunks
	ParentId ID  // Parent chunk for hierarchical strategies, 0 otherwise
}

// Chunk is a contiguous slice of a document's text, independently
// retrievable and embeddable. Chunk indexes within a document form a
// contiguous ascending sequence starting at 0.
type Chunk struct {
	Id              ID
	DocumentId      ID
	KnowledgeBaseId ID
	Content         string
	ChunkIndex      int
	StartOffset     int // Best-effort offset into the preprocessed text
	EndOffset       int
	Metadata        ChunkMetadata
	InsertedAt      time.Time
}

// CharSize returns the number of runes in the chunk content.
func (c *Chunk) CharSize() int {
	n := 0
	for range c.Content {
		n++
	}
	return n
}

// VectorEntry stores the embedding vector for a chunk. Its lifecycle is
// independent from the chunk row: a chunk may exist without a vector until
// the embedding step catches up.
type VectorEntry struct {
	ChunkId    ID
	Vector     []float32
	ModelId    string
	Version    int
	InsertedAt time.Time
}

// Dimension returns the vector dimension, 0 when no vector is present.
func (v *VectorEntry) Dimension() int {
	return len(v.Vector)
}

// SearchResult represents a similarity search hit with its relevance score.
type SearchResult struct {
	Chunk *Chunk
	Score float32
}
