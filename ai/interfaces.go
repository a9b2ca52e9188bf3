package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in
	// a batch. The returned slice contains embeddings in the same order as
	// the input texts. Returns an error if the batch as a whole fails;
	// callers that need per-text failure isolation should fall back to
	// EmbedText.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Backend is an Embedder bound to a specific model, with lifecycle
// management. Backends are created per knowledge base from its embedding
// settings and closed when the work that needed them completes.
type Backend interface {
	Embedder

	// ModelName returns the identifier of the embedding model this
	// backend talks to. Vectors produced by different models are not
	// comparable, so the name is stored alongside each vector.
	ModelName() string

	// Close releases resources held by the backend. The backend must not
	// be used after Close.
	Close() error
}
