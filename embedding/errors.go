package embedding

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when retry is configured with a
	// non-positive attempt count.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrKnowledgeBaseRepositoryRequired is returned when creating an orchestrator without a knowledge base repository.
	ErrKnowledgeBaseRepositoryRequired = errors.New("knowledge base repository is required")

	// ErrChunkRepositoryRequired is returned when creating an orchestrator without a chunk repository.
	ErrChunkRepositoryRequired = errors.New("chunk repository is required")

	// ErrVectorRepositoryRequired is returned when creating an orchestrator without a vector repository.
	ErrVectorRepositoryRequired = errors.New("vector repository is required")

	// ErrBackendRegistryRequired is returned when creating an orchestrator without a backend registry.
	ErrBackendRegistryRequired = errors.New("backend registry is required")

	// ErrMissingCredential is returned when a remote provider has no
	// stored API key.
	ErrMissingCredential = errors.New("no credential stored for provider")

	// ErrChunkEmbeddingFailed is returned when a single-chunk embedding
	// run exhausts its retries.
	ErrChunkEmbeddingFailed = errors.New("chunk embedding failed")
)
