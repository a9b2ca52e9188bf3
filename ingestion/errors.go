package ingestion

import "errors"

var (
	// ErrKnowledgeBaseRepositoryRequired is returned when creating a pipeline without a knowledge base repository.
	ErrKnowledgeBaseRepositoryRequired = errors.New("knowledge base repository is required")

	// ErrDocumentRepositoryRequired is returned when creating a pipeline without a document repository.
	ErrDocumentRepositoryRequired = errors.New("document repository is required")

	// ErrChunkRepositoryRequired is returned when creating a pipeline without a chunk repository.
	ErrChunkRepositoryRequired = errors.New("chunk repository is required")

	// ErrNoFiles is returned when Ingest is called with an empty batch.
	ErrNoFiles = errors.New("no files to ingest")
)
