package search

import "errors"

var (
	// ErrKnowledgeBaseRepositoryRequired is returned when creating a searcher without a knowledge base repository.
	ErrKnowledgeBaseRepositoryRequired = errors.New("knowledge base repository is required")

	// ErrVectorRepositoryRequired is returned when creating a searcher without a vector repository.
	ErrVectorRepositoryRequired = errors.New("vector repository is required")

	// ErrBackendRegistryRequired is returned when creating a searcher without a backend registry.
	ErrBackendRegistryRequired = errors.New("backend registry is required")

	// ErrEmptyQuery is returned when a text search is given a blank query.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrEmptyQueryVector is returned when a vector search is given an
	// empty vector.
	ErrEmptyQueryVector = errors.New("query vector is empty")
)
