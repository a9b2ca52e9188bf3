// Package search answers similarity queries over a knowledge base's
// embedded chunks.
package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/corpora/ai"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/embedding"
	"github.com/poiesic/corpora/storage"
)

// Searcher provides semantic search over chunks.
type Searcher struct {
	kbRepository     storage.KnowledgeBaseRepository
	vectorRepository storage.VectorRepository
	backends         *ai.Registry
	credentials      embedding.CredentialStore
	logger           *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher. credentials may be nil when every
// knowledge base uses a local embedding backend.
func NewSearcher(
	kbRepository storage.KnowledgeBaseRepository,
	vectorRepository storage.VectorRepository,
	backends *ai.Registry,
	credentials embedding.CredentialStore,
	opts ...Option,
) (*Searcher, error) {
	if kbRepository == nil {
		return nil, ErrKnowledgeBaseRepositoryRequired
	}
	if vectorRepository == nil {
		return nil, ErrVectorRepositoryRequired
	}
	if backends == nil {
		return nil, ErrBackendRegistryRequired
	}

	s := &Searcher{
		kbRepository:     kbRepository,
		vectorRepository: vectorRepository,
		backends:         backends,
		credentials:      credentials,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Search finds the chunks most similar to the query vector. topK <= 0
// and threshold < 0 fall back to the knowledge base's retrieval
// configuration. Scores are cosine similarities in descending order; the
// threshold filters before the topK cap, so a low-scoring chunk never
// rides in on an underfull result list.
func (s *Searcher) Search(ctx context.Context, kbId core.ID, queryVector []float32, topK int, threshold float32) ([]*core.SearchResult, error) {
	if len(queryVector) == 0 {
		return nil, ErrEmptyQueryVector
	}

	kb, err := s.kbRepository.Get(ctx, kbId)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = kb.Config.Retrieval.TopK
	}
	if topK <= 0 {
		topK = 5
	}
	if threshold < 0 {
		threshold = kb.Config.Retrieval.ScoreThreshold
	}

	results, err := s.vectorRepository.FindSimilar(ctx, kbId, embedding.NormalizeVector(queryVector), threshold, topK)
	if err != nil {
		s.logger.Error("error querying for similar chunks", "kb", kbId, "err", err)
		return nil, err
	}
	return results, nil
}

// SearchText embeds the query with the knowledge base's backend and
// searches with the resulting vector.
func (s *Searcher) SearchText(ctx context.Context, kbId core.ID, query string, topK int, threshold float32) ([]*core.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	kb, err := s.kbRepository.Get(ctx, kbId)
	if err != nil {
		return nil, err
	}

	cfg, err := embedding.ResolveBackendConfig(kb, s.credentials)
	if err != nil {
		return nil, err
	}
	backend, err := s.backends.Open(cfg)
	if err != nil {
		return nil, err
	}
	defer backend.Close()

	queryVector, err := backend.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "kb", kbId, "err", err)
		return nil, err
	}
	return s.Search(ctx, kbId, queryVector, topK, threshold)
}
