// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package corpora is an embeddable knowledge base engine: documents go
// in, get deduplicated, chunked, and embedded, and come back out as
// semantic search results.
package corpora

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/corpora/ai"
	"github.com/poiesic/corpora/ai/local"
	"github.com/poiesic/corpora/ai/openai"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/embedding"
	"github.com/poiesic/corpora/ingestion"
	"github.com/poiesic/corpora/search"
	badgerstore "github.com/poiesic/corpora/storage/badger"
)

// Store is the top-level handle wiring storage, ingestion, embedding,
// and search together over one database.
type Store struct {
	repos        *badgerstore.Repositories
	backends     *ai.Registry
	credentials  embedding.CredentialStore
	pipeline     *ingestion.Pipeline
	orchestrator *embedding.Orchestrator
	searcher     *search.Searcher
	embedPool    *ants.Pool
	embedJobs    sync.WaitGroup
	logger       *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	inMemory    bool
	credentials embedding.CredentialStore
	backends    *ai.Registry
	poolSize    int
}

// WithInMemory opens a throwaway in-memory database instead of one on
// disk. Meant for tests.
func WithInMemory() StoreOption {
	return func(o *storeOptions) {
		o.inMemory = true
	}
}

// WithCredentials supplies API keys for remote embedding providers.
func WithCredentials(creds embedding.CredentialStore) StoreOption {
	return func(o *storeOptions) {
		o.credentials = creds
	}
}

// WithBackendRegistry replaces the default embedding backend registry.
func WithBackendRegistry(registry *ai.Registry) StoreOption {
	return func(o *storeOptions) {
		o.backends = registry
	}
}

// WithIngestionPoolSize sets the worker pool size for file processing.
func WithIngestionPoolSize(size int) StoreOption {
	return func(o *storeOptions) {
		o.poolSize = size
	}
}

// NewBackendRegistry returns a registry with the built-in embedding
// providers: openai, siliconflow, and local.
func NewBackendRegistry() *ai.Registry {
	registry := ai.NewRegistry()
	registry.Register(ai.ProviderOpenAI, openai.NewBackend)
	registry.Register(ai.ProviderSiliconFlow, openai.NewBackend)
	registry.Register(ai.ProviderLocal, local.NewBackend)
	return registry
}

// Open creates a Store backed by a database at filePath.
func Open(filePath string, opts ...StoreOption) (*Store, error) {
	options := &storeOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.backends == nil {
		options.backends = NewBackendRegistry()
	}

	repos, err := badgerstore.OpenRepositories(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	var pipelineOpts []ingestion.Option
	if options.poolSize > 0 {
		pipelineOpts = append(pipelineOpts, ingestion.WithPoolSize(options.poolSize))
	}
	pipeline, err := ingestion.NewPipeline(repos.KnowledgeBases, repos.Documents, repos.Chunks, pipelineOpts...)
	if err != nil {
		repos.Close()
		return nil, err
	}

	orchestrator, err := embedding.NewOrchestrator(
		repos.KnowledgeBases, repos.Chunks, repos.Vectors,
		options.backends, options.credentials,
	)
	if err != nil {
		pipeline.Release()
		repos.Close()
		return nil, err
	}

	searcher, err := search.NewSearcher(
		repos.KnowledgeBases, repos.Vectors,
		options.backends, options.credentials,
	)
	if err != nil {
		pipeline.Release()
		repos.Close()
		return nil, err
	}

	// Embedding runs are serialized on one worker: dispatch never blocks
	// an ingest call, and two runs cannot race over the same chunks.
	embedPool, err := ants.NewPool(1)
	if err != nil {
		pipeline.Release()
		repos.Close()
		return nil, err
	}

	return &Store{
		repos:        repos,
		backends:     options.backends,
		credentials:  options.credentials,
		pipeline:     pipeline,
		orchestrator: orchestrator,
		searcher:     searcher,
		embedPool:    embedPool,
		logger:       slog.Default(),
	}, nil
}

// Close waits for in-flight embedding runs, then releases the pools and
// the database.
func (s *Store) Close() error {
	s.embedJobs.Wait()
	s.embedPool.Release()
	s.pipeline.Release()
	return s.repos.Close()
}

// CreateKnowledgeBase creates a knowledge base with the default workflow
// configuration, optionally overridden by a nested config patch.
func (s *Store) CreateKnowledgeBase(ctx context.Context, ownerId core.ID, name string, configPatch map[string]any) (*core.KnowledgeBase, error) {
	cfg := core.DefaultWorkflowConfig()
	cfg.ApplyPatch(configPatch)
	if err := core.ValidateChunkingConfig(&cfg.Chunking); err != nil {
		return nil, err
	}

	kb := &core.KnowledgeBase{
		OwnerId: ownerId,
		Name:    name,
		Config:  cfg,
	}
	return s.repos.KnowledgeBases.Add(ctx, kb)
}

// GetKnowledgeBase retrieves a knowledge base by ID.
func (s *Store) GetKnowledgeBase(ctx context.Context, id core.ID) (*core.KnowledgeBase, error) {
	return s.repos.KnowledgeBases.Get(ctx, id)
}

// ListKnowledgeBases retrieves an owner's knowledge bases.
func (s *Store) ListKnowledgeBases(ctx context.Context, ownerId core.ID) ([]*core.KnowledgeBase, error) {
	return s.repos.KnowledgeBases.ListByOwner(ctx, ownerId)
}

// UpdateKnowledgeBaseConfig deep-merges a nested config patch into the
// knowledge base's workflow configuration. Config sections absent from
// the patch keep their current values.
func (s *Store) UpdateKnowledgeBaseConfig(ctx context.Context, id core.ID, patch map[string]any) (*core.KnowledgeBase, error) {
	kb, err := s.repos.KnowledgeBases.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	kb.Config.ApplyPatch(patch)
	if err := core.ValidateChunkingConfig(&kb.Config.Chunking); err != nil {
		return nil, err
	}
	return s.repos.KnowledgeBases.Update(ctx, kb)
}

// DeleteKnowledgeBase removes a knowledge base and everything under it.
func (s *Store) DeleteKnowledgeBase(ctx context.Context, id core.ID) error {
	return s.repos.KnowledgeBases.Delete(ctx, id)
}

// IngestOutcome reports what an ingestion call did.
type IngestOutcome struct {
	Ingestion *ingestion.Result

	// Embedding is the handle of the scheduled embedding run, nil when
	// the knowledge base's strategy skips embedding or no new chunks
	// were produced.
	Embedding *EmbeddingHandle
}

// EmbeddingHandle tracks an embedding run dispatched after an ingest.
type EmbeddingHandle struct {
	done   chan struct{}
	result *embedding.Result
	err    error
}

// Wait blocks until the run finishes and returns its result.
func (h *EmbeddingHandle) Wait() (*embedding.Result, error) {
	<-h.done
	return h.result, h.err
}

// Done returns a channel closed when the run finishes.
func (h *EmbeddingHandle) Done() <-chan struct{} {
	return h.done
}

// Ingest processes files into the knowledge base and, when its embedding
// strategy calls for it, schedules an embedding run for the new chunks
// on the store's worker pool. The run does not gate the ingest call;
// follow it through the returned handle or EmbeddingStatus. An embedding
// failure doesn't undo the ingestion; unembedded chunks stay queued and
// are picked up by the next ReprocessEmbeddings call.
func (s *Store) Ingest(ctx context.Context, kbId core.ID, files []ingestion.File) (*IngestOutcome, error) {
	result, err := s.pipeline.Ingest(ctx, kbId, files)
	if err != nil {
		return nil, err
	}
	outcome := &IngestOutcome{Ingestion: result}
	if result.TotalChunks == 0 {
		return outcome, nil
	}

	kb, err := s.repos.KnowledgeBases.Get(ctx, kbId)
	if err != nil {
		s.logger.Warn("skipping embedding dispatch", "kb", kbId, "err", err)
		return outcome, nil
	}
	if kb.Config.Embedding.Strategy == core.EmbeddingStrategyEconomic {
		return outcome, nil
	}

	handle := &EmbeddingHandle{done: make(chan struct{})}
	s.embedJobs.Add(1)
	err = s.embedPool.Submit(func() {
		defer s.embedJobs.Done()
		defer close(handle.done)
		// The run outlives the ingest caller's context on purpose:
		// chunks are already durable, and a cancelled upload request
		// must not strand them without vectors.
		handle.result, handle.err = s.orchestrator.ProcessKnowledgeBase(context.Background(), kbId)
		if handle.err != nil {
			s.logger.Warn("embedding after ingest failed", "kb", kbId, "err", handle.err)
		}
	})
	if err != nil {
		s.embedJobs.Done()
		s.logger.Warn("embedding dispatch failed", "kb", kbId, "err", err)
		return outcome, nil
	}
	outcome.Embedding = handle
	return outcome, nil
}

// ListDocuments retrieves the documents in a knowledge base.
func (s *Store) ListDocuments(ctx context.Context, kbId core.ID) ([]*core.Document, error) {
	return s.repos.Documents.ListByKnowledgeBase(ctx, kbId)
}

// DeleteDocument removes a document and its chunks and vectors, then
// refreshes the knowledge base statistics.
func (s *Store) DeleteDocument(ctx context.Context, kbId, docId core.ID) error {
	if err := s.repos.Documents.Delete(ctx, docId); err != nil {
		return err
	}
	_, err := s.repos.KnowledgeBases.RecomputeStatistics(ctx, kbId)
	return err
}

// ReprocessEmbeddings embeds every chunk that has no vector yet.
func (s *Store) ReprocessEmbeddings(ctx context.Context, kbId core.ID) (*embedding.Result, error) {
	return s.orchestrator.ProcessKnowledgeBase(ctx, kbId)
}

// ReprocessDocumentEmbeddings embeds all chunks of one document,
// replacing vectors the chunks already have.
func (s *Store) ReprocessDocumentEmbeddings(ctx context.Context, kbId, docId core.ID) (*embedding.Result, error) {
	return s.orchestrator.ProcessDocument(ctx, kbId, docId)
}

// RegenerateEmbeddings re-embeds every chunk, overwriting existing
// vectors. Used after switching embedding models.
func (s *Store) RegenerateEmbeddings(ctx context.Context, kbId core.ID) (*embedding.Result, error) {
	return s.orchestrator.Regenerate(ctx, kbId)
}

// EmbeddingStatus reports embedding coverage for a knowledge base.
func (s *Store) EmbeddingStatus(ctx context.Context, kbId core.ID) (*embedding.Status, error) {
	return s.orchestrator.Status(ctx, kbId)
}

// Search embeds the query text and returns the most similar chunks.
// topK <= 0 and threshold < 0 fall back to the knowledge base's
// retrieval configuration.
func (s *Store) Search(ctx context.Context, kbId core.ID, query string, topK int, threshold float32) ([]*core.SearchResult, error) {
	return s.searcher.SearchText(ctx, kbId, query, topK, threshold)
}

// SearchVector returns the chunks most similar to a precomputed query
// vector.
func (s *Store) SearchVector(ctx context.Context, kbId core.ID, queryVector []float32, topK int, threshold float32) ([]*core.SearchResult, error) {
	return s.searcher.Search(ctx, kbId, queryVector, topK, threshold)
}
