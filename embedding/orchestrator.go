// Package embedding drives vector generation for chunks: resolving a
// knowledge base's embedding settings into a backend, batching chunks
// through it with retry, and tracking how much of the knowledge base is
// embedded.
package embedding

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/corpora/ai"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/storage"
)

const (
	defaultMaxRetries     = 3
	defaultRetryBaseDelay = time.Second
	progressInterval      = 50
)

// Result summarizes one embedding run.
type Result struct {
	// Success is true when every chunk that needed a vector got one.
	Success bool

	// ProcessedChunks counts chunks embedded in this run.
	ProcessedChunks int

	// FailedChunks counts chunks that still have no vector after the
	// run. They stay queued and are picked up by the next run.
	FailedChunks int

	// ModelName is the embedding model the run used, empty when the
	// knowledge base's strategy skips embedding.
	ModelName string
}

// Status reports how much of a knowledge base is embedded.
type Status struct {
	TotalChunks          int
	ChunksWithVectors    int
	ChunksWithoutVectors int
	ProgressPercent      float64
}

// Orchestrator coordinates embedding runs against storage and a backend
// registry.
type Orchestrator struct {
	kbRepository     storage.KnowledgeBaseRepository
	chunkRepository  storage.ChunkRepository
	vectorRepository storage.VectorRepository
	backends         *ai.Registry
	credentials      CredentialStore
	maxRetries       int
	retryBaseDelay   time.Duration
	progressWriter   io.Writer
	logger           *slog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator) error

// WithRetryPolicy sets the retry attempts and base backoff delay for
// embedding calls.
func WithRetryPolicy(maxRetries int, baseDelay time.Duration) OrchestratorOption {
	return func(o *Orchestrator) error {
		if maxRetries < 1 {
			return ErrInvalidMaxAttempts
		}
		o.maxRetries = maxRetries
		o.retryBaseDelay = baseDelay
		return nil
	}
}

// WithProgressWriter enables progress reporting to the writer during
// knowledge-base-wide runs.
func WithProgressWriter(w io.Writer) OrchestratorOption {
	return func(o *Orchestrator) error {
		o.progressWriter = w
		return nil
	}
}

// WithOrchestratorLogger sets a custom logger.
// Default is slog.Default().
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates an embedding orchestrator.
func NewOrchestrator(
	kbRepository storage.KnowledgeBaseRepository,
	chunkRepository storage.ChunkRepository,
	vectorRepository storage.VectorRepository,
	backends *ai.Registry,
	credentials CredentialStore,
	opts ...OrchestratorOption,
) (*Orchestrator, error) {
	if kbRepository == nil {
		return nil, ErrKnowledgeBaseRepositoryRequired
	}
	if chunkRepository == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if vectorRepository == nil {
		return nil, ErrVectorRepositoryRequired
	}
	if backends == nil {
		return nil, ErrBackendRegistryRequired
	}

	o := &Orchestrator{
		kbRepository:     kbRepository,
		chunkRepository:  chunkRepository,
		vectorRepository: vectorRepository,
		backends:         backends,
		credentials:      credentials,
		maxRetries:       defaultMaxRetries,
		retryBaseDelay:   defaultRetryBaseDelay,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// ProcessKnowledgeBase embeds every chunk of the knowledge base that has
// no vector yet. Running it again after a partial failure picks up only
// the chunks still missing vectors.
func (o *Orchestrator) ProcessKnowledgeBase(ctx context.Context, kbId core.ID) (*Result, error) {
	kb, err := o.kbRepository.Get(ctx, kbId)
	if err != nil {
		return nil, err
	}
	if kb.Config.Embedding.Strategy == core.EmbeddingStrategyEconomic {
		o.logger.Debug("economic strategy, skipping embedding", "kb", kbId)
		return &Result{Success: true}, nil
	}

	chunks, err := o.chunkRepository.ListWithoutVector(ctx, kbId, 0)
	if err != nil {
		return nil, err
	}
	return o.embed(ctx, kb, chunks)
}

// ProcessDocument embeds the chunks of one document that have no vector
// yet. Chunks already carrying a vector are left alone; only Regenerate
// overwrites.
func (o *Orchestrator) ProcessDocument(ctx context.Context, kbId, docId core.ID) (*Result, error) {
	kb, err := o.kbRepository.Get(ctx, kbId)
	if err != nil {
		return nil, err
	}
	if kb.Config.Embedding.Strategy == core.EmbeddingStrategyEconomic {
		return &Result{Success: true}, nil
	}

	chunks, err := o.chunkRepository.ListByDocument(ctx, docId)
	if err != nil {
		return nil, err
	}
	pending, err := o.withoutVector(ctx, chunks)
	if err != nil {
		return nil, err
	}
	return o.embed(ctx, kb, pending)
}

// Regenerate re-embeds every chunk of the knowledge base, overwriting
// vectors the chunks already have. Used after switching embedding models.
func (o *Orchestrator) Regenerate(ctx context.Context, kbId core.ID) (*Result, error) {
	kb, err := o.kbRepository.Get(ctx, kbId)
	if err != nil {
		return nil, err
	}
	if kb.Config.Embedding.Strategy == core.EmbeddingStrategyEconomic {
		return &Result{Success: true}, nil
	}

	chunks, err := o.chunkRepository.ListByKnowledgeBase(ctx, kbId)
	if err != nil {
		return nil, err
	}
	return o.embed(ctx, kb, chunks)
}

// EmbedChunk embeds a single chunk. A chunk that already carries a
// vector is left alone.
func (o *Orchestrator) EmbedChunk(ctx context.Context, kbId, chunkId core.ID) error {
	kb, err := o.kbRepository.Get(ctx, kbId)
	if err != nil {
		return err
	}
	chunk, err := o.chunkRepository.Get(ctx, chunkId)
	if err != nil {
		return err
	}
	if _, err := o.vectorRepository.Get(ctx, chunkId); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	backend, err := o.openBackend(kb)
	if err != nil {
		return err
	}
	defer backend.Close()

	bp := NewBatchProcessor(o.vectorRepository, backend, backend.ModelName(), o.maxRetries, o.retryBaseDelay)
	_, failed, err := bp.Process(ctx, kbId, []*core.Chunk{chunk})
	if err != nil {
		return err
	}
	if failed > 0 {
		return ErrChunkEmbeddingFailed
	}
	return nil
}

// Status reports embedding coverage for a knowledge base.
func (o *Orchestrator) Status(ctx context.Context, kbId core.ID) (*Status, error) {
	total, err := o.chunkRepository.CountByKnowledgeBase(ctx, kbId)
	if err != nil {
		return nil, err
	}
	embedded, err := o.vectorRepository.CountByKnowledgeBase(ctx, kbId)
	if err != nil {
		return nil, err
	}

	status := &Status{
		TotalChunks:          total,
		ChunksWithVectors:    embedded,
		ChunksWithoutVectors: total - embedded,
	}
	if total > 0 {
		status.ProgressPercent = float64(embedded) / float64(total) * 100.0
	}
	return status, nil
}

// withoutVector filters out chunks that already have a stored vector.
func (o *Orchestrator) withoutVector(ctx context.Context, chunks []*core.Chunk) ([]*core.Chunk, error) {
	var pending []*core.Chunk
	for _, chunk := range chunks {
		_, err := o.vectorRepository.Get(ctx, chunk.Id)
		if errors.Is(err, storage.ErrNotFound) {
			pending = append(pending, chunk)
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	return pending, nil
}

// embed runs the batch processor over the chunks with the knowledge
// base's backend. The backend is always closed before returning.
func (o *Orchestrator) embed(ctx context.Context, kb *core.KnowledgeBase, chunks []*core.Chunk) (*Result, error) {
	if len(chunks) == 0 {
		return &Result{Success: true}, nil
	}

	backend, err := o.openBackend(kb)
	if err != nil {
		return nil, err
	}
	defer backend.Close()

	result := &Result{ModelName: backend.ModelName()}

	var tracker *ProgressTracker
	if o.progressWriter != nil {
		tracker = NewProgressTracker(o.progressWriter, len(chunks), progressInterval)
		tracker.Start()
	}

	batchSize := kb.Config.Embedding.BatchSize
	if batchSize < 1 {
		batchSize = 32
	}

	bp := NewBatchProcessor(o.vectorRepository, backend, backend.ModelName(), o.maxRetries, o.retryBaseDelay)
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		processed, failed, err := bp.Process(ctx, kb.Id, chunks[start:end])
		if err != nil {
			return nil, err
		}
		result.ProcessedChunks += processed
		result.FailedChunks += failed
		if tracker != nil {
			tracker.Increment(end - start)
		}
	}
	if tracker != nil {
		tracker.Finish()
	}

	result.Success = result.FailedChunks == 0
	o.logger.Info("embedding run finished",
		"kb", kb.Id,
		"model", result.ModelName,
		"processed", result.ProcessedChunks,
		"failed", result.FailedChunks)
	return result, nil
}

func (o *Orchestrator) openBackend(kb *core.KnowledgeBase) (ai.Backend, error) {
	cfg, err := ResolveBackendConfig(kb, o.credentials)
	if err != nil {
		return nil, err
	}
	return o.backends.Open(cfg)
}
