package embedding

import (
	"context"
	"time"

	"github.com/poiesic/corpora/ai"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/storage"
)

// BatchProcessor generates embeddings for batches of chunks and stores
// the resulting vectors.
type BatchProcessor struct {
	vectors        storage.VectorRepository
	embedder       ai.Embedder
	modelName      string
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of retry attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(vectors storage.VectorRepository, embedder ai.Embedder, modelName string, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		vectors:        vectors,
		embedder:       embedder,
		modelName:      modelName,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process embeds a batch of chunks and upserts their vectors. The batch
// call is tried first; if it keeps failing, each chunk is retried on its
// own, so one poisoned chunk costs only itself, not its batchmates.
// Returns how many chunks were embedded and how many failed.
func (bp *BatchProcessor) Process(ctx context.Context, kbId core.ID, chunks []*core.Chunk) (int, int, error) {
	if len(chunks) == 0 {
		return 0, 0, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		vectors, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)

	if err != nil {
		if ctx.Err() != nil {
			return 0, 0, ctx.Err()
		}
		return bp.processIndividually(ctx, kbId, chunks)
	}

	if len(vectors) != len(chunks) {
		// A backend returning the wrong count is as unusable as a failed
		// batch call; retry the chunks one at a time.
		return bp.processIndividually(ctx, kbId, chunks)
	}

	processed, failed := 0, 0
	for i, chunk := range chunks {
		if err := bp.store(ctx, kbId, chunk, vectors[i]); err != nil {
			failed++
			continue
		}
		processed++
	}
	return processed, failed, nil
}

// processIndividually embeds chunks one at a time after a batch failure.
func (bp *BatchProcessor) processIndividually(ctx context.Context, kbId core.ID, chunks []*core.Chunk) (int, int, error) {
	processed, failed := 0, 0
	for _, chunk := range chunks {
		if ctx.Err() != nil {
			return processed, failed, ctx.Err()
		}

		var vector []float32
		err := RetryWithBackoff(ctx, func() error {
			var err error
			vector, err = bp.embedder.EmbedText(ctx, chunk.Content)
			return err
		}, bp.maxRetries, bp.retryBaseDelay)
		if err != nil {
			failed++
			continue
		}

		if err := bp.store(ctx, kbId, chunk, vector); err != nil {
			failed++
			continue
		}
		processed++
	}
	return processed, failed, nil
}

// store normalizes a vector and upserts it for the chunk. Vectors are
// stored unit length so search can score by dot product.
func (bp *BatchProcessor) store(ctx context.Context, kbId core.ID, chunk *core.Chunk, vector []float32) error {
	version := 1
	if existing, err := bp.vectors.Get(ctx, chunk.Id); err == nil {
		version = existing.Version + 1
	}

	entry := &core.VectorEntry{
		ChunkId: chunk.Id,
		Vector:  NormalizeVector(vector),
		ModelId: bp.modelName,
		Version: version,
	}
	_, err := bp.vectors.Upsert(ctx, kbId, entry)
	return err
}
