package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpora/ai"
	"github.com/poiesic/corpora/ai/mock"
	"github.com/poiesic/corpora/core"
	badgerstore "github.com/poiesic/corpora/storage/badger"
)

type testEnv struct {
	repos   *badgerstore.Repositories
	kb      *core.KnowledgeBase
	backend *mock.MockBackend
	orch    *Orchestrator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repos, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	kb := &core.KnowledgeBase{OwnerId: 1, Name: "kb", Config: core.DefaultWorkflowConfig()}
	kb.Config.Embedding.Provider = ai.ProviderLocal
	kb.Config.Embedding.ModelName = "mock-embedder"
	kb, err = repos.KnowledgeBases.Add(context.Background(), kb)
	require.NoError(t, err)

	backend := mock.NewMockBackend()
	registry := ai.NewRegistry()
	require.NoError(t, registry.Register(ai.ProviderLocal, func(cfg *ai.BackendConfig) (ai.Backend, error) {
		return backend, nil
	}))

	orch, err := NewOrchestrator(
		repos.KnowledgeBases, repos.Chunks, repos.Vectors,
		registry, nil,
		WithRetryPolicy(1, time.Millisecond),
	)
	require.NoError(t, err)

	return &testEnv{repos: repos, kb: kb, backend: backend, orch: orch}
}

func (e *testEnv) addChunks(t *testing.T, n int) []*core.Chunk {
	t.Helper()
	chunks := make([]*core.Chunk, n)
	for i := range chunks {
		chunks[i] = &core.Chunk{
			DocumentId:      10,
			KnowledgeBaseId: e.kb.Id,
			Content:         fmt.Sprintf("chunk number %d", i),
			ChunkIndex:      i,
		}
	}
	chunks, err := e.repos.Chunks.AddChunks(context.Background(), chunks...)
	require.NoError(t, err)
	return chunks
}

func TestProcessKnowledgeBase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addChunks(t, 5)

	result, err := env.orch.ProcessKnowledgeBase(ctx, env.kb.Id)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 5, result.ProcessedChunks)
	assert.Equal(t, 0, result.FailedChunks)
	assert.Equal(t, "mock-embedder", result.ModelName)

	status, err := env.orch.Status(ctx, env.kb.Id)
	require.NoError(t, err)
	assert.Equal(t, 5, status.TotalChunks)
	assert.Equal(t, 5, status.ChunksWithVectors)
	assert.Equal(t, 0, status.ChunksWithoutVectors)
	assert.InDelta(t, 100.0, status.ProgressPercent, 0.01)
}

func TestProcessStoresNormalizedVectors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	chunks := env.addChunks(t, 1)

	env.backend.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{3, 4}}, nil
	}

	_, err := env.orch.ProcessKnowledgeBase(ctx, env.kb.Id)
	require.NoError(t, err)

	entry, err := env.repos.Vectors.Get(ctx, chunks[0].Id)
	require.NoError(t, err)
	var norm float64
	for _, v := range entry.Vector {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestProcessPartialFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addChunks(t, 10)

	poisoned := "chunk number 4"
	env.backend.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("batch rejected")
	}
	env.backend.EmbedTextFunc = func(_ context.Context, text string) ([]float32, error) {
		if text == poisoned {
			return nil, errors.New("token limit exceeded")
		}
		return mock.DeterministicVector(text, 8), nil
	}

	result, err := env.orch.ProcessKnowledgeBase(ctx, env.kb.Id)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 9, result.ProcessedChunks)
	assert.Equal(t, 1, result.FailedChunks)

	// The failed chunk is still queued and a later run picks it up.
	// The replacement batch keeps the dimension the earlier vectors
	// pinned for this knowledge base.
	env.backend.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.DeterministicVector(text, 8)
		}
		return out, nil
	}
	env.backend.EmbedTextFunc = nil
	result, err = env.orch.ProcessKnowledgeBase(ctx, env.kb.Id)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.ProcessedChunks)
}

func TestProcessSkipsEmbeddedChunks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addChunks(t, 3)

	_, err := env.orch.ProcessKnowledgeBase(ctx, env.kb.Id)
	require.NoError(t, err)

	result, err := env.orch.ProcessKnowledgeBase(ctx, env.kb.Id)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.ProcessedChunks)
}

func TestProcessDocumentSkipsEmbeddedChunks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	chunks := env.addChunks(t, 3)

	result, err := env.orch.ProcessDocument(ctx, env.kb.Id, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, result.ProcessedChunks)
	first, err := env.repos.Vectors.Get(ctx, chunks[0].Id)
	require.NoError(t, err)

	calls := env.backend.CallCount()
	result, err = env.orch.ProcessDocument(ctx, env.kb.Id, 10)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.ProcessedChunks)
	assert.Equal(t, calls, env.backend.CallCount())

	// Reprocessing never replaces a vector; only Regenerate does.
	second, err := env.repos.Vectors.Get(ctx, chunks[0].Id)
	require.NoError(t, err)
	assert.Equal(t, first.Version, second.Version)
}

func TestEmbedChunkSkipsEmbedded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	chunks := env.addChunks(t, 1)

	require.NoError(t, env.orch.EmbedChunk(ctx, env.kb.Id, chunks[0].Id))
	first, err := env.repos.Vectors.Get(ctx, chunks[0].Id)
	require.NoError(t, err)
	calls := env.backend.CallCount()

	require.NoError(t, env.orch.EmbedChunk(ctx, env.kb.Id, chunks[0].Id))
	assert.Equal(t, calls, env.backend.CallCount())
	second, err := env.repos.Vectors.Get(ctx, chunks[0].Id)
	require.NoError(t, err)
	assert.Equal(t, first.Version, second.Version)
}

func TestProcessFallsBackOnCountMismatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addChunks(t, 4)

	// A backend answering with the wrong number of vectors is treated
	// like a failed batch call: the chunks are retried one at a time.
	env.backend.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		return make([][]float32, len(texts)-1), nil
	}

	result, err := env.orch.ProcessKnowledgeBase(ctx, env.kb.Id)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 4, result.ProcessedChunks)
	assert.Equal(t, 0, result.FailedChunks)
}

func TestEconomicStrategySkipsEmbedding(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addChunks(t, 3)

	env.kb.Config.Embedding.Strategy = core.EmbeddingStrategyEconomic
	_, err := env.repos.KnowledgeBases.Update(ctx, env.kb)
	require.NoError(t, err)

	result, err := env.orch.ProcessKnowledgeBase(ctx, env.kb.Id)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.ProcessedChunks)
	assert.Equal(t, 0, env.backend.CallCount())
}

func TestRegenerateBumpsVersion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	chunks := env.addChunks(t, 2)

	_, err := env.orch.ProcessKnowledgeBase(ctx, env.kb.Id)
	require.NoError(t, err)
	first, err := env.repos.Vectors.Get(ctx, chunks[0].Id)
	require.NoError(t, err)

	result, err := env.orch.Regenerate(ctx, env.kb.Id)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.ProcessedChunks)

	second, err := env.repos.Vectors.Get(ctx, chunks[0].Id)
	require.NoError(t, err)
	assert.Greater(t, second.Version, first.Version)
}

func TestEmbedChunk(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	chunks := env.addChunks(t, 1)

	require.NoError(t, env.orch.EmbedChunk(ctx, env.kb.Id, chunks[0].Id))

	entry, err := env.repos.Vectors.Get(ctx, chunks[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "mock-embedder", entry.ModelId)
}

func TestResolveBackendConfigDefaults(t *testing.T) {
	kb := &core.KnowledgeBase{Config: core.DefaultWorkflowConfig()}

	cfg, err := ResolveBackendConfig(kb, StaticCredentials{ai.ProviderSiliconFlow: "sk-sf"})
	require.NoError(t, err)
	assert.Equal(t, ai.ProviderSiliconFlow, cfg.Provider)
	assert.Equal(t, "BAAI/bge-large-zh-v1.5", cfg.ModelName)
	assert.Equal(t, "sk-sf", cfg.APIKey)
}

func TestResolveBackendConfigMissingCredential(t *testing.T) {
	kb := &core.KnowledgeBase{Config: core.DefaultWorkflowConfig()}
	kb.Config.Embedding.Provider = ai.ProviderOpenAI

	_, err := ResolveBackendConfig(kb, StaticCredentials{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestResolveBackendConfigLocalNeedsNoCredential(t *testing.T) {
	kb := &core.KnowledgeBase{Config: core.DefaultWorkflowConfig()}
	kb.Config.Embedding.Provider = ai.ProviderLocal
	kb.Config.Embedding.ModelName = "bge-m3"

	cfg, err := ResolveBackendConfig(kb, nil)
	require.NoError(t, err)
	assert.Equal(t, "bge-m3", cfg.ModelName)
	assert.Empty(t, cfg.APIKey)
}
