package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultWorkflowConfig(t *testing.T) {
	cfg := DefaultWorkflowConfig()

	assert.Equal(t, "general", cfg.Chunking.Strategy)
	assert.Equal(t, "\n\n", cfg.Chunking.Separator)
	assert.Equal(t, 1024, cfg.Chunking.MaxLength)
	assert.Equal(t, 50, cfg.Chunking.OverlapLength)
	assert.True(t, cfg.Chunking.Preprocessing.NormalizeUnicode)
	assert.Equal(t, EmbeddingStrategyHighQuality, cfg.Embedding.Strategy)
	assert.Equal(t, 32, cfg.Embedding.BatchSize)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
}

func TestWorkflowConfig_ApplyPatch_DeepMerge(t *testing.T) {
	cfg := DefaultWorkflowConfig()

	// Patch only one key per section; everything else must survive.
	cfg.ApplyPatch(map[string]any{
		"chunking": map[string]any{
			"max_length": 512,
		},
		"embedding": map[string]any{
			"model_name": "BAAI/bge-m3",
		},
	})

	assert.Equal(t, 512, cfg.Chunking.MaxLength)
	assert.Equal(t, "general", cfg.Chunking.Strategy, "untouched key must survive the merge")
	assert.Equal(t, 50, cfg.Chunking.OverlapLength)
	assert.Equal(t, "BAAI/bge-m3", cfg.Embedding.ModelName)
	assert.Equal(t, EmbeddingStrategyHighQuality, cfg.Embedding.Strategy)
	assert.Equal(t, 5, cfg.Retrieval.TopK, "absent section must be untouched")
}

func TestWorkflowConfig_ApplyPatch_NestedPreprocessing(t *testing.T) {
	cfg := DefaultWorkflowConfig()

	cfg.ApplyPatch(map[string]any{
		"chunking": map[string]any{
			"preprocessing": map[string]any{
				"remove_urls": true,
			},
		},
	})

	assert.True(t, cfg.Chunking.Preprocessing.RemoveURLs)
	assert.True(t, cfg.Chunking.Preprocessing.NormalizeUnicode, "nested merge must not reset siblings")
}

func TestWorkflowConfig_ApplyPatch_JSONNumbers(t *testing.T) {
	// Patches decoded from JSON carry float64 numbers.
	cfg := DefaultWorkflowConfig()

	cfg.ApplyPatch(map[string]any{
		"chunking": map[string]any{
			"max_length":     float64(2048),
			"overlap_length": float64(100),
		},
		"retrieval": map[string]any{
			"top_k":           float64(10),
			"score_threshold": 0.75,
		},
	})

	assert.Equal(t, 2048, cfg.Chunking.MaxLength)
	assert.Equal(t, 100, cfg.Chunking.OverlapLength)
	assert.Equal(t, 10, cfg.Retrieval.TopK)
	assert.InDelta(t, 0.75, cfg.Retrieval.ScoreThreshold, 1e-6)
}

func TestWorkflowConfig_ApplyPatch_IgnoresUnknownKeys(t *testing.T) {
	cfg := DefaultWorkflowConfig()

	cfg.ApplyPatch(map[string]any{
		"chunking": map[string]any{
			"no_such_key": "value",
		},
		"no_such_section": map[string]any{
			"x": 1,
		},
	})

	assert.Equal(t, DefaultWorkflowConfig(), cfg)
}
