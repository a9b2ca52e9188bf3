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


package core

// Embedding strategy values. The economic strategy skips embedding work
// entirely; only high_quality schedules vector generation.
const (
	EmbeddingStrategyEconomic    = "economic"
	EmbeddingStrategyHighQuality = "high_quality"
)

// PreprocessingConfig controls text cleanup applied before chunking.
type PreprocessingConfig struct {
	RemoveExtraWhitespace bool
	RemoveURLs            bool
	RemoveEmails          bool
	NormalizeUnicode      bool
}

// ChunkingConfig fixes the splitting behavior for a knowledge base.
type ChunkingConfig struct {
	Strategy      string // "general" or "parent_child"
	Separator     string
	MaxLength     int
	OverlapLength int
	Preprocessing PreprocessingConfig

	// Parent-child strategy settings. Zero values fall back to the
	// top-level separator and max length.
	ParentSeparator string
	ParentMaxLength int
	ChildSeparator  string
	ChildMaxLength  int
}

// EmbeddingSettings is the knowledge-base side of embedding configuration.
// Provider credentials come from the credential store at resolution time.
type EmbeddingSettings struct {
	Strategy  string
	ModelName string
	Provider  string
	BatchSize int
}

// RetrievalConfig fixes query-time behavior.
type RetrievalConfig struct {
	Strategy       string
	TopK           int
	ScoreThreshold float32
	EnableRerank   bool
}

// WorkflowConfig is the nested, partially overridable configuration stored
// on a knowledge base.
type WorkflowConfig struct {
	Chunking  ChunkingConfig
	Embedding EmbeddingSettings
	Retrieval RetrievalConfig
}

// DefaultWorkflowConfig returns the configuration applied to a knowledge
// base created without explicit settings.
func DefaultWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		Chunking: ChunkingConfig{
			Strategy:      "general",
			Separator:     "\n\n",
			MaxLength:     1024,
			OverlapLength: 50,
			Preprocessing: PreprocessingConfig{
				NormalizeUnicode: true,
			},
		},
		Embedding: EmbeddingSettings{
			Strategy:  EmbeddingStrategyHighQuality,
			BatchSize: 32,
		},
		Retrieval: RetrievalConfig{
			Strategy:       "vector",
			TopK:           5,
			ScoreThreshold: 0,
		},
	}
}

// ApplyPatch deep-merges recognized keys from a nested patch into the
// config. Sections absent from the patch are untouched; within a section
// only the keys present are overridden. Unrecognized keys are ignored.
func (c *WorkflowConfig) ApplyPatch(patch map[string]any) {
	if patch == nil {
		return
	}
	if section, ok := patch["chunking"].(map[string]any); ok {
		c.Chunking.applyPatch(section)
	}
	if section, ok := patch["embedding"].(map[string]any); ok {
		c.Embedding.applyPatch(section)
	}
	if section, ok := patch["retrieval"].(map[string]any); ok {
		c.Retrieval.applyPatch(section)
	}
}

func (c *ChunkingConfig) applyPatch(patch map[string]any) {
	if v, ok := patch["strategy"].(string); ok {
		c.Strategy = v
	}
	if v, ok := patch["separator"].(string); ok {
		c.Separator = v
	}
	if v, ok := patchInt(patch, "max_length"); ok {
		c.MaxLength = v
	}
	if v, ok := patchInt(patch, "overlap_length"); ok {
		c.OverlapLength = v
	}
	if v, ok := patch["parent_separator"].(string); ok {
		c.ParentSeparator = v
	}
	if v, ok := patchInt(patch, "parent_max_length"); ok {
		c.ParentMaxLength = v
	}
	if v, ok := patch["child_separator"].(string); ok {
		c.ChildSeparator = v
	}
	if v, ok := patchInt(patch, "child_max_length"); ok {
		c.ChildMaxLength = v
	}
	if section, ok := patch["preprocessing"].(map[string]any); ok {
		if v, ok := section["remove_extra_whitespace"].(bool); ok {
			c.Preprocessing.RemoveExtraWhitespace = v
		}
		if v, ok := section["remove_urls"].(bool); ok {
			c.Preprocessing.RemoveURLs = v
		}
		if v, ok := section["remove_emails"].(bool); ok {
			c.Preprocessing.RemoveEmails = v
		}
		if v, ok := section["normalize_unicode"].(bool); ok {
			c.Preprocessing.NormalizeUnicode = v
		}
	}
}

func (e *EmbeddingSettings) applyPatch(patch map[string]any) {
	if v, ok := patch["strategy"].(string); ok {
		e.Strategy = v
	}
	if v, ok := patch["model_name"].(string); ok {
		e.ModelName = v
	}
	if v, ok := patch["provider"].(string); ok {
		e.Provider = v
	}
	if v, ok := patchInt(patch, "batch_size"); ok {
		e.BatchSize = v
	}
}

func (r *RetrievalConfig) applyPatch(patch map[string]any) {
	if v, ok := patch["strategy"].(string); ok {
		r.Strategy = v
	}
	if v, ok := patchInt(patch, "top_k"); ok {
		r.TopK = v
	}
	if v, ok := patch["score_threshold"].(float64); ok {
		r.ScoreThreshold = float32(v)
	}
	if v, ok := patch["enable_rerank"].(bool); ok {
		r.EnableRerank = v
	}
}

// patchInt accepts int and float64 values so patches decoded from JSON
// (where all numbers are float64) merge the same as native maps.
func patchInt(patch map[string]any, key string) (int, bool) {
	switch v := patch[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}
