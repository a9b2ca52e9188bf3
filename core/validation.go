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

import "fmt"

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - KnowledgeBaseId must be set
//   - Filename must not be empty
//   - ContentHash must not be empty
//
// NOT validated (populated by the pipeline):
//   - ChunkCount and Processed (set after chunking)
//   - ID (0 is valid from database sequences)
func ValidateDocument(document *Document) error {
	if document == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if document.KnowledgeBaseId == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrMissingKnowledgeBase)
	}

	if document.Filename == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyFilename)
	}

	if document.ContentHash == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyContentHash)
	}

	return nil
}

// ValidateChunk validates a single Chunk according to domain rules.
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.DocumentId == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrMissingDocument)
	}

	if chunk.KnowledgeBaseId == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrMissingKnowledgeBase)
	}

	if chunk.ChunkIndex < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrNegativeChunkIndex)
	}

	return nil
}

// ValidateChunkSequence verifies that the chunk indexes form the sequence
// 0..N-1 with no gaps, in order. The sequence is fixed at persistence time
// and must match original text order.
func ValidateChunkSequence(chunks []*Chunk) error {
	for i, chunk := range chunks {
		if err := ValidateChunk(chunk); err != nil {
			return err
		}
		if chunk.ChunkIndex != i {
			return fmt.Errorf("%w: expected index %d, got %d", ErrChunkSequenceGap, i, chunk.ChunkIndex)
		}
	}
	return nil
}

// ValidateChunkingConfig checks the chunking bounds. Invalid bounds reject
// the whole chunking call: they indicate a non-retryable caller mistake.
func ValidateChunkingConfig(cfg *ChunkingConfig) error {
	if cfg.MaxLength <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxLength, cfg.MaxLength)
	}
	if cfg.OverlapLength < 0 || cfg.OverlapLength >= cfg.MaxLength {
		return fmt.Errorf("%w: got overlap %d with max %d", ErrInvalidOverlap, cfg.OverlapLength, cfg.MaxLength)
	}
	return nil
}
