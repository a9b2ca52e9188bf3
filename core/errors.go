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

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptyFilename indicates the Filename field is empty.
	ErrEmptyFilename = errors.New("filename cannot be empty")

	// ErrEmptyContentHash indicates the ContentHash field is empty.
	ErrEmptyContentHash = errors.New("content hash cannot be empty")

	// ErrMissingKnowledgeBase indicates the KnowledgeBaseId field is zero.
	ErrMissingKnowledgeBase = errors.New("knowledge base id required")

	// ErrMissingDocument indicates the DocumentId field is zero.
	ErrMissingDocument = errors.New("document id required")

	// ErrNegativeChunkIndex indicates a chunk index below zero.
	ErrNegativeChunkIndex = errors.New("chunk index cannot be negative")

	// ErrChunkSequenceGap indicates chunk indexes with gaps or disorder.
	ErrChunkSequenceGap = errors.New("chunk indexes must form a contiguous ascending sequence")

	// ErrInvalidMaxLength indicates a non-positive chunking max length.
	ErrInvalidMaxLength = errors.New("max_length must be greater than zero")

	// ErrInvalidOverlap indicates an overlap outside [0, max_length).
	ErrInvalidOverlap = errors.New("overlap_length must be in [0, max_length)")
)
