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


package chunking

import (
	"strings"
	"unicode/utf8"

	"github.com/poiesic/corpora/core"
)

// StrategyGeneral is the name of the flat greedy-accumulation strategy.
const StrategyGeneral = "general"

// GeneralChunker implements the general strategy: split on the separator,
// greedily accumulate sections under the maximum length, hard-slice
// anything that alone exceeds it.
type GeneralChunker struct{}

var _ Chunker = (*GeneralChunker)(nil)

// Name returns the strategy name.
func (g *GeneralChunker) Name() string { return StrategyGeneral }

// Chunk splits the text. Invalid bounds reject the whole call.
// Empty and whitespace-only input yields no chunks and no error.
func (g *GeneralChunker) Chunk(text string, cfg core.ChunkingConfig) ([]core.Chunk, error) {
	if err := core.ValidateChunkingConfig(&cfg); err != nil {
		return nil, err
	}

	content := Preprocess(text, cfg.Preprocessing)
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	separator := cfg.Separator
	if separator == "" {
		separator = "\n\n"
	}

	chunks := splitBySeparator(content, separator, cfg.MaxLength, StrategyGeneral, 0)

	if cfg.OverlapLength > 0 && len(chunks) > 1 {
		applyOverlap(chunks, cfg.OverlapLength)
	}

	return chunks, nil
}

// splitBySeparator performs the greedy accumulation pass. Lengths are
// measured in runes; offsets are byte positions in the preprocessed text,
// located by forward search from the last known position.
func splitBySeparator(content, separator string, maxLength int, strategy string, level int) []core.Chunk {
	sections := strings.Split(content, separator)

	var chunks []core.Chunk
	buffer := ""
	bufferStart := 0
	searchFrom := 0

	appendChunk := func(text string, start int) {
		if strings.TrimSpace(text) == "" {
			return
		}
		chunks = append(chunks, core.Chunk{
			Content:     text,
			ChunkIndex:  len(chunks),
			StartOffset: start,
			EndOffset:   start + len(text),
			Metadata: core.ChunkMetadata{
				Strategy: strategy,
				Level:    level,
			},
		})
	}

	for _, section := range sections {
		candidate := section
		if buffer != "" {
			candidate = buffer + separator + section
		}

		if utf8.RuneCountInString(candidate) <= maxLength {
			if buffer == "" {
				bufferStart = findOffset(content, section, searchFrom)
				searchFrom = bufferStart
			}
			buffer = candidate
			continue
		}

		appendChunk(buffer, bufferStart)
		buffer = ""

		if utf8.RuneCountInString(section) > maxLength {
			start := findOffset(content, section, searchFrom)
			searchFrom = start
			sliceSection(section, maxLength, start, appendChunk)
			continue
		}

		bufferStart = findOffset(content, section, searchFrom)
		searchFrom = bufferStart
		buffer = section
	}

	appendChunk(buffer, bufferStart)

	return chunks
}

// sliceSection hard-slices an oversized section into fixed-size pieces at
// rune boundaries. No semantic awareness is applied.
func sliceSection(section string, maxLength, startOffset int, appendChunk func(text string, start int)) {
	runes := []rune(section)
	byteOffset := startOffset
	for i := 0; i < len(runes); i += maxLength {
		end := i + maxLength
		if end > len(runes) {
			end = len(runes)
		}
		piece := string(runes[i:end])
		appendChunk(piece, byteOffset)
		byteOffset += len(piece)
	}
}

// findOffset locates a section in the content by forward search. Falls
// back to the search origin when the section cannot be found, which keeps
// offsets monotonic even when preprocessing altered the section.
func findOffset(content, section string, from int) int {
	if from > len(content) {
		from = len(content)
	}
	if idx := strings.Index(content[from:], section); idx >= 0 {
		return from + idx
	}
	return from
}

// applyOverlap decorates chunk contents with up to overlap runes from each
// neighbor: tail of the previous chunk in front, head of the next behind.
// Offsets are left pointing at the un-decorated span.
func applyOverlap(chunks []core.Chunk, overlap int) {
	originals := make([]string, len(chunks))
	for i := range chunks {
		originals[i] = chunks[i].Content
	}

	for i := range chunks {
		var b strings.Builder
		if i > 0 {
			b.WriteString(tailRunes(originals[i-1], overlap))
			b.WriteString(" ")
		}
		b.WriteString(originals[i])
		if i < len(chunks)-1 {
			b.WriteString(" ")
			b.WriteString(headRunes(originals[i+1], overlap))
		}
		chunks[i].Content = strings.TrimSpace(b.String())
	}
}

func tailRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}

func headRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
