package chunking

import (
	"errors"
	"strings"
	"testing"
	"unicode"

	"github.com/poiesic/corpora/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generalConfig(maxLength, overlap int) core.ChunkingConfig {
	return core.ChunkingConfig{
		Strategy:      StrategyGeneral,
		Separator:     "\n\n",
		MaxLength:     maxLength,
		OverlapLength: overlap,
	}
}

func paragraph(r rune, length int) string {
	return strings.Repeat(string(r), length)
}

func TestGeneralChunker_MergesAndFlushes(t *testing.T) {
	// Three paragraphs: the first two fit together under the limit, the
	// third forces a flush and lands in its own chunk.
	p1 := paragraph('a', 400)
	p2 := paragraph('b', 500)
	p3 := paragraph('c', 300)
	text := p1 + "\n\n" + p2 + "\n\n" + p3

	chunker := &GeneralChunker{}
	chunks, err := chunker.Chunk(text, generalConfig(1024, 50))
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 1, chunks[1].ChunkIndex)
	assert.True(t, strings.HasPrefix(chunks[0].Content, p1))
	assert.Contains(t, chunks[0].Content, p2)

	// The second chunk begins with at most 50 trailing characters of the
	// first chunk's un-decorated content.
	assert.True(t, strings.HasPrefix(chunks[1].Content, paragraph('b', 50)))
	assert.True(t, strings.HasSuffix(chunks[1].Content, p3))
}

func TestGeneralChunker_InvalidConfig(t *testing.T) {
	chunker := &GeneralChunker{}

	_, err := chunker.Chunk("text", generalConfig(0, 0))
	assert.ErrorIs(t, err, core.ErrInvalidMaxLength)

	_, err = chunker.Chunk("text", generalConfig(100, 100))
	assert.ErrorIs(t, err, core.ErrInvalidOverlap)

	_, err = chunker.Chunk("text", generalConfig(100, -1))
	assert.ErrorIs(t, err, core.ErrInvalidOverlap)
}

func TestGeneralChunker_OversizedSectionHardSlice(t *testing.T) {
	// A single 2500-rune section with max 1000 must be hard-sliced into
	// 1000/1000/500 with contiguous indexes.
	text := paragraph('x', 2500)

	chunker := &GeneralChunker{}
	chunks, err := chunker.Chunk(text, generalConfig(1000, 0))
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
	}
	assert.Len(t, chunks[0].Content, 1000)
	assert.Len(t, chunks[1].Content, 1000)
	assert.Len(t, chunks[2].Content, 500)
}

func TestGeneralChunker_HardSliceRuneBoundaries(t *testing.T) {
	// Multibyte runes must not be split mid-encoding.
	text := strings.Repeat("知", 25)

	chunker := &GeneralChunker{}
	chunks, err := chunker.Chunk(text, generalConfig(10, 0))
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for _, chunk := range chunks {
		for _, r := range chunk.Content {
			assert.Equal(t, '知', r)
		}
	}
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func TestGeneralChunker_Coverage(t *testing.T) {
	// With no overlap, concatenated chunk contents must reconstruct every
	// non-whitespace character of the preprocessed input exactly once.
	inputs := []string{
		"one\n\ntwo\n\nthree",
		paragraph('a', 90) + "\n\n" + paragraph('b', 250) + "\n\n" + paragraph('c', 40),
		"short\n\n" + paragraph('z', 500) + "\n\nshorter",
		"solo paragraph with no separator at all",
	}

	chunker := &GeneralChunker{}
	for _, input := range inputs {
		chunks, err := chunker.Chunk(input, generalConfig(100, 0))
		require.NoError(t, err)

		var joined strings.Builder
		for _, chunk := range chunks {
			joined.WriteString(chunk.Content)
		}
		assert.Equal(t, stripSpace(input), stripSpace(joined.String()), "input %q", input)
	}
}

func TestGeneralChunker_Offsets(t *testing.T) {
	text := "alpha\n\nbeta\n\ngamma"

	chunker := &GeneralChunker{}
	chunks, err := chunker.Chunk(text, generalConfig(5, 0))
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for _, chunk := range chunks {
		assert.Equal(t, chunk.Content, text[chunk.StartOffset:chunk.EndOffset])
	}
}

func TestGeneralChunker_DiscardsWhitespaceChunks(t *testing.T) {
	text := "first\n\n   \n\nsecond"

	chunker := &GeneralChunker{}
	chunks, err := chunker.Chunk(text, generalConfig(6, 0))
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "first", chunks[0].Content)
	assert.Equal(t, "second", chunks[1].Content)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 1, chunks[1].ChunkIndex)
}

func TestGeneralChunker_EmptyInput(t *testing.T) {
	chunker := &GeneralChunker{}

	chunks, err := chunker.Chunk("", generalConfig(100, 0))
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = chunker.Chunk("   \n\n  ", generalConfig(100, 0))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestGeneralChunker_Overlap(t *testing.T) {
	p1 := paragraph('a', 80)
	p2 := paragraph('b', 80)
	p3 := paragraph('c', 80)
	text := p1 + "\n\n" + p2 + "\n\n" + p3

	chunker := &GeneralChunker{}
	chunks, err := chunker.Chunk(text, generalConfig(100, 10))
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	// Middle chunk carries the previous tail in front and the next head
	// behind; edge chunks only get one side.
	assert.True(t, strings.HasPrefix(chunks[1].Content, paragraph('a', 10)))
	assert.True(t, strings.HasSuffix(chunks[1].Content, paragraph('c', 10)))
	assert.True(t, strings.HasPrefix(chunks[0].Content, p1))
	assert.True(t, strings.HasSuffix(chunks[2].Content, p3))

	// Offsets still point at the un-decorated span.
	assert.Equal(t, p2, text[chunks[1].StartOffset:chunks[1].EndOffset])
}

func TestGeneralChunker_MetadataStrategy(t *testing.T) {
	chunker := &GeneralChunker{}
	chunks, err := chunker.Chunk("some text", generalConfig(100, 0))
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, StrategyGeneral, chunks[0].Metadata.Strategy)
	assert.Equal(t, 0, chunks[0].Metadata.Level)
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()

	c, err := registry.Get(StrategyGeneral)
	require.NoError(t, err)
	assert.Equal(t, StrategyGeneral, c.Name())

	c, err = registry.Get(StrategyParentChild)
	require.NoError(t, err)
	assert.Equal(t, StrategyParentChild, c.Name())

	_, err = registry.Get("semantic")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownStrategy))
	assert.Contains(t, err.Error(), StrategyGeneral, "error must enumerate available strategies")
	assert.Contains(t, err.Error(), StrategyParentChild)
}

func TestRegistry_RejectsNil(t *testing.T) {
	registry := NewRegistry()
	assert.ErrorIs(t, registry.Register(nil), ErrNilChunker)
}

func TestParentChildChunker_ChildSettings(t *testing.T) {
	text := "one.two.three\n\nfour"
	cfg := core.ChunkingConfig{
		Strategy:       StrategyParentChild,
		Separator:      "\n\n",
		MaxLength:      1024,
		ChildSeparator: ".",
		ChildMaxLength: 5,
	}

	chunker := &ParentChildChunker{}
	chunks, err := chunker.Chunk(text, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.Equal(t, StrategyParentChild, chunk.Metadata.Strategy)
		assert.Equal(t, 1, chunk.Metadata.Level)
		assert.LessOrEqual(t, len([]rune(chunk.Content)), 5)
	}
}

func TestParentChildChunker_FallsBackToTopLevel(t *testing.T) {
	text := "aaa\n\nbbb"
	cfg := core.ChunkingConfig{
		Strategy:  StrategyParentChild,
		Separator: "\n\n",
		MaxLength: 3,
	}

	chunker := &ParentChildChunker{}
	chunks, err := chunker.Chunk(text, cfg)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
}
