package ingestion

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpora/core"
	badgerstore "github.com/poiesic/corpora/storage/badger"
)

func newTestPipeline(t *testing.T) (*Pipeline, *badgerstore.Repositories, *core.KnowledgeBase) {
	t.Helper()
	repos, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	kb := &core.KnowledgeBase{OwnerId: 1, Name: "test", Config: core.DefaultWorkflowConfig()}
	kb, err = repos.KnowledgeBases.Add(context.Background(), kb)
	require.NoError(t, err)

	p, err := NewPipeline(repos.KnowledgeBases, repos.Documents, repos.Chunks, WithPoolSize(2))
	require.NoError(t, err)
	t.Cleanup(p.Release)

	return p, repos, kb
}

func TestIngestSingleFile(t *testing.T) {
	p, repos, kb := newTestPipeline(t)
	ctx := context.Background()

	content := "First paragraph of the report.\n\nSecond paragraph with more detail."
	result, err := p.Ingest(ctx, kb.Id, []File{{Name: "report.txt", Data: []byte(content)}})
	require.NoError(t, err)

	assert.Equal(t, 1, result.ProcessedDocuments)
	assert.Empty(t, result.Failures)
	assert.Greater(t, result.TotalChunks, 0)

	doc, err := repos.Documents.FindByFilename(ctx, kb.Id, "report.txt")
	require.NoError(t, err)
	assert.True(t, doc.Processed)
	assert.Equal(t, HashContent([]byte(content)), doc.ContentHash)
	assert.Equal(t, result.TotalChunks, doc.ChunkCount)

	chunks, err := repos.Chunks.ListByDocument(ctx, doc.Id)
	require.NoError(t, err)
	require.Len(t, chunks, doc.ChunkCount)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.Equal(t, kb.Id, chunk.KnowledgeBaseId)
	}

	// Statistics were recomputed after the batch.
	fresh, err := repos.KnowledgeBases.Get(ctx, kb.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.DocumentCount)
	assert.Equal(t, result.TotalChunks, fresh.ChunkCount)
}

func TestIngestSkipsUnchangedFile(t *testing.T) {
	p, _, kb := newTestPipeline(t)
	ctx := context.Background()

	file := File{Name: "a.txt", Data: []byte("same content")}
	_, err := p.Ingest(ctx, kb.Id, []File{file})
	require.NoError(t, err)

	result, err := p.Ingest(ctx, kb.Id, []File{file})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ProcessedDocuments)
	assert.Equal(t, 1, result.SkippedDuplicates)
}

func TestIngestSkipsSameContentOtherName(t *testing.T) {
	p, repos, kb := newTestPipeline(t)
	ctx := context.Background()

	data := []byte("identical bytes")
	_, err := p.Ingest(ctx, kb.Id, []File{{Name: "a.txt", Data: data}})
	require.NoError(t, err)

	result, err := p.Ingest(ctx, kb.Id, []File{{Name: "b.txt", Data: data}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SkippedDuplicates)

	docs, err := repos.Documents.ListByKnowledgeBase(ctx, kb.Id)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestIngestReplacesChangedFile(t *testing.T) {
	p, repos, kb := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.Ingest(ctx, kb.Id, []File{{Name: "a.txt", Data: []byte("version one")}})
	require.NoError(t, err)
	old, err := repos.Documents.FindByFilename(ctx, kb.Id, "a.txt")
	require.NoError(t, err)

	result, err := p.Ingest(ctx, kb.Id, []File{{Name: "a.txt", Data: []byte("version two")}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProcessedDocuments)

	fresh, err := repos.Documents.FindByFilename(ctx, kb.Id, "a.txt")
	require.NoError(t, err)
	assert.NotEqual(t, old.Id, fresh.Id)
	assert.Equal(t, HashContent([]byte("version two")), fresh.ContentHash)

	docs, err := repos.Documents.ListByKnowledgeBase(ctx, kb.Id)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestIngestIsolatesFailures(t *testing.T) {
	p, repos, kb := newTestPipeline(t)
	ctx := context.Background()

	files := []File{
		{Name: "good.txt", Data: []byte("fine content")},
		{Name: "slides.pptx", Data: []byte("binary junk")},
	}
	result, err := p.Ingest(ctx, kb.Id, files)
	require.NoError(t, err)

	assert.Equal(t, 1, result.ProcessedDocuments)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "slides.pptx", result.Failures[0].Filename)

	// The good file landed despite its neighbor failing.
	_, err = repos.Documents.FindByFilename(ctx, kb.Id, "good.txt")
	assert.NoError(t, err)
}

func TestIngestEmptyContent(t *testing.T) {
	p, repos, kb := newTestPipeline(t)
	ctx := context.Background()

	result, err := p.Ingest(ctx, kb.Id, []File{{Name: "blank.txt", Data: []byte("   \n\n  ")}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProcessedDocuments)
	assert.Equal(t, 0, result.TotalChunks)

	doc, err := repos.Documents.FindByFilename(ctx, kb.Id, "blank.txt")
	require.NoError(t, err)
	assert.True(t, doc.Processed)
	assert.Equal(t, 0, doc.ChunkCount)
}

func TestIngestEmptyBatch(t *testing.T) {
	p, _, kb := newTestPipeline(t)

	_, err := p.Ingest(context.Background(), kb.Id, nil)
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestIngestLargeFileChunksSplit(t *testing.T) {
	p, repos, kb := newTestPipeline(t)
	ctx := context.Background()

	var sb strings.Builder
	for i := 0; i < 20; i++ {
		sb.WriteString(strings.Repeat("lorem ipsum dolor sit amet ", 10))
		sb.WriteString("\n\n")
	}
	result, err := p.Ingest(ctx, kb.Id, []File{{Name: "long.txt", Data: []byte(sb.String())}})
	require.NoError(t, err)
	assert.Greater(t, result.TotalChunks, 1)

	doc, err := repos.Documents.FindByFilename(ctx, kb.Id, "long.txt")
	require.NoError(t, err)
	chunks, err := repos.Chunks.ListByDocument(ctx, doc.Id)
	require.NoError(t, err)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, chunk.CharSize(), kb.Config.Chunking.MaxLength+kb.Config.Chunking.OverlapLength*2+2)
	}
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "ab\ncd\te", CleanText("ab\ncd\te"))
	assert.Equal(t, "abc", CleanText("a\x00b\x07c"))
	assert.Equal(t, "ok", CleanText("ok�"))
}

func TestHashContent(t *testing.T) {
	h1 := HashContent([]byte("hello"))
	h2 := HashContent([]byte("hello"))
	h3 := HashContent([]byte("hello!"))

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}
