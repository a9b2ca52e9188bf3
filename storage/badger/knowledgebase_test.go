package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/storage"
)

func newTestRepos(t *testing.T) *Repositories {
	t.Helper()
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	t.Cleanup(func() { repos.Close() })
	return repos
}

func TestKnowledgeBaseBasics(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	kb := &core.KnowledgeBase{
		OwnerId: 7,
		Name:    "research notes",
		Config:  core.DefaultWorkflowConfig(),
	}

	added, err := repos.KnowledgeBases.Add(ctx, kb)
	if err != nil {
		t.Fatalf("Failed to add knowledge base: %v", err)
	}
	if added.Id == 0 {
		t.Fatal("Expected non-zero ID")
	}
	if added.InsertedAt.IsZero() {
		t.Fatal("Expected InsertedAt to be set")
	}

	retrieved, err := repos.KnowledgeBases.Get(ctx, added.Id)
	if err != nil {
		t.Fatalf("Failed to get knowledge base: %v", err)
	}
	if retrieved.Name != "research notes" {
		t.Fatalf("Expected 'research notes', got %q", retrieved.Name)
	}
	if retrieved.Config.Chunking.MaxLength != 1024 {
		t.Fatalf("Expected default max length 1024, got %d", retrieved.Config.Chunking.MaxLength)
	}
}

func TestKnowledgeBaseDuplicateName(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	first := &core.KnowledgeBase{OwnerId: 7, Name: "notes", Config: core.DefaultWorkflowConfig()}
	if _, err := repos.KnowledgeBases.Add(ctx, first); err != nil {
		t.Fatalf("Failed to add knowledge base: %v", err)
	}

	dup := &core.KnowledgeBase{OwnerId: 7, Name: "notes", Config: core.DefaultWorkflowConfig()}
	_, err := repos.KnowledgeBases.Add(ctx, dup)
	if !errors.Is(err, storage.ErrDuplicateName) {
		t.Fatalf("Expected ErrDuplicateName, got %v", err)
	}

	// A different owner can reuse the name.
	other := &core.KnowledgeBase{OwnerId: 8, Name: "notes", Config: core.DefaultWorkflowConfig()}
	if _, err := repos.KnowledgeBases.Add(ctx, other); err != nil {
		t.Fatalf("Failed to add for other owner: %v", err)
	}
}

func TestKnowledgeBaseFindByName(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	kb := &core.KnowledgeBase{OwnerId: 3, Name: "papers", Config: core.DefaultWorkflowConfig()}
	added, err := repos.KnowledgeBases.Add(ctx, kb)
	if err != nil {
		t.Fatalf("Failed to add knowledge base: %v", err)
	}

	found, err := repos.KnowledgeBases.FindByName(ctx, 3, "papers")
	if err != nil {
		t.Fatalf("Failed to find by name: %v", err)
	}
	if found.Id != added.Id {
		t.Fatalf("Expected ID %d, got %d", added.Id, found.Id)
	}

	_, err = repos.KnowledgeBases.FindByName(ctx, 3, "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestKnowledgeBaseListByOwner(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	for _, name := range []string{"alpha", "beta"} {
		kb := &core.KnowledgeBase{OwnerId: 1, Name: name, Config: core.DefaultWorkflowConfig()}
		if _, err := repos.KnowledgeBases.Add(ctx, kb); err != nil {
			t.Fatalf("Failed to add %q: %v", name, err)
		}
	}
	other := &core.KnowledgeBase{OwnerId: 2, Name: "gamma", Config: core.DefaultWorkflowConfig()}
	if _, err := repos.KnowledgeBases.Add(ctx, other); err != nil {
		t.Fatalf("Failed to add: %v", err)
	}

	list, err := repos.KnowledgeBases.ListByOwner(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 knowledge bases, got %d", len(list))
	}
}

func TestKnowledgeBaseDeleteCascades(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	kb := &core.KnowledgeBase{OwnerId: 1, Name: "doomed", Config: core.DefaultWorkflowConfig()}
	kb, err := repos.KnowledgeBases.Add(ctx, kb)
	if err != nil {
		t.Fatalf("Failed to add knowledge base: %v", err)
	}

	doc := &core.Document{
		KnowledgeBaseId: kb.Id,
		Filename:        "a.txt",
		ContentHash:     "hash-a",
		Size:            10,
	}
	doc, err = repos.Documents.Add(ctx, doc)
	if err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}

	chunks := []*core.Chunk{
		{DocumentId: doc.Id, KnowledgeBaseId: kb.Id, Content: "one", ChunkIndex: 0},
		{DocumentId: doc.Id, KnowledgeBaseId: kb.Id, Content: "two", ChunkIndex: 1},
	}
	chunks, err = repos.Chunks.AddChunks(ctx, chunks...)
	if err != nil {
		t.Fatalf("Failed to add chunks: %v", err)
	}

	entry := &core.VectorEntry{ChunkId: chunks[0].Id, Vector: []float32{1, 0}, ModelId: "m"}
	if _, err := repos.Vectors.Upsert(ctx, kb.Id, entry); err != nil {
		t.Fatalf("Failed to upsert vector: %v", err)
	}

	if err := repos.KnowledgeBases.Delete(ctx, kb.Id); err != nil {
		t.Fatalf("Failed to delete knowledge base: %v", err)
	}

	if _, err := repos.KnowledgeBases.Get(ctx, kb.Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected knowledge base gone, got %v", err)
	}
	if _, err := repos.Documents.Get(ctx, doc.Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected document gone, got %v", err)
	}
	if _, err := repos.Chunks.Get(ctx, chunks[0].Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected chunk gone, got %v", err)
	}
	if _, err := repos.Vectors.Get(ctx, chunks[0].Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected vector gone, got %v", err)
	}
}

func TestKnowledgeBaseRecomputeStatistics(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	kb := &core.KnowledgeBase{OwnerId: 1, Name: "stats", Config: core.DefaultWorkflowConfig()}
	kb, err := repos.KnowledgeBases.Add(ctx, kb)
	if err != nil {
		t.Fatalf("Failed to add knowledge base: %v", err)
	}

	doc := &core.Document{KnowledgeBaseId: kb.Id, Filename: "a.txt", ContentHash: "h1", Size: 5}
	doc, err = repos.Documents.Add(ctx, doc)
	if err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}
	chunks := []*core.Chunk{
		{DocumentId: doc.Id, KnowledgeBaseId: kb.Id, Content: "one", ChunkIndex: 0},
		{DocumentId: doc.Id, KnowledgeBaseId: kb.Id, Content: "two", ChunkIndex: 1},
		{DocumentId: doc.Id, KnowledgeBaseId: kb.Id, Content: "three", ChunkIndex: 2},
	}
	if _, err := repos.Chunks.AddChunks(ctx, chunks...); err != nil {
		t.Fatalf("Failed to add chunks: %v", err)
	}

	updated, err := repos.KnowledgeBases.RecomputeStatistics(ctx, kb.Id)
	if err != nil {
		t.Fatalf("Failed to recompute statistics: %v", err)
	}
	if updated.DocumentCount != 1 {
		t.Fatalf("Expected 1 document, got %d", updated.DocumentCount)
	}
	if updated.ChunkCount != 3 {
		t.Fatalf("Expected 3 chunks, got %d", updated.ChunkCount)
	}

	// Deleting the document and recounting goes back to zero.
	if err := repos.Documents.Delete(ctx, doc.Id); err != nil {
		t.Fatalf("Failed to delete document: %v", err)
	}
	updated, err = repos.KnowledgeBases.RecomputeStatistics(ctx, kb.Id)
	if err != nil {
		t.Fatalf("Failed to recompute statistics: %v", err)
	}
	if updated.DocumentCount != 0 || updated.ChunkCount != 0 {
		t.Fatalf("Expected zero counts, got %d docs %d chunks", updated.DocumentCount, updated.ChunkCount)
	}
}
