// Package ingestion turns uploaded files into persisted documents and
// chunks. Files in a batch are processed concurrently on a bounded
// worker pool; a failure in one file never fails the batch.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/corpora/chunking"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/parser"
	"github.com/poiesic/corpora/storage"
)

// File is one uploaded file in an ingestion batch.
type File struct {
	Name string
	Data []byte
}

// FileFailure records why one file of a batch was not ingested.
type FileFailure struct {
	Filename string
	Err      error
}

// Result summarizes an ingestion batch.
type Result struct {
	// ProcessedDocuments counts files that became documents, including
	// re-uploads that replaced an older version.
	ProcessedDocuments int

	// SkippedDuplicates counts files whose content already existed in
	// the knowledge base.
	SkippedDuplicates int

	// TotalChunks counts chunks persisted across all processed files.
	TotalChunks int

	// Failures lists the files that could not be ingested.
	Failures []FileFailure
}

// Pipeline orchestrates parsing, deduplication, chunking, and persistence.
type Pipeline struct {
	kbRepository    storage.KnowledgeBaseRepository
	docRepository   storage.DocumentRepository
	chunkRepository storage.ChunkRepository
	parsers         *parser.Registry
	chunkers        *chunking.Registry
	pool            *ants.Pool
	logger          *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent file processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	kbRepository storage.KnowledgeBaseRepository,
	docRepository storage.DocumentRepository,
	chunkRepository storage.ChunkRepository,
	opts ...Option,
) (*Pipeline, error) {
	if kbRepository == nil {
		return nil, ErrKnowledgeBaseRepositoryRequired
	}
	if docRepository == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if chunkRepository == nil {
		return nil, ErrChunkRepositoryRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		kbRepository:    kbRepository,
		docRepository:   docRepository,
		chunkRepository: chunkRepository,
		parsers:         parser.NewRegistry(),
		chunkers:        chunking.NewRegistry(),
		pool:            pool,
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			p.pool.Release()
			return nil, err
		}
	}
	return p, nil
}

// Release shuts down the worker pool.
func (p *Pipeline) Release() {
	p.pool.Release()
}

// Ingest processes a batch of files into the knowledge base. Each file
// is parsed, deduplicated by content hash, chunked per the knowledge
// base's configuration, and persisted together with its chunks. Files
// fail individually; the returned Result reports what happened to each.
// Statistics are recomputed once after the batch.
func (p *Pipeline) Ingest(ctx context.Context, kbId core.ID, files []File) (*Result, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	kb, err := p.kbRepository.Get(ctx, kbId)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, file := range files {
		file := file
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			chunkCount, skipped, err := p.processFile(ctx, kb, file)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				p.logger.Warn("file ingestion failed",
					"kb", kbId, "file", file.Name, "err", err)
				result.Failures = append(result.Failures, FileFailure{
					Filename: file.Name,
					Err:      err,
				})
			case skipped:
				result.SkippedDuplicates++
			default:
				result.ProcessedDocuments++
				result.TotalChunks += chunkCount
			}
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			result.Failures = append(result.Failures, FileFailure{Filename: file.Name, Err: err})
			mu.Unlock()
		}
	}
	wg.Wait()

	if _, err := p.kbRepository.RecomputeStatistics(ctx, kbId); err != nil {
		// The documents and chunks are already durable; stale counters
		// fix themselves on the next recount.
		p.logger.Error("failed to recompute statistics", "kb", kbId, "err", err)
	}

	p.logger.Info("ingestion batch finished",
		"kb", kbId,
		"processed", result.ProcessedDocuments,
		"skipped", result.SkippedDuplicates,
		"chunks", result.TotalChunks,
		"failed", len(result.Failures))
	return result, nil
}

// processFile ingests a single file. Returns the number of chunks
// persisted and whether the file was skipped as a duplicate.
func (p *Pipeline) processFile(ctx context.Context, kb *core.KnowledgeBase, file File) (int, bool, error) {
	text, err := p.parsers.Parse(ctx, file.Data, file.Name)
	if err != nil {
		return 0, false, err
	}
	text = CleanText(text)
	hash := HashContent(file.Data)

	// A re-upload under the same name replaces the older version; the
	// replacement is a hard delete of the old document and its chunks.
	existing, err := p.docRepository.FindByFilename(ctx, kb.Id, file.Name)
	switch {
	case err == nil:
		if existing.ContentHash == hash {
			return 0, true, nil
		}
		if err := p.docRepository.Delete(ctx, existing.Id); err != nil {
			return 0, false, err
		}
	case errors.Is(err, storage.ErrNotFound):
	default:
		return 0, false, err
	}

	// Chunk before writing anything, so a chunking failure leaves no
	// partial document behind.
	var chunks []core.Chunk
	if strings.TrimSpace(text) != "" {
		chunker, err := p.chunkers.Get(kb.Config.Chunking.Strategy)
		if err != nil {
			return 0, false, err
		}
		chunks, err = chunker.Chunk(text, kb.Config.Chunking)
		if err != nil {
			return 0, false, err
		}
	}

	doc := &core.Document{
		KnowledgeBaseId: kb.Id,
		Filename:        file.Name,
		ContentHash:     hash,
		Size:            int64(len(file.Data)),
	}
	doc, err = p.docRepository.Add(ctx, doc)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateContent) {
			// Same bytes already live under another filename.
			return 0, true, nil
		}
		return 0, false, err
	}

	refs := make([]*core.Chunk, len(chunks))
	for i := range chunks {
		chunks[i].DocumentId = doc.Id
		chunks[i].KnowledgeBaseId = kb.Id
		refs[i] = &chunks[i]
	}
	if len(refs) > 0 {
		if _, err := p.chunkRepository.AddChunks(ctx, refs...); err != nil {
			if delErr := p.docRepository.Delete(ctx, doc.Id); delErr != nil {
				p.logger.Error("failed to roll back document after chunk failure",
					"doc", doc.Id, "err", delErr)
			}
			return 0, false, fmt.Errorf("persisting chunks for %s: %w", file.Name, err)
		}
	}

	doc.Processed = true
	doc.ChunkCount = len(refs)
	if _, err := p.docRepository.Update(ctx, doc); err != nil {
		return 0, false, err
	}
	return len(refs), false, nil
}
