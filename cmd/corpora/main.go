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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/corpora"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/embedding"
	"github.com/poiesic/corpora/ingestion"
	"github.com/poiesic/corpora/parser"
)

func main() {
	dbFlag := &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to BadgerDB database directory",
		Required: true,
	}
	kbFlag := &cli.Uint64Flag{
		Name:     "kb",
		Usage:    "Knowledge base ID",
		Required: true,
	}

	app := &cli.App{
		Name:  "corpora",
		Usage: "Knowledge base engine with semantic search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a knowledge base",
				ArgsUsage: "NAME",
				Action:    createCommand,
				Flags: []cli.Flag{
					dbFlag,
					&cli.Uint64Flag{
						Name:  "owner",
						Usage: "Owner ID",
						Value: 1,
					},
					&cli.StringFlag{
						Name:  "provider",
						Usage: "Embedding provider (openai, siliconflow, local)",
					},
					&cli.StringFlag{
						Name:  "model",
						Usage: "Embedding model name",
					},
					&cli.StringFlag{
						Name:  "chunk-strategy",
						Usage: "Chunking strategy (general, parent_child)",
					},
					&cli.IntFlag{
						Name:  "max-length",
						Usage: "Maximum chunk length in characters",
					},
				},
			},
			{
				Name:   "list",
				Usage:  "List knowledge bases",
				Action: listCommand,
				Flags: []cli.Flag{
					dbFlag,
					&cli.Uint64Flag{
						Name:  "owner",
						Usage: "Owner ID",
						Value: 1,
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "Ingest files or directories into a knowledge base",
				ArgsUsage: "PATH [PATH ...]",
				Action:    ingestCommand,
				Flags:     []cli.Flag{dbFlag, kbFlag},
			},
			{
				Name:   "reembed",
				Usage:  "Embed all chunks that have no vector yet",
				Action: reembedCommand,
				Flags:  []cli.Flag{dbFlag, kbFlag},
			},
			{
				Name:   "regenerate",
				Usage:  "Re-embed every chunk, overwriting existing vectors",
				Action: regenerateCommand,
				Flags:  []cli.Flag{dbFlag, kbFlag},
			},
			{
				Name:   "status",
				Usage:  "Show embedding coverage for a knowledge base",
				Action: statusCommand,
				Flags:  []cli.Flag{dbFlag, kbFlag},
			},
			{
				Name:      "search",
				Usage:     "Search a knowledge base",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					dbFlag,
					kbFlag,
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Maximum number of results (0 uses the knowledge base setting)",
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum similarity score (-1 uses the knowledge base setting)",
						Value: -1,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// envCredentials reads provider API keys from the environment, e.g.
// OPENAI_API_KEY and SILICONFLOW_API_KEY.
type envCredentials struct{}

func (envCredentials) APIKey(provider string) (string, bool) {
	name := strings.ToUpper(provider) + "_API_KEY"
	key := os.Getenv(name)
	return key, key != ""
}

func openStore(c *cli.Context) (*corpora.Store, error) {
	store, err := corpora.Open(c.String("db"), corpora.WithCredentials(envCredentials{}))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

func createCommand(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("knowledge base name is required")
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	patch := map[string]any{}
	embeddingPatch := map[string]any{}
	if v := c.String("provider"); v != "" {
		embeddingPatch["provider"] = v
	}
	if v := c.String("model"); v != "" {
		embeddingPatch["model_name"] = v
	}
	if len(embeddingPatch) > 0 {
		patch["embedding"] = embeddingPatch
	}
	chunkingPatch := map[string]any{}
	if v := c.String("chunk-strategy"); v != "" {
		chunkingPatch["strategy"] = v
	}
	if v := c.Int("max-length"); v > 0 {
		chunkingPatch["max_length"] = v
	}
	if len(chunkingPatch) > 0 {
		patch["chunking"] = chunkingPatch
	}

	kb, err := store.CreateKnowledgeBase(context.Background(), core.ID(c.Uint64("owner")), name, patch)
	if err != nil {
		return fmt.Errorf("failed to create knowledge base: %w", err)
	}

	fmt.Printf("Created knowledge base %q with ID %d\n", kb.Name, kb.Id)
	return nil
}

func listCommand(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	bases, err := store.ListKnowledgeBases(context.Background(), core.ID(c.Uint64("owner")))
	if err != nil {
		return err
	}

	for _, kb := range bases {
		fmt.Printf("%d\t%s\t%d documents\t%d chunks\n", kb.Id, kb.Name, kb.DocumentCount, kb.ChunkCount)
	}
	return nil
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file or directory is required")
	}

	files, err := collectFiles(c.Args().Slice())
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no supported files found")
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	outcome, err := store.Ingest(context.Background(), core.ID(c.Uint64("kb")), files)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	result := outcome.Ingestion
	fmt.Fprintf(os.Stderr, "Processed: %d documents, %d chunks\n", result.ProcessedDocuments, result.TotalChunks)
	if result.SkippedDuplicates > 0 {
		fmt.Fprintf(os.Stderr, "Skipped duplicates: %d\n", result.SkippedDuplicates)
	}
	for _, failure := range result.Failures {
		fmt.Fprintf(os.Stderr, "Failed: %s: %v\n", failure.Filename, failure.Err)
	}
	if outcome.Embedding != nil {
		embedResult, err := outcome.Embedding.Wait()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Embedding failed: %v\n", err)
		} else {
			printEmbeddingResult(embedResult)
		}
	}
	return nil
}

// collectFiles reads the named files, walking directories for files with
// supported extensions.
func collectFiles(paths []string) ([]ingestion.File, error) {
	supported := make(map[string]bool)
	for _, ext := range parser.NewRegistry().SupportedExtensions() {
		supported[ext] = true
	}

	var files []ingestion.File
	addFile := func(path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files = append(files, ingestion.File{Name: filepath.Base(path), Data: data})
		return nil
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if err := addFile(path); err != nil {
				return nil, err
			}
			continue
		}
		err = filepath.WalkDir(path, func(entry string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(entry), "."))
			if !supported[ext] {
				return nil
			}
			return addFile(entry)
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func reembedCommand(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := store.ReprocessEmbeddings(context.Background(), core.ID(c.Uint64("kb")))
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}

	printEmbeddingResult(result)
	return nil
}

func regenerateCommand(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := store.RegenerateEmbeddings(context.Background(), core.ID(c.Uint64("kb")))
	if err != nil {
		return fmt.Errorf("regeneration failed: %w", err)
	}

	printEmbeddingResult(result)
	return nil
}

func printEmbeddingResult(result *embedding.Result) {
	if result.ModelName == "" {
		fmt.Fprintln(os.Stderr, "Nothing to embed")
		return
	}
	fmt.Fprintf(os.Stderr, "Embedded: %d chunks with %s (%d failed)\n",
		result.ProcessedChunks, result.ModelName, result.FailedChunks)
}

func statusCommand(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	status, err := store.EmbeddingStatus(context.Background(), core.ID(c.Uint64("kb")))
	if err != nil {
		return err
	}

	fmt.Printf("Total chunks:    %d\n", status.TotalChunks)
	fmt.Printf("With vectors:    %d\n", status.ChunksWithVectors)
	fmt.Printf("Without vectors: %d\n", status.ChunksWithoutVectors)
	fmt.Printf("Progress:        %.1f%%\n", status.ProgressPercent)
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("search query is required")
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := store.Search(
		context.Background(),
		core.ID(c.Uint64("kb")),
		query,
		c.Int("top-k"),
		float32(c.Float64("threshold")),
	)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results")
		return nil
	}
	for i, result := range results {
		fmt.Printf("%d. [%.4f] %s\n", i+1, result.Score, result.Chunk.Content)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
