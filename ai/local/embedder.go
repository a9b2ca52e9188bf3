// Package local provides the "local" embedding backend, served by an
// ollama instance running on the same machine. No credential is needed;
// the model named in the config must already be pulled by the server.
package local

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/poiesic/corpora/ai"
)

// Backend implements ai.Backend against a local ollama server.
type Backend struct {
	embedder  embeddings.Embedder
	modelName string
	logger    *slog.Logger
}

// NewBackend creates a backend for the server and model in the config.
// The config must already be validated.
func NewBackend(cfg *ai.BackendConfig) (ai.Backend, error) {
	client, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.ModelName),
		ollama.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(cfg.BatchSize),
	)
	if err != nil {
		return nil, err
	}

	return &Backend{
		embedder:  embedder,
		modelName: cfg.ModelName,
		logger: slog.Default().With(
			"component", "local-backend",
			"model", cfg.ModelName,
		),
	}, nil
}

// EmbedText generates a vector embedding for a single text string.
func (b *Backend) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := b.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		b.logger.Error("failed to generate embedding", "err", err)
		return nil, err
	}
	if len(vectors) == 0 {
		b.logger.Warn("embedder returned empty result")
		return []float32{}, nil
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (b *Backend) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := b.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		b.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	return vectors, nil
}

// ModelName returns the embedding model identifier.
func (b *Backend) ModelName() string {
	return b.modelName
}

// Close releases resources held by the backend.
func (b *Backend) Close() error {
	return nil
}
