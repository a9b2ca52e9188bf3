// Package openai provides an embedding backend for OpenAI-compatible
// APIs. SiliconFlow exposes the same wire protocol, so both the
// "openai" and "siliconflow" providers are served here; they differ
// only in base URL and credential.
package openai

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/poiesic/corpora/ai"
)

// Backend implements ai.Backend against an OpenAI-compatible embedding API.
type Backend struct {
	embedder  embeddings.Embedder
	modelName string
	logger    *slog.Logger
}

// NewBackend creates a backend for the endpoint and model in the config.
// The config must already be validated.
func NewBackend(cfg *ai.BackendConfig) (ai.Backend, error) {
	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(cfg.APIKey),
		openai.WithEmbeddingModel(cfg.ModelName),
		openai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
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
			"component", "openai-backend",
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
	b.logger.Debug("generating embeddings", "count", len(texts))

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
// Currently a no-op as the underlying client doesn't require explicit cleanup.
func (b *Backend) Close() error {
	return nil
}
