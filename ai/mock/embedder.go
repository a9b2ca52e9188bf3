// Package mock provides test doubles for the ai interfaces.
package mock

import (
	"context"
	"math"
	"sync"

	"github.com/poiesic/corpora/core"
)

// MockBackend is a test double for ai.Backend.
// It allows custom behavior injection via function fields.
type MockBackend struct {
	// EmbedTextFunc is called by EmbedText if set.
	// If nil, uses default deterministic behavior.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc is called by EmbedTexts if set.
	// If nil, uses default deterministic behavior.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	// Model is returned by ModelName. Defaults to "mock-embedder".
	Model string

	mu        sync.Mutex
	callCount int
	closed    bool
}

// NewMockBackend creates a mock backend with default deterministic behavior.
func NewMockBackend() *MockBackend {
	return &MockBackend{Model: "mock-embedder"}
}

// EmbedText generates a deterministic embedding based on text hash.
func (m *MockBackend) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.incr()
	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}
	return DeterministicVector(text, 384), nil
}

// EmbedTexts generates deterministic embeddings for multiple texts.
func (m *MockBackend) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.incr()
	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = DeterministicVector(text, 384)
	}
	return vectors, nil
}

// ModelName returns the configured model identifier.
func (m *MockBackend) ModelName() string {
	return m.Model
}

// Close records that the backend was closed.
func (m *MockBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockBackend) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// CallCount returns the number of embedding calls made.
func (m *MockBackend) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and injected functions.
func (m *MockBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
	m.closed = false
}

func (m *MockBackend) incr() {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()
}

// DeterministicVector creates a unit-length embedding vector from text.
// The content hash seeds the generator, so the same text always produces
// the same vector and similarity assertions stay stable across test runs.
func DeterministicVector(text string, dim int) []float32 {
	seed := uint64(core.IDFromContent(text))

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*6364136223846793005 + 1442695040888963407 // LCG constants
		vector[i] = float32(seed%1000) / 1000.0
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		norm := float32(1.0 / math.Sqrt(sumSquares))
		for i := range vector {
			vector[i] *= norm
		}
	}
	return vector
}
