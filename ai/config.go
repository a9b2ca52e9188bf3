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


package ai

import (
	"fmt"
	"strings"
	"time"
)

// Provider names accepted by the default registry.
const (
	ProviderOpenAI      = "openai"
	ProviderSiliconFlow = "siliconflow"
	ProviderLocal       = "local"
)

// Default base URLs for the remote providers.
const (
	defaultOpenAIBaseURL      = "https://api.openai.com/v1"
	defaultSiliconFlowBaseURL = "https://api.siliconflow.cn/v1"
	defaultLocalBaseURL       = "http://localhost:11434"
)

// BackendConfig holds everything needed to construct an embedding backend
// for one knowledge base.
type BackendConfig struct {
	// Provider selects the backend factory: "openai", "siliconflow",
	// or "local".
	Provider string

	// ModelName is the embedding model identifier.
	// Example: "text-embedding-3-small", "BAAI/bge-large-zh-v1.5"
	ModelName string

	// APIKey authenticates against remote providers. Unused by "local".
	APIKey string

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string

	// BatchSize caps how many texts are sent per embedding request.
	// Default: 32
	BatchSize int

	// MaxTokens caps the token budget per request.
	// Default: 8192
	MaxTokens int

	// Timeout bounds each embedding request.
	// Default: 30s
	Timeout time.Duration
}

// BackendOption is a functional option for configuring a BackendConfig.
type BackendOption func(*BackendConfig)

// WithAPIKey sets the credential used by remote providers.
func WithAPIKey(key string) BackendOption {
	return func(c *BackendConfig) {
		c.APIKey = key
	}
}

// WithBaseURL overrides the provider's default endpoint.
func WithBaseURL(url string) BackendOption {
	return func(c *BackendConfig) {
		c.BaseURL = url
	}
}

// WithBatchSize sets the per-request text cap.
func WithBatchSize(n int) BackendOption {
	return func(c *BackendConfig) {
		c.BatchSize = n
	}
}

// WithMaxTokens sets the per-request token budget.
func WithMaxTokens(n int) BackendOption {
	return func(c *BackendConfig) {
		c.MaxTokens = n
	}
}

// WithTimeout bounds each embedding request.
func WithTimeout(d time.Duration) BackendOption {
	return func(c *BackendConfig) {
		c.Timeout = d
	}
}

// NewBackendConfig creates a BackendConfig for the given provider and
// model with default limits, then applies the provided options.
func NewBackendConfig(provider, modelName string, opts ...BackendOption) *BackendConfig {
	cfg := &BackendConfig{
		Provider:  provider,
		ModelName: modelName,
		BatchSize: 32,
		MaxTokens: 8192,
		Timeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize fills provider-specific defaults and puts the base URL in
// the canonical form the OpenAI-compatible APIs expect.
func (c *BackendConfig) Normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))

	if c.BaseURL == "" {
		switch c.Provider {
		case ProviderOpenAI:
			c.BaseURL = defaultOpenAIBaseURL
		case ProviderSiliconFlow:
			c.BaseURL = defaultSiliconFlowBaseURL
		case ProviderLocal:
			c.BaseURL = defaultLocalBaseURL
		}
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")

	// Remote OpenAI-compatible endpoints want the /v1 suffix; the local
	// ollama client adds its own API prefix.
	if c.Provider != ProviderLocal && c.BaseURL != "" && !strings.HasSuffix(c.BaseURL, "/v1") {
		c.BaseURL = c.BaseURL + "/v1"
	}

	if c.BatchSize <= 0 {
		c.BatchSize = 32
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 8192
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration before validation.
func (c *BackendConfig) Validate() error {
	c.Normalize()

	if c.ModelName == "" {
		return ErrMissingModelName
	}
	switch c.Provider {
	case ProviderOpenAI, ProviderSiliconFlow:
		if c.APIKey == "" {
			return fmt.Errorf("%w: provider %q", ErrMissingAPIKey, c.Provider)
		}
	case ProviderLocal:
		// No credential needed.
	default:
		// Custom providers validate their own credentials in the factory.
	}
	return nil
}
