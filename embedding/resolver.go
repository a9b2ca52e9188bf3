package embedding

import (
	"fmt"

	"github.com/poiesic/corpora/ai"
	"github.com/poiesic/corpora/core"
)

// Default embedding backend used when a knowledge base doesn't name one.
const (
	DefaultProvider = ai.ProviderSiliconFlow
	DefaultModel    = "BAAI/bge-large-zh-v1.5"
)

// CredentialStore supplies API keys for remote embedding providers.
// Knowledge base configs deliberately carry no credentials; they are
// resolved from here when a backend is opened.
type CredentialStore interface {
	// APIKey returns the key for a provider, or ok=false when none is
	// stored.
	APIKey(provider string) (key string, ok bool)
}

// StaticCredentials is a CredentialStore backed by a plain map.
type StaticCredentials map[string]string

func (s StaticCredentials) APIKey(provider string) (string, bool) {
	key, ok := s[provider]
	return key, ok
}

// ResolveBackendConfig turns a knowledge base's embedding settings into
// a backend configuration, filling defaults and attaching the stored
// credential.
func ResolveBackendConfig(kb *core.KnowledgeBase, creds CredentialStore) (*ai.BackendConfig, error) {
	settings := kb.Config.Embedding

	provider := settings.Provider
	if provider == "" {
		provider = DefaultProvider
	}
	model := settings.ModelName
	if model == "" {
		model = DefaultModel
	}

	var opts []ai.BackendOption
	if settings.BatchSize > 0 {
		opts = append(opts, ai.WithBatchSize(settings.BatchSize))
	}

	if provider != ai.ProviderLocal {
		if creds == nil {
			return nil, fmt.Errorf("%w: %q", ErrMissingCredential, provider)
		}
		key, ok := creds.APIKey(provider)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingCredential, provider)
		}
		opts = append(opts, ai.WithAPIKey(key))
	}

	cfg := ai.NewBackendConfig(provider, model, opts...)
	cfg.Normalize()
	return cfg, nil
}
