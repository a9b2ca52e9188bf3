package ai

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// BackendFactory constructs a Backend from a validated configuration.
type BackendFactory func(cfg *BackendConfig) (Backend, error)

// Registry maps provider names to backend factories. Lookups for
// unregistered providers fail with an error that enumerates the known
// names, so a typo in a knowledge base config surfaces immediately
// instead of silently falling back to some default.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]BackendFactory
}

// NewRegistry creates an empty registry. The built-in providers live in
// subpackages to keep their client dependencies out of this one; callers
// register the factories they want, typically via corpora.NewBackendRegistry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]BackendFactory)}
}

// Register adds a factory under a provider name, replacing any previous
// registration.
func (r *Registry) Register(provider string, factory BackendFactory) error {
	if factory == nil {
		return fmt.Errorf("%w: provider %q", ErrNilFactory, provider)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(provider)] = factory
	return nil
}

// Open validates the configuration and constructs a backend with the
// factory registered for its provider.
func (r *Registry) Open(cfg *BackendConfig) (Backend, error) {
	cfg.Normalize()

	r.mu.RLock()
	factory, ok := r.factories[cfg.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)",
			ErrUnknownProvider, cfg.Provider, strings.Join(r.Providers(), ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return factory(cfg)
}

// Providers returns the registered provider names in sorted order.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
