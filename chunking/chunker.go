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


package chunking

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/poiesic/corpora/core"
)

// Chunker turns document text into an ordered set of chunk records.
// Implementations must be stateless and safe for concurrent use.
type Chunker interface {
	// Name returns the strategy name the chunker registers under.
	Name() string

	// Chunk splits text into chunks. Returned chunks carry content,
	// 0-based contiguous indexes, offsets and metadata; entity IDs are
	// assigned later by the caller that persists them.
	Chunk(text string, cfg core.ChunkingConfig) ([]core.Chunk, error)
}

// Registry maps strategy names to chunkers. The zero value is not usable;
// create one with NewRegistry.
type Registry struct {
	mu       sync.RWMutex
	chunkers map[string]Chunker
}

// NewRegistry creates a registry with the built-in strategies registered.
func NewRegistry() *Registry {
	r := &Registry{chunkers: make(map[string]Chunker)}
	r.Register(&GeneralChunker{})
	r.Register(&ParentChildChunker{})
	return r
}

// Register adds a chunker under its strategy name, replacing any previous
// registration for that name.
func (r *Registry) Register(c Chunker) error {
	if c == nil {
		return ErrNilChunker
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunkers[c.Name()] = c
	return nil
}

// Get returns the chunker registered under the strategy name.
// Unknown names fail with an error enumerating the available strategies.
func (r *Registry) Get(strategy string) (Chunker, error) {
	r.mu.RLock()
	c, ok := r.chunkers[strategy]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)",
			ErrUnknownStrategy, strategy, strings.Join(r.Strategies(), ", "))
	}
	return c, nil
}

// Strategies returns the registered strategy names in sorted order.
func (r *Registry) Strategies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.chunkers))
	for name := range r.chunkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
