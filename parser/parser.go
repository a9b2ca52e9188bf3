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


// Package parser extracts plain text from uploaded files. Parsers are
// registered by file extension; the ingestion pipeline looks one up per
// file and treats a missing parser as that file's failure, not the
// batch's.
package parser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnsupportedType is returned when no parser is registered for a
	// file's extension.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrParseFailed wraps parser-specific extraction failures.
	ErrParseFailed = errors.New("parse failed")
)

// Parser extracts plain text from raw file bytes.
// Implementations must be safe for concurrent use.
type Parser interface {
	// Parse returns the text content of the file.
	Parse(ctx context.Context, data []byte, filename string) (string, error)

	// Extensions returns the lowercase extensions the parser handles,
	// including the leading dot.
	Extensions() []string
}

// Registry maps file extensions to parsers.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]Parser
}

// NewRegistry creates a registry with the built-in parsers registered:
// plain text, markdown, and PDF.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[string]Parser)}
	r.Register(&TextParser{})
	r.Register(&MarkdownParser{})
	r.Register(&PDFParser{})
	return r
}

// Register adds a parser for each of its extensions, replacing previous
// registrations.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range p.Extensions() {
		r.parsers[strings.ToLower(ext)] = p
	}
}

// Get returns the parser for a filename's extension. Unknown extensions
// fail with an error enumerating the supported types.
func (r *Registry) Get(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	r.mu.RLock()
	p, ok := r.parsers[ext]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)",
			ErrUnsupportedType, ext, strings.Join(r.SupportedExtensions(), ", "))
	}
	return p, nil
}

// Parse extracts text from the file using the parser registered for its
// extension.
func (r *Registry) Parse(ctx context.Context, data []byte, filename string) (string, error) {
	p, err := r.Get(filename)
	if err != nil {
		return "", err
	}
	return p.Parse(ctx, data, filename)
}

// SupportedExtensions returns the registered extensions in sorted order.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.parsers))
	for ext := range r.parsers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
