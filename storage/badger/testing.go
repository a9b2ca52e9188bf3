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


package badger

import "github.com/poiesic/corpora/storage"

// Repositories bundles the four repositories sharing one backend.
type Repositories struct {
	KnowledgeBases storage.KnowledgeBaseRepository
	Documents      storage.DocumentRepository
	Chunks         storage.ChunkRepository
	Vectors        storage.VectorRepository
	Backend        *Backend
}

// OpenRepositories opens a backend at path and creates the repositories
// on it. An empty path with inMemory=true gives a throwaway in-memory
// store for tests.
func OpenRepositories(path string, inMemory bool) (*Repositories, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}

	kbRepo, err := NewKnowledgeBaseRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	docRepo, err := NewDocumentRepository(backend)
	if err != nil {
		kbRepo.Close()
		backend.Close()
		return nil, err
	}

	chunkRepo, err := NewChunkRepository(backend)
	if err != nil {
		docRepo.Close()
		kbRepo.Close()
		backend.Close()
		return nil, err
	}

	vecRepo, err := NewVectorRepository(backend)
	if err != nil {
		chunkRepo.Close()
		docRepo.Close()
		kbRepo.Close()
		backend.Close()
		return nil, err
	}

	return &Repositories{
		KnowledgeBases: kbRepo,
		Documents:      docRepo,
		Chunks:         chunkRepo,
		Vectors:        vecRepo,
		Backend:        backend,
	}, nil
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must Close when done.
func NewMemoryRepositories() (*Repositories, error) {
	return OpenRepositories("", true)
}

// Close releases the repositories and the backend.
func (r *Repositories) Close() error {
	r.KnowledgeBases.Close()
	r.Documents.Close()
	r.Chunks.Close()
	r.Vectors.Close()
	return r.Backend.Close()
}
