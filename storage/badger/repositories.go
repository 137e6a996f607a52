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

import "errors"

// Repositories bundles the repositories that share one Backend.
type Repositories struct {
	Documents   *DocumentRepository
	Chunks      *ChunkRepository
	Calls       *CallRepository
	Checkpoints *CheckpointRepository
}

// NewRepositories creates every repository on backend.
func NewRepositories(backend *Backend) (*Repositories, error) {
	chunks, err := NewChunkRepository(backend)
	if err != nil {
		return nil, err
	}

	calls, err := NewCallRepository(backend)
	if err != nil {
		chunks.Close()
		return nil, err
	}

	return &Repositories{
		Documents:   NewDocumentRepository(backend),
		Chunks:      chunks,
		Calls:       calls,
		Checkpoints: NewCheckpointRepository(backend),
	}, nil
}

// Close releases repository sequences. The backend stays open.
func (r *Repositories) Close() error {
	return errors.Join(r.Chunks.Close(), r.Calls.Close(), r.Documents.Close())
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Callers close the repositories before the backend.
func NewMemoryRepositories() (*Repositories, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, err
	}

	repos, err := NewRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}

	return repos, backend, nil
}
