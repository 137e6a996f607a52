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

// Package storage defines the repositories the ingestion pipeline writes to.
//
// Three repositories share one backend:
//
//   - DocumentRepository: deduplicated PDFs keyed by content hash
//   - ChunkRepository: embedded chunks and vector similarity search
//   - CallRepository: grant call pages and their document links
//
// The badger subpackage implements all three on BadgerDB. Tests use
// badger.NewMemoryRepositories for an in-memory instance:
//
//	repos, backend, err := badger.NewMemoryRepositories()
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer backend.Close()
//	defer repos.Close()
//
// All repository methods accept context.Context and are safe for concurrent use.
package storage
