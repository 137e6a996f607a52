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

// Package search provides semantic search over stored document chunks.
//
// The Searcher embeds the query with the same model used at ingestion time,
// asks the chunk repository for the nearest vectors above a similarity
// threshold, and then re-ranks the hits:
//   - chunks containing every significant query word get a verbatim boost
//   - ties keep the repository order
//
// Significant words exclude common Spanish and English stop words.
package search
