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

// Package ai provides the embedding abstraction used to index document chunks.
//
// # Design
//
//   - Embedder: generates vector embeddings from text
//   - AIProvider: owns an Embedder and its lifecycle
//   - Shared: builds one provider lazily and hands it to every caller
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible embedding servers through langchaingo
//   - ai/mock: deterministic test doubles
//
// Public constructors (openai.NewProvider, openai.NewEmbedder) return interface
// types. Test constructors (mock.NewMockEmbedder) return concrete types so
// tests can inject behaviour and inspect calls.
//
// # Usage Example
//
//	shared := ai.NewShared(ai.DefaultConfig(), openai.NewProvider)
//	defer shared.Close()
//
//	embedder, err := shared.Embedder()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vector, err := embedder.EmbedText(ctx, "Plazo de presentación de solicitudes")
package ai
