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

// Package openai provides AI service implementations using OpenAI-compatible APIs.
//
// The embedder talks to OpenAI or any compatible server (text-embeddings-inference,
// LocalAI, Ollama, vLLM) through langchaingo.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithEmbeddingHost("http://localhost:8080"), // /v1 added automatically
//	    ai.WithEmbeddingModel("all-MiniLM-L6-v2"),
//	)
//	shared := ai.NewShared(config, openai.NewProvider)
//	defer shared.Close()
//
//	embedder, err := shared.Embedder()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vectors, err := embedder.EmbedTexts(ctx, []string{"Bases reguladoras"})
package openai
