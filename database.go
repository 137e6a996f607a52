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

// Package convocatorias ties the storage, embedding, ingestion and search
// packages together behind a single Database handle.
package convocatorias

import (
	"errors"
	"io"
	"log/slog"

	"github.com/mirarav/convocatorias/ai"
	"github.com/mirarav/convocatorias/ai/openai"
	"github.com/mirarav/convocatorias/ingestion"
	"github.com/mirarav/convocatorias/reembed"
	"github.com/mirarav/convocatorias/search"
	"github.com/mirarav/convocatorias/storage"
	"github.com/mirarav/convocatorias/storage/badger"
)

type Database struct {
	backend *badger.Backend
	repos   *badger.Repositories
	ai      *ai.Shared
	logger  *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	factory  ai.ProviderFactory
	inMemory bool
	logger   *slog.Logger
}

// WithAIConfig sets the embedding service configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithProviderFactory replaces openai.NewProvider, mostly for tests.
func WithProviderFactory(factory ai.ProviderFactory) DatabaseOption {
	return func(o *databaseOptions) {
		o.factory = factory
	}
}

// WithInMemory keeps the database in memory; the path is ignored.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithDatabaseLogger sets the logger handed to every component.
func WithDatabaseLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// NewDatabase opens the database at filePath. The embedding provider is
// built on first use and shared by every component created afterwards.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
		factory:  openai.NewProvider,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	repos, err := badger.NewRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Database{
		backend: backend,
		repos:   repos,
		ai:      ai.NewShared(options.aiConfig, options.factory),
		logger:  options.logger,
	}, nil
}

// Close shuts down the provider, the repositories and the backend, in that order.
func (db *Database) Close() error {
	var errs []error
	if err := db.ai.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	if err := db.repos.Close(); err != nil {
		db.logger.Error("error closing repositories", "err", err)
		errs = append(errs, err)
	}
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (db *Database) DocumentRepository() storage.DocumentRepository {
	return db.repos.Documents
}

func (db *Database) ChunkRepository() storage.ChunkRepository {
	return db.repos.Chunks
}

func (db *Database) CallRepository() storage.CallRepository {
	return db.repos.Calls
}

func (db *Database) CheckpointRepository() storage.CheckpointRepository {
	return db.repos.Checkpoints
}

// Embedder returns the shared embedder, connecting to the service on first call.
func (db *Database) Embedder() (ai.Embedder, error) {
	return db.ai.Embedder()
}

func (db *Database) NewPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	embedder, err := db.Embedder()
	if err != nil {
		return nil, err
	}
	opts = append([]ingestion.Option{ingestion.WithLogger(db.logger)}, opts...)
	return ingestion.NewPipeline(db.repos.Documents, db.repos.Chunks, db.repos.Calls, embedder, opts...)
}

func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	embedder, err := db.Embedder()
	if err != nil {
		return nil, err
	}
	opts = append([]search.Option{search.WithLogger(db.logger)}, opts...)
	return search.NewSearcher(db.repos.Chunks, embedder, opts...)
}

// NewReembedder returns a resumable reembedder over every stored chunk.
// Progress lines go to progress; a nil config means reembed.DefaultConfig().
func (db *Database) NewReembedder(config *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	embedder, err := db.Embedder()
	if err != nil {
		return nil, err
	}
	return reembed.NewReembedder(db.repos.Chunks, db.repos.Checkpoints, embedder, config, progress, db.logger)
}
