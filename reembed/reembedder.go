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

package reembed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mirarav/convocatorias/ai"
	"github.com/mirarav/convocatorias/core"
	"github.com/mirarav/convocatorias/storage"
)

// DefaultCheckpointName is the checkpoint key used by Run.
const DefaultCheckpointName = "reembed-chunks"

var (
	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of chunks to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for each embedding call
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// CheckpointName keys the resume marker when a checkpoint repository is set
	CheckpointName string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		CheckpointName: DefaultCheckpointName,
	}
}

// Reembedder rewrites the vector of every stored chunk.
type Reembedder struct {
	repo        storage.ChunkRepository
	checkpoints storage.CheckpointRepository
	config      *Config
	progress    io.Writer
	processor   *BatchProcessor
	logger      *slog.Logger
}

// NewReembedder creates a new reembedder.
// checkpoints may be nil, in which case every run starts from the first chunk.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(
	repo storage.ChunkRepository,
	checkpoints storage.CheckpointRepository,
	embedder ai.Embedder,
	config *Config,
	progress io.Writer,
	logger *slog.Logger,
) (*Reembedder, error) {
	if repo == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.CheckpointName == "" {
		config.CheckpointName = DefaultCheckpointName
	}
	if progress == nil {
		progress = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Reembedder{
		repo:        repo,
		checkpoints: checkpoints,
		config:      config,
		progress:    progress,
		processor:   NewBatchProcessor(repo, embedder, config.MaxRetries, config.RetryDelay),
		logger:      logger.With("component", "reembedder"),
	}, nil
}

// Run re-embeds every stored chunk. When a checkpoint from an interrupted
// run exists, chunks up to its LastID are skipped. The checkpoint advances
// after each batch and is removed once the run completes.
func (r *Reembedder) Run(ctx context.Context) error {
	total, err := r.repo.CountChunks(ctx)
	if err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}
	if total == 0 {
		fmt.Fprintf(r.progress, "No chunks found in database (0 chunks)\n")
		return nil
	}

	iterator := NewChunkIterator(r.repo, r.config.BatchSize)
	if cp, err := r.loadCheckpoint(ctx); err != nil {
		return err
	} else if cp != nil {
		iterator.ResumeAfter(cp.LastID)
		r.logger.Info("resuming from checkpoint", "last_id", cp.LastID, "updated_at", cp.UpdatedAt)
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d chunks (batch size: %d)\n",
		total, iterator.batchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	err = iterator.ForEach(ctx, func(chunks []*core.Chunk) error {
		if err := r.processor.Process(ctx, chunks); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		tracker.Add(len(chunks))
		return r.saveCheckpoint(ctx, chunks[len(chunks)-1].Id)
	})
	if err != nil {
		return err
	}

	tracker.Finish()
	if r.checkpoints != nil {
		if err := r.checkpoints.DeleteCheckpoint(ctx, r.config.CheckpointName); err != nil {
			r.logger.Warn("could not remove checkpoint", "err", err)
		}
	}

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d chunks in %v\n",
		tracker.Done(), elapsed.Round(time.Second))
	return nil
}

func (r *Reembedder) loadCheckpoint(ctx context.Context) (*core.Checkpoint, error) {
	if r.checkpoints == nil {
		return nil, nil
	}
	cp, err := r.checkpoints.LoadCheckpoint(ctx, r.config.CheckpointName)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return cp, nil
}

func (r *Reembedder) saveCheckpoint(ctx context.Context, lastID core.ID) error {
	if r.checkpoints == nil {
		return nil
	}
	err := r.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{Name: r.config.CheckpointName, LastID: lastID})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}
