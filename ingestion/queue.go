package ingestion

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/mirarav/convocatorias/core"
	"github.com/panjf2000/ants/v2"
)

// PageResult is the result of one queued page.
type PageResult struct {
	URL     string
	Outcome core.CrawlOutcome
	Err     error
}

// Queue runs IngestPage for submitted URLs on a single worker, in
// submission order.
type Queue struct {
	pipeline *Pipeline
	pool     *ants.Pool
	logger   *slog.Logger

	wg      sync.WaitGroup
	mu      sync.Mutex
	next    int
	results map[int]PageResult
}

// NewQueue creates a queue over pipeline. Call Release when done.
func NewQueue(pipeline *Pipeline, logger *slog.Logger) (*Queue, error) {
	if pipeline == nil {
		return nil, ErrPipelineRequired
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := ants.NewPool(1)
	if err != nil {
		return nil, err
	}

	return &Queue{
		pipeline: pipeline,
		pool:     pool,
		logger:   logger.With("component", "queue"),
		results:  make(map[int]PageResult),
	}, nil
}

// Submit schedules pageURL for ingestion. It blocks while the worker is busy.
func (q *Queue) Submit(ctx context.Context, pageURL string) error {
	q.mu.Lock()
	seq := q.next
	q.next++
	q.mu.Unlock()

	q.wg.Add(1)
	err := q.pool.Submit(func() {
		defer q.wg.Done()
		outcome, err := q.pipeline.IngestPage(ctx, pageURL)
		if err != nil {
			q.logger.Error("error ingesting page", "url", pageURL, "err", err)
		}
		q.store(seq, PageResult{URL: pageURL, Outcome: outcome, Err: err})
	})
	if err != nil {
		q.wg.Done()
		q.store(seq, PageResult{URL: pageURL, Err: err})
		return err
	}
	return nil
}

func (q *Queue) store(seq int, result PageResult) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.results[seq] = result
}

// Wait blocks until every submitted page is done and returns their results
// in submission order. Results are cleared afterwards.
func (q *Queue) Wait() []PageResult {
	q.wg.Wait()

	q.mu.Lock()
	defer q.mu.Unlock()
	seqs := make([]int, 0, len(q.results))
	for seq := range q.results {
		seqs = append(seqs, seq)
	}
	slices.Sort(seqs)

	results := make([]PageResult, len(seqs))
	for i, seq := range seqs {
		results[i] = q.results[seq]
	}
	clear(q.results)
	return results
}

// Release stops the worker. The queue must not be used afterwards.
func (q *Queue) Release() {
	q.pool.Release()
}
