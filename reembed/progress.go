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
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker prints a single, rewritten progress line.
type ProgressTracker struct {
	mu       sync.Mutex
	writer   io.Writer
	total    int
	done     int
	every    int
	reported int
	start    time.Time
	now      func() time.Time
}

// NewProgressTracker creates a tracker for total items that prints after
// every `every` items. An every below 1 prints on each update.
func NewProgressTracker(writer io.Writer, total, every int) *ProgressTracker {
	if every < 1 {
		every = 1
	}
	return &ProgressTracker{
		writer: writer,
		total:  total,
		every:  every,
		now:    time.Now,
	}
}

// Start resets the counters and the clock.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.start = p.now()
	p.done = 0
	p.reported = 0
}

// Add records n more finished items.
func (p *ProgressTracker) Add(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.start.IsZero() {
		return
	}
	p.done = min(p.done+n, p.total)
	if p.done-p.reported >= p.every {
		p.print()
		p.reported = p.done
	}
}

// Finish prints the final line, marking every item done.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.start.IsZero() {
		return
	}
	p.done = p.total
	p.print()
	fmt.Fprintln(p.writer)
}

// Done returns how many items were recorded.
func (p *ProgressTracker) Done() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Elapsed returns the time since Start, or zero before it.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.start.IsZero() {
		return 0
	}
	return p.now().Sub(p.start)
}

// print writes the progress line. Callers hold the lock.
func (p *ProgressTracker) print() {
	elapsed := p.now().Sub(p.start)

	pct := 0.0
	if p.total > 0 {
		pct = float64(p.done) / float64(p.total) * 100
	}

	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.done) / elapsed.Seconds()
	}

	eta := "-"
	if rate > 0 && p.done < p.total {
		remaining := time.Duration(float64(p.total-p.done) / rate * float64(time.Second))
		eta = remaining.Round(time.Second).String()
	}

	fmt.Fprintf(p.writer, "\rReembedded %d/%d chunks (%.1f%%), %.1f chunks/s, eta %s",
		p.done, p.total, pct, rate, eta)
}
