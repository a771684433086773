// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

package execution

import (
	"context"
	"sync"
	"time"

	"github.com/paramtune/paramtune/api"
)

// Allocator is the Worker Allocator: an unfair, low-index-first scan over
// the backend's worker ids. Job durations vary, so biased allocation
// minimizes fragmentation. It additionally tracks poisoned workers: a
// worker whose job could not be killed after exhausting retries is
// excluded from all future allocation instead of being left to poll
// forever.
type Allocator struct {
	backend      api.Backend
	pollInterval time.Duration

	mu       sync.Mutex
	poisoned map[int]bool
}

// NewAllocator creates an Allocator over backend's worker pool.
func NewAllocator(backend api.Backend, pollInterval time.Duration) *Allocator {
	return &Allocator{
		backend:      backend,
		pollInterval: pollInterval,
		poisoned:     make(map[int]bool),
	}
}

// AwaitWorker scans worker ids 0..NumWorkers()-1 in order, returning the
// first one that reports available and is not poisoned. Backend errors are
// treated as "unavailable for this scan". If none are available it sleeps
// pollInterval and rescans.
func (a *Allocator) AwaitWorker(ctx context.Context) (int, error) {
	for {
		for worker := 0; worker < a.backend.NumWorkers(); worker++ {
			if a.isPoisoned(worker) {
				continue
			}
			available, err := a.backend.IsWorkerAvailable(ctx, worker)
			if err != nil {
				continue
			}
			if available {
				return worker, nil
			}
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(a.pollInterval):
		}
	}
}

// Poison excludes worker from all future AwaitWorker scans.
func (a *Allocator) Poison(worker int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.poisoned[worker] = true
}

func (a *Allocator) isPoisoned(worker int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.poisoned[worker]
}

// PoisonedWorkers returns a snapshot of currently poisoned worker ids, for
// diagnostics.
func (a *Allocator) PoisonedWorkers() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([]int, 0, len(a.poisoned))
	for id := range a.poisoned {
		ids = append(ids, id)
	}
	return ids
}
