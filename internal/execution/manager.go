// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

package execution

import (
	"context"
	"sync"
	"time"

	"github.com/paramtune/paramtune/api"
	"github.com/paramtune/paramtune/internal/ledger"
	"github.com/paramtune/paramtune/pkg/tunelog"
)

// Manager is the Execution Manager: it owns the jobs and results queues
// and the Generator and Dispatcher tasks that bridge a SearchAlgorithm to
// a pool of concurrent Job Lifecycle Actors.
type Manager struct {
	cfg       Config
	backend   api.Backend
	algorithm api.SearchAlgorithm
	ledger    *ledger.Ledger
	allocator *Allocator

	jobsCh    chan *api.ParameterSet
	resultsCh chan *RawOutcome
}

// New creates a Manager wired to backend and algorithm. outputPath may be
// empty to disable on-disk serialization (tests commonly do this).
func New(cfg Config, backend api.Backend, algorithm api.SearchAlgorithm, outputPath string) *Manager {
	cfg = cfg.withDefaults()
	queueDepth := backend.NumWorkers()*2 + 1
	return &Manager{
		cfg:       cfg,
		backend:   backend,
		algorithm: algorithm,
		ledger:    ledger.New(cfg.Objective, outputPath, cfg.ResultPattern),
		allocator: NewAllocator(backend, cfg.PollInterval),
		jobsCh:    make(chan *api.ParameterSet, queueDepth),
		resultsCh: make(chan *RawOutcome, queueDepth),
	}
}

// Run drives the tuning loop to completion: the Generator task feeds the
// Dispatcher via jobsCh, the Dispatcher spawns one Job Lifecycle Actor per
// ParameterSet and returns outcomes via resultsCh, and the Generator
// consumes those outcomes until the SearchAlgorithm signals it is done. Run
// blocks until both tasks have finished and returns the final Ledger.
func (m *Manager) Run(ctx context.Context) (*ledger.Ledger, error) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		m.dispatch(ctx)
	}()
	go func() {
		defer wg.Done()
		m.generate(ctx)
	}()

	wg.Wait()
	return m.ledger, nil
}

// Ledger exposes the Manager's result ledger for inspection.
func (m *Manager) Ledger() *ledger.Ledger {
	return m.ledger
}

// Allocator exposes the worker allocator, mainly so callers can inspect
// poisoned workers after a run.
func (m *Manager) Allocator() *Allocator {
	return m.allocator
}

// dispatch is the Dispatcher task: it pulls ParameterSets off jobsCh,
// waits for a free worker, and spawns one Job Lifecycle Actor per job.
func (m *Manager) dispatch(ctx context.Context) {
	var actors sync.WaitGroup

	for {
		params, ok := <-m.jobsCh
		if !ok || params == nil {
			break
		}

		worker, err := m.allocator.AwaitWorker(ctx)
		if err != nil {
			// Context canceled while scanning for a worker; stop
			// dispatching new actors.
			break
		}

		m.cfg.Metrics.RecordDispatch(worker)
		actors.Add(1)
		go func(worker int, params *api.ParameterSet) {
			defer actors.Done()
			start := time.Now()
			outcome := runActor(ctx, m.cfg, m.backend, m.allocator, worker, params)
			m.cfg.Metrics.RecordOutcome(outcome.Status, time.Since(start))
			m.resultsCh <- &outcome
		}(worker, params)

		if sleep(ctx, m.cfg.PollInterval) {
			break
		}
	}

	actors.Wait()
	m.resultsCh <- nil
}

// generate is the Generator task. It keeps draining resultsCh —
// recording every outcome into the Ledger — until the Dispatcher's own
// sentinel (nil) arrives, even after the SearchAlgorithm has signaled it is
// done: jobs dispatched before the algorithm's sentinel must still be
// allowed to finish and land in the Ledger.
func (m *Manager) generate(ctx context.Context) {
	for _, params := range m.algorithm.GenInitialParams() {
		m.jobsCh <- params
	}

	sequence := 0
	algorithmDone := false
	for {
		raw := <-m.resultsCh
		if raw == nil {
			break
		}

		sequence++
		outcome := api.JobOutcome{
			Result:         raw.Result,
			ParamsString:   raw.ParamsString,
			Status:         raw.Status,
			SequenceNumber: sequence,
		}

		if err := m.ledger.Append(outcome); err != nil {
			tunelog.LogError(m.cfg.Logger, err, "ledger_append")
		}

		if algorithmDone {
			continue
		}

		next, ok := m.algorithm.GenNewParams(raw.Result, raw.Params, outcome.EvaluationSucceeded())
		for _, p := range next {
			m.jobsCh <- p
		}
		if !ok {
			algorithmDone = true
			close(m.jobsCh)
		}
	}
}
