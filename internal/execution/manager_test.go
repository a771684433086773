// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

package execution

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paramtune/paramtune/api"
	"github.com/paramtune/paramtune/internal/testutil"
	"github.com/paramtune/paramtune/search/random"
)

// jobScript describes how a simBackend job behaves: runningLogs is the
// sequence of logs returned, one per GetJobStatus call, while the job
// reports Running; once exhausted the job reports terminalStatus with
// terminalLog. Launch failures are scripted per worker through
// simBackend.failLaunchesLeft, not here.
type jobScript struct {
	runningLogs    []string
	terminalStatus api.JobStatus
	terminalLog    string
}

// simJob is one launched job's mutable state.
type simJob struct {
	mu       sync.Mutex
	worker   int
	script   *jobScript
	idx      int
	current  string
	terminal bool
}

// simBackend is an in-process, no-sleep stand-in for a real Backend: every
// job reaches its configured terminal state after consuming its
// runningLogs, with no actual subprocess or network call involved.
type simBackend struct {
	numWorkers int
	makeScript func(params string) *jobScript

	mu                  sync.Mutex
	busy                map[int]bool
	failLaunchesLeft    map[int]int
	availabilityErrLeft map[int]int
	jobs                map[int]*simJob
	nextID              int

	concurrent  int32
	maxObserved int32
}

func newSimBackend(numWorkers int, makeScript func(params string) *jobScript) *simBackend {
	return &simBackend{
		numWorkers:          numWorkers,
		makeScript:          makeScript,
		busy:                make(map[int]bool),
		failLaunchesLeft:    make(map[int]int),
		availabilityErrLeft: make(map[int]int),
		jobs:                make(map[int]*simJob),
	}
}

func (b *simBackend) NumWorkers() int { return b.numWorkers }

func (b *simBackend) IsWorkerAvailable(ctx context.Context, worker int) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if left := b.availabilityErrLeft[worker]; left > 0 {
		b.availabilityErrLeft[worker] = left - 1
		return false, fmt.Errorf("sim: transient availability error")
	}
	return !b.busy[worker], nil
}

func (b *simBackend) LaunchJob(ctx context.Context, worker int, params string) (api.JobHandle, error) {
	b.mu.Lock()
	if left := b.failLaunchesLeft[worker]; left > 0 {
		b.failLaunchesLeft[worker] = left - 1
		b.mu.Unlock()
		return api.JobHandle{}, fmt.Errorf("sim: transient launch error")
	}
	id := b.nextID
	b.nextID++
	job := &simJob{worker: worker, script: b.makeScript(params)}
	b.jobs[id] = job
	b.busy[worker] = true
	b.mu.Unlock()

	n := atomic.AddInt32(&b.concurrent, 1)
	for {
		max := atomic.LoadInt32(&b.maxObserved)
		if n <= max || atomic.CompareAndSwapInt32(&b.maxObserved, max, n) {
			break
		}
	}

	return api.JobHandle{Raw: id}, nil
}

func (b *simBackend) job(handle api.JobHandle) *simJob {
	id := handle.Raw.(int)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.jobs[id]
}

func (b *simBackend) free(worker int) {
	b.mu.Lock()
	b.busy[worker] = false
	b.mu.Unlock()
	atomic.AddInt32(&b.concurrent, -1)
}

func (b *simBackend) GetJobStatus(ctx context.Context, handle api.JobHandle) (api.JobStatus, error) {
	j := b.job(handle)
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.terminal {
		return j.script.terminalStatus, nil
	}
	if j.idx < len(j.script.runningLogs) {
		j.current = j.script.runningLogs[j.idx]
		j.idx++
		return api.JobRunning, nil
	}
	j.terminal = true
	j.current = j.script.terminalLog
	b.free(j.worker)
	return j.script.terminalStatus, nil
}

func (b *simBackend) GetLogsForJob(ctx context.Context, handle api.JobHandle) (string, error) {
	j := b.job(handle)
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.current, nil
}

func (b *simBackend) KillJob(ctx context.Context, handle api.JobHandle) error {
	j := b.job(handle)
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.terminal {
		j.terminal = true
		b.free(j.worker)
	}
	return nil
}

// sentinelAlgorithm is a canned SearchAlgorithm that emits a fixed batch of
// ParameterSets up front and never produces new ones; GenNewParams returns
// the sentinel once stopAfter feedbacks have been received. onFeedback, if
// set, is called with every feedback.
type sentinelAlgorithm struct {
	initial    []*api.ParameterSet
	stopAfter  int
	received   int
	onFeedback func(result float64, params *api.ParameterSet, succeeded bool)
}

func (a *sentinelAlgorithm) GenInitialParams() []*api.ParameterSet {
	return a.initial
}

func (a *sentinelAlgorithm) GenNewParams(result float64, params *api.ParameterSet, succeeded bool) ([]*api.ParameterSet, bool) {
	a.received++
	if a.onFeedback != nil {
		a.onFeedback(result, params, succeeded)
	}
	return nil, a.received < a.stopAfter
}

func fastConfig(resultPattern string, objective api.Objective) Config {
	return Config{
		ResultPattern:  resultPattern,
		Objective:      objective,
		PollInterval:   2 * time.Millisecond,
		LogSettleDelay: 1 * time.Millisecond,
	}
}

func paramSet(t *testing.T, x0, x1 float64) *api.ParameterSet {
	t.Helper()
	return api.NewParameterSet().Set("x0", x0).Set("x1", x1)
}

// S1: sphere minimization, 2D, random sampling seed 0, 20 candidates.
func TestManager_S1_SphereMinimization(t *testing.T) {
	ctx := testutil.Context(t)

	sphere := func(params string) *jobScript {
		ps := api.ParseParameterSet(params)
		x0v, _ := ps.Get("x0")
		x1v, _ := ps.Get("x1")
		x0, _ := parseFloatField(x0v)
		x1, _ := parseFloatField(x1v)
		value := (x0-1)*(x0-1) + (x1+2)*(x1+2) + 10
		return &jobScript{terminalStatus: api.JobSucceeded, terminalLog: fmt.Sprintf("Result: %v\n", value)}
	}

	backend := newSimBackend(4, sphere)

	x0, err := api.Range("x0", -5, 5)
	testutil.RequireNoError(t, err)
	x1, err := api.Range("x1", -5, 5)
	testutil.RequireNoError(t, err)

	algorithm, err := random.New([]api.ParameterSpec{x0, x1}, nil, 20, rand.New(rand.NewSource(0)))
	testutil.RequireNoError(t, err)

	manager := New(fastConfig("Result:", api.Minimize), backend, algorithm, "")
	ledger, err := manager.Run(ctx)
	testutil.RequireNoError(t, err)

	rows := ledger.Snapshot()
	testutil.AssertEqual(t, 20, len(rows))

	for _, row := range rows {
		testutil.AssertEqual(t, api.StatusSucceeded, row.Status)
	}
	// The sphere's true minimum over the sampled domain is 10 (at
	// x0=1, x1=-2); 20 uniform samples over [-5,5]^2 should comfortably
	// land well short of the domain's worst case (95).
	testutil.AssertEqual(t, true, rows[0].Result >= 10 && rows[0].Result < 95)
	for i := 1; i < len(rows); i++ {
		testutil.AssertEqual(t, true, rows[i-1].Result <= rows[i].Result)
	}
}

// S2: constraint early-kill. The job's log shows "valid ppl 1000" on its
// very first poll; the constraint [0,500] is violated immediately.
func TestManager_S2_ConstraintEarlyKill(t *testing.T) {
	ctx := testutil.Context(t)

	makeScript := func(params string) *jobScript {
		return &jobScript{
			runningLogs:    []string{"valid ppl 1000\n"},
			terminalStatus: api.JobSucceeded,
			terminalLog:    "Result: 5\n",
		}
	}
	backend := newSimBackend(2, makeScript)

	algorithm := &sentinelAlgorithm{
		initial:   []*api.ParameterSet{paramSet(t, 0, 0), paramSet(t, 1, 1)},
		stopAfter: 2,
	}

	cfg := fastConfig("Result:", api.Minimize)
	cfg.Constraints = []api.ConstraintSpec{{Pattern: "valid ppl", Lo: 0, Hi: 500, Formatter: api.DefaultFormatter}}

	manager := New(cfg, backend, algorithm, "")
	ledger, err := manager.Run(ctx)
	testutil.RequireNoError(t, err)

	rows := ledger.Snapshot()
	testutil.AssertEqual(t, 2, len(rows))
	for _, row := range rows {
		testutil.AssertEqual(t, api.StatusConstraintViolation, row.Status)
		testutil.AssertEqual(t, true, math.IsInf(row.Result, 1))
	}
}

// S3: launch retry. Each worker's first two LaunchJob calls fail; with
// max_retries=5 every job still completes normally.
func TestManager_S3_LaunchRetrySucceedsWithinBudget(t *testing.T) {
	ctx := testutil.Context(t)

	backend := newSimBackend(2, func(params string) *jobScript {
		return &jobScript{terminalStatus: api.JobSucceeded, terminalLog: "Result: 1\n"}
	})
	backend.failLaunchesLeft[0] = 2
	backend.failLaunchesLeft[1] = 2

	algorithm := &sentinelAlgorithm{
		initial:   []*api.ParameterSet{paramSet(t, 0, 0), paramSet(t, 1, 1)},
		stopAfter: 2,
	}

	cfg := fastConfig("Result:", api.Minimize)
	manager := New(cfg, backend, algorithm, "")
	ledger, err := manager.Run(ctx)
	testutil.RequireNoError(t, err)

	rows := ledger.Snapshot()
	testutil.AssertEqual(t, 2, len(rows))
	for _, row := range rows {
		testutil.AssertEqual(t, api.StatusSucceeded, row.Status)
	}
}

// S4: algorithm-driven termination. The algorithm emits 3 ParameterSets
// then signals it is done on the very next GenNewParams call.
func TestManager_S4_AlgorithmSentinelStopsCleanly(t *testing.T) {
	ctx := testutil.Context(t)

	backend := newSimBackend(4, func(params string) *jobScript {
		return &jobScript{terminalStatus: api.JobSucceeded, terminalLog: "Result: 1\n"}
	})

	algorithm := &sentinelAlgorithm{
		initial:   []*api.ParameterSet{paramSet(t, 0, 0), paramSet(t, 1, 1), paramSet(t, 2, 2)},
		stopAfter: 1,
	}

	manager := New(fastConfig("Result:", api.Minimize), backend, algorithm, "")
	ledger, err := manager.Run(ctx)
	testutil.RequireNoError(t, err)

	testutil.AssertEqual(t, 3, ledger.Len())
}

// S5: the user program never prints result_pattern.
func TestManager_S5_ResultPatternNotFound(t *testing.T) {
	ctx := testutil.Context(t)

	backend := newSimBackend(1, func(params string) *jobScript {
		return &jobScript{terminalStatus: api.JobSucceeded, terminalLog: "nothing interesting here\n"}
	})

	algorithm := &sentinelAlgorithm{initial: []*api.ParameterSet{paramSet(t, 0, 0)}, stopAfter: 1}

	manager := New(fastConfig("Result:", api.Minimize), backend, algorithm, "")
	ledger, err := manager.Run(ctx)
	testutil.RequireNoError(t, err)

	rows := ledger.Snapshot()
	testutil.AssertEqual(t, 1, len(rows))
	testutil.AssertEqual(t, api.StatusFailedPatternNotFound("Result:"), rows[0].Status)
	testutil.AssertEqual(t, true, math.IsInf(rows[0].Result, 1))
}

// S6: maximization orders results descending, and the failure score under
// Maximize is -Inf.
func TestManager_S6_MaximizationOrdersDescending(t *testing.T) {
	ctx := testutil.Context(t)

	scripts := map[string]*jobScript{
		"id=1": {terminalStatus: api.JobSucceeded, terminalLog: "Score: 0.7\n"},
		"id=2": {terminalStatus: api.JobSucceeded, terminalLog: "Score: 0.3\n"},
	}
	backend := newSimBackend(2, func(params string) *jobScript {
		return scripts[params]
	})

	algorithm := &sentinelAlgorithm{
		initial: []*api.ParameterSet{
			api.NewParameterSet().Set("id", 1),
			api.NewParameterSet().Set("id", 2),
		},
		stopAfter: 2,
	}

	cfg := fastConfig("Score:", api.Maximize)
	manager := New(cfg, backend, algorithm, "")
	ledger, err := manager.Run(ctx)
	testutil.RequireNoError(t, err)

	rows := ledger.Snapshot()
	testutil.AssertEqual(t, 2, len(rows))
	testutil.AssertEqual(t, 0.7, rows[0].Result)
	testutil.AssertEqual(t, 0.3, rows[1].Result)
	testutil.AssertEqual(t, true, math.IsInf(api.Maximize.FailureScore(), -1))
}

// Property 3: at no time does the number of live Job Lifecycle Actors
// exceed num_workers, even when the algorithm emits far more candidates
// than there are workers.
func TestManager_WorkerCountNeverExceedsNumWorkers(t *testing.T) {
	ctx := testutil.Context(t)

	const numWorkers = 3
	backend := newSimBackend(numWorkers, func(params string) *jobScript {
		return &jobScript{
			runningLogs:    []string{"tick\n"},
			terminalStatus: api.JobSucceeded,
			terminalLog:    "Result: 1\n",
		}
	})

	initial := make([]*api.ParameterSet, 15)
	for i := range initial {
		initial[i] = api.NewParameterSet().Set("i", i)
	}
	algorithm := &sentinelAlgorithm{initial: initial, stopAfter: 15}

	manager := New(fastConfig("Result:", api.Minimize), backend, algorithm, "")
	ledger, err := manager.Run(ctx)
	testutil.RequireNoError(t, err)

	testutil.AssertEqual(t, 15, ledger.Len())
	testutil.AssertEqual(t, true, atomic.LoadInt32(&backend.maxObserved) <= numWorkers)
}

// Property 6 / retry idempotence: a backend whose IsWorkerAvailable fails
// deterministically for the first few scans must not cause the eventually
// launched job to be counted as failed.
func TestManager_WorkerAvailabilityRetryIdempotence(t *testing.T) {
	ctx := testutil.Context(t)

	backend := newSimBackend(1, func(params string) *jobScript {
		return &jobScript{terminalStatus: api.JobSucceeded, terminalLog: "Result: 1\n"}
	})
	backend.availabilityErrLeft[0] = 3

	algorithm := &sentinelAlgorithm{initial: []*api.ParameterSet{paramSet(t, 0, 0)}, stopAfter: 1}

	manager := New(fastConfig("Result:", api.Minimize), backend, algorithm, "")
	ledger, err := manager.Run(ctx)
	testutil.RequireNoError(t, err)

	rows := ledger.Snapshot()
	testutil.AssertEqual(t, 1, len(rows))
	testutil.AssertEqual(t, api.StatusSucceeded, rows[0].Status)
}

func parseFloatField(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case string:
		var f float64
		_, err := fmt.Sscanf(val, "%g", &f)
		return f, err == nil
	default:
		return 0, false
	}
}
