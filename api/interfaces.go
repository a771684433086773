// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

package api

import "context"

// Backend is an abstraction over remote compute that launches jobs, polls
// status, retrieves logs, and kills jobs. Concrete backends (cloud VM
// provisioning, workflow-scheduler API clients, SSH command execution) are
// external collaborators plugged in behind this interface; see
// backends/local and backends/httpjob for two reference adapters.
//
// Every method may return a retryable error (see pkg/tuneerr); the engine
// retries each call up to a bounded attempt count before giving up. A
// Backend whose methods are invoked concurrently from multiple Job
// Lifecycle Actors must be safe for concurrent use.
type Backend interface {
	// NumWorkers returns the fixed, positive number of workers this
	// backend exposes. Queried once at startup.
	NumWorkers() int

	// IsWorkerAvailable reports whether worker is currently free to
	// accept a job. A transient error is treated by the engine as "not
	// available at this instant".
	IsWorkerAvailable(ctx context.Context, worker int) (bool, error)

	// LaunchJob starts params on worker and returns the handle the
	// engine will use for every subsequent call about this job. The
	// implementation may assume the worker was just reported available.
	LaunchJob(ctx context.Context, worker int, params string) (JobHandle, error)

	// GetJobStatus returns the current status of the job identified by
	// handle.
	GetJobStatus(ctx context.Context, handle JobHandle) (JobStatus, error)

	// GetLogsForJob returns the job's stdout+stderr captured so far as a
	// single string.
	GetLogsForJob(ctx context.Context, handle JobHandle) (string, error)

	// KillJob terminates the job identified by handle.
	KillJob(ctx context.Context, handle JobHandle) error
}

// SearchAlgorithm proposes ParameterSets and consumes scalar feedback to
// steer future proposals. Concrete algorithms (random sampling,
// model-based optimization) are external collaborators plugged in behind
// this interface; see search/random for the reference adapter.
type SearchAlgorithm interface {
	// GenInitialParams returns the seed batch: user-pinned configurations
	// concatenated ahead of algorithm-chosen ones, or an empty slice.
	GenInitialParams() []*ParameterSet

	// GenNewParams is invoked once per completed job, in completion
	// order. It may return an empty slice (produce nothing this turn),
	// one or more ParameterSets to enqueue, or ok=false to signal that
	// the search is over, which terminates the Execution Manager.
	GenNewParams(result float64, params *ParameterSet, evaluationSucceeded bool) (next []*ParameterSet, ok bool)
}
