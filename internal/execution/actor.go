// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/paramtune/paramtune/api"
	"github.com/paramtune/paramtune/internal/logparse"
	"github.com/paramtune/paramtune/pkg/retry"
	"github.com/paramtune/paramtune/pkg/tunelog"
)

// RawOutcome is what a Job Lifecycle Actor pushes onto the results queue:
// everything in a JobOutcome except the sequence number, which the
// Execution Manager assigns at dequeue time. Params carries the original
// ParameterSet the Dispatcher handed this actor, so the Generator can feed
// GenNewParams the caller's own typed values instead of reconstructing them
// from ParamsString, which only ever recovers strings (api.ParseParameterSet).
type RawOutcome struct {
	Result       float64
	ParamsString string
	Status       string
	Params       *api.ParameterSet
}

// runActor drives one job through the launch/poll/kill/finalize state
// machine to completion. It never returns an error: any unhandled failure,
// including a panic inside a Backend call, is caught at the actor boundary
// and converted to a RawOutcome with api.StatusFailedUnhandled.
func runActor(ctx context.Context, cfg Config, backend api.Backend, allocator *Allocator, worker int, params *api.ParameterSet) (outcome RawOutcome) {
	failureScore := cfg.Objective.FailureScore()
	paramsString := params.String()

	defer func() {
		if r := recover(); r != nil {
			cfg.Logger.Error("job actor panicked", "worker", worker, "params", paramsString, "panic", fmt.Sprintf("%v", r))
			outcome = RawOutcome{Result: failureScore, ParamsString: paramsString, Status: api.StatusFailedUnhandled, Params: params}
		}
	}()

	handle, err := retry.DoValue(ctx, cfg.RetryPolicy, retryRecorder(cfg, "launch"), func(ctx context.Context) (api.JobHandle, error) {
		return backend.LaunchJob(ctx, worker, paramsString)
	})
	if err != nil {
		tunelog.LogJobEvent(cfg.Logger, paramsString, worker, "LaunchFailed", "error", err.Error())
		return RawOutcome{Result: failureScore, ParamsString: paramsString, Status: api.StatusFailedLaunch, Params: params}
	}
	tunelog.LogJobEvent(cfg.Logger, paramsString, worker, "Launched")

	for {
		status, err := retry.DoValue(ctx, cfg.RetryPolicy, retryRecorder(cfg, "status"), func(ctx context.Context) (api.JobStatus, error) {
			return backend.GetJobStatus(ctx, handle)
		})
		if err != nil {
			// Lost status observation: liveness over safety, treat as Running.
			status = api.JobRunning
		}

		switch status {
		case api.JobRunning, api.JobPending:
			done, result, status := handleRunning(ctx, cfg, backend, allocator, handle, worker, paramsString, failureScore)
			if done {
				return RawOutcome{Result: result, ParamsString: paramsString, Status: status, Params: params}
			}
			if sleep(ctx, cfg.PollInterval) {
				// Run canceled: make one attempt to kill the still-running
				// job before returning.
				_ = backend.KillJob(context.WithoutCancel(ctx), handle)
				return RawOutcome{Result: failureScore, ParamsString: paramsString, Status: api.StatusFailedUnhandled, Params: params}
			}
			continue

		case api.JobSucceeded:
			result, status := handleSucceeded(ctx, cfg, backend, handle, worker, paramsString, failureScore)
			return RawOutcome{Result: result, ParamsString: paramsString, Status: status, Params: params}

		default: // JobFailed, JobKilled, JobNotFound, JobUnknown
			tunelog.LogJobEvent(cfg.Logger, paramsString, worker, status.String())
			return RawOutcome{Result: failureScore, ParamsString: paramsString, Status: api.StatusFailed, Params: params}
		}
	}
}

// handleRunning implements the CheckConstraints and Killing states. It
// returns done=true with a terminal (result, status) when the job is killed
// for a constraint violation or permanently poisons the worker; done=false
// means "still running, go back to Polling".
func handleRunning(ctx context.Context, cfg Config, backend api.Backend, allocator *Allocator, handle api.JobHandle, worker int, paramsString string, failureScore float64) (done bool, result float64, status string) {
	log, err := backend.GetLogsForJob(ctx, handle)
	if err != nil {
		// Log unavailable: stay in Polling.
		return false, 0, ""
	}

	if logparse.EvaluateConstraints(logparse.Sanitize([]byte(log)), cfg.Constraints) {
		return false, 0, ""
	}

	cfg.Metrics.RecordConstraintViolation()
	_, killErr := retry.DoValue(ctx, cfg.RetryPolicy, retryRecorder(cfg, "kill"), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, backend.KillJob(ctx, handle)
	})
	if killErr != nil {
		// Kill retries exhausted. Rather than leave this actor polling a
		// job we can no longer control forever, poison the worker so the
		// Allocator never reassigns it and terminate.
		allocator.Poison(worker)
		tunelog.LogJobEvent(cfg.Logger, paramsString, worker, "KillFailedWorkerPoisoned", "error", killErr.Error())
		return true, failureScore, api.StatusConstraintViolation
	}

	tunelog.LogJobEvent(cfg.Logger, paramsString, worker, "KilledForConstraintViolation")
	return true, failureScore, api.StatusConstraintViolation
}

// handleSucceeded implements the Finalize state.
func handleSucceeded(ctx context.Context, cfg Config, backend api.Backend, handle api.JobHandle, worker int, paramsString string, failureScore float64) (result float64, status string) {
	if sleep(ctx, cfg.LogSettleDelay) {
		return failureScore, api.StatusFailedUnhandled
	}

	log, err := retry.DoValue(ctx, cfg.RetryPolicy, retryRecorder(cfg, "logs"), func(ctx context.Context) (string, error) {
		return backend.GetLogsForJob(ctx, handle)
	})
	if err != nil {
		return failureScore, api.StatusFailedLogAccess
	}

	sanitized := logparse.Sanitize([]byte(log))

	value, parseErr := logparse.ParseResult(sanitized, cfg.ResultPattern)
	if parseErr != nil {
		return failureScore, api.StatusFailedPatternNotFound(cfg.ResultPattern)
	}

	if !logparse.EvaluateConstraints(sanitized, cfg.Constraints) {
		return failureScore, api.StatusConstraintViolation
	}

	tunelog.LogJobEvent(cfg.Logger, paramsString, worker, "Succeeded", "result", value)
	return value, api.StatusSucceeded
}

// sleep waits for d or ctx cancellation, reporting whether it was
// interrupted by cancellation.
func sleep(ctx context.Context, d time.Duration) (canceled bool) {
	select {
	case <-ctx.Done():
		return true
	case <-time.After(d):
		return false
	}
}

func retryRecorder(cfg Config, operation string) func(error) {
	return func(err error) {
		cfg.Metrics.RecordRetry(operation)
	}
}
