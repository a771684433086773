// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

// Package retry provides the pluggable retry/backoff policies used by the
// Job Lifecycle Actor (a uniform-gap policy by default). backends/httpjob
// does not use this package: its transport retries with its own backoff in
// WithRetry.
package retry

import (
	"context"
	"time"
)

// Policy decides whether a failed attempt should be retried and how long to
// wait before the next attempt.
type Policy interface {
	// ShouldRetry reports whether attempt (1-indexed, the attempt that just
	// failed with err) should be retried.
	ShouldRetry(err error, attempt int) bool

	// WaitTime returns how long to sleep before attempt+1.
	WaitTime(attempt int) time.Duration

	// MaxRetries returns the bound the policy was built with: the total
	// attempt budget for FixedDelay and ExponentialBackoff, 0 for NoRetry.
	MaxRetries() int
}

// FixedDelay makes at most MaxAttempts attempts in total (at most
// MaxAttempts-1 retries) with a constant gap between attempts. This is the engine's default Job Lifecycle Actor policy: "no
// exponential backoff required" for backend retries.
type FixedDelay struct {
	MaxAttempts int
	Gap         time.Duration
}

// NewFixedDelay builds a FixedDelay policy allowing at most maxAttempts
// attempts with a constant gap between them.
func NewFixedDelay(maxAttempts int, gap time.Duration) FixedDelay {
	return FixedDelay{MaxAttempts: maxAttempts, Gap: gap}
}

func (f FixedDelay) ShouldRetry(err error, attempt int) bool {
	return err != nil && attempt < f.MaxAttempts
}

func (f FixedDelay) WaitTime(attempt int) time.Duration {
	return f.Gap
}

func (f FixedDelay) MaxRetries() int {
	return f.MaxAttempts
}

// ExponentialBackoff doubles the wait after each failed attempt, capped at
// Max; no jitter is applied. Like FixedDelay, it makes at most MaxAttempts
// attempts in total.
type ExponentialBackoff struct {
	MaxAttempts int
	Base        time.Duration
	Max         time.Duration
}

// NewExponentialBackoff builds an ExponentialBackoff policy.
func NewExponentialBackoff(maxAttempts int, base, max time.Duration) ExponentialBackoff {
	return ExponentialBackoff{MaxAttempts: maxAttempts, Base: base, Max: max}
}

func (e ExponentialBackoff) ShouldRetry(err error, attempt int) bool {
	return err != nil && attempt < e.MaxAttempts
}

func (e ExponentialBackoff) WaitTime(attempt int) time.Duration {
	d := e.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= e.Max {
			return e.Max
		}
	}
	if d > e.Max {
		return e.Max
	}
	return d
}

func (e ExponentialBackoff) MaxRetries() int {
	return e.MaxAttempts
}

// NoRetry never retries. Useful for tests and for callers that want to
// surface the first failure immediately.
type NoRetry struct{}

func (NoRetry) ShouldRetry(err error, attempt int) bool { return false }
func (NoRetry) WaitTime(attempt int) time.Duration      { return 0 }
func (NoRetry) MaxRetries() int                         { return 0 }

// Do runs fn, retrying per policy until it succeeds, the policy gives up, or
// ctx is canceled. It returns the last error encountered.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !policy.ShouldRetry(err, attempt) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.WaitTime(attempt)):
		}
	}
}

// DoValue is Do for functions that produce a result alongside the error,
// such as a Backend call returning a JobHandle or a JobStatus. OnRetry, if
// non-nil, is invoked with the operation's error each time the policy
// decides to retry (used to drive retry counters).
func DoValue[T any](ctx context.Context, policy Policy, onRetry func(err error), fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 1; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !policy.ShouldRetry(err, attempt) {
			return zero, err
		}
		if onRetry != nil {
			onRetry(err)
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(policy.WaitTime(attempt)):
		}
	}
}
