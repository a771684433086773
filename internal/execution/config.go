// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

// Package execution implements the Job Lifecycle Actor, the Worker
// Allocator, and the Execution Manager: the concurrent dispatcher that
// couples a SearchAlgorithm to a Backend over two channels.
package execution

import (
	"time"

	"github.com/paramtune/paramtune/api"
	"github.com/paramtune/paramtune/pkg/retry"
	"github.com/paramtune/paramtune/pkg/tunelog"
	"github.com/paramtune/paramtune/pkg/tunemetrics"
)

// Config bundles every tunable the Execution Manager needs.
type Config struct {
	// ResultPattern is searched for in job logs to extract the scalar
	// result.
	ResultPattern string

	// Constraints are evaluated, in order, against every job's log.
	Constraints []api.ConstraintSpec

	// Objective selects minimize vs. maximize, which determines the
	// failure score and ledger sort order.
	Objective api.Objective

	// PollInterval is the gap between status polls, worker-availability
	// rescans, and the Dispatcher's post-launch pause. Default 5s.
	PollInterval time.Duration

	// LogSettleDelay is the pause before the first log fetch on a
	// Succeeded job, giving the backend time to flush. Default 10s.
	LogSettleDelay time.Duration

	// RetryPolicy governs every Backend call. Defaults to
	// retry.NewFixedDelay(5, PollInterval) if nil: a uniform gap, no
	// exponential backoff.
	RetryPolicy retry.Policy

	// Logger receives structured diagnostic output. Defaults to
	// tunelog.NoOpLogger{} if nil.
	Logger tunelog.Logger

	// Metrics receives job-lifecycle counters. Defaults to
	// tunemetrics.NoOpCollector{} if nil.
	Metrics tunemetrics.Collector
}

const (
	defaultPollInterval   = 5 * time.Second
	defaultLogSettleDelay = 10 * time.Second
	defaultMaxRetries     = 5
)

// withDefaults returns a copy of cfg with every zero-valued field replaced
// by its spec-mandated default.
func (cfg Config) withDefaults() Config {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.LogSettleDelay <= 0 {
		cfg.LogSettleDelay = defaultLogSettleDelay
	}
	if cfg.RetryPolicy == nil {
		cfg.RetryPolicy = retry.NewFixedDelay(defaultMaxRetries, cfg.PollInterval)
	}
	if cfg.Logger == nil {
		cfg.Logger = tunelog.NoOpLogger{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = tunemetrics.NoOpCollector{}
	}
	return cfg
}
