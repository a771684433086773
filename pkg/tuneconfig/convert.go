// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

package tuneconfig

import (
	"fmt"
	"time"

	"github.com/paramtune/paramtune/api"
	"github.com/paramtune/paramtune/backends"
	"github.com/paramtune/paramtune/internal/execution"
	"github.com/paramtune/paramtune/pkg/retry"
	"github.com/paramtune/paramtune/pkg/tunelog"
	"github.com/paramtune/paramtune/pkg/tunemetrics"
	"github.com/paramtune/paramtune/search"
)

// ParameterSpecs converts the on-disk Params into api.ParameterSpecs,
// re-running the construction-time invariants enforced by api.Range,
// api.LogRange, and api.Values. Assumes s has already passed Parse's
// semantic validation, which guarantees Min/Max are set for range and
// log_range parameters.
func (s *Spec) ParameterSpecs() ([]api.ParameterSpec, error) {
	specs := make([]api.ParameterSpec, 0, len(s.Params))
	for _, p := range s.Params {
		var (
			spec api.ParameterSpec
			err  error
		)
		switch p.Kind {
		case "range":
			spec, err = api.Range(p.Name, *p.Min, *p.Max)
		case "log_range":
			spec, err = api.LogRange(p.Name, *p.Min, *p.Max)
		case "values":
			spec, err = api.Values(p.Name, p.Values...)
		default:
			err = fmt.Errorf("parameter %q: unrecognized kind %q", p.Name, p.Kind)
		}
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// ConstraintSpecs converts the on-disk Constraints into api.ConstraintSpecs
// using the default real-parsing formatter.
func (s *Spec) ConstraintSpecs() []api.ConstraintSpec {
	specs := make([]api.ConstraintSpec, len(s.Constraints))
	for i, c := range s.Constraints {
		specs[i] = api.ConstraintSpec{
			Pattern:   c.Pattern,
			Lo:        c.Lo,
			Hi:        c.Hi,
			SkipFirst: c.SkipFirst,
			Formatter: api.DefaultFormatter,
		}
	}
	return specs
}

// ParsedObjective parses the on-disk Objective string into an
// api.Objective.
func (s *Spec) ParsedObjective() (api.Objective, error) {
	return api.ParseObjective(s.Objective)
}

// ExecutionConfig builds the execution.Config for a run described by s.
// logger and metrics may be nil, in which case the Manager's own no-op
// defaults apply.
func (s *Spec) ExecutionConfig(logger tunelog.Logger, metrics tunemetrics.Collector) (execution.Config, error) {
	objective, err := s.ParsedObjective()
	if err != nil {
		return execution.Config{}, err
	}

	pollInterval := durationOrZero(s.PollIntervalSeconds)
	cfg := execution.Config{
		ResultPattern:  s.ResultPattern,
		Constraints:    s.ConstraintSpecs(),
		Objective:      objective,
		PollInterval:   pollInterval,
		LogSettleDelay: durationOrZero(s.LogSettleDelaySeconds),
		Logger:         logger,
		Metrics:        metrics,
	}
	if s.MaxRetries > 0 && pollInterval > 0 {
		cfg.RetryPolicy = retry.NewFixedDelay(s.MaxRetries, pollInterval)
	}
	return cfg, nil
}

func durationOrZero(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// BuildBackend resolves s.Backend through registry, which must already
// contain a constructor registered under s.Backend.Type (typically via the
// side-effecting import of a backends/* package).
func (s *Spec) BuildBackend(registry *backends.Registry) (api.Backend, error) {
	if registry == nil {
		registry = backends.Default
	}
	return registry.New(s.Backend.Type, s.Backend.Options)
}

// BuildSearchAlgorithm resolves s.SearchAlgorithm through registry, which
// must already contain a constructor registered under
// s.SearchAlgorithm.Type. The top-level Params are injected into the
// options passed to the constructor under the "params" key (unless the
// document already set one explicitly), so a config document only has to
// describe its search space once, in the top-level params list, rather
// than repeating it under search_algorithm.options.
func (s *Spec) BuildSearchAlgorithm(registry *search.Registry) (api.SearchAlgorithm, error) {
	if registry == nil {
		registry = search.Default
	}
	return registry.New(s.SearchAlgorithm.Type, s.searchOptionsWithParams())
}

// searchOptionsWithParams returns a copy of s.SearchAlgorithm.Options with
// "params" set to the raw form search/random's constructor expects, built
// from the top-level Params, unless the document already carries its own.
func (s *Spec) searchOptionsWithParams() map[string]any {
	merged := make(map[string]any, len(s.SearchAlgorithm.Options)+1)
	for k, v := range s.SearchAlgorithm.Options {
		merged[k] = v
	}
	if _, ok := merged["params"]; ok {
		return merged
	}

	rawParams := make([]any, len(s.Params))
	for i, p := range s.Params {
		entry := map[string]any{"name": p.Name, "kind": p.Kind}
		if p.Min != nil {
			entry["min"] = *p.Min
		}
		if p.Max != nil {
			entry["max"] = *p.Max
		}
		if p.Values != nil {
			entry["values"] = p.Values
		}
		rawParams[i] = entry
	}
	merged["params"] = rawParams
	return merged
}
