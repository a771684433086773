// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

// Package tuneconfig loads and validates the YAML document that describes
// one tuning run: the parameter domain, constraints, objective, timing
// knobs, and the backend/search-algorithm selection. Unknown fields at
// any level outside the free-form backend and search_algorithm options
// maps are a load-time error.
package tuneconfig

// ParamSpec is the on-disk description of one ParameterSpec. Exactly one of
// the kind-specific field groups is meaningful, selected by Kind.
type ParamSpec struct {
	Name   string   `yaml:"name" json:"name" validate:"required"`
	Kind   string   `yaml:"kind" json:"kind" validate:"required,oneof=range log_range values"`
	Min    *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max    *float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Values []any    `yaml:"values,omitempty" json:"values,omitempty"`
}

// Constraint is the on-disk description of one ConstraintSpec. The
// formatter is always the default real-parsing formatter; a config file
// cannot name an arbitrary function.
type Constraint struct {
	Pattern   string  `yaml:"pattern" json:"pattern" validate:"required"`
	Lo        float64 `yaml:"lo" json:"lo"`
	Hi        float64 `yaml:"hi" json:"hi"`
	SkipFirst int     `yaml:"skip_first" json:"skip_first" validate:"gte=0"`
}

// Component selects a pluggable Backend or SearchAlgorithm by its registry
// tag, plus a free-form options document the corresponding constructor
// interprets.
type Component struct {
	Type    string         `yaml:"type" json:"type" validate:"required"`
	Options map[string]any `yaml:"options" json:"options"`
}

// Spec is the schema-validated, tagged-variant configuration record for one
// tuning run.
type Spec struct {
	ResultPattern         string       `yaml:"result_pattern" json:"result_pattern" validate:"required"`
	Objective             string       `yaml:"objective" json:"objective" validate:"required,oneof=minimize maximize"`
	MaxRetries            int          `yaml:"max_retries" json:"max_retries" validate:"omitempty,gt=0"`
	PollIntervalSeconds   float64      `yaml:"poll_interval_seconds" json:"poll_interval_seconds" validate:"omitempty,gt=0"`
	LogSettleDelaySeconds float64      `yaml:"log_settle_delay_seconds" json:"log_settle_delay_seconds" validate:"omitempty,gt=0"`
	OutputPath            string       `yaml:"output_path" json:"output_path"`
	Params                []ParamSpec  `yaml:"params" json:"params" validate:"required,min=1,dive"`
	Constraints           []Constraint `yaml:"constraints,omitempty" json:"constraints,omitempty" validate:"omitempty,dive"`
	Backend               Component    `yaml:"backend" json:"backend" validate:"required"`
	SearchAlgorithm       Component    `yaml:"search_algorithm" json:"search_algorithm" validate:"required"`
}
