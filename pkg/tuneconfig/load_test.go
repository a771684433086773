// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

package tuneconfig

import (
	"testing"

	"github.com/paramtune/paramtune/internal/testutil"
)

const validDoc = `
result_pattern: "Result:"
objective: minimize
max_retries: 5
poll_interval_seconds: 0.01
log_settle_delay_seconds: 0.01
output_path: /tmp/paramtune-results.csv
params:
  - name: x0
    kind: range
    min: -5
    max: 5
  - name: x1
    kind: log_range
    min: 0.001
    max: 1.0
  - name: arch
    kind: values
    values: ["small", "large"]
constraints:
  - pattern: "valid ppl"
    lo: 0
    hi: 310
    skip_first: 0
backend:
  type: local
  options:
    command: /usr/bin/true
backend_unused_field_placeholder: {}
search_algorithm:
  type: random
  options:
    num_evals: 20
    seed: 0
`

func TestParse_ValidDocument(t *testing.T) {
	// validDoc above carries a stray top-level
	// backend_unused_field_placeholder key and is used by the rejection
	// test below for the unknown-field case. This variable holds only
	// accepted fields.
	doc := `
result_pattern: "Result:"
objective: minimize
params:
  - name: x0
    kind: range
    min: -5
    max: 5
backend:
  type: local
  options: {}
search_algorithm:
  type: random
  options:
    num_evals: 1
    seed: 0
`
	spec, err := Parse([]byte(doc))
	testutil.RequireNoError(t, err)
	testutil.AssertEqual(t, "Result:", spec.ResultPattern)
	testutil.AssertEqual(t, "minimize", spec.Objective)
	testutil.AssertEqual(t, 1, len(spec.Params))
}

func TestParse_RejectsUnknownTopLevelField(t *testing.T) {
	_, err := Parse([]byte(validDoc))
	testutil.AssertEqual(t, true, err != nil)
}

func TestParse_RejectsUnknownParamField(t *testing.T) {
	doc := `
result_pattern: "Result:"
objective: minimize
params:
  - name: x0
    kind: range
    min: -5
    max: 5
    typo_field: 1
backend:
  type: local
  options: {}
search_algorithm:
  type: random
  options: {num_evals: 1}
`
	_, err := Parse([]byte(doc))
	testutil.AssertEqual(t, true, err != nil)
}

func TestParse_RejectsMissingObjective(t *testing.T) {
	doc := `
result_pattern: "Result:"
params:
  - name: x0
    kind: range
    min: -5
    max: 5
backend:
  type: local
  options: {}
search_algorithm:
  type: random
  options: {num_evals: 1}
`
	_, err := Parse([]byte(doc))
	testutil.AssertEqual(t, true, err != nil)
}

func TestParse_RejectsInvalidObjective(t *testing.T) {
	doc := `
result_pattern: "Result:"
objective: sideways
params:
  - name: x0
    kind: range
    min: -5
    max: 5
backend:
  type: local
  options: {}
search_algorithm:
  type: random
  options: {num_evals: 1}
`
	_, err := Parse([]byte(doc))
	testutil.AssertEqual(t, true, err != nil)
}

func TestParse_RejectsRangeMinGreaterThanMax(t *testing.T) {
	doc := `
result_pattern: "Result:"
objective: minimize
params:
  - name: x0
    kind: range
    min: 5
    max: -5
backend:
  type: local
  options: {}
search_algorithm:
  type: random
  options: {num_evals: 1}
`
	_, err := Parse([]byte(doc))
	testutil.AssertEqual(t, true, err != nil)
}

func TestParse_RejectsLogRangeNonPositiveMin(t *testing.T) {
	doc := `
result_pattern: "Result:"
objective: minimize
params:
  - name: x0
    kind: log_range
    min: 0
    max: 5
backend:
  type: local
  options: {}
search_algorithm:
  type: random
  options: {num_evals: 1}
`
	_, err := Parse([]byte(doc))
	testutil.AssertEqual(t, true, err != nil)
}

func TestParse_RejectsEmptyValuesList(t *testing.T) {
	doc := `
result_pattern: "Result:"
objective: minimize
params:
  - name: arch
    kind: values
    values: []
backend:
  type: local
  options: {}
search_algorithm:
  type: random
  options: {num_evals: 1}
`
	_, err := Parse([]byte(doc))
	testutil.AssertEqual(t, true, err != nil)
}

func TestParse_RejectsConstraintLoGreaterThanHi(t *testing.T) {
	doc := `
result_pattern: "Result:"
objective: minimize
params:
  - name: x0
    kind: range
    min: 0
    max: 1
constraints:
  - pattern: "valid ppl"
    lo: 500
    hi: 100
backend:
  type: local
  options: {}
search_algorithm:
  type: random
  options: {num_evals: 1}
`
	_, err := Parse([]byte(doc))
	testutil.AssertEqual(t, true, err != nil)
}

func TestSpec_ParameterSpecsAndConstraintSpecsConvert(t *testing.T) {
	doc := `
result_pattern: "Result:"
objective: maximize
params:
  - name: x0
    kind: range
    min: -5
    max: 5
  - name: arch
    kind: values
    values: ["small", "large"]
constraints:
  - pattern: "valid ppl"
    lo: 0
    hi: 310
    skip_first: 2
backend:
  type: local
  options: {}
search_algorithm:
  type: random
  options: {num_evals: 1}
`
	spec, err := Parse([]byte(doc))
	testutil.RequireNoError(t, err)

	specs, err := spec.ParameterSpecs()
	testutil.RequireNoError(t, err)
	testutil.AssertEqual(t, 2, len(specs))

	constraints := spec.ConstraintSpecs()
	testutil.AssertEqual(t, 1, len(constraints))
	testutil.AssertEqual(t, 2, constraints[0].SkipFirst)

	objective, err := spec.ParsedObjective()
	testutil.RequireNoError(t, err)
	testutil.AssertEqual(t, true, objective.String() == "maximize")
}
