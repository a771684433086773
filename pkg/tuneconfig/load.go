// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

package tuneconfig

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

var (
	structValidator = validator.New()
	docSchema       *openapi3.Schema
)

func init() {
	docSchema = &openapi3.Schema{}
	if err := json.Unmarshal(schemaJSON, docSchema); err != nil {
		panic(fmt.Sprintf("tuneconfig: embedded schema.json is invalid: %v", err))
	}
}

// Load reads, decodes, and validates the tuning run document at path. It
// fails closed: a malformed document, an unknown field at any level, a
// schema violation, a struct-tag validation failure, or a semantic error
// (e.g. a range with min > max) all return a non-nil error and a nil Spec.
func Load(path string) (*Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tuneconfig: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and validates a tuning run document already in memory.
func Parse(raw []byte) (*Spec, error) {
	var spec Spec
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("tuneconfig: decode: %w", err)
	}

	if err := validateSchema(&spec); err != nil {
		return nil, fmt.Errorf("tuneconfig: schema validation: %w", err)
	}
	if err := structValidator.Struct(&spec); err != nil {
		return nil, fmt.Errorf("tuneconfig: field validation: %w", err)
	}
	if err := validateSemantics(&spec); err != nil {
		return nil, fmt.Errorf("tuneconfig: %w", err)
	}

	return &spec, nil
}

// validateSchema re-encodes spec to its JSON form and validates it against
// the embedded JSON Schema, whose additionalProperties: false at every
// object level except the free-form options maps is the second, independent line of defense (alongside
// yaml.v3's KnownFields) against unrecognized fields.
func validateSchema(spec *Spec) error {
	encoded, err := json.Marshal(spec)
	if err != nil {
		return err
	}
	var value any
	if err := json.Unmarshal(encoded, &value); err != nil {
		return err
	}
	return docSchema.VisitJSON(value)
}

// validateSemantics checks the cross-field invariants that neither the
// JSON Schema nor struct tags can express: min <= max for range/
// log_range, min > 0 for log_range, a non-empty values list, and lo <= hi
// for every constraint.
func validateSemantics(spec *Spec) error {
	for _, p := range spec.Params {
		switch p.Kind {
		case "range":
			if p.Min == nil || p.Max == nil {
				return fmt.Errorf("parameter %q: range requires min and max", p.Name)
			}
			if *p.Min > *p.Max {
				return fmt.Errorf("parameter %q: range requires min <= max, got min=%v max=%v", p.Name, *p.Min, *p.Max)
			}
		case "log_range":
			if p.Min == nil || p.Max == nil {
				return fmt.Errorf("parameter %q: log_range requires min and max", p.Name)
			}
			if *p.Min <= 0 {
				return fmt.Errorf("parameter %q: log_range requires min > 0, got min=%v", p.Name, *p.Min)
			}
			if *p.Min > *p.Max {
				return fmt.Errorf("parameter %q: log_range requires min <= max, got min=%v max=%v", p.Name, *p.Min, *p.Max)
			}
		case "values":
			if len(p.Values) == 0 {
				return fmt.Errorf("parameter %q: values requires a non-empty list", p.Name)
			}
		}
	}
	for _, c := range spec.Constraints {
		if c.Lo > c.Hi {
			return fmt.Errorf("constraint on %q: lo must be <= hi, got lo=%v hi=%v", c.Pattern, c.Lo, c.Hi)
		}
	}
	return nil
}
