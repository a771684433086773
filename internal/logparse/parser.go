// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

// Package logparse implements the Log Parser and Constraint Evaluator:
// extracting a scalar result from a job's combined stdout+stderr, and
// fail-closed range checking of intermediate values against configured
// constraints.
package logparse

import (
	"errors"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/paramtune/paramtune/api"
)

// ErrNotFound is returned when result_pattern does not appear in the log
// followed by a parsable token.
var ErrNotFound = errors.New("pattern not found in log")

// Sanitize decodes raw job output as UTF-8, replacing any invalid byte
// sequence with the Unicode replacement character and stripping a leading
// byte-order mark. User programs are not guaranteed to emit valid UTF-8;
// this keeps strings.LastIndex and regexp from mismeasuring byte offsets on
// malformed input.
func Sanitize(raw []byte) string {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

// ParseResult finds the last occurrence of pattern in log and parses the
// whitespace-delimited token immediately following it as a real. The
// last-occurrence rule tolerates multi-epoch progress printing: users emit
// the final result line late in the log.
// It returns ErrNotFound if the pattern is absent or the trailing token
// fails to parse (including when the pattern is the very last thing in the
// log with no trailing token at all).
func ParseResult(log, pattern string) (float64, error) {
	idx := strings.LastIndex(log, pattern)
	if idx < 0 {
		return 0, ErrNotFound
	}

	rest := log[idx+len(pattern):]
	token := firstToken(rest)
	if token == "" {
		return 0, ErrNotFound
	}

	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, ErrNotFound
	}
	return v, nil
}

// firstToken returns the leading run of non-whitespace characters in s,
// after skipping any leading whitespace immediately following the pattern.
func firstToken(s string) string {
	s = strings.TrimLeft(s, " \t")
	end := strings.IndexAny(s, " \t\r\n")
	if end < 0 {
		return s
	}
	return s[:end]
}

// EvaluateConstraints checks log against every ConstraintSpec in order.
// It returns true only if every match (after skipping the first
// SkipFirst occurrences of each pattern) lies within its configured range.
// Any formatting/parsing failure is treated as a violation (fail-closed).
func EvaluateConstraints(log string, specs []api.ConstraintSpec) bool {
	for _, spec := range specs {
		if !evaluateOne(log, spec) {
			return false
		}
	}
	return true
}

func evaluateOne(log string, spec api.ConstraintSpec) bool {
	formatter := spec.Formatter
	if formatter == nil {
		formatter = api.DefaultFormatter
	}

	skipped := 0
	pos := 0
	for {
		idx := strings.Index(log[pos:], spec.Pattern)
		if idx < 0 {
			break
		}
		matchEnd := pos + idx + len(spec.Pattern)

		if skipped < spec.SkipFirst {
			skipped++
			pos = matchEnd
			continue
		}

		token := firstToken(log[matchEnd:])
		if token == "" {
			return false
		}
		v, err := formatter(token)
		if err != nil {
			return false
		}
		if v < spec.Lo || v > spec.Hi {
			return false
		}
		pos = matchEnd
	}
	return true
}
