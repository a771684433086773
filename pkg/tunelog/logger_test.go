// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

package tunelog

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/paramtune/paramtune/internal/testutil"
)

func newBufferedJSONLogger(t *testing.T) (Logger, *os.File, func() string) {
	t.Helper()
	r, w, err := os.Pipe()
	testutil.RequireNoError(t, err)
	logger := New(&Config{Format: FormatJSON, Output: w})
	read := func() string {
		w.Close()
		var buf bytes.Buffer
		buf.ReadFrom(r)
		return buf.String()
	}
	return logger, w, read
}

func TestNew_DefaultsToTextStdout(t *testing.T) {
	logger := New(nil)
	testutil.AssertNotNil(t, logger)
}

func TestSanitizeLogValue_StripsControlCharacters(t *testing.T) {
	got := sanitizeLogValue("line1\nline2\rline3\ttab")
	testutil.AssertEqual(t, "line1 line2 line3 tab", got)
}

func TestSanitizeLogValue_PassesNonStrings(t *testing.T) {
	testutil.AssertEqual(t, 42, sanitizeLogValue(42))
}

func TestLogJobEvent_IncludesStandardFields(t *testing.T) {
	logger, _, read := newBufferedJSONLogger(t)
	LogJobEvent(logger, "job-1", 3, "Running")

	out := read()
	var parsed map[string]any
	testutil.RequireNoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &parsed))
	testutil.AssertEqual(t, "job-1", parsed["job_id"])
	testutil.AssertEqual(t, float64(3), parsed["worker"])
	testutil.AssertEqual(t, "Running", parsed["status"])
}

func TestLogError_NilErrorIsNoOp(t *testing.T) {
	logger, _, read := newBufferedJSONLogger(t)
	LogError(logger, nil, "launch")
	out := read()
	testutil.AssertEqual(t, "", strings.TrimSpace(out))
}

func TestLogError_WritesOperationAndMessage(t *testing.T) {
	logger, _, read := newBufferedJSONLogger(t)
	LogError(logger, errors.New("boom"), "launch")

	out := read()
	var parsed map[string]any
	testutil.RequireNoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &parsed))
	testutil.AssertEqual(t, "launch", parsed["operation"])
	testutil.AssertEqual(t, "boom", parsed["error"])
}

func TestNoOpLogger_DiscardsEverything(t *testing.T) {
	logger := NoOpLogger{}
	logger.Info("should not panic")
	logger.With("k", "v").Error("still fine")
}
