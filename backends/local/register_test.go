// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"testing"

	"github.com/paramtune/paramtune/backends"
	"github.com/paramtune/paramtune/internal/testutil"
)

func TestConstructFromOptions_BuildsBackend(t *testing.T) {
	b, err := backends.Default.New(Tag, map[string]any{
		"command":     "echo",
		"num_workers": 4.0,
		"args":        []any{"--flag"},
	})
	testutil.RequireNoError(t, err)
	testutil.AssertEqual(t, 4, b.NumWorkers())
}

func TestConstructFromOptions_RejectsMissingCommand(t *testing.T) {
	_, err := backends.Default.New(Tag, map[string]any{"num_workers": 1.0})
	testutil.AssertEqual(t, true, err != nil)
}
