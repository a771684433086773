// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers used across the engine's
// package tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Context returns a test context with a generous timeout, canceled
// automatically at test cleanup.
func Context(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func AssertNoError(t *testing.T, err error) {
	t.Helper()
	assert.NoError(t, err)
}

func RequireNoError(t *testing.T, err error) {
	t.Helper()
	require.NoError(t, err)
}

func AssertEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	assert.Equal(t, expected, actual)
}

func RequireEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	require.Equal(t, expected, actual)
}

func AssertNotNil(t *testing.T, obj interface{}) {
	t.Helper()
	assert.NotNil(t, obj)
}

// IntPtr returns a pointer to an int value.
func IntPtr(v int) *int { return &v }

// StringPtr returns a pointer to a string value.
func StringPtr(v string) *string { return &v }

// BoolPtr returns a pointer to a bool value.
func BoolPtr(v bool) *bool { return &v }
