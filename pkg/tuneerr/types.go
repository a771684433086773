// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

// Package tuneerr provides the structured error taxonomy that the Backend
// adapters in this module return for every Backend failure mode, plus codes
// for the engine-level outcomes.
package tuneerr

import (
	"fmt"
	"time"
)

// Code classifies a tuning error.
type Code string

const (
	// Backend errors. All are retryable.
	CodeLaunch             Code = "LAUNCH_ERROR"
	CodeStatus             Code = "STATUS_ERROR"
	CodeLogRetrieval       Code = "LOG_RETRIEVAL_ERROR"
	CodeKill               Code = "KILL_ERROR"
	CodeWorkerAvailability Code = "WORKER_AVAILABILITY_ERROR"

	// Engine-level outcomes. Not retryable. The Job Lifecycle Actor
	// reports these outcomes as ledger status strings (see api), not as
	// TuneErrors.
	CodeResultNotFound       Code = "RESULT_NOT_FOUND"
	CodeConstraintViolation  Code = "CONSTRAINT_VIOLATION"
	CodeAlgorithmExhausted   Code = "ALGORITHM_EXHAUSTED"
	CodeUnhandledException   Code = "UNHANDLED_EXCEPTION"
	CodeInvalidConfiguration Code = "INVALID_CONFIGURATION"
)

// backendRetryable holds the retryable codes: every Backend error is
// retried up to max_retries times with a uniform gap.
var backendRetryable = map[Code]bool{
	CodeLaunch:             true,
	CodeStatus:             true,
	CodeLogRetrieval:       true,
	CodeKill:               true,
	CodeWorkerAvailability: true,
}

// TuneError is the structured error type returned by Backend adapters and
// raised internally by the engine.
type TuneError struct {
	Code      Code
	Message   string
	Timestamp time.Time
	Cause     error
}

// New creates a TuneError with no cause.
func New(code Code, message string) *TuneError {
	return &TuneError{Code: code, Message: message, Timestamp: time.Now()}
}

// Wrap creates a TuneError around an existing error.
func Wrap(code Code, message string, cause error) *TuneError {
	return &TuneError{Code: code, Message: message, Timestamp: time.Now(), Cause: cause}
}

func (e *TuneError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *TuneError) Unwrap() error {
	return e.Cause
}

// Is matches on Code, so errors.Is(err, tuneerr.New(tuneerr.CodeLaunch, ""))
// works regardless of Message/Cause.
func (e *TuneError) Is(target error) bool {
	t, ok := target.(*TuneError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Retryable reports whether the engine should retry the call that
// produced this error.
func (e *TuneError) Retryable() bool {
	return backendRetryable[e.Code]
}

// LaunchError, StatusError, LogRetrievalError, KillError, and
// WorkerAvailabilityError build the error each Backend operation may
// return.
func LaunchError(message string, cause error) *TuneError {
	return Wrap(CodeLaunch, message, cause)
}

func StatusError(message string, cause error) *TuneError {
	return Wrap(CodeStatus, message, cause)
}

func LogRetrievalError(message string, cause error) *TuneError {
	return Wrap(CodeLogRetrieval, message, cause)
}

func KillError(message string, cause error) *TuneError {
	return Wrap(CodeKill, message, cause)
}

func WorkerAvailabilityError(message string, cause error) *TuneError {
	return Wrap(CodeWorkerAvailability, message, cause)
}
