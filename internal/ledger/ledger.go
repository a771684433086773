// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

// Package ledger implements the ResultLedger: an append-only, resorted
// in-memory table of JobOutcomes with full-rewrite serialization to a CSV
// file, so the on-disk table stays globally sorted at all times.
package ledger

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"

	"github.com/paramtune/paramtune/api"
)

// Ledger is the ResultLedger. It is safe for concurrent use; the Execution
// Manager's Generator task is its only caller, but callers inspecting a
// running tuner's progress may read it from another goroutine.
type Ledger struct {
	mu         sync.Mutex
	objective  api.Objective
	outcomes   []api.JobOutcome
	outputPath string
	pattern    string
}

// New creates an empty Ledger. outputPath may be empty, in which case Append
// keeps rows in memory only and writes no file (useful for tests that only
// care about in-memory ordering).
// pattern is the result_pattern that becomes the first column's header.
func New(objective api.Objective, outputPath, pattern string) *Ledger {
	return &Ledger{objective: objective, outputPath: outputPath, pattern: pattern}
}

// Append adds outcome, resorts the ledger per Objective, and, if an output
// path was configured, rewrites the output file from scratch.
func (l *Ledger) Append(outcome api.JobOutcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.outcomes = append(l.outcomes, outcome)
	api.SortOutcomes(l.outcomes, l.objective)

	if l.outputPath == "" {
		return nil
	}
	return l.writeLocked()
}

// Snapshot returns a copy of the ledger's current rows, in sorted order.
func (l *Ledger) Snapshot() []api.JobOutcome {
	l.mu.Lock()
	defer l.mu.Unlock()

	cp := make([]api.JobOutcome, len(l.outcomes))
	copy(cp, l.outcomes)
	return cp
}

// Len reports the number of recorded outcomes.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.outcomes)
}

// writeLocked rewrites the output file in full. Callers must hold l.mu.
func (l *Ledger) writeLocked() error {
	f, err := os.Create(l.outputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{l.pattern, "params", "status", "job_id"}); err != nil {
		return err
	}
	for _, o := range l.outcomes {
		row := []string{
			strconv.FormatFloat(o.Result, 'g', -1, 64),
			o.ParamsString,
			o.Status,
			strconv.Itoa(o.SequenceNumber),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
