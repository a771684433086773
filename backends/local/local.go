// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

// Package local is a Backend that runs jobs as subprocesses on the local
// machine, one OS process per worker slot. It is the simplest possible
// reference adapter: a single machine standing in for a pool of remote
// execution workers.
package local

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/paramtune/paramtune/api"
	"github.com/paramtune/paramtune/pkg/tuneerr"
)

// KillGracePeriod is how long Backend waits after SIGTERM before escalating
// to SIGKILL.
const KillGracePeriod = 5 * time.Second

// Backend launches the configured command once per job, passing the
// job's params_string as its final argument. Each of the N worker slots
// runs at most one process at a time.
type Backend struct {
	numWorkers int
	command    string
	args       []string

	mu    sync.Mutex
	slots map[int]*job
}

// New creates a Backend with numWorkers slots that invokes command (with
// args prepended, and the job's params_string appended as the final
// argument) for every launched job.
func New(numWorkers int, command string, args ...string) *Backend {
	return &Backend{
		numWorkers: numWorkers,
		command:    command,
		args:       args,
		slots:      make(map[int]*job, numWorkers),
	}
}

type job struct {
	cmd    *exec.Cmd
	output *syncBuffer
	done   chan struct{}
	exitErr error
}

func (b *Backend) NumWorkers() int {
	return b.numWorkers
}

func (b *Backend) IsWorkerAvailable(ctx context.Context, worker int) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, busy := b.slots[worker]
	return !busy, nil
}

func (b *Backend) LaunchJob(ctx context.Context, worker int, params string) (api.JobHandle, error) {
	b.mu.Lock()
	if _, busy := b.slots[worker]; busy {
		b.mu.Unlock()
		return api.JobHandle{}, tuneerr.LaunchError(fmt.Sprintf("worker %d already running a job", worker), nil)
	}
	b.mu.Unlock()

	args := append(append([]string{}, b.args...), params)
	cmd := exec.Command(b.command, args...)
	out := &syncBuffer{}
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		return api.JobHandle{}, tuneerr.LaunchError(fmt.Sprintf("failed to start %q", b.command), err)
	}

	j := &job{cmd: cmd, output: out, done: make(chan struct{})}
	b.mu.Lock()
	b.slots[worker] = j
	b.mu.Unlock()

	go func() {
		j.exitErr = cmd.Wait()
		close(j.done)
		b.mu.Lock()
		if b.slots[worker] == j {
			delete(b.slots, worker)
		}
		b.mu.Unlock()
	}()

	return api.JobHandle{Raw: j}, nil
}

func (b *Backend) GetJobStatus(ctx context.Context, handle api.JobHandle) (api.JobStatus, error) {
	j, ok := handle.Raw.(*job)
	if !ok {
		return api.JobUnknown, tuneerr.StatusError("invalid job handle", nil)
	}

	select {
	case <-j.done:
		if j.exitErr == nil {
			return api.JobSucceeded, nil
		}
		return api.JobFailed, nil
	default:
		return api.JobRunning, nil
	}
}

func (b *Backend) GetLogsForJob(ctx context.Context, handle api.JobHandle) (string, error) {
	j, ok := handle.Raw.(*job)
	if !ok {
		return "", tuneerr.LogRetrievalError("invalid job handle", nil)
	}
	return j.output.String(), nil
}

func (b *Backend) KillJob(ctx context.Context, handle api.JobHandle) error {
	j, ok := handle.Raw.(*job)
	if !ok {
		return tuneerr.KillError("invalid job handle", nil)
	}

	select {
	case <-j.done:
		return nil
	default:
	}

	if err := j.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return tuneerr.KillError("failed to send SIGTERM", err)
	}

	select {
	case <-j.done:
		return nil
	case <-time.After(KillGracePeriod):
		if err := j.cmd.Process.Kill(); err != nil {
			return tuneerr.KillError("failed to send SIGKILL", err)
		}
		return nil
	}
}

// syncBuffer is a mutex-protected bytes.Buffer safe for one writer (the
// process) and concurrent readers (GetLogsForJob calls from actor retries).
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}
