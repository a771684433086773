// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

// Package httpjob is a Backend that drives a generic remote job-execution
// service over HTTP, with an optional WebSocket connection per job for
// low-latency log tailing. It is the reference adapter for deployments
// where workers live behind a network API rather than on the local
// machine; see backends/local for the single-machine counterpart.
package httpjob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/paramtune/paramtune/api"
	"github.com/paramtune/paramtune/pkg/tuneerr"
	"github.com/paramtune/paramtune/pkg/tunelog"
)

// Config configures a Backend.
type Config struct {
	// BaseURL is the job service's HTTP origin, e.g. "https://jobs.example.com".
	BaseURL string
	// NumWorkers is the fixed worker pool size this service exposes.
	NumWorkers int
	// Auth selects the credential scheme attached to every request.
	// Defaults to NoAuth.
	Auth Provider
	// HTTPTimeout bounds each individual request. Defaults to 30s.
	HTTPTimeout time.Duration
	// MaxAttempts is the number of transport-level attempts (request
	// retried on network error, 5xx, or 429) before giving up. Defaults
	// to 3.
	MaxAttempts int
	// Logger receives per-request diagnostic logs. Defaults to a no-op.
	Logger tunelog.Logger
	// DisableStreaming forces plain HTTP polling for logs even when the
	// service advertises a WebSocket log stream. Useful behind proxies
	// that don't support upgrades.
	DisableStreaming bool
}

func (c Config) withDefaults() Config {
	if c.Auth == nil {
		c.Auth = NewNoAuth()
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Logger == nil {
		c.Logger = tunelog.NoOpLogger{}
	}
	return c
}

// Backend implements api.Backend against a remote job-execution service.
type Backend struct {
	cfg    Config
	client *http.Client
}

// New constructs a Backend. Requires cfg.BaseURL and cfg.NumWorkers > 0.
func New(cfg Config) (*Backend, error) {
	cfg = cfg.withDefaults()
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("httpjob: BaseURL is required")
	}
	if cfg.NumWorkers <= 0 {
		return nil, fmt.Errorf("httpjob: NumWorkers must be positive")
	}

	transport := Chain(
		WithRequestID(uuid.NewString),
		WithAuth(cfg.Auth),
		WithLogging(cfg.Logger),
		WithRetry(cfg.MaxAttempts, DefaultShouldRetry),
		WithTimeout(cfg.HTTPTimeout),
	)(http.DefaultTransport)

	return &Backend{
		cfg:    cfg,
		client: &http.Client{Transport: transport},
	}, nil
}

func (b *Backend) NumWorkers() int { return b.cfg.NumWorkers }

type availabilityResponse struct {
	Available bool `json:"available"`
}

func (b *Backend) IsWorkerAvailable(ctx context.Context, worker int) (bool, error) {
	var out availabilityResponse
	if err := b.doJSON(ctx, http.MethodGet, fmt.Sprintf("/workers/%d", worker), nil, &out); err != nil {
		return false, tuneerr.WorkerAvailabilityError("failed to query worker availability", err)
	}
	return out.Available, nil
}

type launchRequest struct {
	Worker int    `json:"worker"`
	Params string `json:"params"`
}

type launchResponse struct {
	JobID string `json:"job_id"`
}

func (b *Backend) LaunchJob(ctx context.Context, worker int, params string) (api.JobHandle, error) {
	var out launchResponse
	body := launchRequest{Worker: worker, Params: params}
	if err := b.doJSON(ctx, http.MethodPost, "/jobs", body, &out); err != nil {
		return api.JobHandle{}, tuneerr.LaunchError(fmt.Sprintf("failed to launch job on worker %d", worker), err)
	}
	return api.JobHandle{Raw: out.JobID}, nil
}

type statusResponse struct {
	Status string `json:"status"`
}

func (b *Backend) GetJobStatus(ctx context.Context, handle api.JobHandle) (api.JobStatus, error) {
	jobID, ok := handle.Raw.(string)
	if !ok {
		return api.JobUnknown, tuneerr.StatusError("invalid job handle", nil)
	}
	var out statusResponse
	if err := b.doJSON(ctx, http.MethodGet, "/jobs/"+jobID+"/status", nil, &out); err != nil {
		return api.JobUnknown, tuneerr.StatusError(fmt.Sprintf("failed to query status for job %s", jobID), err)
	}
	return parseStatus(out.Status), nil
}

func parseStatus(s string) api.JobStatus {
	switch s {
	case "running":
		return api.JobRunning
	case "pending", "queued":
		return api.JobPending
	case "succeeded", "completed":
		return api.JobSucceeded
	case "failed", "error":
		return api.JobFailed
	case "killed", "canceled", "cancelled":
		return api.JobKilled
	case "not_found":
		return api.JobNotFound
	default:
		return api.JobUnknown
	}
}

func (b *Backend) GetLogsForJob(ctx context.Context, handle api.JobHandle) (string, error) {
	jobID, ok := handle.Raw.(string)
	if !ok {
		return "", tuneerr.LogRetrievalError("invalid job handle", nil)
	}

	if !b.cfg.DisableStreaming {
		logs, err := b.streamLogs(ctx, jobID)
		if err == nil {
			return logs, nil
		}
		tunelog.LogError(b.cfg.Logger, err, "log_stream_fallback", "job_id", jobID)
	}

	var buf bytes.Buffer
	if err := b.doRaw(ctx, http.MethodGet, "/jobs/"+jobID+"/logs", nil, &buf); err != nil {
		return "", tuneerr.LogRetrievalError(fmt.Sprintf("failed to retrieve logs for job %s", jobID), err)
	}
	return buf.String(), nil
}

func (b *Backend) KillJob(ctx context.Context, handle api.JobHandle) error {
	jobID, ok := handle.Raw.(string)
	if !ok {
		return tuneerr.KillError("invalid job handle", nil)
	}
	if err := b.doJSON(ctx, http.MethodDelete, "/jobs/"+jobID, nil, nil); err != nil {
		return tuneerr.KillError(fmt.Sprintf("failed to kill job %s", jobID), err)
	}
	return nil
}

// doJSON issues an HTTP request with a JSON body (if in is non-nil) and
// decodes a JSON response into out (if out is non-nil and the body is
// non-empty).
func (b *Backend) doJSON(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.cfg.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("httpjob: %s %s returned %s", method, path, resp.Status)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (b *Backend) doRaw(ctx context.Context, method, path string, in io.Reader, out *bytes.Buffer) error {
	req, err := http.NewRequestWithContext(ctx, method, b.cfg.BaseURL+path, in)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("httpjob: %s %s returned %s", method, path, resp.Status)
	}
	_, err = io.Copy(out, resp.Body)
	return err
}
