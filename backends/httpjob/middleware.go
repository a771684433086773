// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

package httpjob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/paramtune/paramtune/pkg/tunelog"
)

// Middleware wraps an http.RoundTripper with additional behavior.
type Middleware func(http.RoundTripper) http.RoundTripper

// Chain composes middlewares into one, applied outermost-first: the first
// middleware in the argument list sees the request first.
func Chain(middlewares ...Middleware) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// RoundTripperFunc adapts a function to the http.RoundTripper interface.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// WithTimeout bounds every request that doesn't already carry a context
// deadline.
func WithTimeout(timeout time.Duration) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			ctx := req.Context()
			if _, hasDeadline := ctx.Deadline(); !hasDeadline && timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
				req = req.WithContext(ctx)
			}
			return next.RoundTrip(req)
		})
	}
}

// WithLogging logs every request/response pair at Debug/Info level.
func WithLogging(logger tunelog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			reqLogger := logger.With(
				"method", req.Method,
				"path", req.URL.Path,
				"host", req.URL.Host,
			)
			reqLogger.Debug("sending request")

			resp, err := next.RoundTrip(req)
			duration := time.Since(start)
			if err != nil {
				tunelog.LogError(reqLogger, err, "http_request",
					"duration_ms", duration.Milliseconds())
				return nil, err
			}
			reqLogger.Info("request completed",
				"status_code", resp.StatusCode,
				"duration_ms", duration.Milliseconds())
			return resp, nil
		})
	}
}

// ShouldRetryFunc decides whether a completed round trip should be retried.
type ShouldRetryFunc func(resp *http.Response, err error, attempt int) bool

// DefaultShouldRetry retries network errors, 5xx, and 429, but never a
// canceled context.
func DefaultShouldRetry(resp *http.Response, err error, attempt int) bool {
	if err != nil {
		return err != context.Canceled
	}
	if resp != nil && (resp.StatusCode >= 500 || resp.StatusCode == 429) {
		return true
	}
	return false
}

// WithRetry retries the round trip with exponential backoff, cloning the
// request body for each attempt.
func WithRetry(maxAttempts int, shouldRetry ShouldRetryFunc) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			var lastErr error
			var lastResp *http.Response

			for attempt := 0; attempt < maxAttempts; attempt++ {
				reqCopy := cloneRequest(req)
				resp, err := next.RoundTrip(reqCopy)

				if !shouldRetry(resp, err, attempt) {
					return resp, err
				}
				if resp != nil && resp.Body != nil {
					io.Copy(io.Discard, resp.Body)
					resp.Body.Close()
				}
				lastErr, lastResp = err, resp

				if attempt < maxAttempts-1 {
					select {
					case <-time.After(backoffFor(attempt)):
					case <-req.Context().Done():
						return nil, req.Context().Err()
					}
				}
			}
			if lastErr != nil {
				return nil, fmt.Errorf("all %d attempts failed: %w", maxAttempts, lastErr)
			}
			return lastResp, nil
		})
	}
}

func backoffFor(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * 100 * time.Millisecond
	if base > 5*time.Second {
		base = 5 * time.Second
	}
	jitter := time.Duration(float64(base) * 0.1)
	return base + jitter
}

// WithAuth attaches credentials from provider to every request.
func WithAuth(provider Provider) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			req = cloneRequest(req)
			if err := provider.Authenticate(req.Context(), req); err != nil {
				return nil, fmt.Errorf("httpjob: authentication failed: %w", err)
			}
			return next.RoundTrip(req)
		})
	}
}

// WithRequestID stamps every request with a correlation id generated by
// generator, for cross-service log correlation.
func WithRequestID(generator func() string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			req = cloneRequest(req)
			req.Header.Set("X-Request-ID", generator())
			return next.RoundTrip(req)
		})
	}
}

func cloneRequest(req *http.Request) *http.Request {
	r := req.Clone(req.Context())
	if req.Body != nil {
		bodyBytes, _ := io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	}
	return r
}
