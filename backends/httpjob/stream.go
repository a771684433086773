// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

package httpjob

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// streamQuietPeriod is how long streamLogs waits for a new frame before
// deciding the server has sent everything it currently has.
const streamQuietPeriod = 500 * time.Millisecond

// streamLogs opens a WebSocket connection to the job's log stream endpoint
// and accumulates every text frame the server sends until streamQuietPeriod
// passes with no new frame, then closes the connection and returns what was
// read. It is a snapshot read, not a long-lived tail: GetLogsForJob may
// call it repeatedly as a job progresses.
func (b *Backend) streamLogs(ctx context.Context, jobID string) (string, error) {
	wsURL, err := toWebSocketURL(b.cfg.BaseURL, "/jobs/"+jobID+"/logs/stream")
	if err != nil {
		return "", err
	}

	header := http.Header{}
	authReq, err := http.NewRequestWithContext(ctx, http.MethodGet, b.cfg.BaseURL, nil)
	if err == nil {
		if authErr := b.cfg.Auth.Authenticate(ctx, authReq); authErr == nil {
			header = authReq.Header.Clone()
		}
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return "", fmt.Errorf("httpjob: dial log stream: %w", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	var sb strings.Builder
	for {
		conn.SetReadDeadline(time.Now().Add(streamQuietPeriod))
		_, message, err := conn.ReadMessage()
		if err != nil {
			break
		}
		sb.Write(message)
	}
	return sb.String(), nil
}

func toWebSocketURL(baseURL, path string) (string, error) {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://") + path, nil
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://") + path, nil
	default:
		return "", fmt.Errorf("httpjob: unsupported base URL scheme in %q", baseURL)
	}
}
