// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

package httpjob

import (
	"fmt"
	"time"

	"github.com/paramtune/paramtune/api"
	"github.com/paramtune/paramtune/backends"
)

// Tag is the config-file backend type string that selects this adapter.
const Tag = "httpjob"

func init() {
	backends.Default.Register(Tag, constructFromOptions)
}

func constructFromOptions(options map[string]any) (api.Backend, error) {
	cfg := Config{}

	baseURL, ok := options["base_url"].(string)
	if !ok || baseURL == "" {
		return nil, fmt.Errorf("httpjob: options.base_url is required")
	}
	cfg.BaseURL = baseURL

	numWorkers, ok := options["num_workers"].(int)
	if !ok {
		if f, okFloat := options["num_workers"].(float64); okFloat {
			numWorkers = int(f)
			ok = true
		}
	}
	if !ok || numWorkers <= 0 {
		return nil, fmt.Errorf("httpjob: options.num_workers must be a positive integer")
	}
	cfg.NumWorkers = numWorkers

	if timeoutSeconds, ok := options["http_timeout_seconds"].(float64); ok {
		cfg.HTTPTimeout = time.Duration(timeoutSeconds) * time.Second
	}

	cfg.Auth = authFromOptions(options)

	return New(cfg)
}

func authFromOptions(options map[string]any) Provider {
	authOptions, ok := options["auth"].(map[string]any)
	if !ok {
		return NewNoAuth()
	}

	switch authOptions["type"] {
	case "bearer":
		token, _ := authOptions["token"].(string)
		return NewBearerAuth(token)
	case "basic":
		username, _ := authOptions["username"].(string)
		password, _ := authOptions["password"].(string)
		return NewBasicAuth(username, password)
	default:
		return NewNoAuth()
	}
}
