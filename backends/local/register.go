// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"fmt"

	"github.com/paramtune/paramtune/api"
	"github.com/paramtune/paramtune/backends"
)

// Tag is the config-file backend type string that selects this adapter.
const Tag = "local"

func init() {
	backends.Default.Register(Tag, constructFromOptions)
}

func constructFromOptions(options map[string]any) (api.Backend, error) {
	command, ok := options["command"].(string)
	if !ok || command == "" {
		return nil, fmt.Errorf("local: options.command is required")
	}

	numWorkers, err := intOption(options, "num_workers")
	if err != nil {
		return nil, err
	}
	if numWorkers <= 0 {
		return nil, fmt.Errorf("local: options.num_workers must be a positive integer")
	}

	var args []string
	if raw, ok := options["args"].([]any); ok {
		for _, a := range raw {
			s, ok := a.(string)
			if !ok {
				return nil, fmt.Errorf("local: options.args must be a list of strings")
			}
			args = append(args, s)
		}
	}

	return New(numWorkers, command, args...), nil
}

func intOption(options map[string]any, key string) (int, error) {
	switch v := options[key].(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("local: options.%s is required and must be an integer", key)
	}
}
