// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

package random

import (
	"fmt"
	"math/rand"

	"github.com/paramtune/paramtune/api"
	"github.com/paramtune/paramtune/search"
)

// Tag is the config-file search-algorithm type string that selects this
// adapter.
const Tag = "random"

func init() {
	search.Default.Register(Tag, constructFromOptions)
}

// constructFromOptions builds a Search from the decoded configuration
// document. options.params describes the domain (one entry per parameter,
// each a map with "name", "kind", and kind-specific fields); options.seed
// seeds the RNG so runs are reproducible.
func constructFromOptions(options map[string]any) (api.SearchAlgorithm, error) {
	rawParams, ok := options["params"].([]any)
	if !ok {
		return nil, fmt.Errorf("random: options.params is required")
	}

	specs := make([]api.ParameterSpec, 0, len(rawParams))
	for _, raw := range rawParams {
		spec, err := parseSpec(raw)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	numEvals, err := intOption(options, "num_evals")
	if err != nil {
		return nil, err
	}

	seed := int64(0)
	if s, err := intOption(options, "seed"); err == nil {
		seed = int64(s)
	}

	var pinned []*api.ParameterSet
	if rawPinned, ok := options["params_to_try_first"].([]any); ok {
		for _, rp := range rawPinned {
			entries, ok := rp.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("random: options.params_to_try_first entries must be maps")
			}
			ps := api.NewParameterSet()
			for name, value := range entries {
				ps.Set(name, value)
			}
			pinned = append(pinned, ps)
		}
	}

	return New(specs, pinned, numEvals, rand.New(rand.NewSource(seed)))
}

func parseSpec(raw any) (api.ParameterSpec, error) {
	entry, ok := raw.(map[string]any)
	if !ok {
		return api.ParameterSpec{}, fmt.Errorf("random: options.params entries must be maps")
	}
	name, _ := entry["name"].(string)
	kind, _ := entry["kind"].(string)

	switch kind {
	case "range":
		min, _ := entry["min"].(float64)
		max, _ := entry["max"].(float64)
		return api.Range(name, min, max)
	case "log_range":
		min, _ := entry["min"].(float64)
		max, _ := entry["max"].(float64)
		return api.LogRange(name, min, max)
	case "values":
		rawValues, _ := entry["values"].([]any)
		return api.Values(name, rawValues...)
	default:
		return api.ParameterSpec{}, fmt.Errorf("random: parameter %q has unrecognized kind %q", name, kind)
	}
}

func intOption(options map[string]any, key string) (int, error) {
	switch v := options[key].(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("random: options.%s is required and must be an integer", key)
	}
}
