// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

// Package search holds the tag→constructor registry for SearchAlgorithm
// plug-ins: no runtime reflection, just a builder keyed by a config-file
// type tag.
package search

import (
	"fmt"
	"sync"

	"github.com/paramtune/paramtune/api"
)

// Constructor builds a concrete SearchAlgorithm from its options record, as
// decoded from the tuning run's configuration document.
type Constructor func(options map[string]any) (api.SearchAlgorithm, error)

// Registry maps a config-file type tag to the Constructor that builds it.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register associates tag with ctor. Registering the same tag twice
// overwrites the previous constructor.
func (r *Registry) Register(tag string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[tag] = ctor
}

// New builds the SearchAlgorithm registered under tag.
func (r *Registry) New(tag string, options map[string]any) (api.SearchAlgorithm, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("search: no algorithm registered for tag %q", tag)
	}
	return ctor(options)
}

// Default is the package-level registry callers can populate with the
// concrete algorithms they want available by tag (see search/random for the
// one shipped in this module). Callers that want isolation from global
// state should construct their own Registry instead.
var Default = NewRegistry()
