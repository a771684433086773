// SPDX-FileCopyrightText: 2025 The paramtune Authors
// SPDX-License-Identifier: Apache-2.0

// Package backends holds the tag→constructor registry for Backend
// plug-ins, mirroring search.Registry.
package backends

import (
	"fmt"
	"sync"

	"github.com/paramtune/paramtune/api"
)

// Constructor builds a concrete Backend from its options record.
type Constructor func(options map[string]any) (api.Backend, error)

// Registry maps a config-file type tag to the Constructor that builds it.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register associates tag with ctor.
func (r *Registry) Register(tag string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[tag] = ctor
}

// New builds the Backend registered under tag.
func (r *Registry) New(tag string, options map[string]any) (api.Backend, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("backends: no backend registered for tag %q", tag)
	}
	return ctor(options)
}

// Default is the package-level registry callers can populate with the
// concrete backends they want available by tag (see backends/local and
// backends/httpjob for the two shipped in this module).
var Default = NewRegistry()
