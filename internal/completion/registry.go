// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package completion

import (
	"sync"

	"github.com/jeranaias/cmdtree/internal/argument"
	"github.com/jeranaias/cmdtree/internal/command"
	"github.com/jeranaias/cmdtree/internal/util"
)

// Request describes one completion lookup.
type Request struct {
	Invoker command.Invoker

	// Alias is the root label as typed.
	Alias string

	// Config is the text after ':' in a spec entry such as "@range:1-10".
	Config string

	// Prefix is the partial token being completed.
	Prefix string

	// Previous holds the argument tokens before Prefix.
	Previous []string

	// Index is the parameter position being completed.
	Index int
}

// Func returns candidates for a request. The driver filters the result by
// prefix, so completers may return their full candidate set.
type Func func(req Request) []string

// Registry maps completer IDs and argument types to completers.
type Registry struct {
	byID   map[string]Func
	byType map[*argument.Type]Func
	mu     sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[string]Func),
		byType: make(map[*argument.Type]Func),
	}
}

// NewDefaultRegistry creates a registry with the built-in completers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("range", Range)
	r.Register("list", List)
	r.Register("duration", Durations)
	r.RegisterType(argument.Bool, Bools)
	r.RegisterType(argument.Duration, Durations)
	return r
}

// Register sets the completer for id. IDs are matched case-insensitively.
func (r *Registry) Register(id string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[util.Fold(id)] = fn
}

// Lookup returns the completer registered for id.
func (r *Registry) Lookup(id string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.byID[util.Fold(id)]
	return fn, ok
}

// RegisterType sets the default completer for parameters of type t.
func (r *Registry) RegisterType(t *argument.Type, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[t] = fn
}

// LookupType returns the completer for t or its nearest ancestor.
func (r *Registry) LookupType(t *argument.Type) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, cur := range t.Ancestors() {
		if fn, ok := r.byType[cur]; ok {
			return fn, true
		}
	}
	return nil, false
}
