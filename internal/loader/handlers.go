// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package loader

import (
	"sort"
	"sync"

	"github.com/jeranaias/cmdtree/internal/command"
)

// Handlers maps handler names used in definition files to bound handlers.
type Handlers struct {
	byName map[string]*command.Handler
	mu     sync.RWMutex
}

// NewHandlers creates an empty binding table.
func NewHandlers() *Handlers {
	return &Handlers{byName: make(map[string]*command.Handler)}
}

// Bind registers h under name, replacing any earlier binding. Handlers without
// a name of their own are named after the binding.
func (hs *Handlers) Bind(name string, h *command.Handler) {
	if h.Name() == "" {
		h = h.With(command.WithName(name))
	}
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.byName[name] = h
}

// Lookup returns the handler bound to name.
func (hs *Handlers) Lookup(name string) (*command.Handler, bool) {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	h, ok := hs.byName[name]
	return h, ok
}

// Names returns the bound names, sorted.
func (hs *Handlers) Names() []string {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	names := make([]string, 0, len(hs.byName))
	for name := range hs.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
