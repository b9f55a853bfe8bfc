// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package command

import (
	"sort"
	"sync"

	"github.com/jeranaias/cmdtree/internal/util"
)

// =============================================================================
// ROOT REGISTRY
// =============================================================================

// Registry holds root definitions by every label, case-insensitively.
// Registration replaces whole subtrees; definitions are never edited in place.
type Registry struct {
	roots  map[string]*Definition // primary label (folded) -> root
	labels map[string]*Definition // any label (folded) -> root
	mu     sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		roots:  make(map[string]*Definition),
		labels: make(map[string]*Definition),
	}
}

// Register adds root, replacing any root with the same primary label.
// A label already claimed by a different root keeps pointing at the earlier
// registration.
func (r *Registry) Register(root *Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registerLocked(root)
}

func (r *Registry) registerLocked(root *Definition) {
	key := util.Fold(root.Name())
	if old, ok := r.roots[key]; ok {
		r.unregisterLocked(old)
	}
	r.roots[key] = root
	for _, l := range root.labels {
		lk := util.Fold(l)
		if _, taken := r.labels[lk]; !taken {
			r.labels[lk] = root
		}
	}
}

// Unregister removes the root whose primary label is label.
// It returns false when no such root exists.
func (r *Registry) Unregister(label string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	root, ok := r.roots[util.Fold(label)]
	if !ok {
		return false
	}
	r.unregisterLocked(root)
	return true
}

func (r *Registry) unregisterLocked(root *Definition) {
	delete(r.roots, util.Fold(root.Name()))
	for lk, d := range r.labels {
		if d == root {
			delete(r.labels, lk)
		}
	}
}

// Replace swaps the whole set of roots at once.
func (r *Registry) Replace(roots []*Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.roots = make(map[string]*Definition, len(roots))
	r.labels = make(map[string]*Definition, len(roots))
	for _, root := range roots {
		r.registerLocked(root)
	}
}

// Get returns the root with label as its name or alias, or nil.
func (r *Registry) Get(label string) *Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.labels[util.Fold(label)]
}

// All returns the registered roots sorted by primary label.
func (r *Registry) All() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roots := make([]*Definition, 0, len(r.roots))
	for _, root := range r.roots {
		roots = append(roots, root)
	}
	sort.Slice(roots, func(i, j int) bool {
		return roots[i].Name() < roots[j].Name()
	})
	return roots
}

// Len returns the number of registered roots.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.roots)
}
