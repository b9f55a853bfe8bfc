// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package completion

import (
	"strings"

	"github.com/jeranaias/cmdtree/internal/argument"
	"github.com/jeranaias/cmdtree/internal/command"
	"github.com/jeranaias/cmdtree/internal/util"
)

// Driver completes command input against a definition tree.
type Driver struct {
	registry *Registry
	caps     command.Capabilities
}

// NewDriver creates a driver. A nil registry means NewDefaultRegistry.
func NewDriver(registry *Registry, caps command.Capabilities) *Driver {
	if registry == nil {
		registry = NewDefaultRegistry()
	}
	return &Driver{registry: registry, caps: caps}
}

// Registry returns the completer registry.
func (d *Driver) Registry() *Registry {
	return d.registry
}

// Complete returns candidates for the last token in tokens. tokens excludes
// the root label; an empty final token completes from scratch.
func (d *Driver) Complete(root *command.Definition, inv command.Invoker, alias string, tokens []string) []string {
	if root == nil || !root.IsPermitted(inv, d.caps) {
		return nil
	}
	if len(tokens) == 0 {
		tokens = []string{""}
	}

	node, i := root, 0
	for ; i < len(tokens)-1; i++ {
		child := node.FindSubcommand(tokens[i])
		if child == nil || !child.IsPermitted(inv, d.caps) {
			break
		}
		node = child
	}

	previous := tokens[i : len(tokens)-1]
	prefix := tokens[len(tokens)-1]

	if len(previous) == 0 {
		if labels := d.subcommandLabels(node, inv, prefix); len(labels) > 0 {
			return labels
		}
	}

	req := Request{
		Invoker:  inv,
		Alias:    alias,
		Prefix:   prefix,
		Previous: append([]string(nil), previous...),
		Index:    len(previous),
	}
	return filter(d.parameterCandidates(node, req), prefix)
}

// subcommandLabels returns every label of node's visible children that
// starts with prefix.
func (d *Driver) subcommandLabels(node *command.Definition, inv command.Invoker, prefix string) []string {
	var out []string
	for _, child := range node.Children() {
		if child.Private() || !child.IsPermitted(inv, d.caps) {
			continue
		}
		for _, label := range child.Labels() {
			if util.HasFoldPrefix(label, prefix) {
				out = append(out, label)
			}
		}
	}
	return out
}

func (d *Driver) parameterCandidates(node *command.Definition, req Request) []string {
	h := node.Handler()
	if h == nil {
		return nil
	}
	params := h.Params()
	if len(params) == 0 {
		return nil
	}

	idx := req.Index
	if idx >= len(params) {
		last := params[len(params)-1]
		if !last.Greedy() {
			return nil
		}
		idx = len(params) - 1
	}
	p := params[idx]

	if len(p.Values) > 0 {
		return p.Values
	}

	if entry, ok := specEntry(node.Completion(), idx); ok {
		id, config, isRef := parseEntry(entry)
		if !isRef {
			return nil
		}
		if fn, found := d.registry.Lookup(id); found {
			req.Config = config
			return fn(req)
		}
	}

	return d.typeCandidates(p.ResolvedType(), req)
}

func (d *Driver) typeCandidates(t *argument.Type, req Request) []string {
	if fn, ok := d.registry.LookupType(t); ok {
		return fn(req)
	}
	return t.Members()
}

// specEntry returns the entry at index. Entries are separated by single
// spaces so that empty entries keep their position.
func specEntry(spec string, index int) (string, bool) {
	if spec == "" {
		return "", false
	}
	entries := strings.Split(spec, " ")
	if index >= len(entries) {
		return "", false
	}
	return entries[index], true
}

// parseEntry splits "@id:config". isRef is false for entries that do not
// reference a completer.
func parseEntry(entry string) (id, config string, isRef bool) {
	if !strings.HasPrefix(entry, "@") || len(entry) == 1 {
		return "", "", false
	}
	id, config, _ = strings.Cut(entry[1:], ":")
	return id, config, true
}

func filter(candidates []string, prefix string) []string {
	var out []string
	for _, c := range candidates {
		if util.HasFoldPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}
