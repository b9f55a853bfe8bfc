// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package command

import (
	"strings"

	"github.com/jeranaias/cmdtree/internal/util"
)

// PathSeparator joins primary labels in a definition's path key.
const PathSeparator = "."

// Permission is one capability required by a node. Message, when set,
// replaces the denial text for this entry.
type Permission struct {
	Capability string
	Message    string
}

// =============================================================================
// DEFINITION
// =============================================================================

// Definition is an immutable command tree node. A node strongly owns its
// children; the parent link is only used to rebuild paths and to search
// ancestors.
type Definition struct {
	labels        []string
	description   string
	handler       *Handler
	unknown       *Handler
	children      []*Definition
	permissions   []Permission
	deniedMessage string
	parent        *Definition
	private       bool
	completion    string
}

// Labels returns the primary label followed by aliases.
func (d *Definition) Labels() []string {
	return append([]string(nil), d.labels...)
}

// Name returns the primary label.
func (d *Definition) Name() string {
	return d.labels[0]
}

// Aliases returns the labels after the primary one.
func (d *Definition) Aliases() []string {
	return append([]string(nil), d.labels[1:]...)
}

// Description returns the description, possibly empty.
func (d *Definition) Description() string {
	return d.description
}

// Handler returns the default handler, or nil.
func (d *Definition) Handler() *Handler {
	return d.handler
}

// UnknownHandler returns the unknown-subcommand handler, or nil.
func (d *Definition) UnknownHandler() *Handler {
	return d.unknown
}

// Children returns the child definitions in declaration order.
func (d *Definition) Children() []*Definition {
	return append([]*Definition(nil), d.children...)
}

// Permissions returns the permission entries.
func (d *Definition) Permissions() []Permission {
	return append([]Permission(nil), d.permissions...)
}

// DeniedMessage returns the node's denial message override.
func (d *Definition) DeniedMessage() string {
	return d.deniedMessage
}

// Parent returns the parent node, or nil at the root.
func (d *Definition) Parent() *Definition {
	return d.parent
}

// Private reports whether the node is hidden from listings and suggestions.
func (d *Definition) Private() bool {
	return d.private
}

// Completion returns the completion spec string.
func (d *Definition) Completion() string {
	return d.completion
}

// Root returns the top of the tree containing d.
func (d *Definition) Root() *Definition {
	cur := d
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// HasLabel reports whether label matches any of d's labels, ignoring case.
func (d *Definition) HasLabel(label string) bool {
	folded := util.Fold(label)
	for _, l := range d.labels {
		if util.Fold(l) == folded {
			return true
		}
	}
	return false
}

// PathLabels returns the primary labels from the root down to d.
func (d *Definition) PathLabels() []string {
	var labels []string
	for cur := d; cur != nil; cur = cur.parent {
		labels = append(labels, cur.Name())
	}
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
	return labels
}

// Path joins PathLabels with sep.
func (d *Definition) Path(sep string) string {
	return strings.Join(d.PathLabels(), sep)
}

// PathKey returns the full-path identity used to scope cooldowns.
// Distinct subtrees with identical label paths share a key.
func (d *Definition) PathKey() string {
	return d.Path(PathSeparator)
}

// =============================================================================
// LOOKUP
// =============================================================================

// FindSubcommand returns the first child, in declaration order, with a label
// matching label case-insensitively. Sibling label collisions are not
// detected here; see Conflicts.
func (d *Definition) FindSubcommand(label string) *Definition {
	folded := util.Fold(label)
	for _, child := range d.children {
		for _, l := range child.labels {
			if util.Fold(l) == folded {
				return child
			}
		}
	}
	return nil
}

// NearestUnknownHandler searches d and then its ancestors, nearest first, for
// an unknown-subcommand handler. It returns the owning node and the handler.
func (d *Definition) NearestUnknownHandler() (*Definition, *Handler) {
	for cur := d; cur != nil; cur = cur.parent {
		if cur.unknown != nil {
			return cur, cur.unknown
		}
	}
	return nil, nil
}

// Walk calls fn for d and every descendant, depth first in declaration
// order. Returning false from fn skips that node's children.
func (d *Definition) Walk(fn func(*Definition) bool) {
	if !fn(d) {
		return
	}
	for _, child := range d.children {
		child.Walk(fn)
	}
}

// =============================================================================
// PERMISSIONS
// =============================================================================

// IsPermitted reports whether inv holds every capability the node requires.
func (d *Definition) IsPermitted(inv Invoker, caps Capabilities) bool {
	_, ok := d.firstDenied(inv, caps)
	return ok
}

// CheckPermissionAndNotify is IsPermitted that also tells the invoker why it
// was denied. The message is the failing entry's own, else the node's
// override, else fallback.
func (d *Definition) CheckPermissionAndNotify(inv Invoker, caps Capabilities, sink Sink, fallback string) bool {
	denied, ok := d.firstDenied(inv, caps)
	if ok {
		return true
	}

	msg := fallback
	switch {
	case denied.Message != "":
		msg = denied.Message
	case d.deniedMessage != "":
		msg = d.deniedMessage
	}
	if sink != nil && msg != "" {
		sink.Send(inv, msg)
	}
	return false
}

// MissingCapability returns the first capability inv lacks, or "".
func (d *Definition) MissingCapability(inv Invoker, caps Capabilities) string {
	denied, _ := d.firstDenied(inv, caps)
	return denied.Capability
}

func (d *Definition) firstDenied(inv Invoker, caps Capabilities) (Permission, bool) {
	for _, p := range d.permissions {
		if caps == nil || !caps.HasCapability(inv, p.Capability) {
			return p, false
		}
	}
	return Permission{}, true
}

// =============================================================================
// CONFLICTS
// =============================================================================

// Conflict records a label shared by two siblings. Only the first sibling is
// reachable through that label.
type Conflict struct {
	Parent string
	Label  string
	First  string
	Second string
}

// Conflicts reports sibling label collisions in the subtree rooted at d.
func (d *Definition) Conflicts() []Conflict {
	var conflicts []Conflict
	d.Walk(func(node *Definition) bool {
		seen := make(map[string]*Definition)
		for _, child := range node.children {
			for _, l := range child.labels {
				key := util.Fold(l)
				if first, ok := seen[key]; ok && first != child {
					conflicts = append(conflicts, Conflict{
						Parent: node.PathKey(),
						Label:  l,
						First:  first.Name(),
						Second: child.Name(),
					})
					continue
				}
				seen[key] = child
			}
		}
		return true
	})
	return conflicts
}
