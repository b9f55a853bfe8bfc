// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package command

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrNoLabels is returned when a definition has no labels.
var ErrNoLabels = errors.New("command definition needs at least one label")

// Builder assembles a definition subtree. Build freezes it; the builder may
// be reused afterwards without affecting built trees.
type Builder struct {
	labels        []string
	description   string
	handler       *Handler
	unknown       *Handler
	children      []*Builder
	permissions   []Permission
	deniedMessage string
	private       bool
	completion    string
}

// NewBuilder starts a definition with a primary label and optional aliases.
func NewBuilder(label string, aliases ...string) *Builder {
	b := &Builder{}
	if label != "" {
		b.labels = append(b.labels, label)
	}
	b.labels = append(b.labels, aliases...)
	return b
}

// Aliases appends alternative labels.
func (b *Builder) Aliases(aliases ...string) *Builder {
	b.labels = append(b.labels, aliases...)
	return b
}

// Description sets the description.
func (b *Builder) Description(description string) *Builder {
	b.description = description
	return b
}

// Handler sets the default handler.
func (b *Builder) Handler(h *Handler) *Builder {
	b.handler = h
	return b
}

// UnknownHandler sets the handler used for unmatched subcommands below this
// node.
func (b *Builder) UnknownHandler(h *Handler) *Builder {
	b.unknown = h
	return b
}

// Child appends child subtrees in order.
func (b *Builder) Child(children ...*Builder) *Builder {
	b.children = append(b.children, children...)
	return b
}

// Permission requires capability. message replaces the denial text for this
// entry when non-empty.
func (b *Builder) Permission(capability, message string) *Builder {
	b.permissions = append(b.permissions, Permission{Capability: capability, Message: message})
	return b
}

// DeniedMessage sets the node-level denial text.
func (b *Builder) DeniedMessage(message string) *Builder {
	b.deniedMessage = message
	return b
}

// Private hides the node from listings, suggestions and completion.
func (b *Builder) Private(private bool) *Builder {
	b.private = private
	return b
}

// Completion sets the completion spec: whitespace separated entries, one per
// parameter position, each empty, "@id" or "@id:config".
func (b *Builder) Completion(spec string) *Builder {
	b.completion = spec
	return b
}

// Build validates the subtree and returns its frozen root.
func (b *Builder) Build() (*Definition, error) {
	return b.build(nil)
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *Definition {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}
	return d
}

func (b *Builder) build(parent *Definition) (*Definition, error) {
	if len(b.labels) == 0 {
		return nil, ErrNoLabels
	}
	for _, l := range b.labels {
		if err := validateLabel(l); err != nil {
			return nil, err
		}
	}

	d := &Definition{
		labels:        append([]string(nil), b.labels...),
		description:   b.description,
		handler:       b.handler,
		unknown:       b.unknown,
		permissions:   append([]Permission(nil), b.permissions...),
		deniedMessage: b.deniedMessage,
		parent:        parent,
		private:       b.private,
		completion:    b.completion,
	}

	d.children = make([]*Definition, 0, len(b.children))
	for _, cb := range b.children {
		child, err := cb.build(d)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.Name(), err)
		}
		d.children = append(d.children, child)
	}
	return d, nil
}

func validateLabel(label string) error {
	if strings.TrimSpace(label) == "" {
		return errors.New("command label must not be blank")
	}
	if strings.IndexFunc(label, unicode.IsSpace) >= 0 {
		return fmt.Errorf("command label %q must not contain whitespace", label)
	}
	return nil
}
