// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package executor

import (
	"github.com/jeranaias/cmdtree/internal/command"
)

// TabComplete returns completion candidates for the last token. alias is the
// root label as typed and tokens are the words after it.
func (e *Executor) TabComplete(root *command.Definition, inv command.Invoker, alias string, tokens []string) []string {
	return e.completer.Complete(root, inv, alias, tokens)
}

// Entry is one line of a help listing.
type Entry struct {
	// Path is the dotted path key, for example "admin.reload".
	Path        string
	Usage       string
	Description string
}

// Listing returns every command under root, root included, that inv may run
// and that is not private. Subtrees behind a denied or private node are
// skipped entirely.
func (e *Executor) Listing(root *command.Definition, inv command.Invoker) []Entry {
	var entries []Entry
	var visit func(d *command.Definition)
	visit = func(d *command.Definition) {
		if d.Private() || !d.IsPermitted(inv, e.caps) {
			return
		}
		if h := d.Handler(); h != nil {
			entries = append(entries, Entry{
				Path:        d.PathKey(),
				Usage:       UsageLine(d, h),
				Description: d.Description(),
			})
		}
		for _, child := range d.Children() {
			visit(child)
		}
	}
	if root != nil {
		visit(root)
	}
	return entries
}
