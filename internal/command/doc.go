// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package command provides the command tree: immutable definitions, the
// builder that assembles them, bound handlers with their argument pipeline,
// the quote-aware tokenizer, and the resolver that walks the tree.
//
// # Key Types
//
//   - Definition: Immutable tree node (labels, handlers, children, permissions)
//   - Builder: Assembles a Definition subtree and freezes it
//   - Handler: Callable plus declared parameters, cooldown and invoker constraint
//   - Args: Resolved argument values passed to a handler
//   - Registry: Root definitions by label, replaced whole on reload
//   - Invoker, Capabilities, Sink: Collaborators supplied by the host
//
// # Usage
//
// Build a tree:
//
//	reload := command.NewHandler(func(ctx context.Context, _ command.Args) error {
//	    return plugin.Reload(ctx)
//	})
//
//	admin, err := command.NewBuilder("admin").
//	    Child(command.NewBuilder("reload", "rl").
//	        Permission("admin.reload", "").
//	        Handler(reload)).
//	    Build()
//
// Resolve tokens against it:
//
//	node, rest := command.Resolve(admin, command.Tokenize([]string{"rl"}))
//	// node is the "reload" definition, rest is empty
//
// Resolution is greedy and never backtracks: a token that names a child is
// always taken as that child, even when it would also be a valid argument.
package command
