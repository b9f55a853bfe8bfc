// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package completion produces tab-completion candidates for command input.
//
// The Driver walks a command tree the way the resolver does, descending only
// into children the invoker may use, then completes the final token either as
// a subcommand label or as the next handler parameter. Parameter candidates
// come from, in order, the parameter's restricted values, the node's
// completion spec, and the completer registered for the parameter type.
//
// A completion spec is a space-separated list with one entry per parameter.
// An entry of the form "@id" or "@id:config" names a registered completer;
// any other entry, including an empty one, disables completion for that
// position.
//
// # Key Types
//
//   - Registry: completers by ID and by argument type
//   - Request: what a completer is asked to complete
//   - Driver: walks the tree and filters results
//
// # Usage
//
//	d := completion.NewDriver(completion.NewDefaultRegistry(), caps)
//	opts := d.Complete(root, inv, "give", []string{"steve", "dia"})
package completion
