// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package executor runs command invocations against a definition tree.
//
// Execute drives one invocation through a fixed sequence of stages:
//
//  1. root permission check
//  2. tokenizing (quoted runs become one token)
//  3. resolving the deepest matching subcommand
//  4. subcommand permission check
//  5. handler lookup, falling back to the nearest unknown-subcommand handler
//     or a fuzzy "did you mean" suggestion
//  6. per-invoker rate limiting
//  7. cooldown check
//  8. argument binding and dispatch, inline or on the scheduler
//
// Every condition that stops an invocation is turned into exactly one message
// on the Sink and reported in the returned Result. Nothing is returned to the
// caller as a Go error; Result.Err carries the cause for inspection.
//
// # Key Types
//
//   - Executor: the state machine with its collaborators
//   - Result: outcome of one invocation
//   - Messages: user-facing templates
//   - Scheduler: where async handlers run
//   - Recorder: optional sink for execution records
//
// # Usage
//
//	ex := executor.New(caps, sink,
//	    executor.WithScheduler(sched),
//	    executor.WithCooldowns(cooldown.Global()),
//	)
//	res := ex.Execute(ctx, root, inv, []string{"warp", "home"})
package executor
