// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package scheduler runs command handlers off the caller's goroutine.
//
// Deferred work is queued as a Task and picked up by a Runner, which bounds
// concurrency with a semaphore. Tasks have no timeout and callers never wait
// for completion. Finished tasks are reported to the WithOnFinish callback
// and kept in a bounded history.
//
// # Key Types
//
//   - Task: one unit of deferred work with a status machine
//   - Queue: task history and running set
//   - Runner: pulls queued tasks and executes them
//   - Scheduler: RunNow, RunLater and Every on top of Queue and Runner
//
// # Usage
//
//	s := scheduler.New(scheduler.WithMaxConcurrent(4))
//	s.Start()
//	defer s.Stop()
//
//	id, err := s.RunLater("warp.home", func(ctx context.Context) error {
//	    return teleport(ctx, player)
//	})
package scheduler
