// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cooldown throttles repeat command invocations.
//
// A Manager maps composite keys of the form "<identity>:<path>" to expiry
// instants. Global-scope cooldowns use GlobalIdentity, which can never be a
// real invoker ID. Expired entries are evicted lazily on read and in bulk by
// Cleanup, which the engine schedules periodically.
//
// # Key Types
//
//   - Manager: thread-safe expiry store
//   - Clock: injectable time source
//
// # Usage
//
//	m := cooldown.NewManager()
//	key := cooldown.Key(inv.ID(), "warp.home")
//	if remaining, ok := m.Acquire(key, 30*time.Second); !ok {
//	    fmt.Printf("wait %s\n", remaining)
//	}
package cooldown
