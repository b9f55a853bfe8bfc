// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine assembles a ready-to-run command engine from configuration.
//
// It owns the root registry, the executor and everything the executor
// depends on: argument and completion registries, the cooldown store, the
// async scheduler, the optional audit store and the definitions watcher.
// Hosts supply only capabilities, a message sink and the handler bindings.
//
// # Usage
//
//	eng, err := engine.New(cfg, caps, sink, handlers)
//	if err != nil {
//	    return err
//	}
//	if err := eng.Start(ctx); err != nil {
//	    return err
//	}
//	defer eng.Stop()
//
//	eng.ExecuteLine(ctx, invoker, "/admin reload")
package engine
