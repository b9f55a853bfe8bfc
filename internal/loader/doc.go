// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package loader builds command trees from TOML definition files.
//
// A file declares one or more root commands. Handlers are named, and the
// names are resolved against a Handlers table supplied by the program, so
// behavior stays in Go while structure, permissions and cooldowns live in
// configuration:
//
//	[[command]]
//	name = "admin"
//	aliases = ["adm"]
//	permissions = ["admin.use"]
//	unknown = "admin.unknown"
//
//	  [[command.children]]
//	  name = "reload"
//	  aliases = ["rl"]
//	  permissions = ["admin.reload"]
//	  handler = "admin.reload"
//	  cooldown = "30s"
//	  cooldown_scope = "global"
//
// # Key Types
//
//   - Handlers: name to handler binding table
//   - Node: one command as written in a file
//   - Watcher: reloads a directory into a command.Registry on change
//
// # Usage
//
//	handlers := loader.NewHandlers()
//	handlers.Bind("admin.reload", reloadHandler)
//
//	roots, err := loader.LoadDir("/etc/cmdtree/commands", handlers)
//	if err != nil {
//	    return err
//	}
//	registry.Replace(roots)
package loader
