// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for cmdtree.
//
// Supports both TOML and JSON configuration formats, with defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: complete configuration
//   - MessagesConfig: user-facing message templates
//   - DispatchConfig: scheduler and rate limit settings
//   - DefinitionsConfig: where command definitions are loaded from
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (CMDTREE_*)
//   - ~/.cmdtree/config.toml
//   - ~/.cmdtree/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	threshold := cfg.Fuzzy.Threshold
package config
