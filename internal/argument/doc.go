// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package argument converts command tokens into typed values.
//
// Types form single-parent chains ending at Any. A Registry maps types to
// converters, and lookup walks from the requested type towards Any until a
// converter is found. Every enum type created with NewEnum descends from
// Enum, so one converter serves all of them.
//
// # Key Types
//
//   - Type: Named argument type with a parent link
//   - Registry: Type to Converter map with ancestor lookup
//   - Param: Declared parameter metadata (optional, default, value set)
//   - Validator: Post-conversion constraint (range, length, pattern)
//
// # Usage
//
//	gameMode := argument.NewEnum("GameMode", "survival", "creative", "spectator")
//	reg := argument.NewDefaultRegistry()
//
//	v, err := reg.Resolve(argument.Param{Name: "mode", Type: gameMode}, "CREATIVE")
//	// v == "creative"
package argument
