// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the cmdtree packages.
//
// # Key Functions
//
// Text:
//   - Fold: Unicode case folding for label and value comparison
//   - EqualFold, HasFoldPrefix: folded comparisons
//   - PadRight, TruncateWidth: display-width aware layout for console output
//
// File Operations:
//   - AtomicWrite: streams into a temp file, fsyncs, then renames
//
// # Usage
//
//	if util.HasFoldPrefix(label, typed) {
//	    suggestions = append(suggestions, label)
//	}
//
//	err := util.AtomicWrite(path, 0o600, func(w io.Writer) error {
//	    return toml.NewEncoder(w).Encode(cfg)
//	})
package util
