// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/cases"
)

// =============================================================================
// CASE FOLDING
// =============================================================================

// Fold returns the Unicode case-folded form of s.
// A cases.Caser is stateful, so a fresh one is created per call.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// EqualFold reports whether a and b are equal under Unicode case folding.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}

// HasFoldPrefix reports whether s begins with prefix, ignoring case.
func HasFoldPrefix(s, prefix string) bool {
	if prefix == "" {
		return true
	}
	return strings.HasPrefix(Fold(s), Fold(prefix))
}

// =============================================================================
// DISPLAY WIDTH
// =============================================================================

// PadRight pads s with spaces to the given display width.
// Wide (CJK) characters count as two columns.
func PadRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// TruncateWidth truncates s to maxWidth display columns, appending "..."
// when anything was cut.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}
