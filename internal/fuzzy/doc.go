// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package fuzzy suggests command labels for mistyped input.
//
// Candidates are ranked by Levenshtein edit distance over runes after
// Unicode case folding. Only candidates within the matcher's threshold are
// ever suggested. SuggestionGroups takes one candidate group per command,
// label first and aliases after, and offers each command at most once.
//
// # Key Types
//
//   - Matcher: threshold, suggestion cap and message templates
//   - Match: a candidate with its distance
//
// # Usage
//
//	m := fuzzy.NewMatcher()
//	msg := m.Suggestion("telport", []string{"teleport", "tell"})
//	// Did you mean 'teleport'?
package fuzzy
