// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package command

// Resolve walks from root along tokens, descending into the first matching
// child for each token, and stops at the first token that names no child.
// It returns the deepest node reached and the untouched remaining tokens.
//
// The walk never backtracks: a token equal to a child label always selects
// that child, even if the current node's handler could accept it as an
// argument.
func Resolve(root *Definition, tokens []string) (*Definition, []string) {
	node := root
	i := 0
	for ; i < len(tokens); i++ {
		child := node.FindSubcommand(tokens[i])
		if child == nil {
			break
		}
		node = child
	}
	return node, tokens[i:]
}
