// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package command

import (
	"strings"
	"unicode"
)

// =============================================================================
// TOKENIZER
// =============================================================================

// Tokenize joins raw tokens with spaces and splits them again so that a
// double-quoted run becomes a single token:
//
//	["set", "\"hello", "world\"", "5"] -> ["set", "hello world", "5"]
//
// A quoted run starts at a token boundary and ends at the next double quote.
// One layer of surrounding quotes is stripped. An unterminated quote is kept
// as a literal character.
func Tokenize(raw []string) []string {
	return splitQuoted(strings.Join(raw, " "))
}

// SplitInvocation splits a typed line such as `/admin give "Steve" 5` into the
// root label and the remaining tokens. A leading slash is optional.
func SplitInvocation(line string) (string, []string) {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "/")

	tokens := splitQuoted(line)
	if len(tokens) == 0 {
		return "", nil
	}
	return tokens[0], tokens[1:]
}

func splitQuoted(input string) []string {
	runes := []rune(input)
	tokens := make([]string, 0, 4)

	for i := 0; i < len(runes); {
		if unicode.IsSpace(runes[i]) {
			i++
			continue
		}

		// Quoted run: needs a closing quote somewhere ahead
		if runes[i] == '"' {
			if end := indexRune(runes, '"', i+1); end >= 0 {
				tokens = append(tokens, string(runes[i+1:end]))
				i = end + 1
				continue
			}
		}

		start := i
		for i < len(runes) && !unicode.IsSpace(runes[i]) {
			i++
		}
		tokens = append(tokens, stripQuotes(string(runes[start:i])))
	}

	return tokens
}

func indexRune(runes []rune, r rune, from int) int {
	for i := from; i < len(runes); i++ {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

func stripQuotes(token string) string {
	if len(token) > 1 && strings.HasPrefix(token, `"`) && strings.HasSuffix(token, `"`) {
		return token[1 : len(token)-1]
	}
	return token
}
