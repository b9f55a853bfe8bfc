// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package command

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want []string
	}{
		{
			name: "plain tokens",
			raw:  []string{"give", "steve", "diamond"},
			want: []string{"give", "steve", "diamond"},
		},
		{
			name: "quoted run across tokens",
			raw:  []string{"set", `"hello`, `world"`, "5"},
			want: []string{"set", "hello world", "5"},
		},
		{
			name: "quoted single token",
			raw:  []string{`"steve"`},
			want: []string{"steve"},
		},
		{
			name: "empty quotes",
			raw:  []string{"say", `""`},
			want: []string{"say", ""},
		},
		{
			name: "unterminated quote is literal",
			raw:  []string{"say", `"hello`, "world"},
			want: []string{"say", `"hello`, "world"},
		},
		{
			name: "lone quote",
			raw:  []string{`"`},
			want: []string{`"`},
		},
		{
			name: "extra whitespace",
			raw:  []string{"  a ", "", "b\t"},
			want: []string{"a", "b"},
		},
		{
			name: "quote inside token is literal",
			raw:  []string{`it's`, `a"b`},
			want: []string{`it's`, `a"b`},
		},
		{
			name: "unicode",
			raw:  []string{`"héllo wörld"`, "ünï"},
			want: []string{"héllo wörld", "ünï"},
		},
		{
			name: "nothing",
			raw:  nil,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSplitInvocation(t *testing.T) {
	tests := []struct {
		line       string
		wantLabel  string
		wantTokens []string
	}{
		{"/admin reload", "admin", []string{"reload"}},
		{"admin give \"Steve Jobs\" apple", "admin", []string{"give", "Steve Jobs", "apple"}},
		{"  /say  ", "say", []string{}},
		{"", "", nil},
	}

	for _, tt := range tests {
		label, tokens := SplitInvocation(tt.line)
		if label != tt.wantLabel {
			t.Errorf("SplitInvocation(%q) label = %q, want %q", tt.line, label, tt.wantLabel)
		}
		if !reflect.DeepEqual(tokens, tt.wantTokens) {
			t.Errorf("SplitInvocation(%q) tokens = %q, want %q", tt.line, tokens, tt.wantTokens)
		}
	}
}
