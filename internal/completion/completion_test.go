// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package completion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/cmdtree/internal/argument"
	"github.com/jeranaias/cmdtree/internal/command"
)

type grants map[string]bool

func (g grants) HasCapability(_ command.Invoker, capability string) bool {
	return g[capability]
}

func noop(params ...argument.Param) *command.Handler {
	return command.NewHandler(func(context.Context, command.Args) error { return nil },
		command.WithParams(params...))
}

var gameMode = argument.NewEnum("GameMode", "survival", "creative", "adventure")

func testTree() *command.Definition {
	return command.NewBuilder("admin").
		Child(
			command.NewBuilder("reload", "rl").Permission("admin.reload", ""),
			command.NewBuilder("teleport", "tp").Handler(noop(
				argument.Param{Name: "target", Single: true},
				argument.Param{Name: "x", Type: argument.Int},
			)).Completion("@list:steve,alex @range:0-3"),
			command.NewBuilder("mode").Handler(noop(
				argument.Param{Name: "mode", Type: gameMode},
				argument.Param{Name: "quiet", Type: argument.Bool},
			)),
			command.NewBuilder("weather").Handler(noop(
				argument.Param{Name: "kind", Values: []string{"clear", "rain", "thunder"}},
			)),
			command.NewBuilder("secret").Private(true),
			command.NewBuilder("kick").Handler(noop(
				argument.Param{Name: "target", Single: true},
				argument.Param{Name: "reason"},
			)).Completion(" @list:afk,spam"),
		).
		MustBuild()
}

func TestDriver_Subcommands(t *testing.T) {
	root := testTree()

	tests := []struct {
		name   string
		caps   grants
		tokens []string
		want   []string
	}{
		{"all visible", grants{"admin.reload": true}, []string{""},
			[]string{"reload", "rl", "teleport", "tp", "mode", "weather", "kick"}},
		{"permission filters", grants{}, []string{""},
			[]string{"teleport", "tp", "mode", "weather", "kick"}},
		{"prefix", grants{"admin.reload": true}, []string{"R"}, []string{"reload", "rl"}},
		{"private hidden", grants{}, []string{"sec"}, nil},
		{"no tokens", grants{}, nil,
			[]string{"teleport", "tp", "mode", "weather", "kick"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDriver(nil, tt.caps)
			assert.Equal(t, tt.want, d.Complete(root, command.Console, "admin", tt.tokens))
		})
	}
}

func TestDriver_Parameters(t *testing.T) {
	root := testTree()
	d := NewDriver(nil, grants{})

	tests := []struct {
		name   string
		tokens []string
		want   []string
	}{
		{"completion list", []string{"tp", ""}, []string{"steve", "alex"}},
		{"completion list prefix", []string{"teleport", "A"}, []string{"alex"}},
		{"completion range", []string{"tp", "steve", ""}, []string{"0", "1", "2", "3"}},
		{"enum members", []string{"mode", "c"}, []string{"creative"}},
		{"bool type completer", []string{"mode", "creative", "t"}, []string{"true"}},
		{"restricted values", []string{"weather", "r"}, []string{"rain"}},
		{"empty completion entry disables", []string{"kick", ""}, nil},
		{"greedy last keeps completing", []string{"kick", "steve", "being", ""}, []string{"afk", "spam"}},
		{"past last param", []string{"mode", "creative", "true", ""}, nil},
		{"no handler", []string{"reload", ""}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Complete(root, command.Console, "admin", tt.tokens))
		})
	}
}

func TestDriver_DeniedRoot(t *testing.T) {
	root := command.NewBuilder("op").Permission("op.use", "").
		Child(command.NewBuilder("list")).MustBuild()

	d := NewDriver(nil, grants{})
	assert.Nil(t, d.Complete(root, command.Console, "op", []string{""}))
}

func TestDriver_DeniedChildNotDescended(t *testing.T) {
	root := command.NewBuilder("admin").Child(
		command.NewBuilder("ban").Permission("admin.ban", "").Child(
			command.NewBuilder("ip"),
		),
	).MustBuild()

	d := NewDriver(nil, grants{})
	assert.Nil(t, d.Complete(root, command.Console, "admin", []string{"ban", "i"}))

	d = NewDriver(nil, grants{"admin.ban": true})
	assert.Equal(t, []string{"ip"}, d.Complete(root, command.Console, "admin", []string{"ban", "i"}))
}

func TestDriver_CustomCompleterSeesRequest(t *testing.T) {
	reg := NewDefaultRegistry()
	var got Request
	reg.Register("players", func(req Request) []string {
		got = req
		return []string{"Steve", "Alex"}
	})

	root := command.NewBuilder("msg").
		Handler(noop(argument.Param{Name: "to", Single: true})).
		Completion("@players:online").
		MustBuild()

	inv := command.NewActor("u1", "Notch")
	d := NewDriver(reg, grants{})
	assert.Equal(t, []string{"Steve"}, d.Complete(root, inv, "m", []string{"st"}))
	assert.Equal(t, "online", got.Config)
	assert.Equal(t, "m", got.Alias)
	assert.Equal(t, "st", got.Prefix)
	assert.Equal(t, 0, got.Index)
	assert.Equal(t, inv, got.Invoker)
}

func TestRange(t *testing.T) {
	tests := []struct {
		config string
		want   []string
	}{
		{"1-3", []string{"1", "2", "3"}},
		{"0-10:5", []string{"0", "5", "10"}},
		{"-2-1", []string{"-2", "-1", "0", "1"}},
		{"5-1", nil},
		{"a-b", nil},
		{"1-3:0", nil},
		{"", nil},
		{"9223372036854775806-9223372036854775807", []string{"9223372036854775806", "9223372036854775807"}},
		{"9223372036854775800-9223372036854775807:5", []string{"9223372036854775800", "9223372036854775805"}},
		{"-9223372036854775808--9223372036854775807", []string{"-9223372036854775808", "-9223372036854775807"}},
	}
	for _, tt := range tests {
		t.Run(tt.config, func(t *testing.T) {
			assert.Equal(t, tt.want, Range(Request{Config: tt.config}))
		})
	}

	assert.Len(t, Range(Request{Config: "1-1000"}), MaxRangeEntries)
}

func TestList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, List(Request{Config: "a, b,,c"}))
	assert.Nil(t, List(Request{}))
}

func TestRegistry_LookupTypeWalksAncestors(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterType(argument.Enum, func(Request) []string { return []string{"enum"} })

	fn, ok := reg.LookupType(gameMode)
	assert.True(t, ok)
	assert.Equal(t, []string{"enum"}, fn(Request{}))

	_, ok = reg.LookupType(argument.Int)
	assert.False(t, ok)

	_, ok = reg.Lookup("RANGE")
	assert.False(t, ok)
	_, ok = NewDefaultRegistry().Lookup("RANGE")
	assert.True(t, ok)
}
