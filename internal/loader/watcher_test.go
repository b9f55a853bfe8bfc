// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package loader

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/cmdtree/internal/command"
)

func TestWatcher_ReloadKeepsPreviousTreeOnError(t *testing.T) {
	dir := t.TempDir()
	writeDef(t, dir, "a.toml", "[[command]]\nname = \"alpha\"\nhandler = \"ping\"")

	reg := command.NewRegistry()
	var failures atomic.Int32
	w := NewWatcher(dir, testHandlers(), reg, WithOnReload(func(_ int, err error) {
		if err != nil {
			failures.Add(1)
		}
	}))
	defer w.Close()

	require.NoError(t, w.Reload())
	require.NotNil(t, reg.Get("alpha"))

	writeDef(t, dir, "a.toml", "[[command]]\nname = \"alpha\"\nhandler = \"nope\"")
	require.Error(t, w.Reload())

	assert.NotNil(t, reg.Get("alpha"), "previous tree must survive a failed reload")
	assert.Equal(t, int32(1), failures.Load())
}

func TestWatcher_StaticRoots(t *testing.T) {
	dir := t.TempDir()
	writeDef(t, dir, "a.toml", "[[command]]\nname = \"ping\"\ndescription = \"from file\"\nhandler = \"ping\"")

	static := []*command.Definition{
		command.NewBuilder("help").MustBuild(),
		command.NewBuilder("ping").Description("built in").MustBuild(),
	}

	reg := command.NewRegistry()
	w := NewWatcher(dir, testHandlers(), reg, WithStatic(static...))
	defer w.Close()

	require.NoError(t, w.Reload())
	assert.Equal(t, 2, reg.Len())
	assert.NotNil(t, reg.Get("help"))
	assert.Equal(t, "from file", reg.Get("ping").Description())
}

func TestWatcher_FollowsChanges(t *testing.T) {
	dir := t.TempDir()
	writeDef(t, dir, "a.toml", "[[command]]\nname = \"alpha\"\nhandler = \"ping\"")

	reg := command.NewRegistry()
	w := NewWatcher(dir, testHandlers(), reg, WithDebounce(20*time.Millisecond))
	defer w.Close()

	require.NoError(t, w.Reload())
	require.NoError(t, w.Start())
	require.NoError(t, w.Start(), "second Start is a no-op")

	writeDef(t, dir, "b.toml", "[[command]]\nname = \"beta\"\nhandler = \"ping\"")

	require.Eventually(t, func() bool {
		return reg.Get("beta") != nil
	}, 5*time.Second, 10*time.Millisecond)
	assert.NotNil(t, reg.Get("alpha"))
}

func TestWatcher_CloseIdempotent(t *testing.T) {
	w := NewWatcher(t.TempDir(), testHandlers(), command.NewRegistry())
	require.NoError(t, w.Start())
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
