// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/cmdtree/internal/audit"
	"github.com/jeranaias/cmdtree/internal/command"
	"github.com/jeranaias/cmdtree/internal/config"
	"github.com/jeranaias/cmdtree/internal/engine"
	"github.com/jeranaias/cmdtree/internal/executor"
)

func TestGrantSet(t *testing.T) {
	tests := []struct {
		name   string
		grants grantSet
		cap    string
		want   bool
	}{
		{"star grants all", grantSet{"*"}, "admin.reload", true},
		{"exact", grantSet{"demo.give"}, "demo.give", true},
		{"prefix wildcard", grantSet{"admin.*"}, "admin.reload", true},
		{"prefix wildcard is not a substring match", grantSet{"admin.*"}, "administrator", false},
		{"none", grantSet{}, "demo.give", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.grants.HasCapability(command.Console, tt.cap))
		})
	}
}

func TestParseInvoker(t *testing.T) {
	inv, err := parseInvoker("")
	require.NoError(t, err)
	assert.True(t, command.IsAnonymous(inv))

	inv, err = parseInvoker("u1:alice")
	require.NoError(t, err)
	assert.Equal(t, "u1", inv.ID())
	assert.Equal(t, "alice", inv.Name())

	inv, err = parseInvoker("u2:")
	require.NoError(t, err)
	assert.Equal(t, "u2", inv.Name())

	_, err = parseInvoker("alice")
	assert.Error(t, err)
}

func TestDefaultRootsBindEveryHandler(t *testing.T) {
	hs := demoHandlers(command.SinkFunc(func(command.Invoker, string) {}), func() *engine.Engine { return nil })
	roots, err := defaultRoots(hs)
	require.NoError(t, err)

	names := make([]string, 0, len(roots))
	for _, r := range roots {
		names = append(names, r.Name())
		assert.Empty(t, r.Conflicts(), "conflicts under %s", r.Name())
	}
	assert.Contains(t, names, "admin")
	assert.Contains(t, names, "say")
}

func newTestSession(t *testing.T, flags *globalFlags) (*session, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Definitions.Dir = filepath.Join(dir, "commands")
	cfg.Definitions.Watch = false
	cfg.Audit.Path = filepath.Join(dir, "audit.db")

	if flags == nil {
		flags = &globalFlags{grants: []string{"*"}}
	}
	out := &bytes.Buffer{}
	s, err := openSession(context.Background(), flags, cfg, out)
	require.NoError(t, err)
	t.Cleanup(s.close)
	return s, out
}

func TestSession_DemoCommands(t *testing.T) {
	s, out := newTestSession(t, nil)
	ctx := context.Background()

	tests := []struct {
		line    string
		outcome executor.Outcome
		output  string
	}{
		{"/say hello   world", executor.OutcomeSuccess, "hello world"},
		{"gm creative", executor.OutcomeSuccess, "game mode to creative"},
		{"give diamond 5", executor.OutcomeSuccess, "Gave 5 x diamond."},
		{"give diamond 500", executor.OutcomeArgumentError, "amount must be at most 64."},
		{"give gold", executor.OutcomeArgumentError, "'gold' is not a valid Material"},
		{"whoami", executor.OutcomeArgumentError, "cannot be used from the console"},
		{"/adm tp steve 1 64 1", executor.OutcomeSuccess, "Teleported steve to 1, 64, 1."},
		{"/admin nothing", executor.OutcomeArgumentError, "No admin command 'nothing'."},
		{"/sya hi", executor.OutcomeNotFound, "'say'"},
		{"/admin debug", executor.OutcomeSuccess, "tasks_running=0"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			out.Reset()
			res := s.eng.ExecuteLine(ctx, s.invoker, tt.line)
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Contains(t, out.String(), tt.output)
		})
	}
}

func TestSession_HealCooldown(t *testing.T) {
	s, out := newTestSession(t, &globalFlags{grants: []string{"*"}, as: "u1:alice"})
	ctx := context.Background()

	assert.Equal(t, executor.OutcomeSuccess, s.eng.ExecuteLine(ctx, s.invoker, "heal").Outcome)
	out.Reset()
	assert.Equal(t, executor.OutcomeOnCooldown, s.eng.ExecuteLine(ctx, s.invoker, "heal").Outcome)
	assert.Contains(t, out.String(), "You must wait 30 seconds")
}

func TestSession_AsyncBackup(t *testing.T) {
	s, out := newTestSession(t, nil)
	ctx := context.Background()

	res := s.eng.ExecuteLine(ctx, s.invoker, "backup 10ms")
	require.Equal(t, executor.OutcomeDispatched, res.Outcome)
	require.NoError(t, waitForTask(ctx, s.eng, res.TaskID, 5*time.Second))
	assert.Contains(t, out.String(), "Backup complete.")
}

func TestRunExec_AsyncFailure(t *testing.T) {
	s, out := newTestSession(t, nil)
	ctx := context.Background()

	err := runExec(ctx, s, []string{"backup", "1ms", "moon"}, 5*time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no world named 'moon'")
	assert.Contains(t, out.String(), "Backup failed: no world named 'moon'.")

	// The failure released the global cooldown.
	require.NoError(t, runExec(ctx, s, []string{"backup", "1ms", "nether"}, 5*time.Second))
	assert.Contains(t, out.String(), "Backup complete.")

	assert.EqualError(t, runExec(ctx, s, []string{"give", "gold"}, time.Second), "command argument error")
}

func TestSession_CancelTask(t *testing.T) {
	s, out := newTestSession(t, nil)
	ctx := context.Background()

	res := s.eng.ExecuteLine(ctx, s.invoker, "backup 1h")
	require.Equal(t, executor.OutcomeDispatched, res.Outcome)
	short := res.TaskID[:8]
	assert.Contains(t, completeLine(s, "/admin cancel "), "/admin cancel "+short)

	require.Equal(t, executor.OutcomeSuccess, s.eng.ExecuteLine(ctx, s.invoker, "/admin cancel "+short).Outcome)
	assert.Contains(t, out.String(), "Canceled task "+short+".")

	err := waitForTask(ctx, s.eng, res.TaskID, 5*time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "was canceled")

	out.Reset()
	assert.Equal(t, executor.OutcomeArgumentError, s.eng.ExecuteLine(ctx, s.invoker, "/admin cancel "+short).Outcome)
	assert.Contains(t, out.String(), "has already finished")
}

func TestSession_ReloadNotice(t *testing.T) {
	s, out := newTestSession(t, nil)

	require.Equal(t, executor.OutcomeSuccess, s.eng.ExecuteLine(context.Background(), s.invoker, "/admin reload").Outcome)
	assert.Contains(t, out.String(), "[definitions reloaded, 0 from files]")
}

func TestSession_TaskFinishNotice(t *testing.T) {
	s, out := newTestSession(t, nil)
	ctx := context.Background()

	res := s.eng.ExecuteLine(ctx, s.invoker, "backup 1ms")
	require.Equal(t, executor.OutcomeDispatched, res.Outcome)
	require.NoError(t, waitForTask(ctx, s.eng, res.TaskID, 5*time.Second))
	assert.Eventually(t, func() bool {
		s.sink.mu.Lock()
		defer s.sink.mu.Unlock()
		return strings.Contains(out.String(), "[task "+res.TaskID[:8]+" complete after")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSession_PermissionDenied(t *testing.T) {
	s, out := newTestSession(t, &globalFlags{grants: []string{"demo.*"}})

	res := s.eng.ExecuteLine(context.Background(), s.invoker, "/admin rl")
	assert.Equal(t, executor.OutcomeDenied, res.Outcome)
	assert.Contains(t, out.String(), "Only administrators may use this.")

	s, out = newTestSession(t, &globalFlags{grants: []string{"admin.*"}})
	res = s.eng.ExecuteLine(context.Background(), s.invoker, "/give stone 1")
	assert.Equal(t, executor.OutcomeDenied, res.Outcome)
	assert.Contains(t, out.String(), "You are not allowed to give items.")
}

func TestCompleteLine(t *testing.T) {
	s, _ := newTestSession(t, nil)

	assert.ElementsMatch(t, []string{"/gamemode", "/gm", "/give"}, completeLine(s, "/g"))
	assert.Contains(t, completeLine(s, "gm "), "gm creative")
	assert.Equal(t, []string{"give diamond"}, completeLine(s, "give di"))
	assert.Contains(t, completeLine(s, "give diamond "), "give diamond 64")
}

func TestPrintHelp(t *testing.T) {
	s, _ := newTestSession(t, &globalFlags{grants: []string{"demo.*"}})

	var buf bytes.Buffer
	printHelp(s, &buf, "")
	help := buf.String()
	assert.Contains(t, help, "/give <item> [amount=1]")
	assert.NotContains(t, help, "/admin")

	buf.Reset()
	printHelp(s, &buf, "/give")
	assert.Contains(t, buf.String(), "/give <item>")
	assert.NotContains(t, buf.String(), "/roll")

	buf.Reset()
	printHelp(s, &buf, "admin")
	assert.Contains(t, buf.String(), "No help for 'admin'.")
}

func TestDispatchLine_LocalCommands(t *testing.T) {
	s, out := newTestSession(t, nil)
	ctx := context.Background()

	assert.True(t, dispatchLine(ctx, s, `/help "say"`, out))
	assert.Contains(t, out.String(), "/say <message>")
	assert.NotContains(t, out.String(), "/give")

	assert.False(t, dispatchLine(ctx, s, "  /EXIT ", out))
}

func TestRunScript(t *testing.T) {
	s, out := newTestSession(t, nil)

	script := strings.NewReader("# comment\nsay one\n\nsay two\nexit\nsay three\n")
	require.NoError(t, runScript(context.Background(), s, script, out))
	assert.Contains(t, out.String(), "one")
	assert.Contains(t, out.String(), "two")
	assert.NotContains(t, out.String(), "three")
}

func TestRunCheck(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	require.NoError(t, runCheck(&out, dir))
	assert.Contains(t, out.String(), "OK")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "dup.toml"), []byte(`
[[command]]
name = "zone"

  [[command.children]]
  name = "list"
  aliases = ["ls"]
  handler = "say"

  [[command.children]]
  name = "ls"
  handler = "say"
`), 0o600))

	out.Reset()
	err := runCheck(&out, dir)
	assert.ErrorIs(t, err, errConflicts)
	assert.Contains(t, out.String(), `label "ls" is used by "list" and "ls"`)
}

func TestRunCheck_BadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.toml"), []byte("[[command]]\nname = \"x\"\nhandler = \"nope\""), 0o600))

	var out bytes.Buffer
	err := runCheck(&out, dir)
	require.Error(t, err)
	assert.Contains(t, out.String(), "FAIL")
}

func TestRunAudit(t *testing.T) {
	store, err := audit.Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, runAudit(ctx, &out, store, "", 10))
	assert.Contains(t, out.String(), "No executions recorded.")

	require.NoError(t, store.Record(ctx, executor.Record{
		InvokerID: "u1", InvokerName: "alice", Path: "say", Outcome: executor.OutcomeSuccess,
	}))
	out.Reset()
	require.NoError(t, runAudit(ctx, &out, store, "u1", 10))
	assert.Contains(t, out.String(), "alice (u1)")
	assert.Contains(t, out.String(), "success=1")
}

func TestOutcomeError(t *testing.T) {
	assert.NoError(t, outcomeError(executor.Result{Outcome: executor.OutcomeSuccess}))
	assert.NoError(t, outcomeError(executor.Result{Outcome: executor.OutcomeHandledUnknown}))
	assert.EqualError(t, outcomeError(executor.Result{Outcome: executor.OutcomeOnCooldown}), "command on cooldown")
}

// =============================================================================
// COMMAND LINE
// =============================================================================

// runCLI runs the root command with a private home directory and returns
// everything it printed.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(config.ResetGlobalForTesting)

	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[fuzzy]
threshold = 2

[definitions]
dir = '`+filepath.Join(dir, "commands")+`'
watch = false

[audit]
path = '`+filepath.Join(dir, "audit.db")+`'
`), 0o600))
	return path
}

func TestCLI_ExecAsync(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfgPath := writeTestConfig(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
		output  string
	}{
		{"success", []string{"backup", "1ms"}, "", "Backup complete."},
		{"failure", []string{"backup", "1ms", "moon"}, "no world named 'moon'", "Backup failed: no world named 'moon'."},
		{"sync argument error", []string{"give", "gold"}, "command argument error", "'gold' is not a valid Material"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", cfgPath, "--verbose", "exec", "--wait", "5s"}, tt.args...)
			out, err := runCLI(t, args...)
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
			assert.Contains(t, out, tt.output)
		})
	}
}

func TestCLI_ConfigShow(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CMDTREE_MAX_CONCURRENT", "9")

	out, err := runCLI(t, "--config", writeTestConfig(t), "--verbose", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "threshold = 2")
	assert.Contains(t, out, "max_concurrent = 9")
	assert.Equal(t, 2, config.Global().Fuzzy.Threshold)
}

func TestCLI_ConfigInit(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	out, err := runCLI(t, "config", "init")
	require.NoError(t, err)
	defaultPath := filepath.Join(home, ".cmdtree", "config.toml")
	assert.Contains(t, out, "wrote "+defaultPath)

	_, err = runCLI(t, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = runCLI(t, "config", "init", "--force")
	require.NoError(t, err)

	// An explicit --config path need not exist yet.
	custom := filepath.Join(t.TempDir(), "custom.toml")
	_, err = runCLI(t, "--config", custom, "config", "init")
	require.NoError(t, err)

	loaded, err := config.LoadFromPath(custom)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Fuzzy, loaded.Fuzzy)

	info, err := os.Stat(custom)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}
