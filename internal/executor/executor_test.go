// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/cmdtree/internal/argument"
	"github.com/jeranaias/cmdtree/internal/cmderr"
	"github.com/jeranaias/cmdtree/internal/command"
	"github.com/jeranaias/cmdtree/internal/cooldown"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type grants map[string]bool

func (g grants) HasCapability(_ command.Invoker, capability string) bool {
	return g[capability]
}

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) Send(_ command.Invoker, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, text)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = nil
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// queued captures async work instead of running it.
type queued struct {
	fns []func(context.Context) error
}

func (q *queued) RunNow(fn func()) { fn() }

func (q *queued) RunLater(_ string, fn func(context.Context) error) (string, error) {
	q.fns = append(q.fns, fn)
	return "task-1", nil
}

type memRecorder struct{ records []Record }

func (m *memRecorder) Record(_ context.Context, rec Record) error {
	m.records = append(m.records, rec)
	return nil
}

var steve = command.NewActor("u1", "Steve")

func newExecutor(caps grants, opts ...Option) (*Executor, *recorder, *clock) {
	sink := &recorder{}
	clk := &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithCooldowns(cooldown.NewManager(cooldown.WithClock(clk.Now)))}, opts...)
	return New(caps, sink, opts...), sink, clk
}

func exec(t *testing.T, e *Executor, root *command.Definition, inv command.Invoker, tokens ...string) Result {
	t.Helper()
	return e.Execute(context.Background(), root, inv, tokens)
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestExecute_ReloadAliasWithPermission(t *testing.T) {
	reloads := 0
	root := command.NewBuilder("admin").Child(
		command.NewBuilder("reload", "rl").
			Permission("admin.reload", "").
			Handler(command.NewHandler(func(context.Context, command.Args) error {
				reloads++
				return nil
			})),
	).MustBuild()

	e, sink, _ := newExecutor(grants{"admin.reload": true})
	res := exec(t, e, root, steve, "rl")
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, "reload", res.Node.Name())
	assert.Equal(t, 1, reloads)
	assert.Empty(t, sink.all())

	e, sink, _ = newExecutor(grants{})
	res = exec(t, e, root, steve, "RELOAD")
	assert.Equal(t, OutcomeDenied, res.Outcome)
	assert.Equal(t, []string{DefaultMessages().PermissionDenied}, sink.all())
	assert.Equal(t, 1, reloads)

	var denied *cmderr.PermissionDeniedError
	require.True(t, errors.As(res.Err, &denied))
	assert.Equal(t, "admin.reload", denied.Capability)
}

func TestExecute_FuzzySuggestionThenUnknown(t *testing.T) {
	root := command.NewBuilder("admin").Child(
		command.NewBuilder("teleport").Handler(command.NewHandler(func(context.Context, command.Args) error { return nil })),
		command.NewBuilder("give").Handler(command.NewHandler(func(context.Context, command.Args) error { return nil })),
	).MustBuild()

	e, sink, _ := newExecutor(grants{})
	res := exec(t, e, root, steve, "telport")

	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.Equal(t, []string{
		"Did you mean 'teleport'?",
		DefaultMessages().UnknownCommand,
	}, sink.all())

	var notFound *cmderr.CommandNotFoundError
	require.True(t, errors.As(res.Err, &notFound))
	assert.Equal(t, "telport", notFound.Token)
}

func TestExecute_SuggestionOffersEachChildOnce(t *testing.T) {
	noop := command.NewHandler(func(context.Context, command.Args) error { return nil })
	root := command.NewBuilder("admin").Child(
		command.NewBuilder("teleport", "tele", "tp").Handler(noop),
		command.NewBuilder("tell").Handler(noop),
	).MustBuild()

	tests := []struct {
		token string
		want  string
	}{
		{"telport", "Did you mean 'teleport'?"},
		{"tel", "Did you mean one of: 'tele', 'tell'?"},
		{"tpp", "Did you mean one of: 'tp', 'tell'?"},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			e, sink, _ := newExecutor(grants{})
			exec(t, e, root, steve, tt.token)
			assert.Equal(t, []string{tt.want, DefaultMessages().UnknownCommand}, sink.all())
		})
	}
}

func TestExecute_SuggestionSkipsHiddenChildren(t *testing.T) {
	root := command.NewBuilder("admin").Child(
		command.NewBuilder("teleport").Permission("admin.tp", ""),
		command.NewBuilder("telemetry").Private(true),
	).MustBuild()

	e, sink, _ := newExecutor(grants{})
	exec(t, e, root, steve, "telport")
	assert.Equal(t, []string{DefaultMessages().UnknownCommand}, sink.all())
}

func TestExecute_UnknownHandlerNearestAncestor(t *testing.T) {
	var got []string
	unknown := command.NewHandler(func(_ context.Context, args command.Args) error {
		got = append(got, args.String(0))
		return nil
	}, command.WithParams(argument.Param{Name: "rest", Optional: true}))

	root := command.NewBuilder("warp").
		UnknownHandler(unknown).
		Child(command.NewBuilder("list").Child(command.NewBuilder("all"))).
		MustBuild()

	e, sink, _ := newExecutor(grants{})
	res := exec(t, e, root, steve, "list", "nowhere", "fast")

	assert.Equal(t, OutcomeHandledUnknown, res.Outcome)
	assert.Equal(t, []string{"nowhere fast"}, got)
	assert.Empty(t, sink.all())
}

func TestExecute_GreedyTrailingCapture(t *testing.T) {
	var said string
	root := command.NewBuilder("say").Handler(command.NewHandler(func(_ context.Context, args command.Args) error {
		said = args.String(0)
		return nil
	}, command.WithParams(argument.Param{Name: "message"}))).MustBuild()

	e, _, _ := newExecutor(grants{})
	res := exec(t, e, root, command.Console, "hello", "world")
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, "hello world", said)
}

func TestExecute_QuotedTokens(t *testing.T) {
	var key string
	var value int
	root := command.NewBuilder("cfg").Child(
		command.NewBuilder("set").Handler(command.NewHandler(func(_ context.Context, args command.Args) error {
			key, value = args.String(0), args.Int(1)
			return nil
		}, command.WithParams(
			argument.Param{Name: "key", Single: true},
			argument.Param{Name: "value", Type: argument.Int},
		))),
	).MustBuild()

	e, _, _ := newExecutor(grants{})
	res := exec(t, e, root, steve, "set", `"hello`, `world"`, "5")
	require.Equal(t, OutcomeSuccess, res.Outcome, "err: %v", res.Err)
	assert.Equal(t, "hello world", key)
	assert.Equal(t, 5, value)
}

func TestExecute_IntermediatePermissionChecked(t *testing.T) {
	called := false
	root := command.NewBuilder("admin").Child(
		command.NewBuilder("ban").Permission("admin.ban", "Only moderators can ban.").Child(
			command.NewBuilder("ip").Handler(command.NewHandler(func(context.Context, command.Args) error {
				called = true
				return nil
			})),
		),
	).MustBuild()

	e, sink, _ := newExecutor(grants{})
	res := exec(t, e, root, steve, "ban", "ip")
	assert.Equal(t, OutcomeDenied, res.Outcome)
	assert.Equal(t, []string{"Only moderators can ban."}, sink.all())
	assert.False(t, called)
}

// =============================================================================
// COOLDOWNS
// =============================================================================

func cooldownTree(scope command.Scope, fail *bool) *command.Definition {
	return command.NewBuilder("warp").Handler(command.NewHandler(func(context.Context, command.Args) error {
		if fail != nil && *fail {
			return errors.New("boom")
		}
		return nil
	}, command.WithCooldown(5*time.Second, scope))).MustBuild()
}

func TestExecute_CooldownPerInvoker(t *testing.T) {
	root := cooldownTree(command.ScopeInvoker, nil)
	e, sink, clk := newExecutor(grants{})

	assert.Equal(t, OutcomeSuccess, exec(t, e, root, steve).Outcome)

	clk.Advance(1500 * time.Millisecond)
	res := exec(t, e, root, steve)
	assert.Equal(t, OutcomeOnCooldown, res.Outcome)
	assert.Equal(t, 3500*time.Millisecond, res.Remaining)
	assert.Equal(t, []string{"You must wait 4 seconds before using this command again."}, sink.all())

	other := command.NewActor("u2", "Alex")
	assert.Equal(t, OutcomeSuccess, exec(t, e, root, other).Outcome, "cooldowns are per invoker")

	assert.Equal(t, OutcomeSuccess, exec(t, e, root, command.Console).Outcome)
	assert.Equal(t, OutcomeSuccess, exec(t, e, root, command.Console).Outcome, "console is exempt")

	clk.Advance(4 * time.Second)
	assert.Equal(t, OutcomeSuccess, exec(t, e, root, steve).Outcome)
}

func TestExecute_CooldownGlobalAppliesToConsole(t *testing.T) {
	root := cooldownTree(command.ScopeGlobal, nil)
	e, _, _ := newExecutor(grants{})

	assert.Equal(t, OutcomeSuccess, exec(t, e, root, steve).Outcome)
	assert.Equal(t, OutcomeOnCooldown, exec(t, e, root, command.Console).Outcome)
	assert.Equal(t, OutcomeOnCooldown, exec(t, e, root, command.NewActor("u2", "Alex")).Outcome)
}

func TestExecute_CooldownBypass(t *testing.T) {
	root := cooldownTree(command.ScopeInvoker, nil)
	e, _, _ := newExecutor(grants{"cooldown.bypass": true}, WithBypassCapability("cooldown.bypass"))

	for i := 0; i < 3; i++ {
		assert.Equal(t, OutcomeSuccess, exec(t, e, root, steve).Outcome)
	}
}

func TestExecute_CooldownReleasedOnFailure(t *testing.T) {
	fail := true
	root := cooldownTree(command.ScopeInvoker, &fail)
	e, _, _ := newExecutor(grants{})

	assert.Equal(t, OutcomeInternalError, exec(t, e, root, steve).Outcome)
	fail = false
	assert.Equal(t, OutcomeSuccess, exec(t, e, root, steve).Outcome, "failed run must not start a cooldown")
	assert.Equal(t, OutcomeOnCooldown, exec(t, e, root, steve).Outcome)
}

// =============================================================================
// ARGUMENT AND HANDLER ERRORS
// =============================================================================

func giveTree(fn command.Func) *command.Definition {
	return command.NewBuilder("give").Handler(command.NewHandler(fn, command.WithParams(
		argument.Param{Name: "target", Single: true},
		argument.Param{Name: "amount", Type: argument.Int, Validators: []argument.Validator{argument.InRange(1, 64)}},
	))).MustBuild()
}

func okHandler(context.Context, command.Args) error { return nil }

func TestExecute_ArgumentErrors(t *testing.T) {
	tests := []struct {
		name    string
		tokens  []string
		outcome Outcome
		message string
	}{
		{"not enough", []string{"steve"}, OutcomeArgumentError, "Usage: /give <target> <amount>"},
		{"resolution", []string{"steve", "lots"}, OutcomeArgumentError, "'lots' is not a whole number."},
		{"validation", []string{"steve", "99"}, OutcomeArgumentError, "amount must be at most 64."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, sink, _ := newExecutor(grants{})
			res := exec(t, e, giveTree(okHandler), steve, tt.tokens...)
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, []string{tt.message}, sink.all())
		})
	}
}

func TestExecute_InvalidValue(t *testing.T) {
	root := command.NewBuilder("weather").Handler(command.NewHandler(okHandler, command.WithParams(
		argument.Param{Name: "kind", Values: []string{"clear", "rain"}},
	))).MustBuild()

	e, sink, _ := newExecutor(grants{})
	res := exec(t, e, root, steve, "snow")
	assert.Equal(t, OutcomeArgumentError, res.Outcome)
	assert.Equal(t, []string{"'snow' is not a valid kind. Allowed: clear, rain."}, sink.all())
}

func TestExecute_UnsupportedTypeIsInternal(t *testing.T) {
	material := argument.NewType("Material", nil)
	root := command.NewBuilder("give").Handler(command.NewHandler(okHandler, command.WithParams(
		argument.Param{Name: "item", Type: material},
	))).MustBuild()

	e, sink, _ := newExecutor(grants{})
	res := exec(t, e, root, steve, "stone")
	assert.Equal(t, OutcomeInternalError, res.Outcome)
	assert.True(t, cmderr.IsConfigError(res.Err))
	assert.Equal(t, []string{DefaultMessages().InternalError}, sink.all())
}

func TestExecute_HandlerErrors(t *testing.T) {
	tests := []struct {
		name    string
		fn      command.Func
		outcome Outcome
		message string
	}{
		{"user error", func(context.Context, command.Args) error {
			return cmderr.User("Steve is not online.")
		}, OutcomeArgumentError, "Steve is not online."},
		{"plain error", func(context.Context, command.Args) error {
			return errors.New("db down")
		}, OutcomeInternalError, DefaultMessages().InternalError},
		{"panic", func(context.Context, command.Args) error {
			panic("nil map")
		}, OutcomeInternalError, DefaultMessages().InternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, sink, _ := newExecutor(grants{})
			res := exec(t, e, giveTree(tt.fn), steve, "steve", "3")
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, []string{tt.message}, sink.all())
		})
	}
}

func TestExecute_InvokerConstraint(t *testing.T) {
	root := command.NewBuilder("home").Handler(command.NewInvokerHandler(command.InvokerIdentified,
		func(context.Context, command.Invoker, command.Args) error { return nil },
	)).MustBuild()

	e, sink, _ := newExecutor(grants{})
	res := exec(t, e, root, command.Console)
	assert.Equal(t, OutcomeArgumentError, res.Outcome)
	assert.Equal(t, []string{DefaultMessages().IdentifiedOnly}, sink.all())

	sink.reset()
	assert.Equal(t, OutcomeSuccess, exec(t, e, root, steve).Outcome)
}

func TestExecute_CustomMessages(t *testing.T) {
	root := command.NewBuilder("admin").Permission("admin", "").MustBuild()
	e, sink, _ := newExecutor(grants{}, WithMessages(Messages{PermissionDenied: "Nope."}))

	exec(t, e, root, steve)
	assert.Equal(t, []string{"Nope."}, sink.all())
	assert.Equal(t, DefaultMessages().UnknownCommand, e.messages.UnknownCommand)
}

// =============================================================================
// ASYNC, RATE LIMIT, RECORDING
// =============================================================================

func TestExecute_AsyncDispatch(t *testing.T) {
	ran := false
	root := command.NewBuilder("backup").Handler(command.NewHandler(func(context.Context, command.Args) error {
		ran = true
		return nil
	}, command.WithAsync(true), command.WithCooldown(time.Minute, command.ScopeGlobal))).MustBuild()

	sched := &queued{}
	e, _, _ := newExecutor(grants{}, WithScheduler(sched))

	res := exec(t, e, root, steve)
	assert.Equal(t, OutcomeDispatched, res.Outcome)
	assert.Equal(t, "task-1", res.TaskID)
	assert.False(t, ran)

	assert.Equal(t, OutcomeOnCooldown, exec(t, e, root, steve).Outcome, "pending run holds the cooldown")

	require.Len(t, sched.fns, 1)
	require.NoError(t, sched.fns[0](context.Background()))
	assert.True(t, ran)
	assert.True(t, e.Cooldowns().IsOnCooldown(cooldown.GlobalKey("backup")))
}

func TestExecute_AsyncArgumentErrorIsImmediate(t *testing.T) {
	root := command.NewBuilder("backup").Handler(command.NewHandler(okHandler,
		command.WithAsync(true),
		command.WithParams(argument.Param{Name: "slot", Type: argument.Int}),
	)).MustBuild()

	sched := &queued{}
	e, sink, _ := newExecutor(grants{}, WithScheduler(sched))

	res := exec(t, e, root, steve)
	assert.Equal(t, OutcomeArgumentError, res.Outcome)
	assert.Equal(t, []string{"Usage: /backup <slot>"}, sink.all())
	assert.Empty(t, sched.fns)
}

func TestExecute_RateLimited(t *testing.T) {
	root := command.NewBuilder("ping").Handler(command.NewHandler(okHandler)).MustBuild()
	e, sink, _ := newExecutor(grants{}, WithRateLimit(0.001, 1))

	assert.Equal(t, OutcomeSuccess, exec(t, e, root, steve).Outcome)
	assert.Equal(t, OutcomeRateLimited, exec(t, e, root, steve).Outcome)
	assert.Equal(t, []string{DefaultMessages().RateLimited}, sink.all())

	assert.Equal(t, OutcomeSuccess, exec(t, e, root, command.NewActor("u2", "Alex")).Outcome)
}

func TestExecute_Records(t *testing.T) {
	root := giveTree(okHandler)
	rec := &memRecorder{}
	e, _, _ := newExecutor(grants{}, WithRecorder(rec))

	exec(t, e, root, steve, "alex", "2")
	exec(t, e, root, steve, "alex")

	require.Len(t, rec.records, 2)
	assert.Equal(t, OutcomeSuccess, rec.records[0].Outcome)
	assert.Equal(t, "give", rec.records[0].Path)
	assert.Equal(t, "u1", rec.records[0].InvokerID)
	assert.Equal(t, []string{"alex", "2"}, rec.records[0].Tokens)
	assert.Equal(t, OutcomeArgumentError, rec.records[1].Outcome)
	assert.Contains(t, rec.records[1].Error, "not enough arguments")
}

// =============================================================================
// LISTING AND COMPLETION
// =============================================================================

func TestListing(t *testing.T) {
	root := command.NewBuilder("admin").Description("Admin tools").Child(
		command.NewBuilder("reload").Permission("admin.reload", "").Handler(command.NewHandler(okHandler)),
		command.NewBuilder("give").Description("Give items").Handler(command.NewHandler(okHandler, command.WithParams(
			argument.Param{Name: "target", Single: true},
			argument.Param{Name: "amount", Default: "1"},
		))),
		command.NewBuilder("debug").Private(true).Handler(command.NewHandler(okHandler)),
	).MustBuild()

	e, _, _ := newExecutor(grants{})
	assert.Equal(t, []Entry{
		{Path: "admin.give", Usage: "/admin give <target> [amount=1]", Description: "Give items"},
	}, e.Listing(root, steve))
}

func TestTabComplete(t *testing.T) {
	root := command.NewBuilder("admin").Child(
		command.NewBuilder("reload", "rl"),
		command.NewBuilder("restart"),
	).MustBuild()

	e, _, _ := newExecutor(grants{})
	assert.Equal(t, []string{"reload", "rl", "restart"}, e.TabComplete(root, steve, "admin", []string{"r"}))
}
