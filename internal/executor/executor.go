// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/jeranaias/cmdtree/internal/argument"
	"github.com/jeranaias/cmdtree/internal/cmderr"
	"github.com/jeranaias/cmdtree/internal/command"
	"github.com/jeranaias/cmdtree/internal/completion"
	"github.com/jeranaias/cmdtree/internal/cooldown"
	"github.com/jeranaias/cmdtree/internal/fuzzy"
	"github.com/jeranaias/cmdtree/internal/logging"
)

// =============================================================================
// EXECUTOR
// =============================================================================

// Executor runs invocations. It is safe for concurrent use once built.
type Executor struct {
	caps      command.Capabilities
	sink      command.Sink
	args      *argument.Registry
	completer *completion.Driver
	cooldowns *cooldown.Manager
	scheduler Scheduler
	matcher   *fuzzy.Matcher
	messages  Messages
	bypass    string
	limiters  *limiters
	recorder  Recorder
}

// Option configures an Executor.
type Option func(*Executor)

// WithArguments sets the argument converter registry.
func WithArguments(reg *argument.Registry) Option {
	return func(e *Executor) { e.args = reg }
}

// WithCompletions sets the completer registry used by TabComplete.
func WithCompletions(reg *completion.Registry) Option {
	return func(e *Executor) { e.completer = completion.NewDriver(reg, e.caps) }
}

// WithCooldowns sets the cooldown store.
func WithCooldowns(m *cooldown.Manager) Option {
	return func(e *Executor) { e.cooldowns = m }
}

// WithScheduler sets where async handlers run.
func WithScheduler(s Scheduler) Option {
	return func(e *Executor) { e.scheduler = s }
}

// WithMatcher sets the fuzzy matcher for unknown subcommands.
func WithMatcher(m *fuzzy.Matcher) Option {
	return func(e *Executor) { e.matcher = m }
}

// WithMessages sets the user-facing messages. Empty fields keep defaults.
func WithMessages(m Messages) Option {
	return func(e *Executor) { e.messages = m.merged() }
}

// WithBypassCapability sets the capability that skips cooldowns for handlers
// that do not name their own.
func WithBypassCapability(capability string) Option {
	return func(e *Executor) { e.bypass = capability }
}

// WithRateLimit allows each invoker perSecond invocations with the given
// burst. A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(e *Executor) {
		if perSecond <= 0 {
			e.limiters = nil
			return
		}
		e.limiters = newLimiters(perSecond, burst)
	}
}

// WithRecorder records every invocation.
func WithRecorder(r Recorder) Option {
	return func(e *Executor) { e.recorder = r }
}

// New creates an executor. caps may be nil, in which case every permission
// check fails.
func New(caps command.Capabilities, sink command.Sink, opts ...Option) *Executor {
	if sink == nil {
		sink = command.SinkFunc(func(command.Invoker, string) {})
	}
	e := &Executor{
		caps:      caps,
		sink:      sink,
		args:      argument.NewDefaultRegistry(),
		completer: completion.NewDriver(nil, caps),
		cooldowns: cooldown.Global(),
		scheduler: InlineScheduler{},
		matcher:   fuzzy.NewMatcher(),
		messages:  DefaultMessages(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Cooldowns returns the cooldown store.
func (e *Executor) Cooldowns() *cooldown.Manager {
	return e.cooldowns
}

// =============================================================================
// EXECUTE
// =============================================================================

// Execute runs one invocation of root with the raw tokens after the root
// label.
func (e *Executor) Execute(ctx context.Context, root *command.Definition, inv command.Invoker, tokens []string) Result {
	start := time.Now()
	res := e.execute(ctx, root, inv, tokens)
	e.record(ctx, root, inv, tokens, res, start)
	return res
}

func (e *Executor) execute(ctx context.Context, root *command.Definition, inv command.Invoker, raw []string) Result {
	if root == nil {
		e.sink.Send(inv, e.messages.UnknownCommand)
		return Result{Outcome: OutcomeNotFound, Err: &cmderr.CommandNotFoundError{}}
	}

	if !root.CheckPermissionAndNotify(inv, e.caps, e.sink, e.messages.PermissionDenied) {
		return e.denied(root, inv)
	}

	tokens := command.Tokenize(raw)
	node, rest := command.Resolve(root, tokens)

	if node != root {
		for _, d := range chain(root, node) {
			if !d.CheckPermissionAndNotify(inv, e.caps, e.sink, e.messages.PermissionDenied) {
				res := e.denied(d, inv)
				res.Node = node
				return res
			}
		}
	}

	h := node.Handler()
	if h == nil {
		return e.noHandler(ctx, node, inv, rest)
	}

	if e.limiters != nil && !e.limiters.allow(inv) {
		e.sink.Send(inv, e.messages.RateLimited)
		return Result{
			Outcome: OutcomeRateLimited,
			Node:    node,
			Err:     &cmderr.RateLimitedError{InvokerID: limiterKey(inv)},
		}
	}

	key, period := e.cooldownKey(node, h, inv)
	if key != "" {
		if remaining, ok := e.cooldowns.Acquire(key, period); !ok {
			secs := cooldown.Seconds(remaining)
			e.sink.Send(inv, e.messages.cooldown(secs))
			return Result{
				Outcome:   OutcomeOnCooldown,
				Node:      node,
				Remaining: remaining,
				Err:       &cmderr.OnCooldownError{Path: node.PathKey(), Remaining: secs},
			}
		}
	}

	return e.dispatch(ctx, node, h, inv, rest, key, period)
}

// chain returns the definitions below root down to and including node.
func chain(root, node *command.Definition) []*command.Definition {
	var out []*command.Definition
	for d := node; d != nil && d != root; d = d.Parent() {
		out = append(out, d)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (e *Executor) denied(d *command.Definition, inv command.Invoker) Result {
	return Result{
		Outcome: OutcomeDenied,
		Node:    d,
		Err: &cmderr.PermissionDeniedError{
			Path:       d.PathKey(),
			Capability: d.MissingCapability(inv, e.caps),
		},
	}
}

// noHandler handles a resolved node without a default handler.
func (e *Executor) noHandler(ctx context.Context, node *command.Definition, inv command.Invoker, rest []string) Result {
	if owner, uh := node.NearestUnknownHandler(); uh != nil {
		if err := e.invoke(ctx, owner, uh, inv, rest); err != nil {
			outcome := e.report(owner, uh, inv, err)
			return Result{Outcome: outcome, Node: node, Err: err}
		}
		return Result{Outcome: OutcomeHandledUnknown, Node: node}
	}

	notFound := &cmderr.CommandNotFoundError{Path: node.PathKey()}
	if len(rest) > 0 {
		notFound.Token = rest[0]
		if s := e.matcher.SuggestionGroups(rest[0], e.visibleLabels(node, inv)); s != "" {
			notFound.Suggestion = s
			e.sink.Send(inv, s)
		}
	}
	e.sink.Send(inv, e.messages.UnknownCommand)
	return Result{Outcome: OutcomeNotFound, Node: node, Err: notFound}
}

// visibleLabels groups the labels of each child inv may see.
func (e *Executor) visibleLabels(node *command.Definition, inv command.Invoker) [][]string {
	var groups [][]string
	for _, child := range node.Children() {
		if child.Private() || !child.IsPermitted(inv, e.caps) {
			continue
		}
		groups = append(groups, child.Labels())
	}
	return groups
}

// cooldownKey returns the key and period to enforce, or "" when the
// invocation is not throttled.
func (e *Executor) cooldownKey(node *command.Definition, h *command.Handler, inv command.Invoker) (string, time.Duration) {
	policy, ok := h.Cooldown()
	if !ok || e.cooldowns == nil {
		return "", 0
	}

	bypass := policy.Bypass
	if bypass == "" {
		bypass = e.bypass
	}
	if bypass != "" && e.caps != nil && e.caps.HasCapability(inv, bypass) {
		return "", 0
	}

	path := node.PathKey()
	switch {
	case policy.Scope == command.ScopeGlobal:
		return cooldown.GlobalKey(path), policy.Duration
	case command.IsAnonymous(inv):
		return "", 0
	default:
		return cooldown.Key(inv.ID(), path), policy.Duration
	}
}

// =============================================================================
// DISPATCH
// =============================================================================

func (e *Executor) dispatch(ctx context.Context, node *command.Definition, h *command.Handler, inv command.Invoker, rest []string, key string, period time.Duration) Result {
	if !h.Constraint().Accepts(inv) {
		err := &cmderr.InvokerMismatchError{Required: h.Constraint().String()}
		e.release(key)
		return Result{Outcome: e.report(node, h, inv, err), Node: node, Err: err}
	}

	args, err := h.Bind(rest, e.args)
	if err != nil {
		e.release(key)
		return Result{Outcome: e.report(node, h, inv, err), Node: node, Err: err}
	}

	if !h.IsAsync() {
		if err := e.call(ctx, node, h, inv, args); err != nil {
			e.release(key)
			return Result{Outcome: e.report(node, h, inv, err), Node: node, Err: err}
		}
		e.commit(key, period)
		return Result{Outcome: OutcomeSuccess, Node: node}
	}

	id, err := e.scheduler.RunLater(taskName(node, h), func(taskCtx context.Context) error {
		if err := e.call(taskCtx, node, h, inv, args); err != nil {
			e.release(key)
			e.report(node, h, inv, err)
			return err
		}
		e.commit(key, period)
		return nil
	})
	if err != nil {
		e.release(key)
		logging.Error.Printf("DISPATCH_FAILED | command=%s err=%v", node.PathKey(), err)
		e.sink.Send(inv, e.messages.InternalError)
		return Result{Outcome: OutcomeInternalError, Node: node, Err: err}
	}
	return Result{Outcome: OutcomeDispatched, Node: node, TaskID: id}
}

// release drops a cooldown reserved for an invocation that did not succeed.
func (e *Executor) release(key string) {
	if key != "" {
		e.cooldowns.Clear(key)
	}
}

// commit restarts a reserved cooldown so that it runs from completion.
func (e *Executor) commit(key string, period time.Duration) {
	if key != "" {
		e.cooldowns.Set(key, period)
	}
}

func taskName(node *command.Definition, h *command.Handler) string {
	if h.Name() != "" {
		return h.Name()
	}
	return node.PathKey()
}

// invoke binds and calls a handler, recovering panics.
func (e *Executor) invoke(ctx context.Context, node *command.Definition, h *command.Handler, inv command.Invoker, tokens []string) error {
	if !h.Constraint().Accepts(inv) {
		return &cmderr.InvokerMismatchError{Required: h.Constraint().String()}
	}
	args, err := h.Bind(tokens, e.args)
	if err != nil {
		return err
	}
	return e.call(ctx, node, h, inv, args)
}

// panicError is a recovered handler panic.
type panicError struct {
	value any
	stack []byte
}

func (p *panicError) Error() string {
	return fmt.Sprintf("handler panicked: %v", p.value)
}

func (e *Executor) call(ctx context.Context, node *command.Definition, h *command.Handler, inv command.Invoker, args command.Args) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()
	return h.Call(ctx, inv, args)
}

// report sends the message for a failed dispatch and returns its outcome.
func (e *Executor) report(node *command.Definition, h *command.Handler, inv command.Invoker, err error) Outcome {
	var (
		notEnough *cmderr.NotEnoughArgumentsError
		invalid   *cmderr.InvalidValueError
		mismatch  *cmderr.InvokerMismatchError
		panicked  *panicError
	)

	switch {
	case errors.As(err, &notEnough):
		e.sink.Send(inv, e.messages.usage(UsageLine(node, h)))
		return OutcomeArgumentError

	case cmderr.IsConfigError(err):
		logging.Error.Printf("CONFIG_ERROR | command=%s err=%v", node.PathKey(), err)
		e.sink.Send(inv, e.messages.InternalError)
		return OutcomeInternalError

	case errors.As(err, &invalid):
		e.sink.Send(inv, e.messages.invalidValue(invalid.Value, invalid.Param, invalid.Allowed))
		return OutcomeArgumentError

	case errors.As(err, &mismatch):
		if mismatch.Required == command.InvokerAnonymous.String() {
			e.sink.Send(inv, e.messages.AnonymousOnly)
		} else {
			e.sink.Send(inv, e.messages.IdentifiedOnly)
		}
		return OutcomeArgumentError

	case errors.As(err, &panicked):
		logging.Error.Printf("HANDLER_PANIC | command=%s invoker=%s panic=%v\n%s",
			node.PathKey(), invokerName(inv), panicked.value, panicked.stack)
		e.sink.Send(inv, e.messages.InternalError)
		return OutcomeInternalError
	}

	if msg, ok := cmderr.UserMessage(err); ok {
		e.sink.Send(inv, msg)
		return OutcomeArgumentError
	}

	logging.Error.Printf("HANDLER_ERROR | command=%s invoker=%s err=%v",
		node.PathKey(), invokerName(inv), err)
	e.sink.Send(inv, e.messages.InternalError)
	return OutcomeInternalError
}

func invokerName(inv command.Invoker) string {
	if inv == nil {
		return ""
	}
	return inv.Name()
}

// UsageLine renders "/root sub <params>" for a handler on node.
func UsageLine(node *command.Definition, h *command.Handler) string {
	line := "/" + strings.Join(node.PathLabels(), " ")
	if h != nil {
		if params := h.Usage(); params != "" {
			line += " " + params
		}
	}
	return line
}

// =============================================================================
// RECORDING
// =============================================================================

func (e *Executor) record(ctx context.Context, root *command.Definition, inv command.Invoker, tokens []string, res Result, start time.Time) {
	if e.recorder == nil {
		return
	}

	rec := Record{
		Tokens:   append([]string(nil), tokens...),
		Outcome:  res.Outcome,
		TaskID:   res.TaskID,
		Duration: time.Since(start),
		Time:     start,
	}
	if inv != nil {
		rec.InvokerID, rec.InvokerName = inv.ID(), inv.Name()
	}
	switch {
	case res.Node != nil:
		rec.Path = res.Node.PathKey()
	case root != nil:
		rec.Path = root.PathKey()
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}

	if err := e.recorder.Record(ctx, rec); err != nil {
		logging.Warning.Printf("AUDIT_WRITE_FAILED | command=%s err=%v", rec.Path, err)
	}
}
