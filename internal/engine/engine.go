// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/cmdtree/internal/argument"
	"github.com/jeranaias/cmdtree/internal/audit"
	"github.com/jeranaias/cmdtree/internal/cmderr"
	"github.com/jeranaias/cmdtree/internal/command"
	"github.com/jeranaias/cmdtree/internal/completion"
	"github.com/jeranaias/cmdtree/internal/config"
	"github.com/jeranaias/cmdtree/internal/cooldown"
	"github.com/jeranaias/cmdtree/internal/executor"
	"github.com/jeranaias/cmdtree/internal/fuzzy"
	"github.com/jeranaias/cmdtree/internal/loader"
	"github.com/jeranaias/cmdtree/internal/logging"
	"github.com/jeranaias/cmdtree/internal/scheduler"
	"github.com/jeranaias/cmdtree/internal/util"
)

// CommandPrefix is stripped from the first token of a line.
const CommandPrefix = "/"

// auditPruneInterval is how often entries past the retention are deleted.
const auditPruneInterval = time.Hour

// =============================================================================
// ENGINE
// =============================================================================

// Engine is a configured command engine.
type Engine struct {
	cfg         *config.Config
	caps        command.Capabilities
	sink        command.Sink
	registry    *command.Registry
	exec        *executor.Executor
	args        *argument.Registry
	completions *completion.Registry
	cooldowns   *cooldown.Manager
	sched       *scheduler.Scheduler
	matcher     *fuzzy.Matcher
	audit       *audit.Store
	watcher     *loader.Watcher

	onTaskFinish func(scheduler.Notification)
	onReload     func(roots int, err error)

	mu      sync.Mutex
	started bool
	stopped bool
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	static       []*command.Definition
	audit        *audit.Store
	cooldowns    *cooldown.Manager
	onTaskFinish func(scheduler.Notification)
	onReload     func(roots int, err error)
}

// WithRoots registers root definitions built in code. Definition files with
// the same root name replace them.
func WithRoots(roots ...*command.Definition) Option {
	return func(o *options) { o.static = append(o.static, roots...) }
}

// WithAuditStore uses store instead of opening the configured audit path.
func WithAuditStore(store *audit.Store) Option {
	return func(o *options) { o.audit = store }
}

// WithCooldowns shares an existing cooldown store.
func WithCooldowns(m *cooldown.Manager) Option {
	return func(o *options) { o.cooldowns = m }
}

// WithOnTaskFinish sets a callback run when an async handler finishes.
func WithOnTaskFinish(fn func(scheduler.Notification)) Option {
	return func(o *options) { o.onTaskFinish = fn }
}

// WithOnReload sets a callback run after each definitions reload, including
// reloads triggered by file changes. roots is 0 when err is set.
func WithOnReload(fn func(roots int, err error)) Option {
	return func(o *options) { o.onReload = fn }
}

// New builds an engine from cfg. A nil cfg uses config.Default. handlers may
// be nil when every command is registered in code.
func New(cfg *config.Config, caps command.Capabilities, sink command.Sink, handlers *loader.Handlers, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if handlers == nil {
		handlers = loader.NewHandlers()
	}
	if sink == nil {
		sink = command.SinkFunc(func(command.Invoker, string) {})
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{
		cfg:         cfg,
		caps:        caps,
		sink:        sink,
		registry:    command.NewRegistry(),
		args:        argument.NewDefaultRegistry(),
		completions: completion.NewDefaultRegistry(),
		cooldowns:   o.cooldowns,
		audit:       o.audit,

		onTaskFinish: o.onTaskFinish,
		onReload:     o.onReload,
	}
	if e.cooldowns == nil {
		e.cooldowns = cooldown.NewManager()
	}

	e.sched = scheduler.New(
		scheduler.WithMaxConcurrent(cfg.Dispatch.MaxConcurrent),
		scheduler.WithMaxHistory(cfg.Dispatch.MaxHistory),
		scheduler.WithOnFinish(e.taskFinished),
	)
	e.matcher = fuzzy.NewMatcher(
		fuzzy.WithThreshold(cfg.Fuzzy.Threshold),
		fuzzy.WithMaxSuggestions(cfg.Fuzzy.MaxSuggestions),
		fuzzy.WithTemplates(cfg.Fuzzy.SingleTemplate, cfg.Fuzzy.MultiTemplate),
	)

	if e.audit == nil && cfg.Audit.Enabled {
		path, err := cfg.AuditPath()
		if err != nil {
			return nil, err
		}
		store, err := audit.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit store: %w", err)
		}
		e.audit = store
	}

	execOpts := []executor.Option{
		executor.WithArguments(e.args),
		executor.WithCompletions(e.completions),
		executor.WithCooldowns(e.cooldowns),
		executor.WithScheduler(e.sched),
		executor.WithMatcher(e.matcher),
		executor.WithMessages(messagesFrom(cfg.Messages)),
		executor.WithBypassCapability(cfg.Cooldown.BypassCapability),
		executor.WithRateLimit(cfg.Dispatch.RatePerSecond, cfg.Dispatch.Burst),
	}
	if e.audit != nil {
		execOpts = append(execOpts, executor.WithRecorder(e.audit))
	}
	e.exec = executor.New(caps, sink, execOpts...)

	dir, err := cfg.DefinitionsDir()
	if err != nil {
		if e.audit != nil && o.audit == nil {
			e.audit.Close()
		}
		return nil, err
	}
	e.watcher = loader.NewWatcher(dir, handlers, e.registry,
		loader.WithStatic(o.static...),
		loader.WithDebounce(cfg.Definitions.Debounce()),
		loader.WithOnReload(e.reloaded),
	)
	e.registry.Replace(o.static)

	return e, nil
}

func messagesFrom(m config.MessagesConfig) executor.Messages {
	return executor.Messages{
		PermissionDenied: m.PermissionDenied,
		UnknownCommand:   m.UnknownCommand,
		OnCooldown:       m.OnCooldown,
		RateLimited:      m.RateLimited,
		InternalError:    m.InternalError,
		Usage:            m.Usage,
		InvalidValue:     m.InvalidValue,
		IdentifiedOnly:   m.IdentifiedOnly,
		AnonymousOnly:    m.AnonymousOnly,
	}
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Start loads definitions, starts the scheduler and periodic cooldown cleanup,
// and begins watching the definitions directory when configured.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return errors.New("engine stopped")
	}
	if e.started {
		return nil
	}

	if err := e.watcher.Reload(); err != nil {
		return fmt.Errorf("failed to load definitions: %w", err)
	}

	e.sched.Start()
	err := e.sched.Every(ctx, e.cfg.Cooldown.CleanupInterval(), func() {
		if n := e.cooldowns.Cleanup(); n > 0 {
			logging.Info.Printf("COOLDOWN_CLEANUP | removed=%d", n)
		}
	})
	if err == nil && e.audit != nil && e.cfg.Audit.Retention() > 0 {
		e.pruneAudit(ctx)
		err = e.sched.Every(ctx, auditPruneInterval, func() { e.pruneAudit(ctx) })
	}
	if err != nil {
		e.sched.Stop()
		return err
	}

	if e.cfg.Definitions.Watch {
		if _, statErr := os.Stat(e.watcher.Dir()); statErr == nil {
			if err := e.watcher.Start(); err != nil {
				logging.Warning.Printf("DEFINITIONS_WATCH_FAILED | dir=%s err=%v", e.watcher.Dir(), err)
			}
		}
	}

	e.started = true
	logging.Info.Printf("ENGINE_STARTED | roots=%d", e.registry.Len())
	return nil
}

// Stop stops watching, waits for running async handlers and closes the audit
// store. It is safe to call more than once.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return nil
	}
	e.stopped = true

	var errs []error
	if err := e.watcher.Close(); err != nil {
		errs = append(errs, err)
	}
	e.sched.Stop()
	if e.audit != nil {
		if err := e.audit.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	logging.Info.Printf("ENGINE_STOPPED")
	return errors.Join(errs...)
}

// Reload reloads the definitions directory now.
func (e *Engine) Reload() error {
	return e.watcher.Reload()
}

func (e *Engine) reloaded(roots int, err error) {
	if err == nil {
		logging.Info.Printf("DEFINITIONS_RELOADED | dir=%s roots=%d", e.watcher.Dir(), roots)
	}
	if e.onReload != nil {
		e.onReload(roots, err)
	}
}

func (e *Engine) taskFinished(n scheduler.Notification) {
	switch n.Status {
	case scheduler.StatusFailed:
		logging.Warning.Printf("TASK_FAILED | task=%s command=%s err=%q", n.TaskID, n.Description, n.Error)
	default:
		logging.Info.Printf("TASK_FINISHED | task=%s command=%s status=%s duration=%s",
			n.TaskID, n.Description, n.Status, n.Duration)
	}
	if e.onTaskFinish != nil {
		e.onTaskFinish(n)
	}
}

// pruneAudit deletes audit entries older than the configured retention.
func (e *Engine) pruneAudit(ctx context.Context) {
	cutoff := time.Now().Add(-e.cfg.Audit.Retention())
	n, err := e.audit.Prune(ctx, cutoff)
	switch {
	case err != nil:
		logging.Warning.Printf("AUDIT_PRUNE_FAILED | err=%v", err)
	case n > 0:
		logging.Info.Printf("AUDIT_PRUNED | removed=%d before=%s", n, cutoff.Format(time.RFC3339))
	}
}

// CancelTask cancels the queued or running async task whose ID starts with
// prefix and returns its full ID.
func (e *Engine) CancelTask(prefix string) (string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return "", cmderr.User("Give a task ID to cancel.")
	}

	var match string
	for _, t := range e.sched.Tasks() {
		if !strings.HasPrefix(t.ID, prefix) {
			continue
		}
		if match != "" {
			return "", cmderr.Userf("Task ID '%s' is ambiguous.", prefix)
		}
		match = t.ID
	}
	if match == "" {
		return "", cmderr.Userf("No task '%s'.", prefix)
	}
	if !e.sched.Cancel(match) {
		return "", cmderr.Userf("Task '%s' has already finished.", match[:8])
	}
	logging.Info.Printf("TASK_CANCELED | task=%s", match)
	return match, nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Registry returns the root registry.
func (e *Engine) Registry() *command.Registry { return e.registry }

// Executor returns the executor.
func (e *Engine) Executor() *executor.Executor { return e.exec }

// Arguments returns the argument converter registry.
func (e *Engine) Arguments() *argument.Registry { return e.args }

// Completions returns the completer registry.
func (e *Engine) Completions() *completion.Registry { return e.completions }

// Scheduler returns the async scheduler.
func (e *Engine) Scheduler() *scheduler.Scheduler { return e.sched }

// Audit returns the audit store, or nil when auditing is off.
func (e *Engine) Audit() *audit.Store { return e.audit }

// =============================================================================
// EXECUTION
// =============================================================================

// ExecuteLine splits line on whitespace and runs it.
func (e *Engine) ExecuteLine(ctx context.Context, inv command.Invoker, line string) executor.Result {
	return e.Execute(ctx, inv, strings.Fields(line))
}

// Execute runs tokens, whose first element names the root command. A leading
// "/" on the root label is ignored.
func (e *Engine) Execute(ctx context.Context, inv command.Invoker, tokens []string) executor.Result {
	if len(tokens) == 0 {
		return executor.Result{Outcome: executor.OutcomeNotFound}
	}

	label := strings.TrimPrefix(tokens[0], CommandPrefix)
	root := e.registry.Get(label)
	if root == nil {
		if s := e.matcher.SuggestionGroups(label, e.rootLabels(inv)); s != "" {
			e.sink.Send(inv, s)
		}
	}
	return e.exec.Execute(ctx, root, inv, tokens[1:])
}

// Complete returns candidates for the last word of line. A line ending in
// whitespace completes a new empty word.
func (e *Engine) Complete(inv command.Invoker, line string) []string {
	words := strings.Fields(line)
	if line == "" || strings.HasSuffix(line, " ") || strings.HasSuffix(line, "\t") {
		words = append(words, "")
	}

	if len(words) == 1 {
		prefix := strings.TrimPrefix(words[0], CommandPrefix)
		slash := strings.HasPrefix(words[0], CommandPrefix)
		var out []string
		for _, labels := range e.rootLabels(inv) {
			for _, l := range labels {
				if util.HasFoldPrefix(l, prefix) {
					if slash {
						l = CommandPrefix + l
					}
					out = append(out, l)
				}
			}
		}
		return out
	}

	alias := strings.TrimPrefix(words[0], CommandPrefix)
	root := e.registry.Get(alias)
	if root == nil {
		return nil
	}
	return e.exec.TabComplete(root, inv, alias, words[1:])
}

// Help lists every command inv may run, sorted by root.
func (e *Engine) Help(inv command.Invoker) []executor.Entry {
	var entries []executor.Entry
	for _, root := range e.registry.All() {
		entries = append(entries, e.exec.Listing(root, inv)...)
	}
	return entries
}

// rootLabels groups the labels of each root inv may see.
func (e *Engine) rootLabels(inv command.Invoker) [][]string {
	var groups [][]string
	for _, root := range e.registry.All() {
		if root.Private() || !root.IsPermitted(inv, e.caps) {
			continue
		}
		groups = append(groups, root.Labels())
	}
	return groups
}
