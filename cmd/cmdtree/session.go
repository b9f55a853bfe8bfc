// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/cmdtree/internal/command"
	"github.com/jeranaias/cmdtree/internal/config"
	"github.com/jeranaias/cmdtree/internal/engine"
	"github.com/jeranaias/cmdtree/internal/scheduler"
)

// printSink writes every message to out on its own line.
type printSink struct {
	out io.Writer
	mu  sync.Mutex
}

func (s *printSink) Send(_ command.Invoker, text string) {
	s.print(messageStyle.Render(text))
}

// notice prints engine events that are not replies to a command.
func (s *printSink) notice(text string) {
	s.print(dimStyle.Render("[" + text + "]"))
}

func (s *printSink) print(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, line)
}

// session is an engine plus the invoker the CLI acts as.
type session struct {
	eng     *engine.Engine
	invoker command.Invoker
	sink    *printSink

	// started suppresses the reload notice for the initial load.
	started atomic.Bool
}

// parseInvoker turns "id:name" into an identified invoker. Empty means the
// console.
func parseInvoker(spec string) (command.Invoker, error) {
	if spec == "" {
		return command.Console, nil
	}
	id, name, ok := strings.Cut(spec, ":")
	if !ok || id == "" {
		return nil, fmt.Errorf("invalid --as %q: want id:name", spec)
	}
	if name == "" {
		name = id
	}
	return command.NewActor(id, name), nil
}

// openSession builds and starts an engine for the CLI.
func openSession(ctx context.Context, flags *globalFlags, cfg *config.Config, out io.Writer) (*session, error) {
	inv, err := parseInvoker(flags.as)
	if err != nil {
		return nil, err
	}

	s := &session{invoker: inv, sink: &printSink{out: out}}
	handlers := demoHandlers(s.sink, func() *engine.Engine { return s.eng })

	roots, err := defaultRoots(handlers)
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(cfg, grantSet(flags.grants), s.sink, handlers,
		engine.WithRoots(roots...),
		engine.WithOnTaskFinish(s.taskFinished),
		engine.WithOnReload(s.reloaded),
	)
	if err != nil {
		return nil, err
	}
	registerCompleters(eng.Completions(), eng)
	s.eng = eng

	if err := eng.Start(ctx); err != nil {
		eng.Stop()
		return nil, err
	}
	s.started.Store(true)
	return s, nil
}

func (s *session) taskFinished(n scheduler.Notification) {
	s.sink.notice(fmt.Sprintf("task %s %s after %s",
		n.TaskID[:8], strings.ToLower(n.Status.String()), n.Duration.Round(time.Millisecond)))
}

func (s *session) reloaded(roots int, err error) {
	if !s.started.Load() {
		return
	}
	if err != nil {
		s.sink.notice("definitions reload failed: " + err.Error())
		return
	}
	s.sink.notice(fmt.Sprintf("definitions reloaded, %d from files", roots))
}

func (s *session) close() {
	_ = s.eng.Stop()
}
