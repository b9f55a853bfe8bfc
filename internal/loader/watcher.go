// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package loader

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/cmdtree/internal/command"
	"github.com/jeranaias/cmdtree/internal/logging"
)

// DefaultDebounce is the quiet period before a reload runs.
const DefaultDebounce = 250 * time.Millisecond

// =============================================================================
// WATCHER
// =============================================================================

// Watcher reloads a definitions directory into a registry whenever a
// definition file changes. A failed reload keeps the previous tree.
type Watcher struct {
	dir      string
	handlers *Handlers
	registry *command.Registry
	static   []*command.Definition
	debounce time.Duration
	onReload func(roots int, err error)

	fs      *fsnotify.Watcher
	mu      sync.Mutex
	pending time.Time // zero when nothing is queued
	ctx     context.Context
	cancel  context.CancelFunc
	done    sync.WaitGroup
	started bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithStatic registers roots built in code alongside the loaded ones. A file
// root with the same name replaces a static root.
func WithStatic(roots ...*command.Definition) WatcherOption {
	return func(w *Watcher) {
		w.static = append(w.static, roots...)
	}
}

// WithOnReload sets a callback run after every reload attempt.
func WithOnReload(fn func(roots int, err error)) WatcherOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// NewWatcher creates a watcher for dir. Call Reload for the initial load and
// Start to follow changes.
func NewWatcher(dir string, handlers *Handlers, registry *command.Registry, opts ...WatcherOption) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		dir:      dir,
		handlers: handlers,
		registry: registry,
		debounce: DefaultDebounce,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Reload loads the directory and swaps the registry contents. On error the
// registry is left untouched.
func (w *Watcher) Reload() error {
	roots, err := LoadDir(w.dir, w.handlers)
	if err != nil {
		logging.Error.Printf("DEFINITIONS_RELOAD_FAILED | dir=%s err=%v", w.dir, err)
		if w.onReload != nil {
			w.onReload(0, err)
		}
		return err
	}

	all := make([]*command.Definition, 0, len(w.static)+len(roots))
	all = append(all, w.static...)
	all = append(all, roots...)
	w.registry.Replace(all)

	logging.Info.Printf("DEFINITIONS_RELOADED | dir=%s roots=%d", w.dir, len(roots))
	if w.onReload != nil {
		w.onReload(len(roots), nil)
	}
	return nil
}

// Start begins watching the directory. The directory must exist.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fs.Add(w.dir); err != nil {
		fs.Close()
		return err
	}
	w.fs = fs
	w.started = true

	w.done.Add(2)
	go w.processEvents()
	go w.processPending()
	return nil
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.cancel()
	w.mu.Lock()
	fs := w.fs
	w.fs = nil
	w.mu.Unlock()

	var err error
	if fs != nil {
		err = fs.Close()
	}
	w.done.Wait()
	return err
}

func (w *Watcher) processEvents() {
	defer w.done.Done()
	defer func() {
		if r := recover(); r != nil {
			logging.Error.Printf("WATCHER_PANIC | dir=%s panic=%v", w.dir, r)
		}
	}()

	w.mu.Lock()
	fs := w.fs
	w.mu.Unlock()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-fs.Events:
			if !ok {
				return
			}
			if !strings.EqualFold(filepath.Ext(event.Name), Extension) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			w.pending = time.Now()
			w.mu.Unlock()

		case err, ok := <-fs.Errors:
			if !ok {
				return
			}
			logging.Warning.Printf("WATCHER_ERROR | dir=%s err=%v", w.dir, err)
		}
	}
}

// processPending runs a reload once changes have been quiet for the debounce
// period.
func (w *Watcher) processPending() {
	defer w.done.Done()

	tick := w.debounce / 2
	if tick > 100*time.Millisecond {
		tick = 100 * time.Millisecond
	}
	if tick < 5*time.Millisecond {
		tick = 5 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case now := <-ticker.C:
			w.mu.Lock()
			due := !w.pending.IsZero() && now.Sub(w.pending) >= w.debounce
			if due {
				w.pending = time.Time{}
			}
			w.mu.Unlock()

			if due {
				_ = w.Reload()
			}
		}
	}
}
