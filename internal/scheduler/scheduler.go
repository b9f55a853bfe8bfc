// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrStopped is returned when work is submitted after Stop.
var ErrStopped = errors.New("scheduler stopped")

// Scheduler runs work inline, deferred or periodically.
type Scheduler struct {
	queue   *Queue
	runner  *Runner
	stopped atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type options struct {
	maxConcurrent int
	maxHistory    int
	maxQueued     int
	poll          time.Duration
	onFinish      func(Notification)
}

// Option configures a Scheduler.
type Option func(*options)

// WithMaxConcurrent bounds how many deferred tasks run at once.
func WithMaxConcurrent(n int) Option {
	return func(o *options) { o.maxConcurrent = n }
}

// WithMaxHistory bounds how many finished tasks are kept.
func WithMaxHistory(n int) Option {
	return func(o *options) { o.maxHistory = n }
}

// WithMaxQueued bounds how many tasks may wait to run.
func WithMaxQueued(n int) Option {
	return func(o *options) { o.maxQueued = n }
}

// WithOnFinish sets a callback run each time a deferred task finishes,
// fails or is canceled while running.
func WithOnFinish(fn func(Notification)) Option {
	return func(o *options) { o.onFinish = fn }
}

// WithPollInterval sets how often the runner checks the queue.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.poll = d }
}

// New creates a scheduler. Call Start before submitting deferred work.
func New(opts ...Option) *Scheduler {
	o := options{maxConcurrent: 5, maxHistory: 100}
	for _, opt := range opts {
		opt(&o)
	}

	q := NewQueue(o.maxHistory, o.maxQueued)
	if o.onFinish != nil {
		q.OnFinish(o.onFinish)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		queue:  q,
		runner: NewRunner(q, o.maxConcurrent, o.poll),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins executing deferred tasks.
func (s *Scheduler) Start() {
	s.runner.Start()
}

// Stop cancels periodic jobs, stops accepting work and waits for running
// tasks. Queued tasks that never started stay queued.
func (s *Scheduler) Stop() {
	s.stopped.Store(true)
	s.cancel()
	s.wg.Wait()
	s.runner.Stop()
}

// RunNow runs fn on the calling goroutine.
func (s *Scheduler) RunNow(fn func()) {
	fn()
}

// RunLater queues fn and returns the task ID without waiting for it.
func (s *Scheduler) RunLater(description string, fn func(ctx context.Context) error) (string, error) {
	if s.stopped.Load() {
		return "", ErrStopped
	}
	task := NewTask(description, fn)
	if err := s.queue.Add(task); err != nil {
		return "", err
	}
	s.runner.Wake()
	return task.ID, nil
}

// Every calls fn each interval until ctx is done or the scheduler stops.
func (s *Scheduler) Every(ctx context.Context, interval time.Duration, fn func()) error {
	if s.stopped.Load() {
		return ErrStopped
	}
	if interval <= 0 {
		return errors.New("interval must be positive")
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return nil
}

// Task returns a snapshot of the task with id, or nil.
func (s *Scheduler) Task(id string) *Task {
	return s.queue.Get(id)
}

// Tasks returns snapshots of all tracked tasks.
func (s *Scheduler) Tasks() []*Task {
	return s.queue.All()
}

// Cancel cancels a queued or running task.
func (s *Scheduler) Cancel(id string) bool {
	return s.queue.Cancel(id)
}

// Running returns how many deferred tasks are executing now.
func (s *Scheduler) Running() int {
	return s.queue.RunningCount()
}

// Summary returns task counts per status.
func (s *Scheduler) Summary() string {
	return s.queue.Summary()
}
