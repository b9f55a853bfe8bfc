// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/cmdtree/internal/logging"
)

// =============================================================================
// RUNNER
// =============================================================================

// Runner executes queued tasks with bounded concurrency.
type Runner struct {
	queue     *Queue
	semaphore chan struct{}
	poll      time.Duration
	wake      chan struct{}
	stop      chan struct{}
	stopped   atomic.Bool
	started   atomic.Bool
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewRunner creates a runner for queue. maxConcurrent <= 0 means 5.
func NewRunner(queue *Queue, maxConcurrent int, poll time.Duration) *Runner {
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	return &Runner{
		queue:     queue,
		semaphore: make(chan struct{}, maxConcurrent),
		poll:      poll,
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
	}
}

// Start begins processing. Calling it more than once has no effect.
func (r *Runner) Start() {
	if r.started.Swap(true) {
		return
	}
	r.wg.Add(1)
	go r.loop()
}

// Stop stops picking up tasks and waits for running ones to finish.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		r.stopped.Store(true)
		close(r.stop)
	})
	r.wg.Wait()
}

// Wake prompts the runner to check the queue before the next poll.
func (r *Runner) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Runner) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
		case <-r.wake:
		}

		for !r.stopped.Load() {
			select {
			case r.semaphore <- struct{}{}:
			case <-r.stop:
				return
			}

			task := r.queue.next()
			if task == nil {
				<-r.semaphore
				break
			}
			r.wg.Add(1)
			go r.execute(task)
		}
	}
}

func (r *Runner) execute(task *Task) {
	defer r.wg.Done()
	defer func() { <-r.semaphore }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	task.setCancel(cancel)

	err := run(ctx, task)
	r.queue.finish(task, err)
}

// run calls the task function, turning a panic into an error.
func run(ctx context.Context, task *Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			logging.Error.Printf("TASK_PANIC | task=%s desc=%q panic=%v\n%s",
				task.ID, task.Description, p, debug.Stack())
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	return task.fn(ctx)
}
