// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scheduler

import (
	"fmt"
	"sync"
	"time"
)

// =============================================================================
// QUEUE
// =============================================================================

// Notification reports a task reaching a terminal state.
type Notification struct {
	TaskID      string
	Description string
	Status      Status
	Error       string
	Duration    time.Duration
}

// Queue holds queued, running and recently finished tasks.
type Queue struct {
	tasks      []*Task
	running    map[string]*Task
	maxHistory int
	maxQueued  int
	onFinish   func(Notification)
	mu         sync.RWMutex
}

// NewQueue creates a queue keeping at most maxHistory finished tasks and
// accepting at most maxQueued waiting tasks. Zero means unlimited.
func NewQueue(maxHistory, maxQueued int) *Queue {
	return &Queue{
		running:    make(map[string]*Task),
		maxHistory: maxHistory,
		maxQueued:  maxQueued,
	}
}

// OnFinish sets a callback run after each task reaches a terminal state. It
// runs on the runner goroutine that executed the task, outside the queue lock.
func (q *Queue) OnFinish(fn func(Notification)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onFinish = fn
}

// Add appends a queued task.
func (q *Queue) Add(task *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.maxQueued > 0 {
		queued := 0
		for _, t := range q.tasks {
			if t.GetStatus() == StatusQueued {
				queued++
			}
		}
		if queued >= q.maxQueued {
			return fmt.Errorf("queue is full: %d queued tasks (max: %d)", queued, q.maxQueued)
		}
	}
	q.tasks = append(q.tasks, task)
	return nil
}

// next claims the oldest queued task by marking it running, or returns nil.
func (q *Queue) next() *Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, t := range q.tasks {
		if t.GetStatus() != StatusQueued {
			continue
		}
		if err := t.SetStatus(StatusRunning); err != nil {
			continue
		}
		q.running[t.ID] = t
		return t
	}
	return nil
}

// finish records the outcome of a claimed task and reports it to the
// OnFinish callback.
func (q *Queue) finish(task *Task, err error) {
	q.mu.Lock()
	delete(q.running, task.ID)
	switch {
	case task.GetStatus() == StatusCanceled:
	case err != nil:
		task.fail(err)
	default:
		_ = task.SetStatus(StatusComplete)
	}
	q.trimLocked()
	hook := q.onFinish
	q.mu.Unlock()

	snap := task.Clone()
	n := Notification{
		TaskID:      snap.ID,
		Description: snap.Description,
		Status:      snap.Status,
		Error:       snap.Error,
		Duration:    task.Duration(),
	}
	if hook != nil {
		hook(n)
	}
}

// Get returns a snapshot of the task with id, or nil.
func (q *Queue) Get(id string) *Task {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for _, t := range q.tasks {
		if t.ID == id {
			return t.Clone()
		}
	}
	return nil
}

// Cancel cancels a queued or running task by ID.
func (q *Queue) Cancel(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, t := range q.tasks {
		if t.ID == id {
			return t.Cancel()
		}
	}
	return false
}

// All returns snapshots of every tracked task in submission order.
func (q *Queue) All() []*Task {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]*Task, len(q.tasks))
	for i, t := range q.tasks {
		out[i] = t.Clone()
	}
	return out
}

// RunningCount returns the number of running tasks.
func (q *Queue) RunningCount() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.running)
}

// trimLocked drops the oldest finished tasks beyond maxHistory.
func (q *Queue) trimLocked() {
	if q.maxHistory <= 0 {
		return
	}

	finished := 0
	for _, t := range q.tasks {
		if t.GetStatus().Terminal() {
			finished++
		}
	}
	excess := finished - q.maxHistory
	if excess <= 0 {
		return
	}

	kept := q.tasks[:0]
	for _, t := range q.tasks {
		if excess > 0 && t.GetStatus().Terminal() {
			excess--
			continue
		}
		kept = append(kept, t)
	}
	q.tasks = kept
}

// Summary returns counts per status.
func (q *Queue) Summary() string {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var queued, completed, failed, canceled int
	for _, t := range q.tasks {
		switch t.GetStatus() {
		case StatusQueued:
			queued++
		case StatusComplete:
			completed++
		case StatusFailed:
			failed++
		case StatusCanceled:
			canceled++
		}
	}
	return fmt.Sprintf("Running: %d | Queued: %d | Completed: %d | Failed: %d | Canceled: %d",
		len(q.running), queued, completed, failed, canceled)
}
