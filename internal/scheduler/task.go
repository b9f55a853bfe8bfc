// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// TASK STATUS
// =============================================================================

// Status is the lifecycle state of a task.
type Status string

const (
	StatusQueued   Status = "Queued"
	StatusRunning  Status = "Running"
	StatusComplete Status = "Complete"
	StatusFailed   Status = "Failed"
	StatusCanceled Status = "Canceled"
)

func (s Status) String() string {
	return string(s)
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed || s == StatusCanceled
}

// canTransition allows Queued -> Running|Canceled and
// Running -> Complete|Failed|Canceled.
func canTransition(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusQueued:
		return to == StatusRunning || to == StatusCanceled
	case StatusRunning:
		return to.Terminal()
	default:
		return false
	}
}

// =============================================================================
// TASK
// =============================================================================

// Func is the work a task performs.
type Func func(ctx context.Context) error

// Task is one unit of deferred work.
type Task struct {
	ID          string
	Description string
	Status      Status
	Submitted   time.Time
	StartTime   time.Time
	EndTime     time.Time
	Error       string

	fn     Func
	cancel context.CancelFunc
	mu     sync.RWMutex
}

// NewTask creates a queued task with a fresh ID.
func NewTask(description string, fn Func) *Task {
	return &Task{
		ID:          uuid.New().String(),
		Description: description,
		Status:      StatusQueued,
		Submitted:   time.Now(),
		fn:          fn,
	}
}

// SetStatus moves the task to status, rejecting invalid transitions.
func (t *Task) SetStatus(status Status) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !canTransition(t.Status, status) {
		return fmt.Errorf("invalid status transition from %s to %s", t.Status, status)
	}
	t.Status = status
	switch {
	case status == StatusRunning && t.StartTime.IsZero():
		t.StartTime = time.Now()
	case status.Terminal() && t.EndTime.IsZero():
		t.EndTime = time.Now()
	}
	return nil
}

// GetStatus returns the current status.
func (t *Task) GetStatus() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Status
}

// fail records err and moves a running task to Failed.
func (t *Task) fail(err error) {
	t.mu.Lock()
	t.Error = err.Error()
	t.mu.Unlock()
	_ = t.SetStatus(StatusFailed)
}

func (t *Task) setCancel(cancel context.CancelFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancel = cancel
}

// Cancel stops a queued or running task. It returns false once the task has
// finished.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	if t.Status.Terminal() {
		t.mu.Unlock()
		return false
	}
	t.Status = StatusCanceled
	t.EndTime = time.Now()
	cancel := t.cancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return true
}

// Duration returns how long the task ran, or has been running.
func (t *Task) Duration() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	switch {
	case t.StartTime.IsZero():
		return 0
	case t.EndTime.IsZero():
		return time.Since(t.StartTime)
	default:
		return t.EndTime.Sub(t.StartTime)
	}
}

// Summary returns a one-line description of the task.
func (t *Task) Summary() string {
	s := fmt.Sprintf("[%s] %s - %s", t.ID[:8], t.Description, t.GetStatus())
	if d := t.Duration(); d > 0 {
		s += fmt.Sprintf(" (%.1fs)", d.Seconds())
	}
	return s
}

// Clone returns a snapshot safe to read without locks.
func (t *Task) Clone() *Task {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return &Task{
		ID:          t.ID,
		Description: t.Description,
		Status:      t.Status,
		Submitted:   t.Submitted,
		StartTime:   t.StartTime,
		EndTime:     t.EndTime,
		Error:       t.Error,
	}
}
