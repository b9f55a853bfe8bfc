// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package executor

import (
	"context"

	"github.com/google/uuid"

	"github.com/jeranaias/cmdtree/internal/logging"
)

// Scheduler runs work for async handlers.
type Scheduler interface {
	// RunNow runs fn on the caller's goroutine.
	RunNow(fn func())

	// RunLater queues fn and returns its task ID without waiting.
	RunLater(description string, fn func(ctx context.Context) error) (string, error)
}

// InlineScheduler runs everything immediately on the caller's goroutine.
// It is the default when no scheduler is configured.
type InlineScheduler struct{}

// RunNow calls fn.
func (InlineScheduler) RunNow(fn func()) {
	fn()
}

// RunLater calls fn before returning. Its error is logged, not returned.
func (InlineScheduler) RunLater(description string, fn func(ctx context.Context) error) (string, error) {
	id := uuid.New().String()
	if err := fn(context.Background()); err != nil {
		logging.Warning.Printf("INLINE_TASK_FAILED | task=%s desc=%q err=%v", id, description, err)
	}
	return id, nil
}
