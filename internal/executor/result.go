// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package executor

import (
	"context"
	"time"

	"github.com/jeranaias/cmdtree/internal/command"
)

// Outcome is the terminal state of one invocation.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeDispatched     Outcome = "dispatched"
	OutcomeDenied         Outcome = "denied"
	OutcomeHandledUnknown Outcome = "handled_unknown"
	OutcomeNotFound       Outcome = "not_found"
	OutcomeOnCooldown     Outcome = "on_cooldown"
	OutcomeRateLimited    Outcome = "rate_limited"
	OutcomeArgumentError  Outcome = "argument_error"
	OutcomeInternalError  Outcome = "internal_error"
)

// Outcomes lists every outcome in a stable order.
var Outcomes = []Outcome{
	OutcomeSuccess,
	OutcomeDispatched,
	OutcomeDenied,
	OutcomeHandledUnknown,
	OutcomeNotFound,
	OutcomeOnCooldown,
	OutcomeRateLimited,
	OutcomeArgumentError,
	OutcomeInternalError,
}

func (o Outcome) String() string {
	return string(o)
}

// Result describes how an invocation ended.
type Result struct {
	Outcome Outcome

	// Node is the deepest resolved definition, nil when resolution never ran.
	Node *command.Definition

	// Remaining is the cooldown left for OutcomeOnCooldown.
	Remaining time.Duration

	// Err is the underlying cause for every outcome but success.
	Err error

	// TaskID identifies the scheduled task for OutcomeDispatched.
	TaskID string
}

// Record is one executed invocation as seen by a Recorder.
type Record struct {
	InvokerID   string
	InvokerName string
	Path        string
	Tokens      []string
	Outcome     Outcome
	Error       string
	TaskID      string
	Duration    time.Duration
	Time        time.Time
}

// Recorder persists execution records. Record errors are logged and never
// affect the invocation.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}
