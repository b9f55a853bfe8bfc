// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cmderr

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// GATE ERRORS
// =============================================================================

// PermissionDeniedError is returned when an invoker lacks a capability
// required by a command node.
type PermissionDeniedError struct {
	Path       string
	Capability string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied for %s: missing %s", e.Path, e.Capability)
}

// OnCooldownError is returned when a command is still cooling down.
type OnCooldownError struct {
	Path      string
	Remaining int // whole seconds, rounded up
}

func (e *OnCooldownError) Error() string {
	return fmt.Sprintf("%s is on cooldown for %ds", e.Path, e.Remaining)
}

// RateLimitedError is returned when an invoker exceeds the dispatch rate.
type RateLimitedError struct {
	InvokerID string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded for invoker %q", e.InvokerID)
}

// CommandNotFoundError is returned when no handler could be found for the
// resolved node.
type CommandNotFoundError struct {
	Path       string
	Token      string
	Suggestion string
}

func (e *CommandNotFoundError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("no handler for %s", e.Path)
	}
	return fmt.Sprintf("unknown subcommand %q under %s", e.Token, e.Path)
}

// =============================================================================
// ARGUMENT ERRORS
// =============================================================================

// NotEnoughArgumentsError is returned when a required parameter has no token.
type NotEnoughArgumentsError struct {
	Required int
	Supplied int
}

func (e *NotEnoughArgumentsError) Error() string {
	return fmt.Sprintf("not enough arguments: %d required, %d supplied", e.Required, e.Supplied)
}

// InvalidValueError is returned when a token is outside a parameter's
// restricted value set.
type InvalidValueError struct {
	Param   string
	Value   string
	Allowed []string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %q for %s (allowed: %s)", e.Value, e.Param, strings.Join(e.Allowed, ", "))
}

// ResolutionError is a user-facing failure to convert a token.
// Message is shown to the invoker verbatim.
type ResolutionError struct {
	Param   string
	Message string
	Err     error
}

func (e *ResolutionError) Error() string {
	return e.Message
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// ValidationError is returned when a resolved value violates a constraint.
type ValidationError struct {
	Param   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// InvokerMismatchError is returned when a handler's invoker constraint is not
// satisfied, for example a command restricted to identified invokers run from
// the console.
type InvokerMismatchError struct {
	Required string
}

func (e *InvokerMismatchError) Error() string {
	return fmt.Sprintf("command requires a %s invoker", e.Required)
}

// =============================================================================
// CONFIGURATION ERRORS
// =============================================================================

// UnsupportedArgumentTypeError is returned when no converter is registered for
// a parameter's type or any of its ancestors. This is a programming error, not
// an invoker mistake.
type UnsupportedArgumentTypeError struct {
	Param string
	Type  string
}

func (e *UnsupportedArgumentTypeError) Error() string {
	return fmt.Sprintf("no argument converter registered for type %s (parameter %s)", e.Type, e.Param)
}

// =============================================================================
// HANDLER ERRORS
// =============================================================================

// UserError carries a message meant for the invoker.
type UserError struct {
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}

// User returns an error whose message is shown to the invoker verbatim.
func User(message string) error {
	return &UserError{Message: message}
}

// Userf is like User with fmt.Sprintf formatting.
func Userf(format string, args ...any) error {
	return &UserError{Message: fmt.Sprintf(format, args...)}
}

// =============================================================================
// HELPERS
// =============================================================================

// UserMessage returns the text to show the invoker when err carries a
// verbatim user-facing message.
func UserMessage(err error) (string, bool) {
	var resErr *ResolutionError
	if errors.As(err, &resErr) {
		return resErr.Message, true
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr.Message, true
	}
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.Message, true
	}
	return "", false
}

// IsConfigError reports whether err stems from a misconfigured command rather
// than invoker input.
func IsConfigError(err error) bool {
	var unsupported *UnsupportedArgumentTypeError
	return errors.As(err, &unsupported)
}
