// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package command

import (
	"context"
	"strings"
	"time"

	"github.com/jeranaias/cmdtree/internal/argument"
	"github.com/jeranaias/cmdtree/internal/cmderr"
)

// =============================================================================
// HANDLER METADATA
// =============================================================================

// InvokerConstraint declares whether a handler receives the invoker and which
// invokers it accepts.
type InvokerConstraint int

const (
	// InvokerNone handlers do not receive the invoker.
	InvokerNone InvokerConstraint = iota

	// InvokerAny handlers receive any invoker.
	InvokerAny

	// InvokerIdentified handlers only accept invokers with an identity.
	InvokerIdentified

	// InvokerAnonymous handlers only accept console-equivalent invokers.
	InvokerAnonymous
)

func (c InvokerConstraint) String() string {
	switch c {
	case InvokerNone:
		return "none"
	case InvokerAny:
		return "any"
	case InvokerIdentified:
		return "identified"
	case InvokerAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Accepts reports whether inv satisfies the constraint.
func (c InvokerConstraint) Accepts(inv Invoker) bool {
	switch c {
	case InvokerIdentified:
		return !IsAnonymous(inv)
	case InvokerAnonymous:
		return IsAnonymous(inv)
	default:
		return true
	}
}

// Scope selects how a cooldown is keyed.
type Scope int

const (
	// ScopeInvoker keys the cooldown by invoker identity and command path.
	ScopeInvoker Scope = iota

	// ScopeGlobal shares one cooldown across all invokers.
	ScopeGlobal
)

func (s Scope) String() string {
	if s == ScopeGlobal {
		return "global"
	}
	return "invoker"
}

// CooldownPolicy throttles repeat invocations of a handler.
type CooldownPolicy struct {
	Duration time.Duration
	Scope    Scope

	// Bypass overrides the executor's bypass capability for this handler.
	Bypass string
}

// =============================================================================
// HANDLER
// =============================================================================

// Func is a handler callable that does not receive the invoker.
type Func func(ctx context.Context, args Args) error

// InvokerFunc is a handler callable that receives the invoker first.
type InvokerFunc func(ctx context.Context, inv Invoker, args Args) error

// Handler binds a callable to its declared parameters and dispatch policy.
// Handlers are immutable; With returns a modified copy.
type Handler struct {
	fn         InvokerFunc
	constraint InvokerConstraint
	params     []argument.Param
	cooldown   *CooldownPolicy
	async      bool
	usage      string
	name       string
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithParams declares the handler parameters in order.
func WithParams(params ...argument.Param) HandlerOption {
	return func(h *Handler) {
		h.params = append([]argument.Param(nil), params...)
	}
}

// WithCooldown sets a cooldown policy. A non-positive duration removes it.
func WithCooldown(d time.Duration, scope Scope) HandlerOption {
	return func(h *Handler) {
		if d <= 0 {
			h.cooldown = nil
			return
		}
		bypass := ""
		if h.cooldown != nil {
			bypass = h.cooldown.Bypass
		}
		h.cooldown = &CooldownPolicy{Duration: d, Scope: scope, Bypass: bypass}
	}
}

// WithCooldownBypass sets the capability that skips this handler's cooldown.
// It has no effect without a cooldown policy.
func WithCooldownBypass(capability string) HandlerOption {
	return func(h *Handler) {
		if h.cooldown != nil {
			h.cooldown.Bypass = capability
		}
	}
}

// WithAsync marks the handler for dispatch on the scheduler.
func WithAsync(async bool) HandlerOption {
	return func(h *Handler) {
		h.async = async
	}
}

// WithUsage overrides the generated parameter usage.
func WithUsage(usage string) HandlerOption {
	return func(h *Handler) {
		h.usage = usage
	}
}

// WithName names the handler in logs and task descriptions.
func WithName(name string) HandlerOption {
	return func(h *Handler) {
		h.name = name
	}
}

// NewHandler creates a handler whose callable does not receive the invoker.
func NewHandler(fn Func, opts ...HandlerOption) *Handler {
	h := &Handler{
		constraint: InvokerNone,
		fn: func(ctx context.Context, _ Invoker, args Args) error {
			return fn(ctx, args)
		},
	}
	return h.apply(opts)
}

// NewInvokerHandler creates a handler whose callable receives the invoker.
// InvokerNone is treated as InvokerAny.
func NewInvokerHandler(constraint InvokerConstraint, fn InvokerFunc, opts ...HandlerOption) *Handler {
	if constraint == InvokerNone {
		constraint = InvokerAny
	}
	h := &Handler{constraint: constraint, fn: fn}
	return h.apply(opts)
}

func (h *Handler) apply(opts []HandlerOption) *Handler {
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// With returns a copy of h with opts applied.
func (h *Handler) With(opts ...HandlerOption) *Handler {
	clone := *h
	clone.params = append([]argument.Param(nil), h.params...)
	if h.cooldown != nil {
		policy := *h.cooldown
		clone.cooldown = &policy
	}
	return clone.apply(opts)
}

// Params returns a copy of the declared parameters.
func (h *Handler) Params() []argument.Param {
	return append([]argument.Param(nil), h.params...)
}

// Constraint returns the invoker constraint.
func (h *Handler) Constraint() InvokerConstraint {
	return h.constraint
}

// Cooldown returns the cooldown policy, if any.
func (h *Handler) Cooldown() (CooldownPolicy, bool) {
	if h.cooldown == nil {
		return CooldownPolicy{}, false
	}
	return *h.cooldown, true
}

// IsAsync reports whether the handler runs on the scheduler.
func (h *Handler) IsAsync() bool {
	return h.async
}

// Name returns the handler name, or "" when unnamed.
func (h *Handler) Name() string {
	return h.name
}

// Usage returns the parameter part of a usage line.
func (h *Handler) Usage() string {
	if h.usage != "" {
		return h.usage
	}
	parts := make([]string, 0, len(h.params))
	for _, p := range h.params {
		parts = append(parts, p.Usage())
	}
	return strings.Join(parts, " ")
}

// =============================================================================
// ARGUMENT PIPELINE
// =============================================================================

// Bind resolves tokens against the declared parameters.
//
// Each parameter takes one token. When tokens run out, the default is used,
// an optional parameter becomes nil, and a required one fails with
// NotEnoughArgumentsError. A trailing greedy String parameter joins all
// remaining tokens with spaces. Tokens beyond the last parameter are ignored.
func (h *Handler) Bind(tokens []string, reg *argument.Registry) (Args, error) {
	values := make([]any, len(h.params))
	rest := tokens

	for i, p := range h.params {
		var token string
		if len(rest) == 0 {
			switch {
			case p.Default != "":
				token = p.Default
			case p.Optional:
				continue
			default:
				return Args{}, &cmderr.NotEnoughArgumentsError{
					Required: h.requiredCount(),
					Supplied: len(tokens),
				}
			}
		} else {
			token, rest = rest[0], rest[1:]
			if i == len(h.params)-1 && p.Greedy() && len(rest) > 0 {
				token = strings.Join(append([]string{token}, rest...), " ")
				rest = nil
			}
		}

		value, err := reg.Resolve(p, token)
		if err != nil {
			return Args{}, err
		}
		values[i] = value
	}

	return NewArgs(h.params, values), nil
}

func (h *Handler) requiredCount() int {
	n := 0
	for _, p := range h.params {
		if p.Required() {
			n++
		}
	}
	return n
}

// Invoke checks the invoker constraint, binds tokens and calls the handler.
func (h *Handler) Invoke(ctx context.Context, inv Invoker, tokens []string, reg *argument.Registry) error {
	if !h.constraint.Accepts(inv) {
		return &cmderr.InvokerMismatchError{Required: h.constraint.String()}
	}

	args, err := h.Bind(tokens, reg)
	if err != nil {
		return err
	}
	return h.Call(ctx, inv, args)
}

// Call runs the callable with already resolved arguments. The invoker is only
// passed through when the handler declares a constraint.
func (h *Handler) Call(ctx context.Context, inv Invoker, args Args) error {
	if h.constraint == InvokerNone {
		inv = nil
	}
	return h.fn(ctx, inv, args)
}
