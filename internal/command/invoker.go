// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package command

// =============================================================================
// INVOKER
// =============================================================================

// Invoker is the actor issuing a command.
type Invoker interface {
	// ID returns a stable identity, or "" for console-equivalent invokers.
	ID() string

	// Name returns a display name.
	Name() string
}

// IsAnonymous reports whether inv has no stable identity.
func IsAnonymous(inv Invoker) bool {
	return inv == nil || inv.ID() == ""
}

// Actor is a plain Invoker value.
type Actor struct {
	id   string
	name string
}

// NewActor returns an identified invoker.
func NewActor(id, name string) Actor {
	return Actor{id: id, name: name}
}

// Console is the anonymous console invoker.
var Console = Actor{name: "CONSOLE"}

// ID returns the actor identity.
func (a Actor) ID() string { return a.id }

// Name returns the actor display name.
func (a Actor) Name() string { return a.name }

// =============================================================================
// HOST COLLABORATORS
// =============================================================================

// Capabilities answers permission checks. The engine only reads it.
type Capabilities interface {
	HasCapability(inv Invoker, capability string) bool
}

// CapabilityFunc adapts a function to Capabilities.
type CapabilityFunc func(inv Invoker, capability string) bool

// HasCapability calls f.
func (f CapabilityFunc) HasCapability(inv Invoker, capability string) bool {
	return f(inv, capability)
}

// Sink delivers text to an invoker. Text is passed through uninterpreted.
type Sink interface {
	Send(inv Invoker, text string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(inv Invoker, text string)

// Send calls f.
func (f SinkFunc) Send(inv Invoker, text string) {
	f(inv, text)
}
