// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package argument

import (
	"strings"
)

// Param describes one declared handler parameter.
type Param struct {
	// Name is the display name used in usage lines and errors.
	Name string

	// Type selects the converter. Nil means String.
	Type *Type

	// Optional parameters resolve to nil when no token is left.
	Optional bool

	// Default is substituted when no token is left. Empty means no default.
	Default string

	// Single disables greedy capture for a trailing String parameter.
	Single bool

	// Values restricts accepted tokens (case-insensitive).
	Values []string

	// Validators run after conversion, in order.
	Validators []Validator
}

// ResolvedType returns the parameter type, defaulting to String.
func (p Param) ResolvedType() *Type {
	if p.Type == nil {
		return String
	}
	return p.Type
}

// Required reports whether the parameter fails when no token is left.
func (p Param) Required() bool {
	return !p.Optional && p.Default == ""
}

// Greedy reports whether the parameter captures all remaining tokens when it
// is the last one declared.
func (p Param) Greedy() bool {
	return p.ResolvedType() == String && !p.Single
}

// Usage renders the parameter for a usage line: <name>, [name] or
// [name=default].
func (p Param) Usage() string {
	switch {
	case p.Default != "":
		return "[" + p.Name + "=" + p.Default + "]"
	case p.Optional:
		return "[" + p.Name + "]"
	case len(p.Values) > 0 && len(p.Values) <= 4:
		return "<" + strings.Join(p.Values, "|") + ">"
	default:
		return "<" + p.Name + ">"
	}
}
