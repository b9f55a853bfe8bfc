// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package argument

// =============================================================================
// TYPE CHAIN
// =============================================================================

// Type identifies the kind of value a parameter accepts.
// Types are compared by pointer identity.
type Type struct {
	name    string
	parent  *Type
	members []string
}

// Built-in types.
var (
	// Any is the root of every type chain.
	Any = &Type{name: "any"}

	// String is the generic text type. A trailing String parameter captures
	// all remaining tokens unless marked Single.
	String = &Type{name: "string", parent: Any}

	Int      = &Type{name: "int", parent: Any}
	Float    = &Type{name: "float", parent: Any}
	Bool     = &Type{name: "bool", parent: Any}
	Duration = &Type{name: "duration", parent: Any}

	// Enum is the abstract parent of all enum types.
	Enum = &Type{name: "enum", parent: Any}
)

// NewType creates a type descending from parent. A nil parent means Any.
func NewType(name string, parent *Type) *Type {
	if parent == nil {
		parent = Any
	}
	return &Type{name: name, parent: parent}
}

// NewEnum creates an enum type with the given members.
func NewEnum(name string, members ...string) *Type {
	return &Type{
		name:    name,
		parent:  Enum,
		members: append([]string(nil), members...),
	}
}

// Name returns the type name.
func (t *Type) Name() string {
	if t == nil {
		return "<nil>"
	}
	return t.name
}

// Parent returns the parent type, or nil for Any.
func (t *Type) Parent() *Type {
	return t.parent
}

// Members returns a copy of the enum members, or nil for non-enum types.
func (t *Type) Members() []string {
	if len(t.members) == 0 {
		return nil
	}
	return append([]string(nil), t.members...)
}

// Is reports whether t is other or descends from it.
func (t *Type) Is(other *Type) bool {
	for cur := t; cur != nil; cur = cur.parent {
		if cur == other {
			return true
		}
	}
	return false
}

// Ancestors returns t followed by each ancestor up to and including Any.
func (t *Type) Ancestors() []*Type {
	var chain []*Type
	for cur := t; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	return chain
}

func (t *Type) String() string {
	return t.Name()
}
