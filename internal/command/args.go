// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package command

import (
	"fmt"
	"time"

	"github.com/jeranaias/cmdtree/internal/argument"
)

// Args holds the resolved values of a handler's parameters, in declaration
// order. A missing optional parameter is nil.
type Args struct {
	params []argument.Param
	values []any
}

// NewArgs pairs parameters with resolved values.
func NewArgs(params []argument.Param, values []any) Args {
	return Args{params: params, values: values}
}

// Len returns the number of parameters.
func (a Args) Len() int {
	return len(a.values)
}

// Value returns the i'th value, or nil when out of range.
func (a Args) Value(i int) any {
	if i < 0 || i >= len(a.values) {
		return nil
	}
	return a.values[i]
}

// Has reports whether the i'th value is present.
func (a Args) Has(i int) bool {
	return a.Value(i) != nil
}

// Named returns the value of the parameter with the given name.
func (a Args) Named(name string) any {
	for i, p := range a.params {
		if p.Name == name {
			return a.Value(i)
		}
	}
	return nil
}

// String returns the i'th value formatted as a string, or "" when absent.
func (a Args) String(i int) string {
	switch v := a.Value(i).(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the i'th value as an int, or 0.
func (a Args) Int(i int) int {
	n, _ := a.Value(i).(int)
	return n
}

// Float returns the i'th value as a float64, or 0.
func (a Args) Float(i int) float64 {
	switch v := a.Value(i).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// Bool returns the i'th value as a bool, or false.
func (a Args) Bool(i int) bool {
	b, _ := a.Value(i).(bool)
	return b
}

// Duration returns the i'th value as a time.Duration, or 0.
func (a Args) Duration(i int) time.Duration {
	d, _ := a.Value(i).(time.Duration)
	return d
}
