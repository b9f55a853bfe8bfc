// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package argument

import (
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/jeranaias/cmdtree/internal/cmderr"
)

// Validator checks a converted value.
type Validator interface {
	Validate(param string, value any) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(param string, value any) error

// Validate calls f.
func (f ValidatorFunc) Validate(param string, value any) error {
	return f(param, value)
}

// =============================================================================
// BUILT-IN VALIDATORS
// =============================================================================

// Range requires a numeric value within [Min, Max].
type Range struct {
	Min, Max float64
}

// InRange returns a Range validator.
func InRange(min, max float64) Range {
	return Range{Min: min, Max: max}
}

func (r Range) Validate(param string, value any) error {
	var f float64
	switch v := value.(type) {
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case float64:
		f = v
	case time.Duration:
		f = v.Seconds()
	default:
		return nil
	}

	if f < r.Min {
		return &cmderr.ValidationError{
			Param:   param,
			Message: fmt.Sprintf("%s must be at least %s.", param, formatNumber(r.Min)),
		}
	}
	if f > r.Max {
		return &cmderr.ValidationError{
			Param:   param,
			Message: fmt.Sprintf("%s must be at most %s.", param, formatNumber(r.Max)),
		}
	}
	return nil
}

// Length requires a string value of Min to Max runes. Max 0 means no upper
// bound.
type Length struct {
	Min, Max int
}

// LengthBetween returns a Length validator.
func LengthBetween(min, max int) Length {
	return Length{Min: min, Max: max}
}

func (l Length) Validate(param string, value any) error {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	n := utf8.RuneCountInString(s)
	if n < l.Min {
		return &cmderr.ValidationError{
			Param:   param,
			Message: fmt.Sprintf("%s must be at least %d characters.", param, l.Min),
		}
	}
	if l.Max > 0 && n > l.Max {
		return &cmderr.ValidationError{
			Param:   param,
			Message: fmt.Sprintf("%s must be at most %d characters.", param, l.Max),
		}
	}
	return nil
}

// Pattern requires a string value matching a regular expression.
type Pattern struct {
	re   *regexp.Regexp
	hint string
}

// Matches returns a Pattern validator. hint describes the expected format in
// the error message. It panics if expr does not compile.
func Matches(expr, hint string) Pattern {
	return Pattern{re: regexp.MustCompile(expr), hint: hint}
}

func (p Pattern) Validate(param string, value any) error {
	s, ok := value.(string)
	if !ok || p.re.MatchString(s) {
		return nil
	}
	msg := fmt.Sprintf("%s has an invalid format.", param)
	if p.hint != "" {
		msg = fmt.Sprintf("%s must be %s.", param, p.hint)
	}
	return &cmderr.ValidationError{Param: param, Message: msg}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
