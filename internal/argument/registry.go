// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package argument

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/cmdtree/internal/cmderr"
	"github.com/jeranaias/cmdtree/internal/util"
)

// Converter turns a token into a value of type t. Returning a
// *cmderr.ResolutionError controls the message shown to the invoker; any
// other error is shown using its Error text.
type Converter func(t *Type, token string) (any, error)

// =============================================================================
// REGISTRY
// =============================================================================

// Registry maps argument types to converters.
// Register converters before the registry is used for resolution.
type Registry struct {
	converters map[*Type]Converter
	mu         sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		converters: make(map[*Type]Converter),
	}
}

// NewDefaultRegistry creates a registry with converters for the built-in
// types.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(String, convertString)
	r.Register(Int, convertInt)
	r.Register(Float, convertFloat)
	r.Register(Bool, convertBool)
	r.Register(Duration, convertDuration)
	r.Register(Enum, convertEnum)
	return r
}

// Register sets the converter for t, replacing any previous one.
func (r *Registry) Register(t *Type, c Converter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converters[t] = c
}

// Lookup returns the converter for t or its nearest ancestor.
func (r *Registry) Lookup(t *Type) (Converter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for cur := t; cur != nil; cur = cur.parent {
		if c, ok := r.converters[cur]; ok {
			return c, true
		}
	}
	return nil, false
}

// Resolve checks token against the parameter's restricted values, converts it
// and runs the parameter's validators.
func (r *Registry) Resolve(p Param, token string) (any, error) {
	if len(p.Values) > 0 {
		canonical, ok := matchValue(p.Values, token)
		if !ok {
			return nil, &cmderr.InvalidValueError{
				Param:   p.Name,
				Value:   token,
				Allowed: append([]string(nil), p.Values...),
			}
		}
		token = canonical
	}

	t := p.ResolvedType()
	convert, ok := r.Lookup(t)
	if !ok {
		return nil, &cmderr.UnsupportedArgumentTypeError{Param: p.Name, Type: t.Name()}
	}

	value, err := convert(t, token)
	if err != nil {
		var resErr *cmderr.ResolutionError
		if errors.As(err, &resErr) {
			if resErr.Param == "" {
				resErr.Param = p.Name
			}
			return nil, resErr
		}
		return nil, &cmderr.ResolutionError{Param: p.Name, Message: err.Error(), Err: err}
	}

	for _, v := range p.Validators {
		if err := v.Validate(p.Name, value); err != nil {
			return nil, err
		}
	}
	return value, nil
}

func matchValue(values []string, token string) (string, bool) {
	for _, v := range values {
		if util.EqualFold(v, token) {
			return v, true
		}
	}
	return "", false
}

// =============================================================================
// BUILT-IN CONVERTERS
// =============================================================================

func convertString(_ *Type, token string) (any, error) {
	return token, nil
}

func convertInt(_ *Type, token string) (any, error) {
	n, err := strconv.Atoi(token)
	if err != nil {
		return nil, &cmderr.ResolutionError{
			Message: fmt.Sprintf("'%s' is not a whole number.", token),
			Err:     err,
		}
	}
	return n, nil
}

func convertFloat(_ *Type, token string) (any, error) {
	f, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return nil, &cmderr.ResolutionError{
			Message: fmt.Sprintf("'%s' is not a number.", token),
			Err:     err,
		}
	}
	return f, nil
}

func convertBool(_ *Type, token string) (any, error) {
	switch strings.ToLower(token) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return nil, &cmderr.ResolutionError{
		Message: fmt.Sprintf("'%s' is not true or false.", token),
	}
}

func convertDuration(_ *Type, token string) (any, error) {
	d, err := time.ParseDuration(token)
	if err != nil {
		return nil, &cmderr.ResolutionError{
			Message: fmt.Sprintf("'%s' is not a duration (for example 30s or 5m).", token),
			Err:     err,
		}
	}
	return d, nil
}

func convertEnum(t *Type, token string) (any, error) {
	members := t.Members()
	if member, ok := matchValue(members, token); ok {
		return member, nil
	}
	return nil, &cmderr.ResolutionError{
		Message: fmt.Sprintf("'%s' is not a valid %s. Expected one of: %s.", token, t.Name(), strings.Join(members, ", ")),
	}
}
