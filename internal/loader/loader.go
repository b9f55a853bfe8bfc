// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/cmdtree/internal/command"
	"github.com/jeranaias/cmdtree/internal/util"
)

// Extension is the file suffix LoadDir picks up.
const Extension = ".toml"

// =============================================================================
// FILE FORMAT
// =============================================================================

// File is the top level of a definition file.
type File struct {
	Commands []Node `toml:"command"`
}

// Node is one command as written in a definition file.
type Node struct {
	Name          string   `toml:"name"`
	Aliases       []string `toml:"aliases"`
	Description   string   `toml:"description"`
	Permissions   []string `toml:"permissions"`
	DeniedMessage string   `toml:"denied_message"`
	Private       bool     `toml:"private"`
	Completion    string   `toml:"completion"`

	// Permission entries carry their own denial message and are checked
	// after the bare Permissions strings.
	Permission []PermissionEntry `toml:"permission"`

	Handler        string `toml:"handler"`
	Unknown        string `toml:"unknown"`
	Cooldown       string `toml:"cooldown"`
	CooldownScope  string `toml:"cooldown_scope"`
	CooldownBypass string `toml:"cooldown_bypass"`
	Async          bool   `toml:"async"`

	Children []Node `toml:"children"`
}

// PermissionEntry is a [[command.permission]] table.
type PermissionEntry struct {
	Capability string `toml:"capability"`
	Message    string `toml:"message"`
}

// =============================================================================
// ERRORS
// =============================================================================

// DefinitionError reports a problem at one command path in a file.
type DefinitionError struct {
	File string
	Path string
	Err  error
}

func (e *DefinitionError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		b.WriteString(": ")
	}
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *DefinitionError) Unwrap() error {
	return e.Err
}

var (
	// ErrUnknownHandler is wrapped when a handler name has no binding.
	ErrUnknownHandler = errors.New("unknown handler")

	// ErrInvalidCooldown is wrapped for malformed cooldown settings.
	ErrInvalidCooldown = errors.New("invalid cooldown")

	// ErrDuplicateRoot is wrapped when two files declare the same root.
	ErrDuplicateRoot = errors.New("duplicate root command")
)

// =============================================================================
// PARSING
// =============================================================================

// Parse builds the root definitions declared in data.
func Parse(data []byte, handlers *Handlers) ([]*command.Definition, error) {
	return parse("", data, handlers)
}

// LoadFile builds the root definitions declared in the file at path.
func LoadFile(path string, handlers *Handlers) ([]*command.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions: %w", err)
	}
	return parse(path, data, handlers)
}

// LoadDir loads every *.toml file in dir in name order. Subdirectories are not
// descended into. A missing directory yields no definitions.
func LoadDir(dir string, handlers *Handlers) ([]*command.Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read definitions directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), Extension) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)

	var roots []*command.Definition
	seen := make(map[string]string) // folded root name -> file
	for _, path := range files {
		defs, err := LoadFile(path, handlers)
		if err != nil {
			return nil, err
		}
		for _, d := range defs {
			key := util.Fold(d.Name())
			if prev, dup := seen[key]; dup {
				return nil, &DefinitionError{
					File: path,
					Path: d.Name(),
					Err:  fmt.Errorf("%w (also declared in %s)", ErrDuplicateRoot, prev),
				}
			}
			seen[key] = path
			roots = append(roots, d)
		}
	}
	return roots, nil
}

func parse(file string, data []byte, handlers *Handlers) ([]*command.Definition, error) {
	var f File
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, &DefinitionError{File: file, Err: err}
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, &DefinitionError{File: file, Err: fmt.Errorf("unknown keys: %v", undecoded)}
	}
	if handlers == nil {
		handlers = NewHandlers()
	}

	roots := make([]*command.Definition, 0, len(f.Commands))
	for _, n := range f.Commands {
		b, err := n.builder(file, "", handlers)
		if err != nil {
			return nil, err
		}
		root, err := b.Build()
		if err != nil {
			return nil, &DefinitionError{File: file, Path: n.Name, Err: err}
		}
		roots = append(roots, root)
	}
	return roots, nil
}

// builder converts n and its children into command builder calls.
func (n Node) builder(file, parent string, handlers *Handlers) (*command.Builder, error) {
	path := n.Name
	if parent != "" {
		path = parent + " " + n.Name
	}
	fail := func(err error) error {
		return &DefinitionError{File: file, Path: path, Err: err}
	}

	if strings.TrimSpace(n.Name) == "" {
		return nil, fail(command.ErrNoLabels)
	}

	b := command.NewBuilder(n.Name, n.Aliases...).
		Description(n.Description).
		DeniedMessage(n.DeniedMessage).
		Private(n.Private).
		Completion(n.Completion)
	for _, capability := range n.Permissions {
		b.Permission(capability, "")
	}
	for _, p := range n.Permission {
		if strings.TrimSpace(p.Capability) == "" {
			return nil, fail(errors.New("permission entry needs a capability"))
		}
		b.Permission(p.Capability, p.Message)
	}

	if n.Handler != "" {
		h, err := n.bindHandler(handlers)
		if err != nil {
			return nil, fail(err)
		}
		b.Handler(h)
	} else if n.Cooldown != "" || n.CooldownScope != "" || n.CooldownBypass != "" || n.Async {
		return nil, fail(errors.New("cooldown and async settings need a handler"))
	}

	if n.Unknown != "" {
		h, ok := handlers.Lookup(n.Unknown)
		if !ok {
			return nil, fail(fmt.Errorf("%w %q", ErrUnknownHandler, n.Unknown))
		}
		b.UnknownHandler(h)
	}

	for _, child := range n.Children {
		cb, err := child.builder(file, path, handlers)
		if err != nil {
			return nil, err
		}
		b.Child(cb)
	}
	return b, nil
}

func (n Node) bindHandler(handlers *Handlers) (*command.Handler, error) {
	h, ok := handlers.Lookup(n.Handler)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownHandler, n.Handler)
	}

	var opts []command.HandlerOption
	if n.Cooldown != "" {
		d, err := time.ParseDuration(n.Cooldown)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%w %q: want a positive duration such as 30s", ErrInvalidCooldown, n.Cooldown)
		}
		scope, err := parseScope(n.CooldownScope)
		if err != nil {
			return nil, err
		}
		opts = append(opts, command.WithCooldown(d, scope))
	} else if n.CooldownScope != "" {
		if _, ok := h.Cooldown(); !ok {
			return nil, fmt.Errorf("%w: cooldown_scope without cooldown", ErrInvalidCooldown)
		}
		scope, err := parseScope(n.CooldownScope)
		if err != nil {
			return nil, err
		}
		policy, _ := h.Cooldown()
		opts = append(opts, command.WithCooldown(policy.Duration, scope))
	}
	if n.CooldownBypass != "" {
		if _, ok := h.Cooldown(); !ok && n.Cooldown == "" {
			return nil, fmt.Errorf("%w: cooldown_bypass without cooldown", ErrInvalidCooldown)
		}
		opts = append(opts, command.WithCooldownBypass(n.CooldownBypass))
	}
	if n.Async {
		opts = append(opts, command.WithAsync(true))
	}

	if len(opts) == 0 {
		return h, nil
	}
	return h.With(opts...), nil
}

func parseScope(s string) (command.Scope, error) {
	switch strings.ToLower(s) {
	case "", "invoker":
		return command.ScopeInvoker, nil
	case "global":
		return command.ScopeGlobal, nil
	}
	return 0, fmt.Errorf("%w: unknown scope %q (want invoker or global)", ErrInvalidCooldown, s)
}
