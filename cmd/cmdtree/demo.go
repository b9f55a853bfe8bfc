// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	_ "embed"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/jeranaias/cmdtree/internal/argument"
	"github.com/jeranaias/cmdtree/internal/cmderr"
	"github.com/jeranaias/cmdtree/internal/command"
	"github.com/jeranaias/cmdtree/internal/completion"
	"github.com/jeranaias/cmdtree/internal/engine"
	"github.com/jeranaias/cmdtree/internal/loader"
)

//go:embed defaults.toml
var defaultDefinitions []byte

// =============================================================================
// DEMO TYPES
// =============================================================================

var (
	gameMode = argument.NewEnum("GameMode", "survival", "creative", "adventure", "spectator")
	material = argument.NewEnum("Material", "stone", "dirt", "diamond", "torch", "bread")
)

// worlds are the backup targets. Unknown names fail inside the task, after
// it has been dispatched.
var worlds = []string{"world", "nether", "end"}

// registerCompleters adds the completers referenced by the default
// definitions.
func registerCompleters(reg *completion.Registry, eng *engine.Engine) {
	reg.Register("material", func(completion.Request) []string {
		return material.Members()
	})
	reg.Register("worlds", func(completion.Request) []string {
		return worlds
	})
	reg.Register("tasks", func(completion.Request) []string {
		var ids []string
		for _, t := range eng.Scheduler().Tasks() {
			if !t.Status.Terminal() {
				ids = append(ids, t.ID[:8])
			}
		}
		return ids
	})
}

// =============================================================================
// DEMO CAPABILITIES
// =============================================================================

// grantSet answers capability checks from a fixed list. "*" grants
// everything and "admin.*" grants every capability under admin.
type grantSet []string

func (g grantSet) HasCapability(_ command.Invoker, capability string) bool {
	for _, grant := range g {
		switch {
		case grant == "*", grant == capability:
			return true
		case strings.HasSuffix(grant, ".*") && strings.HasPrefix(capability, strings.TrimSuffix(grant, "*")):
			return true
		}
	}
	return false
}

// =============================================================================
// DEMO HANDLERS
// =============================================================================

// demoHandlers binds the handler names used by defaults.toml. eng is read
// lazily because some handlers act on the engine that loads them.
func demoHandlers(sink command.Sink, eng func() *engine.Engine) *loader.Handlers {
	hs := loader.NewHandlers()

	hs.Bind("say", command.NewInvokerHandler(command.InvokerAny,
		func(_ context.Context, inv command.Invoker, args command.Args) error {
			sink.Send(inv, args.String(0))
			return nil
		},
		command.WithParams(argument.Param{Name: "message"}),
	))

	hs.Bind("gamemode", command.NewInvokerHandler(command.InvokerAny,
		func(_ context.Context, inv command.Invoker, args command.Args) error {
			target := inv.Name()
			if args.Has(1) {
				target = args.String(1)
			}
			sink.Send(inv, fmt.Sprintf("Set %s's game mode to %s.", target, args.String(0)))
			return nil
		},
		command.WithParams(
			argument.Param{Name: "mode", Type: gameMode},
			argument.Param{Name: "player", Optional: true, Single: true},
		),
	))

	hs.Bind("give", command.NewInvokerHandler(command.InvokerAny,
		func(_ context.Context, inv command.Invoker, args command.Args) error {
			sink.Send(inv, fmt.Sprintf("Gave %d x %s.", args.Int(1), args.String(0)))
			return nil
		},
		command.WithParams(
			argument.Param{Name: "item", Type: material},
			argument.Param{Name: "amount", Type: argument.Int, Default: "1",
				Validators: []argument.Validator{argument.InRange(1, 64)}},
		),
	))

	hs.Bind("heal", command.NewInvokerHandler(command.InvokerAny,
		func(_ context.Context, inv command.Invoker, _ command.Args) error {
			sink.Send(inv, "You feel better.")
			return nil
		},
	))

	hs.Bind("roll", command.NewInvokerHandler(command.InvokerAny,
		func(_ context.Context, inv command.Invoker, args command.Args) error {
			sides := args.Int(0)
			sink.Send(inv, fmt.Sprintf("You rolled %d (d%d).", rand.IntN(sides)+1, sides))
			return nil
		},
		command.WithParams(argument.Param{Name: "sides", Type: argument.Int, Default: "6",
			Validators: []argument.Validator{argument.InRange(2, 100)}}),
	))

	hs.Bind("whoami", command.NewInvokerHandler(command.InvokerIdentified,
		func(_ context.Context, inv command.Invoker, _ command.Args) error {
			sink.Send(inv, fmt.Sprintf("You are %s (%s).", inv.Name(), inv.ID()))
			return nil
		},
	))

	hs.Bind("backup", command.NewInvokerHandler(command.InvokerAny,
		func(ctx context.Context, inv command.Invoker, args command.Args) error {
			target := args.String(1)
			sink.Send(inv, fmt.Sprintf("Backup of %s started.", target))
			select {
			case <-time.After(args.Duration(0)):
			case <-ctx.Done():
				return ctx.Err()
			}
			if !slices.Contains(worlds, target) {
				return cmderr.Userf("Backup failed: no world named '%s'.", target)
			}
			sink.Send(inv, "Backup complete.")
			return nil
		},
		command.WithParams(
			argument.Param{Name: "delay", Type: argument.Duration, Default: "2s"},
			argument.Param{Name: "world", Single: true, Default: "world"},
		),
	))

	hs.Bind("admin.unknown", command.NewInvokerHandler(command.InvokerAny,
		func(_ context.Context, inv command.Invoker, args command.Args) error {
			return cmderr.Userf("No admin command '%s'. Try /help.", args.String(0))
		},
		command.WithParams(argument.Param{Name: "input", Optional: true}),
	))

	hs.Bind("admin.reload", command.NewInvokerHandler(command.InvokerAny,
		func(_ context.Context, inv command.Invoker, _ command.Args) error {
			if err := eng().Reload(); err != nil {
				return cmderr.Userf("Reload failed: %v", err)
			}
			sink.Send(inv, fmt.Sprintf("Reloaded %d root commands.", eng().Registry().Len()))
			return nil
		},
	))

	hs.Bind("admin.teleport", command.NewInvokerHandler(command.InvokerAny,
		func(_ context.Context, inv command.Invoker, args command.Args) error {
			sink.Send(inv, fmt.Sprintf("Teleported %s to %d, %d, %d.",
				args.String(0), args.Int(1), args.Int(2), args.Int(3)))
			return nil
		},
		command.WithParams(
			argument.Param{Name: "player", Single: true},
			argument.Param{Name: "x", Type: argument.Int},
			argument.Param{Name: "y", Type: argument.Int, Validators: []argument.Validator{argument.InRange(0, 255)}},
			argument.Param{Name: "z", Type: argument.Int},
		),
	))

	hs.Bind("admin.tasks", command.NewInvokerHandler(command.InvokerAny,
		func(_ context.Context, inv command.Invoker, _ command.Args) error {
			sink.Send(inv, eng().Scheduler().Summary())
			for _, t := range eng().Scheduler().Tasks() {
				sink.Send(inv, t.Summary())
			}
			return nil
		},
	))

	hs.Bind("admin.cancel", command.NewInvokerHandler(command.InvokerAny,
		func(_ context.Context, inv command.Invoker, args command.Args) error {
			id, err := eng().CancelTask(args.String(0))
			if err != nil {
				return err
			}
			sink.Send(inv, fmt.Sprintf("Canceled task %s.", id[:8]))
			return nil
		},
		command.WithParams(argument.Param{Name: "task", Single: true}),
	))

	hs.Bind("admin.debug", command.NewInvokerHandler(command.InvokerAny,
		func(_ context.Context, inv command.Invoker, _ command.Args) error {
			sink.Send(inv, fmt.Sprintf("roots=%d cooldowns=%d tasks_running=%d",
				eng().Registry().Len(), eng().Executor().Cooldowns().Len(), eng().Scheduler().Running()))
			return nil
		},
	))

	return hs
}

// defaultRoots parses the embedded definitions.
func defaultRoots(hs *loader.Handlers) ([]*command.Definition, error) {
	roots, err := loader.Parse(defaultDefinitions, hs)
	if err != nil {
		return nil, fmt.Errorf("built-in definitions: %w", err)
	}
	return roots, nil
}
