// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/jeranaias/cmdtree/internal/audit"
	"github.com/jeranaias/cmdtree/internal/command"
	"github.com/jeranaias/cmdtree/internal/config"
	"github.com/jeranaias/cmdtree/internal/engine"
	"github.com/jeranaias/cmdtree/internal/executor"
	"github.com/jeranaias/cmdtree/internal/loader"
	"github.com/jeranaias/cmdtree/internal/scheduler"
	"github.com/jeranaias/cmdtree/internal/util"
)

// =============================================================================
// EXEC
// =============================================================================

func newExecCommand(flags *globalFlags, cfg func() *config.Config) *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "exec <command> [args...]",
		Short: "Run one command and exit",
		Example: `  cmdtree exec say hello world
  cmdtree exec /admin tp steve 10 64 10
  cmdtree exec --as u1:alice whoami`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, flags, cfg(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.close()
			return runExec(ctx, s, args, wait)
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 30*time.Second, "how long to wait for an async command")
	return cmd
}

// runExec runs one command and, for async commands, waits for the task.
func runExec(ctx context.Context, s *session, args []string, wait time.Duration) error {
	res := s.eng.Execute(ctx, s.invoker, args)
	if res.Outcome == executor.OutcomeDispatched {
		return waitForTask(ctx, s.eng, res.TaskID, wait)
	}
	return outcomeError(res)
}

// waitForTask polls the scheduler until the task finishes or timeout passes.
// A failed or canceled task is an error.
func waitForTask(ctx context.Context, eng *engine.Engine, id string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if t := eng.Scheduler().Task(id); t != nil {
			switch t.GetStatus() {
			case scheduler.StatusComplete:
				return nil
			case scheduler.StatusFailed:
				return fmt.Errorf("task %s failed: %s", id, t.Error)
			case scheduler.StatusCanceled:
				return fmt.Errorf("task %s was canceled", id)
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("task %s did not finish: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}

// outcomeError maps failed outcomes to a non-zero exit. The invoker already
// saw the message through the sink.
func outcomeError(res executor.Result) error {
	switch res.Outcome {
	case executor.OutcomeSuccess, executor.OutcomeHandledUnknown:
		return nil
	}
	return fmt.Errorf("command %s", strings.ReplaceAll(res.Outcome.String(), "_", " "))
}

// =============================================================================
// COMPLETE
// =============================================================================

func newCompleteCommand(flags *globalFlags, cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <words...>",
		Short: "Print completion candidates for a partial command",
		Long: `Print completion candidates for the last word. Pass an empty last
argument to complete a new word.`,
		Example: `  cmdtree complete /adm
  cmdtree complete give ""`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), flags, cfg(), io.Discard)
			if err != nil {
				return err
			}
			defer s.close()

			for _, c := range s.eng.Complete(s.invoker, strings.Join(args, " ")) {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
}

// =============================================================================
// CHECK
// =============================================================================

func newCheckCommand(flags *globalFlags, cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check [dir]",
		Short: "Validate definition files and report label conflicts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cfg().DefinitionsDir()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				dir = args[0]
			}
			return runCheck(cmd.OutOrStdout(), dir)
		},
	}
}

// errConflicts is returned when check finds unreachable labels.
var errConflicts = errors.New("label conflicts found")

func runCheck(out io.Writer, dir string) error {
	sink := command.SinkFunc(func(command.Invoker, string) {})
	handlers := demoHandlers(sink, func() *engine.Engine { return nil })

	builtin, err := defaultRoots(handlers)
	if err != nil {
		return err
	}
	loaded, err := loader.LoadDir(dir, handlers)
	if err != nil {
		fmt.Fprintln(out, errorStyle.Render("FAIL ")+err.Error())
		return err
	}

	reg := command.NewRegistry()
	reg.Replace(append(builtin, loaded...))

	var conflicts []command.Conflict
	for _, root := range reg.All() {
		conflicts = append(conflicts, root.Conflicts()...)
	}
	conflicts = append(conflicts, rootConflicts(reg.All())...)

	fmt.Fprintf(out, "%s %d file roots from %s, %d built in\n",
		successStyle.Render("OK"), len(loaded), dir, len(builtin))
	for _, c := range conflicts {
		fmt.Fprintf(out, "%s %s: label %q is used by %q and %q; only %q is reachable\n",
			warningStyle.Render("WARN"), parentName(c.Parent), c.Label, c.First, c.Second, c.First)
	}
	if len(conflicts) > 0 {
		return errConflicts
	}
	return nil
}

// rootConflicts reports labels claimed by more than one root.
func rootConflicts(roots []*command.Definition) []command.Conflict {
	var conflicts []command.Conflict
	seen := make(map[string]*command.Definition)
	for _, root := range roots {
		for _, l := range root.Labels() {
			key := util.Fold(l)
			if first, ok := seen[key]; ok && first != root {
				conflicts = append(conflicts, command.Conflict{Label: l, First: first.Name(), Second: root.Name()})
				continue
			}
			seen[key] = root
		}
	}
	return conflicts
}

func parentName(p string) string {
	if p == "" {
		return "(root)"
	}
	return p
}

// =============================================================================
// AUDIT
// =============================================================================

func newAuditCommand(cfg func() *config.Config) *cobra.Command {
	var limit int
	var invoker string

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent command executions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := cfg().AuditPath()
			if err != nil {
				return err
			}
			store, err := audit.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()
			return runAudit(cmd.Context(), cmd.OutOrStdout(), store, invoker, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	cmd.Flags().StringVar(&invoker, "invoker", "", "only show entries for this invoker id")
	return cmd
}

func runAudit(ctx context.Context, out io.Writer, store *audit.Store, invoker string, limit int) error {
	var (
		entries []audit.Entry
		err     error
	)
	if invoker != "" {
		entries, err = store.ByInvoker(ctx, invoker, limit)
	} else {
		entries, err = store.Recent(ctx, limit)
	}
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, dimStyle.Render("No executions recorded."))
		return nil
	}

	nameWidth, pathWidth := 4, 4
	for _, e := range entries {
		nameWidth = max(nameWidth, runewidth.StringWidth(displayName(e)))
		pathWidth = max(pathWidth, runewidth.StringWidth(e.Path))
	}

	fmt.Fprintln(out, titleStyle.Render("Recent executions"))
	for _, e := range entries {
		outcome := e.Outcome.String()
		style := successStyle
		switch e.Outcome {
		case executor.OutcomeSuccess, executor.OutcomeDispatched, executor.OutcomeHandledUnknown:
		case executor.OutcomeInternalError:
			style = errorStyle
		default:
			style = warningStyle
		}
		fmt.Fprintf(out, "  %s  %s  %s  %s  %s\n",
			dimStyle.Render(e.Time.Format("2006-01-02 15:04:05")),
			util.PadRight(displayName(e), nameWidth),
			util.PadRight(e.Path, pathWidth),
			style.Render(util.PadRight(outcome, 14)),
			dimStyle.Render(e.Duration.Round(time.Microsecond).String()),
		)
	}

	counts, err := store.CountByOutcome(ctx)
	if err != nil {
		return err
	}
	outcomes := make([]string, 0, len(counts))
	for o, n := range counts {
		outcomes = append(outcomes, fmt.Sprintf("%s=%d", o, n))
	}
	sort.Strings(outcomes)
	fmt.Fprintln(out, dimStyle.Render("Totals: "+strings.Join(outcomes, " ")))
	return nil
}

func displayName(e audit.Entry) string {
	if e.InvokerID == "" {
		return e.InvokerName
	}
	return e.InvokerName + " (" + e.InvokerID + ")"
}

// =============================================================================
// CONFIG
// =============================================================================

func newConfigCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect the config file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a config file with the default settings",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd.OutOrStdout(), flags.configPath, force)
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective config, after env overrides, as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return config.Global().WriteTOML(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

// runConfigInit writes the defaults to path, or to ~/.cmdtree/config.toml
// when path is empty.
func runConfigInit(out io.Writer, path string, force bool) error {
	target := path
	if target == "" {
		p, err := config.ConfigPathTOML()
		if err != nil {
			return err
		}
		target = p
	}
	if _, err := os.Stat(target); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", target)
	}

	cfg := config.Default()
	var err error
	if path == "" {
		err = config.Save(cfg)
	} else {
		err = config.SaveTOML(cfg, path)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s wrote %s\n", successStyle.Render("OK"), target)
	return nil
}
