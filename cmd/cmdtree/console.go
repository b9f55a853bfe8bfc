// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/cmdtree/internal/command"
	"github.com/jeranaias/cmdtree/internal/config"
	"github.com/jeranaias/cmdtree/internal/engine"
	"github.com/jeranaias/cmdtree/internal/executor"
	"github.com/jeranaias/cmdtree/internal/logging"
	"github.com/jeranaias/cmdtree/internal/util"
)

const historyFile = "console_history"

func newConsoleCommand(flags *globalFlags, cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Start the interactive command console",
		Example: `  cmdtree console
  cmdtree console --as u1:alice --grant demo.* --grant admin.use`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConsole(cmd, flags, cfg())
		},
	}
}

// runConsole reads lines until EOF or Ctrl+C. Lines are commands with or
// without a leading slash; "help" and "exit" are handled locally.
func runConsole(cmd *cobra.Command, flags *globalFlags, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	out := cmd.OutOrStdout()
	s, err := openSession(ctx, flags, cfg, out)
	if err != nil {
		return err
	}
	defer s.close()

	fmt.Fprintln(out, titleStyle.Render("cmdtree console")+dimStyle.Render(" (type help, Tab completes, Ctrl+D exits)"))

	if !isInteractive() {
		return runScript(ctx, s, cmd.InOrStdin(), out)
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetTabCompletionStyle(liner.TabPrints)
	line.SetCompleter(func(input string) []string {
		return completeLine(s, input)
	})

	histPath := ""
	if dir, err := config.ConfigDir(); err == nil {
		histPath = filepath.Join(dir, historyFile)
		if f, err := os.Open(histPath); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}
	defer saveHistory(line, histPath)

	for {
		// liner measures the prompt in runes, so it must stay unstyled.
		input, err := line.Prompt("cmdtree> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if !dispatchLine(ctx, s, input, out) {
			return nil
		}
	}
}

// runScript executes one command per line from r.
func runScript(ctx context.Context, s *session, r io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "" || strings.HasPrefix(input, "#") {
			continue
		}
		fmt.Fprintln(out, promptStyle.Render("> ")+input)
		if !dispatchLine(ctx, s, input, out) {
			return nil
		}
	}
	return scanner.Err()
}

// dispatchLine runs one console line and reports false when the console
// should exit. "help [command]" and "exit" are handled locally.
func dispatchLine(ctx context.Context, s *session, input string, out io.Writer) bool {
	label, rest := command.SplitInvocation(input)
	switch strings.ToLower(label) {
	case "exit", "quit":
		return false
	case "help", "?":
		topic := ""
		if len(rest) > 0 {
			topic = rest[0]
		}
		printHelp(s, out, topic)
		return true
	}

	res := s.eng.ExecuteLine(ctx, s.invoker, input)
	switch res.Outcome {
	case executor.OutcomeDispatched:
		fmt.Fprintln(out, dimStyle.Render("queued task "+res.TaskID))
	case executor.OutcomeInternalError:
		fmt.Fprintln(out, errorStyle.Render("[internal error]"))
	}
	return true
}

// completeLine returns whole-line candidates for liner.
func completeLine(s *session, input string) []string {
	candidates := s.eng.Complete(s.invoker, input)
	if len(candidates) == 0 {
		return nil
	}

	head := ""
	if i := strings.LastIndexAny(input, " \t"); i >= 0 {
		head = input[:i+1]
	}

	lines := make([]string, len(candidates))
	for i, c := range candidates {
		lines[i] = head + c
	}
	return lines
}

// printHelp lists the commands the session invoker may run, aligned by
// display width. A non-empty topic limits the listing to that root.
func printHelp(s *session, out io.Writer, topic string) {
	var entries []executor.Entry
	if topic == "" {
		entries = s.eng.Help(s.invoker)
	} else if root := s.eng.Registry().Get(strings.TrimPrefix(topic, engine.CommandPrefix)); root != nil {
		entries = s.eng.Executor().Listing(root, s.invoker)
	}
	if len(entries) == 0 {
		msg := "No commands available."
		if topic != "" {
			msg = fmt.Sprintf("No help for '%s'.", topic)
		}
		fmt.Fprintln(out, warningStyle.Render(msg))
		return
	}

	width := 0
	for _, e := range entries {
		if w := runewidth.StringWidth(e.Usage); w > width {
			width = w
		}
	}
	maxDesc := terminalWidth() - width - 4

	fmt.Fprintln(out, titleStyle.Render("Commands"))
	for _, e := range entries {
		desc := e.Description
		if maxDesc > 10 {
			desc = util.TruncateWidth(desc, maxDesc)
		}
		fmt.Fprintf(out, "  %s  %s\n", util.PadRight(e.Usage, width), dimStyle.Render(desc))
	}
}

func saveHistory(line *liner.State, path string) {
	if path == "" {
		return
	}
	err := util.AtomicWrite(path, 0o600, func(w io.Writer) error {
		_, err := line.WriteHistory(w)
		return err
	})
	if err != nil {
		logging.Warning.Printf("HISTORY_SAVE_FAILED | path=%s err=%v", path, err)
	}
}
