// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command cmdtree is an interactive console and CLI for the command engine.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jeranaias/cmdtree/internal/config"
	"github.com/jeranaias/cmdtree/internal/logging"
)

var (
	version   = "dev"
	gitCommit string
	buildTime string
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath  string
	definitions string
	verbose     bool
	as          string
	grants      []string
}

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// skipConfig marks commands that must run without loading the config file.
const skipConfig = "skip-config"

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "cmdtree",
		Short:         "Command tree engine console",
		Long:          "cmdtree resolves and runs slash commands against a tree of command definitions.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipConfig] != "" {
				return nil
			}
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if flags.verbose {
				return nil
			}
			return logging.Initialize(logging.Config{
				Dir:        cfg.Logging.Dir,
				MaxSizeMB:  cfg.Logging.MaxSizeMB,
				MaxBackups: cfg.Logging.MaxBackups,
				MaxAgeDays: cfg.Logging.MaxAgeDays,
				Compress:   cfg.Logging.Compress,
			})
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logging.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(cmd, flags, config.Global())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "config file (default ~/.cmdtree/config.toml)")
	pf.StringVarP(&flags.definitions, "definitions", "d", "", "definitions directory (overrides config)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log to stderr instead of the log file")
	pf.StringVar(&flags.as, "as", "", "act as an identified invoker, written id:name")
	pf.StringSliceVarP(&flags.grants, "grant", "g", []string{"*"}, "capabilities to grant (supports * and prefix.*)")

	cfgFn := config.Global
	root.AddCommand(
		newConsoleCommand(flags, cfgFn),
		newExecCommand(flags, cfgFn),
		newCompleteCommand(flags, cfgFn),
		newCheckCommand(flags, cfgFn),
		newAuditCommand(cfgFn),
		newConfigCommand(flags),
		newVersionCommand(),
	)
	return root
}

// loadConfig reads the config file named by flags, else the default
// locations, applies flag overrides and installs the result as the global
// config read by every subcommand.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFromPath(flags.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	if flags.definitions != "" {
		cfg.Definitions.Dir = flags.definitions
	}
	config.SetGlobal(cfg)
	return cfg, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			v := version
			if gitCommit != "" {
				v += fmt.Sprintf(" (git: %s)", gitCommit)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cmdtree %s\n", v)
			if buildTime != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  Build: %s\n", buildTime)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  Go: %s\n", runtime.Version())
		},
	}
}
