// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging provides the process-wide leveled loggers.
//
// Info, Warning and Error write to stderr until Initialize redirects them to
// a size-rotated file. Event lines follow the "EVENT | key=value" form:
//
//	logging.Error.Printf("CONFIG_ERROR | command=%s param=%s type=%s", path, p, t)
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the log file created inside the configured directory.
const FileName = "cmdtree.log"

var (
	Info    = log.New(os.Stderr, "INFO: ", log.Ldate|log.Ltime)
	Warning = log.New(os.Stderr, "WARNING: ", log.Ldate|log.Ltime)
	Error   = log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime)

	mu      sync.Mutex
	writer  io.WriteCloser
	logPath string
)

// Config controls where logs go and how they rotate.
type Config struct {
	// Dir is the log directory. Empty means ~/.cmdtree/logs.
	Dir string

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultConfig returns 10MB files, 5 backups kept for 30 days, compressed.
func DefaultConfig() Config {
	return Config{
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 30,
		Compress:   true,
	}
}

// Dir resolves the log directory for cfg.
func Dir(cfg Config) (string, error) {
	if cfg.Dir != "" {
		return cfg.Dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".cmdtree", "logs"), nil
}

// Initialize redirects the loggers to a rotating file. Call Close on exit.
func Initialize(cfg Config) error {
	dir, err := Dir(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(dir, FileName)
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}

	mu.Lock()
	defer mu.Unlock()
	if writer != nil {
		_ = writer.Close()
	}
	writer, logPath = w, path
	SetOutput(w)
	return nil
}

// SetOutput points all three loggers at out.
func SetOutput(out io.Writer) {
	flags := log.Ldate | log.Ltime | log.Lshortfile
	Info = log.New(out, "INFO: ", flags)
	Warning = log.New(out, "WARNING: ", flags)
	Error = log.New(out, "ERROR: ", flags)
}

// Path returns the active log file, or "" when logging to stderr.
func Path() string {
	mu.Lock()
	defer mu.Unlock()
	return logPath
}

// Close releases the log file and restores stderr logging.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if writer == nil {
		return nil
	}
	err := writer.Close()
	writer, logPath = nil, ""
	SetOutput(os.Stderr)
	return err
}
