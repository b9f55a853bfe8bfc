// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package audit persists command executions to a SQLite database.
//
// Store implements executor.Recorder, so wiring it into an executor with
// executor.WithRecorder captures every invocation: who ran it, the resolved
// path, the outcome and how long it took.
//
// # Usage
//
//	store, err := audit.Open("/var/lib/cmdtree/audit.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	exec := executor.New(caps, sink, executor.WithRecorder(store))
package audit
