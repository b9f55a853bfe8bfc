// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package audit

// SchemaVersion tracks the database schema version for migrations.
const SchemaVersion = 1

// Schema is the SQLite schema for the execution log.
const Schema = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS executions (
    id TEXT PRIMARY KEY,
    invoker_id TEXT NOT NULL,
    invoker_name TEXT NOT NULL,
    path TEXT NOT NULL,
    tokens TEXT NOT NULL,       -- JSON array
    outcome TEXT NOT NULL,
    error TEXT,
    task_id TEXT,
    duration_us INTEGER NOT NULL,
    executed_at INTEGER NOT NULL -- Unix nanoseconds
);

CREATE INDEX IF NOT EXISTS idx_executions_executed_at ON executions(executed_at);
CREATE INDEX IF NOT EXISTS idx_executions_invoker ON executions(invoker_id);
CREATE INDEX IF NOT EXISTS idx_executions_outcome ON executions(outcome);
`

// InitMetadata seeds the metadata table.
const InitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
`
