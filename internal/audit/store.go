// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/cmdtree/internal/executor"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrClosed        = errors.New("audit store closed")
	ErrDatabaseError = errors.New("database error")
)

// =============================================================================
// STORE
// =============================================================================

// Entry is one stored execution.
type Entry struct {
	ID string
	executor.Record
}

// Store is a SQLite-backed execution log.
type Store struct {
	db     *sql.DB
	path   string
	closed bool
	mu     sync.RWMutex
}

// Open opens or creates the audit database at path. Use ":memory:" for a
// throwaway store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// Record stores rec. It satisfies executor.Recorder.
func (s *Store) Record(ctx context.Context, rec executor.Record) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	tokens, err := json.Marshal(rec.Tokens)
	if err != nil {
		return fmt.Errorf("failed to encode tokens: %w", err)
	}
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO executions
			(id, invoker_id, invoker_name, path, tokens, outcome, error, task_id, duration_us, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		uuid.NewString(), rec.InvokerID, rec.InvokerName, rec.Path, string(tokens),
		string(rec.Outcome), nullString(rec.Error), nullString(rec.TaskID),
		rec.Duration.Microseconds(), rec.Time.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return s.query(ctx, `
		SELECT id, invoker_id, invoker_name, path, tokens, outcome, error, task_id, duration_us, executed_at
		FROM executions
		ORDER BY executed_at DESC
		LIMIT ?
	`, limit)
}

// ByInvoker returns up to limit entries for one invoker, newest first.
func (s *Store) ByInvoker(ctx context.Context, invokerID string, limit int) ([]Entry, error) {
	return s.query(ctx, `
		SELECT id, invoker_id, invoker_name, path, tokens, outcome, error, task_id, duration_us, executed_at
		FROM executions
		WHERE invoker_id = ?
		ORDER BY executed_at DESC
		LIMIT ?
	`, invokerID, limit)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e            Entry
			tokens       string
			outcome      string
			errText      sql.NullString
			taskID       sql.NullString
			durationUS   int64
			executedAtNS int64
		)
		if err := rows.Scan(&e.ID, &e.InvokerID, &e.InvokerName, &e.Path, &tokens, &outcome,
			&errText, &taskID, &durationUS, &executedAtNS); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		if err := json.Unmarshal([]byte(tokens), &e.Tokens); err != nil {
			return nil, fmt.Errorf("failed to decode tokens for %s: %w", e.ID, err)
		}
		e.Outcome = executor.Outcome(outcome)
		e.Error = errText.String
		e.TaskID = taskID.String
		e.Duration = time.Duration(durationUS) * time.Microsecond
		e.Time = time.Unix(0, executedAtNS)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return entries, nil
}

// CountByOutcome returns the number of stored executions per outcome.
func (s *Store) CountByOutcome(ctx context.Context) (map[executor.Outcome]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM executions GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	counts := make(map[executor.Outcome]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		counts[executor.Outcome(outcome)] = n
	}
	return counts, rows.Err()
}

// Prune deletes entries older than cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM executions WHERE executed_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return res.RowsAffected()
}

// Close closes the database. Further calls return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
