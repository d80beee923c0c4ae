// Package history keeps a SQLite log of configure runs and process
// lifecycle actions.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"licman/internal/security"

	_ "modernc.org/sqlite"
)

// History manages the event log in SQLite
type History struct {
	db *sql.DB
}

// NewHistory opens (creating if needed) the database at dbPath.
func NewHistory(dbPath string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), security.PermDirectory); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	h := &History{db: db}

	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := os.Chmod(dbPath, security.PermDBFile); err != nil && !os.IsNotExist(err) {
		db.Close()
		return nil, fmt.Errorf("failed to set database permissions: %w", err)
	}

	return h, nil
}

// Close closes the database connection
func (h *History) Close() error {
	return h.db.Close()
}

func (h *History) initSchema() error {
	_, err := h.db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			action TEXT NOT NULL,
			target TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			completed_at TEXT,
			duration_seconds REAL,
			error_message TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	_, err = h.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_target_id
		ON events(target, id DESC)
	`)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// RecordEvent stores e and returns its ID. A zero StartedAt is recorded as
// the current time.
func (h *History) RecordEvent(ctx context.Context, e *Event) (int64, error) {
	started := e.StartedAt
	if started.IsZero() {
		started = time.Now()
	}

	var completedAt *string
	if e.CompletedAt != nil {
		formatted := e.CompletedAt.UTC().Format(time.RFC3339Nano)
		completedAt = &formatted
	}

	result, err := h.db.ExecContext(ctx, `
		INSERT INTO events
		(action, target, status, started_at, completed_at, duration_seconds, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		e.Action,
		e.Target,
		e.Status,
		started.UTC().Format(time.RFC3339Nano),
		completedAt,
		e.DurationSeconds,
		e.ErrorMessage,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return id, nil
}

const selectColumns = `SELECT id, action, target, status, started_at, completed_at,
       duration_seconds, error_message
FROM events`

// GetLatestEvent returns the most recent event for target, or nil.
func (h *History) GetLatestEvent(ctx context.Context, target string) (*Event, error) {
	row := h.db.QueryRowContext(ctx, selectColumns+`
		WHERE target = ?
		ORDER BY id DESC
		LIMIT 1
	`, target)

	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest event: %w", err)
	}

	return e, nil
}

// GetHistory returns up to limit events for target, newest first.
func (h *History) GetHistory(ctx context.Context, target string, limit int) ([]Event, error) {
	rows, err := h.db.QueryContext(ctx, selectColumns+`
		WHERE target = ?
		ORDER BY id DESC
		LIMIT ?
	`, target, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query event history: %w", err)
	}
	return collect(rows)
}

// GetRecent returns up to limit events across all targets, newest first.
func (h *History) GetRecent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := h.db.QueryContext(ctx, selectColumns+`
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	return collect(rows)
}

// GetLatestByTarget returns the latest event of every target.
func (h *History) GetLatestByTarget(ctx context.Context) (map[string]*Event, error) {
	rows, err := h.db.QueryContext(ctx, selectColumns+`
		WHERE id IN (SELECT MAX(id) FROM events GROUP BY target)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest events: %w", err)
	}

	events, err := collect(rows)
	if err != nil {
		return nil, err
	}

	result := make(map[string]*Event, len(events))
	for i := range events {
		result[events[i].Target] = &events[i]
	}
	return result, nil
}

func collect(rows *sql.Rows) ([]Event, error) {
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return events, nil
}

// scanner is implemented by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*Event, error) {
	var e Event
	var startedAtStr string
	var completedAtStr sql.NullString

	err := s.Scan(
		&e.ID,
		&e.Action,
		&e.Target,
		&e.Status,
		&startedAtStr,
		&completedAtStr,
		&e.DurationSeconds,
		&e.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}

	startedAt, err := time.Parse(time.RFC3339Nano, startedAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at timestamp: %w", err)
	}
	e.StartedAt = startedAt

	if completedAtStr.Valid {
		completedAt, err := time.Parse(time.RFC3339Nano, completedAtStr.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse completed_at timestamp: %w", err)
		}
		e.CompletedAt = &completedAt
	}

	return &e, nil
}
