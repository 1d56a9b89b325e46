// Package store persists render outcomes to an embedded libSQL database.
// The log is an append-only audit trail; nothing in the scan path reads it
// back, so a write failure never aborts a render pass.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/rendis/diagrun/pkg/schema"
)

// Render outcome statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// RenderEvent is one recorded render outcome.
type RenderEvent struct {
	ID         int64
	RunID      string
	DiagramID  string
	ElementID  string
	Status     string
	ErrorHash  string
	DurationMs int64
	Timestamp  time.Time
}

// RenderLog is a libSQL-backed append-only log of render events.
type RenderLog struct {
	db *sql.DB
}

// Open opens (or creates) the render log at the given path. The path should
// be a file URI, e.g. "file:/path/to/renders.db".
func Open(path string) (*RenderLog, error) {
	db, err := sql.Open("libsql", path)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &RenderLog{db: db}, nil
}

// Migrate creates the render_events table if it does not exist.
func (l *RenderLog) Migrate(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS render_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		diagram_id TEXT NOT NULL,
		element_id TEXT NOT NULL,
		status TEXT NOT NULL,
		error_hash TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		timestamp TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return schema.NewError(schema.ErrCodeStore, "create render_events").WithCause(err)
	}
	_, err = l.db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_render_events_run ON render_events(run_id)`)
	if err != nil {
		return schema.NewError(schema.ErrCodeStore, "index render_events").WithCause(err)
	}
	return nil
}

// Append records one render event. The event's ID and Timestamp are filled
// in when unset.
func (l *RenderLog) Append(ctx context.Context, ev *RenderEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO render_events (run_id, diagram_id, element_id, status, error_hash, duration_ms, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.RunID, ev.DiagramID, ev.ElementID, ev.Status, ev.ErrorHash, ev.DurationMs, ev.Timestamp,
	)
	if err != nil {
		return schema.NewError(schema.ErrCodeStore, "append render event").WithCause(err)
	}
	if id, err := res.LastInsertId(); err == nil {
		ev.ID = id
	}
	return nil
}

// Events returns all events for a run, oldest first.
func (l *RenderLog) Events(ctx context.Context, runID string) ([]*RenderEvent, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, run_id, diagram_id, element_id, status, error_hash, duration_ms, timestamp
		 FROM render_events WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeStore, "query render events").WithCause(err)
	}
	defer rows.Close()

	var out []*RenderEvent
	for rows.Next() {
		ev := &RenderEvent{}
		if err := rows.Scan(&ev.ID, &ev.RunID, &ev.DiagramID, &ev.ElementID,
			&ev.Status, &ev.ErrorHash, &ev.DurationMs, &ev.Timestamp); err != nil {
			return nil, schema.NewError(schema.ErrCodeStore, "scan render event").WithCause(err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, schema.NewError(schema.ErrCodeStore, "iterate render events").WithCause(err)
	}
	return out, nil
}

// Close closes the database.
func (l *RenderLog) Close() error { return l.db.Close() }
