// Package journal records work-unit lifecycle transitions in SQLite.
//
// The journal is an audit aid, not state: unit metadata remains the source of
// truth, and a failed journal write never undoes a committed change.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - one open connection: SQLite allows a single writer
//
// All queries order by seq, the autoincrement key, so history reads back in
// append order regardless of clock skew.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/tracks/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - initial schema (pre-migration)
// 1 - added index on transitions.event
const currentSchemaVersion = 1

// Event names a lifecycle transition.
type Event string

const (
	EventCreated        Event = "created"
	EventStarted        Event = "started"
	EventPhaseCompleted Event = "phase_completed"
	EventFinished       Event = "finished"
	EventStatusChanged  Event = "status_changed"
	EventTaskChecked    Event = "task_checked"
	EventTaskUnchecked  Event = "task_unchecked"
	EventPlanReplaced   Event = "plan_replaced"
	EventReverted       Event = "reverted"
	EventDeleted        Event = "deleted"
)

// Entry is one journal row.
type Entry struct {
	Seq    int64        `json:"seq"`
	UnitID string       `json:"unit_id"`
	Event  Event        `json:"event"`
	From   model.Status `json:"from_status,omitempty"`
	To     model.Status `json:"to_status,omitempty"`
	Detail string       `json:"detail,omitempty"`
	At     time.Time    `json:"at"`
}

// Journal is an open transition journal.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal database at path and applies pragmas and
// migrations. Safe to call on an existing database.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect journal %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Append records e and returns its sequence number. Seq on input is ignored.
func (j *Journal) Append(ctx context.Context, e Entry) (int64, error) {
	if e.UnitID == "" || e.Event == "" {
		return 0, fmt.Errorf("append journal entry: unit id and event are required")
	}
	res, err := j.db.ExecContext(ctx, `
		INSERT INTO transitions (unit_id, event, from_status, to_status, detail, at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		e.UnitID,
		string(e.Event),
		string(e.From),
		string(e.To),
		e.Detail,
		e.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("append journal entry for %s: %w", e.UnitID, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append journal entry for %s: %w", e.UnitID, err)
	}
	return seq, nil
}

// ForUnit returns every entry for id in append order.
// Returns an empty slice (not nil) when the unit has no history.
func (j *Journal) ForUnit(ctx context.Context, id string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, unit_id, event, from_status, to_status, detail, at
		FROM transitions
		WHERE unit_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query history of %s: %w", id, err)
	}
	return scanEntries(rows)
}

// Recent returns up to limit entries across all units, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, unit_id, event, from_status, to_status, detail, at
		FROM transitions
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent transitions: %w", err)
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e               Entry
			event, from, to string
			at              string
		)
		if err := rows.Scan(&e.Seq, &e.UnitID, &event, &from, &to, &e.Detail, &at); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("transition %d: parse time %q: %w", e.Seq, at, err)
		}
		e.Event = Event(event)
		e.From = model.Status(from)
		e.To = model.Status(to)
		e.At = ts
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return entries, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return runMigrations(db)
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < 1 {
		if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_transitions_event ON transitions(event)`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (j *Journal) verifyPragma(name, expected string) error {
	var value string
	if err := j.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
