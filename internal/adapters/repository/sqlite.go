package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/okian/followup/internal/domain/lifecycle"
	"github.com/okian/followup/internal/domain/model"
	"github.com/okian/followup/migrations"
	"github.com/okian/followup/pkg/metrics"
)

// SQLiteStore keeps the event log in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens dbPath, applies pragmas and runs migrations.
// ":memory:" gives a private in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}
	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if n, err := s.Count(context.Background()); err == nil {
		metrics.UpdateStoreEvents(n)
	}
	return s, nil
}

func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}
	return nil
}

// RunMigrations applies all pending migrations embedded in the migrations package.
func RunMigrations(db *sql.DB) error {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append inserts events in one transaction. Re-delivered IDs are ignored.
func (s *SQLiteStore) Append(ctx context.Context, events ...model.Event) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreAppendLatency(float64(time.Since(start).Milliseconds()))
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (id, user_id, kind, event_date, reference_id, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("prepare append: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, e := range events {
		e = e.Normalize()
		if e.ID == "" {
			e.ID = ulid.Make().String()
		}
		if err := e.Validate(); err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, e.ID, e.UserID, string(e.Kind), e.EventDate, e.ReferenceID, formatInstant(e.OccurredAt), now); err != nil {
			return fmt.Errorf("insert event %s: %w", e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}

	if n, err := s.Count(ctx); err == nil {
		metrics.UpdateStoreEvents(n)
	}
	return nil
}

// Events returns the events matching f in insertion order.
func (s *SQLiteStore) Events(ctx context.Context, f Filter) ([]model.Event, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()
	if err := f.Validate(); err != nil {
		return nil, err
	}

	query, args := buildEventQuery(f)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var (
			e          model.Event
			kind, inst string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &kind, &e.EventDate, &e.ReferenceID, &inst); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Kind = model.Kind(kind)
		if inst != "" {
			if t, err := time.Parse(time.RFC3339Nano, inst); err == nil {
				e.OccurredAt = t.UTC()
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func buildEventQuery(f Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.ReferenceID != "" {
		where = append(where, "reference_id = ?")
		args = append(args, f.ReferenceID)
	}
	if len(f.Kinds) > 0 {
		marks := make([]string, len(f.Kinds))
		for i, k := range f.Kinds {
			marks[i] = "?"
			args = append(args, string(k))
		}
		where = append(where, "kind IN ("+strings.Join(marks, ", ")+")")
	}
	if f.From != "" {
		where = append(where, "event_date >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		where = append(where, "event_date <= ?")
		args = append(args, f.To)
	}

	q := "SELECT id, user_id, kind, event_date, reference_id, occurred_at FROM events"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	return q + " ORDER BY rowid", args
}

// AppliedDecisions returns the references of all lifecycle markers.
func (s *SQLiteStore) AppliedDecisions(ctx context.Context) (lifecycle.Set, error) {
	events, err := s.Events(ctx, Filter{Kinds: []model.Kind{model.KindLifecycleApplied}})
	if err != nil {
		return nil, err
	}
	return lifecycle.AppliedFromEvents(events), nil
}

// Catalog returns all catalog entries ordered by id.
func (s *SQLiteStore) Catalog(ctx context.Context) ([]model.CatalogEntry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, title, difficulty FROM catalog ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	var out []model.CatalogEntry
	for rows.Next() {
		var (
			e    model.CatalogEntry
			diff string
		)
		if err := rows.Scan(&e.ID, &e.Title, &diff); err != nil {
			return nil, fmt.Errorf("scan catalog: %w", err)
		}
		e.Difficulty = model.Difficulty(diff)
		out = append(out, e)
	}
	return out, rows.Err()
}

// PutCatalog replaces the catalog in one transaction.
func (s *SQLiteStore) PutCatalog(ctx context.Context, entries []model.CatalogEntry) error {
	if err := ValidateCatalog(entries); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM catalog"); err != nil {
		return fmt.Errorf("clear catalog: %w", err)
	}
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO catalog (id, title, difficulty) VALUES (?, ?, ?)",
			e.ID, e.Title, string(e.Difficulty)); err != nil {
			return fmt.Errorf("insert catalog entry %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of stored events.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func formatInstant(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
