// Package sqlite mirrors the merged output into a SQLite table.
//
// The table is dropped and recreated with every column typed TEXT, and all
// rows are inserted inside one transaction, so the table is either the full
// result of the run or left as it was before.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"onmcombine/internal/record"

	_ "modernc.org/sqlite"
)

// Config holds the SQLite mirror configuration.
type Config struct {
	DSN   string // e.g. "onm.db" or "file:onm.db?_pragma=busy_timeout(5000)"
	Table string
}

// Sink is a sink.Sink backed by database/sql and modernc.org/sqlite.
type Sink struct {
	db    *sql.DB
	table string
	tx    *sql.Tx
	stmt  *sql.Stmt
	done  bool
}

// Open connects to the database named by cfg.DSN.
func Open(ctx context.Context, cfg Config) (*Sink, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, fmt.Errorf("sqlite: table must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One connection keeps the transaction and the prepared statement on the
	// same underlying handle.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Sink{db: db, table: cfg.Table}, nil
}

// quoteIdent quotes s as a SQLite identifier.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// WriteHeader recreates the table and prepares the insert statement.
func (s *Sink) WriteHeader(ctx context.Context, fields []string) error {
	if len(fields) == 0 {
		return fmt.Errorf("sqlite: no columns")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	s.tx = tx

	cols := make([]string, len(fields))
	marks := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = quoteIdent(f)
		marks[i] = "?"
	}

	table := quoteIdent(s.table)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("sqlite: drop table: %w", err)
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s TEXT)", table, strings.Join(cols, " TEXT, "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlite: create table: %w", err)
	}

	ins := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(marks, ", "))
	stmt, err := tx.PrepareContext(ctx, ins)
	if err != nil {
		return fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	s.stmt = stmt
	return nil
}

// WriteRow inserts one row. The missing-value sentinel is stored as NULL.
func (s *Sink) WriteRow(ctx context.Context, values []string) error {
	args := make([]any, len(values))
	for i, v := range values {
		if v == record.Missing {
			continue
		}
		args[i] = v
	}
	if _, err := s.stmt.ExecContext(ctx, args...); err != nil {
		return fmt.Errorf("sqlite: insert: %w", err)
	}
	return nil
}

// Commit commits the load transaction and closes the database.
func (s *Sink) Commit(_ context.Context) error {
	if s.done {
		return nil
	}
	if s.stmt != nil {
		s.stmt.Close()
	}
	if s.tx != nil {
		if err := s.tx.Commit(); err != nil {
			return fmt.Errorf("sqlite: commit: %w", err)
		}
	}
	s.done = true
	return s.db.Close()
}

// Abort rolls the transaction back and closes the database.
func (s *Sink) Abort() error {
	if s.done {
		return nil
	}
	s.done = true
	if s.stmt != nil {
		s.stmt.Close()
	}
	if s.tx != nil {
		_ = s.tx.Rollback()
	}
	return s.db.Close()
}
