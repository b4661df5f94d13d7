// Package kgstore keeps the plant knowledge graph as subject/predicate/object
// triples in SQLite and answers the lookups the HTTP service exposes.
package kgstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// Triple is one statement of the graph. Subjects and predicates are usually
// URIs; objects are URIs or literals.
type Triple struct {
	S, P, O string
}

// Store is a SQLite-backed triple store. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path. Use ":memory:" for
// a private in-memory store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

func (s *Store) createSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS triples (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			s TEXT NOT NULL,
			p TEXT NOT NULL,
			o TEXT NOT NULL,
			s_label TEXT NOT NULL,
			s_label_lc TEXT NOT NULL,
			p_label TEXT NOT NULL,
			o_label TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_triples_s ON triples(s)`,
		`CREATE INDEX IF NOT EXISTS idx_triples_o ON triples(o)`,
		`CREATE INDEX IF NOT EXISTS idx_triples_s_label ON triples(s_label)`,
		`CREATE INDEX IF NOT EXISTS idx_triples_s_label_lc ON triples(s_label_lc)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Insert appends triples in order inside one transaction.
func (s *Store) Insert(ctx context.Context, triples ...Triple) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := insertTx(ctx, tx, triples); err != nil {
		return err
	}
	return tx.Commit()
}

func insertTx(ctx context.Context, tx *sql.Tx, triples []Triple) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO triples (s, p, o, s_label, s_label_lc, p_label, o_label)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range triples {
		sl := ExtractLabel(t.S)
		if _, err := stmt.ExecContext(ctx, t.S, t.P, t.O, sl, strings.ToLower(sl), ExtractLabel(t.P), ExtractLabel(t.O)); err != nil {
			return fmt.Errorf("insert %s %s %s: %w", t.S, t.P, t.O, err)
		}
	}
	return nil
}

// Count returns the number of stored triples.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM triples`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count triples: %w", err)
	}
	return n, nil
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
