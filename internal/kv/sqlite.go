package kv

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store with one row per collection in a SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string, log *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps every write strictly ordered.
	db.SetMaxOpenConns(1)

	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &SQLiteStore{db: db, path: dbPath, log: log}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS collections (
		name       TEXT PRIMARY KEY,
		data       TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`)
	return err
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Get(ctx context.Context, name string) ([]json.RawMessage, error) {
	doc, ok, err := s.Raw(ctx, name)
	if err != nil || !ok {
		return nil, err
	}

	records, valid := splitDocument(doc)
	if !valid {
		s.log.Warn("malformed collection, reading as empty", "collection", name)
		return nil, nil
	}
	return records, nil
}

func (s *SQLiteStore) Raw(ctx context.Context, name string) ([]byte, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM collections WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(data), true, nil
}

func (s *SQLiteStore) Has(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM collections WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) Put(ctx context.Context, name string, doc json.RawMessage) error {
	return s.Apply(ctx, Batch{ops: []batchOp{{name: name, doc: doc}}})
}

func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	return s.Apply(ctx, Batch{ops: []batchOp{{name: name, delete: true}}})
}

func (s *SQLiteStore) Apply(ctx context.Context, b Batch) error {
	for _, op := range b.ops {
		if !op.delete && !json.Valid(op.doc) {
			return fmt.Errorf("put %s: document is not valid JSON", op.name)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, op := range b.ops {
		if op.delete {
			if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, op.name); err != nil {
				return fmt.Errorf("delete %s: %w", op.name, err)
			}
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO collections (name, data, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
			op.name, string(op.doc), now)
		if err != nil {
			return fmt.Errorf("put %s: %w", op.name, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
