// Package sqlitestore keeps item visibility records in a SQLite database.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/idilsaglam/issuestash/internal/model"
)

// maxBatch bounds the number of bound parameters per IN (...) query.
const maxBatch = 500

// Store implements the visibility map on top of *sql.DB.
type Store struct {
	db *sql.DB

	upsert *sql.Stmt
}

// Open opens (or creates) the database at path and migrates it.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := NewMigrationRunner(db).Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already-opened and migrated database.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	var err error
	s.upsert, err = db.Prepare(`
		INSERT INTO items (id, number, title, is_visible, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			number = excluded.number,
			title = excluded.title,
			is_visible = excluded.is_visible,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}
	return s, nil
}

// GetMany returns the records that exist among ids.
func (s *Store) GetMany(ctx context.Context, ids []string) (map[string]model.Item, error) {
	out := make(map[string]model.Item, len(ids))
	for start := 0; start < len(ids); start += maxBatch {
		end := min(start+maxBatch, len(ids))
		if err := s.getBatch(ctx, ids[start:end], out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) getBatch(ctx context.Context, ids []string, out map[string]model.Item) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := `SELECT id, number, title, is_visible FROM items WHERE id IN (?` +
		strings.Repeat(",?", len(ids)-1) + `)`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it model.Item
		if err := rows.Scan(&it.ID, &it.Ref.Number, &it.Ref.Title, &it.IsVisible); err != nil {
			return fmt.Errorf("scan item: %w", err)
		}
		out[it.ID] = it
	}
	return rows.Err()
}

// Put upserts items in a single transaction.
func (s *Store) Put(ctx context.Context, items ...model.Item) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt := tx.StmtContext(ctx, s.upsert)
	now := time.Now().UTC().Format(time.RFC3339)
	for _, it := range items {
		if it.ID == "" {
			return errors.New("put: item without id")
		}
		if _, err := stmt.ExecContext(ctx, it.ID, it.Ref.Number, it.Ref.Title, it.IsVisible, now); err != nil {
			return fmt.Errorf("upsert %s: %w", it.ID, err)
		}
	}
	return tx.Commit()
}

// Close releases prepared statements and the database handle.
func (s *Store) Close() error {
	if s.upsert != nil {
		s.upsert.Close()
	}
	return s.db.Close()
}
