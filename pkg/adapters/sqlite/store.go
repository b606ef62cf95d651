// Package sqlite provides a SQLite-backed ports.KeyValueStore.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/stately/pkg/domain"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS %s (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// Store persists key-value pairs in one SQLite table.
type Store struct {
	sqlDB *sql.DB
	table string
}

// Option configures Open.
type Option func(*Store)

// WithTable overrides the table name (default "stately_kv").
func WithTable(name string) Option {
	return func(s *Store) {
		s.table = name
	}
}

// Open opens (or creates) the database at path. Use ":memory:" for an ephemeral store.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	sqlDB.SetMaxOpenConns(1)

	s := &Store{sqlDB: sqlDB, table: "stately_kv"}
	for _, opt := range opts {
		opt(s)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(fmt.Sprintf(schema, s.table)); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}
	return s, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.sqlDB.QueryRowContext(ctx, fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, s.table), key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrKeyNotFound
		}
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

// Set upserts value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.sqlDB.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, s.table),
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// RemoveAll empties the table.
func (s *Store) RemoveAll(ctx context.Context) error {
	if _, err := s.sqlDB.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, s.table)); err != nil {
		return fmt.Errorf("remove all: %w", err)
	}
	return nil
}
