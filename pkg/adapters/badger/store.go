// Package badger provides a BadgerDB-backed ports.KeyValueStore.
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/stately/pkg/domain"
	backend "github.com/dgraph-io/badger/v4"
)

// Config describes how to open the database.
type Config struct {
	// Path is the data directory. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	InMemory bool

	// Logger receives BadgerDB's internal logs. Nil disables them.
	Logger *slog.Logger
}

// Store implements ports.KeyValueStore on top of BadgerDB.
type Store struct {
	db *backend.DB
}

// Open opens a database according to cfg.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("badger path is required unless InMemory is set")
	}

	var opts backend.Options
	if cfg.InMemory {
		opts = backend.DefaultOptions("").WithInMemory(true)
	} else {
		opts = backend.DefaultOptions(cfg.Path)
	}
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := backend.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory is a convenience function for tests and ephemeral logs.
func OpenInMemory() (*Store, error) {
	return Open(Config{InMemory: true})
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value []byte
	err := s.db.View(func(txn *backend.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, backend.ErrKeyNotFound) {
			return "", domain.ErrKeyNotFound
		}
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return string(value), nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	err := s.db.Update(func(txn *backend.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// RemoveAll drops every key in the database.
func (s *Store) RemoveAll(ctx context.Context) error {
	if err := s.db.DropAll(); err != nil {
		return fmt.Errorf("drop all: %w", err)
	}
	return nil
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
