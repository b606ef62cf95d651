package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/stately/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.KeyValueStore using Redis.
// Every key is namespaced with a prefix and tracked in an index set so that
// RemoveAll only deletes keys this store wrote.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for written keys.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "stately:replay:",
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func (s *Store) indexKey() string {
	return s.prefix + "__index"
}

// Get retrieves a value from Redis.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return "", domain.ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to get from redis: %w", err)
	}
	return val, nil
}

// Set writes a value and records the key in the index.
func (s *Store) Set(ctx context.Context, key, value string) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(key), value, s.ttl)
	pipe.SAdd(ctx, s.indexKey(), key)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// RemoveAll deletes every indexed key and the index itself.
func (s *Store) RemoveAll(ctx context.Context) error {
	keys, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to read redis index: %w", err)
	}

	full := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		full = append(full, s.key(k))
	}
	full = append(full, s.indexKey())

	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
