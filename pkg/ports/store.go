package ports

import "context"

// KeyValueStore defines the persistence contract of the replay log.
// Keys and values are plain strings; the recorder owns the encoding.
type KeyValueStore interface {
	// Get returns the value stored under key.
	// Returns domain.ErrKeyNotFound if the key does not exist.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// RemoveAll deletes every key owned by the store.
	RemoveAll(ctx context.Context) error
}
