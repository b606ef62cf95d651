package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/stately/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunKeyValueStoreContract runs a suite of tests to verify that a KeyValueStore implementation
// adheres to the defined interface contract.
func RunKeyValueStoreContract(t *testing.T, store KeyValueStore) {
	ctx := context.Background()
	prefix := "contract-" + time.Now().Format("20060102150405") + ":"

	t.Run("Set and Get", func(t *testing.T) {
		err := store.Set(ctx, prefix+"a", `{"type":"increment"}`)
		require.NoError(t, err, "Set should not return error")

		got, err := store.Get(ctx, prefix+"a")
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, `{"type":"increment"}`, got)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, prefix+"b", "1"))
		require.NoError(t, store.Set(ctx, prefix+"b", "2"))

		got, err := store.Get(ctx, prefix+"b")
		require.NoError(t, err)
		assert.Equal(t, "2", got)
	})

	t.Run("Empty value", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, prefix+"empty", ""))

		got, err := store.Get(ctx, prefix+"empty")
		require.NoError(t, err, "an empty value is still a value")
		assert.Empty(t, got)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, prefix+"missing")
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})

	t.Run("RemoveAll", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, prefix+"c", "x"))
		require.NoError(t, store.Set(ctx, prefix+"d", "y"))

		require.NoError(t, store.RemoveAll(ctx), "RemoveAll should not return error")

		for _, key := range []string{"a", "b", "c", "d"} {
			_, err := store.Get(ctx, prefix+key)
			assert.ErrorIs(t, err, domain.ErrKeyNotFound, "Get after RemoveAll should return ErrKeyNotFound")
		}

		require.NoError(t, store.Set(ctx, prefix+"e", "z"), "the store stays usable after RemoveAll")
		got, err := store.Get(ctx, prefix+"e")
		require.NoError(t, err)
		assert.Equal(t, "z", got)
	})
}
