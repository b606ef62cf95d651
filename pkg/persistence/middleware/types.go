// Package middleware decorates key-value stores with cross-cutting behavior.
package middleware

import "github.com/aretw0/stately/pkg/ports"

// Middleware allows wrapping a KeyValueStore to add behavior.
type Middleware func(ports.KeyValueStore) ports.KeyValueStore

// Chain applies mws to kv so that the first middleware is the outermost.
func Chain(kv ports.KeyValueStore, mws ...Middleware) ports.KeyValueStore {
	for i := len(mws) - 1; i >= 0; i-- {
		kv = mws[i](kv)
	}
	return kv
}
