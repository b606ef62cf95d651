/*
Package ports defines the driven ports (interfaces) of stately.

These interfaces decouple the state container from external implementations,
allowing the replay recorder to log actions to any storage backend.

# Key Interfaces

  - KeyValueStore: string-keyed get/set/remove-all persistence, consumed by the
    replay recorder. Adapters live in pkg/adapters (memory, redis, sqlite, badger).
*/
package ports
