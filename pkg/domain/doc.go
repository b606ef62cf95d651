/*
Package domain contains the shared vocabulary of the stately state container.

It defines the error values every other package reports, the lifecycle events a
store emits, and small helpers for naming actions. This package is kept pure and
free of external dependencies like I/O or persistence.

# Key Entities

  - Errors: contract violations (duplicate slices, mutations outside a dispatch
    window, unstable selectors, empty undo history) and data errors (replay
    divergence).
  - DispatchEvent / CommitEvent: observability payloads delivered through
    LifecycleHooks.
  - ActionType: a stable, human readable name for a runtime-typed action.
*/
package domain
