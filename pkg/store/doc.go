/*
Package store implements the single-writer state container.

A Store holds one state value and a pure Reducer. Dispatch runs the reducer inside
a critical section, swaps the state on success and then notifies listeners
synchronously on the calling goroutine. Listeners may dispatch again; such nested
dispatches (made with the context the listener received) resolve completely,
reducer and fan-out, before the outer fan-out continues.

# Building blocks

  - Middleware: decorators around the terminal dispatcher. The first middleware
    supplied is the outermost. ThunkMiddleware, WarnOnNoChange and Diagnostics
    live here; metrics and tracing live in pkg/observability.
  - Listen / ListenAsync / ListenUntil: selector based subscriptions that only
    fire when the selected value (or its size) changed.
  - SubState: a derived, disposable Source built from a selector, chainable into
    a tree whose disposal cascades to every descendant.
  - Forked: a scratch copy of a store that records its actions and can apply them
    back onto the original.
*/
package store
