/*
Package stately is an embeddable, generic state container.

A store holds one immutable state value and changes it only by running a pure
reducer over dispatched actions, one at a time. Around that core the module
provides a middleware chain, structural change detection, listener trees,
undo/redo, transactional forks, action replay, multi-model composition,
dynamic slicing and optimistic remote sync.

# Concept

The state is never mutated: every dispatch that changes something produces a
new value and the change detector compares old and new by reference, so
unchanged sub-trees keep their identity and listeners selecting them stay
quiet. Objects that must be mutated in place embed change.Mutable and stamp
themselves inside the reducer call.

Dispatch runs on the caller's goroutine. Listeners run synchronously after the
commit; a dispatch made from a listener with the context it received is fully
resolved, reducer and fan-out, before the outer fan-out continues.

# Usage

	type counter struct{ Count int }

	type increment struct{}

	func reduce(s counter, action any) (counter, error) {
		if _, ok := action.(increment); ok {
			return counter{Count: s.Count + 1}, nil
		}
		return s, nil
	}

	func main() {
		st, err := stately.New(reduce, counter{}, stately.WithWarnOnNoChange[counter]())
		if err != nil {
			log.Fatal(err)
		}
		store.Listen(store.Source[counter](st), func(s counter) int { return s.Count },
			func(ctx context.Context, n int) { fmt.Println("count:", n) })
		st.Dispatch(context.Background(), increment{})
	}

# Packages

  - pkg/store: Store, middleware, thunks, listeners, sub-states and forks.
  - pkg/change: change detector, dispatch windows and mutable markers.
  - pkg/undo: undo/redo reducer wrapper.
  - pkg/replay: action log recording and deterministic replay.
  - pkg/composite, pkg/sliced: multi-model stores.
  - pkg/outbox: optimistic server actions with retry and rollback.
  - pkg/adapters: key-value backends for the replay log (memory, Redis, SQLite, Badger).
  - pkg/persistence/middleware: key-value decorators such as encryption at rest.
  - pkg/observability: Prometheus metrics and OpenTelemetry tracing.
*/
package stately
