package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/stately/pkg/domain"
)

// Forked is a scratch store seeded from another store.
// Every action its reducer accepts is recorded so it can be applied back onto
// the source with ApplyMutationsBackToOriginalStore. Discarding a fork is just
// dropping it.
type Forked[S any] struct {
	*Store[S]
	source API[S]

	mu    sync.Mutex
	slots []*forkSlot
}

type slotState int

const (
	slotPending slotState = iota
	slotKept
	slotDropped
)

// forkSlot reserves an action's position before the reducer runs, so actions
// dispatched by listeners during fan-out land after the action that caused them.
type forkSlot struct {
	action any
	state  slotState
}

type forkConfig[S any] struct {
	copy func(S) S
	opts []Option[S]
}

// ForkOption configures Fork.
type ForkOption[S any] func(*forkConfig[S])

// WithCopy clones the source state before seeding the fork.
// States that follow the replace-never-mutate rule do not need it.
func WithCopy[S any](fn func(S) S) ForkOption[S] {
	return func(c *forkConfig[S]) {
		c.copy = fn
	}
}

// WithForkOptions passes store options (middleware, logger, ...) to the fork.
// Fork middleware wraps the recorder, so thunks are expanded before recording.
func WithForkOptions[S any](opts ...Option[S]) ForkOption[S] {
	return func(c *forkConfig[S]) {
		c.opts = append(c.opts, opts...)
	}
}

// Fork creates a fork of src using src's reducer and current state.
func Fork[S any](src *Store[S], opts ...ForkOption[S]) (*Forked[S], error) {
	cfg := forkConfig[S]{}
	for _, opt := range opts {
		opt(&cfg)
	}

	seed := src.GetState()
	if cfg.copy != nil {
		seed = cfg.copy(seed)
	}

	f := &Forked[S]{source: src}
	storeOpts := append([]Option[S]{WithName[S](src.Name() + "/fork"), WithLogger[S](src.logger)}, cfg.opts...)
	storeOpts = append(storeOpts, WithMiddleware[S](f.record))

	st, err := New(src.Reducer(), seed, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to fork %s: %w", src.Name(), err)
	}
	f.Store = st
	return f, nil
}

// record is the innermost middleware: it sees only actions that reach the reducer.
func (f *Forked[S]) record(api API[S]) func(next Dispatcher) Dispatcher {
	return func(next Dispatcher) Dispatcher {
		return func(ctx context.Context, action any) (res any, err error) {
			slot := &forkSlot{action: action}
			f.mu.Lock()
			f.slots = append(f.slots, slot)
			f.mu.Unlock()

			committed := false
			defer func() {
				f.mu.Lock()
				defer f.mu.Unlock()
				if committed {
					slot.state = slotKept
					return
				}
				slot.state = slotDropped
				f.slots = slices.DeleteFunc(f.slots, func(s *forkSlot) bool { return s == slot })
			}()

			res, err = next(ctx, action)
			committed = err == nil
			return res, err
		}
	}
}

// Actions returns the recorded actions in dispatch order.
func (f *Forked[S]) Actions() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]any, 0, len(f.slots))
	for _, slot := range f.slots {
		if slot.state == slotKept {
			out = append(out, slot.action)
		}
	}
	return out
}

// ApplyMutationsBackToOriginalStore replays the recorded actions, in order, onto the source.
// Applied actions are forgotten so a second call does not apply them twice.
func (f *Forked[S]) ApplyMutationsBackToOriginalStore(ctx context.Context) error {
	f.mu.Lock()
	var taken []*forkSlot
	var pending []*forkSlot
	for _, slot := range f.slots {
		if slot.state == slotKept {
			taken = append(taken, slot)
		} else {
			pending = append(pending, slot)
		}
	}
	f.slots = pending
	f.mu.Unlock()

	for i, slot := range taken {
		action := slot.action
		if _, err := f.source.Dispatch(ctx, action); err != nil {
			f.mu.Lock()
			f.slots = append(taken[i:len(taken):len(taken)], f.slots...)
			f.mu.Unlock()
			return fmt.Errorf("failed to apply forked action %d (%s): %w", i, domain.ActionType(action), err)
		}
	}
	return nil
}
