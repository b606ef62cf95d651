// Package sliced hosts heterogeneous models in one store.
//
// The state is an ordered list of slices, each holding a model and the
// reducer for it, keyed by a stable string. AddSlice and RemoveSlice change
// the list; every other action is handed to every slice. Per-model façades
// give typed access to one slice and dispose themselves when it is removed.
package sliced

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/stately/pkg/domain"
	"github.com/aretw0/stately/pkg/store"
)

// Slice is one model of a sliced store.
type Slice struct {
	Key   string
	Model any

	reduce func(model, action any) (any, error)
}

// State is the immutable slice list. Unchanged slices keep their identity
// across dispatches.
type State struct {
	slices []Slice
}

// Keys lists the slice keys in insertion order.
func (s State) Keys() []string {
	keys := make([]string, len(s.slices))
	for i, sl := range s.slices {
		keys[i] = sl.Key
	}
	return keys
}

// Get returns the slice registered under key.
func (s State) Get(key string) (Slice, bool) {
	i := s.index(key)
	if i < 0 {
		return Slice{}, false
	}
	return s.slices[i], true
}

// Len returns the number of slices.
func (s State) Len() int {
	return len(s.slices)
}

func (s State) index(key string) int {
	return slices.IndexFunc(s.slices, func(sl Slice) bool { return sl.Key == key })
}

// AddSlice registers a new slice. Build it with Add.
type AddSlice struct {
	slice Slice
}

// Key returns the key of the slice being added.
func (a AddSlice) Key() string {
	return a.slice.Key
}

// ActionType names the action after its slice.
func (a AddSlice) ActionType() string {
	return "sliced.AddSlice(" + a.slice.Key + ")"
}

// Add builds the action that registers model under key with its reducer.
func Add[T any](key string, model T, reducer store.Reducer[T]) AddSlice {
	return AddSlice{slice: Slice{
		Key:   key,
		Model: model,
		reduce: func(m, action any) (any, error) {
			return reducer(m.(T), action)
		},
	}}
}

// RemoveSlice unregisters the slice under Key.
type RemoveSlice struct {
	Key string
}

// Store is a store.Store over State with typed façades.
type Store struct {
	*store.Store[State]

	mu      sync.Mutex
	facades map[string]facade
}

type facade interface {
	Dispose()
	Disposed() bool
}

// New creates an empty sliced store.
func New(opts ...store.Option[State]) (*Store, error) {
	s := &Store{facades: make(map[string]facade)}
	opts = append([]store.Option[State]{store.WithName[State]("sliced")}, opts...)
	st, err := store.New(s.reduce, State{}, opts...)
	if err != nil {
		return nil, err
	}
	s.Store = st
	st.OnChange(s.disposeRemoved)
	return s, nil
}

func (s *Store) reduce(st State, action any) (State, error) {
	switch a := action.(type) {
	case AddSlice:
		if st.index(a.slice.Key) >= 0 {
			return st, fmt.Errorf("%w: %s", domain.ErrDuplicateSlice, a.slice.Key)
		}
		next := make([]Slice, 0, len(st.slices)+1)
		next = append(next, st.slices...)
		return State{slices: append(next, a.slice)}, nil
	case RemoveSlice:
		i := st.index(a.Key)
		if i < 0 {
			return st, fmt.Errorf("%w: %s", domain.ErrSliceNotFound, a.Key)
		}
		next := make([]Slice, 0, len(st.slices)-1)
		next = append(next, st.slices[:i]...)
		return State{slices: append(next, st.slices[i+1:]...)}, nil
	}

	// The window of the running dispatch is the clock's last one.
	detector := s.Detector()
	var next []Slice
	for i, sl := range st.slices {
		model, err := sl.reduce(sl.Model, action)
		if err != nil {
			return st, err
		}
		if !detector.WasModified(sl.Model, model) {
			continue
		}
		if next == nil {
			next = slices.Clone(st.slices)
		}
		next[i] = Slice{Key: sl.Key, Model: model, reduce: sl.reduce}
	}
	if next == nil {
		return st, nil
	}
	return State{slices: next}, nil
}

// disposeRemoved runs first in every fan-out, so façades of removed slices are
// gone before any other listener sees the change.
func (s *Store) disposeRemoved(ctx context.Context, c store.Change[State]) {
	s.mu.Lock()
	var gone []facade
	for key, f := range s.facades {
		if c.New.index(key) < 0 {
			gone = append(gone, f)
			delete(s.facades, key)
		}
	}
	s.mu.Unlock()

	for _, f := range gone {
		f.Dispose()
	}
}

// Facade is a typed view of one slice. It is a store.Source, so it can be
// listened to and derived from.
type Facade[T any] struct {
	*store.SubState[T]
	owner *Store
	key   string
}

// Model returns the façade for the slice under key.
// Façades are cached per key until their slice is removed.
func Model[T any](s *Store, key string) (*Facade[T], error) {
	sl, ok := s.GetState().Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSliceNotFound, key)
	}
	if _, ok := sl.Model.(T); !ok {
		var zero T
		return nil, fmt.Errorf("%w: slice %s holds %T, not %T", domain.ErrModelNotFound, key, sl.Model, zero)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.facades[key].(*Facade[T]); ok && !cached.Disposed() {
		return cached, nil
	}

	f := &Facade[T]{
		SubState: store.Derive[State, T](s.Store, func(st State) T {
			var zero T
			sl, ok := st.Get(key)
			if !ok {
				return zero
			}
			m, _ := sl.Model.(T)
			return m
		}),
		owner: s,
		key:   key,
	}
	s.facades[key] = f
	return f, nil
}

// Key returns the slice key.
func (f *Facade[T]) Key() string {
	return f.key
}

// State returns the slice's model, or domain.ErrSliceNotFound once the slice was removed.
// The owner's state is consulted directly, so a removal is seen as soon as it
// commits, before the façade is disposed during fan-out.
func (f *Facade[T]) State() (T, error) {
	var zero T
	if f.Disposed() {
		return zero, fmt.Errorf("%w: %s", domain.ErrSliceNotFound, f.key)
	}
	sl, ok := f.owner.GetState().Get(f.key)
	if !ok {
		return zero, fmt.Errorf("%w: %s", domain.ErrSliceNotFound, f.key)
	}
	m, ok := sl.Model.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s", domain.ErrSliceNotFound, f.key)
	}
	return m, nil
}

// Dispatch sends action to the owning store.
func (f *Facade[T]) Dispatch(ctx context.Context, action any) (any, error) {
	if f.Disposed() {
		return nil, fmt.Errorf("%w: %s", domain.ErrSliceNotFound, f.key)
	}
	if _, ok := f.owner.GetState().Get(f.key); !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSliceNotFound, f.key)
	}
	return f.owner.Dispatch(ctx, action)
}
