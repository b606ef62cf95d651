package store

import (
	"context"
	"sync"

	"github.com/aretw0/stately/pkg/change"
)

// SubState is a derived, read-only view of a parent source.
// It registers against its parent lazily, on the first OnChange, and can be
// derived from again to form a tree. Dispose tears down the whole subtree.
type SubState[T any] struct {
	get      func() T
	attach   func(fn func(ctx context.Context, next T, version uint64, w change.Window)) func()
	detector *change.Detector

	mu       sync.Mutex
	attached bool
	disposed bool
	last     T
	detach   func()
	release  func()

	listeners listeners[T]
	children  children
}

// Derive creates a SubState selecting a value out of parent.
// When parent is a Store or another SubState, disposing the parent disposes the child.
func Derive[S, T any](parent Source[S], selector func(S) T) *SubState[T] {
	sub := &SubState[T]{
		get:      func() T { return selector(parent.GetState()) },
		detector: parent.Detector(),
	}
	sub.attach = func(fn func(ctx context.Context, next T, version uint64, w change.Window)) func() {
		return parent.OnChange(func(ctx context.Context, c Change[S]) {
			fn(ctx, selector(c.New), c.Version, c.Window)
		})
	}
	if o, ok := parent.(owner); ok {
		sub.release = o.adopt(sub)
	}
	return sub
}

// GetState returns the selected value of the parent's current state.
func (s *SubState[T]) GetState() T {
	return s.get()
}

// Detector returns the parent's change detector.
func (s *SubState[T]) Detector() *change.Detector {
	return s.detector
}

// OnChange registers fn and, on first use, attaches the SubState to its parent.
func (s *SubState[T]) OnChange(fn func(ctx context.Context, c Change[T])) (remove func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return func() {}
	}
	remove = s.listeners.add(fn)
	if !s.attached {
		s.attached = true
		s.last = s.get()
		s.detach = s.attach(s.onParentChange)
	}
	return remove
}

func (s *SubState[T]) adopt(child disposer) (release func()) {
	return s.children.add(child)
}

// Disposed reports whether Dispose was called.
func (s *SubState[T]) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Dispose detaches from the parent, drops listeners and disposes every descendant.
func (s *SubState[T]) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	detach, release := s.detach, s.release
	s.mu.Unlock()

	if detach != nil {
		detach()
	}
	s.children.disposeAll()
	s.listeners.clear()
	if release != nil {
		release()
	}
}

func (s *SubState[T]) onParentChange(ctx context.Context, next T, version uint64, w change.Window) {
	s.mu.Lock()
	if s.disposed || !s.detector.WasModifiedIn(w, s.last, next) {
		s.mu.Unlock()
		return
	}
	old := s.last
	s.last = next
	s.mu.Unlock()

	s.listeners.notify(ctx, Change[T]{Old: old, New: next, Version: version, Window: w})
}
