// Package undo wraps any reducer with past/future history.
package undo

import (
	"github.com/aretw0/stately/pkg/domain"
	"github.com/aretw0/stately/pkg/store"
)

// History is the state managed by a wrapped reducer.
// Past is ordered oldest first; Future is ordered with the next redo last.
type History[S any] struct {
	Past    []S
	Present S
	Future  []S
}

// Undo restores the previous state.
type Undo struct{}

// Redo re-applies the most recently undone state.
type Redo struct{}

// ClearHistory drops both stacks and keeps the present state.
type ClearHistory struct{}

// CanUndo reports whether Undo would succeed.
func (h History[S]) CanUndo() bool { return len(h.Past) > 0 }

// CanRedo reports whether Redo would succeed.
func (h History[S]) CanRedo() bool { return len(h.Future) > 0 }

// New creates an empty history around initial.
func New[S any](initial S) History[S] {
	return History[S]{Present: initial}
}

type config struct {
	limit int
}

// Option configures Wrap.
type Option func(*config)

// WithLimit keeps at most n past states. Zero means unbounded.
func WithLimit(n int) Option {
	return func(c *config) {
		c.limit = n
	}
}

// Wrap turns base into a reducer over History[S].
// Undo and Redo on an empty stack fail with domain.ErrNothingToUndo / domain.ErrNothingToRedo.
func Wrap[S any](base store.Reducer[S], opts ...Option) store.Reducer[History[S]] {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(h History[S], action any) (History[S], error) {
		switch action.(type) {
		case Undo:
			if len(h.Past) == 0 {
				return h, domain.ErrNothingToUndo
			}
			last := len(h.Past) - 1
			return History[S]{
				Past:    h.Past[:last:last],
				Present: h.Past[last],
				Future:  push(h.Future, h.Present, 0),
			}, nil
		case Redo:
			if len(h.Future) == 0 {
				return h, domain.ErrNothingToRedo
			}
			last := len(h.Future) - 1
			return History[S]{
				Past:    push(h.Past, h.Present, cfg.limit),
				Present: h.Future[last],
				Future:  h.Future[:last:last],
			}, nil
		case ClearHistory:
			if len(h.Past) == 0 && len(h.Future) == 0 {
				return h, nil
			}
			return History[S]{Present: h.Present}, nil
		}

		next, err := base(h.Present, action)
		if err != nil {
			return h, err
		}
		return History[S]{
			Past:    push(h.Past, h.Present, cfg.limit),
			Present: next,
		}, nil
	}
}

// push returns a new slice; older histories keep sharing their own backing arrays.
func push[S any](stack []S, v S, limit int) []S {
	start := 0
	if limit > 0 && len(stack) >= limit {
		start = len(stack) - limit + 1
	}
	out := make([]S, 0, len(stack)-start+1)
	out = append(out, stack[start:]...)
	return append(out, v)
}
