// Package composite combines independently reduced stores behind one Dispatch.
package composite

import (
	"context"
	"fmt"
	"reflect"

	"github.com/aretw0/stately/pkg/domain"
)

// Part is an inner store: a store.Store, a store.Forked, a sliced.Store or
// another composite.
type Part interface {
	Dispatch(ctx context.Context, action any) (any, error)
}

// Store fans every action out to two parts, secondary first.
type Store struct {
	primary   Part
	secondary Part
}

// New combines primary and secondary.
func New(primary, secondary Part) *Store {
	return &Store{primary: primary, secondary: secondary}
}

// Primary returns the primary part.
func (s *Store) Primary() Part {
	return s.primary
}

// Secondary returns the secondary part.
func (s *Store) Secondary() Part {
	return s.secondary
}

// Dispatch sends action to the secondary part, then to the primary part.
// An error from the secondary part stops the dispatch.
//
// When a part returns the action itself, that result is returned (primary
// first); otherwise the primary part's result is.
func (s *Store) Dispatch(ctx context.Context, action any) (any, error) {
	secondary, err := s.secondary.Dispatch(ctx, action)
	if err != nil {
		return nil, err
	}
	primary, err := s.primary.Dispatch(ctx, action)
	if err != nil {
		return nil, err
	}

	switch {
	case untransformed(primary, action):
		return primary, nil
	case untransformed(secondary, action):
		return secondary, nil
	}
	return primary, nil
}

// Destroy destroys both parts when they support it.
func (s *Store) Destroy() {
	for _, p := range []Part{s.secondary, s.primary} {
		if d, ok := p.(interface{ Destroy() }); ok {
			d.Destroy()
		}
	}
}

// StateOf returns the state of the first part, depth-first and primary first,
// whose state has type T.
func StateOf[T any](p Part) (T, error) {
	switch v := p.(type) {
	case interface{ GetState() T }:
		return v.GetState(), nil
	case *Store:
		if st, err := StateOf[T](v.primary); err == nil {
			return st, nil
		}
		return StateOf[T](v.secondary)
	}
	var zero T
	return zero, fmt.Errorf("%w: %s", domain.ErrModelNotFound, reflect.TypeFor[T]())
}

func untransformed(result, action any) bool {
	if result == nil || action == nil {
		return result == nil && action == nil
	}
	rv, av := reflect.ValueOf(result), reflect.ValueOf(action)
	if rv.Type() != av.Type() || !rv.Comparable() {
		return false
	}
	return rv.Equal(av)
}
