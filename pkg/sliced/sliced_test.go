package sliced_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/stately/pkg/domain"
	"github.com/aretw0/stately/pkg/sliced"
	"github.com/aretw0/stately/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct{ Count int }

type profile struct{ Name string }

type increment struct{}

type rename struct{ Name string }

type explode struct{}

func counterReducer(s counter, action any) (counter, error) {
	switch action.(type) {
	case increment:
		return counter{Count: s.Count + 1}, nil
	case explode:
		return s, errors.New("counter exploded")
	}
	return s, nil
}

func profileReducer(s *profile, action any) (*profile, error) {
	if a, ok := action.(rename); ok {
		return &profile{Name: a.Name}, nil
	}
	return s, nil
}

func newSliced(t *testing.T) *sliced.Store {
	t.Helper()
	s, err := sliced.New()
	require.NoError(t, err)
	return s
}

func TestSliced_AddRemove(t *testing.T) {
	ctx := context.Background()
	s := newSliced(t)

	_, err := s.Dispatch(ctx, sliced.Add("a", counter{}, counterReducer))
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, sliced.Add("b", &profile{Name: "ann"}, profileReducer))
	require.NoError(t, err)

	a, err := sliced.Model[counter](s, "a")
	require.NoError(t, err)

	_, err = s.Dispatch(ctx, sliced.RemoveSlice{Key: "a"})
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, s.GetState().Keys())

	b, err := sliced.Model[*profile](s, "b")
	require.NoError(t, err)
	got, err := b.State()
	require.NoError(t, err)
	assert.Equal(t, "ann", got.Name)

	_, err = sliced.Model[counter](s, "a")
	assert.ErrorIs(t, err, domain.ErrSliceNotFound)

	assert.True(t, a.Disposed())
	_, err = a.State()
	assert.ErrorIs(t, err, domain.ErrSliceNotFound)
	_, err = a.Dispatch(ctx, increment{})
	assert.ErrorIs(t, err, domain.ErrSliceNotFound)
}

func TestSliced_ContractViolations(t *testing.T) {
	ctx := context.Background()
	s := newSliced(t)

	_, err := s.Dispatch(ctx, sliced.Add("a", counter{}, counterReducer))
	require.NoError(t, err)

	_, err = s.Dispatch(ctx, sliced.Add("a", counter{}, counterReducer))
	assert.ErrorIs(t, err, domain.ErrDuplicateSlice)

	_, err = s.Dispatch(ctx, sliced.RemoveSlice{Key: "missing"})
	assert.ErrorIs(t, err, domain.ErrSliceNotFound)

	_, err = sliced.Model[*profile](s, "a")
	assert.ErrorIs(t, err, domain.ErrModelNotFound)
}

func TestSliced_ApplyToAllKeepsUnchangedSlices(t *testing.T) {
	ctx := context.Background()
	s := newSliced(t)

	_, err := s.Dispatch(ctx, sliced.Add("counter", counter{}, counterReducer))
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, sliced.Add("profile", &profile{Name: "ann"}, profileReducer))
	require.NoError(t, err)

	before, _ := s.GetState().Get("profile")
	_, err = s.Dispatch(ctx, increment{})
	require.NoError(t, err)

	after, _ := s.GetState().Get("profile")
	assert.Same(t, before.Model, after.Model)

	c, _ := s.GetState().Get("counter")
	assert.Equal(t, counter{Count: 1}, c.Model)

	version := s.Version()
	_, err = s.Dispatch(ctx, rename{Name: "ann"})
	require.NoError(t, err)
	assert.NotEqual(t, version, s.Version(), "a fresh pointer is a change")

	version = s.Version()
	_, err = s.Dispatch(ctx, struct{}{})
	require.NoError(t, err)
	assert.Equal(t, version, s.Version(), "unhandled actions change nothing")
}

func TestSliced_SliceErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	s := newSliced(t)

	_, err := s.Dispatch(ctx, sliced.Add("counter", counter{}, counterReducer))
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, increment{})
	require.NoError(t, err)

	_, err = s.Dispatch(ctx, explode{})
	assert.EqualError(t, err, "counter exploded")

	c, _ := s.GetState().Get("counter")
	assert.Equal(t, counter{Count: 1}, c.Model)
}

func TestFacade_Listen(t *testing.T) {
	ctx := context.Background()
	s := newSliced(t)

	_, err := s.Dispatch(ctx, sliced.Add("counter", counter{}, counterReducer))
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, sliced.Add("profile", &profile{Name: "ann"}, profileReducer))
	require.NoError(t, err)

	f, err := sliced.Model[counter](s, "counter")
	require.NoError(t, err)

	again, err := sliced.Model[counter](s, "counter")
	require.NoError(t, err)
	assert.Same(t, f, again)

	var seen []int
	_, err = store.Listen(store.Source[counter](f), func(c counter) int { return c.Count }, func(ctx context.Context, n int) {
		seen = append(seen, n)
	})
	require.NoError(t, err)

	_, err = f.Dispatch(ctx, increment{})
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, rename{Name: "bob"})
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, increment{})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, seen)

	_, err = s.Dispatch(ctx, sliced.RemoveSlice{Key: "counter"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seen, "listeners of a removed slice are dropped")
}

func TestSliced_DestroyDisposesFacades(t *testing.T) {
	ctx := context.Background()
	s := newSliced(t)

	_, err := s.Dispatch(ctx, sliced.Add("counter", counter{}, counterReducer))
	require.NoError(t, err)
	f, err := sliced.Model[counter](s, "counter")
	require.NoError(t, err)

	s.Destroy()
	assert.True(t, f.Disposed())
}

func TestFacade_RemovalVisibleBeforeDisposal(t *testing.T) {
	ctx := context.Background()
	var f *sliced.Facade[counter]
	observed := make(chan error, 1)

	s, err := sliced.New(store.WithLifecycleHooks[sliced.State](domain.LifecycleHooks{
		OnCommit: func(_ context.Context, e *domain.CommitEvent) {
			if e.ActionType != domain.ActionType(sliced.RemoveSlice{}) {
				return
			}
			// Reads as soon as the commit releases the state lock, racing the fan-out.
			go func() {
				_, err := f.State()
				observed <- err
			}()
		},
	}))
	require.NoError(t, err)

	_, err = s.Dispatch(ctx, sliced.Add("a", counter{Count: 3}, counterReducer))
	require.NoError(t, err)
	f, err = sliced.Model[counter](s, "a")
	require.NoError(t, err)

	_, err = s.Dispatch(ctx, sliced.RemoveSlice{Key: "a"})
	require.NoError(t, err)
	assert.ErrorIs(t, <-observed, domain.ErrSliceNotFound)
}
