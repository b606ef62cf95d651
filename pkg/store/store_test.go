package store_test

import (
	"bytes"
	"context"
	"log/slog"
	"strconv"
	"sync"
	"testing"

	"github.com/aretw0/stately/pkg/change"
	"github.com/aretw0/stately/pkg/domain"
	"github.com/aretw0/stately/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_DispatchIsALeftFold(t *testing.T) {
	ctx := context.Background()
	s := newCounter()
	actions := []any{increment{1}, tag{"a"}, increment{5}, noop{}, tag{"b"}, increment{-2}}

	expected := counter{}
	for _, a := range actions {
		res, err := s.Dispatch(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, a, res, "plain actions are returned as-is")

		expected, err = counterReducer(expected, a)
		require.NoError(t, err)
	}

	assert.Equal(t, expected, s.GetState())
	assert.Equal(t, uint64(5), s.Version(), "noop does not count as a change")
}

func TestStore_ReducerErrorLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	s := newCounter()
	_, err := s.Dispatch(ctx, increment{3})
	require.NoError(t, err)

	calls := 0
	s.OnChange(func(ctx context.Context, c store.Change[counter]) { calls++ })

	_, err = s.Dispatch(ctx, boom{})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 3, s.GetState().Count)
	assert.Zero(t, calls)
}

func TestStore_CountListenerFiresOnce(t *testing.T) {
	ctx := context.Background()
	s := newCounter()

	var got []int
	_, err := store.Listen(s, func(c counter) int { return c.Count }, func(ctx context.Context, v int) {
		got = append(got, v)
	})
	require.NoError(t, err)

	_, err = s.Dispatch(ctx, increment{1})
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, tag{"unrelated"})
	require.NoError(t, err)

	assert.Equal(t, []int{1}, got)
}

func TestStore_NestedDispatchResolvesDepthFirst(t *testing.T) {
	ctx := context.Background()
	s := newCounter()

	var trace []string
	s.OnChange(func(ctx context.Context, c store.Change[counter]) {
		trace = append(trace, "a:"+strconv.Itoa(c.New.Count))
		if c.New.Count == 1 {
			_, err := s.Dispatch(ctx, increment{1})
			require.NoError(t, err)
		}
	})
	s.OnChange(func(ctx context.Context, c store.Change[counter]) {
		trace = append(trace, "b:"+strconv.Itoa(c.New.Count))
	})

	_, err := s.Dispatch(ctx, increment{1})
	require.NoError(t, err)

	assert.Equal(t, []string{"a:1", "a:2", "b:2"}, trace, "b never sees the older state after the newer one")
	assert.Equal(t, 2, s.GetState().Count)
}

func TestStore_ConcurrentDispatch(t *testing.T) {
	ctx := context.Background()
	s := newCounter()

	const workers, dispatches = 8, 200

	var (
		mu       sync.Mutex
		observed []int
	)
	s.OnChange(func(ctx context.Context, c store.Change[counter]) {
		mu.Lock()
		observed = append(observed, c.New.Count)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < dispatches; i++ {
				_, err := s.Dispatch(ctx, increment{1})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*dispatches, s.GetState().Count)
	require.Len(t, observed, workers*dispatches)
	for i := 1; i < len(observed); i++ {
		assert.Greater(t, observed[i], observed[i-1], "listener observed an older value after a newer one")
	}
}

func TestStore_MiddlewareOrder(t *testing.T) {
	ctx := context.Background()
	var trace []string
	tracer := func(name string) store.Middleware[counter] {
		return func(api store.API[counter]) func(next store.Dispatcher) store.Dispatcher {
			return func(next store.Dispatcher) store.Dispatcher {
				return func(ctx context.Context, action any) (any, error) {
					trace = append(trace, name+">")
					res, err := next(ctx, action)
					trace = append(trace, "<"+name)
					return res, err
				}
			}
		}
	}

	s := newCounter(store.WithMiddleware(tracer("outer"), tracer("inner")))
	_, err := s.Dispatch(ctx, increment{1})
	require.NoError(t, err)

	assert.Equal(t, []string{"outer>", "inner>", "<inner", "<outer"}, trace)
}

func TestStore_Destroy(t *testing.T) {
	ctx := context.Background()
	s := newCounter()
	calls := 0
	s.OnChange(func(ctx context.Context, c store.Change[counter]) { calls++ })

	s.Destroy()

	_, err := s.Dispatch(ctx, increment{1})
	assert.ErrorIs(t, err, domain.ErrStoreDestroyed)
	assert.Zero(t, calls)
	assert.Zero(t, s.GetState().Count)
}

type board struct {
	change.Mutable
	Cells []int
}

type paint struct{ Cell int }

func TestStore_MutableSubObject(t *testing.T) {
	ctx := context.Background()
	clock := change.NewClock()
	b := &board{Cells: make([]int, 4)}

	reducer := func(s *board, action any) (*board, error) {
		if p, ok := action.(paint); ok {
			s.Cells[p.Cell]++
			if err := s.MarkMutated(clock); err != nil {
				return s, err
			}
		}
		return s, nil
	}
	s, err := store.New(reducer, b, store.WithClock[*board](clock))
	require.NoError(t, err)

	changes := 0
	s.OnChange(func(ctx context.Context, c store.Change[*board]) { changes++ })

	_, err = s.Dispatch(ctx, paint{Cell: 2})
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, noop{})
	require.NoError(t, err)

	assert.Equal(t, 1, changes, "same reference is a change only when stamped inside the window")
	assert.ErrorIs(t, b.MarkMutated(clock), domain.ErrMutationOutsideWindow)
}

func TestStore_LifecycleHooks(t *testing.T) {
	ctx := context.Background()
	var dispatched, committed, rejected int
	hooks := domain.LifecycleHooks{
		OnDispatch: func(ctx context.Context, e *domain.DispatchEvent) { dispatched++ },
		OnCommit: func(ctx context.Context, e *domain.CommitEvent) {
			committed++
			assert.Equal(t, "counter", e.Store)
		},
		OnReject: func(ctx context.Context, e *domain.CommitEvent) {
			rejected++
			assert.ErrorIs(t, e.Err, errBoom)
		},
	}
	s := newCounter(store.WithName[counter]("counter"), store.WithLifecycleHooks[counter](hooks))

	_, _ = s.Dispatch(ctx, increment{1})
	_, _ = s.Dispatch(ctx, boom{})

	assert.Equal(t, 2, dispatched)
	assert.Equal(t, 1, committed)
	assert.Equal(t, 1, rejected)
}

func TestStore_NewRequiresReducer(t *testing.T) {
	_, err := store.New[counter](nil, counter{})
	assert.Error(t, err)
}

func TestThunkMiddleware(t *testing.T) {
	ctx := context.Background()
	s := newCounter(store.WithMiddleware(store.ThunkMiddleware[counter]("extra")))

	thunk := store.Thunk[counter](func(ctx context.Context, api store.API[counter], extra any) (any, error) {
		if _, err := api.Dispatch(ctx, increment{2}); err != nil {
			return nil, err
		}
		return extra.(string) + ":" + strconv.Itoa(api.GetState().Count), nil
	})
	res, err := s.Dispatch(ctx, thunk)
	require.NoError(t, err)
	assert.Equal(t, "extra:2", res)

	async := store.AsyncThunk[counter](func(ctx context.Context, api store.API[counter], extra any) error {
		_, err := api.Dispatch(ctx, increment{3})
		return err
	})
	res, err = s.Dispatch(ctx, async)
	require.NoError(t, err)
	done, ok := res.(<-chan error)
	require.True(t, ok)
	require.NoError(t, <-done)
	assert.Equal(t, 5, s.GetState().Count)
}

func TestWarnOnNoChange(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	s := newCounter(store.WithMiddleware(store.WarnOnNoChange[counter](logger)))

	_, err := s.Dispatch(ctx, increment{1})
	require.NoError(t, err)
	assert.Empty(t, buf.String())

	_, err = s.Dispatch(ctx, noop{})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "action did not change the state")
	assert.Contains(t, buf.String(), "store_test.noop")
}

type sinkFunc func(ctx context.Context, text string)

func (f sinkFunc) Diagnostic(ctx context.Context, text string) { f(ctx, text) }

func TestDiagnostics(t *testing.T) {
	ctx := context.Background()
	var reports []string
	sink := sinkFunc(func(ctx context.Context, text string) { reports = append(reports, text) })
	s := newCounter(store.WithMiddleware(store.Diagnostics[counter](sink)))

	_, err := s.Dispatch(ctx, increment{4})
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, boom{})
	require.Error(t, err)

	require.Len(t, reports, 2)
	assert.Contains(t, reports[0], "action store_test.increment")
	assert.Contains(t, reports[0], `+  "Count": 4,`)
	assert.Contains(t, reports[1], "failed: boom")
}
