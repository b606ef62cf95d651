package replay_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/stately/pkg/adapters/memory"
	"github.com/aretw0/stately/pkg/domain"
	"github.com/aretw0/stately/pkg/replay"
	"github.com/aretw0/stately/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tally struct {
	Count int
}

type increment struct {
	By int `json:"by"`
}

type divide struct {
	By int `json:"by"`
}

type reset struct{}

type unregistered struct{}

func tallyReducer(s *tally, action any) (*tally, error) {
	switch a := action.(type) {
	case increment:
		return &tally{Count: s.Count + a.By}, nil
	case divide:
		if a.By == 0 {
			return s, errors.New("division by zero")
		}
		return &tally{Count: s.Count / a.By}, nil
	case reset:
		return &tally{}, nil
	}
	return s, nil
}

func newCodec() *replay.Codec {
	c := replay.NewCodec()
	replay.Register[increment](c, "increment")
	replay.Register[divide](c, "divide")
	replay.Register[reset](c, "reset")
	return c
}

func newRecorded(t *testing.T, kv *memory.Store) (*store.Store[*tally], *replay.Recorder[*tally]) {
	t.Helper()
	rec, err := replay.NewRecorder[*tally](kv, newCodec(), reset{})
	require.NoError(t, err)
	st, err := store.New(tallyReducer, &tally{}, store.WithMiddleware(rec.Middleware()))
	require.NoError(t, err)
	return st, rec
}

func TestRecorder_ReplayReproducesStateAndErrors(t *testing.T) {
	ctx := context.Background()
	st, rec := newRecorded(t, memory.NewStore())

	_, err := st.Dispatch(ctx, increment{By: 9})
	require.NoError(t, err)
	_, err = st.Dispatch(ctx, divide{By: 0})
	require.EqualError(t, err, "division by zero")
	_, err = st.Dispatch(ctx, divide{By: 3})
	require.NoError(t, err)
	recorded := st.GetState().Count

	count, err := rec.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	_, err = st.Dispatch(ctx, increment{By: 100})
	require.NoError(t, err)

	require.NoError(t, rec.ReplayStore(ctx, st, 3))
	assert.Equal(t, recorded, st.GetState().Count)

	count, err = rec.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count, "replaying must not record")
}

func TestRecorder_PartialReplay(t *testing.T) {
	ctx := context.Background()
	st, rec := newRecorded(t, memory.NewStore())

	for _, by := range []int{1, 2, 3} {
		_, err := st.Dispatch(ctx, increment{By: by})
		require.NoError(t, err)
	}

	require.NoError(t, rec.ReplayStore(ctx, st, 2))
	assert.Equal(t, 3, st.GetState().Count)

	require.NoError(t, rec.ReplayStore(ctx, st, -1))
	assert.Equal(t, 6, st.GetState().Count)
}

func TestRecorder_ReplayDetectsDivergence(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	live, _ := newRecorded(t, kv)

	_, err := live.Dispatch(ctx, increment{By: 1})
	require.NoError(t, err)
	_, err = live.Dispatch(ctx, divide{By: 0})
	require.Error(t, err)

	// The same log replayed against a reducer that no longer fails.
	lenient := func(s *tally, action any) (*tally, error) {
		if _, ok := action.(divide); ok {
			return s, nil
		}
		return tallyReducer(s, action)
	}
	rec, err := replay.NewRecorder[*tally](kv, newCodec(), reset{})
	require.NoError(t, err)
	other, err := store.New(lenient, &tally{})
	require.NoError(t, err)

	err = rec.ReplayStore(ctx, other, -1)
	var mismatch *domain.ReplayMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 1, mismatch.Step)
	assert.Equal(t, "division by zero", mismatch.Want)
	assert.Empty(t, mismatch.Got)
}

func TestRecorder_ResetMustReplaceState(t *testing.T) {
	ctx := context.Background()
	rec, err := replay.NewRecorder[*tally](memory.NewStore(), newCodec(), unregistered{})
	require.NoError(t, err)
	st, err := store.New(tallyReducer, &tally{})
	require.NoError(t, err)

	assert.ErrorIs(t, rec.ResetStore(ctx, st), domain.ErrResetIneffective)
}

func TestRecorder_RejectsUnregisteredActions(t *testing.T) {
	ctx := context.Background()
	st, rec := newRecorded(t, memory.NewStore())
	before := st.GetState()

	_, err := st.Dispatch(ctx, unregistered{})
	assert.ErrorIs(t, err, domain.ErrUnknownAction)
	assert.Same(t, before, st.GetState())

	count, err := rec.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRecorder_EntriesSurviveRecorderRestart(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	st, _ := newRecorded(t, kv)

	_, err := st.Dispatch(ctx, increment{By: 4})
	require.NoError(t, err)

	_, rec := newRecorded(t, kv)
	entries, err := rec.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, increment{By: 4}, entries[0].Action)
	assert.Empty(t, entries[0].Err)

	require.NoError(t, rec.Clear(ctx))
	entries, err = rec.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecorder_NestedDispatchesFollowReducerOrder(t *testing.T) {
	ctx := context.Background()
	st, rec := newRecorded(t, memory.NewStore())

	st.OnChange(func(ctx context.Context, c store.Change[*tally]) {
		if c.New.Count == 1 {
			_, err := st.Dispatch(ctx, increment{By: 10})
			assert.NoError(t, err)
		}
	})

	_, err := st.Dispatch(ctx, increment{By: 1})
	require.NoError(t, err)

	entries, err := rec.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, increment{By: 1}, entries[0].Action)
	assert.Equal(t, increment{By: 10}, entries[1].Action)
}

func TestRecorder_Suspend(t *testing.T) {
	ctx := context.Background()
	st, rec := newRecorded(t, memory.NewStore())

	resume := rec.Suspend()
	assert.False(t, rec.Recording())
	_, err := st.Dispatch(ctx, increment{By: 1})
	require.NoError(t, err)
	resume()
	resume()
	assert.True(t, rec.Recording())

	count, err := rec.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCodec_DecodesLooselyTypedPayloads(t *testing.T) {
	c := newCodec()

	e, err := c.Decode(`{"type":"increment","payload":{"by":"7"}}`)
	require.NoError(t, err)
	assert.Equal(t, increment{By: 7}, e.Action)

	e, err = c.Decode(`{"type":"reset","error":"nope"}`)
	require.NoError(t, err)
	assert.Equal(t, reset{}, e.Action)
	assert.Equal(t, "nope", e.Err)

	_, err = c.Decode(`{"type":"missing"}`)
	assert.ErrorIs(t, err, domain.ErrUnknownAction)

	_, err = c.Decode(`not json`)
	assert.Error(t, err)
}

// flakyKV fails the next Set of failKey once.
type flakyKV struct {
	*memory.Store
	failKey string
}

func (f *flakyKV) Set(ctx context.Context, key, value string) error {
	if key == f.failKey {
		f.failKey = ""
		return errors.New("connection reset")
	}
	return f.Store.Set(ctx, key, value)
}

func TestRecorder_FailedWriteKeepsLogReadable(t *testing.T) {
	ctx := context.Background()
	kv := &flakyKV{Store: memory.NewStore()}
	rec, err := replay.NewRecorder[*tally](kv, newCodec(), reset{})
	require.NoError(t, err)
	st, err := store.New(tallyReducer, &tally{}, store.WithMiddleware(rec.Middleware()))
	require.NoError(t, err)

	_, err = st.Dispatch(ctx, increment{By: 1})
	require.NoError(t, err)
	kv.failKey = "action:1"
	_, err = st.Dispatch(ctx, increment{By: 2})
	require.NoError(t, err, "a logging failure does not fail the dispatch")
	_, err = st.Dispatch(ctx, increment{By: 3})
	require.NoError(t, err)

	entries, err := rec.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, increment{By: 1}, entries[0].Action)
	assert.Equal(t, increment{By: 3}, entries[1].Action)

	require.NoError(t, rec.ReplayStore(ctx, st, -1))
	assert.Equal(t, 4, st.GetState().Count)
}

func TestRecorder_FailedOuterWriteSkipsHole(t *testing.T) {
	ctx := context.Background()
	kv := &flakyKV{Store: memory.NewStore(), failKey: "action:0"}
	rec, err := replay.NewRecorder[*tally](kv, newCodec(), reset{})
	require.NoError(t, err)
	st, err := store.New(tallyReducer, &tally{}, store.WithMiddleware(rec.Middleware()))
	require.NoError(t, err)

	st.OnChange(func(ctx context.Context, c store.Change[*tally]) {
		if c.New.Count == 1 {
			_, err := st.Dispatch(ctx, increment{By: 10})
			assert.NoError(t, err)
		}
	})
	_, err = st.Dispatch(ctx, increment{By: 1})
	require.NoError(t, err)

	count, err := rec.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "the outer index stays reserved once a nested entry follows it")

	entries, err := rec.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, increment{By: 10}, entries[0].Action)
}
