package demo_test

import (
	"testing"

	"github.com/aretw0/stately/internal/demo"
	"github.com/aretw0/stately/pkg/replay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduce(t *testing.T) {
	s := demo.Initial()

	s, err := demo.Reduce(s, demo.Increment{By: 3})
	require.NoError(t, err)
	assert.Equal(t, &demo.Counter{Count: 3, Updates: 1}, s)

	same, err := demo.Reduce(s, demo.Increment{})
	require.NoError(t, err)
	assert.Same(t, s, same)

	_, err = demo.Reduce(s, demo.Decrement{By: 4})
	assert.ErrorIs(t, err, demo.ErrNegative)

	s, err = demo.Reduce(s, demo.Decrement{By: 3})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Count)

	reset, err := demo.Reduce(s, demo.Reset{})
	require.NoError(t, err)
	assert.NotSame(t, s, reset)
	assert.Equal(t, demo.Initial(), reset)
}

func TestCodec_UsesStableNames(t *testing.T) {
	raw, err := demo.Codec().Encode(replay.Entry{Action: demo.Decrement{By: 1}, Err: demo.ErrNegative.Error()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"decrement","payload":{"by":1},"error":"counter cannot go negative"}`, raw)
}
