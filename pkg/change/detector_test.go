package change_test

import (
	"math"
	"testing"

	"github.com/aretw0/stately/pkg/change"
	"github.com/aretw0/stately/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X, Y int
}

type tree struct {
	Name  string
	Items []string
	Meta  map[string]int
	Child *point
}

type bag struct {
	change.Mutable
	Items []int
}

func TestDetector_ValueLike(t *testing.T) {
	d := change.NewDetector(nil)

	assert.False(t, d.WasModified(1, 1))
	assert.True(t, d.WasModified(1, 2))
	assert.False(t, d.WasModified("a", "a"))
	assert.False(t, d.WasModified(point{1, 2}, point{1, 2}))
	assert.True(t, d.WasModified(point{1, 2}, point{2, 2}))
	assert.True(t, d.WasModified(1, int64(1)), "different types are always modified")
}

func TestDetector_FloatsCompareBitwise(t *testing.T) {
	d := change.NewDetector(nil)
	nan := math.NaN()

	assert.False(t, d.WasModified(nan, nan))
	assert.False(t, d.WasModified(float32(nan), float32(nan)))
	assert.False(t, d.WasModified(complex(nan, 1), complex(nan, 1)))
	assert.False(t, d.WasModified(struct{ V float64 }{nan}, struct{ V float64 }{nan}))
	assert.True(t, d.WasModified(1.5, 2.5))
	assert.True(t, d.WasModified(complex(1, 1), complex(1, 2)))
}

func TestDetector_Nil(t *testing.T) {
	d := change.NewDetector(nil)

	assert.False(t, d.WasModified(nil, nil))
	assert.True(t, d.WasModified(nil, 1))
	assert.True(t, d.WasModified(&point{}, nil))

	var p *point
	assert.False(t, d.WasModified(p, p))
}

func TestDetector_References(t *testing.T) {
	d := change.NewDetector(nil)

	p := &point{1, 2}
	assert.False(t, d.WasModified(p, p))
	assert.True(t, d.WasModified(p, &point{1, 2}), "equal content behind a new pointer is a new reference")

	items := []string{"a", "b"}
	assert.False(t, d.WasModified(items, items))
	assert.True(t, d.WasModified(items, append([]string(nil), items...)))
	assert.True(t, d.WasModified(items[:1], items), "same backing array with a new length is modified")

	m := map[string]int{"a": 1}
	assert.False(t, d.WasModified(m, m))
	assert.True(t, d.WasModified(m, map[string]int{"a": 1}))
}

func TestDetector_StructuralSharing(t *testing.T) {
	d := change.NewDetector(nil)

	old := tree{Name: "t", Items: []string{"a"}, Meta: map[string]int{}, Child: &point{}}
	same := old
	assert.False(t, d.WasModified(old, same), "a copy sharing every reference is untouched")

	renamed := old
	renamed.Name = "u"
	assert.True(t, d.WasModified(old, renamed))

	regrown := old
	regrown.Items = append([]string{}, old.Items...)
	assert.True(t, d.WasModified(old, regrown))
}

func TestDetector_MutableMarker(t *testing.T) {
	clock := change.NewClock()
	d := change.NewDetector(clock)
	b := &bag{}

	w := clock.Open()
	b.Items = append(b.Items, 1)
	require.NoError(t, b.MarkMutated(clock))
	w = clock.Close(w)

	assert.True(t, d.WasModifiedIn(w, b, b), "stamp inside the window")
	assert.True(t, d.WasModified(b, b), "latest window is used by default")

	next := clock.Open()
	next = clock.Close(next)
	assert.False(t, d.WasModifiedIn(next, b, b), "stamp from an older window")
	assert.False(t, d.WasModified(b, b))
}

func TestDetector_MutableInsideStruct(t *testing.T) {
	clock := change.NewClock()
	d := change.NewDetector(clock)

	type state struct {
		Count int
		Bag   *bag
	}
	s := state{Bag: &bag{}}

	w := clock.Open()
	s.Bag.MustMarkMutated(clock)
	w = clock.Close(w)

	assert.True(t, d.WasModifiedIn(w, s, s))
}

func TestMutable_OutsideWindow(t *testing.T) {
	clock := change.NewClock()
	b := &bag{}

	err := b.MarkMutated(clock)
	assert.ErrorIs(t, err, domain.ErrMutationOutsideWindow)
	assert.Zero(t, b.LastMutated())

	assert.Panics(t, func() { b.MustMarkMutated(clock) })
	assert.ErrorIs(t, b.MarkMutated(nil), domain.ErrMutationOutsideWindow)
}

func TestClock_Windows(t *testing.T) {
	clock := change.NewClock()
	assert.False(t, clock.IsOpen())

	w := clock.Open()
	assert.True(t, clock.IsOpen())
	assert.Zero(t, w.End)

	tick := clock.Tick()
	assert.True(t, w.Contains(tick))
	assert.False(t, w.Contains(w.Start))

	w = clock.Close(w)
	assert.False(t, clock.IsOpen())
	assert.False(t, w.Contains(w.End))
	assert.Equal(t, w, clock.Last())
}
