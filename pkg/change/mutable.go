package change

import (
	"fmt"
	"sync/atomic"

	"github.com/aretw0/stately/pkg/domain"
)

// Marker is implemented by intentionally mutable sub-objects of a state tree.
type Marker interface {
	LastMutated() uint64
}

// Mutable is embedded in objects that are mutated in place by reducers.
// Every in-place write must be followed by MarkMutated before the reducer returns.
type Mutable struct {
	tick atomic.Uint64
}

// LastMutated returns the tick of the latest MarkMutated call.
func (m *Mutable) LastMutated() uint64 {
	return m.tick.Load()
}

// MarkMutated stamps the object with the clock's next tick.
// It fails with domain.ErrMutationOutsideWindow unless a dispatch window is open.
func (m *Mutable) MarkMutated(c *Clock) error {
	if c == nil || !c.IsOpen() {
		return domain.ErrMutationOutsideWindow
	}
	m.tick.Store(c.Tick())
	return nil
}

// MustMarkMutated is MarkMutated for reducers that treat the violation as a programming error.
func (m *Mutable) MustMarkMutated(c *Clock) {
	if err := m.MarkMutated(c); err != nil {
		panic(fmt.Sprintf("change: %v", err))
	}
}
