package change

import (
	"sync"
	"sync/atomic"
)

// Window is the [Start, End) tick interval bracketing one reducer invocation.
// End is zero while the window is still open.
type Window struct {
	Start uint64
	End   uint64
}

// Contains reports whether tick was stamped inside the window.
func (w Window) Contains(tick uint64) bool {
	if tick <= w.Start {
		return false
	}
	return w.End == 0 || tick < w.End
}

// Clock issues monotonic ticks and tracks dispatch windows.
// A Clock may be shared by several stores (e.g. the inner stores of a composite)
// when their mutable objects are shared too.
type Clock struct {
	now  atomic.Uint64
	open atomic.Int32

	mu   sync.RWMutex
	last Window
}

// NewClock creates a clock starting at tick zero.
func NewClock() *Clock {
	return &Clock{}
}

// Now returns the current tick without advancing it.
func (c *Clock) Now() uint64 {
	return c.now.Load()
}

// Tick advances the clock and returns the new tick.
func (c *Clock) Tick() uint64 {
	return c.now.Add(1)
}

// Open starts a dispatch window.
func (c *Clock) Open() Window {
	c.open.Add(1)
	w := Window{Start: c.Tick()}
	c.mu.Lock()
	c.last = w
	c.mu.Unlock()
	return w
}

// Close ends a window previously returned by Open and returns its closed form.
func (c *Clock) Close(w Window) Window {
	w.End = c.Tick()
	c.mu.Lock()
	if c.last.Start == w.Start {
		c.last = w
	}
	c.mu.Unlock()
	c.open.Add(-1)
	return w
}

// IsOpen reports whether any dispatch window is currently open on this clock.
func (c *Clock) IsOpen() bool {
	return c.open.Load() > 0
}

// Last returns the most recently opened window.
func (c *Clock) Last() Window {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}
