package store

import (
	"context"
	"sync"
	"sync/atomic"
)

type entry[S any] struct {
	fn     func(ctx context.Context, c Change[S])
	active atomic.Bool
	seen   atomic.Uint64
}

// listeners is an ordered, copy-on-notify listener list.
type listeners[S any] struct {
	mu      sync.Mutex
	entries []*entry[S]
}

func (l *listeners[S]) add(fn func(ctx context.Context, c Change[S])) func() {
	e := &entry[S]{fn: fn}
	e.active.Store(true)

	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.active.Store(false)
			l.mu.Lock()
			defer l.mu.Unlock()
			for i, cur := range l.entries {
				if cur == e {
					l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
					return
				}
			}
		})
	}
}

// notify delivers c to every active listener that has not already seen a newer version.
// A nested dispatch inside one callback may deliver a newer change first; the
// outer, older change is then skipped for the listeners that got the newer one.
func (l *listeners[S]) notify(ctx context.Context, c Change[S]) {
	l.mu.Lock()
	snapshot := make([]*entry[S], len(l.entries))
	copy(snapshot, l.entries)
	l.mu.Unlock()

	for _, e := range snapshot {
		if !e.active.Load() {
			continue
		}
		if seen := e.seen.Load(); seen >= c.Version {
			continue
		}
		e.seen.Store(c.Version)
		e.fn(ctx, c)
	}
}

func (l *listeners[S]) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		e.active.Store(false)
	}
	l.entries = nil
}

func (l *listeners[S]) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// disposer is a node of the ownership graph (sub-states, façades).
type disposer interface {
	Dispose()
}

// owner is implemented by sources that dispose their derived children with them.
type owner interface {
	adopt(child disposer) (release func())
}

type children struct {
	mu    sync.Mutex
	items map[disposer]struct{}
}

func (c *children) add(child disposer) func() {
	c.mu.Lock()
	if c.items == nil {
		c.items = make(map[disposer]struct{})
	}
	c.items[child] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.items, child)
			c.mu.Unlock()
		})
	}
}

func (c *children) disposeAll() {
	c.mu.Lock()
	items := make([]disposer, 0, len(c.items))
	for child := range c.items {
		items = append(items, child)
	}
	c.items = nil
	c.mu.Unlock()

	for _, child := range items {
		child.Dispose()
	}
}

type fanoutKey struct{}

// withFanout marks ctx as running inside the fan-out of s.
func withFanout(ctx context.Context, s any) context.Context {
	prev, _ := ctx.Value(fanoutKey{}).(map[any]struct{})
	if _, ok := prev[s]; ok {
		return ctx
	}
	next := make(map[any]struct{}, len(prev)+1)
	for k := range prev {
		next[k] = struct{}{}
	}
	next[s] = struct{}{}
	return context.WithValue(ctx, fanoutKey{}, next)
}

// InFanout reports whether ctx was handed to a listener of src, i.e. whether a
// dispatch made with it is nested inside one of src's dispatches.
func InFanout(ctx context.Context, src any) bool {
	set, _ := ctx.Value(fanoutKey{}).(map[any]struct{})
	_, ok := set[src]
	return ok
}

// Detach returns ctx without the fan-out marks of any store.
// Work started from a listener that outlives the callback (goroutines, timers)
// must dispatch with a detached context so it queues behind in-flight dispatches.
func Detach(ctx context.Context) context.Context {
	if ctx.Value(fanoutKey{}) == nil {
		return ctx
	}
	return context.WithValue(ctx, fanoutKey{}, map[any]struct{}(nil))
}
