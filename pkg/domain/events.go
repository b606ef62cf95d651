package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventDispatch EventType = "dispatch"
	EventCommit   EventType = "commit"
	EventReject   EventType = "reject"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Store     string    `json:"store"`
}

// DispatchEvent is emitted when an action reaches the reducer.
type DispatchEvent struct {
	EventBase
	ActionType string `json:"action_type"`
}

// CommitEvent is emitted after the reducer ran, successfully or not.
type CommitEvent struct {
	EventBase
	ActionType string `json:"action_type"`
	Version    uint64 `json:"version"`
	Changed    bool   `json:"changed"`
	Err        error  `json:"-"`
}

// LifecycleHooks defines callbacks for store observability.
// Hooks run on the dispatching goroutine inside the reducer critical section,
// so they must be fast and must not dispatch.
type LifecycleHooks struct {
	OnDispatch func(context.Context, *DispatchEvent)
	OnCommit   func(context.Context, *CommitEvent)
	OnReject   func(context.Context, *CommitEvent)
}

// ChainHooks combines hook sets; each callback runs them in argument order.
func ChainHooks(sets ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range sets {
		out.OnDispatch = chain(out.OnDispatch, h.OnDispatch)
		out.OnCommit = chain(out.OnCommit, h.OnCommit)
		out.OnReject = chain(out.OnReject, h.OnReject)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
