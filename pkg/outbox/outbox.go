// Package outbox queues optimistic server actions and delivers them.
//
// Wrap adds an ordered outbox to any state. Dispatching a ServerAction reduces
// it locally right away and appends it to the outbox; a Syncer then sends it,
// retrying transient failures, rolling back on permanent ones and finally
// dispatching Remove for it.
package outbox

import (
	"context"
	"slices"

	"github.com/aretw0/stately/pkg/store"
	"github.com/google/uuid"
)

// Result is the outcome of delivering a server action.
type Result int

const (
	// Success means the server accepted the action.
	Success Result = iota
	// Retry means the delivery failed transiently.
	Retry
	// Fail means the server refused the action for good.
	Fail
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Retry:
		return "retry"
	case Fail:
		return "fail"
	}
	return "unknown"
}

// ServerAction is an action applied locally first and confirmed remotely later.
type ServerAction interface {
	ID() string
	SendToServer(ctx context.Context) Result
	RollbackLocalChanges(ctx context.Context, reason error)
}

// State pairs an inner state with its pending server actions.
type State[S any] struct {
	Inner  S
	Outbox []ServerAction
}

// Remove drops the server action with the given ID from the outbox.
type Remove struct {
	ID string
}

// NewID returns a fresh identity for a server action.
func NewID() string {
	return uuid.NewString()
}

// Wrap extends base with an outbox. Server actions are reduced by base first;
// if base rejects them they are not queued.
func Wrap[S any](base store.Reducer[S]) store.Reducer[State[S]] {
	return func(st State[S], action any) (State[S], error) {
		if rm, ok := action.(Remove); ok {
			i := slices.IndexFunc(st.Outbox, func(a ServerAction) bool { return a.ID() == rm.ID })
			if i < 0 {
				return st, nil
			}
			return State[S]{Inner: st.Inner, Outbox: slices.Delete(slices.Clone(st.Outbox), i, i+1)}, nil
		}

		inner, err := base(st.Inner, action)
		if err != nil {
			return st, err
		}
		next := State[S]{Inner: inner, Outbox: st.Outbox}
		if sa, ok := action.(ServerAction); ok {
			queue := make([]ServerAction, 0, len(st.Outbox)+1)
			next.Outbox = append(append(queue, st.Outbox...), sa)
		}
		return next, nil
	}
}
