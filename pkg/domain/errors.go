package domain

import (
	"errors"
	"fmt"
)

// ErrStoreDestroyed is returned when dispatching to a store after Destroy.
var ErrStoreDestroyed = errors.New("store destroyed")

// ErrMutationOutsideWindow is returned when a mutable object is marked while no dispatch window is open.
var ErrMutationOutsideWindow = errors.New("mutation outside dispatch window")

// ErrNothingToUndo is returned when an undo is requested with an empty past.
var ErrNothingToUndo = errors.New("nothing to undo")

// ErrNothingToRedo is returned when a redo is requested with an empty future.
var ErrNothingToRedo = errors.New("nothing to redo")

// ErrDuplicateSlice is returned when a slice key is registered twice.
var ErrDuplicateSlice = errors.New("duplicate slice")

// ErrSliceNotFound is returned when a slice key is not registered (or was removed).
var ErrSliceNotFound = errors.New("slice not found")

// ErrModelNotFound is returned when no inner store of a composite holds the requested model type.
var ErrModelNotFound = errors.New("model not found")

// ErrResetIneffective is returned when a reset action leaves the state reference untouched.
var ErrResetIneffective = errors.New("reset action did not replace the state")

// ErrKeyNotFound is returned by key-value stores when a key does not exist.
var ErrKeyNotFound = errors.New("key not found")

// ErrUnknownAction is returned when a recorded action type has no registered decoder.
var ErrUnknownAction = errors.New("unknown action type")

// ErrServerRejected is the rollback reason of a server action the server refused.
var ErrServerRejected = errors.New("server rejected action")

// ErrRetriesExhausted is the rollback reason of a server action that kept asking for a retry.
var ErrRetriesExhausted = errors.New("retries exhausted")

// UnstableSelectorError reports a selector that returns values the change
// detector considers different when called twice on the same state.
type UnstableSelectorError struct {
	Selected string
}

func (e *UnstableSelectorError) Error() string {
	return fmt.Sprintf("unstable selector: repeated calls on the same state return modified values (%s); return existing references instead of allocating", e.Selected)
}

// ReplayMismatchError reports a replayed step whose outcome differs from the recording.
type ReplayMismatchError struct {
	Step int
	Want string
	Got  string
}

func (e *ReplayMismatchError) Error() string {
	return fmt.Sprintf("replay diverged at step %d: recorded error %q, replayed error %q", e.Step, e.Want, e.Got)
}
