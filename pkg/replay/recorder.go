package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/aretw0/stately/internal/logging"
	"github.com/aretw0/stately/pkg/domain"
	"github.com/aretw0/stately/pkg/ports"
	"github.com/aretw0/stately/pkg/store"
)

// DefaultPrefix is the key prefix used when none is configured.
const DefaultPrefix = "action:"

// Recorder logs dispatched actions and replays them.
type Recorder[S any] struct {
	kv     ports.KeyValueStore
	codec  *Codec
	reset  any
	prefix string
	logger *slog.Logger

	suspended atomic.Int32

	seq sync.Mutex // held across a top-level dispatch so entries follow reducer order

	mu     sync.Mutex // guards count, loaded
	count  int
	loaded bool
}

// Option configures a Recorder.
type Option[S any] func(*Recorder[S])

// WithPrefix sets the key prefix of the log.
func WithPrefix[S any](prefix string) Option[S] {
	return func(r *Recorder[S]) {
		r.prefix = prefix
	}
}

// WithLogger sets the logger used to report failed writes.
func WithLogger[S any](logger *slog.Logger) Option[S] {
	return func(r *Recorder[S]) {
		r.logger = logger
	}
}

// NewRecorder creates a recorder writing to kv.
// reset is the action that brings the store back to its initial state.
func NewRecorder[S any](kv ports.KeyValueStore, codec *Codec, reset any, opts ...Option[S]) (*Recorder[S], error) {
	if kv == nil {
		return nil, errors.New("key-value store is required")
	}
	if codec == nil {
		return nil, errors.New("codec is required")
	}
	if reset == nil {
		return nil, errors.New("reset action is required")
	}
	r := &Recorder[S]{
		kv:     kv,
		codec:  codec,
		reset:  reset,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.NewNop()
	}
	return r, nil
}

// Middleware returns the recording middleware.
// Place it after store.ThunkMiddleware so that only plain actions reach it.
func (r *Recorder[S]) Middleware() store.Middleware[S] {
	return func(api store.API[S]) func(next store.Dispatcher) store.Dispatcher {
		return func(next store.Dispatcher) store.Dispatcher {
			return func(ctx context.Context, action any) (any, error) {
				if !r.Recording() {
					return next(ctx, action)
				}
				if _, err := r.codec.Encode(Entry{Action: action}); err != nil {
					return nil, err
				}
				if !store.InFanout(ctx, api) {
					r.seq.Lock()
					defer r.seq.Unlock()
				}

				idx, err := r.reserve(ctx)
				if err != nil {
					return nil, err
				}
				res, dispatchErr := next(ctx, action)

				e := Entry{Action: action}
				if dispatchErr != nil {
					e.Err = dispatchErr.Error()
				}
				if err := r.write(ctx, idx, e); err != nil {
					released := r.release(idx)
					r.logger.ErrorContext(ctx, "failed to record action", "action", domain.ActionType(action), "index", idx, "released", released, "err", err)
				}
				return res, dispatchErr
			}
		}
	}
}

// Recording reports whether dispatches are currently being logged.
func (r *Recorder[S]) Recording() bool {
	return r.suspended.Load() == 0
}

// Suspend stops recording until the returned function is called.
// Suspensions nest.
func (r *Recorder[S]) Suspend() (resume func()) {
	r.suspended.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { r.suspended.Add(-1) })
	}
}

// ResetStore dispatches the reset action without recording it.
// It fails with domain.ErrResetIneffective when a reference-typed state keeps its identity.
func (r *Recorder[S]) ResetStore(ctx context.Context, api store.API[S]) error {
	resume := r.Suspend()
	defer resume()

	before := api.GetState()
	if _, err := api.Dispatch(ctx, r.reset); err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}
	if sameReference(before, api.GetState()) {
		return domain.ErrResetIneffective
	}
	return nil
}

// ReplayStore resets the store and re-dispatches the first n recorded actions.
// A negative n replays the whole log. The first step whose error text differs
// from the recorded one stops the replay with a *domain.ReplayMismatchError.
func (r *Recorder[S]) ReplayStore(ctx context.Context, api store.API[S], n int) error {
	entries, err := r.Entries(ctx)
	if err != nil {
		return err
	}
	if n < 0 || n > len(entries) {
		n = len(entries)
	}

	resume := r.Suspend()
	defer resume()

	if err := r.ResetStore(ctx, api); err != nil {
		return err
	}
	for i, e := range entries[:n] {
		got := ""
		if _, err := api.Dispatch(ctx, e.Action); err != nil {
			got = err.Error()
		}
		if got != e.Err {
			return &domain.ReplayMismatchError{Step: i, Want: e.Err, Got: got}
		}
		r.logger.DebugContext(ctx, "replayed action", "step", i, "action", domain.ActionType(e.Action))
	}
	return nil
}

// Count returns the number of recorded entries.
func (r *Recorder[S]) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(ctx); err != nil {
		return 0, err
	}
	return r.count, nil
}

// Entries reads the whole log in order. Indexes whose write failed after a
// later index was reserved are missing from the backend and are skipped.
func (r *Recorder[S]) Entries(ctx context.Context) ([]Entry, error) {
	n, err := r.Count(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		raw, err := r.kv.Get(ctx, r.key(i))
		if errors.Is(err, domain.ErrKeyNotFound) {
			r.logger.WarnContext(ctx, "skipping missing log entry", "index", i)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read entry %d: %w", i, err)
		}
		e, err := r.codec.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Clear removes every entry from the backing store.
func (r *Recorder[S]) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.kv.RemoveAll(ctx); err != nil {
		return fmt.Errorf("failed to clear log: %w", err)
	}
	r.count, r.loaded = 0, true
	return nil
}

func (r *Recorder[S]) key(i int) string {
	return r.prefix + strconv.Itoa(i)
}

func (r *Recorder[S]) countKey() string {
	return r.prefix + "count"
}

// load reads the persisted count once. Callers hold r.mu.
func (r *Recorder[S]) load(ctx context.Context) error {
	if r.loaded {
		return nil
	}
	raw, err := r.kv.Get(ctx, r.countKey())
	switch {
	case errors.Is(err, domain.ErrKeyNotFound):
		r.count = 0
	case err != nil:
		return fmt.Errorf("failed to read entry count: %w", err)
	default:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("corrupt entry count %q: %w", raw, err)
		}
		r.count = n
	}
	r.loaded = true
	return nil
}

func (r *Recorder[S]) reserve(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(ctx); err != nil {
		return 0, err
	}
	idx := r.count
	r.count++
	return idx, nil
}

// release gives back idx when no later index has been reserved since.
func (r *Recorder[S]) release(idx int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count != idx+1 {
		return false
	}
	r.count--
	return true
}

func (r *Recorder[S]) write(ctx context.Context, idx int, e Entry) error {
	raw, err := r.codec.Encode(e)
	if err != nil {
		return err
	}
	if err := r.kv.Set(ctx, r.key(idx), raw); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.kv.Set(ctx, r.countKey(), strconv.Itoa(r.count))
}

// sameReference reports whether a and b are the same pointer, map, slice or channel.
// Value-typed states have no identity and always report false.
func sameReference(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() || va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	return false
}
