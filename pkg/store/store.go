package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/stately/internal/logging"
	"github.com/aretw0/stately/pkg/change"
	"github.com/aretw0/stately/pkg/domain"
)

// Reducer computes the next state from the previous state and an action.
// It must not have side effects. Returning an error leaves the state unchanged.
type Reducer[S any] func(state S, action any) (S, error)

// Dispatcher is one link of the middleware chain.
type Dispatcher func(ctx context.Context, action any) (any, error)

// API is the surface middleware and thunks see.
type API[S any] interface {
	Dispatch(ctx context.Context, action any) (any, error)
	GetState() S
	Detector() *change.Detector
}

// Change describes one committed transition.
type Change[S any] struct {
	Old     S
	New     S
	Version uint64
	Window  change.Window
}

// Source is anything listeners can be attached to: stores, sub-states, façades.
type Source[S any] interface {
	GetState() S
	OnChange(fn func(ctx context.Context, c Change[S])) (remove func())
	Detector() *change.Detector
}

// Store holds a state value and applies one reducer call at a time.
type Store[S any] struct {
	name     string
	reducer  Reducer[S]
	clock    *change.Clock
	detector *change.Detector
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	mws      []Middleware[S]

	mu        sync.RWMutex // guards state, version, destroyed
	state     S
	version   uint64
	destroyed bool

	seq sync.Mutex // orders top-level dispatches together with their fan-out

	listeners listeners[S]
	children  children
	dispatch  Dispatcher
}

// Option configures a Store.
type Option[S any] func(*Store[S])

// WithMiddleware appends middlewares. The first one supplied is the outermost.
func WithMiddleware[S any](mws ...Middleware[S]) Option[S] {
	return func(s *Store[S]) {
		s.mws = append(s.mws, mws...)
	}
}

// WithClock shares a tick clock, e.g. between stores that share mutable objects.
func WithClock[S any](c *change.Clock) Option[S] {
	return func(s *Store[S]) {
		s.clock = c
	}
}

// WithLogger sets a structured logger for the store.
func WithLogger[S any](logger *slog.Logger) Option[S] {
	return func(s *Store[S]) {
		s.logger = logger
	}
}

// WithName labels the store in logs, events and metrics.
func WithName[S any](name string) Option[S] {
	return func(s *Store[S]) {
		s.name = name
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks[S any](hooks domain.LifecycleHooks) Option[S] {
	return func(s *Store[S]) {
		s.hooks = hooks
	}
}

// New creates a store with the given reducer and initial state.
func New[S any](reducer Reducer[S], initial S, opts ...Option[S]) (*Store[S], error) {
	if reducer == nil {
		return nil, errors.New("reducer is required")
	}
	s := &Store[S]{
		name:    "store",
		reducer: reducer,
		state:   initial,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = change.NewClock()
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	s.logger = s.logger.With("store", s.name)
	s.detector = change.NewDetector(s.clock)

	d := Dispatcher(s.terminal)
	for i := len(s.mws) - 1; i >= 0; i-- {
		d = s.mws[i](s)(d)
	}
	s.dispatch = d
	return s, nil
}

// Name returns the store label.
func (s *Store[S]) Name() string {
	return s.name
}

// Reducer returns the reducer the store was created with.
func (s *Store[S]) Reducer() Reducer[S] {
	return s.reducer
}

// Clock returns the clock that brackets this store's dispatch windows.
func (s *Store[S]) Clock() *change.Clock {
	return s.clock
}

// Detector returns the change detector bound to the store's clock.
func (s *Store[S]) Detector() *change.Detector {
	return s.detector
}

// GetState returns the current snapshot.
func (s *Store[S]) GetState() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Version returns the number of committed changes so far.
func (s *Store[S]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Dispatch sends an action through the middleware chain.
// Plain actions return themselves; middleware may return something else (e.g. thunk results).
func (s *Store[S]) Dispatch(ctx context.Context, action any) (any, error) {
	return s.dispatch(ctx, action)
}

// OnChange registers fn to be called after every committed change, in registration order.
func (s *Store[S]) OnChange(fn func(ctx context.Context, c Change[S])) (remove func()) {
	return s.listeners.add(fn)
}

// Destroy drops all listeners, disposes derived sub-states and rejects further dispatches.
func (s *Store[S]) Destroy() {
	s.mu.Lock()
	s.destroyed = true
	s.mu.Unlock()
	s.children.disposeAll()
	s.listeners.clear()
	s.logger.Debug("store destroyed")
}

func (s *Store[S]) adopt(child disposer) (release func()) {
	return s.children.add(child)
}

func (s *Store[S]) terminal(ctx context.Context, action any) (any, error) {
	if !InFanout(ctx, s) {
		s.seq.Lock()
		defer s.seq.Unlock()
	}

	c, err := s.reduce(ctx, action)
	if err != nil {
		return nil, err
	}
	if c != nil {
		s.listeners.notify(withFanout(ctx, s), *c)
	}
	return action, nil
}

// reduce runs the reducer in the critical section and commits on success.
// It returns a nil change when the state was not modified.
func (s *Store[S]) reduce(ctx context.Context, action any) (*Change[S], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return nil, domain.ErrStoreDestroyed
	}

	actionType := domain.ActionType(action)
	if s.hooks.OnDispatch != nil {
		s.hooks.OnDispatch(ctx, &domain.DispatchEvent{
			EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventDispatch, Store: s.name},
			ActionType: actionType,
		})
	}

	old := s.state
	w := s.clock.Open()
	next, err := s.apply(old, action, &w)
	if err != nil {
		s.logger.DebugContext(ctx, "reducer rejected action", "action", actionType, "err", err)
		if s.hooks.OnReject != nil {
			s.hooks.OnReject(ctx, &domain.CommitEvent{
				EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventReject, Store: s.name},
				ActionType: actionType,
				Version:    s.version,
				Err:        err,
			})
		}
		return nil, err
	}

	changed := s.detector.WasModifiedIn(w, old, next)
	s.state = next
	if changed {
		s.version++
	}
	if s.hooks.OnCommit != nil {
		s.hooks.OnCommit(ctx, &domain.CommitEvent{
			EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventCommit, Store: s.name},
			ActionType: actionType,
			Version:    s.version,
			Changed:    changed,
		})
	}
	if !changed {
		return nil, nil
	}
	return &Change[S]{Old: old, New: next, Version: s.version, Window: w}, nil
}

// apply closes the window even when the reducer panics.
func (s *Store[S]) apply(old S, action any, w *change.Window) (S, error) {
	defer func() {
		*w = s.clock.Close(*w)
	}()
	return s.reducer(old, action)
}
