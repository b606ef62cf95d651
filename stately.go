package stately

import (
	"log/slog"

	"github.com/aretw0/stately/internal/logging"
	"github.com/aretw0/stately/pkg/domain"
	"github.com/aretw0/stately/pkg/observability"
	"github.com/aretw0/stately/pkg/replay"
	"github.com/aretw0/stately/pkg/store"
	"go.opentelemetry.io/otel/trace"
)

// Version is the library version reported by the CLI.
const Version = "0.1.0"

type config[S any] struct {
	name        string
	logger      *slog.Logger
	hooks       domain.LifecycleHooks
	thunks      bool
	extra       any
	warn        bool
	diagnostics store.DiagnosticsSink
	recorder    *replay.Recorder[S]
	metrics     *observability.Metrics
	tracer      trace.TracerProvider
	tracing     bool
	middleware  []store.Middleware[S]
	storeOpts   []store.Option[S]
}

// Option defines a functional option for New.
type Option[S any] func(*config[S])

// WithName labels the store in logs, metrics and spans (default "store").
func WithName[S any](name string) Option[S] {
	return func(c *config[S]) {
		c.name = name
	}
}

// WithLogger sets a custom structured logger for the store and its middleware.
func WithLogger[S any](logger *slog.Logger) Option[S] {
	return func(c *config[S]) {
		c.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks. Hooks from WithMetrics run after them.
func WithLifecycleHooks[S any](hooks domain.LifecycleHooks) Option[S] {
	return func(c *config[S]) {
		c.hooks = hooks
	}
}

// WithThunks enables store.Thunk and store.AsyncThunk actions, passing extra to them.
func WithThunks[S any](extra any) Option[S] {
	return func(c *config[S]) {
		c.thunks = true
		c.extra = extra
	}
}

// WithWarnOnNoChange logs every plain action that leaves the state untouched.
func WithWarnOnNoChange[S any]() Option[S] {
	return func(c *config[S]) {
		c.warn = true
	}
}

// WithDiagnostics sends an action/diff report for every dispatch to sink.
func WithDiagnostics[S any](sink store.DiagnosticsSink) Option[S] {
	return func(c *config[S]) {
		c.diagnostics = sink
	}
}

// WithRecorder records every plain action with rec.
func WithRecorder[S any](rec *replay.Recorder[S]) Option[S] {
	return func(c *config[S]) {
		c.recorder = rec
	}
}

// WithMetrics exports dispatch counts and latency to m.
func WithMetrics[S any](m *observability.Metrics) Option[S] {
	return func(c *config[S]) {
		c.metrics = m
	}
}

// WithTracing opens a span per dispatch. A nil tp uses the global provider.
func WithTracing[S any](tp trace.TracerProvider) Option[S] {
	return func(c *config[S]) {
		c.tracing = true
		c.tracer = tp
	}
}

// WithMiddleware appends custom middleware. It runs inside the built-in
// middleware and outside the recorder.
func WithMiddleware[S any](mws ...store.Middleware[S]) Option[S] {
	return func(c *config[S]) {
		c.middleware = append(c.middleware, mws...)
	}
}

// WithStoreOptions passes raw store options (e.g. store.WithClock).
func WithStoreOptions[S any](opts ...store.Option[S]) Option[S] {
	return func(c *config[S]) {
		c.storeOpts = append(c.storeOpts, opts...)
	}
}

// New creates a store with the given reducer and initial state.
//
// The middleware chain, outermost first, is: tracing, metrics, thunks,
// diagnostics, no-change warnings, custom middleware, recorder.
func New[S any](reducer store.Reducer[S], initial S, opts ...Option[S]) (*store.Store[S], error) {
	c := &config[S]{name: "store"}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}

	var mws []store.Middleware[S]
	if c.tracing {
		mws = append(mws, observability.Tracing[S](c.tracer, c.name))
	}
	if c.metrics != nil {
		mws = append(mws, observability.Middleware[S](c.metrics, c.name))
	}
	if c.thunks {
		mws = append(mws, store.ThunkMiddleware[S](c.extra))
	}
	if c.diagnostics != nil {
		mws = append(mws, store.Diagnostics[S](c.diagnostics))
	}
	if c.warn {
		mws = append(mws, store.WarnOnNoChange[S](c.logger.With("store", c.name)))
	}
	mws = append(mws, c.middleware...)
	if c.recorder != nil {
		mws = append(mws, c.recorder.Middleware())
	}

	storeOpts := []store.Option[S]{
		store.WithName[S](c.name),
		store.WithLogger[S](c.logger),
		store.WithLifecycleHooks[S](mergeHooks(c.hooks, c.metrics)),
		store.WithMiddleware(mws...),
	}
	storeOpts = append(storeOpts, c.storeOpts...)
	return store.New(reducer, initial, storeOpts...)
}

func mergeHooks(user domain.LifecycleHooks, m *observability.Metrics) domain.LifecycleHooks {
	if m == nil {
		return user
	}
	return domain.ChainHooks(user, m.Hooks())
}
