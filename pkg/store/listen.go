package store

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/aretw0/stately/internal/logging"
	"github.com/aretw0/stately/pkg/domain"
)

// Unsubscribe removes a listener. It is safe to call more than once.
type Unsubscribe func()

type listenConfig struct {
	instant       bool
	checkSelector bool
	monitor       func(v any) int
	debounce      time.Duration
	logger        *slog.Logger
}

// ListenOption configures Listen and its variants.
type ListenOption func(*listenConfig)

// TriggerInstantly invokes the callback once with the current value at registration.
func TriggerInstantly() ListenOption {
	return func(c *listenConfig) {
		c.instant = true
	}
}

// CheckSelector verifies at registration that the selector is referentially stable:
// two calls on the same state must not look modified to the change detector.
func CheckSelector() ListenOption {
	return func(c *listenConfig) {
		c.checkSelector = true
	}
}

// WithMonitor replaces the default size monitor. The callback also fires when
// the monitor value changes, which catches in-place growth of shared collections.
func WithMonitor(fn func(v any) int) ListenOption {
	return func(c *listenConfig) {
		c.monitor = fn
	}
}

// Debounce collapses bursts: the first change is delivered immediately, the last
// one once no further change arrived for d.
func Debounce(d time.Duration) ListenOption {
	return func(c *listenConfig) {
		c.debounce = d
	}
}

// WithListenerLogger sets the logger used by ListenAsync to report failures.
func WithListenerLogger(logger *slog.Logger) ListenOption {
	return func(c *listenConfig) {
		c.logger = logger
	}
}

// SizeMonitor is the default monitor: the length of slices, maps, strings and channels, else zero.
func SizeMonitor(v any) int {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.String, reflect.Chan, reflect.Array:
		return rv.Len()
	case reflect.Pointer:
		if rv.IsNil() {
			return 0
		}
		if e := rv.Elem(); e.Kind() == reflect.Slice || e.Kind() == reflect.Map {
			return e.Len()
		}
	}
	return 0
}

type selection[T any] struct {
	mu      sync.Mutex
	value   T
	monitor int
}

// Listen calls callback with the selected value whenever it changes.
func Listen[S, T any](src Source[S], selector func(S) T, callback func(ctx context.Context, v T), opts ...ListenOption) (Unsubscribe, error) {
	cfg := listenConfig{monitor: SizeMonitor, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	det := src.Detector()
	current := selector(src.GetState())
	if cfg.checkSelector {
		if again := selector(src.GetState()); det.WasModified(current, again) {
			return nil, &domain.UnstableSelectorError{Selected: fmt.Sprintf("%T", current)}
		}
	}

	deliver := callback
	stop := func() {}
	if cfg.debounce > 0 {
		d := newDebouncer(cfg.debounce, callback)
		deliver = d.call
		stop = d.stop
	}

	sel := &selection[T]{value: current, monitor: cfg.monitor(current)}
	remove := src.OnChange(func(ctx context.Context, c Change[S]) {
		next := selector(c.New)
		mon := cfg.monitor(next)

		sel.mu.Lock()
		changed := sel.monitor != mon || det.WasModifiedIn(c.Window, sel.value, next)
		if changed {
			sel.value = next
			sel.monitor = mon
		}
		sel.mu.Unlock()

		if changed {
			deliver(ctx, next)
		}
	})

	if cfg.instant {
		callback(context.Background(), current)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			remove()
			stop()
		})
	}, nil
}

// ListenAsync runs callback on its own goroutine for every change and logs returned errors.
func ListenAsync[S, T any](src Source[S], selector func(S) T, callback func(ctx context.Context, v T) error, opts ...ListenOption) (Unsubscribe, error) {
	cfg := listenConfig{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return Listen(src, selector, func(ctx context.Context, v T) {
		go func(ctx context.Context) {
			if err := callback(ctx, v); err != nil {
				cfg.logger.ErrorContext(ctx, "async state listener failed", "err", err)
			}
		}(Detach(ctx))
	}, opts...)
}

// ListenUntil keeps the listener registered for as long as callback returns true.
func ListenUntil[S, T any](src Source[S], selector func(S) T, callback func(ctx context.Context, v T) bool, opts ...ListenOption) (Unsubscribe, error) {
	var (
		mu      sync.Mutex
		done    bool
		release Unsubscribe
	)
	unsub, err := Listen(src, selector, func(ctx context.Context, v T) {
		mu.Lock()
		if done {
			mu.Unlock()
			return
		}
		mu.Unlock()

		if callback(ctx, v) {
			return
		}

		mu.Lock()
		done = true
		r := release
		mu.Unlock()
		if r != nil {
			r()
		}
	}, opts...)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	release = unsub
	finished := done
	mu.Unlock()
	if finished {
		unsub()
	}
	return unsub, nil
}

// debouncer delivers the leading value of a burst at once and the trailing value
// after the burst went quiet for d.
type debouncer[T any] struct {
	d  time.Duration
	fn func(ctx context.Context, v T)

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending bool
	last    T
	ctx     context.Context
	stopped bool
}

func newDebouncer[T any](d time.Duration, fn func(ctx context.Context, v T)) *debouncer[T] {
	return &debouncer[T]{d: d, fn: fn}
}

func (b *debouncer[T]) call(ctx context.Context, v T) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	leading := b.timer == nil
	if !leading {
		b.timer.Stop()
		b.pending = true
		b.last = v
		b.ctx = Detach(ctx)
	}
	b.gen++
	gen := b.gen
	b.timer = time.AfterFunc(b.d, func() { b.flush(gen) })
	b.mu.Unlock()

	if leading {
		b.fn(ctx, v)
	}
}

func (b *debouncer[T]) flush(gen uint64) {
	b.mu.Lock()
	if gen != b.gen || b.stopped {
		b.mu.Unlock()
		return
	}
	b.timer = nil
	pending, v, ctx := b.pending, b.last, b.ctx
	b.pending = false
	b.mu.Unlock()

	if pending {
		b.fn(ctx, v)
	}
}

func (b *debouncer[T]) stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	if b.timer != nil {
		b.timer.Stop()
	}
}
