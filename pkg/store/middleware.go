package store

import (
	"context"
	"log/slog"

	"github.com/aretw0/stately/pkg/domain"
)

// Middleware wraps the dispatcher of a store. It closes over the store API and
// receives the next link of the chain.
type Middleware[S any] func(api API[S]) func(next Dispatcher) Dispatcher

// Thunk is an action that is executed instead of reduced.
// Its return value is returned from Dispatch as-is.
type Thunk[S any] func(ctx context.Context, api API[S], extra any) (any, error)

// AsyncThunk is a Thunk executed on its own goroutine.
// Dispatch returns a <-chan error that receives the outcome once.
type AsyncThunk[S any] func(ctx context.Context, api API[S], extra any) error

// ThunkMiddleware executes Thunk and AsyncThunk actions, passing extra to them.
// Every other action continues down the chain.
func ThunkMiddleware[S any](extra any) Middleware[S] {
	return func(api API[S]) func(next Dispatcher) Dispatcher {
		return func(next Dispatcher) Dispatcher {
			return func(ctx context.Context, action any) (any, error) {
				switch fn := action.(type) {
				case Thunk[S]:
					return fn(ctx, api, extra)
				case AsyncThunk[S]:
					done := make(chan error, 1)
					go func(ctx context.Context) {
						done <- fn(ctx, api, extra)
						close(done)
					}(Detach(ctx))
					return (<-chan error)(done), nil
				default:
					return next(ctx, action)
				}
			}
		}
	}
}

func isThunk[S any](action any) bool {
	switch action.(type) {
	case Thunk[S], AsyncThunk[S]:
		return true
	}
	return false
}

// WarnOnNoChange logs a warning when a plain action leaves the state untouched,
// which usually means a reducer does not handle it.
func WarnOnNoChange[S any](logger *slog.Logger) Middleware[S] {
	return func(api API[S]) func(next Dispatcher) Dispatcher {
		return func(next Dispatcher) Dispatcher {
			return func(ctx context.Context, action any) (any, error) {
				if isThunk[S](action) {
					return next(ctx, action)
				}
				before := api.GetState()
				res, err := next(ctx, action)
				if err != nil {
					return res, err
				}
				if !api.Detector().WasModified(before, api.GetState()) {
					logger.WarnContext(ctx, "action did not change the state", "action", domain.ActionType(action))
				}
				return res, nil
			}
		}
	}
}

// DiagnosticsSink receives human-readable dispatch reports.
type DiagnosticsSink interface {
	Diagnostic(ctx context.Context, text string)
}

// SlogSink writes diagnostics to a slog logger at debug level.
type SlogSink struct {
	Logger *slog.Logger
}

// Diagnostic implements DiagnosticsSink.
func (s SlogSink) Diagnostic(ctx context.Context, text string) {
	s.Logger.DebugContext(ctx, text)
}

// Diagnostics reports every plain action together with a diff of the state it produced.
func Diagnostics[S any](sink DiagnosticsSink) Middleware[S] {
	return func(api API[S]) func(next Dispatcher) Dispatcher {
		return func(next Dispatcher) Dispatcher {
			return func(ctx context.Context, action any) (any, error) {
				if isThunk[S](action) {
					return next(ctx, action)
				}
				before := api.GetState()
				res, err := next(ctx, action)
				if err != nil {
					sink.Diagnostic(ctx, "action "+domain.ActionType(action)+" failed: "+err.Error())
					return res, err
				}
				sink.Diagnostic(ctx, Report(action, before, api.GetState()))
				return res, nil
			}
		}
	}
}
