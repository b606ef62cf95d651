package observability

import (
	"context"

	"github.com/aretw0/stately/pkg/domain"
	"github.com/aretw0/stately/pkg/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/aretw0/stately"

// Tracing returns a middleware that wraps every dispatch in a span.
// Nested dispatches made from listeners become child spans.
// A nil tp uses the global tracer provider.
func Tracing[S any](tp trace.TracerProvider, storeName string) store.Middleware[S] {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer(tracerName)

	return func(api store.API[S]) func(next store.Dispatcher) store.Dispatcher {
		return func(next store.Dispatcher) store.Dispatcher {
			return func(ctx context.Context, action any) (any, error) {
				ctx, span := tracer.Start(ctx, "stately.Dispatch",
					trace.WithAttributes(
						attribute.String("stately.store", storeName),
						attribute.String("stately.action", domain.ActionType(action)),
					),
				)
				defer span.End()

				res, err := next(ctx, action)
				if err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
				}
				return res, err
			}
		}
	}
}
