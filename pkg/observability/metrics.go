package observability

import (
	"context"
	"time"

	"github.com/aretw0/stately/pkg/domain"
	"github.com/aretw0/stately/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values of stately_actions_total.
const (
	OutcomeChanged   = "changed"
	OutcomeUnchanged = "unchanged"
	OutcomeRejected  = "rejected"
)

// Metrics holds the Prometheus collectors shared by every instrumented store.
type Metrics struct {
	actions  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	version  *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stately_actions_total",
				Help: "Total number of actions reduced, by outcome",
			},
			[]string{"store", "action", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stately_dispatch_duration_seconds",
				Help:    "Duration of dispatches including middleware and listener fan-out",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"store", "action"},
		),
		version: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stately_state_version",
				Help: "Number of committed state changes",
			},
			[]string{"store"},
		),
	}
	for _, c := range []prometheus.Collector{m.actions, m.duration, m.version} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that count reduced actions.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCommit: func(ctx context.Context, e *domain.CommitEvent) {
			outcome := OutcomeUnchanged
			if e.Changed {
				outcome = OutcomeChanged
			}
			m.actions.WithLabelValues(e.Store, e.ActionType, outcome).Inc()
			m.version.WithLabelValues(e.Store).Set(float64(e.Version))
		},
		OnReject: func(ctx context.Context, e *domain.CommitEvent) {
			m.actions.WithLabelValues(e.Store, e.ActionType, OutcomeRejected).Inc()
		},
	}
}

// Middleware returns a middleware observing dispatch latency under storeName.
func Middleware[S any](m *Metrics, storeName string) store.Middleware[S] {
	return func(api store.API[S]) func(next store.Dispatcher) store.Dispatcher {
		return func(next store.Dispatcher) store.Dispatcher {
			return func(ctx context.Context, action any) (any, error) {
				start := time.Now()
				res, err := next(ctx, action)
				m.duration.WithLabelValues(storeName, domain.ActionType(action)).Observe(time.Since(start).Seconds())
				return res, err
			}
		}
	}
}
