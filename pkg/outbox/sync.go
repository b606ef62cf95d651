package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/stately/internal/logging"
	"github.com/aretw0/stately/pkg/domain"
	"github.com/aretw0/stately/pkg/store"
	"github.com/cenkalti/backoff/v5"
)

var errRetry = errors.New("server asked for a retry")

type syncConfig struct {
	maxTries        uint
	initialInterval time.Duration
	maxInterval     time.Duration
	attemptTimeout  time.Duration
	logger          *slog.Logger
}

// SyncOption configures a Syncer.
type SyncOption func(*syncConfig)

// WithMaxTries bounds the number of delivery attempts (default 5).
func WithMaxTries(n uint) SyncOption {
	return func(c *syncConfig) {
		c.maxTries = n
	}
}

// WithBackoff sets the first and the largest delay between attempts.
func WithBackoff(initial, max time.Duration) SyncOption {
	return func(c *syncConfig) {
		c.initialInterval = initial
		c.maxInterval = max
	}
}

// WithAttemptTimeout bounds a single SendToServer call (default 10s).
func WithAttemptTimeout(d time.Duration) SyncOption {
	return func(c *syncConfig) {
		c.attemptTimeout = d
	}
}

// WithLogger sets the logger used to report sync outcomes.
func WithLogger(logger *slog.Logger) SyncOption {
	return func(c *syncConfig) {
		c.logger = logger
	}
}

// Syncer delivers server actions queued in a store's outbox.
type Syncer[S any] struct {
	api store.API[State[S]]
	cfg syncConfig
}

// NewSyncer creates a syncer for the store behind api.
func NewSyncer[S any](api store.API[State[S]], opts ...SyncOption) *Syncer[S] {
	cfg := syncConfig{
		maxTries:        5,
		initialInterval: 100 * time.Millisecond,
		maxInterval:     5 * time.Second,
		attemptTimeout:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.NewNop()
	}
	return &Syncer[S]{api: api, cfg: cfg}
}

// Pending returns the queued server actions, oldest first.
func (s *Syncer[S]) Pending() []ServerAction {
	queue := s.api.GetState().Outbox
	out := make([]ServerAction, len(queue))
	copy(out, queue)
	return out
}

// Sync delivers action. Transient failures are retried with exponential
// backoff; a refusal, exhausted retries or a cancelled ctx roll the action back.
// The action is removed from the outbox in every case.
func (s *Syncer[S]) Sync(ctx context.Context, action ServerAction) Result {
	// Rollback and removal must happen even when ctx is already done.
	cleanupCtx := context.WithoutCancel(ctx)
	defer func() {
		if _, err := s.api.Dispatch(cleanupCtx, Remove{ID: action.ID()}); err != nil {
			s.cfg.logger.ErrorContext(ctx, "failed to remove server action from outbox", "id", action.ID(), "err", err)
		}
	}()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.initialInterval
	b.MaxInterval = s.cfg.maxInterval

	last := Retry
	attempts := 0
	_, err := backoff.Retry(ctx, func() (Result, error) {
		if err := ctx.Err(); err != nil {
			return Retry, backoff.Permanent(err)
		}
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.attemptTimeout)
		defer cancel()

		last = action.SendToServer(attemptCtx)
		switch last {
		case Success:
			return Success, nil
		case Retry:
			return Retry, errRetry
		default:
			return Fail, backoff.Permanent(domain.ErrServerRejected)
		}
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(s.cfg.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.cfg.logger.DebugContext(ctx, "retrying server action", "id", action.ID(), "attempt", attempts, "next", next)
		}),
	)
	if err == nil && last == Success {
		s.cfg.logger.DebugContext(ctx, "server action delivered", "id", action.ID(), "attempts", attempts)
		return Success
	}

	var reason error
	switch {
	case last == Fail:
		reason = domain.ErrServerRejected
	case ctx.Err() != nil:
		reason = fmt.Errorf("sync interrupted: %w", ctx.Err())
	default:
		reason = fmt.Errorf("%w after %d attempts", domain.ErrRetriesExhausted, attempts)
	}
	s.cfg.logger.WarnContext(ctx, "rolling back server action", "id", action.ID(), "result", last.String(), "err", reason)
	action.RollbackLocalChanges(cleanupCtx, reason)
	return last
}

// Flush syncs every pending action in order and returns their results.
func (s *Syncer[S]) Flush(ctx context.Context) []Result {
	pending := s.Pending()
	results := make([]Result, 0, len(pending))
	for _, action := range pending {
		results = append(results, s.Sync(ctx, action))
	}
	return results
}
