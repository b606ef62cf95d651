package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/stately"
	"github.com/aretw0/stately/internal/config"
	"github.com/aretw0/stately/internal/demo"
	"github.com/aretw0/stately/internal/logging"
	"github.com/aretw0/stately/pkg/adapters/badger"
	"github.com/aretw0/stately/pkg/adapters/memory"
	"github.com/aretw0/stately/pkg/adapters/redis"
	"github.com/aretw0/stately/pkg/adapters/sqlite"
	"github.com/aretw0/stately/pkg/observability"
	"github.com/aretw0/stately/pkg/persistence/middleware"
	"github.com/aretw0/stately/pkg/ports"
	"github.com/aretw0/stately/pkg/replay"
	"github.com/aretw0/stately/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
)

// Session is a recorded, instrumented counter store backed by the configured log.
type Session struct {
	Logger   *slog.Logger
	Store    *store.Store[*demo.Counter]
	Recorder *replay.Recorder[*demo.Counter]
	Registry *prometheus.Registry

	closeKV func() error
}

// NewLogger builds the application logger from the log section.
func NewLogger(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewWriter(os.Stderr, level, logging.Format(cfg.Format)), nil
}

// OpenBackend opens the key-value store selected by cfg.Backend.
func OpenBackend(cfg config.Config, logger *slog.Logger) (ports.KeyValueStore, func() error, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.NewStore(), func() error { return nil }, nil
	case config.BackendRedis:
		opts := []redis.Option{redis.WithTTL(cfg.Redis.TTL)}
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		kv := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		return kv, kv.Close, nil
	case config.BackendSQLite:
		var opts []sqlite.Option
		if cfg.SQLite.Table != "" {
			opts = append(opts, sqlite.WithTable(cfg.SQLite.Table))
		}
		kv, err := sqlite.Open(cfg.SQLite.Path, opts...)
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Close, nil
	case config.BackendBadger:
		kv, err := badger.Open(badger.Config{
			Path:     cfg.Badger.Path,
			InMemory: cfg.Badger.InMemory,
			Logger:   logger.With("component", "badger"),
		})
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// OpenSession opens the configured backend and builds the counter store on top of it.
func OpenSession(cfg config.Config, logger *slog.Logger) (*Session, error) {
	kv, closeKV, err := OpenBackend(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend: %w", cfg.Backend, err)
	}
	if cfg.Encryption.Enabled() {
		kv, err = encrypt(kv, cfg.Encryption)
		if err != nil {
			_ = closeKV()
			return nil, err
		}
	}
	s, err := NewSession(kv, logger)
	if err != nil {
		_ = closeKV()
		return nil, err
	}
	s.closeKV = closeKV
	return s, nil
}

func encrypt(kv ports.KeyValueStore, cfg config.EncryptionConfig) (ports.KeyValueStore, error) {
	active, fallback, err := cfg.Decode()
	if err != nil {
		return nil, err
	}
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback})
	if err != nil {
		return nil, err
	}
	return middleware.Chain(kv, mw), nil
}

// NewSession builds the counter store recording into kv.
func NewSession(kv ports.KeyValueStore, logger *slog.Logger) (*Session, error) {
	rec, err := replay.NewRecorder[*demo.Counter](kv, demo.Codec(), demo.Reset{},
		replay.WithLogger[*demo.Counter](logger),
	)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		return nil, err
	}

	st, err := stately.New(demo.Reduce, demo.Initial(),
		stately.WithName[*demo.Counter]("counter"),
		stately.WithLogger[*demo.Counter](logger),
		stately.WithWarnOnNoChange[*demo.Counter](),
		stately.WithMetrics[*demo.Counter](metrics),
		stately.WithTracing[*demo.Counter](nil),
		stately.WithRecorder(rec),
	)
	if err != nil {
		return nil, err
	}

	return &Session{
		Logger:   logger,
		Store:    st,
		Recorder: rec,
		Registry: reg,
		closeKV:  func() error { return nil },
	}, nil
}

// Restore replays the whole log so the store reflects previous runs.
func (s *Session) Restore(ctx context.Context) error {
	return s.Recorder.ReplayStore(ctx, s.Store, -1)
}

// Close destroys the store and closes the backend.
func (s *Session) Close() error {
	s.Store.Destroy()
	return s.closeKV()
}
