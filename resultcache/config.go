package resultcache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360/genomegate/errors"
	"github.com/c360/genomegate/metric"
	"github.com/c360/genomegate/pkg/cache"
)

// Config selects and configures a backend.
type Config struct {
	Enabled  bool
	Backend  string
	Addr     string
	Password string
	TTL      time.Duration
	MaxSize  int

	Registry *metric.MetricsRegistry
	Logger   *slog.Logger
}

// New builds the cache described by cfg. A disabled config yields a
// pass-through cache. An unreachable Redis is logged, not fatal: the
// gateway serves uncached until it recovers.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	var metrics *metric.Metrics
	if cfg.Registry != nil {
		metrics = cfg.Registry.CoreMetrics()
	}
	if !cfg.Enabled {
		return NewCache(nil, 0, metrics, cfg.Logger), nil
	}
	if cfg.TTL <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "resultcache", "New", "expiry must be positive")
	}

	var backend Backend
	switch cfg.Backend {
	case BackendMemory, "":
		var opts []cache.Option[[]byte]
		if cfg.Registry != nil {
			opts = append(opts, cache.WithMetrics[[]byte](cfg.Registry, "resultcache"))
		}
		mem, err := NewMemoryBackend(ctx, cfg.TTL, cfg.MaxSize, opts...)
		if err != nil {
			return nil, errors.WrapFatal(err, "resultcache", "New", "create memory backend")
		}
		backend = mem
	case BackendRedis:
		rb := NewRedisBackend(RedisConfig{Addr: cfg.Addr, Password: cfg.Password})
		if err := rb.Ping(ctx); err != nil {
			cfg.Logger.Warn("Result cache backend unreachable", "backend", BackendRedis, "addr", cfg.Addr, "error", err)
		}
		backend = rb
	default:
		return nil, errors.WrapInvalid(fmt.Errorf("unknown backend %q", cfg.Backend), "resultcache", "New", "select backend")
	}

	cfg.Logger.Info("Result cache enabled", "backend", backend.Name(), "ttl", cfg.TTL)
	return NewCache(backend, cfg.TTL, metrics, cfg.Logger), nil
}
