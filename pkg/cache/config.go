package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/c360/genomegate/errors"
)

// Config contains configuration for cache creation.
type Config struct {
	// Enabled determines if caching is enabled.
	Enabled bool

	// MaxSize bounds the number of entries; 0 means unbounded.
	MaxSize int

	// TTL is the time-to-live for entries.
	TTL time.Duration

	// CleanupInterval is how often expired entries are swept.
	CleanupInterval time.Duration
}

// DefaultConfig returns a default cache configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		MaxSize:         10000,
		TTL:             6600 * time.Second,
		CleanupInterval: time.Minute,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.TTL <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "Validate",
			fmt.Sprintf("ttl must be positive, got %v", c.TTL))
	}
	if c.CleanupInterval <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "Validate",
			fmt.Sprintf("cleanup_interval must be positive, got %v", c.CleanupInterval))
	}
	if c.MaxSize < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "Validate",
			fmt.Sprintf("max_size cannot be negative, got %d", c.MaxSize))
	}
	return nil
}

// NewFromConfig creates a cache from configuration. A disabled config yields
// a no-op cache.
func NewFromConfig[V any](ctx context.Context, config Config, options ...Option[V]) (Cache[V], error) {
	if err := config.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "cache", "NewFromConfig", "config validation")
	}
	if !config.Enabled {
		return NewNoop[V](), nil
	}
	return NewTTL[V](ctx, config.TTL, config.MaxSize, config.CleanupInterval, options...)
}

// NewTTL creates a TTL cache bounded to maxSize entries (0 for unbounded).
// The background sweeper stops when ctx is done or Close is called.
func NewTTL[V any](
	ctx context.Context, ttl time.Duration, maxSize int, cleanupInterval time.Duration, options ...Option[V],
) (Cache[V], error) {
	return newTTLCache(ctx, ttl, maxSize, cleanupInterval, applyOptions(options...))
}

// NewNoop returns a cache that never stores anything.
func NewNoop[V any]() Cache[V] {
	return &noopCache[V]{stats: NewStatistics()}
}

type noopCache[V any] struct {
	stats *Statistics
}

func (c *noopCache[V]) Get(_ string) (V, bool) {
	var zero V
	c.stats.Miss()
	return zero, false
}

func (c *noopCache[V]) Set(_ string, _ V) (bool, error) { return false, nil }
func (c *noopCache[V]) Delete(_ string) (bool, error)   { return false, nil }
func (c *noopCache[V]) Clear() error                    { return nil }
func (c *noopCache[V]) Size() int                       { return 0 }
func (c *noopCache[V]) Stats() *Statistics              { return c.stats }
func (c *noopCache[V]) Close() error                    { return nil }
