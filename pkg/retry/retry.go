// Package retry provides exponential backoff for connecting to genomegate's
// backing services and downloading the identifier registry.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// NonRetryableError stops Do on the attempt that returned it.
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string { return "non-retryable: " + e.Err.Error() }

func (e *NonRetryableError) Unwrap() error { return e.Err }

// NonRetryable marks err so that Do returns it immediately.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// IsNonRetryable reports whether err was marked with NonRetryable.
func IsNonRetryable(err error) bool {
	var target *NonRetryableError
	return errors.As(err, &target)
}

// Config controls the backoff schedule. Zero fields take the defaults.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// AddJitter lengthens each delay by up to a quarter.
	AddJitter bool
}

// DefaultConfig is used for registry downloads.
func DefaultConfig() Config {
	return Config{MaxAttempts: 3, InitialDelay: 100 * time.Millisecond, MaxDelay: 5 * time.Second, Multiplier: 2, AddJitter: true}
}

// Quick is used while waiting for a database at startup.
func Quick() Config {
	return Config{MaxAttempts: 10, InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second, Multiplier: 1.5, AddJitter: true}
}

func (cfg Config) withDefaults() (Config, error) {
	if cfg.InitialDelay < 0 || cfg.MaxDelay < 0 || cfg.Multiplier < 0 {
		return cfg, errors.New("retry: negative delay or multiplier")
	}
	cfg.MaxAttempts = max(cfg.MaxAttempts, 1)
	if cfg.InitialDelay == 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = 5 * time.Second
	}
	if cfg.Multiplier == 0 {
		cfg.Multiplier = 2
	}
	cfg.Multiplier = min(cfg.Multiplier, 1000)
	if cfg.MaxDelay < cfg.InitialDelay {
		return cfg, errors.New("retry: MaxDelay must be >= InitialDelay")
	}
	return cfg, nil
}

type backoff struct {
	cfg   Config
	delay time.Duration
}

// next returns the wait before the following attempt and grows the delay.
func (b *backoff) next() time.Duration {
	wait := b.delay
	if b.cfg.AddJitter && wait >= 4 {
		wait += time.Duration(rand.Int63n(int64(wait / 4)))
	}
	grown := time.Duration(float64(b.delay) * b.cfg.Multiplier)
	b.delay = min(grown, b.cfg.MaxDelay)
	return wait
}

// Do calls fn until it succeeds, returns a NonRetryable error, runs out of
// attempts or ctx ends.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return err
	}
	b := &backoff{cfg: cfg, delay: cfg.InitialDelay}

	var lastErr error
	for attempt := 1; ; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if IsNonRetryable(lastErr) {
			return lastErr
		}
		if ctx.Err() != nil {
			return fmt.Errorf("retry cancelled after attempt %d: %w", attempt, ctx.Err())
		}
		if attempt == cfg.MaxAttempts {
			return fmt.Errorf("retry failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
		}

		timer := time.NewTimer(b.next())
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled waiting for attempt %d: %w", attempt+1, ctx.Err())
		case <-timer.C:
		}
	}
}

// DoWithResult is Do for functions that also return a value.
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func() error {
		var callErr error
		result, callErr = fn()
		return callErr
	})
	return result, err
}
