// Package cache provides a generic, thread-safe TTL cache with a size bound,
// built-in statistics and optional Prometheus metrics.
package cache

import (
	"github.com/c360/genomegate/errors"
)

// Cache is a string-keyed cache parameterized by value type V.
type Cache[V any] interface {
	// Get retrieves a live value by key.
	Get(key string) (V, bool)

	// Set stores a value. Returns true if a new entry was created.
	Set(key string, value V) (bool, error)

	// Delete removes an entry. Returns true if the key existed.
	Delete(key string) (bool, error)

	// Clear removes all entries.
	Clear() error

	// Size returns the current number of entries, including expired ones not
	// yet swept.
	Size() int

	// Stats returns cache statistics.
	Stats() *Statistics

	// Close stops background work.
	Close() error
}

// EvictCallback is called with the key and value of an entry removed by
// expiry, size pressure, Delete or Clear.
type EvictCallback[V any] func(key string, value V)

func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "cache", "validateKey", "key cannot be empty")
	}
	return nil
}
