package resultcache

import (
	"context"
	"time"

	"github.com/c360/genomegate/pkg/cache"
)

// MemoryBackend keeps encoded results in a process-local TTL cache.
type MemoryBackend struct {
	entries cache.Cache[[]byte]
}

// NewMemoryBackend creates a bounded in-process backend. Entries expire
// after ttl.
func NewMemoryBackend(ctx context.Context, ttl time.Duration, maxSize int, opts ...cache.Option[[]byte]) (*MemoryBackend, error) {
	entries, err := cache.NewFromConfig[[]byte](ctx, cache.Config{
		Enabled:         true,
		MaxSize:         maxSize,
		TTL:             ttl,
		CleanupInterval: time.Minute,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return &MemoryBackend{entries: entries}, nil
}

func (m *MemoryBackend) Name() string { return BackendMemory }

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.entries.Get(key)
	return v, ok, nil
}

// Set ignores ttl; the cache-wide expiry applies.
func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	_, err := m.entries.Set(key, value)
	return err
}

func (m *MemoryBackend) Ping(context.Context) error { return nil }

func (m *MemoryBackend) Close() error { return m.entries.Close() }

// Stats exposes the underlying cache statistics.
func (m *MemoryBackend) Stats() *cache.Statistics { return m.entries.Stats() }
