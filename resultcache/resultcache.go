package resultcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/c360/genomegate/docstore"
	"github.com/c360/genomegate/errors"
	"github.com/c360/genomegate/metric"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

const keyPrefix = "genomegate:"

// SharedFetchTimeout bounds a fetch shared by concurrent misses. The fetch
// runs detached from the caller that started it, so that caller going
// away does not fail the others waiting on the same key.
const SharedFetchTimeout = 30 * time.Second

// Backend stores encoded results under opaque keys.
type Backend interface {
	Name() string
	// Get reports a miss as (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

// FetchFunc loads the documents for a cache miss.
type FetchFunc func(ctx context.Context) ([]docstore.Document, error)

// Cache is a read-through facade over a Backend. A nil or disabled Cache
// passes every call straight to the fetch function. Backend failures are
// logged and counted but never returned.
type Cache struct {
	backend Backend
	ttl     time.Duration
	metrics *metric.Metrics
	logger  *slog.Logger
	group   singleflight.Group
}

// NewCache wraps backend. A nil backend yields a pass-through cache.
func NewCache(backend Backend, ttl time.Duration, metrics *metric.Metrics, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		backend: backend,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger.With("component", "resultcache"),
	}
}

// Enabled reports whether results are stored.
func (c *Cache) Enabled() bool {
	return c != nil && c.backend != nil
}

// Key derives the canonical key for a lookup. Map keys are encoded in
// sorted order, so equal filters give equal keys regardless of how they
// were built.
func Key(docType string, filter any) (string, error) {
	body, err := json.Marshal(filter)
	if err != nil {
		return "", errors.WrapInvalid(err, "resultcache", "Key", "encode filter")
	}
	h := sha256.New()
	h.Write([]byte(docType))
	h.Write([]byte{0})
	h.Write(body)
	return keyPrefix + docType + ":" + hex.EncodeToString(h.Sum(nil)), nil
}

// Get returns cached documents for the lookup.
func (c *Cache) Get(ctx context.Context, docType string, filter any) ([]docstore.Document, bool) {
	if !c.Enabled() {
		return nil, false
	}
	key, err := Key(docType, filter)
	if err != nil {
		c.fail("get", err)
		return nil, false
	}
	return c.get(ctx, key)
}

func (c *Cache) get(ctx context.Context, key string) ([]docstore.Document, bool) {
	raw, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.fail("get", err)
		return nil, false
	}
	if !ok {
		c.record("miss")
		return nil, false
	}

	var docs []docstore.Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		c.fail("decode", err)
		return nil, false
	}
	c.record("hit")
	return docs, true
}

// Set stores documents for the lookup. Nothing is written once ctx is
// done, so cancelled requests leave no trace in the cache.
func (c *Cache) Set(ctx context.Context, docType string, filter any, docs []docstore.Document) {
	if !c.Enabled() {
		return
	}
	key, err := Key(docType, filter)
	if err != nil {
		c.fail("set", err)
		return
	}
	c.set(ctx, key, docs)
}

func (c *Cache) set(ctx context.Context, key string, docs []docstore.Document) {
	if ctx.Err() != nil {
		c.record("skip")
		return
	}
	if docs == nil {
		docs = []docstore.Document{}
	}
	raw, err := json.Marshal(docs)
	if err != nil {
		c.fail("encode", err)
		return
	}
	if err := c.backend.Set(ctx, key, raw, c.ttl); err != nil {
		c.fail("set", err)
		return
	}
	c.record("set")
}

// ReadThrough returns cached documents or calls fetch, caching its result.
// Concurrent misses on one key share a single fetch. Each caller waits on
// its own ctx only.
func (c *Cache) ReadThrough(ctx context.Context, docType string, filter any, fetch FetchFunc) ([]docstore.Document, error) {
	if !c.Enabled() {
		return fetch(ctx)
	}
	key, err := Key(docType, filter)
	if err != nil {
		c.fail("get", err)
		return fetch(ctx)
	}
	if docs, ok := c.get(ctx, key); ok {
		return docs, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SharedFetchTimeout)
		defer cancel()
		docs, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.set(fetchCtx, key, docs)
		return docs, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, res.Err
	}

	docs := res.Val.([]docstore.Document)
	if res.Shared {
		out := make([]docstore.Document, len(docs))
		for i, d := range docs {
			out[i] = docstore.Clone(d)
		}
		return out, nil
	}
	return docs, nil
}

// Ping checks the backend.
func (c *Cache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.backend.Ping(ctx)
}

// Close releases the backend.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.backend.Close()
}

func (c *Cache) record(result string) {
	if c.metrics != nil {
		c.metrics.RecordCacheOp(c.backend.Name(), result)
	}
}

func (c *Cache) fail(op string, err error) {
	c.logger.Warn("Result cache operation failed", "backend", c.backend.Name(), "op", op, "error", err)
	c.record("error")
}
