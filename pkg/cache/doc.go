// Package cache provides the in-memory cache used by genomegate.
//
// NewTTL returns a Cache[V] whose entries expire after a fixed TTL and which
// evicts its oldest entries once MaxSize is reached. A background goroutine
// sweeps expired entries every CleanupInterval until the context passed to
// the constructor is done or Close is called.
//
//	c, err := cache.NewTTL[[]byte](ctx, 6600*time.Second, 10000, time.Minute,
//	    cache.WithMetrics[[]byte](registry, "result_cache"),
//	)
//
// Statistics are always collected. WithMetrics additionally exports them as
// Prometheus counters under genomegate_cache_* labelled by component.
//
// The result cache memory backend and the release-version memo in the
// document store are both built on this package.
package cache
