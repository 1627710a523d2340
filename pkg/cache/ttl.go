package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/c360/genomegate/errors"
)

type ttlEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

func (e *ttlEntry[V]) isExpired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// ttlCache expires entries after a fixed TTL and, when maxSize is set,
// evicts the oldest entry to make room. With a fixed TTL insertion order is
// expiry order, so a single list serves both policies.
type ttlCache[V any] struct {
	mu              sync.Mutex
	ttl             time.Duration
	maxSize         int
	cleanupInterval time.Duration
	items           map[string]*list.Element
	order           *list.List
	stats           *Statistics
	metrics         *cacheMetrics
	evictFn         EvictCallback[V]

	shutdown  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newTTLCache[V any](
	ctx context.Context, ttl time.Duration, maxSize int, cleanupInterval time.Duration, opts *cacheOptions[V],
) (*ttlCache[V], error) {
	var metrics *cacheMetrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newCacheMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "cache", "newTTLCache", "metrics registration")
		}
	}

	c := &ttlCache[V]{
		ttl:             ttl,
		maxSize:         maxSize,
		cleanupInterval: cleanupInterval,
		items:           make(map[string]*list.Element),
		order:           list.New(),
		stats:           NewStatistics(),
		metrics:         metrics,
		evictFn:         opts.evictCallback,
		shutdown:        make(chan struct{}),
		done:            make(chan struct{}),
	}

	go c.cleanup(ctx)

	return c, nil
}

// Get retrieves a value by key, dropping it if it has expired.
func (c *ttlCache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	elem, exists := c.items[key]
	if !exists {
		c.mu.Unlock()
		c.recordMiss()
		return zero, false
	}

	entry := elem.Value.(*ttlEntry[V])
	if entry.isExpired(time.Now()) {
		c.removeElement(elem)
		size := len(c.items)
		c.mu.Unlock()

		c.afterEvict([]*ttlEntry[V]{entry}, size)
		c.recordMiss()
		return zero, false
	}
	value := entry.value
	c.mu.Unlock()

	c.stats.Hit()
	if c.metrics != nil {
		c.metrics.recordHit()
	}
	return value, true
}

// Set stores a value and restarts its TTL.
func (c *ttlCache[V]) Set(key string, value V) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	entry := &ttlEntry[V]{key: key, value: value, expiresAt: time.Now().Add(c.ttl)}

	var evicted []*ttlEntry[V]

	c.mu.Lock()
	elem, exists := c.items[key]
	if exists {
		elem.Value = entry
		c.order.MoveToBack(elem)
	} else {
		c.items[key] = c.order.PushBack(entry)
		for c.maxSize > 0 && len(c.items) > c.maxSize {
			oldest := c.order.Front()
			evicted = append(evicted, oldest.Value.(*ttlEntry[V]))
			c.removeElement(oldest)
		}
	}
	size := len(c.items)
	c.mu.Unlock()

	c.stats.Set()
	if c.metrics != nil {
		c.metrics.recordSet()
	}
	c.afterEvict(evicted, size)

	return !exists, nil
}

// Delete removes an entry by key.
func (c *ttlCache[V]) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	elem, exists := c.items[key]
	var entry *ttlEntry[V]
	if exists {
		entry = elem.Value.(*ttlEntry[V])
		c.removeElement(elem)
	}
	size := len(c.items)
	c.mu.Unlock()

	if exists {
		c.stats.Delete()
		c.stats.UpdateSize(int64(size))
		if c.metrics != nil {
			c.metrics.updateSize(size)
		}
		if c.evictFn != nil {
			c.evictFn(key, entry.value)
		}
	}
	return exists, nil
}

// Clear removes all entries from the cache.
func (c *ttlCache[V]) Clear() error {
	c.mu.Lock()
	var removed []*ttlEntry[V]
	if c.evictFn != nil {
		for elem := c.order.Front(); elem != nil; elem = elem.Next() {
			removed = append(removed, elem.Value.(*ttlEntry[V]))
		}
	}
	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.mu.Unlock()

	for _, entry := range removed {
		c.evictFn(entry.key, entry.value)
	}
	c.stats.UpdateSize(0)
	if c.metrics != nil {
		c.metrics.updateSize(0)
	}
	return nil
}

// Size returns the current number of entries in the cache.
func (c *ttlCache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns cache statistics.
func (c *ttlCache[V]) Stats() *Statistics {
	return c.stats
}

// Close stops the background cleanup goroutine.
func (c *ttlCache[V]) Close() error {
	c.closeOnce.Do(func() {
		close(c.shutdown)
		if c.metrics != nil {
			c.metrics.unregister()
		}
	})

	select {
	case <-c.done:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for cleanup goroutine to finish")
	}
}

// removeElement must be called with mu held.
func (c *ttlCache[V]) removeElement(elem *list.Element) {
	entry := elem.Value.(*ttlEntry[V])
	delete(c.items, entry.key)
	c.order.Remove(elem)
}

func (c *ttlCache[V]) recordMiss() {
	c.stats.Miss()
	if c.metrics != nil {
		c.metrics.recordMiss()
	}
}

// afterEvict runs callbacks and bookkeeping outside the lock.
func (c *ttlCache[V]) afterEvict(evicted []*ttlEntry[V], size int) {
	c.stats.UpdateSize(int64(size))
	if c.metrics != nil {
		c.metrics.updateSize(size)
	}
	for _, entry := range evicted {
		c.stats.Eviction()
		if c.metrics != nil {
			c.metrics.recordEviction()
		}
		if c.evictFn != nil {
			c.evictFn(entry.key, entry.value)
		}
	}
}

func (c *ttlCache[V]) cleanup(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdown:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *ttlCache[V]) removeExpired() {
	now := time.Now()
	var expired []*ttlEntry[V]

	c.mu.Lock()
	for elem := c.order.Front(); elem != nil; {
		entry := elem.Value.(*ttlEntry[V])
		if !entry.isExpired(now) {
			break
		}
		next := elem.Next()
		expired = append(expired, entry)
		c.removeElement(elem)
		elem = next
	}
	size := len(c.items)
	c.mu.Unlock()

	if len(expired) > 0 {
		c.afterEvict(expired, size)
	}
}
