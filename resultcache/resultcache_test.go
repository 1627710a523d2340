package resultcache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/c360/genomegate/docstore"
	"github.com/c360/genomegate/metric"
)

var brca2 = []docstore.Document{{"type": "Gene", "stable_id": "ENSG00000139618.15", "symbol": "BRCA2"}}

func countingFetch(calls *atomic.Int32, docs []docstore.Document) FetchFunc {
	return func(context.Context) ([]docstore.Document, error) {
		calls.Add(1)
		return docs, nil
	}
}

func newMemoryCache(t *testing.T, ttl time.Duration) (*Cache, *metric.Metrics) {
	t.Helper()
	backend, err := NewMemoryBackend(context.Background(), ttl, 100)
	require.NoError(t, err)
	metrics := metric.NewMetricsRegistry().CoreMetrics()
	c := NewCache(backend, ttl, metrics, nil)
	t.Cleanup(func() { _ = c.Close() })
	return c, metrics
}

func TestKey_Canonical(t *testing.T) {
	a, err := Key("Gene", bson.M{"genome_id": "g1", "stable_id": "ENSG00000139618.15", "type": "Gene"})
	require.NoError(t, err)

	filter := bson.M{}
	filter["type"] = "Gene"
	filter["stable_id"] = "ENSG00000139618.15"
	filter["genome_id"] = "g1"
	b, err := Key("Gene", filter)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Key("Transcript", filter)
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "doc type is part of the key")

	d, err := Key("Gene", bson.M{"genome_id": "g2", "stable_id": "ENSG00000139618.15", "type": "Gene"})
	require.NoError(t, err)
	assert.NotEqual(t, a, d)
}

func TestReadThrough_Memory(t *testing.T) {
	c, metrics := newMemoryCache(t, time.Minute)
	ctx := context.Background()
	filter := bson.M{"stable_id": "ENSG00000139618.15"}
	var calls atomic.Int32

	docs, err := c.ReadThrough(ctx, "Gene", filter, countingFetch(&calls, brca2))
	require.NoError(t, err)
	assert.Equal(t, "BRCA2", docs[0]["symbol"])

	docs, err = c.ReadThrough(ctx, "Gene", filter, countingFetch(&calls, brca2))
	require.NoError(t, err)
	assert.Equal(t, "BRCA2", docs[0]["symbol"])
	assert.EqualValues(t, 1, calls.Load())

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ResultCacheOps.WithLabelValues(BackendMemory, "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ResultCacheOps.WithLabelValues(BackendMemory, "set")))
}

func TestReadThrough_FetchErrorNotCached(t *testing.T) {
	c, _ := newMemoryCache(t, time.Minute)
	ctx := context.Background()

	_, err := c.ReadThrough(ctx, "Gene", bson.M{"x": 1}, func(context.Context) ([]docstore.Document, error) {
		return nil, fmt.Errorf("boom")
	})
	require.Error(t, err)

	_, ok := c.Get(ctx, "Gene", bson.M{"x": 1})
	assert.False(t, ok)
}

func TestSet_SkippedAfterCancel(t *testing.T) {
	c, metrics := newMemoryCache(t, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c.Set(ctx, "Gene", bson.M{"x": 1}, brca2)
	_, ok := c.Get(context.Background(), "Gene", bson.M{"x": 1})
	assert.False(t, ok)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ResultCacheOps.WithLabelValues(BackendMemory, "skip")))
}

func TestDisabledCache_PassesThrough(t *testing.T) {
	c := NewCache(nil, 0, nil, nil)
	var calls atomic.Int32

	for i := 0; i < 2; i++ {
		_, err := c.ReadThrough(context.Background(), "Gene", bson.M{}, countingFetch(&calls, brca2))
		require.NoError(t, err)
	}
	assert.EqualValues(t, 2, calls.Load())
	assert.False(t, c.Enabled())

	var nilCache *Cache
	_, err := nilCache.ReadThrough(context.Background(), "Gene", bson.M{}, countingFetch(&calls, brca2))
	assert.NoError(t, err)
}

func TestReadThrough_ConcurrentMissesShareFetch(t *testing.T) {
	c, _ := newMemoryCache(t, time.Minute)
	var calls atomic.Int32
	slow := func(context.Context) ([]docstore.Document, error) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		return brca2, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			docs, err := c.ReadThrough(context.Background(), "Gene", bson.M{"k": "v"}, slow)
			assert.NoError(t, err)
			assert.Len(t, docs, 1)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, calls.Load())
}

func TestReadThrough_CancelledLeaderDoesNotFailFollower(t *testing.T) {
	c, _ := newMemoryCache(t, time.Minute)
	filter := bson.M{"k": "shared"}

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context) ([]docstore.Document, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return brca2, nil
	}

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := c.ReadThrough(leaderCtx, "Gene", filter, fetch)
		leaderErr <- err
	}()
	<-started

	type outcome struct {
		docs []docstore.Document
		err  error
	}
	follower := make(chan outcome, 1)
	go func() {
		docs, err := c.ReadThrough(context.Background(), "Gene", filter, fetch)
		follower <- outcome{docs, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelLeader()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)
	close(release)

	got := <-follower
	require.NoError(t, got.err)
	assert.Equal(t, brca2, got.docs)
	assert.EqualValues(t, 1, calls.Load(), "follower joined the leader's fetch")

	cached, ok := c.Get(context.Background(), "Gene", filter)
	require.True(t, ok, "shared result is cached even though the leader left")
	assert.Equal(t, brca2, cached)
}

func TestReadThrough_CallerCancelStopsWaiting(t *testing.T) {
	c, _ := newMemoryCache(t, time.Minute)
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.ReadThrough(ctx, "Gene", bson.M{"k": "slow"}, func(context.Context) ([]docstore.Document, error) {
		<-release
		return brca2, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewCache(NewRedisBackend(RedisConfig{Addr: mr.Addr()}), 6600*time.Second, nil, nil)
	ctx := context.Background()
	filter := bson.M{"stable_id": "ENSG00000139618.15"}
	var calls atomic.Int32

	_, err := c.ReadThrough(ctx, "Gene", filter, countingFetch(&calls, brca2))
	require.NoError(t, err)

	key, err := Key("Gene", filter)
	require.NoError(t, err)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 6600*time.Second, mr.TTL(key))

	docs, ok := c.Get(ctx, "Gene", filter)
	require.True(t, ok)
	assert.Equal(t, "ENSG00000139618.15", docs[0]["stable_id"])

	mr.FastForward(6601 * time.Second)
	_, ok = c.Get(ctx, "Gene", filter)
	assert.False(t, ok)
}

func TestRedisBackend_FailuresAreSwallowed(t *testing.T) {
	mr := miniredis.RunT(t)
	metrics := metric.NewMetricsRegistry().CoreMetrics()
	c := NewCache(NewRedisBackend(RedisConfig{Addr: mr.Addr(), Timeout: 100 * time.Millisecond}), time.Minute, metrics, nil)
	mr.Close()

	var calls atomic.Int32
	docs, err := c.ReadThrough(context.Background(), "Gene", bson.M{}, countingFetch(&calls, brca2))
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.EqualValues(t, 1, calls.Load())
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.ResultCacheOps.WithLabelValues(BackendRedis, "error")), 1.0)
}

func TestNew_SelectsBackend(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, Config{Enabled: false})
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	c, err = New(ctx, Config{Enabled: true, Backend: BackendMemory, TTL: time.Minute, MaxSize: 10, Registry: metric.NewMetricsRegistry()})
	require.NoError(t, err)
	assert.True(t, c.Enabled())
	require.NoError(t, c.Close())

	mr := miniredis.RunT(t)
	c, err = New(ctx, Config{Enabled: true, Backend: BackendRedis, Addr: mr.Addr(), TTL: time.Minute})
	require.NoError(t, err)
	assert.NoError(t, c.Ping(ctx))

	_, err = New(ctx, Config{Enabled: true, Backend: "memcached", TTL: time.Minute})
	assert.Error(t, err)
	_, err = New(ctx, Config{Enabled: true, Backend: BackendMemory})
	assert.Error(t, err)
}
