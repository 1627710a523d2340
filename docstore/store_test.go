package docstore_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/c360/genomegate/docstore"
	"github.com/c360/genomegate/docstore/memstore"
	"github.com/c360/genomegate/errors"
)

type fakeReleases struct {
	calls    atomic.Int32
	versions map[string]string
	err      error
	delay    time.Duration
}

func (f *fakeReleases) ReleaseByGenome(_ context.Context, genomeID string) (string, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.versions[genomeID], nil
}

func newBackend() *memstore.Backend {
	b := memstore.New()
	b.Insert("default_db", docstore.CollectionGene, docstore.Document{"type": "Gene", "stable_id": "default"})
	b.Insert("release_110_1", docstore.CollectionGene, docstore.Document{"type": "Gene", "stable_id": "released"})
	b.Insert("default_db", "genome_lookup",
		docstore.Document{"uuid": "g-override", "collection": "combined", "is_current": true},
		docstore.Document{"uuid": "g-stale", "collection": "old", "is_current": false},
	)
	b.Insert("default_db", "combined", docstore.Document{"type": "Gene", "stable_id": "combined"})
	return b
}

func newStore(t *testing.T, releases docstore.ReleaseResolver, lookup string) *docstore.Store {
	t.Helper()
	store, err := docstore.NewStore(context.Background(), newBackend(), releases, docstore.StoreConfig{
		DefaultDB:        "default_db",
		LookupCollection: lookup,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func geneID(t *testing.T, db docstore.Database) string {
	t.Helper()
	coll, err := db.Collection(context.Background(), docstore.CollectionGene)
	require.NoError(t, err)
	doc, err := coll.FindOne(context.Background(), bson.M{"type": "Gene"})
	require.NoError(t, err)
	return docstore.String(doc, "stable_id")
}

func TestDatabaseName(t *testing.T) {
	assert.Equal(t, "release_110_1", docstore.DatabaseName("110.1"))
	assert.Equal(t, "release_110", docstore.DatabaseName(docstore.FormatVersion(110)))
	assert.Equal(t, "110.1", docstore.FormatVersion(110.1))
}

func TestStore_RoutesByRelease(t *testing.T) {
	releases := &fakeReleases{versions: map[string]string{"g-released": "110.1"}}
	store := newStore(t, releases, "")
	ctx := context.Background()

	db, err := store.DatabaseFor(ctx, "g-released")
	require.NoError(t, err)
	assert.Equal(t, "release_110_1", db.Name())
	assert.Equal(t, "released", geneID(t, db))

	db, err = store.DatabaseFor(ctx, "g-unreleased")
	require.NoError(t, err)
	assert.Equal(t, "default_db", db.Name())

	_, err = store.DatabaseFor(ctx, "g-released")
	require.NoError(t, err)
	assert.EqualValues(t, 2, releases.calls.Load(), "release lookups are memoized")
}

func TestStore_NoResolverUsesDefault(t *testing.T) {
	store := newStore(t, nil, "")
	db, err := store.DatabaseFor(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "default", geneID(t, db))

	def, err := store.DefaultDatabase(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "default_db", def.Name())
}

func TestStore_MissingReleaseDatabase(t *testing.T) {
	releases := &fakeReleases{versions: map[string]string{"g1": "999"}}
	store := newStore(t, releases, "")

	_, err := store.DatabaseFor(context.Background(), "g1")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeDatabaseNotFound))
}

func TestStore_ResolverFailure(t *testing.T) {
	store := newStore(t, &fakeReleases{err: fmt.Errorf("connection refused")}, "")
	_, err := store.DatabaseFor(context.Background(), "g1")
	assert.True(t, errors.HasCode(err, errors.CodeUpstreamUnavailable))

	store = newStore(t, &fakeReleases{err: errors.InvalidArgument("bad uuid")}, "")
	_, err = store.DatabaseFor(context.Background(), "g1")
	assert.True(t, errors.HasCode(err, errors.CodeInvalidArgument))
}

func TestStore_CollectionOverride(t *testing.T) {
	store := newStore(t, nil, "genome_lookup")
	ctx := context.Background()

	db, err := store.DatabaseFor(ctx, "g-override")
	require.NoError(t, err)
	assert.Equal(t, "combined", geneID(t, db))

	db, err = store.DatabaseFor(ctx, "g-stale")
	require.NoError(t, err)
	assert.Equal(t, "default", geneID(t, db))
}

func TestStore_ConcurrentLookupsShareOneCall(t *testing.T) {
	releases := &fakeReleases{
		versions: map[string]string{"g1": "110.1"},
		delay:    50 * time.Millisecond,
	}
	store := newStore(t, releases, "")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			db, err := store.DatabaseFor(context.Background(), "g1")
			assert.NoError(t, err)
			if db != nil {
				assert.Equal(t, "release_110_1", db.Name())
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, releases.calls.Load())
}

// gatedReleases blocks every lookup until release is closed, then answers
// only if its own context is still live.
type gatedReleases struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (g *gatedReleases) ReleaseByGenome(ctx context.Context, _ string) (string, error) {
	if g.calls.Add(1) == 1 {
		close(g.started)
	}
	<-g.release
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "110.1", nil
}

func TestStore_CancelledLeaderDoesNotFailFollower(t *testing.T) {
	releases := &gatedReleases{started: make(chan struct{}), release: make(chan struct{})}
	store := newStore(t, releases, "")

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := store.DatabaseFor(leaderCtx, "g1")
		leaderErr <- err
	}()
	<-releases.started

	type outcome struct {
		db  docstore.Database
		err error
	}
	follower := make(chan outcome, 1)
	go func() {
		db, err := store.DatabaseFor(context.Background(), "g1")
		follower <- outcome{db, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelLeader()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)
	close(releases.release)

	got := <-follower
	require.NoError(t, got.err)
	assert.Equal(t, "release_110_1", got.db.Name())
	assert.EqualValues(t, 1, releases.calls.Load(), "follower joined the leader's lookup")
}

func TestNewStore_RequiresDefault(t *testing.T) {
	_, err := docstore.NewStore(context.Background(), memstore.New(), nil, docstore.StoreConfig{}, nil)
	assert.Error(t, err)
}
