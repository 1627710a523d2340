package loader

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/c360/genomegate/docstore"
	"github.com/c360/genomegate/docstore/memstore"
	"github.com/c360/genomegate/errors"
	"github.com/c360/genomegate/metric"
)

// spyDatabase records every filter sent to the store.
type spyDatabase struct {
	docstore.Database
	mu      sync.Mutex
	filters []bson.M
}

func (s *spyDatabase) Collection(ctx context.Context, name string) (docstore.Collection, error) {
	c, err := s.Database.Collection(ctx, name)
	if err != nil {
		return nil, err
	}
	return &spyCollection{Collection: c, db: s}, nil
}

func (s *spyDatabase) recorded() []bson.M {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bson.M(nil), s.filters...)
}

type spyCollection struct {
	docstore.Collection
	db *spyDatabase
}

func (c *spyCollection) Find(ctx context.Context, filter bson.M, opts docstore.FindOptions) ([]docstore.Document, error) {
	c.db.mu.Lock()
	c.db.filters = append(c.db.filters, filter)
	c.db.mu.Unlock()
	return c.Collection.Find(ctx, filter, opts)
}

func transcript(genomeID, gene, id string) docstore.Document {
	return docstore.Document{"type": "Transcript", "genome_id": genomeID, "gene_foreign_key": gene, "stable_id": id}
}

func newDatabase(t *testing.T) *spyDatabase {
	t.Helper()
	b := memstore.New()
	b.Insert("release_110", docstore.CollectionTranscript,
		transcript("g1", "ENSG00000139618.15", "ENST00000380152.7"),
		transcript("g1", "ENSG00000139618.15", "ENST00000528762.1"),
		transcript("g1", "ENSG00000012048.23", "ENST00000357654.9"),
		transcript("g2", "ENSG00000139618.15", "ENST_OTHER_GENOME"),
	)
	b.Insert("release_110", docstore.CollectionGene,
		docstore.Document{"type": "Gene", "genome_id": "g1", "stable_id": "ENSG00000139618.15", "unversioned_stable_id": "ENSG00000139618", "symbol": "BRCA2"},
	)
	b.Insert("release_110", docstore.CollectionOrganism,
		docstore.Document{"organism_primary_key": "o1", "species_foreign_key": "s1", "scientific_name": "Homo sapiens"},
	)
	db, err := b.Database(context.Background(), "release_110")
	require.NoError(t, err)
	return &spyDatabase{Database: db}
}

func ids(docs []docstore.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = docstore.String(d, "stable_id")
	}
	return out
}

func TestSet_CoalescesConcurrentLoads(t *testing.T) {
	db := newDatabase(t)
	registry := metric.NewMetricsRegistry()
	set := NewSet(db, "g1", Config{Wait: 20 * time.Millisecond, Metrics: registry.CoreMetrics()})

	keys := []string{"ENSG00000139618.15", "ENSG00000012048.23", "ENSG_MISSING", "ENSG00000139618.15"}
	results := make([][]docstore.Document, len(keys))
	var wg sync.WaitGroup
	for i, key := range keys {
		i, key := i, key
		wg.Add(1)
		go func() {
			defer wg.Done()
			docs, err := set.Load(context.Background(), TranscriptsByGene, key)
			assert.NoError(t, err)
			results[i] = docs
		}()
	}
	wg.Wait()

	filters := db.recorded()
	require.Len(t, filters, 1, "one query for the whole batch")
	assert.Equal(t, bson.M{
		"gene_foreign_key": bson.M{"$in": []string{"ENSG00000012048.23", "ENSG00000139618.15", "ENSG_MISSING"}},
		"type":             "Transcript",
		"genome_id":        "g1",
	}, filters[0])

	assert.ElementsMatch(t, []string{"ENST00000380152.7", "ENST00000528762.1"}, ids(results[0]))
	assert.Equal(t, []string{"ENST00000357654.9"}, ids(results[1]))
	assert.NotNil(t, results[2])
	assert.Empty(t, results[2])
	assert.ElementsMatch(t, ids(results[0]), ids(results[3]))

	assert.Equal(t, 1, testutil.CollectAndCount(registry.CoreMetrics().LoaderBatchSize))
}

func TestSet_MemoisesKeys(t *testing.T) {
	db := newDatabase(t)
	set := NewSet(db, "g1", Config{Wait: time.Millisecond})
	ctx := context.Background()

	gene, err := set.LoadOne(ctx, GeneByStableID, "ENSG00000139618.15")
	require.NoError(t, err)
	assert.Equal(t, "BRCA2", gene["symbol"])

	_, err = set.LoadOne(ctx, GeneByStableID, "ENSG00000139618.15")
	require.NoError(t, err)
	assert.Len(t, db.recorded(), 1)

	missing, err := set.LoadOne(ctx, GeneByStableID, "ENSG_NONE")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSet_GeneMatchesUnversionedStableID(t *testing.T) {
	db := newDatabase(t)
	set := NewSet(db, "g1", Config{Wait: 20 * time.Millisecond})
	ctx := context.Background()

	var versioned, unversioned docstore.Document
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		versioned, err = set.LoadOne(ctx, GeneByStableID, "ENSG00000139618.15")
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		var err error
		unversioned, err = set.LoadOne(ctx, GeneByStableID, "ENSG00000139618")
		assert.NoError(t, err)
	}()
	wg.Wait()

	require.NotNil(t, versioned)
	require.NotNil(t, unversioned)
	assert.Equal(t, "BRCA2", versioned["symbol"])
	assert.Equal(t, "BRCA2", unversioned["symbol"])

	filters := db.recorded()
	require.Len(t, filters, 1)
	keys := []string{"ENSG00000139618", "ENSG00000139618.15"}
	assert.Equal(t, bson.M{
		"$or": bson.A{
			bson.M{"stable_id": bson.M{"$in": keys}},
			bson.M{"unversioned_stable_id": bson.M{"$in": keys}},
		},
		"type":      "Gene",
		"genome_id": "g1",
	}, filters[0])
}

func TestSet_GenomesDoNotShareBatches(t *testing.T) {
	db := newDatabase(t)
	first := NewSet(db, "g1", Config{Wait: 20 * time.Millisecond})
	second := NewSet(db, "g2", Config{Wait: 20 * time.Millisecond})

	var wg sync.WaitGroup
	var fromFirst, fromSecond []docstore.Document
	wg.Add(2)
	go func() {
		defer wg.Done()
		fromFirst, _ = first.Load(context.Background(), TranscriptsByGene, "ENSG00000139618.15")
	}()
	go func() {
		defer wg.Done()
		fromSecond, _ = second.Load(context.Background(), TranscriptsByGene, "ENSG00000139618.15")
	}()
	wg.Wait()

	assert.Len(t, fromFirst, 2)
	assert.Equal(t, []string{"ENST_OTHER_GENOME"}, ids(fromSecond))

	filters := db.recorded()
	require.Len(t, filters, 2)
	genomes := []any{filters[0]["genome_id"], filters[1]["genome_id"]}
	assert.ElementsMatch(t, []any{"g1", "g2"}, genomes)
}

func TestSet_UnscopedJoinAndErrors(t *testing.T) {
	db := newDatabase(t)
	set := NewSet(db, "g1", Config{})
	ctx := context.Background()

	orgs, err := set.Load(ctx, OrganismsBySpecies, "s1")
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	_, scoped := db.recorded()[0]["genome_id"]
	assert.False(t, scoped)

	_, err = set.Load(ctx, RegionsByID, "g1_13_chromosome")
	assert.True(t, errors.HasCode(err, errors.CodeCollectionNotFound))

	_, err = set.Load(ctx, "no_such_loader", "x")
	assert.Error(t, err)
}

func TestSortedUnique(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, sortedUnique([]string{"c", "a", "b", "a"}))
	assert.Empty(t, sortedUnique(nil))
}
