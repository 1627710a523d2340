//go:build integration
// +build integration

package docstore_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/c360/genomegate/docstore"
	"github.com/c360/genomegate/errors"
)

func startMongoContainer(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)
	return fmt.Sprintf("mongodb://%s:%s", host, port.Port())
}

func seed(ctx context.Context, t *testing.T, uri string) {
	t.Helper()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer func() { _ = client.Disconnect(ctx) }()

	genes := client.Database("release_110_1").Collection(docstore.CollectionGene)
	_, err = genes.InsertMany(ctx, []any{
		bson.M{"type": "Gene", "stable_id": "ENSG00000139618.15", "genome_id": "g1", "symbol": "BRCA2",
			"slice": bson.M{"location": bson.M{"start": int32(32315086), "end": int64(32400266)}}},
		bson.M{"type": "Gene", "stable_id": "ENSG00000012048.23", "genome_id": "g1", "symbol": "BRCA1"},
		bson.M{"type": "Gene", "stable_id": "TraesCS3D02G273600", "genome_id": "g2", "symbol": "wheat"},
	})
	require.NoError(t, err)
}

func TestIntegration_MongoBackend(t *testing.T) {
	ctx := context.Background()
	uri := startMongoContainer(ctx, t)
	seed(ctx, t, uri)

	backend, err := docstore.ConnectMongo(ctx, docstore.MongoConfig{URI: uri, Timeout: 5 * time.Second})
	require.NoError(t, err)
	defer func() { _ = backend.Close(ctx) }()

	require.NoError(t, backend.Ping(ctx))

	_, err = backend.Database(ctx, "release_999")
	assert.True(t, errors.HasCode(err, errors.CodeDatabaseNotFound), "missing db: %v", err)

	db, err := backend.Database(ctx, "release_110_1")
	require.NoError(t, err)
	assert.Equal(t, "release_110_1", db.Name())

	_, err = db.Collection(ctx, docstore.CollectionTranscript)
	assert.True(t, errors.HasCode(err, errors.CodeCollectionNotFound), "missing collection: %v", err)

	genes, err := db.Collection(ctx, docstore.CollectionGene)
	require.NoError(t, err)

	docs, err := genes.Find(ctx, bson.M{"genome_id": "g1"}, docstore.FindOptions{Sort: bson.D{{Key: "stable_id", Value: 1}}, Limit: 1})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "ENSG00000012048.23", docs[0]["stable_id"])
	assert.IsType(t, "", docs[0]["_id"], "object ids are normalised to hex")

	doc, err := genes.FindOne(ctx, bson.M{"symbol": "BRCA2"})
	require.NoError(t, err)
	assert.Equal(t, 32315086, docstore.Int(doc, "slice.location.start"))
	assert.Equal(t, 32400266, docstore.Int(doc, "slice.location.end"))

	doc, err = genes.FindOne(ctx, bson.M{"symbol": "absent"})
	require.NoError(t, err)
	assert.Nil(t, doc)

	n, err := genes.Count(ctx, bson.M{"genome_id": "g1"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestIntegration_StoreOverMongo(t *testing.T) {
	ctx := context.Background()
	uri := startMongoContainer(ctx, t)
	seed(ctx, t, uri)

	backend, err := docstore.ConnectMongo(ctx, docstore.MongoConfig{URI: uri, Timeout: 5 * time.Second})
	require.NoError(t, err)

	store, err := docstore.NewStore(ctx, backend, &fakeReleases{versions: map[string]string{"g1": "110.1"}},
		docstore.StoreConfig{DefaultDB: "release_110_1"}, nil)
	require.NoError(t, err)
	defer func() { _ = store.Close(ctx) }()

	db, err := store.DatabaseFor(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "release_110_1", db.Name())
}

func TestIntegration_MissesAreNotRemembered(t *testing.T) {
	ctx := context.Background()
	uri := startMongoContainer(ctx, t)

	backend, err := docstore.ConnectMongo(ctx, docstore.MongoConfig{URI: uri, Timeout: 5 * time.Second})
	require.NoError(t, err)
	defer func() { _ = backend.Close(ctx) }()

	_, err = backend.Database(ctx, "release_110_1")
	require.True(t, errors.HasCode(err, errors.CodeDatabaseNotFound), "before seeding: %v", err)

	seed(ctx, t, uri)

	db, err := backend.Database(ctx, "release_110_1")
	require.NoError(t, err, "database created after a miss is found")

	_, err = db.Collection(ctx, docstore.CollectionTranscript)
	require.True(t, errors.HasCode(err, errors.CodeCollectionNotFound), "before insert: %v", err)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer func() { _ = client.Disconnect(ctx) }()
	_, err = client.Database("release_110_1").Collection(docstore.CollectionTranscript).
		InsertOne(ctx, bson.M{"type": "Transcript", "stable_id": "ENST00000380152.8", "genome_id": "g1"})
	require.NoError(t, err)

	transcripts, err := db.Collection(ctx, docstore.CollectionTranscript)
	require.NoError(t, err, "collection created after a miss is found")
	n, err := transcripts.Count(ctx, bson.M{"genome_id": "g1"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
