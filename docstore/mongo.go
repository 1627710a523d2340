package docstore

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/otel/attribute"

	"github.com/c360/genomegate/errors"
	"github.com/c360/genomegate/metric"
	"github.com/c360/genomegate/pkg/retry"
	"github.com/c360/genomegate/tracing"
)

const serviceName = "document store"

// MongoConfig configures the MongoDB backend.
type MongoConfig struct {
	URI     string
	Timeout time.Duration
	Metrics *metric.Metrics
	Logger  *slog.Logger
}

// MongoBackend serves databases from a MongoDB deployment, reading from
// secondaries when available.
type MongoBackend struct {
	client  *mongo.Client
	timeout time.Duration
	metrics *metric.Metrics
	logger  *slog.Logger

	mu        sync.Mutex
	databases map[string]bool
}

// ConnectMongo connects and pings the deployment, retrying transient
// failures.
func ConnectMongo(ctx context.Context, cfg MongoConfig) (*MongoBackend, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetReadPreference(readpref.SecondaryPreferred()).
		SetServerSelectionTimeout(cfg.Timeout).
		SetConnectTimeout(cfg.Timeout).
		SetAppName("genomegate")

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.WrapFatal(err, "MongoBackend", "Connect", "configure client")
	}

	b := &MongoBackend{
		client:    client,
		timeout:   cfg.Timeout,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger.With("component", "mongo"),
		databases: make(map[string]bool),
	}

	err = retry.Do(ctx, retry.Quick(), func() error {
		return b.Ping(ctx)
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.WrapTransient(err, "MongoBackend", "Connect", "ping")
	}
	b.logger.Info("Connected to document store")
	return b, nil
}

// Ping checks reachability within the per-call timeout.
func (b *MongoBackend) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.client.Ping(ctx, readpref.SecondaryPreferred())
}

// Close disconnects the client.
func (b *MongoBackend) Close(ctx context.Context) error {
	return b.client.Disconnect(ctx)
}

// Database returns a handle after confirming the database exists. Only
// databases that were found are remembered, so a release loaded after a
// miss becomes visible on the next lookup.
func (b *MongoBackend) Database(ctx context.Context, name string) (Database, error) {
	b.mu.Lock()
	known := b.databases[name]
	b.mu.Unlock()

	if !known {
		var names []string
		err := b.call(ctx, "list_databases", func(ctx context.Context) error {
			var err error
			names, err = b.client.ListDatabaseNames(ctx, bson.D{{Key: "name", Value: name}})
			return err
		})
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, errors.DatabaseNotFound(name)
		}
		b.mu.Lock()
		b.databases[name] = true
		b.mu.Unlock()
	}

	return &mongoDatabase{backend: b, db: b.client.Database(name), collections: make(map[string]bool)}, nil
}

// call runs fn under the per-call timeout, with a span and metrics, and
// maps driver failures to UPSTREAM_UNAVAILABLE.
func (b *MongoBackend) call(ctx context.Context, method string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := tracing.Start(ctx, "docstore."+method, attrs...)
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	if b.metrics != nil {
		b.metrics.RecordUpstream("mongo", method, time.Since(start), err)
	}
	tracing.End(span, err)

	if err != nil {
		b.logger.Debug("Document store call failed", "method", method, "error", err)
		return errors.UpstreamUnavailable(serviceName, err)
	}
	return nil
}

type mongoDatabase struct {
	backend *MongoBackend
	db      *mongo.Database

	mu          sync.Mutex
	collections map[string]bool
}

func (d *mongoDatabase) Name() string { return d.db.Name() }

// Collection re-lists the database whenever name has not been seen, so
// collections created after a miss are picked up.
func (d *mongoDatabase) Collection(ctx context.Context, name string) (Collection, error) {
	d.mu.Lock()
	ok := d.collections[name]
	d.mu.Unlock()

	if !ok {
		var names []string
		err := d.backend.call(ctx, "list_collections", func(ctx context.Context) error {
			var err error
			names, err = d.db.ListCollectionNames(ctx, bson.D{})
			return err
		}, attribute.String("db", d.db.Name()))
		if err != nil {
			return nil, err
		}
		d.mu.Lock()
		for _, n := range names {
			d.collections[n] = true
		}
		ok = d.collections[name]
		d.mu.Unlock()
	}

	if !ok {
		return nil, errors.CollectionNotFound(name)
	}
	return &mongoCollection{backend: d.backend, coll: d.db.Collection(name)}, nil
}

type mongoCollection struct {
	backend *MongoBackend
	coll    *mongo.Collection
}

func (c *mongoCollection) Name() string { return c.coll.Name() }

func (c *mongoCollection) attrs() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("db", c.coll.Database().Name()),
		attribute.String("collection", c.coll.Name()),
	}
}

func (c *mongoCollection) Find(ctx context.Context, filter bson.M, opts FindOptions) ([]Document, error) {
	fo := options.Find()
	if len(opts.Sort) > 0 {
		fo.SetSort(opts.Sort)
	}
	if opts.Skip > 0 {
		fo.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		fo.SetLimit(opts.Limit)
	}

	var raw []bson.M
	err := c.backend.call(ctx, "find", func(ctx context.Context) error {
		cur, err := c.coll.Find(ctx, filter, fo)
		if err != nil {
			return err
		}
		return cur.All(ctx, &raw)
	}, c.attrs()...)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, len(raw))
	for i, m := range raw {
		docs[i] = Normalize(m)
	}
	return docs, nil
}

func (c *mongoCollection) FindOne(ctx context.Context, filter bson.M) (Document, error) {
	var raw bson.M
	found := true
	err := c.backend.call(ctx, "find_one", func(ctx context.Context) error {
		err := c.coll.FindOne(ctx, filter).Decode(&raw)
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			found = false
			return nil
		}
		return err
	}, c.attrs()...)
	if err != nil || !found {
		return nil, err
	}
	return Normalize(raw), nil
}

func (c *mongoCollection) Count(ctx context.Context, filter bson.M) (int64, error) {
	var n int64
	err := c.backend.call(ctx, "count", func(ctx context.Context) error {
		var err error
		n, err = c.coll.CountDocuments(ctx, filter)
		return err
	}, c.attrs()...)
	return n, err
}
