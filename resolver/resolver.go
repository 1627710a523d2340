package resolver

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/c360/genomegate/docstore"
	"github.com/c360/genomegate/errors"
	"github.com/c360/genomegate/loader"
	"github.com/c360/genomegate/metadata"
	"github.com/c360/genomegate/metric"
	"github.com/c360/genomegate/pkg/gqlexec"
	"github.com/c360/genomegate/resultcache"
	"github.com/c360/genomegate/xref"
)

// DatabaseSelector picks the release database for a genome.
type DatabaseSelector interface {
	DatabaseFor(ctx context.Context, genomeID string) (docstore.Database, error)
}

// MetadataService is the part of the metadata client the resolvers use.
type MetadataService interface {
	GenomeByUUID(ctx context.Context, genomeUUID string, release float64) (*metadata.Genome, error)
	GenomesByKeyword(ctx context.Context, selector metadata.KeywordSelector, release float64) ([]metadata.Genome, error)
	DatasetsByUUID(ctx context.Context, genomeUUID string, release float64) ([]metadata.Dataset, error)
}

// DefaultMaxDepth bounds query nesting when nothing is configured.
const DefaultMaxDepth = 10

// Config holds the process-wide collaborators shared by every request.
type Config struct {
	Store    DatabaseSelector
	Metadata MetadataService
	Xref     *xref.Resolver
	// Cache may be nil, which disables result caching.
	Cache       *resultcache.Cache
	Loader      loader.Config
	VersionFile string
	MaxDepth    int
	Metrics     *metric.Metrics
	Logger      *slog.Logger
}

// Resolver answers queries against the gateway schema.
type Resolver struct {
	store    DatabaseSelector
	meta     MetadataService
	xrefs    *xref.Resolver
	cache    *resultcache.Cache
	loaders  loader.Config
	version  string
	metrics  *metric.Metrics
	logger   *slog.Logger
	executor *gqlexec.Executor
}

// New builds a resolver and its executor. opts are applied after the
// resolver's own executor options, so callers can replace the error
// presenter or observe fields.
func New(cfg Config, opts ...gqlexec.Option) (*Resolver, error) {
	if cfg.Store == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Resolver", "New", "document store")
	}
	if cfg.Xref == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Resolver", "New", "xref resolver")
	}
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Loader.Metrics == nil {
		cfg.Loader.Metrics = cfg.Metrics
	}

	r := &Resolver{
		store:   cfg.Store,
		meta:    cfg.Metadata,
		xrefs:   cfg.Xref,
		cache:   cfg.Cache,
		loaders: cfg.Loader,
		version: cfg.VersionFile,
		metrics: cfg.Metrics,
		logger:  cfg.Logger.With("component", "resolver"),
	}

	base := []gqlexec.Option{
		gqlexec.WithMaxDepth(cfg.MaxDepth),
		gqlexec.WithErrorPresenter(PresentError),
		gqlexec.WithFieldObserver(r.observe),
		gqlexec.WithLogger(r.logger),
	}
	executor, err := gqlexec.New(schemaSDL, &queryRoot{r: r}, append(base, opts...)...)
	if err != nil {
		return nil, errors.WrapFatal(err, "Resolver", "New", "build executor")
	}
	r.executor = executor
	return r, nil
}

// Executor returns the underlying executor.
func (r *Resolver) Executor() *gqlexec.Executor { return r.executor }

// Execute runs one query under a fresh request scope, released when the
// query completes.
func (r *Resolver) Execute(ctx context.Context, req gqlexec.Request) *gqlexec.Response {
	scope := NewScope()
	defer scope.Release()
	return r.executor.Execute(WithScope(ctx, scope), req)
}

func (r *Resolver) observe(typeName, field string, duration time.Duration, err error) {
	if typeName != "Query" {
		return
	}
	if r.metrics != nil {
		r.metrics.RecordResolver(field, duration)
	}
	if err != nil {
		r.logger.Debug("Root field failed", "field", field, "duration", duration, "error", err)
	}
}

// lookup is the cache identity of one store read. The database is part
// of it because the same filter means different documents in different
// releases.
type lookup struct {
	Database   string `json:"database"`
	Collection string `json:"collection"`
	Filter     bson.M `json:"filter"`
	Sort       bson.D `json:"sort,omitempty"`
	Skip       int64  `json:"skip,omitempty"`
	Limit      int64  `json:"limit,omitempty"`
}

// find reads through the result cache.
func (r *Resolver) find(ctx context.Context, db docstore.Database, collection, docType string, filter bson.M, opts docstore.FindOptions) ([]docstore.Document, error) {
	key := lookup{
		Database:   db.Name(),
		Collection: collection,
		Filter:     filter,
		Sort:       opts.Sort,
		Skip:       opts.Skip,
		Limit:      opts.Limit,
	}
	return r.cache.ReadThrough(ctx, docType, key, func(ctx context.Context) ([]docstore.Document, error) {
		coll, err := db.Collection(ctx, collection)
		if err != nil {
			return nil, err
		}
		return coll.Find(ctx, filter, opts)
	})
}

// findOne reads the first match through the result cache, or nil.
func (r *Resolver) findOne(ctx context.Context, db docstore.Database, collection, docType string, filter bson.M) (docstore.Document, error) {
	docs, err := r.find(ctx, db, collection, docType, filter, docstore.FindOptions{Limit: 1})
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

// bind establishes the root state for a root field targeting genomeID.
// Without a request scope the state lives only as long as the field's
// own resolution.
func (r *Resolver) bind(ctx context.Context, genomeID string) (*RootState, error) {
	open := func(ctx context.Context) (*RootState, error) {
		db, err := r.store.DatabaseFor(ctx, genomeID)
		if err != nil {
			return nil, err
		}
		return &RootState{
			GenomeID: genomeID,
			Database: db,
			Loaders:  loader.NewSet(db, genomeID, r.loaders),
		}, nil
	}
	if scope := ScopeFrom(ctx); scope != nil {
		return scope.Bind(ctx, open)
	}
	return open(ctx)
}

// node is a stored document together with the root it was reached from.
// Every object resolver below the query root is a node.
type node struct {
	r    *Resolver
	root *RootState
	doc  docstore.Document
}

func (n node) with(doc docstore.Document) node {
	return node{r: n.r, root: n.root, doc: doc}
}

func (n node) find(ctx context.Context, collection, docType string, filter bson.M, opts docstore.FindOptions) ([]docstore.Document, error) {
	return n.r.find(ctx, n.root.Database, collection, docType, filter, opts)
}

func (n node) findOne(ctx context.Context, collection, docType string, filter bson.M) (docstore.Document, error) {
	return n.r.findOne(ctx, n.root.Database, collection, docType, filter)
}

// externalReferences annotates the node's xrefs. Entries that cannot be
// annotated are dropped.
func (n node) externalReferences() []*ExternalReference {
	annotated := n.r.xrefs.AnnotateAll(docstore.Docs(n.doc, "external_references"))
	out := make([]*ExternalReference, len(annotated))
	for i, x := range annotated {
		out[i] = newExternalReference(x)
	}
	return out
}
