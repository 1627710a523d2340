package memstore

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/c360/genomegate/docstore"
	"github.com/c360/genomegate/errors"
)

// Backend holds databases of collections of documents.
type Backend struct {
	mu        sync.RWMutex
	databases map[string]map[string][]docstore.Document

	queries int64
}

// New creates an empty backend.
func New() *Backend {
	return &Backend{databases: make(map[string]map[string][]docstore.Document)}
}

// CreateCollection ensures db and collection exist, even when empty.
func (b *Backend) CreateCollection(db, collection string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ensure(db, collection)
}

// Insert appends documents to a collection, creating it if needed.
func (b *Backend) Insert(db, collection string, docs ...docstore.Document) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ensure(db, collection)
	for _, d := range docs {
		b.databases[db][collection] = append(b.databases[db][collection], docstore.Clone(d))
	}
}

func (b *Backend) ensure(db, collection string) {
	if b.databases[db] == nil {
		b.databases[db] = make(map[string][]docstore.Document)
	}
	if _, ok := b.databases[db][collection]; !ok {
		b.databases[db][collection] = nil
	}
}

// LoadFile loads a fixture file of the form {"collection": [documents]}
// into db.
func (b *Backend) LoadFile(db, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.WrapFatal(err, "memstore", "LoadFile", "read "+path)
	}
	var fixture map[string][]docstore.Document
	if err := json.Unmarshal(data, &fixture); err != nil {
		return errors.WrapInvalid(err, "memstore", "LoadFile", "decode "+path)
	}
	for collection, docs := range fixture {
		b.Insert(db, collection, docs...)
	}
	return nil
}

// Queries returns how many Find, FindOne and Count calls were served.
func (b *Backend) Queries() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.queries
}

// Database implements docstore.Backend.
func (b *Backend) Database(_ context.Context, name string) (docstore.Database, error) {
	b.mu.RLock()
	_, ok := b.databases[name]
	b.mu.RUnlock()
	if !ok {
		return nil, errors.DatabaseNotFound(name)
	}
	return &database{backend: b, name: name}, nil
}

// Ping implements docstore.Backend.
func (b *Backend) Ping(context.Context) error { return nil }

// Close implements docstore.Backend.
func (b *Backend) Close(context.Context) error { return nil }

type database struct {
	backend *Backend
	name    string
}

func (d *database) Name() string { return d.name }

func (d *database) Collection(_ context.Context, name string) (docstore.Collection, error) {
	d.backend.mu.RLock()
	_, ok := d.backend.databases[d.name][name]
	d.backend.mu.RUnlock()
	if !ok {
		return nil, errors.CollectionNotFound(name)
	}
	return &collection{backend: d.backend, db: d.name, name: name}, nil
}

type collection struct {
	backend *Backend
	db      string
	name    string
}

func (c *collection) Name() string { return c.name }

func (c *collection) matching(ctx context.Context, filter bson.M) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.UpstreamUnavailable("document store", err)
	}

	c.backend.mu.Lock()
	c.backend.queries++
	docs := c.backend.databases[c.db][c.name]
	c.backend.mu.Unlock()

	var out []docstore.Document
	for _, d := range docs {
		if Match(d, filter) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (c *collection) Find(ctx context.Context, filter bson.M, opts docstore.FindOptions) ([]docstore.Document, error) {
	docs, err := c.matching(ctx, filter)
	if err != nil {
		return nil, err
	}

	if len(opts.Sort) > 0 {
		sort.SliceStable(docs, func(i, j int) bool {
			for _, key := range opts.Sort {
				cmp := compareValues(first(docs[i], key.Key), first(docs[j], key.Key))
				if cmp == 0 {
					continue
				}
				if dir, _ := docstore.ToInt(key.Value); dir < 0 {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}

	if opts.Skip > 0 {
		if int(opts.Skip) >= len(docs) {
			docs = nil
		} else {
			docs = docs[opts.Skip:]
		}
	}
	if opts.Limit > 0 && int(opts.Limit) < len(docs) {
		docs = docs[:opts.Limit]
	}

	out := make([]docstore.Document, len(docs))
	for i, d := range docs {
		out[i] = docstore.Clone(d)
	}
	return out, nil
}

func (c *collection) FindOne(ctx context.Context, filter bson.M) (docstore.Document, error) {
	docs, err := c.matching(ctx, filter)
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docstore.Clone(docs[0]), nil
}

func (c *collection) Count(ctx context.Context, filter bson.M) (int64, error) {
	docs, err := c.matching(ctx, filter)
	return int64(len(docs)), err
}

func first(doc docstore.Document, path string) any {
	vals := resolve(doc, path)
	if len(vals) == 0 {
		return nil
	}
	return vals[0]
}
