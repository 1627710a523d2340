package docstore

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/singleflight"

	"github.com/c360/genomegate/errors"
	"github.com/c360/genomegate/pkg/cache"
)

// Collection names in a release database.
const (
	CollectionGene       = "gene"
	CollectionTranscript = "transcript"
	CollectionProtein    = "protein"
	CollectionRegion     = "region"
	CollectionAssembly   = "assembly"
	CollectionOrganism   = "organism"
	CollectionSpecies    = "species"
)

// sharedLookupTimeout bounds a release or override lookup shared by
// concurrent callers.
const sharedLookupTimeout = 30 * time.Second

// FindOptions shapes a Find call. Zero values mean unsorted, no skip and
// no limit.
type FindOptions struct {
	Sort  bson.D
	Skip  int64
	Limit int64
}

// Collection is a read-only view of a document collection.
type Collection interface {
	Name() string
	Find(ctx context.Context, filter bson.M, opts FindOptions) ([]Document, error)
	// FindOne returns nil without error when nothing matches.
	FindOne(ctx context.Context, filter bson.M) (Document, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
}

// Database is a release database.
type Database interface {
	Name() string
	// Collection fails with COLLECTION_NOT_FOUND for unknown names.
	Collection(ctx context.Context, name string) (Collection, error)
}

// Backend opens databases on a concrete store.
type Backend interface {
	// Database fails with DATABASE_NOT_FOUND for unknown names.
	Database(ctx context.Context, name string) (Database, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// ReleaseResolver reports the release a genome belongs to. An empty
// version means the genome has no release and the default database
// applies.
type ReleaseResolver interface {
	ReleaseByGenome(ctx context.Context, genomeID string) (string, error)
}

// DatabaseName returns the database holding a release, e.g. "110.1"
// becomes "release_110_1".
func DatabaseName(version string) string {
	return "release_" + strings.ReplaceAll(version, ".", "_")
}

// FormatVersion renders a numeric release version the way database names
// expect: 110 stays "110", 110.1 becomes "110.1".
func FormatVersion(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// StoreConfig configures database selection.
type StoreConfig struct {
	DefaultDB        string
	LookupCollection string
	MaxDatabases     int
	ReleaseTTL       time.Duration
}

// Store selects the release database for a genome. It is shared across
// requests and safe for concurrent use.
type Store struct {
	backend  Backend
	releases ReleaseResolver
	cfg      StoreConfig
	logger   *slog.Logger

	group     singleflight.Group
	memo      cache.Cache[string]
	overrides cache.Cache[string]

	mu      sync.Mutex
	handles *lru.Cache
}

// NewStore wraps backend with release routing. releases may be nil, in
// which case every genome uses the default database.
func NewStore(ctx context.Context, backend Backend, releases ReleaseResolver, cfg StoreConfig, logger *slog.Logger) (*Store, error) {
	if cfg.DefaultDB == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Store", "NewStore", "default database")
	}
	if cfg.MaxDatabases <= 0 {
		cfg.MaxDatabases = 32
	}
	if cfg.ReleaseTTL <= 0 {
		cfg.ReleaseTTL = 6600 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	memo, err := cache.NewTTL[string](ctx, cfg.ReleaseTTL, 10000, time.Minute)
	if err != nil {
		return nil, err
	}
	overrides, err := cache.NewTTL[string](ctx, cfg.ReleaseTTL, 10000, time.Minute)
	if err != nil {
		return nil, err
	}

	return &Store{
		backend:   backend,
		releases:  releases,
		cfg:       cfg,
		logger:    logger.With("component", "docstore"),
		memo:      memo,
		overrides: overrides,
		handles:   lru.New(cfg.MaxDatabases),
	}, nil
}

// DefaultDatabase returns the configured fallback database.
func (s *Store) DefaultDatabase(ctx context.Context) (Database, error) {
	return s.database(ctx, s.cfg.DefaultDB)
}

// DatabaseFor returns the database holding genomeID's release, the default
// database when the genome has no release, and applies any collection
// override registered for the genome.
func (s *Store) DatabaseFor(ctx context.Context, genomeID string) (Database, error) {
	name, err := s.databaseName(ctx, genomeID)
	if err != nil {
		return nil, err
	}

	db, err := s.database(ctx, name)
	if err != nil {
		return nil, err
	}

	if s.cfg.LookupCollection == "" {
		return db, nil
	}
	override, err := s.collectionOverride(ctx, genomeID)
	if err != nil {
		return nil, err
	}
	if override != "" {
		return &overrideDatabase{Database: db, collection: override}, nil
	}
	return db, nil
}

func (s *Store) databaseName(ctx context.Context, genomeID string) (string, error) {
	if s.releases == nil || genomeID == "" {
		return s.cfg.DefaultDB, nil
	}
	if name, ok := s.memo.Get(genomeID); ok {
		return name, nil
	}

	name, err := s.shared(ctx, genomeID, func(ctx context.Context) (string, error) {
		version, err := s.releases.ReleaseByGenome(ctx, genomeID)
		if err != nil {
			return "", err
		}
		name := s.cfg.DefaultDB
		if version != "" {
			name = DatabaseName(version)
		}
		_, _ = s.memo.Set(genomeID, name)
		return name, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if _, ok := errors.AsQueryError(err); ok {
			return "", err
		}
		return "", errors.UpstreamUnavailable("metadata", err)
	}

	s.logger.Debug("Resolved release database", "genome_id", genomeID, "database", name)
	return name, nil
}

func (s *Store) database(ctx context.Context, name string) (Database, error) {
	s.mu.Lock()
	if db, ok := s.handles.Get(name); ok {
		s.mu.Unlock()
		return db.(Database), nil
	}
	s.mu.Unlock()

	db, err := s.backend.Database(ctx, name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.handles.Add(name, db)
	s.mu.Unlock()
	return db, nil
}

func (s *Store) collectionOverride(ctx context.Context, genomeID string) (string, error) {
	if name, ok := s.overrides.Get(genomeID); ok {
		return name, nil
	}

	return s.shared(ctx, "override:"+genomeID, func(ctx context.Context) (string, error) {
		def, err := s.database(ctx, s.cfg.DefaultDB)
		if err != nil {
			return "", err
		}
		lookup, err := def.Collection(ctx, s.cfg.LookupCollection)
		if err != nil {
			return "", err
		}
		doc, err := lookup.FindOne(ctx, bson.M{"uuid": genomeID, "is_current": true})
		if err != nil {
			return "", err
		}
		name := String(doc, "collection")
		_, _ = s.overrides.Set(genomeID, name)
		return name, nil
	})
}

// shared runs lookup once per key across concurrent callers. The lookup
// is detached from the cancellation of the caller that started it and
// bounded by sharedLookupTimeout; each caller waits on its own ctx.
func (s *Store) shared(ctx context.Context, key string, lookup func(context.Context) (string, error)) (string, error) {
	ch := s.group.DoChan(key, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLookupTimeout)
		defer cancel()
		return lookup(lookupCtx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Ping checks the backend.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// Close releases the memo caches and the backend.
func (s *Store) Close(ctx context.Context) error {
	_ = s.memo.Close()
	_ = s.overrides.Close()
	return s.backend.Close(ctx)
}

// overrideDatabase routes every collection name to one collection. Typed
// lookups stay correct because filters always carry the document type.
type overrideDatabase struct {
	Database
	collection string
}

func (d *overrideDatabase) Collection(ctx context.Context, _ string) (Collection, error) {
	return d.Database.Collection(ctx, d.collection)
}
