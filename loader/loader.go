package loader

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/graph-gophers/dataloader/v7"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/c360/genomegate/docstore"
	"github.com/c360/genomegate/errors"
	"github.com/c360/genomegate/metric"
)

// Loader names, used as metric labels.
const (
	TranscriptsByGene    = "transcripts_by_gene"
	ProductsByPGC        = "products_by_pgc"
	RegionsByID          = "regions_by_id"
	RegionsByAssembly    = "regions_by_assembly"
	OrganismByAssembly   = "organism_by_assembly"
	AssembliesByOrganism = "assemblies_by_organism"
	SpeciesByOrganism    = "species_by_organism"
	OrganismsBySpecies   = "organisms_by_species"
	GeneByStableID       = "gene_by_stable_id"
)

// Config tunes batching.
type Config struct {
	// Wait is how long a loader collects keys before flushing.
	Wait time.Duration
	// MaxBatch caps the keys per flush.
	MaxBatch int
	Metrics  *metric.Metrics
}

// DefaultConfig returns the batching used when nothing is configured.
func DefaultConfig() Config {
	return Config{Wait: 2 * time.Millisecond, MaxBatch: 1000}
}

// join describes one loader: which collection to query and which field
// holds the key. When alt is set a document also matches on that field.
type join struct {
	name       string
	collection string
	docType    string
	field      string
	scoped     bool
	alt        string
}

var joins = []join{
	{TranscriptsByGene, docstore.CollectionTranscript, "Transcript", "gene_foreign_key", true, ""},
	{ProductsByPGC, docstore.CollectionProtein, "", "product_primary_key", true, ""},
	{RegionsByID, docstore.CollectionRegion, "", "region_id", true, ""},
	{RegionsByAssembly, docstore.CollectionRegion, "", "assembly_id", false, ""},
	{OrganismByAssembly, docstore.CollectionOrganism, "", "organism_primary_key", false, ""},
	{AssembliesByOrganism, docstore.CollectionAssembly, "", "organism_foreign_key", false, ""},
	{SpeciesByOrganism, docstore.CollectionSpecies, "", "species_primary_key", false, ""},
	{OrganismsBySpecies, docstore.CollectionOrganism, "", "species_foreign_key", false, ""},
	{GeneByStableID, docstore.CollectionGene, "Gene", "stable_id", true, "unversioned_stable_id"},
}

type docLoader = dataloader.Loader[string, []docstore.Document]

// Set holds the loaders of one root query. A Set is bound to one database
// and genome and must not outlive the request that created it.
type Set struct {
	db       docstore.Database
	genomeID string
	metrics  *metric.Metrics
	loaders  map[string]*docLoader
}

// NewSet creates the loaders for genomeID in db.
func NewSet(db docstore.Database, genomeID string, cfg Config) *Set {
	if cfg.Wait <= 0 {
		cfg.Wait = DefaultConfig().Wait
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = DefaultConfig().MaxBatch
	}

	s := &Set{
		db:       db,
		genomeID: genomeID,
		metrics:  cfg.Metrics,
		loaders:  make(map[string]*docLoader, len(joins)),
	}
	for _, j := range joins {
		s.loaders[j.name] = dataloader.NewBatchedLoader(
			s.batch(j),
			dataloader.WithWait[string, []docstore.Document](cfg.Wait),
			dataloader.WithBatchCapacity[string, []docstore.Document](cfg.MaxBatch),
		)
	}
	return s
}

// GenomeID returns the genome the set is scoped to.
func (s *Set) GenomeID() string { return s.genomeID }

// Database returns the database the set reads from.
func (s *Set) Database() docstore.Database { return s.db }

// Load returns the documents joined to key by the named loader. Unknown
// keys yield an empty slice.
func (s *Set) Load(ctx context.Context, name, key string) ([]docstore.Document, error) {
	l, ok := s.loaders[name]
	if !ok {
		return nil, errors.WrapFatal(fmt.Errorf("unknown loader %q", name), "Set", "Load", "select loader")
	}
	return l.Load(ctx, key)()
}

// LoadOne returns the first joined document, or nil.
func (s *Set) LoadOne(ctx context.Context, name, key string) (docstore.Document, error) {
	docs, err := s.Load(ctx, name, key)
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

func (s *Set) batch(j join) dataloader.BatchFunc[string, []docstore.Document] {
	return func(ctx context.Context, keys []string) []*dataloader.Result[[]docstore.Document] {
		results := make([]*dataloader.Result[[]docstore.Document], len(keys))

		unique := sortedUnique(keys)
		if s.metrics != nil {
			s.metrics.RecordBatch(j.name, len(unique))
		}

		grouped, err := s.fetch(ctx, j, unique)
		for i, key := range keys {
			if err != nil {
				results[i] = &dataloader.Result[[]docstore.Document]{Error: err}
				continue
			}
			docs := grouped[key]
			if docs == nil {
				docs = []docstore.Document{}
			}
			results[i] = &dataloader.Result[[]docstore.Document]{Data: docs}
		}
		return results
	}
}

func (s *Set) fetch(ctx context.Context, j join, keys []string) (map[string][]docstore.Document, error) {
	coll, err := s.db.Collection(ctx, j.collection)
	if err != nil {
		return nil, err
	}

	filter := bson.M{j.field: bson.M{"$in": keys}}
	if j.alt != "" {
		filter = bson.M{"$or": bson.A{
			bson.M{j.field: bson.M{"$in": keys}},
			bson.M{j.alt: bson.M{"$in": keys}},
		}}
	}
	if j.docType != "" {
		filter["type"] = j.docType
	}
	if j.scoped && s.genomeID != "" {
		filter["genome_id"] = s.genomeID
	}

	docs, err := coll.Find(ctx, filter, docstore.FindOptions{})
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]docstore.Document, len(keys))
	for _, d := range docs {
		k := docstore.String(d, j.field)
		grouped[k] = append(grouped[k], d)
		if j.alt == "" {
			continue
		}
		if alt := docstore.String(d, j.alt); alt != "" && alt != k {
			grouped[alt] = append(grouped[alt], d)
		}
	}
	return grouped, nil
}

func sortedUnique(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
