package resolver

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/c360/genomegate/config"
	"github.com/c360/genomegate/docstore"
	"github.com/c360/genomegate/errors"
	"github.com/c360/genomegate/transcript"
)

// OverlapLimit caps the features an overlap query returns. Reaching it is
// an error.
const OverlapLimit = 1000

// stableIDMatch matches either the versioned or the unversioned id.
func stableIDMatch(id string) bson.A {
	return bson.A{bson.M{"stable_id": id}, bson.M{"unversioned_stable_id": id}}
}

// queryRoot resolves the fields of the Query type. Every field that
// targets a genome binds its own root state.
type queryRoot struct {
	r *Resolver
}

// Version takes a context so that it is timed like the other root fields.
func (q *queryRoot) Version(_ context.Context) *Version {
	v := config.ReadVersion(q.r.version)
	return &Version{API: &VersionDetails{Major: v.Major, Minor: v.Minor, Patch: v.Patch}}
}

// root binds genomeID and returns a node carrying the new state.
func (q *queryRoot) root(ctx context.Context, genomeID string) (node, error) {
	st, err := q.r.bind(ctx, genomeID)
	if err != nil {
		return node{}, err
	}
	return node{r: q.r, root: st}, nil
}

func (q *queryRoot) Gene(ctx context.Context, args struct{ ByID IDInput }) (*geneResolver, error) {
	genomeID, stableID := args.ByID.GenomeID, args.ByID.StableID

	n, err := q.root(ctx, genomeID)
	if err != nil {
		return nil, err
	}
	gene, err := n.findOne(ctx, docstore.CollectionGene, "Gene", bson.M{
		"type":      "Gene",
		"genome_id": genomeID,
		"$or":       stableIDMatch(stableID),
	})
	if err != nil {
		return nil, err
	}
	if gene == nil {
		return nil, errors.GeneNotFound(errors.F("stable_id", stableID), errors.F("genome_id", genomeID))
	}
	return &geneResolver{n.with(gene)}, nil
}

func (q *queryRoot) Genes(ctx context.Context, args struct{ BySymbol SymbolInput }) ([]*geneResolver, error) {
	genomeID, symbol := args.BySymbol.GenomeID, deref(args.BySymbol.Symbol)

	n, err := q.root(ctx, genomeID)
	if err != nil {
		return nil, err
	}
	filter := bson.M{"type": "Gene", "genome_id": genomeID}
	if symbol != "" {
		filter["symbol"] = symbol
	}
	genes, err := n.find(ctx, docstore.CollectionGene, "Gene", filter, docstore.FindOptions{})
	if err != nil {
		return nil, err
	}
	if len(genes) == 0 {
		return nil, errors.GeneNotFound(errors.F("symbol", symbol), errors.F("genome_id", genomeID))
	}
	return n.genes(genes), nil
}

func (q *queryRoot) Transcript(ctx context.Context, args struct {
	BySymbol *SymbolInput
	ByID     *IDInput
}) (*transcriptResolver, error) {
	if (args.BySymbol == nil) == (args.ByID == nil) {
		return nil, errors.InputFieldArgCount(1)
	}

	var (
		genomeID string
		filter   bson.M
		keys     []errors.Field
	)
	if by := args.ByID; by != nil {
		genomeID = by.GenomeID
		filter = bson.M{"type": "Transcript", "genome_id": genomeID, "$or": stableIDMatch(by.StableID)}
		keys = []errors.Field{errors.F("stable_id", by.StableID), errors.F("genome_id", genomeID)}
	} else {
		genomeID = args.BySymbol.GenomeID
		symbol := deref(args.BySymbol.Symbol)
		filter = bson.M{"type": "Transcript", "genome_id": genomeID, "symbol": symbol}
		keys = []errors.Field{errors.F("symbol", symbol), errors.F("genome_id", genomeID)}
	}

	n, err := q.root(ctx, genomeID)
	if err != nil {
		return nil, err
	}
	t, err := n.findOne(ctx, docstore.CollectionTranscript, "Transcript", filter)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errors.TranscriptNotFound(keys...)
	}
	return &transcriptResolver{n.with(t)}, nil
}

func (q *queryRoot) Product(ctx context.Context, args struct{ ByID IDInput }) (*productResolver, error) {
	genomeID, stableID := args.ByID.GenomeID, args.ByID.StableID

	n, err := q.root(ctx, genomeID)
	if err != nil {
		return nil, err
	}
	product, err := n.findOne(ctx, docstore.CollectionProtein, "Product", bson.M{
		"type":      bson.M{"$in": productTypes()},
		"genome_id": genomeID,
		"$or":       stableIDMatch(stableID),
	})
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, errors.ProductNotFound(errors.F("genome_id", genomeID), errors.F("stable_id", stableID))
	}
	return n.product(product), nil
}

func (q *queryRoot) Region(ctx context.Context, args struct{ ByName RegionNameInput }) (*regionResolver, error) {
	genomeID, name := args.ByName.GenomeID, args.ByName.Name

	n, err := q.root(ctx, genomeID)
	if err != nil {
		return nil, err
	}
	region, err := n.findOne(ctx, docstore.CollectionRegion, "Region", bson.M{
		"type":      "Region",
		"genome_id": genomeID,
		"name":      name,
	})
	if err != nil {
		return nil, err
	}
	if region == nil {
		return nil, errors.RegionNotFound(errors.F("genome_id", genomeID), errors.F("name", name))
	}
	return &regionResolver{n.with(region)}, nil
}

func (q *queryRoot) Regions(ctx context.Context, args struct{ ByGenomeID GenomeIDInput }) ([]*regionResolver, error) {
	genomeID := args.ByGenomeID.GenomeID

	n, err := q.root(ctx, genomeID)
	if err != nil {
		return nil, err
	}
	regions, err := n.find(ctx, docstore.CollectionRegion, "Region",
		bson.M{"type": "Region", "genome_id": genomeID},
		docstore.FindOptions{Sort: bson.D{{Key: "name", Value: 1}}})
	if err != nil {
		return nil, err
	}
	if len(regions) == 0 {
		return nil, errors.NotFound(errors.CodeRegionsNotFound, "regions", errors.F("genome_id", genomeID))
	}
	return n.regions(regions), nil
}

// OverlapRegion records the slice; the Locus fields run the queries.
func (q *queryRoot) OverlapRegion(ctx context.Context, args struct{ BySlice SliceInput }) (*locusResolver, error) {
	by := args.BySlice

	n, err := q.root(ctx, by.GenomeID)
	if err != nil {
		return nil, err
	}
	return &locusResolver{
		node:     n,
		genomeID: by.GenomeID,
		regionID: fmt.Sprintf("%s_%s_chromosome", by.GenomeID, by.RegionName),
		start:    by.Start,
		end:      by.End,
	}, nil
}

func (q *queryRoot) Genomes(ctx context.Context, args struct{ ByKeyword GenomeKeywordInput }) ([]*genomeResolver, error) {
	by := args.ByKeyword
	selector := by.selector()
	if selector.Set() != 1 {
		return nil, errors.InputFieldArgCount(1)
	}
	if q.r.meta == nil {
		return nil, errors.UpstreamUnavailable("metadata", errors.ErrNoConnection)
	}

	release := deref(by.ReleaseVersion)
	genomes, err := q.r.meta.GenomesByKeyword(ctx, selector, release)
	if err != nil {
		return nil, err
	}
	if len(genomes) == 0 {
		return nil, errors.GenomeNotFound(by.keywords()...)
	}

	out := make([]*genomeResolver, len(genomes))
	for i := range genomes {
		out[i] = &genomeResolver{r: q.r, genome: &genomes[i], requested: release}
	}
	return out, nil
}

func (q *queryRoot) Genome(ctx context.Context, args struct{ ByGenomeUUID GenomeUUIDInput }) (*genomeResolver, error) {
	uuid := args.ByGenomeUUID.GenomeUUID
	if q.r.meta == nil {
		return nil, errors.UpstreamUnavailable("metadata", errors.ErrNoConnection)
	}

	release := deref(args.ByGenomeUUID.ReleaseVersion)
	genome, err := q.r.meta.GenomeByUUID(ctx, uuid, release)
	if err != nil {
		return nil, err
	}
	if genome == nil {
		return nil, errors.GenomeNotFound(errors.F("genome_uuid", uuid))
	}
	return &genomeResolver{r: q.r, genome: genome, requested: release}, nil
}

// locusResolver is the slice an overlap query asked about.
type locusResolver struct {
	node
	genomeID string
	regionID string
	start    int32
	end      int32
}

func (l *locusResolver) Genes(ctx context.Context) ([]*geneResolver, error) {
	features, err := l.features(ctx, docstore.CollectionGene, "Gene")
	if err != nil {
		return nil, err
	}
	return l.genes(features), nil
}

func (l *locusResolver) Transcripts(ctx context.Context) ([]*transcriptResolver, error) {
	features, err := l.features(ctx, docstore.CollectionTranscript, "Transcript")
	if err != nil {
		return nil, err
	}
	return l.transcripts(transcript.Sort(features)), nil
}

func (l *locusResolver) features(ctx context.Context, collection, docType string) ([]docstore.Document, error) {
	features, err := l.find(ctx, collection, docType, bson.M{
		"type":                 docType,
		"genome_id":            l.genomeID,
		"slice.region_id":      l.regionID,
		"slice.location.start": bson.M{"$lte": int(l.end)},
		"slice.location.end":   bson.M{"$gte": int(l.start)},
	}, docstore.FindOptions{Limit: OverlapLimit})
	if err != nil {
		return nil, err
	}
	if len(features) >= OverlapLimit {
		return nil, errors.SliceLimitExceeded(OverlapLimit)
	}
	return features, nil
}
