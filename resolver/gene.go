package resolver

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/c360/genomegate/docstore"
	"github.com/c360/genomegate/errors"
	"github.com/c360/genomegate/loader"
	"github.com/c360/genomegate/transcript"
)

func (n node) genes(docs []docstore.Document) []*geneResolver {
	out := make([]*geneResolver, len(docs))
	for i, d := range docs {
		out[i] = &geneResolver{n.with(d)}
	}
	return out
}

func (n node) transcripts(docs []docstore.Document) []*transcriptResolver {
	out := make([]*transcriptResolver, len(docs))
	for i, d := range docs {
		out[i] = &transcriptResolver{n.with(d)}
	}
	return out
}

type geneResolver struct {
	node
}

func (g *geneResolver) StableID() string             { return docstore.String(g.doc, "stable_id") }
func (g *geneResolver) UnversionedStableID() string  { return docstore.String(g.doc, "unversioned_stable_id") }
func (g *geneResolver) Version() *int32              { return optInt(g.doc, "version") }
func (g *geneResolver) Symbol() *string              { return optString(g.doc, "symbol") }
func (g *geneResolver) AlternativeSymbols() []string { return nonNilStrings(docstore.Strings(g.doc, "alternative_symbols")) }
func (g *geneResolver) Name() *string                { return optString(g.doc, "name") }
func (g *geneResolver) SoTerm() *string              { return optString(g.doc, "so_term") }
func (g *geneResolver) Slice() *sliceResolver        { return g.slice(docstore.Map(g.doc, "slice")) }

func (g *geneResolver) ExternalReferences() []*ExternalReference {
	return g.externalReferences()
}

// Transcripts returns the gene's transcripts in display order.
func (g *geneResolver) Transcripts(ctx context.Context) ([]*transcriptResolver, error) {
	transcripts, err := g.root.Loaders.Load(ctx, loader.TranscriptsByGene, docstore.String(g.doc, "gene_primary_key"))
	if err != nil {
		return nil, err
	}
	return g.transcripts(transcript.Sort(transcripts)), nil
}

func (g *geneResolver) TranscriptsPage(args struct {
	Page    int32
	PerPage int32
}) (*transcriptsPageResolver, error) {
	if args.Page < 1 {
		return nil, errors.InvalidArgument("page must be at least 1")
	}
	if args.PerPage < 1 {
		return nil, errors.InvalidArgument("per_page must be at least 1")
	}
	return &transcriptsPageResolver{
		node:    g.node,
		geneKey: docstore.String(g.doc, "gene_primary_key"),
		page:    args.Page,
		perPage: args.PerPage,
	}, nil
}

func (g *geneResolver) Metadata() *GeneMetadata {
	meta := docstore.Map(g.doc, "metadata")
	biotype := newValueSet(docstore.Map(meta, "biotype"))
	if biotype == nil {
		biotype = &ValueSetMetadata{}
	}
	return &GeneMetadata{Biotype: biotype, Name: g.geneName(docstore.Map(meta, "name"))}
}

// geneName links the gene name to its source. The source block is only
// reported when the stored source is named.
func (g *geneResolver) geneName(name map[string]any) *GeneNameMetadata {
	if name == nil {
		return nil
	}
	out := &GeneNameMetadata{
		AccessionID: optString(name, "accession_id"),
		Value:       optString(name, "value"),
	}

	accession := docstore.String(name, "accession_id")
	dbName := sourceID(docstore.Map(name, "source"))
	if accession != "" && dbName != "" {
		if url, ok := g.r.xrefs.XrefURL(accession, dbName); ok {
			out.URL = &url
		}
	}

	src := docstore.Map(name, "source")
	if dbName == "" || docstore.String(src, "name") == "" {
		return out
	}
	out.Source = &ExternalDB{
		ID:          nonEmpty(dbName),
		Name:        optString(src, "name"),
		Description: optString(src, "description"),
		Release:     optString(src, "release"),
	}
	if prefix, ok := g.r.xrefs.Translate(dbName); ok {
		if url, ok := g.r.xrefs.SourceURL(prefix); ok {
			out.Source.URL = &url
		}
		if desc, ok := g.r.xrefs.SourceInfo(prefix, "description"); ok {
			out.Source.Description = &desc
		}
	}
	return out
}

// transcriptsPageResolver is one page of a gene's transcripts in stable id
// order.
type transcriptsPageResolver struct {
	node
	geneKey string
	page    int32
	perPage int32
}

func (p *transcriptsPageResolver) filter() bson.M {
	return bson.M{
		"type":             "Transcript",
		"genome_id":        p.root.GenomeID,
		"gene_foreign_key": p.geneKey,
	}
}

func (p *transcriptsPageResolver) Transcripts(ctx context.Context) ([]*transcriptResolver, error) {
	docs, err := p.find(ctx, docstore.CollectionTranscript, "Transcript", p.filter(), docstore.FindOptions{
		Sort:  bson.D{{Key: "stable_id", Value: 1}},
		Skip:  int64(p.page-1) * int64(p.perPage),
		Limit: int64(p.perPage),
	})
	if err != nil {
		return nil, err
	}
	return p.transcripts(docs), nil
}

func (p *transcriptsPageResolver) PageMetadata(ctx context.Context) (*PageMetadata, error) {
	coll, err := p.root.Database.Collection(ctx, docstore.CollectionTranscript)
	if err != nil {
		return nil, err
	}
	total, err := coll.Count(ctx, p.filter())
	if err != nil {
		return nil, err
	}
	return &PageMetadata{Page: p.page, PerPage: p.perPage, TotalCount: int32(total)}, nil
}

type transcriptResolver struct {
	node
}

func (t *transcriptResolver) StableID() string            { return docstore.String(t.doc, "stable_id") }
func (t *transcriptResolver) UnversionedStableID() string { return docstore.String(t.doc, "unversioned_stable_id") }
func (t *transcriptResolver) Version() *int32             { return optInt(t.doc, "version") }
func (t *transcriptResolver) Symbol() *string             { return optString(t.doc, "symbol") }
func (t *transcriptResolver) SoTerm() *string             { return optString(t.doc, "so_term") }
func (t *transcriptResolver) Slice() *sliceResolver       { return t.slice(docstore.Map(t.doc, "slice")) }

func (t *transcriptResolver) RelativeLocation() *Location {
	return newLocation(docstore.Map(t.doc, "relative_location"))
}

func (t *transcriptResolver) ExternalReferences() []*ExternalReference {
	return t.externalReferences()
}

func (t *transcriptResolver) Metadata() *TranscriptMetadata {
	return newTranscriptMetadata(transcript.EnrichMetadata(docstore.Map(t.doc, "metadata")))
}

func (t *transcriptResolver) Gene(ctx context.Context) (*geneResolver, error) {
	stableID := docstore.String(t.doc, "gene")
	gene, err := t.root.Loaders.LoadOne(ctx, loader.GeneByStableID, stableID)
	if err != nil {
		return nil, err
	}
	if gene == nil {
		return nil, errors.GeneNotFound(errors.F("stable_id", stableID), errors.F("genome_id", t.root.GenomeID))
	}
	return &geneResolver{t.with(gene)}, nil
}

func (t *transcriptResolver) ProductGeneratingContexts() []*pgcResolver {
	docs := docstore.Docs(t.doc, "product_generating_contexts")
	out := make([]*pgcResolver, len(docs))
	for i, d := range docs {
		out[i] = &pgcResolver{t.with(d)}
	}
	return out
}

func (t *transcriptResolver) SplicedExons() []*splicedExonResolver {
	docs := docstore.Docs(t.doc, "spliced_exons")
	out := make([]*splicedExonResolver, len(docs))
	for i, d := range docs {
		out[i] = &splicedExonResolver{t.with(d)}
	}
	return out
}

func (t *transcriptResolver) Introns() []*intronResolver {
	docs := transcript.BuildIntrons(t.doc)
	out := make([]*intronResolver, len(docs))
	for i, d := range docs {
		out[i] = &intronResolver{t.with(d)}
	}
	return out
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
