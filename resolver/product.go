package resolver

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/c360/genomegate/docstore"
	"github.com/c360/genomegate/errors"
	"github.com/c360/genomegate/loader"
)

// ProductKind is the variant of a product document.
type ProductKind string

// Product variants, named as stored in the document type field.
const (
	ProductProtein   ProductKind = "Protein"
	ProductMatureRNA ProductKind = "MatureRNA"
)

// ParseProductKind reads the variant of a product document.
func ParseProductKind(doc map[string]any) (ProductKind, bool) {
	switch k := ProductKind(docstore.String(doc, "type")); k {
	case ProductProtein, ProductMatureRNA:
		return k, true
	}
	return "", false
}

func productTypes() bson.A {
	return bson.A{string(ProductProtein), string(ProductMatureRNA)}
}

func (n node) product(doc docstore.Document) *productResolver {
	kind, _ := ParseProductKind(doc)
	return &productResolver{node: n.with(doc), kind: kind}
}

// productResolver serves the Product interface and both of its variants.
// The variant is decided by the stored type.
type productResolver struct {
	node
	kind ProductKind
}

func (p *productResolver) ToProtein() (*productResolver, bool) {
	return p, p.kind == ProductProtein
}

func (p *productResolver) ToMatureRNA() (*productResolver, bool) {
	return p, p.kind == ProductMatureRNA
}

func (p *productResolver) StableID() string             { return docstore.String(p.doc, "stable_id") }
func (p *productResolver) UnversionedStableID() *string { return optString(p.doc, "unversioned_stable_id") }
func (p *productResolver) Version() *int32              { return optInt(p.doc, "version") }
func (p *productResolver) Length() int32                { return intOf(p.doc, "length") }
func (p *productResolver) Sequence() *Sequence          { return newSequence(docstore.Map(p.doc, "sequence")) }

func (p *productResolver) FamilyMatches() []*FamilyMatch {
	docs := docstore.Docs(p.doc, "family_matches")
	out := make([]*FamilyMatch, len(docs))
	for i, d := range docs {
		out[i] = newFamilyMatch(d)
	}
	return out
}

func (p *productResolver) ExternalReferences() []*ExternalReference {
	return p.externalReferences()
}

// ProductGeneratingContext finds the context that generates the product,
// by way of the transcript that carries it.
func (p *productResolver) ProductGeneratingContext(ctx context.Context) (*pgcResolver, error) {
	key := docstore.String(p.doc, "product_primary_key")
	if key == "" {
		return nil, nil
	}
	t, err := p.findOne(ctx, docstore.CollectionTranscript, "Transcript", bson.M{
		"type":      "Transcript",
		"genome_id": p.root.GenomeID,
		"product_generating_contexts.product_foreign_key": key,
	})
	if err != nil || t == nil {
		return nil, err
	}
	for _, pgc := range docstore.Docs(t, "product_generating_contexts") {
		if docstore.String(pgc, "product_foreign_key") == key {
			return &pgcResolver{p.with(pgc)}, nil
		}
	}
	return nil, nil
}

// pgcResolver is a product generating context embedded in a transcript.
type pgcResolver struct {
	node
}

func (c *pgcResolver) ProductType() string { return docstore.String(c.doc, "product_type") }
func (c *pgcResolver) Default() *bool      { return optBool(c.doc, "default") }
func (c *pgcResolver) FivePrimeUTR() *UTR  { return newUTR(docstore.Map(c.doc, "five_prime_utr")) }
func (c *pgcResolver) ThreePrimeUTR() *UTR { return newUTR(docstore.Map(c.doc, "three_prime_utr")) }
func (c *pgcResolver) CDS() *CDS           { return newCDS(docstore.Map(c.doc, "cds")) }
func (c *pgcResolver) CDNA() *CDNA         { return newCDNA(docstore.Map(c.doc, "cdna")) }

func (c *pgcResolver) PhasedExons() []*phasedExonResolver {
	docs := docstore.Docs(c.doc, "phased_exons")
	out := make([]*phasedExonResolver, len(docs))
	for i, d := range docs {
		out[i] = &phasedExonResolver{c.with(d)}
	}
	return out
}

// Product follows the context to its product. A context without a
// product key has no product.
func (c *pgcResolver) Product(ctx context.Context) (*productResolver, error) {
	key := docstore.String(c.doc, "product_foreign_key")
	if key == "" {
		return nil, nil
	}
	product, err := c.root.Loaders.LoadOne(ctx, loader.ProductsByPGC, key)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, errors.ProductNotFound(errors.F("product_foreign_key", key))
	}
	return c.product(product), nil
}
