package resolver

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/c360/genomegate/docstore"
	"github.com/c360/genomegate/errors"
	"github.com/c360/genomegate/loader"
)

func (n node) slice(doc docstore.Document) *sliceResolver {
	if doc == nil {
		doc = docstore.Document{}
	}
	return &sliceResolver{n.with(doc)}
}

func (n node) regions(docs []docstore.Document) []*regionResolver {
	out := make([]*regionResolver, len(docs))
	for i, d := range docs {
		out[i] = &regionResolver{n.with(d)}
	}
	return out
}

// join resolves a relation through a loader. An empty result is the
// NOT_FOUND error built by missing.
func (n node) join(ctx context.Context, name, key string, missing func(string) error) ([]docstore.Document, error) {
	docs, err := n.root.Loaders.Load(ctx, name, key)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, missing(key)
	}
	return docs, nil
}

type sliceResolver struct {
	node
}

func (s *sliceResolver) Location() *Location {
	loc := newLocation(docstore.Map(s.doc, "location"))
	if loc == nil {
		return &Location{}
	}
	return loc
}

func (s *sliceResolver) Strand() *Strand { return newStrand(docstore.Map(s.doc, "strand")) }
func (s *sliceResolver) Default() *bool  { return optBool(s.doc, "default") }

// Region follows the slice to its region. A slice without a region id has
// no region.
func (s *sliceResolver) Region(ctx context.Context) (*regionResolver, error) {
	regionID := docstore.String(s.doc, "region_id")
	if regionID == "" {
		return nil, nil
	}
	region, err := s.root.Loaders.LoadOne(ctx, loader.RegionsByID, regionID)
	if err != nil {
		return nil, err
	}
	if region == nil {
		return nil, errors.RegionNotFound(errors.F("region_id", regionID))
	}
	return &regionResolver{s.with(region)}, nil
}

type exonResolver struct {
	node
}

func (e *exonResolver) StableID() string      { return docstore.String(e.doc, "stable_id") }
func (e *exonResolver) Slice() *sliceResolver { return e.slice(docstore.Map(e.doc, "slice")) }

func (n node) exon() *exonResolver {
	return &exonResolver{n.with(docstore.Map(n.doc, "exon"))}
}

type splicedExonResolver struct {
	node
}

func (e *splicedExonResolver) Index() int32        { return intOf(e.doc, "index") }
func (e *splicedExonResolver) Exon() *exonResolver { return e.exon() }

func (e *splicedExonResolver) RelativeLocation() *Location {
	return newLocation(docstore.Map(e.doc, "relative_location"))
}

type phasedExonResolver struct {
	node
}

func (e *phasedExonResolver) Index() int32        { return intOf(e.doc, "index") }
func (e *phasedExonResolver) StartPhase() int32   { return intOf(e.doc, "start_phase") }
func (e *phasedExonResolver) EndPhase() int32     { return intOf(e.doc, "end_phase") }
func (e *phasedExonResolver) Exon() *exonResolver { return e.exon() }

type intronResolver struct {
	node
}

func (i *intronResolver) Type() string          { return docstore.String(i.doc, "type") }
func (i *intronResolver) Index() int32          { return intOf(i.doc, "index") }
func (i *intronResolver) SoTerm() string        { return docstore.String(i.doc, "so_term") }
func (i *intronResolver) Slice() *sliceResolver { return i.slice(docstore.Map(i.doc, "slice")) }

func (i *intronResolver) RelativeLocation() *Location {
	loc := newLocation(docstore.Map(i.doc, "relative_location"))
	if loc == nil {
		return &Location{}
	}
	return loc
}

type regionResolver struct {
	node
}

func (rg *regionResolver) Name() string              { return docstore.String(rg.doc, "name") }
func (rg *regionResolver) Code() string              { return docstore.String(rg.doc, "code") }
func (rg *regionResolver) Length() int32             { return intOf(rg.doc, "length") }
func (rg *regionResolver) Topology() *string         { return optString(rg.doc, "topology") }
func (rg *regionResolver) Metadata() *RegionMetadata { return newRegionMetadata(docstore.Map(rg.doc, "metadata")) }

func (rg *regionResolver) Assembly(ctx context.Context) (*assemblyResolver, error) {
	assemblyID := docstore.String(rg.doc, "assembly_id")
	assembly, err := rg.findOne(ctx, docstore.CollectionAssembly, "Assembly", bson.M{"assembly_id": assemblyID})
	if err != nil {
		return nil, err
	}
	if assembly == nil {
		return nil, errors.NotFound(errors.CodeAssemblyNotFound, "assembly", errors.F("assembly_id", assemblyID))
	}
	return &assemblyResolver{rg.with(assembly)}, nil
}

type assemblyResolver struct {
	node
}

func (a *assemblyResolver) AssemblyID() string        { return docstore.String(a.doc, "assembly_id") }
func (a *assemblyResolver) Name() string              { return docstore.String(a.doc, "name") }
func (a *assemblyResolver) AccessionID() *string      { return optString(a.doc, "accession_id") }
func (a *assemblyResolver) AccessioningBody() *string { return optString(a.doc, "accessioning_body") }

func (a *assemblyResolver) Regions(ctx context.Context) ([]*regionResolver, error) {
	docs, err := a.join(ctx, loader.RegionsByAssembly, docstore.String(a.doc, "assembly_id"), func(key string) error {
		return errors.NotFound(errors.CodeRegionsNotFound, "regions", errors.F("assembly_id", key))
	})
	if err != nil {
		return nil, err
	}
	return a.regions(docs), nil
}

func (a *assemblyResolver) Organism(ctx context.Context) (*organismResolver, error) {
	docs, err := a.join(ctx, loader.OrganismByAssembly, docstore.String(a.doc, "organism_foreign_key"), func(key string) error {
		return errors.NotFound(errors.CodeOrganismFromAssemblyNotFound, "organism", errors.F("organism_id", key))
	})
	if err != nil {
		return nil, err
	}
	return &organismResolver{a.with(docs[0])}, nil
}

type organismResolver struct {
	node
}

func (o *organismResolver) ScientificName() *string { return optString(o.doc, "scientific_name") }

func (o *organismResolver) Assemblies(ctx context.Context) ([]*assemblyResolver, error) {
	docs, err := o.join(ctx, loader.AssembliesByOrganism, docstore.String(o.doc, "organism_primary_key"), func(key string) error {
		return errors.NotFound(errors.CodeAssembliesFromOrganismNotFound, "assemblies", errors.F("organism_id", key))
	})
	if err != nil {
		return nil, err
	}
	out := make([]*assemblyResolver, len(docs))
	for i, d := range docs {
		out[i] = &assemblyResolver{o.with(d)}
	}
	return out, nil
}

func (o *organismResolver) Species(ctx context.Context) (*speciesResolver, error) {
	docs, err := o.join(ctx, loader.SpeciesByOrganism, docstore.String(o.doc, "species_foreign_key"), func(key string) error {
		return errors.NotFound(errors.CodeSpeciesFromOrganismNotFound, "species", errors.F("species_id", key))
	})
	if err != nil {
		return nil, err
	}
	return &speciesResolver{o.with(docs[0])}, nil
}

type speciesResolver struct {
	node
}

func (s *speciesResolver) ScientificName() *string { return optString(s.doc, "scientific_name") }

func (s *speciesResolver) Organisms(ctx context.Context) ([]*organismResolver, error) {
	docs, err := s.join(ctx, loader.OrganismsBySpecies, docstore.String(s.doc, "species_primary_key"), func(key string) error {
		return errors.NotFound(errors.CodeOrganismsFromSpeciesNotFound, "organisms", errors.F("species_id", key))
	})
	if err != nil {
		return nil, err
	}
	out := make([]*organismResolver, len(docs))
	for i, d := range docs {
		out[i] = &organismResolver{s.with(d)}
	}
	return out, nil
}
