package resolver

import (
	"context"

	"github.com/c360/genomegate/errors"
	"github.com/c360/genomegate/metadata"
)

type GenomeAssembly struct {
	AssemblyUUID *string
	AccessionID  *string
	Name         *string
	UCSCName     *string
	Level        *string
	EnsemblName  *string
	IsReference  *bool
	URLName      *string
	TolID        *string
}

type GenomeOrganism struct {
	OrganismUUID           *string
	CommonName             *string
	ScientificName         *string
	ScientificParlanceName *string
	EnsemblName            *string
	Strain                 *string
	StrainType             *string
	TaxonomyID             *int32
	SpeciesTaxonomyID      *int32
}

type GenomeTaxon struct {
	TaxonomyID       *int32
	ScientificName   *string
	Strain           *string
	AlternativeNames *[]string
}

type GenomeRelease struct {
	ReleaseVersion *float64
	ReleaseDate    *string
	ReleaseLabel   *string
	IsCurrent      *bool
	SiteName       *string
	SiteLabel      *string
	SiteURI        *string
}

type Dataset struct {
	DatasetUUID    string
	Name           *string
	Label          *string
	Type           *string
	Version        *string
	Source         *string
	ReleaseVersion *float64
}

// genomeResolver is a genome as the metadata service describes it. The
// release it was asked for is carried down to its dataset lookup.
type genomeResolver struct {
	r         *Resolver
	genome    *metadata.Genome
	requested float64
}

func (g *genomeResolver) GenomeID() string { return g.genome.GenomeUUID }
func (g *genomeResolver) Created() *string { return nonEmpty(g.genome.Created) }

func (g *genomeResolver) Assembly() *GenomeAssembly {
	a := g.genome.Assembly
	if a == nil {
		return nil
	}
	return &GenomeAssembly{
		AssemblyUUID: nonEmpty(a.AssemblyUUID),
		AccessionID:  nonEmpty(a.Accession),
		Name:         nonEmpty(a.Name),
		UCSCName:     nonEmpty(a.UCSCName),
		Level:        nonEmpty(a.Level),
		EnsemblName:  nonEmpty(a.EnsemblName),
		IsReference:  &a.IsReference,
		URLName:      nonEmpty(a.URLName),
		TolID:        nonEmpty(a.TolID),
	}
}

func (g *genomeResolver) Organism() *GenomeOrganism {
	o := g.genome.Organism
	if o == nil {
		return nil
	}
	return &GenomeOrganism{
		OrganismUUID:           nonEmpty(o.OrganismUUID),
		CommonName:             nonEmpty(o.CommonName),
		ScientificName:         nonEmpty(o.ScientificName),
		ScientificParlanceName: nonEmpty(o.ScientificParlanceName),
		EnsemblName:            nonEmpty(o.EnsemblName),
		Strain:                 nonEmpty(o.Strain),
		StrainType:             nonEmpty(o.StrainType),
		TaxonomyID:             &o.TaxonomyID,
		SpeciesTaxonomyID:      &o.SpeciesTaxonomyID,
	}
}

func (g *genomeResolver) Taxon() *GenomeTaxon {
	t := g.genome.Taxon
	if t == nil {
		return nil
	}
	out := &GenomeTaxon{
		TaxonomyID:     &t.TaxonomyID,
		ScientificName: nonEmpty(t.ScientificName),
		Strain:         nonEmpty(t.Strain),
	}
	if t.AlternativeNames != nil {
		out.AlternativeNames = &t.AlternativeNames
	}
	return out
}

func (g *genomeResolver) Release() *GenomeRelease {
	rel := g.genome.Release
	if rel == nil {
		return nil
	}
	return &GenomeRelease{
		ReleaseVersion: &rel.ReleaseVersion,
		ReleaseDate:    nonEmpty(rel.ReleaseDate),
		ReleaseLabel:   nonEmpty(rel.ReleaseLabel),
		IsCurrent:      &rel.IsCurrent,
		SiteName:       nonEmpty(rel.SiteName),
		SiteLabel:      nonEmpty(rel.SiteLabel),
		SiteURI:        nonEmpty(rel.SiteURI),
	}
}

func (g *genomeResolver) Datasets(ctx context.Context) ([]*Dataset, error) {
	if g.r.meta == nil {
		return nil, errors.UpstreamUnavailable("metadata", errors.ErrNoConnection)
	}
	datasets, err := g.r.meta.DatasetsByUUID(ctx, g.genome.GenomeUUID, g.requested)
	if err != nil {
		return nil, err
	}
	out := make([]*Dataset, len(datasets))
	for i, d := range datasets {
		out[i] = &Dataset{
			DatasetUUID:    d.DatasetUUID,
			Name:           nonEmpty(d.DatasetName),
			Label:          nonEmpty(d.DatasetLabel),
			Type:           nonEmpty(d.DatasetType),
			Version:        nonEmpty(d.DatasetVersion),
			Source:         nonEmpty(d.DatasetSource),
			ReleaseVersion: &datasets[i].ReleaseVersion,
		}
	}
	return out, nil
}
