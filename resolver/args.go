package resolver

import (
	"github.com/c360/genomegate/errors"
	"github.com/c360/genomegate/metadata"
)

// Input objects accepted by the root fields. Nullable input fields are
// pointers and are nil when the caller leaves them out.

type IDInput struct {
	GenomeID string
	StableID string
}

type SymbolInput struct {
	GenomeID string
	Symbol   *string
}

type RegionNameInput struct {
	GenomeID string
	Name     string
}

type GenomeIDInput struct {
	GenomeID string
}

type SliceInput struct {
	GenomeID   string
	RegionName string
	Start      int32
	End        int32
}

type GenomeKeywordInput struct {
	Tolid                  *string
	AssemblyAccessionID    *string
	AssemblyName           *string
	EnsemblName            *string
	CommonName             *string
	ScientificName         *string
	ScientificParlanceName *string
	SpeciesTaxonomyID      *string
	ReleaseVersion         *float64
}

// keywords lists the populated selector keys in schema order.
func (in GenomeKeywordInput) keywords() []errors.Field {
	var fields []errors.Field
	for _, kw := range []struct {
		key   string
		value *string
	}{
		{"tolid", in.Tolid},
		{"assembly_accession_id", in.AssemblyAccessionID},
		{"assembly_name", in.AssemblyName},
		{"ensembl_name", in.EnsemblName},
		{"common_name", in.CommonName},
		{"scientific_name", in.ScientificName},
		{"scientific_parlance_name", in.ScientificParlanceName},
		{"species_taxonomy_id", in.SpeciesTaxonomyID},
	} {
		if v := deref(kw.value); v != "" {
			fields = append(fields, errors.F(kw.key, v))
		}
	}
	return fields
}

func (in GenomeKeywordInput) selector() metadata.KeywordSelector {
	return metadata.KeywordSelector{
		Tolid:                  deref(in.Tolid),
		AssemblyAccessionID:    deref(in.AssemblyAccessionID),
		AssemblyName:           deref(in.AssemblyName),
		EnsemblName:            deref(in.EnsemblName),
		CommonName:             deref(in.CommonName),
		ScientificName:         deref(in.ScientificName),
		ScientificParlanceName: deref(in.ScientificParlanceName),
		SpeciesTaxonomyID:      deref(in.SpeciesTaxonomyID),
	}
}

type GenomeUUIDInput struct {
	GenomeUUID     string
	ReleaseVersion *float64
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
