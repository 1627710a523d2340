package metadata

import (
	"github.com/c360/genomegate/errors"
)

// Genome is a genome as reported by the metadata service.
type Genome struct {
	GenomeUUID string    `json:"genome_uuid"`
	Created    string    `json:"created,omitempty"`
	Assembly   *Assembly `json:"assembly,omitempty"`
	Organism   *Organism `json:"organism,omitempty"`
	Taxon      *Taxon    `json:"taxon,omitempty"`
	Release    *Release  `json:"release,omitempty"`
}

// Assembly describes the genome's assembly.
type Assembly struct {
	AssemblyUUID string `json:"assembly_uuid,omitempty"`
	Accession    string `json:"accession,omitempty"`
	Name         string `json:"name,omitempty"`
	UCSCName     string `json:"ucsc_name,omitempty"`
	Level        string `json:"level,omitempty"`
	EnsemblName  string `json:"ensembl_name,omitempty"`
	IsReference  bool   `json:"is_reference,omitempty"`
	URLName      string `json:"url_name,omitempty"`
	TolID        string `json:"tol_id,omitempty"`
}

// Organism describes the organism a genome was assembled from.
type Organism struct {
	OrganismUUID           string `json:"organism_uuid,omitempty"`
	CommonName             string `json:"common_name,omitempty"`
	ScientificName         string `json:"scientific_name,omitempty"`
	ScientificParlanceName string `json:"scientific_parlance_name,omitempty"`
	EnsemblName            string `json:"ensembl_name,omitempty"`
	Strain                 string `json:"strain,omitempty"`
	StrainType             string `json:"strain_type,omitempty"`
	TaxonomyID             int32  `json:"taxonomy_id,omitempty"`
	SpeciesTaxonomyID      int32  `json:"species_taxonomy_id,omitempty"`
}

// Taxon is the NCBI taxonomy node of a genome.
type Taxon struct {
	TaxonomyID       int32    `json:"taxonomy_id,omitempty"`
	ScientificName   string   `json:"scientific_name,omitempty"`
	Strain           string   `json:"strain,omitempty"`
	AlternativeNames []string `json:"alternative_names,omitempty"`
}

// Release is the annotation release a genome belongs to.
type Release struct {
	ReleaseVersion float64 `json:"release_version,omitempty"`
	ReleaseDate    string  `json:"release_date,omitempty"`
	ReleaseLabel   string  `json:"release_label,omitempty"`
	IsCurrent      bool    `json:"is_current,omitempty"`
	SiteName       string  `json:"site_name,omitempty"`
	SiteLabel      string  `json:"site_label,omitempty"`
	SiteURI        string  `json:"site_uri,omitempty"`
}

// Dataset is one entry of a genome's dataset catalogue.
type Dataset struct {
	DatasetUUID    string  `json:"dataset_uuid"`
	DatasetName    string  `json:"dataset_name,omitempty"`
	DatasetLabel   string  `json:"dataset_label,omitempty"`
	DatasetType    string  `json:"dataset_type,omitempty"`
	DatasetVersion string  `json:"dataset_version,omitempty"`
	DatasetSource  string  `json:"dataset_source,omitempty"`
	ReleaseVersion float64 `json:"release_version,omitempty"`
}

// KeywordSelector selects genomes by exactly one keyword field.
type KeywordSelector struct {
	Tolid                  string `json:"tolid,omitempty"`
	AssemblyAccessionID    string `json:"assembly_accession_id,omitempty"`
	AssemblyName           string `json:"assembly_name,omitempty"`
	EnsemblName            string `json:"ensembl_name,omitempty"`
	CommonName             string `json:"common_name,omitempty"`
	ScientificName         string `json:"scientific_name,omitempty"`
	ScientificParlanceName string `json:"scientific_parlance_name,omitempty"`
	SpeciesTaxonomyID      string `json:"species_taxonomy_id,omitempty"`
}

// Set returns how many selector fields are populated.
func (k KeywordSelector) Set() int {
	n := 0
	for _, v := range []string{
		k.Tolid, k.AssemblyAccessionID, k.AssemblyName, k.EnsemblName,
		k.CommonName, k.ScientificName, k.ScientificParlanceName, k.SpeciesTaxonomyID,
	} {
		if v != "" {
			n++
		}
	}
	return n
}

// Validate requires exactly one populated field.
func (k KeywordSelector) Validate() error {
	if n := k.Set(); n != 1 {
		return errors.InvalidArgument("Exactly one genome keyword selector must be set")
	}
	return nil
}
