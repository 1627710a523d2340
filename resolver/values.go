package resolver

import (
	"github.com/c360/genomegate/docstore"
	"github.com/c360/genomegate/xref"
)

// The types below are the schema's plain value types. Each is built from
// a stored document by its constructor and resolved field by field.

type Version struct {
	API *VersionDetails
}

type VersionDetails struct {
	Major string
	Minor string
	Patch string
}

type PageMetadata struct {
	Page       int32
	PerPage    int32
	TotalCount int32
}

type Location struct {
	Start  int32
	End    int32
	Length int32
}

func newLocation(doc map[string]any) *Location {
	if doc == nil {
		return nil
	}
	return &Location{
		Start:  intOf(doc, "start"),
		End:    intOf(doc, "end"),
		Length: intOf(doc, "length"),
	}
}

type Strand struct {
	Code  *string
	Value *int32
}

func newStrand(doc map[string]any) *Strand {
	return &Strand{Code: optString(doc, "code"), Value: optInt(doc, "value")}
}

type ValueSetMetadata struct {
	AccessionID *string
	Value       string
	Label       *string
	Definition  *string
	Description *string
}

func newValueSet(doc map[string]any) *ValueSetMetadata {
	if doc == nil {
		return nil
	}
	return &ValueSetMetadata{
		AccessionID: optString(doc, "accession_id"),
		Value:       docstore.String(doc, "value"),
		Label:       optString(doc, "label"),
		Definition:  optString(doc, "definition"),
		Description: optString(doc, "description"),
	}
}

type NCBITranscript struct {
	ID  *string
	URL *string
}

type ManeMetadata struct {
	AccessionID    *string
	Value          string
	Label          *string
	Definition     *string
	Description    *string
	NCBITranscript *NCBITranscript
}

type TranscriptMetadata struct {
	Biotype      *ValueSetMetadata
	TSL          *ValueSetMetadata
	APPRIS       *ValueSetMetadata
	MANE         *ManeMetadata
	GencodeBasic *ValueSetMetadata
	Canonical    *ValueSetMetadata
}

func newTranscriptMetadata(doc map[string]any) *TranscriptMetadata {
	biotype := newValueSet(docstore.Map(doc, "biotype"))
	if biotype == nil {
		biotype = &ValueSetMetadata{}
	}
	meta := &TranscriptMetadata{
		Biotype:      biotype,
		TSL:          newValueSet(docstore.Map(doc, "tsl")),
		APPRIS:       newValueSet(docstore.Map(doc, "appris")),
		GencodeBasic: newValueSet(docstore.Map(doc, "gencode_basic")),
		Canonical:    newValueSet(docstore.Map(doc, "canonical")),
	}
	if mane := docstore.Map(doc, "mane"); mane != nil {
		vs := newValueSet(mane)
		meta.MANE = &ManeMetadata{
			AccessionID: vs.AccessionID,
			Value:       vs.Value,
			Label:       vs.Label,
			Definition:  vs.Definition,
			Description: vs.Description,
		}
		if ncbi := docstore.Map(mane, "ncbi_transcript"); ncbi != nil {
			meta.MANE.NCBITranscript = &NCBITranscript{
				ID:  optString(ncbi, "id"),
				URL: optString(ncbi, "url"),
			}
		}
	}
	return meta
}

type CDS struct {
	Start            int32
	End              int32
	RelativeStart    int32
	RelativeEnd      int32
	ProteinLength    int32
	NucleotideLength int32
	SequenceChecksum *string
}

func newCDS(doc map[string]any) *CDS {
	if doc == nil {
		return nil
	}
	return &CDS{
		Start:            intOf(doc, "start"),
		End:              intOf(doc, "end"),
		RelativeStart:    intOf(doc, "relative_start"),
		RelativeEnd:      intOf(doc, "relative_end"),
		ProteinLength:    intOf(doc, "protein_length"),
		NucleotideLength: intOf(doc, "nucleotide_length"),
		SequenceChecksum: optString(doc, "sequence_checksum"),
	}
}

type CDNA struct {
	Start            int32
	End              int32
	RelativeStart    int32
	RelativeEnd      int32
	Length           int32
	SequenceChecksum *string
}

func newCDNA(doc map[string]any) *CDNA {
	if doc == nil {
		return nil
	}
	return &CDNA{
		Start:            intOf(doc, "start"),
		End:              intOf(doc, "end"),
		RelativeStart:    intOf(doc, "relative_start"),
		RelativeEnd:      intOf(doc, "relative_end"),
		Length:           intOf(doc, "length"),
		SequenceChecksum: optString(doc, "sequence_checksum"),
	}
}

type UTR struct {
	Type   string
	Start  int32
	End    int32
	Length int32
}

func newUTR(doc map[string]any) *UTR {
	if doc == nil {
		return nil
	}
	return &UTR{
		Type:   docstore.String(doc, "type"),
		Start:  intOf(doc, "start"),
		End:    intOf(doc, "end"),
		Length: intOf(doc, "length"),
	}
}

type ExternalDB struct {
	ID          *string
	Name        *string
	Description *string
	URL         *string
	Release     *string
}

// newExternalDB reads a source block. Its id is the source's internal
// name, which older documents store as external_db_id.
func newExternalDB(doc map[string]any) *ExternalDB {
	if doc == nil {
		return nil
	}
	return &ExternalDB{
		ID:          nonEmpty(sourceID(doc)),
		Name:        optString(doc, "name"),
		Description: optString(doc, "description"),
		URL:         optString(doc, "url"),
		Release:     optString(doc, "release"),
	}
}

type XrefMethod struct {
	Type        string
	Description *string
}

type ExternalReference struct {
	AccessionID      string
	Name             *string
	Description      *string
	URL              *string
	Source           *ExternalDB
	AssignmentMethod *XrefMethod
}

func newExternalReference(doc map[string]any) *ExternalReference {
	source := newExternalDB(docstore.Map(doc, "source"))
	if source == nil {
		source = &ExternalDB{}
	}
	method := docstore.Map(doc, "assignment_method")
	return &ExternalReference{
		AccessionID: docstore.String(doc, "accession_id"),
		Name:        optString(doc, "name"),
		Description: optString(doc, "description"),
		URL:         optString(doc, "url"),
		Source:      source,
		AssignmentMethod: &XrefMethod{
			Type:        docstore.String(method, "type"),
			Description: optString(method, "description"),
		},
	}
}

type Sequence struct {
	Alphabet *ValueSetMetadata
	Checksum *string
}

func newSequence(doc map[string]any) *Sequence {
	if doc == nil {
		return nil
	}
	return &Sequence{
		Alphabet: newValueSet(docstore.Map(doc, "alphabet")),
		Checksum: optString(doc, "checksum"),
	}
}

type SequenceFamily struct {
	Source      *ExternalDB
	Name        string
	AccessionID string
	URL         *string
	Description *string
}

type FamilyMatchVia struct {
	Source      *ExternalDB
	AccessionID string
	URL         *string
}

type FamilyMatch struct {
	SequenceFamily   *SequenceFamily
	Via              *FamilyMatchVia
	RelativeLocation *Location
	HitLocation      *Location
	Score            *float64
	Evalue           *float64
}

func newFamilyMatch(doc map[string]any) *FamilyMatch {
	family := docstore.Map(doc, "sequence_family")
	m := &FamilyMatch{
		SequenceFamily: &SequenceFamily{
			Source:      orEmptyDB(newExternalDB(docstore.Map(family, "source"))),
			Name:        docstore.String(family, "name"),
			AccessionID: docstore.String(family, "accession_id"),
			URL:         optString(family, "url"),
			Description: optString(family, "description"),
		},
		RelativeLocation: newLocation(docstore.Map(doc, "relative_location")),
		HitLocation:      newLocation(docstore.Map(doc, "hit_location")),
		Score:            optFloat(doc, "score"),
		Evalue:           optFloat(doc, "evalue"),
	}
	if m.RelativeLocation == nil {
		m.RelativeLocation = &Location{}
	}
	if via := docstore.Map(doc, "via"); via != nil {
		m.Via = &FamilyMatchVia{
			Source:      orEmptyDB(newExternalDB(docstore.Map(via, "source"))),
			AccessionID: docstore.String(via, "accession_id"),
			URL:         optString(via, "url"),
		}
	}
	return m
}

func orEmptyDB(db *ExternalDB) *ExternalDB {
	if db == nil {
		return &ExternalDB{}
	}
	return db
}

type GeneNameMetadata struct {
	AccessionID *string
	Value       *string
	URL         *string
	Source      *ExternalDB
}

type GeneMetadata struct {
	Biotype *ValueSetMetadata
	Name    *GeneNameMetadata
}

type OntologyTermMetadata struct {
	AccessionID *string
	Value       *string
	URL         *string
	Source      *ExternalDB
}

type RegionMetadata struct {
	OntologyTerms *[]*OntologyTermMetadata
}

func newRegionMetadata(doc map[string]any) *RegionMetadata {
	if doc == nil {
		return nil
	}
	meta := &RegionMetadata{}
	if docstore.Has(doc, "ontology_terms") {
		terms := []*OntologyTermMetadata{}
		for _, t := range docstore.Docs(doc, "ontology_terms") {
			terms = append(terms, &OntologyTermMetadata{
				AccessionID: optString(t, "accession_id"),
				Value:       optString(t, "value"),
				URL:         optString(t, "url"),
				Source:      newExternalDB(docstore.Map(t, "source")),
			})
		}
		meta.OntologyTerms = &terms
	}
	return meta
}

func sourceID(src map[string]any) string {
	return xref.SourceID(map[string]any{"source": src})
}

func optString(doc map[string]any, path string) *string {
	return nonEmpty(docstore.String(doc, path))
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optInt(doc map[string]any, path string) *int32 {
	n := docstore.IntPtr(doc, path)
	if n == nil {
		return nil
	}
	v := int32(*n)
	return &v
}

func intOf(doc map[string]any, path string) int32 {
	return int32(docstore.Int(doc, path))
}

func optFloat(doc map[string]any, path string) *float64 {
	f, ok := docstore.ToFloat(docstore.Lookup(doc, path))
	if !ok {
		return nil
	}
	return &f
}

func optBool(doc map[string]any, path string) *bool {
	if !docstore.Has(doc, path) {
		return nil
	}
	b := docstore.Bool(doc, path)
	return &b
}
