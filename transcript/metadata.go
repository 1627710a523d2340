package transcript

import (
	"regexp"
	"strings"

	"github.com/c360/genomegate/docstore"
)

// Attribute is a resolved transcript metadata value.
type Attribute struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Definition  string `json:"definition"`
	Description string `json:"description,omitempty"`
}

// Document renders the attribute the way metadata is stored.
func (a Attribute) Document() docstore.Document {
	return docstore.Document{
		"value":       a.Value,
		"label":       a.Label,
		"definition":  a.Definition,
		"description": nilIfEmpty(a.Description),
	}
}

// TSL is a transcript support level.
type TSL string

// Transcript support levels
const (
	TSL1  TSL = "1"
	TSL2  TSL = "2"
	TSL3  TSL = "3"
	TSL4  TSL = "4"
	TSL5  TSL = "5"
	TSLNA TSL = "NA"
)

var tslDefinitions = map[TSL]string{
	TSL1:  "All splice junctions of the transcript are supported by at least one non-suspect mRNA",
	TSL2:  "The best supporting mRNA is flagged as suspect or the support is from multiple ESTs",
	TSL3:  "The only support is from a single EST",
	TSL4:  "The best supporting EST is flagged as suspect",
	TSL5:  "No single transcript supports the model structure",
	TSLNA: "The transcript was not analysed",
}

var tslPattern = regexp.MustCompile(`^tsl(\d+|NA)`)

// ParseTSL accepts the annotation form ("tsl1", "tslNA") or a bare level.
func ParseTSL(s string) (TSL, bool) {
	s = strings.TrimSpace(s)
	if m := tslPattern.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	t := TSL(s)
	_, ok := tslDefinitions[t]
	return t, ok
}

// Label returns the display label, e.g. "TSL:1".
func (t TSL) Label() string { return "TSL:" + string(t) }

// Definition returns the meaning of the support level.
func (t TSL) Definition() string { return tslDefinitions[t] }

// Attribute returns the resolved metadata value.
func (t TSL) Attribute() Attribute {
	return Attribute{Value: string(t), Label: t.Label(), Definition: t.Definition()}
}

// APPRIS is an APPRIS isoform annotation.
type APPRIS string

// APPRIS annotations
const (
	APPRISPrincipal1   APPRIS = "principal1"
	APPRISPrincipal2   APPRIS = "principal2"
	APPRISPrincipal3   APPRIS = "principal3"
	APPRISPrincipal4   APPRIS = "principal4"
	APPRISPrincipal5   APPRIS = "principal5"
	APPRISAlternative1 APPRIS = "alternative1"
	APPRISAlternative2 APPRIS = "alternative2"
)

var apprisTerms = map[APPRIS]struct{ label, definition string }{
	APPRISPrincipal1:   {"APPRIS P1", "Transcript(s) expected to code for the main functional isoform based solely on the core modules in the APPRIS"},
	APPRISPrincipal2:   {"APPRIS P2", `Two or more of the CDS variants as "candidates" to be the principal variant.`},
	APPRISPrincipal3:   {"APPRIS P3", "Lowest CCDS identifier as the principal variant"},
	APPRISPrincipal4:   {"APPRIS P4", "Longest CCDS isoform as the principal variant"},
	APPRISPrincipal5:   {"APPRIS P5", "The longest of the candidate isoforms as the principal variant"},
	APPRISAlternative1: {"APPRIS ALT1", "Candidate transcript(s) models that are conserved in at least three tested species"},
	APPRISAlternative2: {"APPRIS ALT2", "Candidate transcript(s) models that appear to be conserved in fewer than three tested species"},
}

var apprisPattern = regexp.MustCompile(`^(principal|alternative)(\d+)`)

// ParseAPPRIS accepts "principal1".."principal5" and "alternative1".."alternative2".
func ParseAPPRIS(s string) (APPRIS, bool) {
	m := apprisPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	a := APPRIS(m[1] + m[2])
	_, ok := apprisTerms[a]
	return a, ok
}

// Label returns the display label, e.g. "APPRIS P1".
func (a APPRIS) Label() string { return apprisTerms[a].label }

// Definition returns the meaning of the annotation.
func (a APPRIS) Definition() string { return apprisTerms[a].definition }

// Attribute returns the resolved metadata value.
func (a APPRIS) Attribute() Attribute {
	return Attribute{Value: string(a), Label: a.Label(), Definition: a.Definition()}
}

// MANE is a MANE transcript set membership.
type MANE string

// MANE sets
const (
	MANESelect       MANE = "select"
	MANEPlusClinical MANE = "plus_clinical"
)

// NCBITranscriptURL prefixes the RefSeq accession of a MANE transcript.
const NCBITranscriptURL = "https://www.ncbi.nlm.nih.gov/nuccore/"

var maneTerms = map[MANE]struct{ label, definition string }{
	MANESelect: {"MANE Select",
		"The MANE Select is a default transcript per human gene that is representative of biology, well-supported, expressed and highly-conserved."},
	MANEPlusClinical: {"MANE Plus Clinical",
		"Transcripts in the MANE Plus Clinical set are additional transcripts per locus necessary to support clinical variant reporting"},
}

// ParseMANE accepts "select" and "plus_clinical" in any case.
func ParseMANE(s string) (MANE, bool) {
	m := MANE(strings.ToLower(strings.TrimSpace(s)))
	_, ok := maneTerms[m]
	return m, ok
}

// Label returns the display label.
func (m MANE) Label() string { return maneTerms[m].label }

// Definition returns the meaning of the set.
func (m MANE) Definition() string { return maneTerms[m].definition }

// Attribute returns the resolved metadata value.
func (m MANE) Attribute() Attribute {
	return Attribute{Value: string(m), Label: m.Label(), Definition: m.Definition()}
}

// GENCODE basic and Ensembl canonical are single-member sets.
const (
	GencodeBasicValue      = "GENCODE basic"
	gencodeBasicDefinition = "A subset of the GENCODE gene set, and is intended to provide a simplified, high-quality subset of the GENCODE transcript annotations"

	CanonicalLabel      = "Ensembl canonical"
	canonicalDefinition = "A single, representative transcript identified at every locus"
)

// ParseGencodeBasic reports whether s names the GENCODE basic set.
func ParseGencodeBasic(s string) (Attribute, bool) {
	if strings.TrimSpace(s) != GencodeBasicValue {
		return Attribute{}, false
	}
	return Attribute{Value: GencodeBasicValue, Label: GencodeBasicValue, Definition: gencodeBasicDefinition}, true
}

// ParseCanonical accepts the stored flag ("1", "true", "True").
func ParseCanonical(s string) (Attribute, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true":
		return Attribute{Value: "true", Label: CanonicalLabel, Definition: canonicalDefinition}, true
	}
	return Attribute{}, false
}

// EnrichMetadata returns a copy of a transcript metadata block in which
// every recognised tsl, appris, mane, gencode_basic and canonical entry
// carries its label and definition. Unrecognised values are left as stored.
func EnrichMetadata(meta map[string]any) docstore.Document {
	out := docstore.Clone(meta)
	if out == nil {
		return nil
	}

	enrich := func(key string, parse func(string) (Attribute, bool)) {
		entry := docstore.Map(out, key)
		if entry == nil {
			return
		}
		attr, ok := parse(docstore.String(entry, "value"))
		if !ok {
			return
		}
		for k, v := range attr.Document() {
			if k == "description" && docstore.Has(entry, "description") {
				continue
			}
			entry[k] = v
		}
	}

	enrich("tsl", func(s string) (Attribute, bool) {
		t, ok := ParseTSL(s)
		return t.Attribute(), ok
	})
	enrich("appris", func(s string) (Attribute, bool) {
		a, ok := ParseAPPRIS(s)
		return a.Attribute(), ok
	})
	enrich("mane", func(s string) (Attribute, bool) {
		m, ok := ParseMANE(s)
		return m.Attribute(), ok
	})
	enrich("gencode_basic", ParseGencodeBasic)
	enrich("canonical", ParseCanonical)

	if mane := docstore.Map(out, "mane"); mane != nil {
		if id := docstore.String(mane, "ncbi_transcript.id"); id != "" && !docstore.Has(mane, "ncbi_transcript.url") {
			if ncbi := docstore.Map(mane, "ncbi_transcript"); ncbi != nil {
				ncbi["url"] = NCBITranscriptURL + id
			}
		}
	}
	return out
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
