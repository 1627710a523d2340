package transcript

import (
	"sort"
	"strings"

	"github.com/c360/genomegate/docstore"
)

// Priority is the biological ranking of a transcript within its gene.
// Fields compare lexicographically in declaration order, higher first.
type Priority struct {
	Designation       int
	Biotype           int
	TranslationLength int
	TranscriptLength  int
}

// Compare returns -1, 0 or 1 as p ranks below, equal to or above o.
func (p Priority) Compare(o Priority) int {
	pairs := [4][2]int{
		{p.Designation, o.Designation},
		{p.Biotype, o.Biotype},
		{p.TranslationLength, o.TranslationLength},
		{p.TranscriptLength, o.TranscriptLength},
	}
	for _, pair := range pairs {
		switch {
		case pair[0] < pair[1]:
			return -1
		case pair[0] > pair[1]:
			return 1
		}
	}
	return 0
}

// PriorityOf scores a transcript document.
func PriorityOf(t docstore.Document) Priority {
	meta := docstore.Map(t, "metadata")
	return Priority{
		Designation:       designationValue(meta),
		Biotype:           biotypeValue(docstore.String(meta, "biotype.value")),
		TranslationLength: translationLength(t),
		TranscriptLength:  docstore.Int(t, "relative_location.length"),
	}
}

func designationValue(meta map[string]any) int {
	if _, canonical := meta["canonical"]; canonical {
		return 2
	}
	if mane := docstore.Map(meta, "mane"); mane != nil {
		if strings.ToLower(docstore.String(mane, "value")) == "select" {
			return 2
		}
	}
	for key := range meta {
		if strings.HasPrefix(key, "mane") {
			return 1
		}
	}
	return 0
}

func biotypeValue(biotype string) int {
	switch {
	case biotype == "protein_coding":
		return 5
	case biotype == "nonsense_mediated_decay":
		return 4
	case biotype == "non_stop_decay":
		return 3
	case strings.HasPrefix(biotype, "IG_"):
		return 2
	case biotype == "polymorphic_pseudogene":
		return 1
	default:
		return 0
	}
}

func translationLength(t docstore.Document) int {
	pgcs := docstore.Docs(t, "product_generating_contexts")
	if len(pgcs) == 0 {
		return 0
	}
	cds := docstore.Map(pgcs[0], "cds")
	if len(cds) == 0 {
		return 0
	}
	return docstore.Int(cds, "protein_length")
}

// DisplayRank returns the precomputed rank of a transcript. The rank may be
// stored at the top level or inside metadata.
func DisplayRank(t docstore.Document) (float64, bool) {
	for _, path := range []string{"display_rank", "metadata.display_rank"} {
		if v := docstore.Lookup(t, path); v != nil {
			return docstore.ToFloat(v)
		}
	}
	return 0, false
}

// Sort returns the transcripts of one gene in display order without
// modifying the input. When the first transcript has a display rank every
// transcript is ordered by rank, highest first; otherwise by Priority,
// highest first. Equal keys keep their input order.
func Sort(transcripts []docstore.Document) []docstore.Document {
	out := make([]docstore.Document, len(transcripts))
	copy(out, transcripts)
	if len(out) < 2 {
		return out
	}

	if _, ranked := DisplayRank(out[0]); ranked {
		idx := indexed(out)
		ranks := make([]float64, len(out))
		for i, t := range out {
			ranks[i], _ = DisplayRank(t)
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return ranks[idx[a].pos] > ranks[idx[b].pos]
		})
		return unwrap(idx)
	}

	idx := indexed(out)
	prios := make([]Priority, len(out))
	for i, t := range out {
		prios[i] = PriorityOf(t)
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return prios[idx[a].pos].Compare(prios[idx[b].pos]) > 0
	})
	return unwrap(idx)
}

type positioned struct {
	pos int
	doc docstore.Document
}

func indexed(docs []docstore.Document) []positioned {
	out := make([]positioned, len(docs))
	for i, d := range docs {
		out[i] = positioned{pos: i, doc: d}
	}
	return out
}

func unwrap(items []positioned) []docstore.Document {
	out := make([]docstore.Document, len(items))
	for i, item := range items {
		out[i] = item.doc
	}
	return out
}
