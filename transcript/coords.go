package transcript

import (
	"sort"

	"github.com/c360/genomegate/docstore"
)

// Strand values as stored in slice.strand.value.
const (
	Forward = 1
	Reverse = -1
)

// Location is an inclusive genomic interval.
type Location struct {
	Start int
	End   int
}

// Length returns the number of bases covered.
func (l Location) Length() int { return l.End - l.Start + 1 }

// Document renders the location as stored.
func (l Location) Document() docstore.Document {
	return docstore.Document{"start": l.Start, "end": l.End, "length": l.Length()}
}

// LocationOf reads {start, end} from a location document.
func LocationOf(doc map[string]any) Location {
	return Location{Start: docstore.Int(doc, "start"), End: docstore.Int(doc, "end")}
}

// Relative expresses child in the coordinates of parent. Position 1 is the
// parent's first base in transcription order, so on the reverse strand it
// is the parent's end.
func Relative(child, parent Location, strand int) Location {
	if strand == Reverse {
		return Location{
			Start: parent.End - child.End + 1,
			End:   parent.End - child.Start + 1,
		}
	}
	return Location{
		Start: child.Start - parent.Start + 1,
		End:   child.End - parent.Start + 1,
	}
}

// Absolute inverts Relative.
func Absolute(rel, parent Location, strand int) Location {
	if strand == Reverse {
		return Location{
			Start: parent.End - rel.End + 1,
			End:   parent.End - rel.Start + 1,
		}
	}
	return Location{
		Start: rel.Start + parent.Start - 1,
		End:   rel.End + parent.Start - 1,
	}
}

// OrderExons sorts exon locations in transcription order: ascending start
// on the forward strand, descending on the reverse strand.
func OrderExons(exons []Location, strand int) []Location {
	out := make([]Location, len(exons))
	copy(out, exons)
	sort.SliceStable(out, func(i, j int) bool {
		if strand == Reverse {
			return out[i].Start > out[j].Start
		}
		return out[i].Start < out[j].Start
	})
	return out
}

// Introns returns the gaps between consecutive exons in transcription
// order. Abutting exons produce no intron.
func Introns(exons []Location, strand int) []Location {
	ordered := OrderExons(exons, strand)
	var introns []Location
	for i := 1; i < len(ordered); i++ {
		prev, next := ordered[i-1], ordered[i]
		var gap Location
		if strand == Reverse {
			gap = Location{Start: next.End + 1, End: prev.Start - 1}
		} else {
			gap = Location{Start: prev.End + 1, End: next.Start - 1}
		}
		if gap.Start <= gap.End {
			introns = append(introns, gap)
		}
	}
	return introns
}

// BuildIntrons derives intron documents from a transcript's spliced exons.
// Each intron carries a slice on the transcript's region and strand and a
// location relative to the transcript.
func BuildIntrons(t docstore.Document) []docstore.Document {
	slice := docstore.Map(t, "slice")
	strand := docstore.Int(slice, "strand.value")
	if strand == 0 {
		strand = Forward
	}
	parent := LocationOf(docstore.Map(slice, "location"))

	var exons []Location
	for _, se := range docstore.Docs(t, "spliced_exons") {
		exons = append(exons, LocationOf(docstore.Map(se, "exon.slice.location")))
	}

	introns := Introns(exons, strand)
	docs := make([]docstore.Document, 0, len(introns))
	for i, in := range introns {
		docs = append(docs, docstore.Document{
			"type":    "Intron",
			"index":   i + 1,
			"so_term": "intron",
			"slice": docstore.Document{
				"region_id": docstore.String(slice, "region_id"),
				"location":  in.Document(),
				"strand":    docstore.Clone(docstore.Map(slice, "strand")),
				"default":   docstore.Bool(slice, "default"),
			},
			"relative_location": Relative(in, parent, strand).Document(),
		})
	}
	return docs
}
